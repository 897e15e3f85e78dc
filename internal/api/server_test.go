package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spigell/music-dna/internal/ai"
	"github.com/spigell/music-dna/internal/matchmaker"
	"github.com/spigell/music-dna/internal/metrics"
	"github.com/spigell/music-dna/internal/persona"
	"github.com/spigell/music-dna/internal/storage"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

type testServer struct {
	handler  http.Handler
	registry *prometheus.Registry
}

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T, insights ai.Provider) *testServer {
	t.Helper()

	catalog, err := persona.Default()
	require.NoError(t, err)

	store, err := storage.Open(storage.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	reg := prometheus.NewRegistry()
	recorder, err := metrics.New(reg)
	require.NoError(t, err)

	buddies, err := matchmaker.New(store, catalog, matchmaker.Config{}, zap.NewNop(), recorder)
	require.NoError(t, err)

	if insights == nil {
		insights, err = ai.NewStatic()
		require.NoError(t, err)
	}

	srv, err := New(Config{Debug: true}, Deps{
		Catalog:  catalog,
		Buddies:  buddies,
		Insights: insights,
		Metrics:  recorder,
	}, zap.NewNop())
	require.NoError(t, err)

	return &testServer{handler: srv.Handler(), registry: reg}
}

func (ts *testServer) do(t *testing.T, method, path string, body any, headers map[string]string) (int, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec.Code, env
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

var explorerAnswers = persona.QuizAnswers{
	DiscoveryMethod:   "Streaming service recommendations",
	AIAttitude:        "I'm open to AI-generated music",
	MusicRelationship: "I'm obsessed with music",
	AgeGroup:          "18-34",
	ListeningHabits:   "While working or studying",
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, nil)
	code, env := ts.do(t, http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, env.Success)
}

func TestPersonaRoutes(t *testing.T) {
	ts := newTestServer(t, nil)

	code, env := ts.do(t, http.MethodGet, "/api/personas", nil, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[[]persona.Persona](t, env.Data), 5)

	code, env = ts.do(t, http.MethodGet, "/api/personas/3", nil, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "The Music Obsessive", decode[persona.Persona](t, env.Data).Name)

	code, env = ts.do(t, http.MethodGet, "/api/personas/9", nil, nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.False(t, env.Success)
	assert.Contains(t, env.Error, "unknown persona")

	code, _ = ts.do(t, http.MethodGet, "/api/personas/abc", nil, nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestPersonaInsights(t *testing.T) {
	ts := newTestServer(t, nil)

	code, env := ts.do(t, http.MethodGet, "/api/personas/4/insights", nil, nil)
	require.Equal(t, http.StatusOK, code)

	insights := decode[ai.Insights](t, env.Data)
	assert.Equal(t, 4, insights.PersonaID)
	assert.Equal(t, ai.SourceStatic, insights.Source)
	assert.Len(t, insights.Recommendations, 3)
	assert.Len(t, insights.FunFacts, 4)

	count, err := testutil.GatherAndCount(ts.registry, "music_dna_persona_insights_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

type failingProvider struct{}

func (failingProvider) Insights(context.Context, persona.Persona) (*ai.Insights, error) {
	return nil, errors.New("upstream exploded")
}

func TestPersonaInsightsFailureIsHidden(t *testing.T) {
	ts := newTestServer(t, failingProvider{})

	code, env := ts.do(t, http.MethodGet, "/api/personas/1/insights", nil, nil)
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "internal error", env.Error)
}

func TestQuiz(t *testing.T) {
	ts := newTestServer(t, nil)

	code, env := ts.do(t, http.MethodGet, "/api/quiz/questions", nil, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[[]persona.Question](t, env.Data), 5)

	code, env = ts.do(t, http.MethodPost, "/api/quiz/classify", explorerAnswers, nil)
	require.Equal(t, http.StatusOK, code)
	result := decode[classifyResponse](t, env.Data)
	assert.Equal(t, 1, result.Persona.ID)
	assert.Equal(t, 10, result.Score)

	incomplete := explorerAnswers
	incomplete.AgeGroup = ""
	incomplete.AIAttitude = "I love robots"
	code, env = ts.do(t, http.MethodPost, "/api/quiz/classify", incomplete, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, env.Error, "age_group: answer is required")
	assert.Contains(t, env.Error, "ai_attitude")
}

func TestSurvey(t *testing.T) {
	ts := newTestServer(t, nil)

	code, env := ts.do(t, http.MethodGet, "/api/survey", nil, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Positive(t, decode[persona.Survey](t, env.Data).TotalResponses)
}

func TestRejectsNonJSONBodies(t *testing.T) {
	ts := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/quiz/classify", bytes.NewBufferString("a=b"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

type savedProfile struct {
	ID          string   `json:"id"`
	PersonaID   int      `json:"persona_id"`
	VibeTags    []string `json:"vibe_tags"`
	City        string   `json:"city"`
	Email       string   `json:"email"`
	AccessToken string   `json:"access_token"`
	Nickname    string   `json:"nickname"`
}

type matchView struct {
	Persona    savedProfile `json:"persona"`
	Similarity int          `json:"similarity"`
	SharedTags []string     `json:"shared_tags"`
}

func saveBuddy(t *testing.T, ts *testServer, req matchmaker.SaveRequest) savedProfile {
	t.Helper()
	code, env := ts.do(t, http.MethodPost, "/api/buddies", req, nil)
	require.Equal(t, http.StatusCreated, code, env.Error)
	return decode[savedProfile](t, env.Data)
}

func TestBuddyLifecycle(t *testing.T) {
	ts := newTestServer(t, nil)

	me := saveBuddy(t, ts, matchmaker.SaveRequest{
		PersonaID: 1, Nickname: "maple", City: "Toronto", Email: "maple@example.com", IsDiscoverable: true,
	})
	require.NotEmpty(t, me.AccessToken)
	auth := map[string]string{accessTokenHeader: me.AccessToken}

	friend := saveBuddy(t, ts, matchmaker.SaveRequest{
		PersonaID: 1, Nickname: "birch", City: "toronto", Email: "birch@example.com",
		IsDiscoverable: true, ShowContactsPublicly: true,
	})

	code, env := ts.do(t, http.MethodGet, "/api/buddies", nil, nil)
	require.Equal(t, http.StatusOK, code)
	all := decode[[]savedProfile](t, env.Data)
	require.Len(t, all, 2)
	for _, p := range all {
		assert.Empty(t, p.AccessToken)
		assert.Empty(t, p.Email)
	}

	code, env = ts.do(t, http.MethodGet, "/api/buddies?persona_id=1", nil, auth)
	require.Equal(t, http.StatusOK, code)
	others := decode[[]savedProfile](t, env.Data)
	require.Len(t, others, 1)
	assert.Equal(t, friend.ID, others[0].ID)

	code, _ = ts.do(t, http.MethodGet, "/api/buddies?persona_id=x", nil, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = ts.do(t, http.MethodGet, "/api/buddies/"+friend.ID, nil, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, decode[savedProfile](t, env.Data).Email)

	code, env = ts.do(t, http.MethodGet, "/api/buddies/"+friend.ID+"/contact", nil, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), "birch@example.com")

	code, _ = ts.do(t, http.MethodGet, "/api/buddies/"+me.ID+"/contact", nil, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, env = ts.do(t, http.MethodGet, "/api/buddies/me", nil, map[string]string{
		"Authorization": "Bearer " + me.AccessToken,
	})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, me.AccessToken, decode[savedProfile](t, env.Data).AccessToken)

	code, env = ts.do(t, http.MethodGet, "/api/buddies/me/matches?limit=5", nil, auth)
	require.Equal(t, http.StatusOK, code)
	matches := decode[[]matchView](t, env.Data)
	require.Len(t, matches, 1)
	assert.Equal(t, friend.ID, matches[0].Persona.ID)
	assert.Equal(t, 100, matches[0].Similarity)
	assert.Equal(t, me.VibeTags, matches[0].SharedTags)
	assert.Empty(t, matches[0].Persona.AccessToken)

	code, _ = ts.do(t, http.MethodGet, "/api/buddies/me/matches?limit=0", nil, auth)
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = ts.do(t, http.MethodPatch, "/api/buddies/me", map[string]any{
		"nickname": "maple leaf", "is_discoverable": false,
	}, auth)
	require.Equal(t, http.StatusOK, code, env.Error)
	assert.Equal(t, "maple leaf", decode[savedProfile](t, env.Data).Nickname)

	code, env = ts.do(t, http.MethodPatch, "/api/buddies/me", map[string]any{"persona_id": 3}, auth)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, env.Error, "persona_id")

	code, _ = ts.do(t, http.MethodPatch, "/api/buddies/me", map[string]any{"is_discoverable": "nope"}, auth)
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = ts.do(t, http.MethodGet, "/api/buddies", nil, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[[]savedProfile](t, env.Data), 1)

	code, _ = ts.do(t, http.MethodDelete, "/api/buddies/me", nil, auth)
	assert.Equal(t, http.StatusOK, code)

	code, _ = ts.do(t, http.MethodGet, "/api/buddies/me", nil, auth)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestBuddyErrors(t *testing.T) {
	ts := newTestServer(t, nil)

	code, env := ts.do(t, http.MethodPost, "/api/buddies", matchmaker.SaveRequest{PersonaID: 1}, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, env.Error, "nickname is required")

	code, _ = ts.do(t, http.MethodPost, "/api/buddies", matchmaker.SaveRequest{PersonaID: 12, Nickname: "x"}, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = ts.do(t, http.MethodGet, "/api/buddies/me", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = ts.do(t, http.MethodDelete, "/api/buddies/me", nil, map[string]string{accessTokenHeader: "garbage"})
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = ts.do(t, http.MethodGet, "/api/buddies/does-not-exist", nil, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = ts.do(t, http.MethodGet, "/api/nothing-here", nil, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestRequestMetrics(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.do(t, http.MethodGet, "/api/personas/2", nil, nil)
	ts.do(t, http.MethodGet, "/api/personas/3", nil, nil)

	count, err := testutil.GatherAndCount(ts.registry, "music_dna_http_request_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestNewRequiresDeps(t *testing.T) {
	_, err := New(Config{}, Deps{}, nil)
	assert.Error(t, err)
}

func TestAccessToken(t *testing.T) {
	cases := map[string]map[string]string{
		"header": {accessTokenHeader: " tok "},
		"bearer": {"Authorization": "bearer tok"},
		"both":   {accessTokenHeader: "tok", "Authorization": "Bearer other"},
	}
	for name, headers := range cases {
		t.Run(name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range headers {
				c.Request.Header.Set(k, v)
			}
			assert.Equal(t, "tok", accessToken(c))
		})
	}

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request.Header.Set("Authorization", "Basic abc")
	assert.Empty(t, accessToken(c))
}
