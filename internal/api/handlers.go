package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mitchellh/mapstructure"

	"github.com/spigell/music-dna/internal/matchmaker"
	"github.com/spigell/music-dna/internal/persona"
)

const maxMatchLimit = 50

func (s *Server) listPersonas(c *gin.Context) {
	ok(c, http.StatusOK, s.deps.Catalog.Personas)
}

func (s *Server) getPersona(c *gin.Context) {
	p, err := s.personaParam(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, http.StatusOK, p)
}

func (s *Server) personaInsights(c *gin.Context) {
	p, err := s.personaParam(c)
	if err != nil {
		s.fail(c, err)
		return
	}

	insights, err := s.deps.Insights.Insights(c.Request.Context(), p)
	if err != nil {
		s.fail(c, fmt.Errorf("generating insights for persona %d: %w", p.ID, err))
		return
	}

	s.deps.Metrics.InsightServed(insights.Source)
	ok(c, http.StatusOK, insights)
}

func (s *Server) listQuestions(c *gin.Context) {
	ok(c, http.StatusOK, s.deps.Catalog.Questions)
}

type classifyResponse struct {
	Persona persona.Persona `json:"persona"`
	Score   int             `json:"score"`
}

func (s *Server) classify(c *gin.Context) {
	var answers persona.QuizAnswers
	if err := c.ShouldBindJSON(&answers); err != nil {
		s.fail(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}

	if err := s.deps.Catalog.ValidateAnswers(answers); err != nil {
		s.fail(c, fmt.Errorf("%w: %s", errBadRequest, strings.ReplaceAll(err.Error(), "\n", "; ")))
		return
	}

	best, score, found := s.deps.Catalog.Classify(answers)
	if !found {
		s.fail(c, fmt.Errorf("persona catalog is empty"))
		return
	}

	s.deps.Metrics.Classified(best.Name)
	ok(c, http.StatusOK, classifyResponse{Persona: best, Score: score})
}

func (s *Server) survey(c *gin.Context) {
	ok(c, http.StatusOK, s.deps.Catalog.Survey)
}

func (s *Server) saveBuddy(c *gin.Context) {
	var req matchmaker.SaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}

	profile, err := s.deps.Buddies.Save(c.Request.Context(), req)
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, http.StatusCreated, profile)
}

func (s *Server) browseBuddies(c *gin.Context) {
	filter := matchmaker.BrowseFilter{
		City:         c.Query("city"),
		ExcludeToken: accessToken(c),
	}

	if raw := strings.TrimSpace(c.Query("persona_id")); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil || id < 0 {
			s.fail(c, fmt.Errorf("%w: persona_id must be a non-negative integer", errBadRequest))
			return
		}
		filter.PersonaID = &id
	}

	profiles, err := s.deps.Buddies.Browse(c.Request.Context(), filter)
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, http.StatusOK, profiles)
}

func (s *Server) getBuddy(c *gin.Context) {
	profile, err := s.deps.Buddies.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, http.StatusOK, profile)
}

func (s *Server) revealContact(c *gin.Context) {
	contact, err := s.deps.Buddies.RevealContact(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, http.StatusOK, contact)
}

func (s *Server) myBuddy(c *gin.Context) {
	profile, err := s.deps.Buddies.Mine(c.Request.Context(), accessToken(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, http.StatusOK, profile)
}

func (s *Server) updateBuddy(c *gin.Context) {
	var body map[string]any
	if err := c.ShouldBindJSON(&body); err != nil {
		s.fail(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}

	update, err := decodeUpdate(body)
	if err != nil {
		s.fail(c, err)
		return
	}

	profile, err := s.deps.Buddies.Update(c.Request.Context(), accessToken(c), update)
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, http.StatusOK, profile)
}

// decodeUpdate maps a PATCH body onto the editable fields, rejecting unknown
// keys and mistyped values.
func decodeUpdate(body map[string]any) (matchmaker.ProfileUpdate, error) {
	var update matchmaker.ProfileUpdate
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused: true,
		Result:      &update,
	})
	if err != nil {
		return update, err
	}
	if err := decoder.Decode(body); err != nil {
		return update, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return update, nil
}

func (s *Server) deleteBuddy(c *gin.Context) {
	if err := s.deps.Buddies.Delete(c.Request.Context(), accessToken(c)); err != nil {
		s.fail(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"deleted": true})
}

func (s *Server) buddyMatches(c *gin.Context) {
	limit := 0
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxMatchLimit {
			s.fail(c, fmt.Errorf("%w: limit must be between 1 and %d", errBadRequest, maxMatchLimit))
			return
		}
		limit = n
	}

	matches, err := s.deps.Buddies.Matches(c.Request.Context(), accessToken(c), limit)
	if err != nil {
		s.fail(c, err)
		return
	}
	ok(c, http.StatusOK, matches)
}

func (s *Server) personaParam(c *gin.Context) (persona.Persona, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return persona.Persona{}, fmt.Errorf("%w: persona id must be an integer", errBadRequest)
	}
	return s.deps.Catalog.Persona(id)
}
