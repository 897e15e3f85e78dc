package matchmaker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spigell/music-dna/internal/buddy"
	"github.com/spigell/music-dna/internal/filtering"
	"github.com/spigell/music-dna/internal/logger"
	"github.com/spigell/music-dna/internal/metrics"
	"github.com/spigell/music-dna/internal/persona"
	"github.com/spigell/music-dna/internal/storage"
)

const (
	DefaultPoolSize = 20

	maxNicknameLen = 50
	maxCityLen     = 100
	maxContactLen  = 200
)

// Store is the persistence the service needs for buddy profiles.
type Store interface {
	Insert(ctx context.Context, p *buddy.Profile) error
	FindByID(ctx context.Context, id string) (*buddy.Profile, error)
	FindByToken(ctx context.Context, token string) (*buddy.Profile, error)
	List(ctx context.Context, q storage.Query) (*buddy.Profiles, error)
	UpdateByToken(ctx context.Context, token string, p *buddy.Profile) error
	DeleteByToken(ctx context.Context, token string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// Config tunes the matchmaking service.
type Config struct {
	Retention    time.Duration
	PoolSize     int
	DefaultLimit int
	// Now overrides the clock, mostly for tests.
	Now func() time.Time
}

// Service manages saved buddy profiles and suggests matches between them.
type Service struct {
	store   Store
	catalog *persona.Catalog
	cfg     Config
	logger  *zap.Logger
	metrics *metrics.Recorder
}

func New(store Store, catalog *persona.Catalog, cfg Config, log *zap.Logger, recorder *metrics.Recorder) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("persona catalog is required")
	}
	if log == nil {
		log = zap.NewNop()
	}

	if cfg.Retention <= 0 {
		cfg.Retention = buddy.Retention
	}
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = DefaultPoolSize
	}
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = buddy.DefaultMatchLimit
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Service{
		store:   store,
		catalog: catalog,
		cfg:     cfg,
		logger:  log,
		metrics: recorder,
	}, nil
}

// SaveRequest carries what a quiz taker shares when saving a buddy profile.
type SaveRequest struct {
	PersonaID            int    `json:"persona_id"`
	Nickname             string `json:"nickname"`
	City                 string `json:"city"`
	Email                string `json:"email"`
	LinkedInURL          string `json:"linkedin_url"`
	IsDiscoverable       bool   `json:"is_discoverable"`
	ShowContactsPublicly bool   `json:"show_contacts_publicly"`
}

// Save stores a new profile for the given persona and returns it with its access token.
func (s *Service) Save(ctx context.Context, req SaveRequest) (*buddy.Profile, error) {
	p, err := s.catalog.Persona(req.PersonaID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	profile := &buddy.Profile{
		ID:                   buddy.NewProfileID(),
		PersonaID:            p.ID,
		PersonaName:          p.Name,
		Traits:               append([]string{}, p.Traits...),
		VibeTags:             buddy.ExtractVibeTags(p),
		Nickname:             strings.TrimSpace(req.Nickname),
		City:                 strings.TrimSpace(req.City),
		Email:                strings.TrimSpace(req.Email),
		LinkedInURL:          strings.TrimSpace(req.LinkedInURL),
		IsDiscoverable:       req.IsDiscoverable,
		ShowContactsPublicly: req.ShowContactsPublicly,
		AccessToken:          buddy.NewAccessToken(now),
		CreatedAt:            now,
		ExpiresAt:            now.Add(s.cfg.Retention),
	}

	if err := validateProfile(profile); err != nil {
		return nil, err
	}

	if err := s.store.Insert(ctx, profile); err != nil {
		return nil, fmt.Errorf("saving profile: %w", err)
	}

	s.metrics.ProfileSaved()
	s.logger.Info("buddy profile saved",
		append(logger.ProfileFields(profile.ID, profile.PersonaID), logger.TokenField(profile.AccessToken))...)

	return profile, nil
}

// BrowseFilter narrows the candidate pool. ExcludeToken removes the caller's own profile.
type BrowseFilter struct {
	PersonaID    *int
	City         string
	ExcludeToken string
}

// Browse returns the public view of up to the pool size of the newest
// discoverable, unexpired profiles.
func (s *Service) Browse(ctx context.Context, f BrowseFilter) ([]*buddy.Profile, error) {
	pool, err := s.pool(ctx, f)
	if err != nil {
		return nil, err
	}

	out := make([]*buddy.Profile, 0, pool.Len())
	for _, p := range pool.Items {
		out = append(out, p.Public())
	}
	return out, nil
}

func (s *Service) pool(ctx context.Context, f BrowseFilter) (*buddy.Profiles, error) {
	city := strings.TrimSpace(f.City)
	now := s.now()

	fetched, err := s.store.List(ctx, storage.Query{
		Now:       now,
		PersonaID: f.PersonaID,
		City:      city,
		Limit:     s.cfg.PoolSize,
	})
	if err != nil {
		return nil, fmt.Errorf("browsing profiles: %w", err)
	}

	pipeline := filtering.New([]filtering.Filter{
		filtering.NewDiscoverable(),
		filtering.NewNotExpired(func() time.Time { return now }),
		filtering.NewExcludeSelf(f.ExcludeToken),
		filtering.NewPersonaType(f.PersonaID),
		filtering.NewCity(city),
	}, s.logger)

	return pipeline.RunFilters(ctx, fetched)
}

// Get returns the public view of a profile.
func (s *Service) Get(ctx context.Context, id string) (*buddy.Profile, error) {
	p, err := s.lookup(ctx, s.store.FindByID, strings.TrimSpace(id))
	if err != nil {
		return nil, err
	}
	return p.Public(), nil
}

// Mine returns the full profile owned by token.
func (s *Service) Mine(ctx context.Context, token string) (*buddy.Profile, error) {
	token, err := checkToken(token)
	if err != nil {
		return nil, err
	}
	return s.lookup(ctx, s.store.FindByToken, token)
}

// RevealContact returns the contact details of a profile whose owner shares them publicly.
func (s *Service) RevealContact(ctx context.Context, id string) (buddy.Contact, error) {
	p, err := s.lookup(ctx, s.store.FindByID, strings.TrimSpace(id))
	if err != nil {
		return buddy.Contact{}, err
	}
	if !p.ShowContactsPublicly {
		return buddy.Contact{}, ErrContactsPrivate
	}
	return buddy.Contact{Email: p.Email, LinkedInURL: p.LinkedInURL}, nil
}

// ProfileUpdate lists the owner-editable fields. Nil fields are left unchanged.
type ProfileUpdate struct {
	Nickname             *string `mapstructure:"nickname"`
	City                 *string `mapstructure:"city"`
	Email                *string `mapstructure:"email"`
	LinkedInURL          *string `mapstructure:"linkedin_url"`
	IsDiscoverable       *bool   `mapstructure:"is_discoverable"`
	ShowContactsPublicly *bool   `mapstructure:"show_contacts_publicly"`
}

func (u ProfileUpdate) apply(p *buddy.Profile) {
	setString := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	setString(&p.Nickname, u.Nickname)
	setString(&p.City, u.City)
	setString(&p.Email, u.Email)
	setString(&p.LinkedInURL, u.LinkedInURL)

	if u.IsDiscoverable != nil {
		p.IsDiscoverable = *u.IsDiscoverable
	}
	if u.ShowContactsPublicly != nil {
		p.ShowContactsPublicly = *u.ShowContactsPublicly
	}
}

// Update changes the owner-editable fields of the profile owned by token.
func (s *Service) Update(ctx context.Context, token string, u ProfileUpdate) (*buddy.Profile, error) {
	p, err := s.Mine(ctx, token)
	if err != nil {
		return nil, err
	}

	u.apply(p)
	if err := validateProfile(p); err != nil {
		return nil, err
	}

	if err := s.store.UpdateByToken(ctx, p.AccessToken, p); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("updating profile: %w", err)
	}

	s.logger.Info("buddy profile updated", logger.ProfileFields(p.ID, p.PersonaID)...)
	return p, nil
}

// Delete removes the profile owned by token.
func (s *Service) Delete(ctx context.Context, token string) error {
	token, err := checkToken(token)
	if err != nil {
		return err
	}

	if err := s.store.DeleteByToken(ctx, token); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("deleting profile: %w", err)
	}

	s.metrics.ProfileDeleted()
	s.logger.Info("buddy profile deleted", logger.TokenField(token))
	return nil
}

// Matches ranks the current pool against the profile owned by token.
// A non-positive limit uses the configured default.
func (s *Service) Matches(ctx context.Context, token string, limit int) ([]buddy.Match, error) {
	mine, err := s.Mine(ctx, token)
	if err != nil {
		return nil, err
	}

	pool, err := s.pool(ctx, BrowseFilter{ExcludeToken: mine.AccessToken})
	if err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = s.cfg.DefaultLimit
	}

	matches := buddy.SuggestMatches(mine, pool.Items, limit)

	similarities := make([]int, 0, len(matches))
	for i := range matches {
		matches[i].Profile = matches[i].Profile.Public()
		similarities = append(similarities, matches[i].Similarity)
	}
	s.metrics.MatchesSuggested(similarities...)

	s.logger.Debug("suggested matches",
		append(logger.ProfileFields(mine.ID, mine.PersonaID),
			zap.Int("pool", pool.Len()),
			zap.Int("matches", len(matches)),
		)...)

	return matches, nil
}

// PurgeExpired deletes every profile past its retention window.
func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := s.store.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("purging expired profiles: %w", err)
	}

	s.metrics.ProfilesPurged(n)
	if n > 0 {
		s.logger.Info("expired buddy profiles purged", zap.Int64("count", n))
	}
	return n, nil
}

func (s *Service) lookup(ctx context.Context, find func(context.Context, string) (*buddy.Profile, error), key string) (*buddy.Profile, error) {
	if key == "" {
		return nil, ErrNotFound
	}

	p, err := find(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading profile: %w", err)
	}
	if p.Expired(s.now()) {
		return nil, ErrNotFound
	}
	return p, nil
}

func (s *Service) now() time.Time {
	return s.cfg.Now().UTC().Truncate(time.Millisecond)
}

func checkToken(token string) (string, error) {
	token = strings.TrimSpace(token)
	if !buddy.LooksLikeAccessToken(token) {
		return "", ErrInvalidToken
	}
	return token, nil
}

func validateProfile(p *buddy.Profile) error {
	var problems []string

	if p.Nickname == "" {
		problems = append(problems, "nickname is required")
	}
	if utf8.RuneCountInString(p.Nickname) > maxNicknameLen {
		problems = append(problems, fmt.Sprintf("nickname is longer than %d characters", maxNicknameLen))
	}
	if utf8.RuneCountInString(p.City) > maxCityLen {
		problems = append(problems, fmt.Sprintf("city is longer than %d characters", maxCityLen))
	}
	if p.Email != "" && (!strings.Contains(p.Email, "@") || len(p.Email) > maxContactLen) {
		problems = append(problems, "email is not valid")
	}
	if p.LinkedInURL != "" && (!strings.HasPrefix(p.LinkedInURL, "http") || len(p.LinkedInURL) > maxContactLen) {
		problems = append(problems, "linkedin_url must be an http(s) URL")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidRequest, strings.Join(problems, "; "))
	}
	return nil
}
