package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/spigell/music-dna/internal/ai"
	"github.com/spigell/music-dna/internal/ai/gemini"
	"github.com/spigell/music-dna/internal/logger"
	"github.com/spigell/music-dna/internal/matchmaker"
	"github.com/spigell/music-dna/internal/metrics"
	"github.com/spigell/music-dna/internal/persona"
	"github.com/spigell/music-dna/internal/secrets"
	"github.com/spigell/music-dna/internal/storage"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// deps is the wiring shared by the commands.
type deps struct {
	config   *Config
	logger   *zap.Logger
	catalog  *persona.Catalog
	store    *storage.Store
	registry *prometheus.Registry
	metrics  *metrics.Recorder
	buddies  *matchmaker.Service
}

// newDeps builds the logger and loads the config and the catalog.
// Any failure is fatal, same as for every other startup step.
func newDeps() *deps {
	l, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		l.Fatal("getting a config", zap.Error(err))
	}

	if err := config.validate(); err != nil {
		l.Fatal("invalid config", zap.Error(err))
	}

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config.redacted(), "", "  ")
	l.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	catalog, err := persona.Default()
	if err != nil {
		l.Fatal("loading persona catalog", zap.Error(err))
	}

	registry := metrics.NewRegistry()
	recorder, err := metrics.New(registry)
	if err != nil {
		l.Fatal("registering metrics", zap.Error(err))
	}

	return &deps{
		config:   config,
		logger:   l,
		catalog:  catalog,
		registry: registry,
		metrics:  recorder,
	}
}

// openStore opens the profile store and builds the matchmaker on top of it.
func (d *deps) openStore() {
	store, err := storage.Open(d.config.Storage.Path)
	if err != nil {
		d.logger.Fatal("opening storage", zap.Error(err), zap.String("path", d.config.Storage.Path))
	}

	buddies, err := matchmaker.New(store, d.catalog, matchmaker.Config{
		Retention:    d.config.Storage.Retention,
		PoolSize:     d.config.Matching.PoolSize,
		DefaultLimit: d.config.Matching.DefaultLimit,
	}, d.logger.Named("matchmaker"), d.metrics)
	if err != nil {
		_ = store.Close()
		d.logger.Fatal("creating matchmaker", zap.Error(err))
	}

	d.logger.Debug("storage is ready", zap.String("path", store.Path()))

	d.store = store
	d.buddies = buddies
}

func (d *deps) close() {
	if d.store != nil {
		if err := d.store.Close(); err != nil {
			d.logger.Warn("closing storage", zap.Error(err))
		}
	}
	_ = d.logger.Sync()
}

func (c *Config) validate() error {
	if c == nil {
		return errors.New("config is required")
	}
	if c.Server == nil || c.Storage == nil || c.Matching == nil || c.Janitor == nil || c.AI == nil {
		return errors.New("config sections server, storage, matching, janitor and ai are required")
	}
	if strings.TrimSpace(c.Storage.Path) == "" {
		return errors.New("storage.path is required")
	}
	if c.Matching.DefaultLimit < 0 || c.Matching.PoolSize < 0 {
		return errors.New("matching limits must not be negative")
	}
	return nil
}

// redacted returns a copy safe for logging.
func (c *Config) redacted() *Config {
	out := *c
	if c.AI != nil && c.AI.Gemini != nil {
		aiCfg := *c.AI
		g := *c.AI.Gemini
		if g.APIKey != "" {
			g.APIKey = logger.MaskToken(g.APIKey)
		}
		aiCfg.Gemini = &g
		out.AI = &aiCfg
	}
	return &out
}

// newInsights returns the persona insights provider. The static catalog is
// always available; gemini is put in front of it when enabled and a cache in
// front of both.
func newInsights(ctx context.Context, cfg *AIConfig, l *zap.Logger) (ai.Provider, error) {
	static, err := ai.NewStatic()
	if err != nil {
		return nil, fmt.Errorf("loading static insights: %w", err)
	}

	var provider ai.Provider = static

	if cfg != nil && cfg.Enabled {
		name := strings.TrimSpace(strings.ToLower(cfg.Provider))
		switch name {
		case "", ai.SourceStatic:
		case ai.SourceGemini:
			primary, err := newGeminiInsights(ctx, cfg.Gemini, l)
			if err != nil {
				return nil, err
			}
			provider = ai.NewFallback(primary, static, l.Named("insights"))
		default:
			return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
		}
	}

	if cfg == nil {
		return ai.NewCached(provider, 0, 0)
	}

	return ai.NewCached(provider, cfg.CacheSize, cfg.CacheTTL)
}

func newGeminiInsights(ctx context.Context, cfg *GeminiConfig, l *zap.Logger) (ai.Provider, error) {
	if cfg == nil {
		return nil, errors.New("gemini configuration is required when ai provider is gemini")
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		File:  cfg.APIKeyFile,
		Value: cfg.APIKey,
		Env:   "GEMINI_API_KEY",
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.gemini.api-key-file, GEMINI_API_KEY_FILE or GEMINI_API_KEY)", err)
	}

	genLogger := l.With(zap.Int("ai_retry_attempts", cfg.MaxRetries))

	generator, err := gemini.NewGenerator(ctx, apiKey, cfg.Model, cfg.MaxRetries, genLogger)
	if err != nil {
		return nil, err
	}

	provider := gemini.NewInsightsProvider(generator, l, cfg.MaxLogLength)
	provider.SetPromptOverrides(gemini.PromptOverrides{
		Tone:             cfg.Tone,
		Region:           cfg.Region,
		UserInstructions: cfg.Instructions,
	})

	return provider, nil
}
