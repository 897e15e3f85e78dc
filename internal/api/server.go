package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/spigell/music-dna/internal/ai"
	"github.com/spigell/music-dna/internal/buddy"
	"github.com/spigell/music-dna/internal/matchmaker"
	"github.com/spigell/music-dna/internal/metrics"
	"github.com/spigell/music-dna/internal/persona"
)

const shutdownTimeout = 10 * time.Second

// BuddyService is the matchmaking backend behind the /api/buddies routes.
type BuddyService interface {
	Save(ctx context.Context, req matchmaker.SaveRequest) (*buddy.Profile, error)
	Browse(ctx context.Context, f matchmaker.BrowseFilter) ([]*buddy.Profile, error)
	Get(ctx context.Context, id string) (*buddy.Profile, error)
	Mine(ctx context.Context, token string) (*buddy.Profile, error)
	RevealContact(ctx context.Context, id string) (buddy.Contact, error)
	Update(ctx context.Context, token string, u matchmaker.ProfileUpdate) (*buddy.Profile, error)
	Delete(ctx context.Context, token string) error
	Matches(ctx context.Context, token string, limit int) ([]buddy.Match, error)
}

// Config describes the HTTP listener.
type Config struct {
	Addr         string
	CORSOrigins  []string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Debug        bool
}

// Deps are the components the handlers serve.
type Deps struct {
	Catalog  *persona.Catalog
	Buddies  BuddyService
	Insights ai.Provider
	Metrics  *metrics.Recorder
}

type Server struct {
	engine     *gin.Engine
	httpServer *http.Server
	deps       Deps
	logger     *zap.Logger
}

func New(cfg Config, deps Deps, log *zap.Logger) (*Server, error) {
	if deps.Catalog == nil || deps.Buddies == nil || deps.Insights == nil {
		return nil, fmt.Errorf("catalog, buddy service and insights provider are required")
	}
	if log == nil {
		log = zap.NewNop()
	}

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(recoveryMiddleware(log))
	engine.Use(requestMiddleware(log, deps.Metrics))
	engine.Use(cors.New(corsConfig(cfg.CORSOrigins)))

	s := &Server{
		engine: engine,
		httpServer: &http.Server{
			Addr:         cfg.Addr,
			Handler:      engine,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		deps:   deps,
		logger: log,
	}
	s.setupRoutes()

	return s, nil
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	cfg.AllowMethods = []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"}
	cfg.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", accessTokenHeader}
	return cfg
}

func (s *Server) setupRoutes() {
	s.engine.GET("/healthz", s.handleHealth)

	api := s.engine.Group("/api")
	api.Use(jsonMiddleware())

	personas := api.Group("/personas")
	{
		personas.GET("", s.listPersonas)
		personas.GET("/:id", s.getPersona)
		personas.GET("/:id/insights", s.personaInsights)
	}

	quiz := api.Group("/quiz")
	{
		quiz.GET("/questions", s.listQuestions)
		quiz.POST("/classify", s.classify)
	}

	api.GET("/survey", s.survey)

	buddies := api.Group("/buddies")
	{
		buddies.POST("", s.saveBuddy)
		buddies.GET("", s.browseBuddies)
		buddies.GET("/me", s.myBuddy)
		buddies.PATCH("/me", s.updateBuddy)
		buddies.DELETE("/me", s.deleteBuddy)
		buddies.GET("/me/matches", s.buddyMatches)
		buddies.GET("/:id", s.getBuddy)
		buddies.GET("/:id/contact", s.revealContact)
	}

	s.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, Response{Error: "route not found"})
	})
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled and then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("api server listening", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.logger.Info("api server shutting down")
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown api server: %w", err)
	}
	return <-errCh
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, Response{Success: true, Data: gin.H{"status": "ok"}})
}
