package ai

import (
	"context"

	"go.uber.org/zap"

	"github.com/spigell/music-dna/internal/logger"
	"github.com/spigell/music-dna/internal/persona"
)

// FallbackProvider answers from primary and switches to fallback when primary fails.
type FallbackProvider struct {
	primary  Provider
	fallback Provider
	logger   *zap.Logger
}

func NewFallback(primary, fallback Provider, log *zap.Logger) *FallbackProvider {
	if log == nil {
		log = zap.NewNop()
	}
	return &FallbackProvider{primary: primary, fallback: fallback, logger: log}
}

func (f *FallbackProvider) Insights(ctx context.Context, p persona.Persona) (*Insights, error) {
	in, err := f.primary.Insights(ctx, p)
	if err == nil {
		return in, nil
	}
	if ctx.Err() != nil {
		return nil, err
	}

	f.logger.Warn("insights provider failed, using fallback",
		append(logger.PersonaFields(p.ID, p.Name), zap.Error(err))...)

	return f.fallback.Insights(ctx, p)
}
