package matchmaker

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// RunJanitor purges expired profiles once immediately and then on every tick
// until ctx is cancelled. Purge failures are logged and retried on the next tick.
func (s *Service) RunJanitor(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("janitor interval must be positive, got %s", interval)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("janitor started", zap.Duration("interval", interval))

	for {
		if _, err := s.PurgeExpired(ctx); err != nil && ctx.Err() == nil {
			s.logger.Warn("janitor purge failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			s.logger.Info("janitor stopped")
			return nil
		case <-ticker.C:
		}
	}
}
