package keywords

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Reloader refreshes a keyword table.
type Reloader interface {
	Reload(ctx context.Context) (int, error)
}

// Scheduler reloads a table on a cron schedule. Expressions use the standard
// five fields or descriptors such as "@every 15m" and "@hourly".
type Scheduler struct {
	cron *cron.Cron
}

// NewScheduler registers a reload of table at expr. Each run gets timeout to
// finish; a failed run is logged and the previous table stays in place.
func NewScheduler(expr string, table Reloader, timeout time.Duration, logger *zap.Logger) (*Scheduler, error) {
	if table == nil {
		return nil, fmt.Errorf("table is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = time.Minute
	}
	c := cron.New()
	_, err := c.AddFunc(expr, func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		n, err := table.Reload(ctx)
		if err != nil {
			logger.Warn("scheduled keyword reload failed", zap.Error(err))
			return
		}
		logger.Debug("scheduled keyword reload done", zap.Int("entries", n))
	})
	if err != nil {
		return nil, fmt.Errorf("invalid reload schedule %q: %w", expr, err)
	}
	return &Scheduler{cron: c}, nil
}

// Start runs the schedule in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the schedule and waits up to ctx for a running reload.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}
