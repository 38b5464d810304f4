package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/schooldesk/schooldesk/internal/jobs"
)

// Sweeper clears expired clients and reports how many it cleared.
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// SessionSweepJob clears expired sessions of clients that never returned.
type SessionSweepJob struct {
	Sweeper Sweeper
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewSessionSweepJob wires dependencies for the sweep handler.
func NewSessionSweepJob(sweeper Sweeper, logger *slog.Logger, metrics *jobmetrics.Metrics) *SessionSweepJob {
	return &SessionSweepJob{Sweeper: sweeper, Logger: logger, Metrics: metrics}
}

// Handle processes session sweep tasks.
func (j *SessionSweepJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Sweeper == nil {
		return errors.New("session sweep: handler not configured")
	}
	var payload SessionSweepPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}

	tracker := j.Metrics.Track(TaskSessionSweep)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger()
	if !payload.RequestedAt.IsZero() {
		logger = logger.With(slog.Time("requested_at", payload.RequestedAt))
	}
	start := time.Now()
	cleared, err := j.Sweeper.Sweep(ctx)
	j.Metrics.AddSwept(cleared)
	if err != nil {
		logger.Error("session sweep", slog.Int("cleared", cleared), slog.Any("error", err))
		return err
	}
	logger.Info("session sweep finished", slog.Int("cleared", cleared), slog.Duration("took", time.Since(start)))
	return nil
}

func (j *SessionSweepJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
