package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// TaskBookingSweep triggers cancellation of stale pending bookings.
const TaskBookingSweep = "booking:sweep"

// BookingSweepPayload carries scheduling metadata.
type BookingSweepPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewBookingSweepTask constructs an Asynq task for the booking sweep.
func NewBookingSweepTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(BookingSweepPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskBookingSweep, body, asynq.Queue(QueueDefault)), nil
}

// StaleSweeper cancels pending bookings whose start date passed.
type StaleSweeper interface {
	SweepStale(ctx context.Context, now time.Time) (int, error)
}

// ReportInvalidator drops cached reports after the sweep changed data.
type ReportInvalidator interface {
	Invalidate(ctx context.Context) error
}

// BookingSweepJob frees rooms held by reservations nobody confirmed.
type BookingSweepJob struct {
	Bookings StaleSweeper
	Reports  ReportInvalidator
	Logger   *slog.Logger
	clock    func() time.Time
}

// NewBookingSweepJob wires dependencies for the sweep handler.
func NewBookingSweepJob(bookings StaleSweeper, rep ReportInvalidator, logger *slog.Logger) *BookingSweepJob {
	return &BookingSweepJob{
		Bookings: bookings,
		Reports:  rep,
		Logger:   logger,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes booking sweep tasks.
func (j *BookingSweepJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Bookings == nil {
		return errors.New("booking sweep: handler not configured")
	}
	var payload BookingSweepPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	n, err := j.Bookings.SweepStale(ctx, j.clock())
	if err != nil {
		j.Logger.Error("booking sweep", slog.Any("error", err))
		return err
	}
	if n == 0 {
		j.Logger.Info("booking sweep clean")
		return nil
	}
	j.Logger.Info("cancelled stale bookings", slog.Int("count", n))
	if j.Reports != nil {
		if err := j.Reports.Invalidate(ctx); err != nil {
			j.Logger.Warn("invalidate report cache", slog.Any("error", err))
		}
	}
	return nil
}
