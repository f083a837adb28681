package scheduler

import (
	"context"
	"time"

	"daily-riddle-bot/internal/domain"
	"go.uber.org/zap"
)

// Job is a scheduled unit of work. Errors are logged and the schedule continues.
type Job func(ctx context.Context) error

// Daily runs job once per day at a fixed UTC time of day until ctx is done.
type Daily struct {
	Name string
	At   domain.TimeOfDay
	Job  Job

	log   *zap.Logger
	now   func() time.Time
	after func(time.Duration) <-chan time.Time
}

func NewDaily(name string, at domain.TimeOfDay, job Job, logger *zap.Logger) *Daily {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Daily{
		Name:  name,
		At:    at,
		Job:   job,
		log:   logger.Named("scheduler").With(zap.String("job", name)),
		now:   time.Now,
		after: time.After,
	}
}

// Run blocks until ctx is canceled.
func (d *Daily) Run(ctx context.Context) {
	for {
		next := d.At.Next(d.now())
		delay := next.Sub(d.now())
		d.log.Info("scheduling job", zap.Time("next", next), zap.Duration("delay", delay.Round(time.Second)))

		select {
		case <-ctx.Done():
			return
		case <-d.after(delay):
		}
		d.runOnce(ctx)
	}
}

func (d *Daily) runOnce(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("job panicked", zap.Any("panic", r))
		}
	}()
	start := d.now()
	if err := d.Job(ctx); err != nil {
		d.log.Warn("job failed, skipping until next run", zap.Error(err))
		return
	}
	d.log.Info("job complete", zap.Duration("took", d.now().Sub(start)))
}
