// Package scheduler runs cron-driven background jobs. A job never overlaps
// with itself: a tick or manual trigger that finds it running is skipped.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/adhocore/gronx"

	apperrors "github.com/utafrali/EcommerceGo/pkg/errors"
	"github.com/utafrali/EcommerceGo/services/wishlist/internal/metrics"
)

// JobFunc is the body of a scheduled job.
type JobFunc func(ctx context.Context) error

// ErrJobRunning is returned by Trigger when the job is already in progress.
var ErrJobRunning = errors.New("job is already running")

type job struct {
	name     string
	schedule string
	fn       JobFunc
	running  atomic.Bool
}

// Scheduler owns a set of named cron jobs.
type Scheduler struct {
	mu     sync.Mutex
	jobs   map[string]*job
	order  []string
	logger *slog.Logger
	now    func() time.Time
	wg     sync.WaitGroup
}

// New creates an empty scheduler.
func New(logger *slog.Logger) *Scheduler {
	return &Scheduler{
		jobs:   make(map[string]*job),
		logger: logger,
		now:    time.Now,
	}
}

// Register adds a job. An empty schedule registers a trigger-only job.
func (s *Scheduler) Register(name, schedule string, fn JobFunc) error {
	if schedule != "" && !gronx.New().IsValid(schedule) {
		return fmt.Errorf("job %s: invalid cron expression %q", name, schedule)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[name]; ok {
		return fmt.Errorf("job %s already registered", name)
	}
	s.jobs[name] = &job{name: name, schedule: schedule, fn: fn}
	s.order = append(s.order, name)
	return nil
}

// Start launches one loop per scheduled job. Loops stop when ctx is done.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, name := range s.order {
		j := s.jobs[name]
		if j.schedule == "" {
			continue
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.loop(ctx, j)
		}()
		s.logger.Info("scheduled job registered",
			slog.String("job", j.name),
			slog.String("schedule", j.schedule),
		)
	}
}

// Wait blocks until every loop started by Start has returned.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// Trigger runs the named job now and waits for it. It fails with a
// Conflict error when the job is already running.
func (s *Scheduler) Trigger(ctx context.Context, name string) error {
	s.mu.Lock()
	j, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return apperrors.NotFound("job", name)
	}
	if !s.run(ctx, j, "manual") {
		return apperrors.Conflict(fmt.Sprintf("%s: %s", name, ErrJobRunning))
	}
	return nil
}

func (s *Scheduler) loop(ctx context.Context, j *job) {
	for {
		next, err := gronx.NextTickAfter(j.schedule, s.now(), false)
		if err != nil {
			s.logger.Error("failed to compute next tick",
				slog.String("job", j.name),
				slog.String("error", err.Error()),
			)
			return
		}

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		if !s.run(ctx, j, "cron") {
			s.logger.Warn("skipping tick, previous run still in progress", slog.String("job", j.name))
			metrics.JobRuns.WithLabelValues(j.name, "skipped").Inc()
		}
	}
}

// run executes j unless it is already running and reports whether it ran.
func (s *Scheduler) run(ctx context.Context, j *job, trigger string) bool {
	if !j.running.CompareAndSwap(false, true) {
		return false
	}
	defer j.running.Store(false)

	start := time.Now()
	err := j.fn(ctx)
	elapsed := time.Since(start)
	metrics.JobDuration.WithLabelValues(j.name).Observe(elapsed.Seconds())

	if err != nil {
		metrics.JobRuns.WithLabelValues(j.name, "error").Inc()
		s.logger.Error("job failed",
			slog.String("job", j.name),
			slog.String("trigger", trigger),
			slog.Duration("duration", elapsed),
			slog.String("error", err.Error()),
		)
		return true
	}
	metrics.JobRuns.WithLabelValues(j.name, "success").Inc()
	s.logger.Info("job finished",
		slog.String("job", j.name),
		slog.String("trigger", trigger),
		slog.Duration("duration", elapsed),
	)
	return true
}
