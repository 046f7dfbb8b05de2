package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	robfig "github.com/robfig/cron/v3"

	"github.com/angelmondragon/hatchery-backend/pkg/logger"
	"github.com/angelmondragon/hatchery-backend/pkg/metrics"
)

// ErrSkipped marks a run that intentionally did nothing, such as a sweep
// that found another sweep in flight.
var ErrSkipped = errors.New("job skipped")

// ServiceParams configure the cron service.
type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Locks    LockFactory
	Metrics  *metrics.CronJobMetrics
	Location *time.Location
	// RunOnStart names jobs executed once when Run begins, before the schedule.
	RunOnStart []string
}

// Service executes registered cron jobs on their cron schedules.
type Service struct {
	logg       *logger.Logger
	registry   *Registry
	locks      map[string]Lock
	metrics    *metrics.CronJobMetrics
	location   *time.Location
	runOnStart []string
}

// NewService builds a cron service with one lock per registered job.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Locks == nil {
		return nil, fmt.Errorf("lock factory required")
	}
	registry := params.Registry
	if registry == nil {
		registry = &Registry{}
	}
	location := params.Location
	if location == nil {
		location = time.UTC
	}

	locks := make(map[string]Lock, len(registry.Jobs()))
	for _, job := range registry.Jobs() {
		lock, err := params.Locks(job.Name())
		if err != nil {
			return nil, fmt.Errorf("job %s lock: %w", job.Name(), err)
		}
		locks[job.Name()] = lock
	}
	for _, name := range params.RunOnStart {
		if _, ok := registry.Lookup(name); !ok {
			return nil, fmt.Errorf("run-on-start job %q is not registered", name)
		}
	}

	return &Service{
		logg:       params.Logger,
		registry:   registry,
		locks:      locks,
		metrics:    params.Metrics,
		location:   location,
		runOnStart: params.RunOnStart,
	}, nil
}

// Run schedules every job and blocks until the context is canceled. In-flight
// jobs finish before Run returns.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	for _, name := range s.runOnStart {
		if job, ok := s.registry.Lookup(name); ok {
			_ = s.runJob(ctx, job)
		}
	}

	adapter := cronLogger{ctx: ctx, logg: s.logg}
	scheduler := robfig.New(
		robfig.WithLocation(s.location),
		robfig.WithChain(robfig.Recover(adapter), robfig.SkipIfStillRunning(adapter)),
		robfig.WithLogger(adapter),
	)
	now := time.Now().In(s.location)
	for _, e := range s.registry.entries {
		job := e.job
		scheduler.Schedule(e.schedule, robfig.FuncJob(func() { _ = s.runJob(ctx, job) }))
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"job":      job.Name(),
			"schedule": job.Schedule(),
			"next_run": e.schedule.Next(now).Format(time.RFC3339),
		}), "cron.job_scheduled")
	}

	scheduler.Start()
	<-ctx.Done()
	s.logg.Info(ctx, "cron service context canceled")
	<-scheduler.Stop().Done()
	return ctx.Err()
}

// Trigger runs the named job immediately, honoring its lock.
func (s *Service) Trigger(ctx context.Context, name string) error {
	job, ok := s.registry.Lookup(name)
	if !ok {
		return fmt.Errorf("unknown job %q", name)
	}
	return s.runJob(ctx, job)
}

func (s *Service) runJob(ctx context.Context, job Job) error {
	jobCtx := s.logg.WithField(ctx, "job", job.Name())
	jobCtx = s.logg.WithField(jobCtx, "event", "cron.job")

	lock := s.locks[job.Name()]
	locked, err := lock.Acquire(jobCtx)
	if err != nil {
		s.logg.Error(jobCtx, "lock acquire failed", err)
		s.metrics.Finished(job.Name(), metrics.JobFailed, 0)
		return fmt.Errorf("lock acquire: %w", err)
	}
	if !locked {
		s.logg.Info(jobCtx, "another cron instance holds the lock; skipping")
		s.metrics.Skipped(job.Name())
		return ErrSkipped
	}
	defer func() {
		if relErr := lock.Release(jobCtx); relErr != nil {
			s.logg.Error(jobCtx, "failed to release cron lock", relErr)
		}
	}()

	s.logg.Info(jobCtx, "job start")
	start := time.Now()
	err = job.Run(jobCtx)
	duration := time.Since(start)
	jobCtx = s.logg.WithField(jobCtx, "duration_ms", duration.Milliseconds())
	switch {
	case errors.Is(err, ErrSkipped):
		s.logg.Info(jobCtx, "job skipped")
		s.metrics.Skipped(job.Name())
	case err != nil:
		s.logg.Error(jobCtx, "job failed", err)
		s.metrics.Finished(job.Name(), metrics.JobFailed, duration)
	default:
		s.logg.Info(jobCtx, "job completed")
		s.metrics.Finished(job.Name(), metrics.JobSucceeded, duration)
	}
	return err
}

// cronLogger routes scheduler diagnostics into the structured logger.
type cronLogger struct {
	ctx  context.Context
	logg *logger.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.logg.Debug(c.logg.WithFields(c.ctx, pairs(keysAndValues)), "cron."+msg)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.logg.Error(c.logg.WithFields(c.ctx, pairs(keysAndValues)), "cron."+msg, err)
}

func pairs(keysAndValues []any) map[string]any {
	fields := make(map[string]any, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			key = fmt.Sprint(keysAndValues[i])
		}
		fields[key] = keysAndValues[i+1]
	}
	return fields
}
