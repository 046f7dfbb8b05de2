package cron

import (
	"context"
	"fmt"

	"github.com/angelmondragon/hatchery-backend/internal/cleanup"
)

const (
	FullSweepJob  = "notification-sweep"
	StorySweepJob = "story-sweep"
)

type sweeper interface {
	Run(ctx context.Context, scope cleanup.Scope) (*cleanup.Result, error)
}

type sweepJob struct {
	name     string
	schedule string
	scope    cleanup.Scope
	sweeper  sweeper
}

// NewSweepJob schedules one retention sweep scope.
func NewSweepJob(name, schedule string, scope cleanup.Scope, s sweeper) (Job, error) {
	if s == nil {
		return nil, fmt.Errorf("sweeper required")
	}
	if schedule == "" {
		return nil, fmt.Errorf("schedule required for %s", name)
	}
	return &sweepJob{name: name, schedule: schedule, scope: scope, sweeper: s}, nil
}

func (j *sweepJob) Name() string     { return j.name }
func (j *sweepJob) Schedule() string { return j.schedule }

func (j *sweepJob) Run(ctx context.Context) error {
	if _, err := j.sweeper.Run(ctx, j.scope); err != nil {
		if cleanup.IsInProgress(err) {
			return fmt.Errorf("%w: %s sweep already running", ErrSkipped, j.scope)
		}
		return fmt.Errorf("%s sweep: %w", j.scope, err)
	}
	return nil
}
