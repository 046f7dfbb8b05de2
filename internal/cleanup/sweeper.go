package cleanup

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	pkgerrors "github.com/angelmondragon/hatchery-backend/pkg/errors"
	"github.com/angelmondragon/hatchery-backend/pkg/logger"
	"github.com/angelmondragon/hatchery-backend/pkg/metrics"
)

// ErrSweepInProgress is returned when a sweep is triggered while another one
// in the same process has not finished.
var ErrSweepInProgress = pkgerrors.New(pkgerrors.CodeConflict, "cleanup already running")

const defaultRetention = 10 * 24 * time.Hour

// Scope selects which categories a sweep deletes.
type Scope string

const (
	ScopeFull    Scope = "full"
	ScopeStories Scope = "stories"
)

func ParseScope(value string) (Scope, error) {
	switch Scope(value) {
	case "", ScopeFull:
		return ScopeFull, nil
	case ScopeStories:
		return ScopeStories, nil
	default:
		return "", pkgerrors.Newf(pkgerrors.CodeValidation, "invalid scope %q", value)
	}
}

// Result summarises one sweep. Duration is in milliseconds.
type Result struct {
	Scope             Scope     `json:"scope"`
	NotificationCount int64     `json:"notificationCount"`
	StoryCount        int64     `json:"storyCount"`
	HelpMessageCount  int64     `json:"helpMessageCount"`
	ConversationCount int64     `json:"conversationCount"`
	TotalDeleted      int64     `json:"totalDeleted"`
	Duration          int64     `json:"duration"`
	DurationText      string    `json:"durationText"`
	StartedAt         time.Time `json:"startedAt"`
}

func (r Result) categories() map[string]int64 {
	return map[string]int64{
		"notifications": r.NotificationCount,
		"stories":       r.StoryCount,
		"help_messages": r.HelpMessageCount,
		"conversations": r.ConversationCount,
	}
}

type SweeperParams struct {
	Store     Store
	Logger    *logger.Logger
	Metrics   *metrics.NotificationMetrics
	Recorder  Recorder
	Retention time.Duration
	Now       func() time.Time
}

// Sweeper enforces retention. One sweep runs at a time per Sweeper.
type Sweeper struct {
	store     Store
	logg      *logger.Logger
	metrics   *metrics.NotificationMetrics
	recorder  Recorder
	retention time.Duration
	now       func() time.Time
	running   atomic.Bool
}

func NewSweeper(params SweeperParams) (*Sweeper, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("cleanup store required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	s := &Sweeper{
		store:     params.Store,
		logg:      params.Logger,
		metrics:   params.Metrics,
		recorder:  params.Recorder,
		retention: params.Retention,
		now:       params.Now,
	}
	if s.retention <= 0 {
		s.retention = defaultRetention
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	if s.recorder == nil {
		s.recorder = NopRecorder{}
	}
	return s, nil
}

// Running reports whether a sweep is in flight.
func (s *Sweeper) Running() bool {
	return s.running.Load()
}

// Run deletes expired rows for the scope. A full sweep runs the four
// categories concurrently and fails if any of them fails.
func (s *Sweeper) Run(ctx context.Context, scope Scope) (*Result, error) {
	if !s.running.CompareAndSwap(false, true) {
		s.logg.Info(s.logg.WithField(ctx, "scope", string(scope)), "sweep.skipped")
		return nil, ErrSweepInProgress
	}
	defer s.running.Store(false)

	started := time.Now()
	now := s.now()
	cutoff := now.Add(-s.retention)
	result := &Result{Scope: scope, StartedAt: now}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"scope":  string(scope),
		"cutoff": cutoff,
	})

	var err error
	switch scope {
	case ScopeStories:
		result.StoryCount, err = s.store.DeleteExpiredStories(ctx, now)
		if err != nil {
			err = fmt.Errorf("expired stories: %w", err)
		}
	case ScopeFull:
		err = s.runFull(ctx, now, cutoff, result)
	default:
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid scope %q", scope)
	}

	elapsed := time.Since(started)
	result.TotalDeleted = result.NotificationCount + result.StoryCount + result.HelpMessageCount + result.ConversationCount
	result.Duration = elapsed.Milliseconds()
	result.DurationText = fmt.Sprintf("%dms", result.Duration)

	if err != nil {
		s.logg.Error(ctx, "sweep.failed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "cleanup failed")
	}

	s.metrics.ObserveSweep(string(scope), elapsed, result.categories())
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"total_deleted": result.TotalDeleted,
		"duration_ms":   result.Duration,
	}), "sweep.complete")

	if recErr := s.recorder.RecordSweep(ctx, *result); recErr != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", recErr.Error()), "sweep.audit_failed")
	}
	return result, nil
}

func (s *Sweeper) runFull(ctx context.Context, now, cutoff time.Time, result *Result) error {
	// Every category runs to completion; failures are combined.
	var (
		group    errgroup.Group
		failures [4]error
	)
	run := func(idx int, label string, dst *int64, fn func() (int64, error)) {
		group.Go(func() error {
			count, err := fn()
			if err != nil {
				failures[idx] = fmt.Errorf("%s: %w", label, err)
				return failures[idx]
			}
			*dst = count
			return nil
		})
	}
	run(0, "old notifications", &result.NotificationCount, func() (int64, error) {
		return s.store.DeleteOldNotifications(ctx, cutoff)
	})
	run(1, "expired stories", &result.StoryCount, func() (int64, error) {
		return s.store.DeleteExpiredStories(ctx, now)
	})
	run(2, "old help messages", &result.HelpMessageCount, func() (int64, error) {
		return s.store.DeleteOldHelpMessages(ctx, cutoff)
	})
	run(3, "old conversations", &result.ConversationCount, func() (int64, error) {
		return s.store.DeleteOldConversations(ctx, cutoff)
	})
	_ = group.Wait()

	return multierr.Combine(failures[:]...)
}

// IsInProgress reports whether err is the overlapping-sweep error.
func IsInProgress(err error) bool {
	return errors.Is(err, ErrSweepInProgress)
}
