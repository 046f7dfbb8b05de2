package cron

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	robfig "github.com/robfig/cron/v3"
)

// Job is a scheduled task run by the cron worker.
type Job interface {
	Name() string
	// Schedule is a standard five-field cron expression.
	Schedule() string
	Run(ctx context.Context) error
}

type entry struct {
	job      Job
	schedule robfig.Schedule
}

// Registry holds uniquely named jobs with their parsed schedules, in
// registration order.
type Registry struct {
	entries []entry
	index   map[string]int
}

// NewRegistry registers every job, stopping at the first invalid one.
func NewRegistry(jobs ...Job) (*Registry, error) {
	registry := &Registry{index: map[string]int{}}
	for _, job := range jobs {
		if err := registry.Register(job); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// Register parses the job schedule and adds it under its name.
func (r *Registry) Register(job Job) error {
	if job == nil {
		return errors.New("nil job")
	}
	name := strings.TrimSpace(job.Name())
	if name == "" {
		return errors.New("job name required")
	}
	if r.index == nil {
		r.index = map[string]int{}
	}
	if _, dup := r.index[name]; dup {
		return fmt.Errorf("job %s registered twice", name)
	}
	schedule, err := robfig.ParseStandard(job.Schedule())
	if err != nil {
		return fmt.Errorf("job %s: invalid schedule %q: %w", name, job.Schedule(), err)
	}
	r.index[name] = len(r.entries)
	r.entries = append(r.entries, entry{job: job, schedule: schedule})
	return nil
}

// Jobs returns the registered jobs in the order they were added.
func (r *Registry) Jobs() []Job {
	jobs := make([]Job, 0, len(r.entries))
	for _, e := range r.entries {
		jobs = append(jobs, e.job)
	}
	return jobs
}

// Lookup returns the job registered under name.
func (r *Registry) Lookup(name string) (Job, bool) {
	i, ok := r.index[name]
	if !ok {
		return nil, false
	}
	return r.entries[i].job, true
}

// NextRun reports when the named job fires after from.
func (r *Registry) NextRun(name string, from time.Time) (time.Time, bool) {
	i, ok := r.index[name]
	if !ok {
		return time.Time{}, false
	}
	return r.entries[i].schedule.Next(from), true
}
