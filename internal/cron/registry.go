package cron

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Job is one maintenance task run per cycle.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Registry keeps jobs in registration order and rejects duplicate names.
type Registry struct {
	order []string
	jobs  map[string]Job
}

func NewRegistry(jobs ...Job) (*Registry, error) {
	r := &Registry{jobs: make(map[string]Job)}
	for _, job := range jobs {
		if err := r.Register(job); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) Register(job Job) error {
	if job == nil {
		return fmt.Errorf("nil job")
	}
	name := job.Name()
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("job name is required")
	}
	if _, dup := r.jobs[name]; dup {
		return fmt.Errorf("job %q already registered", name)
	}
	r.jobs[name] = job
	r.order = append(r.order, name)
	return nil
}

// Jobs returns a copy of the registered jobs in registration order.
func (r *Registry) Jobs() []Job {
	out := make([]Job, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.jobs[name])
	}
	return out
}

// Select narrows the registry to the named jobs. An empty list keeps all of
// them; an unknown name is an error so typos in config fail at boot.
func (r *Registry) Select(names []string) (*Registry, error) {
	wanted := make(map[string]bool, len(names))
	for _, name := range names {
		if name = strings.TrimSpace(name); name != "" {
			wanted[name] = true
		}
	}
	if len(wanted) == 0 {
		return r, nil
	}
	var unknown []string
	for name := range wanted {
		if _, ok := r.jobs[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("unknown cron jobs: %s", strings.Join(unknown, ", "))
	}
	selected := &Registry{jobs: make(map[string]Job, len(wanted))}
	for _, name := range r.order {
		if wanted[name] {
			selected.jobs[name] = r.jobs[name]
			selected.order = append(selected.order, name)
		}
	}
	return selected, nil
}
