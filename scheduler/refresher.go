// Package scheduler refreshes cached providers on cron schedules: singletons
// are reset so the next resolution builds a fresh value, and initialized
// resources are shut down and initialized again.
//
//	r := scheduler.New()
//	if _, err := r.Every("*/5 * * * *", tokenSingleton, poolResource); err != nil {
//		return err
//	}
//	r.Start()
//	defer r.Stop(ctx)
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/GoCodeAlone/injector"
	"github.com/robfig/cron/v3"
)

// Refresher runs provider refreshes on cron schedules.
type Refresher struct {
	cron   *cron.Cron
	logger injector.Logger

	mu      sync.Mutex
	entries map[cron.EntryID][]injector.Provider
	started bool
}

// Option configures a Refresher.
type Option func(*refresherConfig)

type refresherConfig struct {
	logger   injector.Logger
	cronOpts []cron.Option
}

// WithLogger sets the refresher logger.
func WithLogger(logger injector.Logger) Option {
	return func(c *refresherConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithSeconds accepts schedules with a leading seconds field.
func WithSeconds() Option {
	return func(c *refresherConfig) {
		c.cronOpts = append(c.cronOpts, cron.WithSeconds())
	}
}

// New returns a stopped Refresher.
func New(opts ...Option) *Refresher {
	cfg := &refresherConfig{logger: injector.DefaultLogger()}
	for _, opt := range opts {
		opt(cfg)
	}
	return &Refresher{
		cron:    cron.New(cfg.cronOpts...),
		logger:  cfg.logger,
		entries: make(map[cron.EntryID][]injector.Provider),
	}
}

// Every schedules a refresh of targets. Targets must be singletons or
// resources.
func (r *Refresher) Every(spec string, targets ...injector.Provider) (cron.EntryID, error) {
	if len(targets) == 0 {
		return 0, ErrNoTargets
	}
	for _, t := range targets {
		if !refreshable(t) {
			return 0, fmt.Errorf("%w: %s (%s)", ErrUnsupportedTarget, injector.FullName(t), t.Kind())
		}
	}
	targets = append([]injector.Provider(nil), targets...)
	id, err := r.cron.AddFunc(spec, func() {
		if err := r.Refresh(context.Background(), targets...); err != nil {
			r.logger.Error("Scheduled refresh failed", "schedule", spec, "error", err)
		}
	})
	if err != nil {
		return 0, fmt.Errorf("%w %q: %w", ErrInvalidSchedule, spec, err)
	}
	r.mu.Lock()
	r.entries[id] = targets
	r.mu.Unlock()
	r.logger.Debug("Refresh scheduled", "schedule", spec, "targets", len(targets))
	return id, nil
}

// Remove cancels a scheduled refresh.
func (r *Refresher) Remove(id cron.EntryID) {
	r.cron.Remove(id)
	r.mu.Lock()
	delete(r.entries, id)
	r.mu.Unlock()
}

// Scheduled returns the number of scheduled refreshes.
func (r *Refresher) Scheduled() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func refreshable(p injector.Provider) bool {
	switch p.(type) {
	case *injector.Resource, injector.Resetter:
		return true
	}
	return false
}

// Refresh refreshes targets now. Uninitialized resources are left alone.
func (r *Refresher) Refresh(ctx context.Context, targets ...injector.Provider) error {
	var errs []error
	for _, t := range targets {
		switch p := t.(type) {
		case *injector.Resource:
			if !p.Initialized() {
				continue
			}
			if err := p.Shutdown(ctx); err != nil {
				errs = append(errs, err)
				continue
			}
			if _, err := p.Init(ctx); err != nil {
				errs = append(errs, err)
			}
		case *injector.ThreadLocalSingleton:
			p.ResetAll()
		case injector.Resetter:
			p.Reset(ctx)
		default:
			errs = append(errs, fmt.Errorf("%w: %s", ErrUnsupportedTarget, injector.FullName(t)))
		}
	}
	return errors.Join(errs...)
}

// Start starts running scheduled refreshes.
func (r *Refresher) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return
	}
	r.started = true
	r.cron.Start()
	r.logger.Info("Refresher started")
}

// Stop stops scheduling and waits for running refreshes or for ctx.
func (r *Refresher) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.started {
		r.mu.Unlock()
		return nil
	}
	r.started = false
	r.mu.Unlock()

	done := r.cron.Stop()
	select {
	case <-done.Done():
		r.logger.Info("Refresher stopped")
		return nil
	case <-ctx.Done():
		r.logger.Warn("Refresher shutdown timed out")
		return ErrStopTimeout
	}
}
