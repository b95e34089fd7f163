package injector

import (
	"context"
	"fmt"

	cloudevents "github.com/cloudevents/sdk-go/v2"
)

// Option configures a container.
type Option func(*Container) error

// WithLogger sets the container logger.
func WithLogger(logger Logger) Option {
	return func(c *Container) error {
		if logger == nil {
			return fmt.Errorf("%w: nil logger", ErrInvalidArguments)
		}
		c.logger = logger
		return nil
	}
}

// WithObserver registers an observer for the given event types, or for all
// events when none are given.
func WithObserver(observer Observer, eventTypes ...string) Option {
	return func(c *Container) error {
		return c.RegisterObserver(observer, eventTypes...)
	}
}

// ObserverFunc is a functional observer registered with WithObserverFunc.
type ObserverFunc func(ctx context.Context, event cloudevents.Event) error

// WithObserverFunc registers fn for every event under id.
func WithObserverFunc(id string, fn ObserverFunc) Option {
	return func(c *Container) error {
		return c.RegisterObserver(NewFunctionalObserver(id, fn))
	}
}

// WithProviders registers entries in order.
func WithProviders(entries ...Entry) Option {
	return func(c *Container) error {
		for _, e := range entries {
			if err := c.Set(e.Name, e.Provider); err != nil {
				return err
			}
		}
		return nil
	}
}
