package injector

import (
	"context"
	"sort"
	"sync"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
)

// Observer is notified of container events. Events use the CloudEvents
// specification.
type Observer interface {
	// OnEvent is called for every event the observer subscribed to.
	// Observers should return quickly; delivery is asynchronous unless the
	// context asks for synchronous notification.
	OnEvent(ctx context.Context, event cloudevents.Event) error

	// ObserverID returns a unique identifier for this observer.
	ObserverID() string
}

// ObserverInfo describes a registered observer.
type ObserverInfo struct {
	ID           string    `json:"id"`
	EventTypes   []string  `json:"eventTypes"`
	RegisteredAt time.Time `json:"registeredAt"`
}

// Event types emitted by containers.
const (
	// Resource lifecycle events
	EventTypeResourceInitialized = "com.injector.resource.initialized"
	EventTypeResourceShutdown    = "com.injector.resource.shutdown"
	EventTypeResourceFailed      = "com.injector.resource.failed"

	// Container events
	EventTypeContainerOverridden    = "com.injector.container.overridden"
	EventTypeDependenciesUnresolved = "com.injector.dependencies.unresolved"
)

// FunctionalObserver adapts a function to the Observer interface.
type FunctionalObserver struct {
	id      string
	handler func(ctx context.Context, event cloudevents.Event) error
}

// NewFunctionalObserver returns an observer calling handler.
func NewFunctionalObserver(id string, handler func(ctx context.Context, event cloudevents.Event) error) Observer {
	return &FunctionalObserver{id: id, handler: handler}
}

func (f *FunctionalObserver) OnEvent(ctx context.Context, event cloudevents.Event) error {
	return f.handler(ctx, event)
}

func (f *FunctionalObserver) ObserverID() string {
	return f.id
}

type syncNotifyCtxKey struct{}

// WithSynchronousNotification marks ctx to deliver events inline instead of
// on new goroutines. Tests use it to observe events deterministically.
func WithSynchronousNotification(ctx context.Context) context.Context {
	return context.WithValue(ctx, syncNotifyCtxKey{}, true)
}

// IsSynchronousNotification reports whether ctx requests inline delivery.
func IsSynchronousNotification(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	v, _ := ctx.Value(syncNotifyCtxKey{}).(bool)
	return v
}

type observerRegistration struct {
	observer     Observer
	eventTypes   map[string]bool
	registeredAt time.Time
}

// observers is the observer registry of a container.
type observers struct {
	mu   sync.RWMutex
	regs map[string]*observerRegistration
}

func (o *observers) register(observer Observer, eventTypes []string) {
	types := make(map[string]bool, len(eventTypes))
	for _, t := range eventTypes {
		types[t] = true
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.regs == nil {
		o.regs = make(map[string]*observerRegistration)
	}
	o.regs[observer.ObserverID()] = &observerRegistration{
		observer:     observer,
		eventTypes:   types,
		registeredAt: time.Now(),
	}
}

func (o *observers) unregister(id string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.regs[id]; !ok {
		return false
	}
	delete(o.regs, id)
	return true
}

func (o *observers) info() []ObserverInfo {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]ObserverInfo, 0, len(o.regs))
	for id, reg := range o.regs {
		types := make([]string, 0, len(reg.eventTypes))
		for t := range reg.eventTypes {
			types = append(types, t)
		}
		sort.Strings(types)
		out = append(out, ObserverInfo{ID: id, EventTypes: types, RegisteredAt: reg.registeredAt})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RegisteredAt.Before(out[j].RegisteredAt) })
	return out
}

func (o *observers) interested(eventType string) []Observer {
	o.mu.RLock()
	defer o.mu.RUnlock()
	var out []Observer
	for _, reg := range o.regs {
		if len(reg.eventTypes) > 0 && !reg.eventTypes[eventType] {
			continue
		}
		out = append(out, reg.observer)
	}
	return out
}

// notify delivers event to the interested observers. Observer errors and
// panics are logged, never returned.
func (o *observers) notify(ctx context.Context, logger Logger, event cloudevents.Event) error {
	if event.Time().IsZero() {
		event.SetTime(time.Now())
	}
	if err := validateEvent(event); err != nil {
		logger.Error("Invalid CloudEvent", "eventType", event.Type(), "error", err)
		return err
	}
	deliver := func(obs Observer) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("Observer panicked", "observerID", obs.ObserverID(), "event", event.Type(), "panic", r)
			}
		}()
		if err := obs.OnEvent(ctx, event); err != nil {
			logger.Error("Observer error", "observerID", obs.ObserverID(), "event", event.Type(), "error", err)
		}
	}
	for _, obs := range o.interested(event.Type()) {
		if IsSynchronousNotification(ctx) {
			deliver(obs)
			continue
		}
		go deliver(obs)
	}
	return nil
}
