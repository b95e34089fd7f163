package injector

import (
	"fmt"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/google/uuid"
)

// CloudEvent is an alias for the CloudEvents Event type.
type CloudEvent = cloudevents.Event

// EventSourcePrefix starts the source of every container event. The
// container path follows it, as in "injector/App.services".
const EventSourcePrefix = "injector/"

// pathExtension carries the emitting container path on each event.
const pathExtension = "injectorpath"

// NewEvent builds a container event of eventType emitted by the container
// at path, with data encoded as JSON. Ids are UUIDv7, so they sort by
// emission time.
func NewEvent(path, eventType string, data any) (CloudEvent, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return CloudEvent{}, fmt.Errorf("%w: event id: %w", ErrInvalidEvent, err)
	}
	event := cloudevents.NewEvent(cloudevents.VersionV1)
	event.SetID(id.String())
	event.SetSource(EventSourcePrefix + path)
	event.SetType(eventType)
	event.SetTime(time.Now())
	event.SetExtension(pathExtension, path)
	if data != nil {
		if err := event.SetData(cloudevents.ApplicationJSON, data); err != nil {
			return CloudEvent{}, fmt.Errorf("%w: %s payload: %w", ErrInvalidEvent, eventType, err)
		}
	}
	return event, nil
}

// EventPath returns the path of the container that emitted event, or ""
// for events not built by NewEvent.
func EventPath(event CloudEvent) string {
	path, _ := event.Extensions()[pathExtension].(string)
	return path
}

func validateEvent(event CloudEvent) error {
	if err := event.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidEvent, err)
	}
	return nil
}

// ResourceEventData is the payload of resource lifecycle events.
type ResourceEventData struct {
	Resource string `json:"resource"`
	Async    bool   `json:"async,omitempty"`
	Error    string `json:"error,omitempty"`
}

// DependenciesEventData is the payload of EventTypeDependenciesUnresolved.
type DependenciesEventData struct {
	Unresolved []string `json:"unresolved"`
}

// OverrideEventData is the payload of EventTypeContainerOverridden.
type OverrideEventData struct {
	Container string   `json:"container"`
	With      string   `json:"with"`
	Providers []string `json:"providers"`
}
