package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types emitted by the experiment service.
const (
	TypeExperimentCreated   = "experiment_created"
	TypeExperimentPublished = "experiment_published"
	TypeTrialAdded          = "trial_added"
	TypeTrialsIgnored       = "trials_ignored"
)

// ExperimentEvent records one successful write against an experiment.
type ExperimentEvent struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// Type is one of the Type* constants
	Type string `json:"type"`

	// ExperimentID is the database id of the experiment that changed
	ExperimentID string `json:"experiment_id"`

	// Actor is the username that performed the write
	Actor string `json:"actor"`

	// Payload contains the type-specific data serialized as JSON
	Payload json.RawMessage `json:"payload,omitempty"`

	// CreatedAt is the timestamp when the event was created
	CreatedAt time.Time `json:"created_at"`
}

// UnmarshalPayload decodes the event payload into the provided structure.
func (e *ExperimentEvent) UnmarshalPayload(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}

// NewExperimentEvent creates an event for experimentID. A nil payload leaves
// Payload empty.
func NewExperimentEvent(eventType, experimentID, actor string, payload interface{}) (*ExperimentEvent, error) {
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		raw = b
	}

	return &ExperimentEvent{
		ID:           uuid.New(),
		Type:         eventType,
		ExperimentID: experimentID,
		Actor:        actor,
		Payload:      raw,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

// EventHandler defines an interface for components that can handle events.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	// Returns an error if the event cannot be handled successfully.
	HandleEvent(ctx context.Context, event *ExperimentEvent) error
}

// EventEmitter defines an interface for components that can emit events.
// This allows services to publish events without direct knowledge of handlers.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	// Returns an error if the event cannot be emitted.
	EmitEvent(ctx context.Context, event *ExperimentEvent) error
}

// HandlerFunc adapts a function to EventHandler.
type HandlerFunc func(ctx context.Context, event *ExperimentEvent) error

// HandleEvent calls f.
func (f HandlerFunc) HandleEvent(ctx context.Context, event *ExperimentEvent) error {
	return f(ctx, event)
}
