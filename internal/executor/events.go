package executor

import (
	"context"
	"time"

	"github.com/vk/flowgrid/internal/message"
	"github.com/vk/flowgrid/internal/nodes"
	"github.com/vk/flowgrid/internal/validator"
)

// EventType names a lifecycle or propagation event.
type EventType string

const (
	EventStarted          EventType = "started"
	EventPaused           EventType = "paused"
	EventResumed          EventType = "resumed"
	EventStopped          EventType = "stopped"
	EventCompleted        EventType = "completed"
	EventValidationFailed EventType = "validationFailed"
	EventNodeActivated    EventType = "nodeActivated"
	EventNodeFailed       EventType = "nodeFailed"
	EventMessageCompleted EventType = "messageCompleted"
)

// Event is delivered to observers. Only the fields relevant to Type are set.
type Event struct {
	Type     EventType
	Time     time.Time
	NodeID   string
	Kind     nodes.Kind
	Message  message.Message
	Findings []validator.Finding
	Err      error
}

// Observer receives events. OnEvent is never called with the engine lock
// held, so it may call back into the Executor.
type Observer interface {
	OnEvent(ctx context.Context, ev Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ctx context.Context, ev Event)

// OnEvent calls f.
func (f ObserverFunc) OnEvent(ctx context.Context, ev Event) { f(ctx, ev) }
