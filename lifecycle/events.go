package lifecycle

import (
	"time"

	"github.com/freelancing-solutions/agenthub/core"
)

// EventKind identifies an agent state transition.
type EventKind string

const (
	EventStarted  EventKind = "started"
	EventStopped  EventKind = "stopped"
	EventPaused   EventKind = "paused"
	EventResumed  EventKind = "resumed"
	EventError    EventKind = "error"
	EventShutdown EventKind = "shutdown"
)

// Event is an immutable record of one agent state transition. Produced by
// the Supervisor, consumed by registered listeners; not persisted beyond the
// listener's own handling.
type Event struct {
	AgentID   string         `json:"agent_id"`
	AgentType core.AgentType `json:"agent_type"`
	Kind      EventKind      `json:"kind"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Listener receives lifecycle events synchronously. A listener failure is
// isolated: it is logged and never breaks delivery to subsequent listeners.
type Listener interface {
	OnLifecycleEvent(ev Event)
}

// ListenerFunc adapts an ordinary function to the Listener interface.
type ListenerFunc func(ev Event)

// OnLifecycleEvent implements Listener.
func (f ListenerFunc) OnLifecycleEvent(ev Event) { f(ev) }
