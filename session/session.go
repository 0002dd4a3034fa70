package session

import (
	"time"

	"github.com/freelancing-solutions/agenthub/core"
)

// Status tracks the lifecycle state of a session.
type Status string

const (
	StatusActive    Status = "active"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
	StatusTimedOut  Status = "timed_out"
)

// Preferences carries per-session user preferences applied by agents when
// shaping their responses.
type Preferences struct {
	CommunicationStyle string `json:"communication_style"` // "formal", "casual"
	ResponseLength     string `json:"response_length"`     // "brief", "detailed"
	Language           string `json:"language"`
	IncludeSuggestions bool   `json:"include_suggestions"`
	IncludeActions     bool   `json:"include_actions"`
}

// DefaultPreferences returns the preference block seeded into new sessions.
func DefaultPreferences() Preferences {
	return Preferences{
		CommunicationStyle: "casual",
		ResponseLength:     "detailed",
		Language:           "en",
		IncludeSuggestions: true,
		IncludeActions:     true,
	}
}

// Metrics holds per-session counters recomputed as the conversation evolves.
type Metrics struct {
	MessageCount int           `json:"message_count"`
	Duration     time.Duration `json:"duration"`
}

// Context is the shared conversational state of a session.
type Context struct {
	CurrentGoal string         `json:"current_goal,omitempty"`
	LastIntent  core.Intent    `json:"last_intent,omitempty"`
	Shared      map[string]any `json:"shared,omitempty"`
	Metrics     Metrics        `json:"metrics"`
}

// Session is the unit of conversational continuity. Owned exclusively by the
// Store; agents only ever see session identifiers.
type Session struct {
	ID           string         `json:"id"`
	UserID       string         `json:"user_id"`
	AgentType    core.AgentType `json:"agent_type,omitempty"`
	Created      time.Time      `json:"created"`
	LastActivity time.Time      `json:"last_activity"`
	Context      Context        `json:"context"`
	Messages     []core.Message `json:"messages"`
	Preferences  Preferences    `json:"preferences"`
	Status       Status         `json:"status"`
}

// Expired reports whether the session has been inactive longer than the TTL.
func (s *Session) Expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(s.LastActivity) > ttl
}

// Clone returns a deep copy of the session safe for independent mutation.
func (s *Session) Clone() *Session {
	clone := *s
	clone.Messages = make([]core.Message, len(s.Messages))
	copy(clone.Messages, s.Messages)
	if s.Context.Shared != nil {
		clone.Context.Shared = make(map[string]any, len(s.Context.Shared))
		for k, v := range s.Context.Shared {
			clone.Context.Shared[k] = v
		}
	}
	return &clone
}
