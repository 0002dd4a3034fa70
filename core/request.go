package core

import "time"

// AgentRequest is the normalized unit of work the router hands to an agent.
// Context carries the merged session, user and request-supplied key/value
// state; History carries the recent conversation turns for the session.
type AgentRequest struct {
	SessionID string         `json:"session_id"`
	UserID    string         `json:"user_id"`
	Message   string         `json:"message"`
	Intent    Intent         `json:"intent"`
	Context   map[string]any `json:"context,omitempty"`
	History   []Message      `json:"history,omitempty"`
}

// Action is a machine-actionable follow-up an agent attaches to its response,
// e.g. {Type: "mock_interview"} to offer starting an interview simulation.
type Action struct {
	Type    string         `json:"type"`
	Label   string         `json:"label,omitempty"`
	Payload map[string]any `json:"payload,omitempty"`
}

// AgentResponse is the structured result of one agent pipeline run. Fallback
// marks responses produced by an agent's error handler; ContextUpdate, when
// non-empty, is merged into the user's persistent context by the router.
type AgentResponse struct {
	AgentID       string         `json:"agent_id"`
	AgentType     AgentType      `json:"agent_type"`
	Content       string         `json:"content"`
	Suggestions   []string       `json:"suggestions,omitempty"`
	Actions       []Action       `json:"actions,omitempty"`
	Confidence    float64        `json:"confidence"`
	Fallback      bool           `json:"fallback,omitempty"`
	ContextUpdate map[string]any `json:"context_update,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	Timestamp     time.Time      `json:"timestamp"`
}
