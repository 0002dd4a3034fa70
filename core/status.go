package core

import "time"

// AgentStatus tracks the coarse execution state of an agent instance.
//
// Transitions: inactive -> active (start), active <-> busy (request
// start/finish), active -> inactive (pause), inactive -> active (resume),
// any -> error (initialization or processing failure), any -> inactive (stop).
type AgentStatus string

const (
	AgentStatusInactive AgentStatus = "inactive"
	AgentStatusActive   AgentStatus = "active"
	AgentStatusBusy     AgentStatus = "busy"
	AgentStatusError    AgentStatus = "error"
)

// AgentMetrics is a snapshot of an agent's rolling counters. Owned by the
// agent runner; callers receive copies.
type AgentMetrics struct {
	Requests       int64         `json:"requests"`
	Successes      int64         `json:"successes"`
	Failures       int64         `json:"failures"`
	ErrorRate      float64       `json:"error_rate"`
	AverageLatency time.Duration `json:"average_latency"`
	StartedAt      time.Time     `json:"started_at"`
	LastActivity   time.Time     `json:"last_activity"`
}

// Uptime returns the elapsed time since the agent first started, or zero if
// it never started.
func (m AgentMetrics) Uptime(now time.Time) time.Duration {
	if m.StartedAt.IsZero() {
		return 0
	}
	return now.Sub(m.StartedAt)
}

// HealthStatus aggregates an agent's operational health for supervision.
// Healthy is false when the agent status is error or the completion backend
// reports unhealthy; the agent-specific probe result lands in Details.
type HealthStatus struct {
	AgentID        string         `json:"agent_id"`
	AgentType      AgentType      `json:"agent_type"`
	Healthy        bool           `json:"healthy"`
	Status         AgentStatus    `json:"status"`
	ErrorCount     int64          `json:"error_count"`
	AverageLatency time.Duration  `json:"average_latency"`
	Uptime         time.Duration  `json:"uptime"`
	Details        map[string]any `json:"details,omitempty"`
}
