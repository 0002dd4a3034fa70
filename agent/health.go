package agent

import (
	"context"
	"time"

	"github.com/freelancing-solutions/agenthub/core"
)

// Health aggregates the runner's status, rolling metrics, the completion
// service's provider health and the agent-specific probe. The result is
// unhealthy when the status is error or the completion backend reports
// unhealthy; a failing agent probe is recorded in Details but does not flip
// the aggregate on its own.
func (r *Runner) Health(ctx context.Context) core.HealthStatus {
	r.mu.Lock()
	status := r.status
	metrics := r.metrics
	r.mu.Unlock()

	details := map[string]any{
		"requests": metrics.Requests,
	}

	backendErr := r.completions.Healthy(ctx)
	if backendErr != nil {
		details["backend"] = backendErr.Error()
	}
	if probeErr := r.impl.CheckHealth(ctx); probeErr != nil {
		details["probe"] = probeErr.Error()
	}

	return core.HealthStatus{
		AgentID:        r.id,
		AgentType:      r.impl.Type(),
		Healthy:        status != core.AgentStatusError && backendErr == nil,
		Status:         status,
		ErrorCount:     metrics.Failures,
		AverageLatency: metrics.AverageLatency,
		Uptime:         metrics.Uptime(time.Now().UTC()),
		Details:        details,
	}
}
