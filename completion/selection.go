package completion

import "fmt"

// Task complexity levels accepted by the selection policy.
const (
	ComplexityLow    = "low"
	ComplexityMedium = "medium"
	ComplexityHigh   = "high"
)

// TaskProfile describes the workload a caller is about to run so the policy
// can pick a provider/model pair for it.
type TaskProfile struct {
	TaskType         string `json:"task_type"` // "conversation", "analysis", "generation"
	Complexity       string `json:"complexity"`
	LatencySensitive bool   `json:"latency_sensitive"`
	CostSensitive    bool   `json:"cost_sensitive"`
	MinContextTokens int    `json:"min_context_tokens"`
}

// Selection is the policy outcome. Reason is a one-line justification kept
// for observability; it never participates in control flow.
type Selection struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
	Reason   string `json:"reason"`
}

// SelectionPolicy deterministically picks the best provider/model pair for a
// task profile. Implementations must be pure: same inputs, same selection.
type SelectionPolicy interface {
	Select(profile TaskProfile, providers []Provider) Selection
}

// DefaultPolicy is a rule-based SelectionPolicy:
//   - latency-sensitive or cost-sensitive low-complexity work prefers the
//     last fallback model of the first provider (fallbacks are ordered from
//     most to least capable, so the tail is the cheapest/fastest)
//   - high complexity prefers the default model of the first provider
//   - everything else takes the first provider's default model
//
// Hard-coded rules are acceptable here: the policy is a replaceable object
// behind SelectionPolicy, not a load-bearing contract.
type DefaultPolicy struct{}

// Select implements SelectionPolicy.
func (DefaultPolicy) Select(profile TaskProfile, providers []Provider) Selection {
	if len(providers) == 0 {
		return Selection{Reason: "no providers registered"}
	}

	p := providers[0]
	models := p.Models()
	model := models.Default
	reason := fmt.Sprintf("default model of primary provider %s", p.Name())

	switch {
	case profile.Complexity == ComplexityHigh:
		reason = fmt.Sprintf("high complexity %s task pinned to %s default model", profile.TaskType, p.Name())
	case (profile.LatencySensitive || profile.CostSensitive) && profile.Complexity == ComplexityLow:
		if n := len(models.Fallbacks); n > 0 {
			model = models.Fallbacks[n-1]
			reason = fmt.Sprintf("low complexity latency/cost sensitive task downgraded to %s/%s", p.Name(), model)
		}
	case profile.LatencySensitive:
		if len(models.Fallbacks) > 0 {
			model = models.Fallbacks[0]
			reason = fmt.Sprintf("latency sensitive task moved to first fallback %s/%s", p.Name(), model)
		}
	}

	if profile.MinContextTokens > 0 {
		reason += fmt.Sprintf(" (requires >= %d context tokens)", profile.MinContextTokens)
	}

	return Selection{Provider: p.Name(), Model: model, Reason: reason}
}
