package router

import (
	"sort"

	"github.com/freelancing-solutions/agenthub/agent"
	"github.com/freelancing-solutions/agenthub/core"
)

// Capability match scores. Any registered agent can serve any intent as a
// general fallback, hence the non-zero floor.
const (
	ScorePrimary   = 100
	ScoreSupported = 70
	ScoreGeneral   = 30
)

// Candidate pairs a runner with its capability score for one intent.
type Candidate struct {
	Runner *agent.Runner
	Score  int
}

// ScoreAgents scores every runner against the intent, excluding agent types
// the user has disabled, and returns candidates sorted by descending score
// (ties broken by runner id for determinism). Pure function: no side effects,
// no storage access.
func ScoreAgents(intent core.Intent, runners []*agent.Runner, disabled map[core.AgentType]bool) []Candidate {
	candidates := make([]Candidate, 0, len(runners))
	for _, r := range runners {
		if disabled[r.Type()] {
			continue
		}
		candidates = append(candidates, Candidate{Runner: r, Score: scoreFor(intent, r.Capabilities())})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].Runner.ID() < candidates[j].Runner.ID()
	})
	return candidates
}

func scoreFor(intent core.Intent, caps core.Capabilities) int {
	switch {
	case caps.HasPrimary(intent):
		return ScorePrimary
	case caps.HasSupported(intent):
		return ScoreSupported
	default:
		return ScoreGeneral
	}
}
