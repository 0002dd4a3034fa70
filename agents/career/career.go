// Package career provides the career-guidance agent: an agent.DomainAgent
// specializing in career path advice and skill development.
package career

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/freelancing-solutions/agenthub/agent"
	"github.com/freelancing-solutions/agenthub/completion"
	"github.com/freelancing-solutions/agenthub/core"
)

const maxMessageLen = 8000

const systemPrompt = "You are a career advisor for job seekers. You help users plan career moves, " +
	"close skill gaps, and understand how the job market values their experience."

// Agent implements agent.DomainAgent for career guidance.
type Agent struct{}

// New constructs the career-guidance agent.
func New() *Agent { return &Agent{} }

// Type implements agent.DomainAgent.
func (a *Agent) Type() core.AgentType { return core.AgentTypeCareerGuidance }

// Capabilities implements agent.DomainAgent.
func (a *Agent) Capabilities() core.Capabilities {
	return core.Capabilities{
		Primary:   []core.Intent{core.IntentCareerGuidance, core.IntentSkillAnalysis},
		Supported: []core.Intent{core.IntentMarketIntelligence, core.IntentGeneralAssistance},
	}
}

// Initialize implements agent.DomainAgent.
func (a *Agent) Initialize(context.Context) error { return nil }

// Cleanup implements agent.DomainAgent.
func (a *Agent) Cleanup(context.Context) error { return nil }

// ValidateRequest implements agent.DomainAgent.
func (a *Agent) ValidateRequest(req *core.AgentRequest) error {
	if strings.TrimSpace(req.Message) == "" {
		return errors.New("message must not be empty")
	}
	if len(req.Message) > maxMessageLen {
		return fmt.Errorf("message exceeds %d characters", maxMessageLen)
	}
	return nil
}

// PreProcessRequest implements agent.DomainAgent.
func (a *Agent) PreProcessRequest(req *core.AgentRequest) (*core.AgentRequest, error) {
	enriched := *req
	enriched.Context = make(map[string]any, len(req.Context)+1)
	for k, v := range req.Context {
		enriched.Context[k] = v
	}
	enriched.Context["advice_focus"] = string(req.Intent)
	return &enriched, nil
}

// BuildCompletionRequest implements agent.DomainAgent.
func (a *Agent) BuildCompletionRequest(req *core.AgentRequest) (*completion.Request, error) {
	messages := make([]core.Message, 0, len(req.History)+1)
	for _, m := range req.History {
		if m.Role == core.RoleUser || m.Role == core.RoleAssistant {
			messages = append(messages, m)
		}
	}
	messages = append(messages, core.Message{Role: core.RoleUser, Content: req.Message, Timestamp: time.Now().UTC()})
	return &completion.Request{Messages: messages}, nil
}

// PostProcessResponse implements agent.DomainAgent.
func (a *Agent) PostProcessResponse(req *core.AgentRequest, raw *completion.Response) (*core.AgentResponse, error) {
	if strings.TrimSpace(raw.Text) == "" {
		return nil, errors.New("empty completion text")
	}
	resp := &core.AgentResponse{
		Content: raw.Text,
		Suggestions: []string{
			"Ask for a skill-gap breakdown for your target role",
			"Ask how the market currently values your experience",
		},
		Metadata: map[string]any{"provider": raw.Provider, "model": raw.Model},
	}
	if req.Intent == core.IntentSkillAnalysis {
		resp.Actions = append(resp.Actions, core.Action{Type: "skill_analysis", Label: "Run a full skill analysis"})
	}
	return resp, nil
}

// HandleError implements agent.DomainAgent.
func (a *Agent) HandleError(_ *core.AgentRequest, _ error) *core.AgentResponse {
	return &core.AgentResponse{
		Content: "I'm sorry, I couldn't put your career advice together just now. Please try again in a moment.",
		Suggestions: []string{
			"Rephrase your question",
			"Ask about one specific career goal at a time",
		},
		Fallback: true,
	}
}

// CheckHealth implements agent.DomainAgent.
func (a *Agent) CheckHealth(context.Context) error { return nil }

// ApplyConfig implements agent.DomainAgent.
func (a *Agent) ApplyConfig(agent.Config) error { return nil }

// DefaultConfig returns the generation settings for this agent's runner.
func DefaultConfig() agent.Config {
	return agent.Config{Temperature: 0.7, MaxTokens: 2048, SystemPrompt: systemPrompt}
}
