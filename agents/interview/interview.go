// Package interview provides the interview-preparation agent: a
// agent.DomainAgent specializing in mock interviews and interview coaching.
package interview

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/freelancing-solutions/agenthub/agent"
	"github.com/freelancing-solutions/agenthub/completion"
	"github.com/freelancing-solutions/agenthub/core"
)

// maxMessageLen bounds inbound messages before any backend call.
const maxMessageLen = 8000

const systemPrompt = "You are an experienced interview coach helping job seekers prepare for interviews. " +
	"You run realistic mock interviews, give concrete feedback on answers, and explain what interviewers look for."

const behavior = "Keep feedback specific and actionable. When running a mock interview, ask one question at a time and wait for the candidate's answer before continuing."

// Agent implements agent.DomainAgent for interview preparation.
type Agent struct {
	mu          sync.Mutex
	initialized bool
}

// New constructs the interview-preparation agent.
func New() *Agent { return &Agent{} }

// Type implements agent.DomainAgent.
func (a *Agent) Type() core.AgentType { return core.AgentTypeInterviewPrep }

// Capabilities implements agent.DomainAgent.
func (a *Agent) Capabilities() core.Capabilities {
	return core.Capabilities{
		Primary:   []core.Intent{core.IntentMockInterview, core.IntentInterviewPreparation},
		Supported: []core.Intent{core.IntentCandidateScreening, core.IntentCareerGuidance},
	}
}

// Initialize implements agent.DomainAgent.
func (a *Agent) Initialize(context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.initialized = true
	return nil
}

// Cleanup implements agent.DomainAgent.
func (a *Agent) Cleanup(context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.initialized = false
	return nil
}

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

// PreProcessRequest derives the interview focus (role, mock vs. coaching)
// from the message and attaches it to a copy of the request context.
func (a *Agent) PreProcessRequest(req *core.AgentRequest) (*core.AgentRequest, error) {
	enriched := *req
	enriched.Context = make(map[string]any, len(req.Context)+2)
	for k, v := range req.Context {
		enriched.Context[k] = v
	}
	if req.Intent == core.IntentMockInterview {
		enriched.Context["mode"] = "mock_interview"
	} else {
		enriched.Context["mode"] = "coaching"
	}
	if role := extractTargetRole(req.Message); role != "" {
		enriched.Context["target_role"] = role
	}
	return &enriched, nil
}

// BuildCompletionRequest implements agent.DomainAgent. History precedes the
// current message so the model sees the full conversation.
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

// PostProcessResponse structures the raw completion text into the agent's
// domain response with derived suggestions and actions.
func (a *Agent) PostProcessResponse(req *core.AgentRequest, raw *completion.Response) (*core.AgentResponse, error) {
	if strings.TrimSpace(raw.Text) == "" {
		return nil, errors.New("empty completion text")
	}

	resp := &core.AgentResponse{
		Content: raw.Text,
		Suggestions: []string{
			"Practice answering with the STAR method",
			"Ask me to review one of your past interview answers",
		},
		Metadata: map[string]any{"provider": raw.Provider, "model": raw.Model},
	}

	if req.Intent == core.IntentMockInterview {
		resp.Suggestions = append([]string{"Answer the question above to continue the mock interview"}, resp.Suggestions...)
		resp.Actions = append(resp.Actions, core.Action{
			Type:    "mock_interview",
			Label:   "Continue mock interview",
			Payload: map[string]any{"mode": req.Context["mode"], "target_role": req.Context["target_role"]},
		})
		resp.ContextUpdate = map[string]any{"last_mock_interview": time.Now().UTC().Format(time.RFC3339)}
	}
	return resp, nil
}

// HandleError implements agent.DomainAgent.
func (a *Agent) HandleError(_ *core.AgentRequest, _ error) *core.AgentResponse {
	return &core.AgentResponse{
		Content: "I'm sorry, I couldn't continue the interview session just now. Your progress is saved, so let's pick up where we left off.",
		Suggestions: []string{
			"Try sending your answer again",
			"Ask me to restart the mock interview",
		},
		Fallback: true,
	}
}

// CheckHealth implements agent.DomainAgent.
func (a *Agent) CheckHealth(context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.initialized {
		return errors.New("interview agent not initialized")
	}
	return nil
}

// ApplyConfig implements agent.DomainAgent. The agent has no private
// configuration; runner-level settings cover it.
func (a *Agent) ApplyConfig(agent.Config) error { return nil }

// DefaultConfig returns the generation settings for this agent's runner.
func DefaultConfig() agent.Config {
	return agent.Config{
		Temperature:  0.7,
		MaxTokens:    2048,
		SystemPrompt: systemPrompt,
		Behavior:     behavior,
	}
}

// extractTargetRole pulls a "for a <role> role/position" phrase out of the message.
func extractTargetRole(message string) string {
	lowered := strings.ToLower(message)
	for _, marker := range []string{"for a ", "for an "} {
		idx := strings.Index(lowered, marker)
		if idx < 0 {
			continue
		}
		rest := lowered[idx+len(marker):]
		for _, terminator := range []string{" role", " position", " job"} {
			if end := strings.Index(rest, terminator); end > 0 {
				return strings.TrimSpace(rest[:end])
			}
		}
	}
	return ""
}
