package testutil

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/freelancing-solutions/agenthub/agent"
	"github.com/freelancing-solutions/agenthub/completion"
	"github.com/freelancing-solutions/agenthub/core"
)

// StubAgent is a configurable agent.DomainAgent test double. Zero value is a
// healthy general-assistance agent that echoes the completion text. Inject
// failures by setting the corresponding error fields; counters record how
// often each hook ran.
type StubAgent struct {
	AgentType    core.AgentType
	Caps         core.Capabilities
	InitErr      error
	CleanupErr   error
	ValidateErr  error
	PreErr       error
	BuildErr     error
	PostErr      error
	HealthErr    error
	BlockCleanup chan struct{} // when non-nil, Cleanup waits for a receive

	InitCalls    atomic.Int64
	CleanupCalls atomic.Int64
	PostCalls    atomic.Int64
}

// NewStubAgent returns a StubAgent of the given type with general capabilities.
func NewStubAgent(agentType core.AgentType) *StubAgent {
	return &StubAgent{AgentType: agentType}
}

// Type implements agent.DomainAgent.
func (s *StubAgent) Type() core.AgentType {
	if s.AgentType == "" {
		return core.AgentTypeGeneral
	}
	return s.AgentType
}

// Capabilities implements agent.DomainAgent.
func (s *StubAgent) Capabilities() core.Capabilities { return s.Caps }

// Initialize implements agent.DomainAgent.
func (s *StubAgent) Initialize(context.Context) error {
	s.InitCalls.Add(1)
	return s.InitErr
}

// Cleanup implements agent.DomainAgent.
func (s *StubAgent) Cleanup(ctx context.Context) error {
	s.CleanupCalls.Add(1)
	if s.BlockCleanup != nil {
		select {
		case <-s.BlockCleanup:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return s.CleanupErr
}

// ValidateRequest implements agent.DomainAgent.
func (s *StubAgent) ValidateRequest(*core.AgentRequest) error { return s.ValidateErr }

// PreProcessRequest implements agent.DomainAgent.
func (s *StubAgent) PreProcessRequest(req *core.AgentRequest) (*core.AgentRequest, error) {
	if s.PreErr != nil {
		return nil, s.PreErr
	}
	return req, nil
}

// BuildCompletionRequest implements agent.DomainAgent.
func (s *StubAgent) BuildCompletionRequest(req *core.AgentRequest) (*completion.Request, error) {
	if s.BuildErr != nil {
		return nil, s.BuildErr
	}
	return &completion.Request{
		Messages: []core.Message{{Role: core.RoleUser, Content: req.Message, Timestamp: time.Now().UTC()}},
	}, nil
}

// PostProcessResponse implements agent.DomainAgent.
func (s *StubAgent) PostProcessResponse(_ *core.AgentRequest, raw *completion.Response) (*core.AgentResponse, error) {
	s.PostCalls.Add(1)
	if s.PostErr != nil {
		return nil, s.PostErr
	}
	return &core.AgentResponse{Content: raw.Text, Suggestions: []string{"Ask a follow-up question"}}, nil
}

// HandleError implements agent.DomainAgent.
func (s *StubAgent) HandleError(_ *core.AgentRequest, _ error) *core.AgentResponse {
	return &core.AgentResponse{
		Content:     "Sorry, something went wrong. Please try again.",
		Suggestions: []string{"Try again"},
		Fallback:    true,
	}
}

// CheckHealth implements agent.DomainAgent.
func (s *StubAgent) CheckHealth(context.Context) error { return s.HealthErr }

// ApplyConfig implements agent.DomainAgent.
func (s *StubAgent) ApplyConfig(agent.Config) error { return nil }
