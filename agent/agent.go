package agent

import (
	"context"

	"github.com/freelancing-solutions/agenthub/completion"
	"github.com/freelancing-solutions/agenthub/core"
)

// Config holds the per-agent generation settings merged into every
// completion request the runner builds.
type Config struct {
	// Temperature for completion calls. Zero means "use the default" (0.7).
	Temperature float64
	// MaxTokens for completion calls. Zero means "use the default" (2048).
	MaxTokens int
	// SystemPrompt is the base prompt establishing the agent's role.
	SystemPrompt string
	// Behavior is an additional behavior-setting description appended to the
	// system prompt.
	Behavior string
	// Provider optionally pins completion calls to a named provider.
	Provider string
}

// DomainAgent is the contract every concrete agent implements. The Runner
// guarantees the hook methods are called in the fixed pipeline order and that
// PostProcessResponse is never called after an earlier step failed.
type DomainAgent interface {
	// Type categorizes the conversational domain this agent serves.
	Type() core.AgentType
	// Capabilities declares the intents this agent handles.
	Capabilities() core.Capabilities

	// Initialize prepares agent-specific resources. Called by Runner.Start.
	Initialize(ctx context.Context) error
	// Cleanup releases agent-specific resources. Called by Runner.Stop.
	Cleanup(ctx context.Context) error

	// ValidateRequest fails fast on malformed input before any backend call.
	ValidateRequest(req *core.AgentRequest) error
	// PreProcessRequest enriches the inbound request. It must be a pure
	// function of its input: return a derived copy, never mutate shared state.
	PreProcessRequest(req *core.AgentRequest) (*core.AgentRequest, error)
	// BuildCompletionRequest translates the enriched request into a
	// completion request. The runner merges configured temperature,
	// max-tokens and the system prompt afterwards.
	BuildCompletionRequest(req *core.AgentRequest) (*completion.Request, error)
	// PostProcessResponse parses the raw completion text into the agent's
	// domain response with derived suggestions and actions.
	PostProcessResponse(req *core.AgentRequest, raw *completion.Response) (*core.AgentResponse, error)

	// HandleError converts a pipeline failure into the agent's fallback
	// response: a human-readable apology plus recovery suggestions.
	HandleError(req *core.AgentRequest, err error) *core.AgentResponse
	// CheckHealth is the agent-specific health probe.
	CheckHealth(ctx context.Context) error
	// ApplyConfig applies runtime configuration changes to the agent.
	ApplyConfig(cfg Config) error
}
