package interview

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freelancing-solutions/agenthub/agent"
	"github.com/freelancing-solutions/agenthub/completion"
	"github.com/freelancing-solutions/agenthub/core"
)

// Interface compliance (compile-time assertion)
var _ agent.DomainAgent = (*Agent)(nil)

func TestAgent_Capabilities(t *testing.T) {
	a := New()
	caps := a.Capabilities()
	assert.True(t, caps.HasPrimary(core.IntentMockInterview))
	assert.True(t, caps.HasPrimary(core.IntentInterviewPreparation))
	assert.True(t, caps.HasSupported(core.IntentCandidateScreening))
	assert.False(t, caps.HasPrimary(core.IntentCareerGuidance))
}

func TestAgent_ValidateRequest(t *testing.T) {
	a := New()

	assert.NoError(t, a.ValidateRequest(&core.AgentRequest{Message: "hello"}))
	assert.Error(t, a.ValidateRequest(&core.AgentRequest{Message: "   "}))
	assert.Error(t, a.ValidateRequest(&core.AgentRequest{Message: strings.Repeat("x", maxMessageLen+1)}))
}

func TestAgent_PreProcessRequest(t *testing.T) {
	a := New()

	req := &core.AgentRequest{
		Message: "Can you run a mock interview for a backend engineer role?",
		Intent:  core.IntentMockInterview,
		Context: map[string]any{"existing": "kept"},
	}

	enriched, err := a.PreProcessRequest(req)
	require.NoError(t, err)
	assert.Equal(t, "mock_interview", enriched.Context["mode"])
	assert.Equal(t, "backend engineer", enriched.Context["target_role"])
	assert.Equal(t, "kept", enriched.Context["existing"])

	// The original request is untouched.
	assert.NotContains(t, req.Context, "mode")

	coached, err := a.PreProcessRequest(&core.AgentRequest{
		Message: "How do I answer behavioral questions?",
		Intent:  core.IntentInterviewPreparation,
	})
	require.NoError(t, err)
	assert.Equal(t, "coaching", coached.Context["mode"])
	assert.NotContains(t, coached.Context, "target_role")
}

func TestAgent_BuildCompletionRequest(t *testing.T) {
	a := New()

	req := &core.AgentRequest{
		Message: "ready for the next question",
		History: []core.Message{
			{Role: core.RoleUser, Content: "start a mock interview"},
			{Role: core.RoleAssistant, Content: "Tell me about yourself."},
			{Role: core.RoleSystem, Content: "internal note"},
		},
	}

	creq, err := a.BuildCompletionRequest(req)
	require.NoError(t, err)
	require.Len(t, creq.Messages, 3, "system history entries are filtered out")
	assert.Equal(t, "start a mock interview", creq.Messages[0].Content)
	assert.Equal(t, "ready for the next question", creq.Messages[2].Content)
	assert.Equal(t, core.RoleUser, creq.Messages[2].Role)
}

func TestAgent_PostProcessResponse_MockInterview(t *testing.T) {
	a := New()

	req := &core.AgentRequest{
		Intent:  core.IntentMockInterview,
		Context: map[string]any{"mode": "mock_interview", "target_role": "backend engineer"},
	}
	raw := &completion.Response{Text: "First question: describe a hard bug you fixed.", Provider: "mock", Model: "m"}

	resp, err := a.PostProcessResponse(req, raw)
	require.NoError(t, err)
	assert.Equal(t, raw.Text, resp.Content)
	assert.NotEmpty(t, resp.Suggestions)

	require.Len(t, resp.Actions, 1)
	assert.Equal(t, "mock_interview", resp.Actions[0].Type)
	assert.Equal(t, "backend engineer", resp.Actions[0].Payload["target_role"])
	assert.Contains(t, resp.ContextUpdate, "last_mock_interview")
}

func TestAgent_PostProcessResponse_Coaching(t *testing.T) {
	a := New()

	resp, err := a.PostProcessResponse(
		&core.AgentRequest{Intent: core.IntentInterviewPreparation},
		&completion.Response{Text: "Structure answers with the STAR method."},
	)
	require.NoError(t, err)
	assert.Empty(t, resp.Actions, "actions are mock-interview specific")
	assert.Empty(t, resp.ContextUpdate)
}

func TestAgent_PostProcessResponse_EmptyCompletion(t *testing.T) {
	a := New()
	_, err := a.PostProcessResponse(&core.AgentRequest{}, &completion.Response{Text: "  "})
	assert.Error(t, err)
}

func TestAgent_HandleError(t *testing.T) {
	a := New()
	resp := a.HandleError(&core.AgentRequest{}, assert.AnError)
	assert.True(t, resp.Fallback)
	assert.NotEmpty(t, resp.Content)
	assert.NotEmpty(t, resp.Suggestions)
}

func TestAgent_Lifecycle(t *testing.T) {
	a := New()
	ctx := context.Background()

	assert.Error(t, a.CheckHealth(ctx), "unhealthy before initialization")
	require.NoError(t, a.Initialize(ctx))
	assert.NoError(t, a.CheckHealth(ctx))
	require.NoError(t, a.Cleanup(ctx))
	assert.Error(t, a.CheckHealth(ctx))
}

func TestExtractTargetRole(t *testing.T) {
	tests := []struct {
		message string
		want    string
	}{
		{"mock interview for a backend engineer role", "backend engineer"},
		{"prepare me for an SRE position", "sre"},
		{"interview practice for a data analyst job", "data analyst"},
		{"just a general interview please", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			assert.Equal(t, tt.want, extractTargetRole(tt.message))
		})
	}
}
