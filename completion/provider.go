package completion

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/freelancing-solutions/agenthub/core"
)

// Request captures the provider-agnostic completion input. Provider and Model
// are hints: empty values resolve to the service default provider and the
// provider's own default model.
type Request struct {
	Messages    []core.Message `json:"messages"`
	Temperature float64        `json:"temperature"`
	MaxTokens   int            `json:"max_tokens"`
	Provider    string         `json:"provider,omitempty"`
	Model       string         `json:"model,omitempty"`
}

// Response is the final result of a completion call. Provider and Model name
// the pair that actually served the request after any fallback.
type Response struct {
	Text     string         `json:"text"`
	Provider string         `json:"provider"`
	Model    string         `json:"model"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Chunk is a fragment of streamed completion text. The stream terminates when
// the chunk channel is closed.
type Chunk struct {
	Text string `json:"text"`
}

// ProviderModels declares the model set a provider exposes: the default model
// plus the ordered fallback models tried after a default-model failure.
type ProviderModels struct {
	Default   string   `json:"default"`
	Fallbacks []string `json:"fallbacks,omitempty"`
}

// Provider is the minimal interface a language-model backend client must
// satisfy. Implementations resolve an empty Request.Model to their default.
type Provider interface {
	Name() string
	Models() ProviderModels
	Complete(ctx context.Context, req Request) (*Response, error)
	CompleteStream(ctx context.Context, req Request) (<-chan Chunk, <-chan error)

	// Healthy reports nil when the provider is believed reachable. Adapters
	// track recent call outcomes rather than probing the remote API.
	Healthy(ctx context.Context) error
}

// MockProvider is a lightweight in-memory Provider useful for tests and
// examples. Responses are keyed by the last user message; unmatched prompts
// receive a generic echo. Failures can be injected per model.
type MockProvider struct {
	mu         sync.Mutex
	name       string
	models     ProviderModels
	responses  map[string]string
	failModels map[string]error
	failAll    error
	calls      []string // "model:prompt" in call order
}

// NewMockProvider constructs a MockProvider with the given name and models.
func NewMockProvider(name string, models ProviderModels) *MockProvider {
	if models.Default == "" {
		models.Default = "mock-model"
	}
	return &MockProvider{
		name:       name,
		models:     models,
		responses:  make(map[string]string),
		failModels: make(map[string]error),
	}
}

// AddResponse registers a deterministic canned completion for an input prompt.
func (m *MockProvider) AddResponse(prompt, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[prompt] = response
}

// FailModel makes every call against the given model fail with err.
func (m *MockProvider) FailModel(model string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failModels[model] = err
}

// FailAll makes every call fail with err until reset with a nil err.
func (m *MockProvider) FailAll(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failAll = err
}

// Calls returns the "model:prompt" pairs recorded so far, in call order.
func (m *MockProvider) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	copy(out, m.calls)
	return out
}

// Name implements Provider.
func (m *MockProvider) Name() string { return m.name }

// Models implements Provider.
func (m *MockProvider) Models() ProviderModels { return m.models }

func (m *MockProvider) resolve(req Request) (model, text string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	model = req.Model
	if model == "" {
		model = m.models.Default
	}
	prompt := lastUserMessage(req.Messages)
	m.calls = append(m.calls, model+":"+prompt)

	if m.failAll != nil {
		return model, "", m.failAll
	}
	if ferr, ok := m.failModels[model]; ok {
		return model, "", ferr
	}
	text = m.responses[prompt]
	if text == "" {
		text = fmt.Sprintf("Mock response to: %s", prompt)
	}
	return model, text, nil
}

// Complete implements Provider.
func (m *MockProvider) Complete(_ context.Context, req Request) (*Response, error) {
	model, text, err := m.resolve(req)
	if err != nil {
		return nil, err
	}
	return &Response{Text: text, Provider: m.name, Model: model}, nil
}

// CompleteStream implements Provider; emits the canned response word by word.
func (m *MockProvider) CompleteStream(ctx context.Context, req Request) (<-chan Chunk, <-chan error) {
	out := make(chan Chunk, 16)
	errCh := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errCh)
		_, text, err := m.resolve(req)
		if err != nil {
			errCh <- err
			return
		}
		for _, word := range strings.SplitAfter(text, " ") {
			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			case out <- Chunk{Text: word}:
			}
		}
	}()
	return out, errCh
}

// Healthy implements Provider.
func (m *MockProvider) Healthy(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failAll
}

func lastUserMessage(messages []core.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == core.RoleUser {
			return messages[i].Content
		}
	}
	if len(messages) > 0 {
		return messages[len(messages)-1].Content
	}
	return ""
}
