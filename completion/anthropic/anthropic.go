// Package anthropic provides a completion.Provider backed by the Anthropic
// Messages API.
package anthropic

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/freelancing-solutions/agenthub/completion"
	"github.com/freelancing-solutions/agenthub/core"
)

const unhealthyAfter = 3

// Options configure the Anthropic provider adapter.
type Options struct {
	Model          anthropic.Model
	FallbackModels []anthropic.Model
	MaxTokens      int64
	APIKey         string
}

// Provider wraps the Anthropic Messages API behind completion.Provider.
type Provider struct {
	client   *anthropic.Client
	opts     Options
	failures atomic.Int64
	lastErr  atomic.Value // error
}

// New creates a provider using the official client.
func New(optFns ...func(o *Options)) *Provider {
	opts := Options{
		Model:          anthropic.ModelClaude3_5Sonnet20241022,
		FallbackModels: []anthropic.Model{anthropic.ModelClaude3_5Haiku20241022},
		MaxTokens:      4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	client := anthropic.NewClient(clientOpts...)

	return &Provider{client: &client, opts: opts}
}

// NewFromClient creates a provider from an existing client.
func NewFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Provider {
	opts := Options{
		Model:          anthropic.ModelClaude3_5Sonnet20241022,
		FallbackModels: []anthropic.Model{anthropic.ModelClaude3_5Haiku20241022},
		MaxTokens:      4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Provider{client: client, opts: opts}
}

// Name implements completion.Provider.
func (p *Provider) Name() string { return "anthropic" }

// Models implements completion.Provider.
func (p *Provider) Models() completion.ProviderModels {
	fallbacks := make([]string, len(p.opts.FallbackModels))
	for i, m := range p.opts.FallbackModels {
		fallbacks[i] = string(m)
	}
	return completion.ProviderModels{Default: string(p.opts.Model), Fallbacks: fallbacks}
}

// Healthy reports an error once recent calls have failed consecutively.
func (p *Provider) Healthy(context.Context) error {
	if p.failures.Load() < unhealthyAfter {
		return nil
	}
	if err, ok := p.lastErr.Load().(error); ok {
		return fmt.Errorf("anthropic provider unhealthy: %w", err)
	}
	return fmt.Errorf("anthropic provider unhealthy")
}

func (p *Provider) recordOutcome(err error) {
	if err == nil {
		p.failures.Store(0)
		return
	}
	p.failures.Add(1)
	p.lastErr.Store(err)
}

// Complete implements completion.Provider.
func (p *Provider) Complete(ctx context.Context, req completion.Request) (*completion.Response, error) {
	resp, err := p.client.Messages.New(ctx, p.buildParams(req))
	p.recordOutcome(err)
	if err != nil {
		return nil, fmt.Errorf("anthropic api error: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.AsText().Text)
		}
	}

	return &completion.Response{
		Text:     text.String(),
		Provider: p.Name(),
		Model:    string(resp.Model),
		Metadata: map[string]any{
			"stop_reason":   string(resp.StopReason),
			"input_tokens":  resp.Usage.InputTokens,
			"output_tokens": resp.Usage.OutputTokens,
		},
	}, nil
}

// CompleteStream implements completion.Provider. Streaming is not wired for
// this adapter yet; callers fall back to the next provider at the service
// level. TODO: adapt anthropic.MessageStreamEvent handling once the SDK's
// streaming surface is exercised elsewhere in the codebase.
func (p *Provider) CompleteStream(_ context.Context, _ completion.Request) (<-chan completion.Chunk, <-chan error) {
	out := make(chan completion.Chunk)
	errCh := make(chan error, 1)
	errCh <- fmt.Errorf("streaming not supported by the anthropic adapter")
	close(out)
	close(errCh)
	return out, errCh
}

// buildParams assembles the Anthropic request parameters from the normalized request.
func (p *Provider) buildParams(req completion.Request) anthropic.MessageNewParams {
	var messages []anthropic.MessageParam
	var system []anthropic.TextBlockParam

	for _, m := range req.Messages {
		text := strings.TrimSpace(m.Content)
		if text == "" {
			continue
		}
		switch m.Role {
		case core.RoleSystem:
			system = append(system, anthropic.TextBlockParam{Text: text})
		case core.RoleAssistant:
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(text)))
		default:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(text)))
		}
	}

	model := anthropic.Model(req.Model)
	if req.Model == "" {
		model = p.opts.Model
	}
	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = p.opts.MaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:       model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: anthropic.Float(req.Temperature),
	}
	if len(system) > 0 {
		params.System = system
	}
	return params
}
