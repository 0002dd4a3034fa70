// Package openai provides a completion.Provider backed by the OpenAI Chat
// Completions API (including streaming). It adapts AgentHub's normalized
// message list into the SDK's message format and back.
package openai

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/freelancing-solutions/agenthub/completion"
	"github.com/freelancing-solutions/agenthub/core"
)

// unhealthyAfter is the consecutive-failure count at which Healthy reports an error.
const unhealthyAfter = 3

// Options configure the OpenAI provider adapter.
type Options struct {
	Model          string
	FallbackModels []string
	MaxTokens      int64
	APIKey         string
}

// Provider wraps the OpenAI Chat Completions API behind completion.Provider.
type Provider struct {
	client   *openai.Client
	opts     Options
	failures atomic.Int64
	lastErr  atomic.Value // error
}

// New creates a provider using the official client. Without an explicit
// APIKey option the client reads OPENAI_API_KEY from the environment.
func New(optFns ...func(o *Options)) *Provider {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	client := openai.NewClient(clientOpts...)

	return &Provider{client: &client, opts: opts}
}

// NewFromClient creates a provider from an existing client.
func NewFromClient(client *openai.Client, optFns ...func(o *Options)) *Provider {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Provider{client: client, opts: opts}
}

func defaultOptions() Options {
	return Options{
		Model:          openai.ChatModelGPT4o,
		FallbackModels: []string{openai.ChatModelGPT4oMini},
		MaxTokens:      4096,
	}
}

// Name implements completion.Provider.
func (p *Provider) Name() string { return "openai" }

// Models implements completion.Provider.
func (p *Provider) Models() completion.ProviderModels {
	return completion.ProviderModels{Default: p.opts.Model, Fallbacks: p.opts.FallbackModels}
}

// Healthy reports an error once recent calls have failed consecutively.
func (p *Provider) Healthy(context.Context) error {
	if p.failures.Load() < unhealthyAfter {
		return nil
	}
	if err, ok := p.lastErr.Load().(error); ok {
		return fmt.Errorf("openai provider unhealthy: %w", err)
	}
	return fmt.Errorf("openai provider unhealthy")
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
	resp, err := p.client.Chat.Completions.New(ctx, p.buildParams(req))
	p.recordOutcome(err)
	if err != nil {
		return nil, fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai returned no choices")
	}
	ch0 := resp.Choices[0]
	return &completion.Response{
		Text:     ch0.Message.Content,
		Provider: p.Name(),
		Model:    resp.Model,
		Metadata: map[string]any{
			"finish_reason":     ch0.FinishReason,
			"prompt_tokens":     resp.Usage.PromptTokens,
			"completion_tokens": resp.Usage.CompletionTokens,
		},
	}, nil
}

// CompleteStream implements completion.Provider.
func (p *Provider) CompleteStream(ctx context.Context, req completion.Request) (<-chan completion.Chunk, <-chan error) {
	out := make(chan completion.Chunk, 32)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		stream := p.client.Chat.Completions.NewStreaming(ctx, p.buildParams(req))
		for stream.Next() {
			ck := stream.Current()
			for _, choice := range ck.Choices {
				if choice.Delta.Content == "" {
					continue
				}
				select {
				case <-ctx.Done():
					errCh <- ctx.Err()
					return
				case out <- completion.Chunk{Text: choice.Delta.Content}:
				}
			}
		}
		err := stream.Err()
		p.recordOutcome(err)
		if err != nil {
			errCh <- fmt.Errorf("openai streaming error: %w", err)
		}
	}()

	return out, errCh
}

// buildParams assembles the OpenAI request parameters from the normalized request.
func (p *Provider) buildParams(req completion.Request) openai.ChatCompletionNewParams {
	var messages []openai.ChatCompletionMessageParamUnion
	for _, m := range req.Messages {
		text := strings.TrimSpace(m.Content)
		if text == "" {
			continue
		}
		switch m.Role {
		case core.RoleSystem:
			messages = append(messages, openai.SystemMessage(text))
		case core.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(text))
		default:
			messages = append(messages, openai.UserMessage(text))
		}
	}

	model := req.Model
	if model == "" {
		model = p.opts.Model
	}
	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = p.opts.MaxTokens
	}

	return openai.ChatCompletionNewParams{
		Messages:            messages,
		Model:               model,
		Temperature:         openai.Float(req.Temperature),
		MaxCompletionTokens: openai.Int(maxTokens),
	}
}
