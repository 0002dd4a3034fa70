package completion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/freelancing-solutions/agenthub/logging"
)

// ErrAllProvidersExhausted is returned when every provider and every fallback
// model failed for a request. Match with errors.Is; the concrete error is an
// *ExhaustedError carrying the individual attempt failures.
var ErrAllProvidersExhausted = errors.New("all providers exhausted")

// ExhaustedError aggregates the per-attempt failures of an exhausted request.
type ExhaustedError struct {
	Attempts []error
}

// Error implements the error interface.
func (e *ExhaustedError) Error() string {
	msgs := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		msgs[i] = a.Error()
	}
	return fmt.Sprintf("all providers exhausted after %d attempts: %s", len(e.Attempts), strings.Join(msgs, "; "))
}

// Is reports equivalence to ErrAllProvidersExhausted for errors.Is matching.
func (e *ExhaustedError) Is(target error) bool { return target == ErrAllProvidersExhausted }

// Unwrap exposes the individual attempt errors to errors.Is/As.
func (e *ExhaustedError) Unwrap() []error { return e.Attempts }

// Options holds dependency and configuration overrides passed to NewService.
type Options struct {
	// DefaultProvider names the provider used when a request carries no hint.
	// Defaults to the first registered provider.
	DefaultProvider string
	// FallbackOrder lists provider names tried, in order, after the resolved
	// primary provider is exhausted. Defaults to the remaining providers in
	// registration order.
	FallbackOrder []string
	// Policy selects a provider/model pair from a task profile. Defaults to
	// DefaultPolicy.
	Policy SelectionPolicy
	// Logger receives per-attempt failure logs.
	Logger logging.Logger
}

// Service executes completions against a set of interchangeable providers
// with two-level fallback. Safe for concurrent use; the service itself holds
// no per-request state, so a fully exhausted request leaves it ready for the
// next call.
type Service struct {
	providers map[string]Provider
	order     []string // registration order
	opts      Options
	logger    logging.Logger
}

// NewService constructs a Service over the given providers with optional overrides.
func NewService(providers []Provider, optFns ...func(o *Options)) *Service {
	opts := Options{
		Policy: DefaultPolicy{},
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	s := &Service{
		providers: make(map[string]Provider, len(providers)),
		opts:      opts,
		logger:    opts.Logger,
	}
	for _, p := range providers {
		if _, exists := s.providers[p.Name()]; exists {
			continue
		}
		s.providers[p.Name()] = p
		s.order = append(s.order, p.Name())
	}
	if s.opts.DefaultProvider == "" && len(s.order) > 0 {
		s.opts.DefaultProvider = s.order[0]
	}
	return s
}

// Providers returns the registered providers in registration order.
func (s *Service) Providers() []Provider {
	out := make([]Provider, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.providers[name])
	}
	return out
}

// Select applies the configured selection policy to a task profile.
func (s *Service) Select(profile TaskProfile) Selection {
	return s.opts.Policy.Select(profile, s.Providers())
}

// Healthy reports the health of the provider serving default traffic.
func (s *Service) Healthy(ctx context.Context) error {
	p, ok := s.providers[s.opts.DefaultProvider]
	if !ok {
		return fmt.Errorf("no default provider configured")
	}
	return p.Healthy(ctx)
}

// Complete executes the request with two-level fallback: the resolved
// provider's default model then its declared fallback models in order, then
// each provider in the configured fallback list with the same model walk.
// Stops at the first success; if everything fails the returned error matches
// ErrAllProvidersExhausted. Fatal for the current turn only.
func (s *Service) Complete(ctx context.Context, req Request) (*Response, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}

	var attempts []error
	for _, p := range s.providerChain(req.Provider) {
		for _, model := range s.modelChain(p, req.Model) {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			attempt := req
			attempt.Model = model

			start := time.Now()
			resp, err := p.Complete(ctx, attempt)
			if err == nil {
				resp.Provider = p.Name()
				resp.Model = model
				s.logger.Debug("completion served", "provider", p.Name(), "model", model, "duration", time.Since(start))
				return resp, nil
			}
			s.logger.Warn("completion attempt failed", "provider", p.Name(), "model", model, "error", err)
			attempts = append(attempts, fmt.Errorf("%s/%s: %w", p.Name(), model, err))
		}
	}
	return nil, &ExhaustedError{Attempts: attempts}
}

// CompleteStream executes a streaming completion. Only provider-level
// fallback applies: after the primary provider fails before emitting any
// chunk, exactly one alternate provider is attempted. Failures after output
// has started are forwarded on the error channel.
func (s *Service) CompleteStream(ctx context.Context, req Request) (<-chan Chunk, <-chan error, error) {
	if err := s.validate(req); err != nil {
		return nil, nil, err
	}

	chain := s.providerChain(req.Provider)
	if len(chain) > 2 {
		chain = chain[:2]
	}

	out := make(chan Chunk, 32)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		var attempts []error
		for _, p := range chain {
			delivered, err := s.pipeStream(ctx, p, req, out)
			if err == nil {
				return
			}
			s.logger.Warn("streaming attempt failed", "provider", p.Name(), "error", err)
			if delivered {
				// Partial output already reached the caller; do not retry.
				errCh <- fmt.Errorf("%s: %w", p.Name(), err)
				return
			}
			attempts = append(attempts, fmt.Errorf("%s: %w", p.Name(), err))
		}
		errCh <- &ExhaustedError{Attempts: attempts}
	}()

	return out, errCh, nil
}

// pipeStream forwards one provider's stream into out, reporting whether any
// chunk was delivered before a failure.
func (s *Service) pipeStream(ctx context.Context, p Provider, req Request, out chan<- Chunk) (delivered bool, err error) {
	chunks, errs := p.CompleteStream(ctx, req)
	for {
		select {
		case <-ctx.Done():
			return delivered, ctx.Err()
		case e, ok := <-errs:
			if ok && e != nil {
				return delivered, e
			}
			errs = nil
		case ck, ok := <-chunks:
			if !ok {
				// Stream complete; drain a trailing error if one is pending.
				if errs != nil {
					if e, ok := <-errs; ok && e != nil {
						return delivered, e
					}
				}
				return delivered, nil
			}
			select {
			case <-ctx.Done():
				return delivered, ctx.Err()
			case out <- ck:
				delivered = true
			}
		}
	}
}

// providerChain resolves the ordered list of providers to attempt: the named
// (or default) provider first, then the configured fallback order with the
// primary and unknown names removed.
func (s *Service) providerChain(named string) []Provider {
	primary := named
	if primary == "" {
		primary = s.opts.DefaultProvider
	}

	var chain []Provider
	if p, ok := s.providers[primary]; ok {
		chain = append(chain, p)
	}

	fallbacks := s.opts.FallbackOrder
	if fallbacks == nil {
		fallbacks = s.order
	}
	for _, name := range fallbacks {
		if name == primary {
			continue
		}
		if p, ok := s.providers[name]; ok {
			chain = append(chain, p)
		}
	}
	return chain
}

// modelChain resolves the ordered models to attempt for a provider: the
// requested (or default) model first, then the provider's declared fallbacks
// with duplicates removed.
func (s *Service) modelChain(p Provider, requested string) []string {
	models := p.Models()
	first := requested
	if first == "" {
		first = models.Default
	}

	chain := []string{first}
	for _, m := range models.Fallbacks {
		if m == first {
			continue
		}
		chain = append(chain, m)
	}
	return chain
}
