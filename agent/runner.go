package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/freelancing-solutions/agenthub/completion"
	"github.com/freelancing-solutions/agenthub/core"
	"github.com/freelancing-solutions/agenthub/internal/util"
	"github.com/freelancing-solutions/agenthub/logging"
)

const (
	defaultTemperature = 0.7
	defaultMaxTokens   = 2048
)

// Options holds dependency and configuration overrides passed to NewRunner.
type Options struct {
	// ID identifies the runner instance. Defaults to a generated UUID.
	ID string
	// Config carries the generation settings merged into every request.
	Config Config
	// Logger receives pipeline and lifecycle logs.
	Logger logging.Logger
}

// Runner wraps a DomainAgent with the shared request pipeline, the agent
// status machine and rolling metrics. One runner serves many sessions
// concurrently; all mutable state is guarded by a single mutex.
type Runner struct {
	id          string
	impl        DomainAgent
	completions *completion.Service
	cfg         Config
	logger      logging.Logger

	mu      sync.Mutex
	status  core.AgentStatus
	metrics core.AgentMetrics
	// inFlight counts concurrent Process calls so the status only returns to
	// active when the last one finishes.
	inFlight int
}

// NewRunner constructs a Runner for the given agent implementation.
func NewRunner(impl DomainAgent, completions *completion.Service, optFns ...func(o *Options)) *Runner {
	opts := Options{
		ID:     util.NewID(),
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Config.Temperature == 0 {
		opts.Config.Temperature = defaultTemperature
	}
	if opts.Config.MaxTokens == 0 {
		opts.Config.MaxTokens = defaultMaxTokens
	}

	return &Runner{
		id:          opts.ID,
		impl:        impl,
		completions: completions,
		cfg:         opts.Config,
		logger:      opts.Logger,
		status:      core.AgentStatusInactive,
	}
}

// ID returns the runner's identifier.
func (r *Runner) ID() string { return r.id }

// Type returns the wrapped agent's conversational domain.
func (r *Runner) Type() core.AgentType { return r.impl.Type() }

// Capabilities returns the wrapped agent's declared capability sets.
func (r *Runner) Capabilities() core.Capabilities { return r.impl.Capabilities() }

// Status returns the current agent status.
func (r *Runner) Status() core.AgentStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Metrics returns a snapshot of the rolling metrics.
func (r *Runner) Metrics() core.AgentMetrics {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := r.metrics
	m.ErrorRate = errorRate(m)
	return m
}

// Start initializes the wrapped agent and transitions inactive -> active.
// Calling Start on an already active or busy runner is a no-op.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.status == core.AgentStatusActive || r.status == core.AgentStatusBusy {
		r.mu.Unlock()
		return nil
	}
	r.mu.Unlock()

	if err := r.impl.Initialize(ctx); err != nil {
		r.setStatus(core.AgentStatusError)
		return fmt.Errorf("agent %s initialization failed: %w", r.id, err)
	}

	r.mu.Lock()
	r.status = core.AgentStatusActive
	if r.metrics.StartedAt.IsZero() {
		r.metrics.StartedAt = time.Now().UTC()
	}
	r.mu.Unlock()

	r.logger.Debug("agent started", "agent_id", r.id, "agent_type", string(r.impl.Type()))
	return nil
}

// Stop runs agent cleanup and transitions to inactive from any state. The
// status becomes inactive even when cleanup fails; repeated calls no-op.
func (r *Runner) Stop(ctx context.Context) error {
	r.mu.Lock()
	if r.status == core.AgentStatusInactive {
		r.mu.Unlock()
		return nil
	}
	r.mu.Unlock()

	err := r.impl.Cleanup(ctx)
	r.setStatus(core.AgentStatusInactive)
	if err != nil {
		return fmt.Errorf("agent %s cleanup failed: %w", r.id, err)
	}

	r.logger.Debug("agent stopped", "agent_id", r.id, "agent_type", string(r.impl.Type()))
	return nil
}

// Pause transitions active -> inactive without running cleanup.
func (r *Runner) Pause() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status != core.AgentStatusActive {
		return fmt.Errorf("agent %s cannot pause from status %s", r.id, r.status)
	}
	r.status = core.AgentStatusInactive
	return nil
}

// Resume transitions inactive -> active without re-running initialization.
func (r *Runner) Resume() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status != core.AgentStatusInactive {
		return fmt.Errorf("agent %s cannot resume from status %s", r.id, r.status)
	}
	r.status = core.AgentStatusActive
	return nil
}

// Process runs the full request pipeline. Pipeline failures never escape as
// errors: they are converted into the agent's fallback response so the router
// always receives a usable answer.
func (r *Runner) Process(ctx context.Context, req *core.AgentRequest) *core.AgentResponse {
	start := time.Now()
	r.beginRequest()

	resp, err := r.execute(ctx, req)
	if err != nil {
		r.endRequest(start, false)
		r.logger.Warn("agent pipeline failed", "agent_id", r.id, "session_id", req.SessionID, "error", err)

		fb := r.impl.HandleError(req, err)
		if fb == nil {
			fb = &core.AgentResponse{
				Content:     "I ran into a problem handling that request. Please try again in a moment.",
				Suggestions: []string{"Rephrase your request", "Try again shortly"},
				Fallback:    true,
			}
		}
		fb.Fallback = true
		r.stamp(fb)
		return fb
	}

	r.endRequest(start, true)
	resp.Confidence = confidenceFor(resp.Content)
	r.stamp(resp)
	return resp
}

// execute runs validate -> preprocess -> build -> complete -> postprocess.
// PostProcessResponse is only reached when every earlier step succeeded.
func (r *Runner) execute(ctx context.Context, req *core.AgentRequest) (*core.AgentResponse, error) {
	if err := r.impl.ValidateRequest(req); err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}

	enriched, err := r.impl.PreProcessRequest(req)
	if err != nil {
		return nil, fmt.Errorf("preprocess: %w", err)
	}

	creq, err := r.buildRequest(enriched)
	if err != nil {
		return nil, err
	}

	raw, err := r.completions.Complete(ctx, *creq)
	if err != nil {
		return nil, fmt.Errorf("completion: %w", err)
	}

	resp, err := r.impl.PostProcessResponse(enriched, raw)
	if err != nil {
		return nil, fmt.Errorf("postprocess: %w", err)
	}
	return resp, nil
}

// ProcessStream runs pipeline steps 1-4 then forwards the completion stream
// directly to the caller. There is no structured post-processing of partial
// chunks; failures after streaming starts surface on the error channel
// because partial output has already been delivered.
func (r *Runner) ProcessStream(ctx context.Context, req *core.AgentRequest) (<-chan completion.Chunk, <-chan error, error) {
	start := time.Now()
	r.beginRequest()

	fail := func(err error) (<-chan completion.Chunk, <-chan error, error) {
		r.endRequest(start, false)
		return nil, nil, err
	}

	if err := r.impl.ValidateRequest(req); err != nil {
		return fail(fmt.Errorf("validate: %w", err))
	}
	enriched, err := r.impl.PreProcessRequest(req)
	if err != nil {
		return fail(fmt.Errorf("preprocess: %w", err))
	}
	creq, err := r.buildRequest(enriched)
	if err != nil {
		return fail(err)
	}

	chunks, errs, err := r.completions.CompleteStream(ctx, *creq)
	if err != nil {
		return fail(fmt.Errorf("completion: %w", err))
	}

	out := make(chan completion.Chunk, 32)
	outErr := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(outErr)

		ok := true
		for chunks != nil || errs != nil {
			select {
			case ck, open := <-chunks:
				if !open {
					chunks = nil
					continue
				}
				// The forward must not block forever when the caller
				// cancels and stops draining.
				select {
				case out <- ck:
				case <-ctx.Done():
					r.endRequest(start, false)
					return
				}
			case e, open := <-errs:
				if !open {
					errs = nil
					continue
				}
				if e != nil {
					ok = false
					outErr <- e
				}
			}
		}
		r.endRequest(start, ok)
	}()

	return out, outErr, nil
}

// buildRequest applies the agent's translation hook then merges the
// configured generation settings and system prompt.
func (r *Runner) buildRequest(req *core.AgentRequest) (*completion.Request, error) {
	creq, err := r.impl.BuildCompletionRequest(req)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	if creq.Temperature == 0 {
		creq.Temperature = r.cfg.Temperature
	}
	if creq.MaxTokens == 0 {
		creq.MaxTokens = r.cfg.MaxTokens
	}
	if creq.Provider == "" {
		creq.Provider = r.cfg.Provider
	}

	if prompt := BuildSystemPrompt(r.cfg, req.Context); prompt != "" {
		system := core.Message{Role: core.RoleSystem, Content: prompt, Timestamp: time.Now().UTC()}
		creq.Messages = append([]core.Message{system}, creq.Messages...)
	}
	return creq, nil
}

// ApplyConfig forwards configuration changes to the agent and updates the
// runner's own generation settings.
func (r *Runner) ApplyConfig(cfg Config) error {
	if err := r.impl.ApplyConfig(cfg); err != nil {
		return fmt.Errorf("agent %s rejected config: %w", r.id, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if cfg.Temperature != 0 {
		r.cfg.Temperature = cfg.Temperature
	}
	if cfg.MaxTokens != 0 {
		r.cfg.MaxTokens = cfg.MaxTokens
	}
	if cfg.SystemPrompt != "" {
		r.cfg.SystemPrompt = cfg.SystemPrompt
	}
	if cfg.Behavior != "" {
		r.cfg.Behavior = cfg.Behavior
	}
	if cfg.Provider != "" {
		r.cfg.Provider = cfg.Provider
	}
	return nil
}

func (r *Runner) setStatus(s core.AgentStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status = s
}

func (r *Runner) beginRequest() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inFlight++
	r.status = core.AgentStatusBusy
	r.metrics.Requests++
	r.metrics.LastActivity = time.Now().UTC()
}

func (r *Runner) endRequest(start time.Time, success bool) {
	latency := time.Since(start)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.inFlight--
	if success {
		r.metrics.Successes++
		if r.inFlight == 0 && r.status == core.AgentStatusBusy {
			r.status = core.AgentStatusActive
		}
	} else {
		r.metrics.Failures++
		r.status = core.AgentStatusError
	}

	// Rolling average over all completed requests.
	completed := r.metrics.Successes + r.metrics.Failures
	if completed == 1 {
		r.metrics.AverageLatency = latency
	} else {
		prev := r.metrics.AverageLatency
		r.metrics.AverageLatency = prev + (latency-prev)/time.Duration(completed)
	}
	r.metrics.ErrorRate = errorRate(r.metrics)
	r.metrics.LastActivity = time.Now().UTC()
}

func errorRate(m core.AgentMetrics) float64 {
	completed := m.Successes + m.Failures
	if completed == 0 {
		return 0
	}
	return float64(m.Failures) / float64(completed)
}

func (r *Runner) stamp(resp *core.AgentResponse) {
	resp.AgentID = r.id
	resp.AgentType = r.impl.Type()
	resp.Timestamp = time.Now().UTC()
	if resp.Metadata == nil {
		resp.Metadata = map[string]any{}
	}
	resp.Metadata["agent_id"] = r.id
	resp.Metadata["agent_type"] = string(r.impl.Type())
}

// confidenceFor derives a response confidence heuristic from content length.
// Longer answers correlate with the model having enough context to elaborate.
func confidenceFor(content string) float64 {
	switch n := len(content); {
	case n == 0:
		return 0
	case n < 80:
		return 0.5
	case n < 400:
		return 0.75
	default:
		return 0.9
	}
}
