package lifecycle

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/freelancing-solutions/agenthub/agent"
	"github.com/freelancing-solutions/agenthub/core"
	"github.com/freelancing-solutions/agenthub/logging"
)

// Options holds dependency and configuration overrides passed to NewSupervisor.
type Options struct {
	// RestartGrace is the pause between stop and start during RestartAgent.
	RestartGrace time.Duration
	// HandleSignals arms SIGINT/SIGTERM handling when the first agent is
	// registered. Disable for tests and embedded use.
	HandleSignals bool
	// Logger receives supervision logs.
	Logger logging.Logger

	// exit replaces os.Exit in tests.
	exit func(code int)
}

// Supervisor is the canonical registry of agent runners plus their
// coordinated lifecycle operations. Safe for concurrent use.
type Supervisor struct {
	mu        sync.RWMutex
	agents    map[string]*agent.Runner
	listeners []Listener

	grace  time.Duration
	logger logging.Logger

	handleSignals bool
	signalOnce    sync.Once
	shutdownOnce  sync.Once
	exit          func(code int)
}

// NewSupervisor constructs an empty Supervisor with optional overrides.
func NewSupervisor(optFns ...func(o *Options)) *Supervisor {
	opts := Options{
		RestartGrace:  time.Second,
		HandleSignals: true,
		Logger:        logging.NoOpLogger{},
		exit:          os.Exit,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Supervisor{
		agents:        make(map[string]*agent.Runner),
		grace:         opts.RestartGrace,
		logger:        opts.Logger,
		handleSignals: opts.HandleSignals,
		exit:          opts.exit,
	}
}

// Register adds a runner to the registry and arms process-termination
// handling. Arming is idempotent: it happens once no matter how many agents
// register.
func (s *Supervisor) Register(r *agent.Runner) {
	s.mu.Lock()
	s.agents[r.ID()] = r
	s.mu.Unlock()

	if s.handleSignals {
		s.signalOnce.Do(s.armSignalHandler)
	}
}

// Get returns the runner registered under id, or nil.
func (s *Supervisor) Get(id string) *agent.Runner {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.agents[id]
}

// Agents returns the registered runners sorted by id. This is the read-only
// view the router scores against.
func (s *Supervisor) Agents() []*agent.Runner {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*agent.Runner, 0, len(s.agents))
	for _, r := range s.agents {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// AddListener registers a lifecycle event listener.
func (s *Supervisor) AddListener(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// StartAll starts every registered agent concurrently. Best-effort: each
// failure is reported as an error event without aborting the batch.
func (s *Supervisor) StartAll(ctx context.Context) {
	s.fanOut("start", EventStarted, func(r *agent.Runner) error { return r.Start(ctx) })
}

// StopAll stops every registered agent concurrently, best-effort.
func (s *Supervisor) StopAll(ctx context.Context) {
	s.fanOut("stop", EventStopped, func(r *agent.Runner) error { return r.Stop(ctx) })
}

// PauseAll pauses every registered agent concurrently, best-effort.
func (s *Supervisor) PauseAll(context.Context) {
	s.fanOut("pause", EventPaused, func(r *agent.Runner) error { return r.Pause() })
}

// ResumeAll resumes every registered agent concurrently, best-effort.
func (s *Supervisor) ResumeAll(context.Context) {
	s.fanOut("resume", EventResumed, func(r *agent.Runner) error { return r.Resume() })
}

func (s *Supervisor) fanOut(op string, kind EventKind, call func(r *agent.Runner) error) {
	var wg sync.WaitGroup
	for _, r := range s.Agents() {
		wg.Add(1)
		go func(r *agent.Runner) {
			defer wg.Done()
			if err := call(r); err != nil {
				s.logger.Error("bulk operation failed for agent", "operation", op, "agent_id", r.ID(), "error", err)
				s.emit(Event{
					AgentID:   r.ID(),
					AgentType: r.Type(),
					Kind:      EventError,
					Timestamp: time.Now().UTC(),
					Metadata:  map[string]any{"operation": op, "error": err.Error()},
				})
				return
			}
			s.emit(Event{AgentID: r.ID(), AgentType: r.Type(), Kind: kind, Timestamp: time.Now().UTC()})
		}(r)
	}
	wg.Wait()
}

// RestartAgent stops the agent, waits the configured grace interval and
// starts it again. Unlike the bulk operations this is not best-effort: a
// start failure after the grace period is returned to the caller.
func (s *Supervisor) RestartAgent(ctx context.Context, id string) error {
	r := s.Get(id)
	if r == nil {
		return fmt.Errorf("agent %s not registered", id)
	}

	if err := r.Stop(ctx); err != nil {
		s.logger.Warn("restart: stop failed", "agent_id", id, "error", err)
	} else {
		s.emit(Event{AgentID: id, AgentType: r.Type(), Kind: EventStopped, Timestamp: time.Now().UTC()})
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.grace):
	}

	if err := r.Start(ctx); err != nil {
		s.emit(Event{
			AgentID:   id,
			AgentType: r.Type(),
			Kind:      EventError,
			Timestamp: time.Now().UTC(),
			Metadata:  map[string]any{"operation": "restart", "error": err.Error()},
		})
		return fmt.Errorf("restart agent %s: %w", id, err)
	}
	s.emit(Event{AgentID: id, AgentType: r.Type(), Kind: EventStarted, Timestamp: time.Now().UTC()})
	return nil
}

// UnhealthyAgents returns every agent whose health check reports error status
// or an unhealthy completion backend.
func (s *Supervisor) UnhealthyAgents(ctx context.Context) []*agent.Runner {
	var unhealthy []*agent.Runner
	for _, r := range s.Agents() {
		if h := r.Health(ctx); !h.Healthy {
			unhealthy = append(unhealthy, r)
		}
	}
	return unhealthy
}

// Shutdown stops all agents, emits a final shutdown event and reports
// whether every stop succeeded. Reentrant-safe: only the first call runs the
// drain; later calls return immediately with a nil error.
func (s *Supervisor) Shutdown(ctx context.Context) error {
	var failed bool
	s.shutdownOnce.Do(func() {
		s.logger.Info("supervisor shutting down")
		for _, r := range s.Agents() {
			if err := r.Stop(ctx); err != nil {
				failed = true
				s.logger.Error("shutdown: failed to stop agent", "agent_id", r.ID(), "error", err)
				continue
			}
			s.emit(Event{AgentID: r.ID(), AgentType: r.Type(), Kind: EventStopped, Timestamp: time.Now().UTC()})
		}
		s.emit(Event{Kind: EventShutdown, Timestamp: time.Now().UTC()})
	})
	if failed {
		return fmt.Errorf("shutdown: one or more agents failed to stop")
	}
	return nil
}

// armSignalHandler subscribes to termination signals and triggers the
// graceful shutdown path; a stop failure terminates with a non-zero status.
// A second signal during shutdown is absorbed by the shutdown Once.
func (s *Supervisor) armSignalHandler() {
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		s.logger.Info("termination signal received", "signal", sig.String())
		if err := s.Shutdown(context.Background()); err != nil {
			s.exit(1)
			return
		}
		s.exit(0)
	}()
}

// emit delivers the event synchronously to every listener. Listener panics
// are caught and logged so one listener can never break delivery to the next.
func (s *Supervisor) emit(ev Event) {
	s.mu.RLock()
	listeners := make([]Listener, len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.RUnlock()

	for _, l := range listeners {
		func() {
			defer func() {
				if rec := recover(); rec != nil {
					s.logger.Error("lifecycle listener panicked", "event", string(ev.Kind), "panic", fmt.Sprint(rec))
				}
			}()
			l.OnLifecycleEvent(ev)
		}()
	}
}

// StatusOf is a convenience helper reporting a registered agent's status.
func (s *Supervisor) StatusOf(id string) (core.AgentStatus, bool) {
	r := s.Get(id)
	if r == nil {
		return "", false
	}
	return r.Status(), true
}
