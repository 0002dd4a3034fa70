// Package agenthub provides a high-level façade over the agent orchestration
// runtime: the completion service, session store, router and lifecycle
// supervisor wired together. Most applications interact with this package by:
//  1. Creating a Runtime via New() (optionally overriding default in-memory services)
//  2. Registering one or more domain agents
//  3. Handling messages synchronously (HandleMessage) or as a stream (HandleMessageStream)
//
// All defaults are safe for local development and testing; production
// deployments supply a durable session KV, real providers and a structured
// logger.
package agenthub

import (
	"context"

	"github.com/freelancing-solutions/agenthub/agent"
	"github.com/freelancing-solutions/agenthub/completion"
	"github.com/freelancing-solutions/agenthub/lifecycle"
	"github.com/freelancing-solutions/agenthub/logging"
	"github.com/freelancing-solutions/agenthub/router"
	"github.com/freelancing-solutions/agenthub/session"
)

// Options configures the Runtime. Any unset service is initialized with an
// in-memory implementation.
type Options struct {
	// Sessions overrides the session store.
	Sessions *session.Store
	// UserContext overrides the per-user persistent context store.
	UserContext router.UserContextStore
	// Logger defaults to NoOpLogger.
	Logger logging.Logger
	// HandleSignals arms process termination handling in the supervisor.
	HandleSignals bool
}

// Runtime aggregates the orchestration services behind one entry point.
type Runtime struct {
	completions *completion.Service
	sessions    *session.Store
	supervisor  *lifecycle.Supervisor
	router      *router.Router
	logger      logging.Logger
}

// New creates a Runtime over the given completion service with optional overrides.
func New(completions *completion.Service, optFns ...func(o *Options)) *Runtime {
	opts := Options{
		Logger:        logging.NoOpLogger{},
		HandleSignals: true,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Sessions == nil {
		opts.Sessions = session.NewStore(func(o *session.Options) { o.Logger = opts.Logger })
	}
	if opts.UserContext == nil {
		opts.UserContext = router.NewInMemoryUserContext()
	}

	supervisor := lifecycle.NewSupervisor(func(o *lifecycle.Options) {
		o.Logger = opts.Logger
		o.HandleSignals = opts.HandleSignals
	})
	rt := router.New(supervisor, opts.Sessions, func(o *router.Options) {
		o.UserContext = opts.UserContext
		o.Logger = opts.Logger
	})

	return &Runtime{
		completions: completions,
		sessions:    opts.Sessions,
		supervisor:  supervisor,
		router:      rt,
		logger:      opts.Logger,
	}
}

// RegisterAgent wraps the implementation in a runner, registers it with the
// supervisor and returns it.
func (r *Runtime) RegisterAgent(impl agent.DomainAgent, cfg agent.Config) *agent.Runner {
	runner := agent.NewRunner(impl, r.completions, func(o *agent.Options) {
		o.Config = cfg
		o.Logger = r.logger
	})
	r.supervisor.Register(runner)
	return runner
}

// Start starts every registered agent.
func (r *Runtime) Start(ctx context.Context) { r.supervisor.StartAll(ctx) }

// Shutdown drains all agents.
func (r *Runtime) Shutdown(ctx context.Context) error { return r.supervisor.Shutdown(ctx) }

// Supervisor exposes the lifecycle supervisor.
func (r *Runtime) Supervisor() *lifecycle.Supervisor { return r.supervisor }

// Sessions exposes the session store.
func (r *Runtime) Sessions() *session.Store { return r.sessions }

// Completions exposes the completion service.
func (r *Runtime) Completions() *completion.Service { return r.completions }

// HandleMessage routes one conversational request to the best-fit agent.
func (r *Runtime) HandleMessage(ctx context.Context, req *router.Request) (*router.Response, error) {
	return r.router.Route(ctx, req)
}

// HandleMessageStream is the streaming variant of HandleMessage.
func (r *Runtime) HandleMessageStream(ctx context.Context, req *router.Request) (<-chan completion.Chunk, <-chan error, error) {
	return r.router.RouteStream(ctx, req)
}
