package router

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/freelancing-solutions/agenthub/agent"
	"github.com/freelancing-solutions/agenthub/completion"
	"github.com/freelancing-solutions/agenthub/core"
	"github.com/freelancing-solutions/agenthub/logging"
	"github.com/freelancing-solutions/agenthub/session"
)

// historyWindow is the number of recent turns handed to the agent pipeline.
const historyWindow = 20

// ErrNoSuitableAgent is returned when no registered agent can serve a request.
var ErrNoSuitableAgent = errors.New("no suitable agent")

// AgentSource is the read-only registry view the router scores against. The
// lifecycle supervisor implements it; the router never mutates agent state.
type AgentSource interface {
	Agents() []*agent.Runner
}

// UserContextStore persists per-user context across sessions. The production
// profile store is an external collaborator; InMemoryUserContext covers tests
// and single-process deployments.
type UserContextStore interface {
	Get(ctx context.Context, userID string) (map[string]any, error)
	Merge(ctx context.Context, userID string, delta map[string]any) error
}

// InMemoryUserContext is a volatile UserContextStore.
type InMemoryUserContext struct {
	mu   sync.RWMutex
	data map[string]map[string]any
}

// NewInMemoryUserContext constructs an empty in-memory user context store.
func NewInMemoryUserContext() *InMemoryUserContext {
	return &InMemoryUserContext{data: make(map[string]map[string]any)}
}

// Get implements UserContextStore.
func (s *InMemoryUserContext) Get(_ context.Context, userID string) (map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]any, len(s.data[userID]))
	for k, v := range s.data[userID] {
		out[k] = v
	}
	return out, nil
}

// Merge implements UserContextStore.
func (s *InMemoryUserContext) Merge(_ context.Context, userID string, delta map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data[userID] == nil {
		s.data[userID] = make(map[string]any, len(delta))
	}
	for k, v := range delta {
		s.data[userID][k] = v
	}
	return nil
}

// Request is an inbound conversational request. An empty SessionID creates a
// fresh session; a supplied one must resolve or the call fails so the caller
// can create a new session explicitly.
type Request struct {
	SessionID      string           `json:"session_id,omitempty"`
	UserID         string           `json:"user_id"`
	Message        string           `json:"message"`
	Context        map[string]any   `json:"context,omitempty"`
	DisabledAgents []core.AgentType `json:"disabled_agents,omitempty"`
}

// Response wraps the selected agent's answer with routing metadata.
type Response struct {
	SessionID   string         `json:"session_id"`
	AgentID     string         `json:"agent_id"`
	AgentType   core.AgentType `json:"agent_type"`
	Intent      core.Intent    `json:"intent"`
	Content     string         `json:"content"`
	Suggestions []string       `json:"suggestions,omitempty"`
	Actions     []core.Action  `json:"actions,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Options holds dependency overrides passed to New.
type Options struct {
	// UserContext persists per-user context. Defaults to in-memory.
	UserContext UserContextStore
	// Logger receives routing decision logs.
	Logger logging.Logger
}

// Router dispatches conversational requests to the best-fit agent.
type Router struct {
	agents   AgentSource
	sessions *session.Store
	userCtx  UserContextStore
	logger   logging.Logger
}

// New constructs a Router over the registry view and session store.
func New(agents AgentSource, sessions *session.Store, optFns ...func(o *Options)) *Router {
	opts := Options{
		UserContext: NewInMemoryUserContext(),
		Logger:      logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Router{agents: agents, sessions: sessions, userCtx: opts.UserContext, logger: opts.Logger}
}

// Route resolves the session, classifies the message, selects the top-scoring
// agent and runs its pipeline, then records the turn in the session and any
// agent context update in the user's persistent context.
func (r *Router) Route(ctx context.Context, req *Request) (*Response, error) {
	start := time.Now()

	sess, err := r.resolveSession(ctx, req)
	if err != nil {
		return nil, err
	}

	intent := ClassifyIntent(req.Message)
	selected, score, err := r.selectAgent(ctx, intent, req)
	if err != nil {
		return nil, err
	}

	areq, err := r.buildAgentRequest(ctx, req, sess, intent)
	if err != nil {
		return nil, err
	}

	if err := r.sessions.AddMessage(ctx, sess.ID, core.RoleUser, req.Message, nil, ""); err != nil {
		return nil, fmt.Errorf("record user message: %w", err)
	}

	resp := selected.Process(ctx, areq)

	if err := r.recordOutcome(ctx, sess.ID, req.UserID, intent, selected, resp); err != nil {
		return nil, err
	}

	r.logger.Info("request routed", "session_id", sess.ID, "intent", string(intent), "agent_id", selected.ID(), "score", score, "duration", time.Since(start))

	return &Response{
		SessionID:   sess.ID,
		AgentID:     resp.AgentID,
		AgentType:   resp.AgentType,
		Intent:      intent,
		Content:     resp.Content,
		Suggestions: resp.Suggestions,
		Actions:     resp.Actions,
		Metadata:    resp.Metadata,
	}, nil
}

// RouteStream is the streaming variant: same session resolution,
// classification and selection, then the agent's streaming pipeline. Only the
// user turn is recorded; streamed output is not post-processed into history.
func (r *Router) RouteStream(ctx context.Context, req *Request) (<-chan completion.Chunk, <-chan error, error) {
	sess, err := r.resolveSession(ctx, req)
	if err != nil {
		return nil, nil, err
	}

	intent := ClassifyIntent(req.Message)
	selected, _, err := r.selectAgent(ctx, intent, req)
	if err != nil {
		return nil, nil, err
	}

	areq, err := r.buildAgentRequest(ctx, req, sess, intent)
	if err != nil {
		return nil, nil, err
	}

	if err := r.sessions.AddMessage(ctx, sess.ID, core.RoleUser, req.Message, nil, ""); err != nil {
		return nil, nil, fmt.Errorf("record user message: %w", err)
	}
	lastIntent := intent
	if _, err := r.sessions.Update(ctx, sess.ID, session.Patch{LastIntent: &lastIntent}); err != nil {
		return nil, nil, fmt.Errorf("update session: %w", err)
	}

	return selected.ProcessStream(ctx, areq)
}

// resolveSession loads the supplied session or creates a fresh one. A stale
// session id is surfaced to the caller rather than silently replaced.
func (r *Router) resolveSession(ctx context.Context, req *Request) (*session.Session, error) {
	if req.SessionID == "" {
		sess, err := r.sessions.Create(ctx, req.UserID)
		if err != nil {
			return nil, fmt.Errorf("create session: %w", err)
		}
		return sess, nil
	}
	sess, err := r.sessions.Get(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	return sess, nil
}

func (r *Router) selectAgent(_ context.Context, intent core.Intent, req *Request) (*agent.Runner, int, error) {
	disabled := make(map[core.AgentType]bool, len(req.DisabledAgents))
	for _, t := range req.DisabledAgents {
		disabled[t] = true
	}

	candidates := ScoreAgents(intent, r.agents.Agents(), disabled)
	if len(candidates) == 0 {
		return nil, 0, fmt.Errorf("intent %s: %w", intent, ErrNoSuitableAgent)
	}
	top := candidates[0]
	return top.Runner, top.Score, nil
}

// buildAgentRequest merges session context, user context and request-supplied
// context; request-supplied values take precedence on key collision.
func (r *Router) buildAgentRequest(ctx context.Context, req *Request, sess *session.Session, intent core.Intent) (*core.AgentRequest, error) {
	userContext, err := r.userCtx.Get(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("load user context: %w", err)
	}

	merged := make(map[string]any)
	for k, v := range sess.Context.Shared {
		merged[k] = v
	}
	for k, v := range userContext {
		merged[k] = v
	}
	for k, v := range req.Context {
		merged[k] = v
	}
	if sess.Context.CurrentGoal != "" {
		merged["current_goal"] = sess.Context.CurrentGoal
	}

	history := sess.Messages
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}

	return &core.AgentRequest{
		SessionID: sess.ID,
		UserID:    req.UserID,
		Message:   req.Message,
		Intent:    intent,
		Context:   merged,
		History:   history,
	}, nil
}

func (r *Router) recordOutcome(ctx context.Context, sessionID, userID string, intent core.Intent, selected *agent.Runner, resp *core.AgentResponse) error {
	if err := r.sessions.AddMessage(ctx, sessionID, core.RoleAssistant, resp.Content, resp.Metadata, resp.AgentType); err != nil {
		return fmt.Errorf("record agent message: %w", err)
	}

	agentType := selected.Type()
	lastIntent := intent
	if _, err := r.sessions.Update(ctx, sessionID, session.Patch{AgentType: &agentType, LastIntent: &lastIntent}); err != nil {
		return fmt.Errorf("update session: %w", err)
	}

	if len(resp.ContextUpdate) > 0 {
		if err := r.userCtx.Merge(ctx, userID, resp.ContextUpdate); err != nil {
			return fmt.Errorf("merge user context: %w", err)
		}
	}
	return nil
}
