package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/freelancing-solutions/agenthub/core"
	"github.com/freelancing-solutions/agenthub/internal/util"
	"github.com/freelancing-solutions/agenthub/logging"
)

const (
	// DefaultTTL is the inactivity window after which a session expires.
	DefaultTTL = 24 * time.Hour
	// DefaultMaxHistory caps the message history; oldest entries evict first.
	DefaultMaxHistory = 100

	keyPrefix = "session:"
)

// ErrSessionNotFound is returned when a session is absent or expired.
var ErrSessionNotFound = errors.New("session not found")

// ErrSessionCompleted is returned for status transitions out of completed.
var ErrSessionCompleted = errors.New("session already completed")

// Options holds dependency and configuration overrides passed to NewStore.
type Options struct {
	// KV is the backing key-value store. Defaults to NewInMemoryKV.
	KV KV
	// TTL is the session inactivity window. Defaults to DefaultTTL.
	TTL time.Duration
	// MaxHistory caps the message history. Defaults to DefaultMaxHistory.
	MaxHistory int
	// Logger receives store operation logs.
	Logger logging.Logger
	// Clock overrides the time source for tests.
	Clock func() time.Time
}

// Store owns all sessions. Each session is serialized as one value under a
// key derived from its id; the TTL is refreshed on every write. Concurrent
// updates to one session are last-write-wins: the store re-reads then writes
// the whole session without conflict detection.
type Store struct {
	kv         KV
	ttl        time.Duration
	maxHistory int
	logger     logging.Logger
	clock      func() time.Time
}

// NewStore constructs a Store with optional overrides.
func NewStore(optFns ...func(o *Options)) *Store {
	opts := Options{
		TTL:        DefaultTTL,
		MaxHistory: DefaultMaxHistory,
		Logger:     logging.NoOpLogger{},
		Clock:      time.Now,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.KV == nil {
		opts.KV = NewInMemoryKV()
	}
	return &Store{kv: opts.KV, ttl: opts.TTL, maxHistory: opts.MaxHistory, logger: opts.Logger, clock: opts.Clock}
}

// CreateOptions seed optional fields of a new session.
type CreateOptions struct {
	AgentType   core.AgentType
	Goal        string
	Preferences *Preferences
}

// Create allocates a new active session for the user with default
// preferences and an empty context block.
func (s *Store) Create(ctx context.Context, userID string, optFns ...func(o *CreateOptions)) (*Session, error) {
	var opts CreateOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	now := s.clock().UTC()
	sess := &Session{
		ID:           util.NewID(),
		UserID:       userID,
		AgentType:    opts.AgentType,
		Created:      now,
		LastActivity: now,
		Context:      Context{CurrentGoal: opts.Goal, Shared: map[string]any{}},
		Messages:     []core.Message{},
		Preferences:  DefaultPreferences(),
		Status:       StatusActive,
	}
	if opts.Preferences != nil {
		sess.Preferences = *opts.Preferences
	}

	if err := s.save(ctx, sess); err != nil {
		return nil, err
	}
	s.logger.Debug("session created", "session_id", sess.ID, "user_id", userID)
	return sess, nil
}

// Get returns the session unless it has expired, in which case it is deleted
// and reported as ErrSessionNotFound.
func (s *Store) Get(ctx context.Context, id string) (*Session, error) {
	sess, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.Expired(s.clock().UTC(), s.ttl) {
		if derr := s.kv.Delete(ctx, keyPrefix+id); derr != nil {
			s.logger.Warn("failed to purge expired session", "session_id", id, "error", derr)
		}
		s.logger.Debug("session expired", "session_id", id)
		return nil, fmt.Errorf("session %s expired: %w", id, ErrSessionNotFound)
	}
	return sess, nil
}

// Patch describes a shallow merge applied by Update. Nil fields are left
// untouched; Context keys merge into the shared context map.
type Patch struct {
	AgentType   *core.AgentType
	Status      *Status
	Goal        *string
	LastIntent  *core.Intent
	Context     map[string]any
	Preferences *Preferences
}

// Update shallow-merges the patch into the session and refreshes its
// last-activity timestamp. Status changes out of completed are rejected.
func (s *Store) Update(ctx context.Context, id string, patch Patch) (*Session, error) {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Status != nil {
		if sess.Status == StatusCompleted && *patch.Status != StatusCompleted {
			return nil, fmt.Errorf("session %s: %w", id, ErrSessionCompleted)
		}
		sess.Status = *patch.Status
	}
	if patch.AgentType != nil {
		sess.AgentType = *patch.AgentType
	}
	if patch.Goal != nil {
		sess.Context.CurrentGoal = *patch.Goal
	}
	if patch.LastIntent != nil {
		sess.Context.LastIntent = *patch.LastIntent
	}
	if patch.Preferences != nil {
		sess.Preferences = *patch.Preferences
	}
	if len(patch.Context) > 0 {
		if sess.Context.Shared == nil {
			sess.Context.Shared = map[string]any{}
		}
		for k, v := range patch.Context {
			sess.Context.Shared[k] = v
		}
	}

	sess.LastActivity = s.clock().UTC()
	if err := s.save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// AddMessage appends a message to the session history, evicting the oldest
// entries once the cap is exceeded. Fails with ErrSessionNotFound when the
// session is absent or expired.
func (s *Store) AddMessage(ctx context.Context, id, role, content string, metadata map[string]any, agentType core.AgentType) error {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	now := s.clock().UTC()
	sess.Messages = append(sess.Messages, core.Message{
		Role:      role,
		Content:   content,
		Timestamp: now,
		AgentType: agentType,
		Metadata:  metadata,
	})
	if over := len(sess.Messages) - s.maxHistory; over > 0 {
		sess.Messages = append([]core.Message(nil), sess.Messages[over:]...)
	}

	sess.Context.Metrics.MessageCount++
	sess.Context.Metrics.Duration = now.Sub(sess.Created)
	sess.LastActivity = now

	return s.save(ctx, sess)
}

// History returns the session's messages in chronological order. A positive
// limit truncates to the most recent messages.
func (s *Store) History(ctx context.Context, id string, limit int) ([]core.Message, error) {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	messages := sess.Messages
	if limit > 0 && len(messages) > limit {
		messages = messages[len(messages)-limit:]
	}
	out := make([]core.Message, len(messages))
	copy(out, messages)
	return out, nil
}

// Pause transitions an active session to paused.
func (s *Store) Pause(ctx context.Context, id string) error {
	return s.transition(ctx, id, StatusPaused, StatusActive)
}

// Resume transitions a paused session back to active.
func (s *Store) Resume(ctx context.Context, id string) error {
	return s.transition(ctx, id, StatusActive, StatusPaused)
}

// Complete finalizes the session, fixing its duration metric. There is no
// transition out of completed.
func (s *Store) Complete(ctx context.Context, id string) error {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if sess.Status == StatusCompleted {
		return nil
	}
	if sess.Status != StatusActive && sess.Status != StatusPaused {
		return fmt.Errorf("session %s cannot complete from status %s", id, sess.Status)
	}
	now := s.clock().UTC()
	sess.Status = StatusCompleted
	sess.Context.Metrics.Duration = now.Sub(sess.Created)
	sess.LastActivity = now
	return s.save(ctx, sess)
}

// Delete removes the session outright.
func (s *Store) Delete(ctx context.Context, id string) error {
	return s.kv.Delete(ctx, keyPrefix+id)
}

func (s *Store) transition(ctx context.Context, id string, to Status, from Status) error {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if sess.Status == StatusCompleted {
		return fmt.Errorf("session %s: %w", id, ErrSessionCompleted)
	}
	if sess.Status != from {
		return fmt.Errorf("session %s cannot move to %s from status %s", id, to, sess.Status)
	}
	sess.Status = to
	sess.LastActivity = s.clock().UTC()
	return s.save(ctx, sess)
}

// Analytics aggregates cross-session statistics.
type Analytics struct {
	TotalSessions   int                    `json:"total_sessions"`
	ByStatus        map[Status]int         `json:"by_status"`
	ByAgentType     map[core.AgentType]int `json:"by_agent_type"`
	AverageDuration time.Duration          `json:"average_duration"`
	TotalMessages   int                    `json:"total_messages"`
}

// Analytics scans all stored sessions and aggregates counts by status and
// agent type, average duration and total messages. Computed on demand; the
// store stays bounded through TTL-based eviction, so a full scan is
// acceptable.
func (s *Store) Analytics(ctx context.Context) (*Analytics, error) {
	keys, err := s.kv.Keys(ctx)
	if err != nil {
		return nil, fmt.Errorf("enumerate sessions: %w", err)
	}

	out := &Analytics{
		ByStatus:    map[Status]int{},
		ByAgentType: map[core.AgentType]int{},
	}
	var totalDuration time.Duration
	now := s.clock().UTC()

	for _, key := range keys {
		if !strings.HasPrefix(key, keyPrefix) {
			continue
		}
		sess, err := s.load(ctx, strings.TrimPrefix(key, keyPrefix))
		if err != nil {
			continue
		}
		if sess.Expired(now, s.ttl) {
			continue
		}
		out.TotalSessions++
		out.ByStatus[sess.Status]++
		if sess.AgentType != "" {
			out.ByAgentType[sess.AgentType]++
		}
		out.TotalMessages += sess.Context.Metrics.MessageCount
		totalDuration += sess.Context.Metrics.Duration
	}

	if out.TotalSessions > 0 {
		out.AverageDuration = totalDuration / time.Duration(out.TotalSessions)
	}
	return out, nil
}

// Cleanup removes every expired or completed session in one sweep. Intended
// to run periodically to bound storage, independent of per-read TTL checks.
func (s *Store) Cleanup(ctx context.Context) (int, error) {
	keys, err := s.kv.Keys(ctx)
	if err != nil {
		return 0, fmt.Errorf("enumerate sessions: %w", err)
	}

	removed := 0
	now := s.clock().UTC()
	for _, key := range keys {
		if !strings.HasPrefix(key, keyPrefix) {
			continue
		}
		id := strings.TrimPrefix(key, keyPrefix)
		sess, err := s.load(ctx, id)
		if err != nil {
			continue
		}
		if sess.Expired(now, s.ttl) || sess.Status == StatusCompleted {
			if err := s.kv.Delete(ctx, key); err != nil {
				s.logger.Warn("cleanup failed to delete session", "session_id", id, "error", err)
				continue
			}
			removed++
		}
	}
	if removed > 0 {
		s.logger.Info("session cleanup complete", "removed", removed)
	}
	return removed, nil
}

func (s *Store) load(ctx context.Context, id string) (*Session, error) {
	data, ok, err := s.kv.Get(ctx, keyPrefix+id)
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, ErrSessionNotFound)
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	return &sess, nil
}

func (s *Store) save(ctx context.Context, sess *Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", sess.ID, err)
	}
	if err := s.kv.Set(ctx, keyPrefix+sess.ID, data, s.ttl); err != nil {
		return fmt.Errorf("store session %s: %w", sess.ID, err)
	}
	return nil
}
