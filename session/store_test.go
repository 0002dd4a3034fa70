package session

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freelancing-solutions/agenthub/core"
)

// fakeClock is a mutable time source shared between a Store and its KV.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestStore(clock *fakeClock, optFns ...func(o *Options)) *Store {
	kv := NewInMemoryKV()
	kv.SetClock(clock.Now)
	return NewStore(append([]func(o *Options){func(o *Options) {
		o.KV = kv
		o.Clock = clock.Now
	}}, optFns...)...)
}

func TestStore_Create(t *testing.T) {
	store := newTestStore(newFakeClock())

	sess, err := store.Create(context.Background(), "user-1")
	require.NoError(t, err)
	assert.NotEmpty(t, sess.ID)
	assert.Equal(t, "user-1", sess.UserID)
	assert.Equal(t, StatusActive, sess.Status)
	assert.Equal(t, DefaultPreferences(), sess.Preferences)
	assert.Empty(t, sess.Messages)

	got, err := store.Get(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, got.ID)
}

func TestStore_Create_WithOptions(t *testing.T) {
	store := newTestStore(newFakeClock())

	sess, err := store.Create(context.Background(), "user-1", func(o *CreateOptions) {
		o.AgentType = core.AgentTypeInterviewPrep
		o.Goal = "land a backend role"
	})
	require.NoError(t, err)
	assert.Equal(t, core.AgentTypeInterviewPrep, sess.AgentType)
	assert.Equal(t, "land a backend role", sess.Context.CurrentGoal)
}

func TestStore_Get_Unknown(t *testing.T) {
	store := newTestStore(newFakeClock())
	_, err := store.Get(context.Background(), "no-such-session")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestStore_AddMessageAndHistory(t *testing.T) {
	clock := newFakeClock()
	store := newTestStore(clock)
	ctx := context.Background()

	sess, err := store.Create(ctx, "user-1")
	require.NoError(t, err)

	require.NoError(t, store.AddMessage(ctx, sess.ID, core.RoleUser, "first", nil, ""))
	clock.Advance(time.Minute)
	require.NoError(t, store.AddMessage(ctx, sess.ID, core.RoleAssistant, "second", nil, core.AgentTypeGeneral))
	clock.Advance(time.Minute)
	require.NoError(t, store.AddMessage(ctx, sess.ID, core.RoleUser, "third", nil, ""))

	history, err := store.History(ctx, sess.ID, 0)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "first", history[0].Content)
	assert.Equal(t, "third", history[len(history)-1].Content, "last element is the most recent message")

	// Positive limits keep the most recent messages, still chronological.
	recent, err := store.History(ctx, sess.ID, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "second", recent[0].Content)
	assert.Equal(t, "third", recent[1].Content)

	got, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Context.Metrics.MessageCount)
	assert.Equal(t, 2*time.Minute, got.Context.Metrics.Duration)
}

func TestStore_AddMessage_EvictsOldestBeyondCap(t *testing.T) {
	store := newTestStore(newFakeClock(), func(o *Options) { o.MaxHistory = 5 })
	ctx := context.Background()

	sess, err := store.Create(ctx, "user-1")
	require.NoError(t, err)

	for i := 1; i <= 8; i++ {
		require.NoError(t, store.AddMessage(ctx, sess.ID, core.RoleUser, fmt.Sprintf("msg-%d", i), nil, ""))
	}

	history, err := store.History(ctx, sess.ID, 0)
	require.NoError(t, err)
	require.Len(t, history, 5)
	assert.Equal(t, "msg-4", history[0].Content, "oldest messages evicted first")
	assert.Equal(t, "msg-8", history[4].Content)

	// MessageCount keeps counting past the cap.
	got, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, 8, got.Context.Metrics.MessageCount)
}

func TestStore_DefaultHistoryCap(t *testing.T) {
	assert.Equal(t, 100, DefaultMaxHistory)
	assert.Equal(t, 24*time.Hour, DefaultTTL)
}

func TestStore_TTLExpiry(t *testing.T) {
	clock := newFakeClock()
	store := newTestStore(clock)
	ctx := context.Background()

	sess, err := store.Create(ctx, "user-1")
	require.NoError(t, err)

	// Activity refreshes the TTL.
	clock.Advance(23 * time.Hour)
	require.NoError(t, store.AddMessage(ctx, sess.ID, core.RoleUser, "still here", nil, ""))
	clock.Advance(23 * time.Hour)
	_, err = store.Get(ctx, sess.ID)
	require.NoError(t, err)

	// Past the inactivity window the session is gone.
	clock.Advance(2 * time.Hour)
	_, err = store.Get(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	err = store.AddMessage(ctx, sess.ID, core.RoleUser, "too late", nil, "")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestStore_Update(t *testing.T) {
	store := newTestStore(newFakeClock())
	ctx := context.Background()

	sess, err := store.Create(ctx, "user-1")
	require.NoError(t, err)

	agentType := core.AgentTypeCareerGuidance
	goal := "switch into data engineering"
	intent := core.IntentCareerGuidance
	updated, err := store.Update(ctx, sess.ID, Patch{
		AgentType:  &agentType,
		Goal:       &goal,
		LastIntent: &intent,
		Context:    map[string]any{"target_role": "data engineer"},
	})
	require.NoError(t, err)
	assert.Equal(t, agentType, updated.AgentType)
	assert.Equal(t, goal, updated.Context.CurrentGoal)
	assert.Equal(t, intent, updated.Context.LastIntent)
	assert.Equal(t, "data engineer", updated.Context.Shared["target_role"])

	// Context patches merge, not replace.
	updated, err = store.Update(ctx, sess.ID, Patch{Context: map[string]any{"seniority": "senior"}})
	require.NoError(t, err)
	assert.Equal(t, "data engineer", updated.Context.Shared["target_role"])
	assert.Equal(t, "senior", updated.Context.Shared["seniority"])
}

func TestStore_StatusTransitions(t *testing.T) {
	store := newTestStore(newFakeClock())
	ctx := context.Background()

	sess, err := store.Create(ctx, "user-1")
	require.NoError(t, err)

	// active -> paused -> active
	require.NoError(t, store.Pause(ctx, sess.ID))
	require.Error(t, store.Pause(ctx, sess.ID), "pausing a paused session is invalid")
	require.NoError(t, store.Resume(ctx, sess.ID))
	require.Error(t, store.Resume(ctx, sess.ID), "resuming an active session is invalid")

	// completed is terminal
	require.NoError(t, store.Complete(ctx, sess.ID))
	require.NoError(t, store.Complete(ctx, sess.ID), "completing twice is a no-op")
	assert.ErrorIs(t, store.Pause(ctx, sess.ID), ErrSessionCompleted)

	active := StatusActive
	_, err = store.Update(ctx, sess.ID, Patch{Status: &active})
	assert.ErrorIs(t, err, ErrSessionCompleted)
}

func TestStore_Complete_FixesDuration(t *testing.T) {
	clock := newFakeClock()
	store := newTestStore(clock)
	ctx := context.Background()

	sess, err := store.Create(ctx, "user-1")
	require.NoError(t, err)

	clock.Advance(45 * time.Minute)
	require.NoError(t, store.Complete(ctx, sess.ID))

	got, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)
	assert.Equal(t, 45*time.Minute, got.Context.Metrics.Duration)
}

func TestStore_Analytics(t *testing.T) {
	clock := newFakeClock()
	store := newTestStore(clock)
	ctx := context.Background()

	a, err := store.Create(ctx, "user-1", func(o *CreateOptions) { o.AgentType = core.AgentTypeInterviewPrep })
	require.NoError(t, err)
	b, err := store.Create(ctx, "user-2", func(o *CreateOptions) { o.AgentType = core.AgentTypeCareerGuidance })
	require.NoError(t, err)
	_, err = store.Create(ctx, "user-3")
	require.NoError(t, err)

	require.NoError(t, store.AddMessage(ctx, a.ID, core.RoleUser, "hi", nil, ""))
	require.NoError(t, store.AddMessage(ctx, a.ID, core.RoleAssistant, "hello", nil, core.AgentTypeInterviewPrep))
	require.NoError(t, store.AddMessage(ctx, b.ID, core.RoleUser, "hey", nil, ""))
	require.NoError(t, store.Complete(ctx, b.ID))

	stats, err := store.Analytics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalSessions)
	assert.Equal(t, 2, stats.ByStatus[StatusActive])
	assert.Equal(t, 1, stats.ByStatus[StatusCompleted])
	assert.Equal(t, 1, stats.ByAgentType[core.AgentTypeInterviewPrep])
	assert.Equal(t, 1, stats.ByAgentType[core.AgentTypeCareerGuidance])
	assert.Equal(t, 3, stats.TotalMessages)
}

func TestStore_Cleanup(t *testing.T) {
	clock := newFakeClock()
	kv := NewInMemoryKV()
	// KV entries outlive the logical TTL here so the sweep, not lazy KV
	// expiry, is what removes stale sessions.
	store := NewStore(func(o *Options) {
		o.KV = kv
		o.Clock = clock.Now
		o.TTL = time.Hour
	})
	ctx := context.Background()

	stale, err := store.Create(ctx, "user-1")
	require.NoError(t, err)
	done, err := store.Create(ctx, "user-2")
	require.NoError(t, err)
	live, err := store.Create(ctx, "user-3")
	require.NoError(t, err)

	require.NoError(t, store.Complete(ctx, done.ID))
	clock.Advance(30 * time.Minute)
	// Keep the live session fresh, let the stale one idle past the TTL.
	require.NoError(t, store.AddMessage(ctx, live.ID, core.RoleUser, "still talking", nil, ""))
	clock.Advance(45 * time.Minute)

	removed, err := store.Cleanup(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	_, err = store.Get(ctx, stale.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = store.Get(ctx, done.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = store.Get(ctx, live.ID)
	assert.NoError(t, err)
}

func TestSession_Clone(t *testing.T) {
	sess := &Session{
		ID:       "s1",
		Messages: []core.Message{{Role: core.RoleUser, Content: "hi"}},
		Context:  Context{Shared: map[string]any{"k": "v"}},
	}

	clone := sess.Clone()
	clone.Messages[0].Content = "changed"
	clone.Context.Shared["k"] = "other"

	assert.Equal(t, "hi", sess.Messages[0].Content)
	assert.Equal(t, "v", sess.Context.Shared["k"])
}

func TestStore_ConcurrentAddMessage(t *testing.T) {
	store := newTestStore(newFakeClock())
	ctx := context.Background()

	sess, err := store.Create(ctx, "user-1")
	require.NoError(t, err)

	// Writes are last-write-wins without conflict detection; under
	// contention the invariant is absence of corruption, not a total count.
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_ = store.AddMessage(ctx, sess.ID, core.RoleUser, fmt.Sprintf("m-%d", n), nil, "")
		}(i)
	}
	wg.Wait()

	got, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, got.Messages)
	assert.LessOrEqual(t, len(got.Messages), 10)
}
