package lifecycle

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freelancing-solutions/agenthub/agent"
	"github.com/freelancing-solutions/agenthub/completion"
	"github.com/freelancing-solutions/agenthub/core"
	"github.com/freelancing-solutions/agenthub/internal/testutil"
)

// eventRecorder is a thread-safe Listener capturing every delivered event.
type eventRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *eventRecorder) OnLifecycleEvent(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *eventRecorder) byKind(kind EventKind) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, ev := range r.events {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

func newSupervisorForTest(optFns ...func(o *Options)) *Supervisor {
	return NewSupervisor(append([]func(o *Options){func(o *Options) {
		o.HandleSignals = false
		o.RestartGrace = 5 * time.Millisecond
	}}, optFns...)...)
}

func newRunner(id string, stub *testutil.StubAgent) *agent.Runner {
	svc := completion.NewService([]completion.Provider{
		completion.NewMockProvider("mock", completion.ProviderModels{Default: "m"}),
	})
	return agent.NewRunner(stub, svc, func(o *agent.Options) { o.ID = id })
}

func TestSupervisor_RegisterAndAgents(t *testing.T) {
	s := newSupervisorForTest()
	s.Register(newRunner("b", testutil.NewStubAgent(core.AgentTypeGeneral)))
	s.Register(newRunner("a", testutil.NewStubAgent(core.AgentTypeGeneral)))

	agents := s.Agents()
	require.Len(t, agents, 2)
	assert.Equal(t, "a", agents[0].ID(), "registry view is sorted by id")
	assert.Equal(t, "b", agents[1].ID())

	assert.NotNil(t, s.Get("a"))
	assert.Nil(t, s.Get("missing"))
}

func TestSupervisor_StartAll_BestEffort(t *testing.T) {
	s := newSupervisorForTest()
	rec := &eventRecorder{}
	s.AddListener(rec)

	healthy := testutil.NewStubAgent(core.AgentTypeGeneral)
	broken := testutil.NewStubAgent(core.AgentTypeCareerGuidance)
	broken.InitErr = errors.New("credentials missing")

	s.Register(newRunner("healthy", healthy))
	s.Register(newRunner("broken", broken))

	s.StartAll(context.Background())

	// The failing agent did not abort the batch.
	status, ok := s.StatusOf("healthy")
	require.True(t, ok)
	assert.Equal(t, core.AgentStatusActive, status)
	status, _ = s.StatusOf("broken")
	assert.Equal(t, core.AgentStatusError, status)

	started := rec.byKind(EventStarted)
	require.Len(t, started, 1)
	assert.Equal(t, "healthy", started[0].AgentID)

	failures := rec.byKind(EventError)
	require.Len(t, failures, 1)
	assert.Equal(t, "broken", failures[0].AgentID)
	assert.Equal(t, "start", failures[0].Metadata["operation"])
}

func TestSupervisor_StopAll_BestEffort(t *testing.T) {
	s := newSupervisorForTest()
	rec := &eventRecorder{}
	s.AddListener(rec)

	clean := testutil.NewStubAgent(core.AgentTypeGeneral)
	dirty := testutil.NewStubAgent(core.AgentTypeCareerGuidance)
	dirty.CleanupErr = errors.New("flush failed")

	s.Register(newRunner("clean", clean))
	s.Register(newRunner("dirty", dirty))
	s.StartAll(context.Background())
	s.StopAll(context.Background())

	// The clean agent stopped and reported it despite the other's failure.
	stopped := rec.byKind(EventStopped)
	require.Len(t, stopped, 1)
	assert.Equal(t, "clean", stopped[0].AgentID)

	// Both end inactive; a cleanup failure does not keep an agent alive.
	status, _ := s.StatusOf("clean")
	assert.Equal(t, core.AgentStatusInactive, status)
	status, _ = s.StatusOf("dirty")
	assert.Equal(t, core.AgentStatusInactive, status)
}

func TestSupervisor_StopAll_HangingCleanupDoesNotBlockOthers(t *testing.T) {
	s := newSupervisorForTest()
	rec := &eventRecorder{}
	s.AddListener(rec)

	quick := testutil.NewStubAgent(core.AgentTypeGeneral)
	hung := testutil.NewStubAgent(core.AgentTypeCareerGuidance)
	hung.BlockCleanup = make(chan struct{})

	s.Register(newRunner("quick", quick))
	s.Register(newRunner("hung", hung))
	s.StartAll(context.Background())

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.StopAll(context.Background())
	}()

	// The quick agent stops and reports while the other cleanup hangs.
	require.Eventually(t, func() bool {
		status, _ := s.StatusOf("quick")
		return status == core.AgentStatusInactive && len(rec.byKind(EventStopped)) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, "quick", rec.byKind(EventStopped)[0].AgentID)

	select {
	case <-done:
		t.Fatal("StopAll returned while a cleanup was still blocked")
	default:
	}

	close(hung.BlockCleanup)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("StopAll did not return after the cleanup unblocked")
	}
	status, _ := s.StatusOf("hung")
	assert.Equal(t, core.AgentStatusInactive, status)
}

func TestSupervisor_PauseResumeAll(t *testing.T) {
	s := newSupervisorForTest()
	s.Register(newRunner("a", testutil.NewStubAgent(core.AgentTypeGeneral)))
	s.Register(newRunner("b", testutil.NewStubAgent(core.AgentTypeGeneral)))
	ctx := context.Background()

	s.StartAll(ctx)
	s.PauseAll(ctx)
	status, _ := s.StatusOf("a")
	assert.Equal(t, core.AgentStatusInactive, status)

	s.ResumeAll(ctx)
	status, _ = s.StatusOf("a")
	assert.Equal(t, core.AgentStatusActive, status)
}

func TestSupervisor_RestartAgent(t *testing.T) {
	s := newSupervisorForTest()
	rec := &eventRecorder{}
	s.AddListener(rec)

	stub := testutil.NewStubAgent(core.AgentTypeGeneral)
	s.Register(newRunner("a", stub))
	ctx := context.Background()

	s.StartAll(ctx)
	require.NoError(t, s.RestartAgent(ctx, "a"))

	assert.Equal(t, int64(1), stub.CleanupCalls.Load())
	assert.Equal(t, int64(2), stub.InitCalls.Load())
	status, _ := s.StatusOf("a")
	assert.Equal(t, core.AgentStatusActive, status)
}

func TestSupervisor_RestartAgent_StartFailureSurfaced(t *testing.T) {
	s := newSupervisorForTest()
	rec := &eventRecorder{}
	s.AddListener(rec)

	stub := testutil.NewStubAgent(core.AgentTypeGeneral)
	s.Register(newRunner("a", stub))
	ctx := context.Background()

	s.StartAll(ctx)
	stub.InitErr = errors.New("port already bound")

	err := s.RestartAgent(ctx, "a")
	require.Error(t, err)

	failures := rec.byKind(EventError)
	require.Len(t, failures, 1)
	assert.Equal(t, "restart", failures[0].Metadata["operation"])
}

func TestSupervisor_RestartAgent_Unknown(t *testing.T) {
	s := newSupervisorForTest()
	assert.Error(t, s.RestartAgent(context.Background(), "ghost"))
}

func TestSupervisor_RestartAgent_ContextCancelledDuringGrace(t *testing.T) {
	s := NewSupervisor(func(o *Options) {
		o.HandleSignals = false
		o.RestartGrace = time.Hour
	})
	stub := testutil.NewStubAgent(core.AgentTypeGeneral)
	s.Register(newRunner("a", stub))
	s.StartAll(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := s.RestartAgent(ctx, "a")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, int64(1), stub.InitCalls.Load(), "agent not restarted after cancellation")
}

func TestSupervisor_UnhealthyAgents(t *testing.T) {
	s := newSupervisorForTest()

	healthyProvider := completion.NewMockProvider("mock", completion.ProviderModels{Default: "m"})
	brokenProvider := completion.NewMockProvider("mock", completion.ProviderModels{Default: "m"})
	brokenProvider.FailAll(errors.New("backend down"))

	s.Register(agent.NewRunner(testutil.NewStubAgent(core.AgentTypeGeneral),
		completion.NewService([]completion.Provider{healthyProvider}),
		func(o *agent.Options) { o.ID = "ok" }))
	s.Register(agent.NewRunner(testutil.NewStubAgent(core.AgentTypeCareerGuidance),
		completion.NewService([]completion.Provider{brokenProvider}),
		func(o *agent.Options) { o.ID = "bad" }))

	ctx := context.Background()
	s.StartAll(ctx)

	unhealthy := s.UnhealthyAgents(ctx)
	require.Len(t, unhealthy, 1)
	assert.Equal(t, "bad", unhealthy[0].ID())
}

func TestSupervisor_Shutdown(t *testing.T) {
	s := newSupervisorForTest()
	rec := &eventRecorder{}
	s.AddListener(rec)

	a := testutil.NewStubAgent(core.AgentTypeGeneral)
	b := testutil.NewStubAgent(core.AgentTypeCareerGuidance)
	s.Register(newRunner("a", a))
	s.Register(newRunner("b", b))
	ctx := context.Background()

	s.StartAll(ctx)
	require.NoError(t, s.Shutdown(ctx))

	assert.Len(t, rec.byKind(EventStopped), 2)
	assert.Len(t, rec.byKind(EventShutdown), 1)
}

func TestSupervisor_Shutdown_Reentrant(t *testing.T) {
	s := newSupervisorForTest()
	stub := testutil.NewStubAgent(core.AgentTypeGeneral)
	stub.CleanupErr = errors.New("flush failed")
	s.Register(newRunner("a", stub))
	ctx := context.Background()

	s.StartAll(ctx)
	require.Error(t, s.Shutdown(ctx), "first call reports the failed stop")
	require.NoError(t, s.Shutdown(ctx), "later calls are absorbed")
	assert.Equal(t, int64(1), stub.CleanupCalls.Load(), "drain runs exactly once")
}

func TestSupervisor_Shutdown_Concurrent(t *testing.T) {
	s := newSupervisorForTest()
	stub := testutil.NewStubAgent(core.AgentTypeGeneral)
	s.Register(newRunner("a", stub))
	ctx := context.Background()
	s.StartAll(ctx)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Shutdown(ctx)
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(1), stub.CleanupCalls.Load())
}

func TestSupervisor_ListenerPanicIsolated(t *testing.T) {
	s := newSupervisorForTest()

	var delivered int
	var mu sync.Mutex
	s.AddListener(ListenerFunc(func(Event) { panic("listener bug") }))
	s.AddListener(ListenerFunc(func(Event) {
		mu.Lock()
		defer mu.Unlock()
		delivered++
	}))

	s.Register(newRunner("a", testutil.NewStubAgent(core.AgentTypeGeneral)))
	s.StartAll(context.Background())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, delivered, "panicking listener does not block the next one")
}
