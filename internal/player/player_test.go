package player

import (
	"errors"
	"image"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/slidecast/slidecast/internal/deck"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func buildTestDeck(t *testing.T, durations ...time.Duration) *deck.Deck {
	t.Helper()
	b := deck.NewBuilder("test deck")
	for _, d := range durations {
		b.Add(image.NewRGBA(image.Rect(0, 0, 4, 3)), "script", "caption", make([]byte, 100), 24000, d)
	}
	d, err := b.Build()
	if err != nil {
		t.Fatalf("build deck: %v", err)
	}
	return d
}

// fakeOutput opens fakeHandles whose completion is triggered manually,
// or automatically after autoComplete.
type fakeOutput struct {
	mu           sync.Mutex
	handles      []*fakeHandle
	openErr      error
	startErr     error
	autoComplete time.Duration
}

func (o *fakeOutput) Open(s *deck.Slide) (Handle, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.openErr != nil {
		return nil, o.openErr
	}
	h := &fakeHandle{
		done:     make(chan error, 1),
		startErr: o.startErr,
	}
	if o.autoComplete > 0 {
		h.autoComplete = o.autoComplete
	}
	o.handles = append(o.handles, h)
	return h, nil
}

func (o *fakeOutput) handle(i int) *fakeHandle {
	o.mu.Lock()
	defer o.mu.Unlock()
	if i >= len(o.handles) {
		return nil
	}
	return o.handles[i]
}

func (o *fakeOutput) opened() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.handles)
}

type fakeHandle struct {
	startCalls   atomic.Int32
	stopCalls    atomic.Int32
	pauseCalls   atomic.Int32
	resumeCalls  atomic.Int32
	muted        atomic.Bool
	position     atomic.Int64
	startErr     error
	autoComplete time.Duration
	done         chan error
	once         sync.Once
}

func (h *fakeHandle) Start() error {
	h.startCalls.Add(1)
	if h.startErr != nil {
		return h.startErr
	}
	if h.autoComplete > 0 {
		time.AfterFunc(h.autoComplete, func() { h.complete(nil) })
	}
	return nil
}

func (h *fakeHandle) Pause()  { h.pauseCalls.Add(1) }
func (h *fakeHandle) Resume() { h.resumeCalls.Add(1) }

func (h *fakeHandle) Stop() {
	h.stopCalls.Add(1)
	h.complete(ErrStopped)
}

func (h *fakeHandle) SetMuted(m bool)         { h.muted.Store(m) }
func (h *fakeHandle) Position() time.Duration { return time.Duration(h.position.Load()) }
func (h *fakeHandle) Done() <-chan error      { return h.done }

func (h *fakeHandle) complete(err error) {
	h.once.Do(func() { h.done <- err })
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestTogglePlay_EmptyController(t *testing.T) {
	c := NewController(&fakeOutput{}, testLogger())
	c.TogglePlay() // no deck loaded: must be a no-op

	s := c.Snapshot()
	if s.State != StateIdle {
		t.Errorf("state = %s, want idle", s.State)
	}
}

func TestPlayThrough_VisitsEverySlideOnceInOrder(t *testing.T) {
	out := &fakeOutput{autoComplete: 20 * time.Millisecond}
	c := NewController(out, testLogger())

	var mu sync.Mutex
	var visited []int
	c.SetOnSlideChange(func(index int, s *deck.Slide, running bool) {
		mu.Lock()
		defer mu.Unlock()
		if running {
			if len(visited) == 0 || visited[len(visited)-1] != index {
				visited = append(visited, index)
			}
		}
	})

	c.Load(buildTestDeck(t, time.Second, time.Second, time.Second))
	c.TogglePlay()

	waitFor(t, func() bool { return c.Snapshot().State == StateIdle }, "playback never finished")

	mu.Lock()
	defer mu.Unlock()
	want := []int{0, 1, 2}
	if len(visited) != len(want) {
		t.Fatalf("visited = %v, want %v", visited, want)
	}
	for i := range want {
		if visited[i] != want[i] {
			t.Fatalf("visited = %v, want %v", visited, want)
		}
	}

	s := c.Snapshot()
	if s.Index != 0 || s.Progress != 0 {
		t.Errorf("finished session = index %d progress %v, want 0/0", s.Index, s.Progress)
	}
}

func TestAdvance_StopsPreviousHandleBeforeNext(t *testing.T) {
	out := &fakeOutput{}
	c := NewController(out, testLogger())
	c.Load(buildTestDeck(t, time.Second, time.Second))
	c.TogglePlay()

	waitFor(t, func() bool { return out.opened() == 1 }, "first handle never opened")
	out.handle(0).complete(nil)
	waitFor(t, func() bool { return out.opened() == 2 }, "second handle never opened")

	if out.handle(0).stopCalls.Load() == 0 {
		t.Error("first slide's handle was not stopped before the second started")
	}
}

func TestPauseResume_NoDoubleStart(t *testing.T) {
	out := &fakeOutput{}
	c := NewController(out, testLogger())
	c.Load(buildTestDeck(t, 5*time.Second))
	c.TogglePlay()

	waitFor(t, func() bool { return out.opened() == 1 }, "handle never opened")
	h := out.handle(0)
	h.position.Store(int64(2 * time.Second))

	c.TogglePlay() // pause
	s := c.Snapshot()
	if s.State != StatePaused {
		t.Fatalf("state = %s, want paused", s.State)
	}
	if s.Index != 0 {
		t.Errorf("index = %d, want 0 after pause", s.Index)
	}
	if s.Progress < 39 || s.Progress > 41 {
		t.Errorf("paused progress = %v, want ~40", s.Progress)
	}
	if h.pauseCalls.Load() != 1 {
		t.Errorf("pause calls = %d, want 1", h.pauseCalls.Load())
	}

	c.TogglePlay() // resume
	if h.resumeCalls.Load() != 1 {
		t.Errorf("resume calls = %d, want 1", h.resumeCalls.Load())
	}
	if h.startCalls.Load() != 1 {
		t.Errorf("start calls = %d, want 1 (audio must not restart from the beginning)", h.startCalls.Load())
	}
	if out.opened() != 1 {
		t.Errorf("opened handles = %d, want 1", out.opened())
	}
}

func TestReset_ReleasesAudioAndReturnsToIdle(t *testing.T) {
	out := &fakeOutput{}
	c := NewController(out, testLogger())
	c.Load(buildTestDeck(t, time.Second, time.Second))
	c.TogglePlay()

	waitFor(t, func() bool { return out.opened() == 1 }, "handle never opened")
	c.Reset()

	if out.handle(0).stopCalls.Load() == 0 {
		t.Error("reset did not stop the live audio handle")
	}
	s := c.Snapshot()
	if s.State != StateIdle || s.Index != 0 || s.Progress != 0 {
		t.Errorf("after reset: %+v, want idle at 0/0", s)
	}
}

func TestStartFailure_FallbackAdvanceAfterDuration(t *testing.T) {
	out := &fakeOutput{startErr: errors.New("decode failed")}
	c := NewController(out, testLogger())
	c.Load(buildTestDeck(t, 60*time.Millisecond, 60*time.Millisecond))
	c.TogglePlay()

	// The first slide cannot start; the controller must advance after
	// its duration rather than immediately or never.
	time.Sleep(20 * time.Millisecond)
	if got := c.Snapshot().Index; got != 0 {
		t.Fatalf("advanced too early: index = %d", got)
	}

	waitFor(t, func() bool { return out.opened() >= 2 }, "fallback advance never fired")
}

func TestOpenFailure_FallbackAdvance(t *testing.T) {
	out := &fakeOutput{openErr: errors.New("no audio")}
	c := NewController(out, testLogger())
	c.Load(buildTestDeck(t, 30*time.Millisecond))
	c.TogglePlay()

	waitFor(t, func() bool { return c.Snapshot().State == StateIdle }, "show stalled on open failure")
}

func TestToggleMute_AppliesToLiveHandle(t *testing.T) {
	out := &fakeOutput{}
	c := NewController(out, testLogger())
	c.Load(buildTestDeck(t, time.Second))
	c.TogglePlay()

	waitFor(t, func() bool { return out.opened() == 1 }, "handle never opened")

	if muted := c.ToggleMute(); !muted {
		t.Error("ToggleMute = false, want true")
	}
	if !out.handle(0).muted.Load() {
		t.Error("live handle not muted")
	}
	if muted := c.ToggleMute(); muted {
		t.Error("second ToggleMute = true, want false")
	}
}

func TestProgress_ClampedTo100(t *testing.T) {
	out := &fakeOutput{}
	c := NewController(out, testLogger())
	c.Load(buildTestDeck(t, time.Second))
	c.TogglePlay()

	waitFor(t, func() bool { return out.opened() == 1 }, "handle never opened")
	out.handle(0).position.Store(int64(5 * time.Second))

	if p := c.Snapshot().Progress; p != 100 {
		t.Errorf("progress = %v, want clamped 100", p)
	}
}

func TestTimerOutput_CompletesAfterDuration(t *testing.T) {
	out := NewTimerOutput()
	d := buildTestDeck(t, 40*time.Millisecond)

	h, err := out.Open(d.Slide(0))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	start := time.Now()
	if err := h.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	select {
	case err := <-h.Done():
		if err != nil {
			t.Fatalf("done err = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("timer handle never completed")
	}
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Errorf("completed after %v, too early", elapsed)
	}
}

func TestTimerOutput_PausePreservesPosition(t *testing.T) {
	out := NewTimerOutput()
	d := buildTestDeck(t, 200*time.Millisecond)

	h, _ := out.Open(d.Slide(0))
	h.Start()
	time.Sleep(50 * time.Millisecond)
	h.Pause()

	p1 := h.Position()
	time.Sleep(50 * time.Millisecond)
	p2 := h.Position()
	if p1 != p2 {
		t.Errorf("position advanced while paused: %v -> %v", p1, p2)
	}

	h.Resume()
	select {
	case <-h.Done():
	case <-time.After(time.Second):
		t.Fatal("resumed handle never completed")
	}
}
