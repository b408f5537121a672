// Package player drives interactive presentation playback: which slide
// is current, whether the show is running, and advancement on each
// slide's audio-completion event. Audio output sits behind the Output
// interface so the controller never touches a device directly.
package player

import (
	"errors"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/slidecast/slidecast/internal/deck"
)

// ErrStopped is delivered on a handle's Done channel when playback was
// cut short by Stop rather than running to completion.
var ErrStopped = errors.New("playback stopped")

// Handle is one slide's live audio resource. At most one handle is in a
// running state at any time; the controller stops and releases a
// handle before acquiring the next.
type Handle interface {
	// Start begins playback. It returns quickly; completion is
	// signalled on Done.
	Start() error
	Pause()
	Resume()
	// Stop halts playback and releases the resource. Done receives
	// ErrStopped if the handle had not completed.
	Stop()
	SetMuted(muted bool)
	// Position reports elapsed playback time for progress display.
	Position() time.Duration
	// Done delivers exactly one value: nil on natural completion, or
	// the error that ended playback.
	Done() <-chan error
}

// Output opens one audio handle per slide.
type Output interface {
	Open(s *deck.Slide) (Handle, error)
}

// State is the controller's lifecycle phase. The transient Finished
// phase normalizes immediately back to Idle at slide 0.
type State string

const (
	StateIdle    State = "idle"
	StatePlaying State = "playing"
	StatePaused  State = "paused"
)

// Session is a snapshot of playback state for status reporting.
type Session struct {
	Index      int     `json:"index"`
	SlideCount int     `json:"slide_count"`
	State      State   `json:"state"`
	Muted      bool    `json:"muted"`
	Progress   float64 `json:"progress"` // 0-100, elapsed fraction of the current slide
}

// SlideChangeFunc is invoked whenever the active slide changes (or the
// session resets to the top). It re-arms the render loop's elapsed-time
// origin. The hook runs with the controller locked and must not call
// back into it.
type SlideChangeFunc func(index int, s *deck.Slide, running bool)

// Controller is the playback state machine over one deck.
type Controller struct {
	output Output
	logger *slog.Logger

	mu            sync.Mutex
	deck          *deck.Deck
	index         int
	state         State
	muted         bool
	frozenAt      float64 // progress retained while paused
	handle        Handle
	fallback      *time.Timer
	gen           int  // invalidates stale completion events and fallback timers
	pendingDone   bool // completion arrived while paused; honoured on resume
	onSlideChange SlideChangeFunc
}

func NewController(output Output, logger *slog.Logger) *Controller {
	return &Controller{
		output: output,
		logger: logger,
		state:  StateIdle,
	}
}

// SetOnSlideChange installs the render re-arm hook. Must be called
// before playback starts.
func (c *Controller) SetOnSlideChange(fn SlideChangeFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onSlideChange = fn
}

// Load replaces the deck and resets the session to idle at slide 0.
func (c *Controller) Load(d *deck.Deck) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.releaseSlideLocked()
	c.deck = d
	c.index = 0
	c.state = StateIdle
	c.frozenAt = 0
	c.notifySlideLocked()
}

// Deck returns the currently loaded deck, or nil.
func (c *Controller) Deck() *deck.Deck {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deck
}

// TogglePlay starts, pauses, or resumes playback. No-op when no deck
// is loaded.
func (c *Controller) TogglePlay() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.deck == nil || c.deck.Len() == 0 {
		return
	}

	switch c.state {
	case StatePlaying:
		c.pauseLocked()
	case StatePaused:
		c.resumeLocked()
	default:
		c.state = StatePlaying
		c.startSlideLocked()
	}
}

// Reset cancels any pending audio and animation work and returns the
// session to idle at slide 0.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.releaseSlideLocked()
	c.index = 0
	c.state = StateIdle
	c.frozenAt = 0
	c.notifySlideLocked()
}

// ToggleMute flips the session mute flag and applies it to the live
// audio handle, if any.
func (c *Controller) ToggleMute() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.muted = !c.muted
	if c.handle != nil {
		c.handle.SetMuted(c.muted)
	}
	return c.muted
}

// Snapshot reports the current session state. Progress is recomputed
// from the live audio position while playing.
func (c *Controller) Snapshot() Session {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Session{
		Index:    c.index,
		State:    c.state,
		Muted:    c.muted,
		Progress: c.frozenAt,
	}
	if c.deck != nil {
		s.SlideCount = c.deck.Len()
	}
	if c.state == StatePlaying && c.handle != nil && c.deck != nil {
		slide := c.deck.Slide(c.index)
		s.Progress = progressPercent(c.handle.Position(), slide.Duration)
	}
	return s
}

func progressPercent(elapsed, duration time.Duration) float64 {
	if duration <= 0 {
		return 0
	}
	p := elapsed.Seconds() / duration.Seconds() * 100
	return math.Min(100, math.Max(0, p))
}

func (c *Controller) pauseLocked() {
	c.state = StatePaused
	if c.handle != nil {
		c.frozenAt = progressPercent(c.handle.Position(), c.deck.Slide(c.index).Duration)
		c.handle.Pause()
	}
	c.cancelFallbackLocked()
	c.notifySlideLocked()
}

func (c *Controller) resumeLocked() {
	c.state = StatePlaying
	if c.pendingDone {
		c.pendingDone = false
		c.advanceLocked()
		return
	}
	if c.handle != nil {
		// Resuming continues the same handle; the slide's audio is
		// never started from the beginning a second time.
		c.handle.Resume()
		c.notifySlideLocked()
		return
	}
	c.startSlideLocked()
}

// startSlideLocked acquires the current slide's audio, binds its
// completion event, and starts playback. A start failure schedules a
// fallback advance after the slide duration so the show never stalls.
func (c *Controller) startSlideLocked() {
	c.gen++
	g := c.gen
	slide := c.deck.Slide(c.index)
	c.frozenAt = 0
	c.notifySlideLocked()

	h, err := c.output.Open(slide)
	if err != nil {
		c.logger.Warn("cannot open slide audio, scheduling fallback advance",
			"page", slide.PageNumber, "duration", slide.Duration, "error", err)
		c.scheduleFallbackLocked(g, slide.Duration)
		return
	}

	h.SetMuted(c.muted)
	c.handle = h

	if err := h.Start(); err != nil {
		c.logger.Warn("audio playback failed to start, scheduling fallback advance",
			"page", slide.PageNumber, "duration", slide.Duration, "error", err)
		h.Stop()
		c.handle = nil
		c.scheduleFallbackLocked(g, slide.Duration)
		return
	}

	go c.watchCompletion(g, h)
}

func (c *Controller) watchCompletion(g int, h Handle) {
	err := <-h.Done()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.gen != g {
		return
	}
	if c.state == StatePaused {
		// Audio finished in the instant before Pause took effect.
		c.pendingDone = true
		return
	}
	if c.state != StatePlaying {
		return
	}
	if err != nil {
		c.logger.Warn("slide audio ended with error", "index", c.index, "error", err)
	}
	c.advanceLocked()
}

func (c *Controller) scheduleFallbackLocked(g int, d time.Duration) {
	if d <= 0 {
		d = deck.FallbackDuration
	}
	c.fallback = time.AfterFunc(d, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.gen != g || c.state != StatePlaying {
			return
		}
		c.advanceLocked()
	})
}

// advanceLocked moves to the next slide, or normalizes the finished
// session back to idle at slide 0.
func (c *Controller) advanceLocked() {
	c.releaseSlideLocked()

	if c.index >= c.deck.Len()-1 {
		c.index = 0
		c.state = StateIdle
		c.frozenAt = 0
		c.notifySlideLocked()
		return
	}

	c.index++
	c.startSlideLocked()
}

// releaseSlideLocked stops the live audio handle and clears any
// scheduled fallback. Mandatory on every slide exit so two slides'
// narration never overlap and no orphaned timer fires after teardown.
func (c *Controller) releaseSlideLocked() {
	c.gen++
	c.pendingDone = false
	c.cancelFallbackLocked()
	if c.handle != nil {
		c.handle.Stop()
		c.handle = nil
	}
}

func (c *Controller) cancelFallbackLocked() {
	if c.fallback != nil {
		c.fallback.Stop()
		c.fallback = nil
	}
}

func (c *Controller) notifySlideLocked() {
	if c.onSlideChange == nil || c.deck == nil || c.deck.Len() == 0 {
		return
	}
	c.onSlideChange(c.index, c.deck.Slide(c.index), c.state == StatePlaying)
}
