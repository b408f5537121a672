package player

import (
	"sync"
	"time"

	"github.com/slidecast/slidecast/internal/deck"
)

// TimerOutput plays slides silently in real time: each handle completes
// after the slide's measured narration duration. It backs the muted
// export pass and is the fallback when no audio device is available.
type TimerOutput struct{}

func NewTimerOutput() *TimerOutput {
	return &TimerOutput{}
}

func (o *TimerOutput) Open(s *deck.Slide) (Handle, error) {
	d := s.Duration
	if d <= 0 {
		d = deck.FallbackDuration
	}
	return &timerHandle{
		duration: d,
		done:     make(chan error, 1),
	}, nil
}

type timerHandle struct {
	mu        sync.Mutex
	duration  time.Duration
	startedAt time.Time // start of the current running stretch
	elapsed   time.Duration
	running   bool
	timer     *time.Timer
	done      chan error
	once      sync.Once
}

func (h *timerHandle) Start() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.startedAt = time.Now()
	h.running = true
	h.timer = time.AfterFunc(h.duration, func() {
		h.complete(nil)
	})
	return nil
}

func (h *timerHandle) Pause() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.running {
		return
	}
	h.running = false
	h.elapsed += time.Since(h.startedAt)
	if h.timer != nil {
		h.timer.Stop()
	}
}

func (h *timerHandle) Resume() {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return
	}
	remaining := h.duration - h.elapsed
	if remaining <= 0 {
		h.mu.Unlock()
		h.complete(nil)
		return
	}
	h.startedAt = time.Now()
	h.running = true
	h.timer = time.AfterFunc(remaining, func() {
		h.complete(nil)
	})
	h.mu.Unlock()
}

func (h *timerHandle) Stop() {
	h.mu.Lock()
	if h.timer != nil {
		h.timer.Stop()
	}
	h.running = false
	h.mu.Unlock()
	h.complete(ErrStopped)
}

func (h *timerHandle) SetMuted(bool) {}

func (h *timerHandle) Position() time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	pos := h.elapsed
	if h.running {
		pos += time.Since(h.startedAt)
	}
	if pos > h.duration {
		pos = h.duration
	}
	return pos
}

func (h *timerHandle) Done() <-chan error {
	return h.done
}

func (h *timerHandle) complete(err error) {
	h.once.Do(func() {
		h.done <- err
	})
}
