package render

import (
	"sync"
	"time"
)

// FrameFunc receives the time elapsed since the loop was last armed.
type FrameFunc func(elapsed time.Duration)

// Loop is a cancellable repeating frame task bound to the active
// slide's start time. Switching slides must call Rearm, which cancels
// the previous ticker before starting a new one, so two timers never
// drive the same surface concurrently.
type Loop struct {
	interval time.Duration
	fn       FrameFunc

	mu   sync.Mutex
	stop chan struct{}
	wg   sync.WaitGroup
}

// NewLoop creates a loop firing fn at the given frame rate. The loop
// starts stopped; call Rearm to begin.
func NewLoop(fps int, fn FrameFunc) *Loop {
	if fps <= 0 {
		fps = 30
	}
	return &Loop{
		interval: time.Second / time.Duration(fps),
		fn:       fn,
	}
}

// Rearm restarts the loop with a fresh elapsed-time origin, cancelling
// any loop already running.
func (l *Loop) Rearm() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.stopLocked()

	stop := make(chan struct{})
	l.stop = stop
	start := time.Now()

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		ticker := time.NewTicker(l.interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				l.fn(time.Since(start))
			}
		}
	}()
}

// Stop cancels the running loop and waits for its ticker goroutine to
// exit. Safe to call when already stopped.
func (l *Loop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stopLocked()
}

func (l *Loop) stopLocked() {
	if l.stop != nil {
		close(l.stop)
		l.stop = nil
	}
	l.wg.Wait()
}
