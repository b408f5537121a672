package export

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/slidecast/slidecast/internal/deck"
	"github.com/slidecast/slidecast/internal/player"
	"github.com/slidecast/slidecast/internal/render"
)

// Recorder performs the recording pass: the deck is played through once,
// muted and in real time, with frames composed at the configured rate
// for exactly the span each slide's audio actually occupied. Slides
// never overlap; the next starts only after the previous completed.
type Recorder struct {
	output    player.Output
	surface   *render.Surface
	frameRate int
	ctrl      *player.Controller // interactive session, parked before recording
	logger    *slog.Logger

	mu         sync.Mutex
	onProgress func(done, total int)
}

// NewRecorder builds a recorder over its own playback output. ctrl may
// be nil when no interactive session shares the audio device.
func NewRecorder(output player.Output, surface *render.Surface, frameRate int, ctrl *player.Controller, logger *slog.Logger) *Recorder {
	return &Recorder{
		output:    output,
		surface:   surface,
		frameRate: frameRate,
		ctrl:      ctrl,
		logger:    logger,
	}
}

// SetOnProgress installs a per-slide completion callback.
func (r *Recorder) SetOnProgress(fn func(done, total int)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onProgress = fn
}

// Export records the deck into enc. Any slide or encode failure aborts
// the encoder and fails the whole export; cancelling ctx does the same.
func (r *Recorder) Export(ctx context.Context, d *deck.Deck, enc Encoder) (Artifact, error) {
	if r.surface == nil || r.output == nil {
		return Artifact{}, fmt.Errorf("recording surface is not available")
	}
	if enc == nil {
		return Artifact{}, fmt.Errorf("no encoder supplied")
	}
	if d == nil || d.Len() == 0 {
		return Artifact{}, deck.ErrEmptyDeck
	}

	// The interactive session must not fight the recorder for the
	// render surface or the audio clock.
	if r.ctrl != nil {
		r.ctrl.Reset()
	}

	sampleRate := d.Slide(0).SampleRate
	if err := enc.Start(r.surface.Width(), r.surface.Height(), r.frameRate, sampleRate); err != nil {
		enc.Abort()
		return Artifact{}, fmt.Errorf("cannot start encoder: %w", err)
	}

	r.logger.Info("export recording started",
		"slides", d.Len(),
		"frame_rate", r.frameRate,
		"estimated_duration", d.TotalDuration())

	var total time.Duration
	for i := 0; i < d.Len(); i++ {
		slide := d.Slide(i)
		if slide.SampleRate != sampleRate {
			enc.Abort()
			return Artifact{}, fmt.Errorf("slide %d sample rate %d differs from track rate %d",
				slide.PageNumber, slide.SampleRate, sampleRate)
		}

		span, err := r.recordSlide(ctx, slide, enc)
		if err != nil {
			enc.Abort()
			return Artifact{}, fmt.Errorf("recording slide %d: %w", slide.PageNumber, err)
		}
		total += span
		r.notifyProgress(i+1, d.Len())
	}

	art, err := enc.Close()
	if err != nil {
		return Artifact{}, fmt.Errorf("cannot finalise export: %w", err)
	}

	r.logger.Info("export recording complete",
		"path", art.Path,
		"played", total,
		"frames", art.Frames)
	return art, nil
}

// recordSlide plays one slide muted to completion, composing frames for
// the span the audio actually occupied, then appends the slide's PCM to
// the narration track.
func (r *Recorder) recordSlide(ctx context.Context, slide *deck.Slide, enc Encoder) (time.Duration, error) {
	h, err := r.output.Open(slide)
	if err != nil {
		return 0, fmt.Errorf("cannot open audio: %w", err)
	}
	defer h.Stop()
	h.SetMuted(true)

	// First frame at elapsed zero, so even a degenerate slide leaves a
	// visible trace in the output.
	if err := enc.WriteFrame(r.surface.Compose(slide.Image, 0, slide.Duration, true)); err != nil {
		return 0, err
	}

	start := time.Now()
	if err := h.Start(); err != nil {
		return 0, fmt.Errorf("cannot start audio: %w", err)
	}

	ticker := time.NewTicker(time.Second / time.Duration(r.frameRate))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-ticker.C:
			elapsed := time.Since(start)
			if err := enc.WriteFrame(r.surface.Compose(slide.Image, elapsed, slide.Duration, true)); err != nil {
				return 0, err
			}
		case err := <-h.Done():
			if err != nil {
				return 0, fmt.Errorf("audio ended abnormally: %w", err)
			}
			span := time.Since(start)
			if err := enc.WriteAudio(slide.PCM); err != nil {
				return 0, err
			}
			return span, nil
		}
	}
}

func (r *Recorder) notifyProgress(done, total int) {
	r.mu.Lock()
	fn := r.onProgress
	r.mu.Unlock()
	if fn != nil {
		fn(done, total)
	}
}
