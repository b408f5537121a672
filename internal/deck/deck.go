// Package deck defines the ordered slide sequence consumed by the
// playback controller, the render engine, and the export recorder.
// A deck is immutable once built.
package deck

import (
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/google/uuid"
)

// FallbackDuration is used for animation timing and failure-recovery
// scheduling when audio decoding does not yield a usable duration.
const FallbackDuration = 5 * time.Second

var (
	ErrEmptyDeck    = errors.New("deck has no slides")
	ErrMissingImage = errors.New("slide has no image")
	ErrMissingAudio = errors.New("slide has no audio")
)

// Slide is one narration segment: a page image, its spoken script, a
// short caption overlay, and resolved narration audio.
type Slide struct {
	ID         string
	PageNumber int // 1-based, position is significant
	Image      image.Image
	Script     string
	Caption    string
	PCM        []byte // raw 16-bit mono little-endian samples
	SampleRate int
	Duration   time.Duration
}

// Deck is the fixed-order slide sequence. Accessors hand out slides by
// index; the backing slice is never exposed.
type Deck struct {
	id     string
	title  string
	slides []*Slide
}

func (d *Deck) ID() string    { return d.id }
func (d *Deck) Title() string { return d.title }
func (d *Deck) Len() int      { return len(d.slides) }

// Slide returns the slide at index i. Panics on out-of-range access,
// matching slice semantics.
func (d *Deck) Slide(i int) *Slide {
	return d.slides[i]
}

// TotalDuration sums the nominal durations of all slides. This is a
// hint; the export recorder measures actual playback instead.
func (d *Deck) TotalDuration() time.Duration {
	var total time.Duration
	for _, s := range d.slides {
		total += s.Duration
	}
	return total
}

// Builder assembles a deck slide by slide. Build validates and seals
// the sequence; the builder must not be reused afterwards.
type Builder struct {
	title  string
	slides []*Slide
}

func NewBuilder(title string) *Builder {
	return &Builder{title: title}
}

// Add appends the next slide. Page numbers are assigned from insertion
// order and never reordered.
func (b *Builder) Add(img image.Image, script, caption string, pcm []byte, sampleRate int, duration time.Duration) *Builder {
	if duration <= 0 {
		duration = FallbackDuration
	}
	b.slides = append(b.slides, &Slide{
		ID:         uuid.NewString(),
		PageNumber: len(b.slides) + 1,
		Image:      img,
		Script:     script,
		Caption:    caption,
		PCM:        pcm,
		SampleRate: sampleRate,
		Duration:   duration,
	})
	return b
}

// Build validates every slide and returns the sealed deck. Every slide
// entering playback or export must have image and audio resolved.
func (b *Builder) Build() (*Deck, error) {
	if len(b.slides) == 0 {
		return nil, ErrEmptyDeck
	}

	for _, s := range b.slides {
		if s.Image == nil {
			return nil, fmt.Errorf("slide %d: %w", s.PageNumber, ErrMissingImage)
		}
		if len(s.PCM) == 0 {
			return nil, fmt.Errorf("slide %d: %w", s.PageNumber, ErrMissingAudio)
		}
	}

	slides := make([]*Slide, len(b.slides))
	copy(slides, b.slides)

	return &Deck{
		id:     uuid.NewString(),
		title:  b.title,
		slides: slides,
	}, nil
}
