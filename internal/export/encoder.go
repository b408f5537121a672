// Package export records a deck into a video file: one muted sequential
// playback pass whose frames and narration audio are handed to an
// Encoder as they are produced.
package export

import (
	"image"
	"time"
)

// Artifact describes a finished export on disk.
type Artifact struct {
	Path     string        `json:"path"`
	Duration time.Duration `json:"duration"`
	Frames   int           `json:"frames"`
	Size     int64         `json:"size"`
}

// Encoder consumes one recording pass. Start is called once with the
// stream geometry, then frames and audio arrive interleaved in
// presentation order. Exactly one of Close or Abort ends the session.
type Encoder interface {
	Start(width, height, frameRate, sampleRate int) error

	// WriteFrame consumes one composed frame. The buffer is reused by
	// the caller and must be copied or flushed before returning.
	WriteFrame(frame *image.RGBA) error

	// WriteAudio appends raw 16-bit little-endian mono PCM to the
	// narration track.
	WriteAudio(pcm []byte) error

	// Close finalises the container and returns the artifact.
	Close() (Artifact, error)

	// Abort discards all written data. Safe after a failed Start.
	Abort()
}
