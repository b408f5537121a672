package player

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/speaker"

	"github.com/slidecast/slidecast/internal/deck"
)

// SpeakerOutput plays slide narration through the system audio device
// via the beep speaker.
type SpeakerOutput struct {
	sampleRate beep.SampleRate
	logger     *slog.Logger
}

// NewSpeakerOutput initialises the speaker for the given sample rate.
// All slide audio must share this rate.
func NewSpeakerOutput(sampleRate int, logger *slog.Logger) (*SpeakerOutput, error) {
	sr := beep.SampleRate(sampleRate)
	if err := speaker.Init(sr, sr.N(100*time.Millisecond)); err != nil {
		return nil, fmt.Errorf("cannot initialise speaker: %w", err)
	}
	return &SpeakerOutput{sampleRate: sr, logger: logger}, nil
}

func (o *SpeakerOutput) Open(s *deck.Slide) (Handle, error) {
	if len(s.PCM) == 0 {
		return nil, fmt.Errorf("slide %d has no audio", s.PageNumber)
	}
	if s.SampleRate != int(o.sampleRate) {
		return nil, fmt.Errorf("slide %d sample rate %d does not match speaker rate %d",
			s.PageNumber, s.SampleRate, int(o.sampleRate))
	}

	stream := &pcmStream{data: s.PCM}
	h := &speakerHandle{
		stream:     stream,
		sampleRate: o.sampleRate,
		done:       make(chan error, 1),
	}
	h.ctrl = &beep.Ctrl{
		Streamer: beep.Seq(stream, beep.Callback(func() {
			h.complete(nil)
		})),
	}
	h.vol = &effects.Volume{
		Streamer: h.ctrl,
		Base:     2,
	}
	return h, nil
}

type speakerHandle struct {
	stream     *pcmStream
	ctrl       *beep.Ctrl
	vol        *effects.Volume
	sampleRate beep.SampleRate
	done       chan error
	once       sync.Once
}

func (h *speakerHandle) Start() error {
	speaker.Play(h.vol)
	return nil
}

func (h *speakerHandle) Pause() {
	speaker.Lock()
	h.ctrl.Paused = true
	speaker.Unlock()
}

func (h *speakerHandle) Resume() {
	speaker.Lock()
	h.ctrl.Paused = false
	speaker.Unlock()
}

func (h *speakerHandle) Stop() {
	speaker.Lock()
	h.ctrl.Streamer = nil
	speaker.Unlock()
	h.complete(ErrStopped)
}

func (h *speakerHandle) SetMuted(muted bool) {
	speaker.Lock()
	h.vol.Silent = muted
	speaker.Unlock()
}

func (h *speakerHandle) Position() time.Duration {
	speaker.Lock()
	pos := h.stream.Position()
	speaker.Unlock()
	return h.sampleRate.D(pos)
}

func (h *speakerHandle) Done() <-chan error {
	return h.done
}

func (h *speakerHandle) complete(err error) {
	h.once.Do(func() {
		h.done <- err
	})
}

// pcmStream streams raw little-endian 16-bit mono PCM as stereo float
// samples for the speaker.
type pcmStream struct {
	data     []byte
	position int
}

func (s *pcmStream) Stream(samples [][2]float64) (n int, ok bool) {
	if s.position >= len(s.data) {
		return 0, false
	}

	for i := range samples {
		if s.position+1 >= len(s.data) {
			return i, true
		}

		sample16 := int16(s.data[s.position]) | int16(s.data[s.position+1])<<8
		f := float64(sample16) / 32768.0

		// Mono narration duplicated onto both channels.
		samples[i][0] = f
		samples[i][1] = f

		s.position += 2
	}

	return len(samples), true
}

func (s *pcmStream) Err() error {
	return nil
}

func (s *pcmStream) Len() int {
	return len(s.data) / 2
}

func (s *pcmStream) Position() int {
	return s.position / 2
}

func (s *pcmStream) Seek(p int) error {
	s.position = p * 2
	if s.position < 0 {
		s.position = 0
	}
	if s.position > len(s.data) {
		s.position = len(s.data)
	}
	return nil
}
