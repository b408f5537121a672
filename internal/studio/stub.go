package studio

import (
	"context"
	"encoding/binary"
	"math"
	"time"
)

const (
	stubSampleRate = 24000
	// Roughly 150 words per minute of narration, floor of two seconds.
	stubSecondsPerWord = 0.4
	stubMinDuration    = 2 * time.Second
)

// StubStudio is the offline generation backend used when no Gemini API
// key is configured. Scripts and captions are placeholders; narration
// is a quiet tone whose length tracks the script's word count, so
// playback and export remain fully exercisable without credentials.
type StubStudio struct{}

func NewStubStudio() *StubStudio {
	return &StubStudio{}
}

func (s *StubStudio) Scripts(ctx context.Context, images [][]byte, persona string) ([]string, error) {
	scripts := make([]string, len(images))
	for i := range scripts {
		scripts[i] = PlaceholderScript(i + 1)
	}
	return scripts, nil
}

func (s *StubStudio) Caption(ctx context.Context, script string) (string, error) {
	return PlaceholderCaption, nil
}

func (s *StubStudio) Synthesize(ctx context.Context, script, voice string) ([]byte, int, error) {
	words := 1
	for _, r := range script {
		if r == ' ' {
			words++
		}
	}
	duration := time.Duration(float64(words) * stubSecondsPerWord * float64(time.Second))
	if duration < stubMinDuration {
		duration = stubMinDuration
	}

	samples := int(duration.Seconds() * stubSampleRate)
	pcm := make([]byte, samples*2)
	for i := 0; i < samples; i++ {
		// 220 Hz tone at low amplitude, so playback is audible but
		// unobtrusive.
		v := int16(1500 * math.Sin(2*math.Pi*220*float64(i)/stubSampleRate))
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(v))
	}
	return pcm, stubSampleRate, nil
}
