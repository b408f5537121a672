// Package studio turns an imported PDF into a narrated deck: rasterise
// pages, write a script per slide in the chosen persona, caption it,
// synthesise the narration, and persist everything as a project.
package studio

import (
	"context"
	"fmt"
)

// Narration personas. The persona shapes the tone of every generated
// script in a project.
const (
	PersonaCEO       = "CEO"
	PersonaScientist = "Scientist"
	PersonaTeacher   = "Teacher"
)

// Prebuilt narration voices.
var Voices = []string{"Kore", "Puck", "Charon", "Fenrir", "Zephyr"}

var personas = []string{PersonaCEO, PersonaScientist, PersonaTeacher}

func ValidPersona(p string) bool {
	for _, v := range personas {
		if v == p {
			return true
		}
	}
	return false
}

func ValidVoice(voice string) bool {
	for _, v := range Voices {
		if v == voice {
			return true
		}
	}
	return false
}

// Personas lists the supported narration personas.
func Personas() []string {
	return append([]string(nil), personas...)
}

// PlaceholderScript fills in for a slide whose script generation came
// back unusable. Page numbers are 1-based.
func PlaceholderScript(page int) string {
	return fmt.Sprintf("Slide %d narration.", page)
}

// PlaceholderCaption fills in for a failed caption call.
const PlaceholderCaption = "Presentation Slide"

// ScriptGenerator writes one narration script per slide image, in
// page order, matching the persona's tone. Implementations recover
// per-slide failures with placeholder scripts; only a wholesale
// failure returns an error.
type ScriptGenerator interface {
	Scripts(ctx context.Context, images [][]byte, persona string) ([]string, error)
}

// Captioner condenses one script into a single short on-screen line.
type Captioner interface {
	Caption(ctx context.Context, script string) (string, error)
}

// Synthesizer renders a script as raw 16-bit little-endian mono PCM in
// the requested voice. The sample rate is fixed by the implementation
// and reported alongside.
type Synthesizer interface {
	Synthesize(ctx context.Context, script, voice string) (pcm []byte, sampleRate int, err error)
}

// Rasterizer renders a PDF into one image file per page, returning the
// paths in page order.
type Rasterizer interface {
	Rasterize(ctx context.Context, pdfPath, outDir string) ([]string, error)
}
