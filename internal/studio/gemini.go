package studio

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"
)

const geminiSampleRate = 24000

var personaTones = map[string]string{
	PersonaCEO:       "professional, visionary, strategic, and high-level",
	PersonaScientist: "analytical, detail-oriented, precise, and evidence-based",
	PersonaTeacher:   "engaging, clear, educational, and patient",
}

// GeminiStudio implements script generation, captioning and speech
// synthesis on the Gemini API. Clients are cheap; one is created per
// call so a rotated key takes effect immediately.
type GeminiStudio struct {
	apiKey       string
	scriptModel  string
	captionModel string
	ttsModel     string
	logger       *slog.Logger
}

func NewGeminiStudio(apiKey, scriptModel, captionModel, ttsModel string, logger *slog.Logger) *GeminiStudio {
	return &GeminiStudio{
		apiKey:       apiKey,
		scriptModel:  scriptModel,
		captionModel: captionModel,
		ttsModel:     ttsModel,
		logger:       logger,
	}
}

func (g *GeminiStudio) client(ctx context.Context) (*genai.Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  g.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("cannot create gemini client: %w", err)
	}
	return client, nil
}

// Scripts sends all slide images in one request and asks for a JSON
// array with one script per slide. An unparseable response degrades to
// per-slide placeholders rather than failing the build.
func (g *GeminiStudio) Scripts(ctx context.Context, images [][]byte, persona string) ([]string, error) {
	client, err := g.client(ctx)
	if err != nil {
		return nil, err
	}

	tone, ok := personaTones[persona]
	if !ok {
		return nil, fmt.Errorf("unknown persona %q", persona)
	}

	prompt := fmt.Sprintf(`Analyze these %d slides from a presentation. For each slide, write a speaker script that sounds %s.
Ensure transitions between slides are seamless (e.g., "Now, turning our attention to...").
Return the response as a JSON array of strings, where each string is the script for that slide index.`, len(images), tone)

	parts := make([]*genai.Part, 0, len(images)+1)
	for _, img := range images {
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{MIMEType: "image/png", Data: img},
		})
	}
	parts = append(parts, &genai.Part{Text: prompt})

	result, err := client.Models.GenerateContent(ctx, g.scriptModel,
		[]*genai.Content{{Role: genai.RoleUser, Parts: parts}},
		&genai.GenerateContentConfig{
			ThinkingConfig:   &genai.ThinkingConfig{ThinkingBudget: genai.Ptr[int32](12000)},
			ResponseMIMEType: "application/json",
			ResponseSchema: &genai.Schema{
				Type:  genai.TypeArray,
				Items: &genai.Schema{Type: genai.TypeString},
			},
		})
	if err != nil {
		return nil, fmt.Errorf("script generation: %w", err)
	}

	var scripts []string
	if err := json.Unmarshal([]byte(responseText(result)), &scripts); err != nil || len(scripts) == 0 {
		g.logger.Warn("script response was not a usable JSON array, using placeholders", "error", err)
		scripts = make([]string, len(images))
		for i := range scripts {
			scripts[i] = PlaceholderScript(i + 1)
		}
		return scripts, nil
	}

	// The model occasionally returns the wrong count; pad or trim so
	// every page has a script.
	for len(scripts) < len(images) {
		scripts = append(scripts, PlaceholderScript(len(scripts)+1))
	}
	return scripts[:len(images)], nil
}

// Caption condenses one script to a single subtitle line. Failures
// fall back to the placeholder caption.
func (g *GeminiStudio) Caption(ctx context.Context, script string) (string, error) {
	client, err := g.client(ctx)
	if err != nil {
		return "", err
	}

	prompt := fmt.Sprintf(`Summarize this presentation script into a single, punchy, 1-line caption for a video subtitle: %q`, script)

	result, err := client.Models.GenerateContent(ctx, g.captionModel, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("caption generation: %w", err)
	}

	caption := strings.TrimSpace(responseText(result))
	if caption == "" {
		return PlaceholderCaption, nil
	}
	return caption, nil
}

// Synthesize renders the script as speech in the requested prebuilt
// voice. Gemini TTS returns raw 16-bit mono PCM at 24 kHz.
func (g *GeminiStudio) Synthesize(ctx context.Context, script, voice string) ([]byte, int, error) {
	client, err := g.client(ctx)
	if err != nil {
		return nil, 0, err
	}

	result, err := client.Models.GenerateContent(ctx, g.ttsModel,
		genai.Text(script),
		&genai.GenerateContentConfig{
			ResponseModalities: []string{"AUDIO"},
			SpeechConfig: &genai.SpeechConfig{
				VoiceConfig: &genai.VoiceConfig{
					PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: voice},
				},
			},
		})
	if err != nil {
		return nil, 0, fmt.Errorf("speech synthesis: %w", err)
	}

	pcm := responseAudio(result)
	if len(pcm) == 0 {
		return nil, 0, fmt.Errorf("speech synthesis returned no audio")
	}
	return pcm, geminiSampleRate, nil
}

func responseText(result *genai.GenerateContentResponse) string {
	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		if part.Text != "" {
			b.WriteString(part.Text)
		}
	}
	return b.String()
}

func responseAudio(result *genai.GenerateContentResponse) []byte {
	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return nil
	}
	for _, part := range result.Candidates[0].Content.Parts {
		if part.InlineData != nil && len(part.InlineData.Data) > 0 {
			return part.InlineData.Data
		}
	}
	return nil
}
