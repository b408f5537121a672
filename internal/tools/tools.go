// Package tools probes the external binaries the engine shells out to.
// Export needs ffmpeg; PDF import needs pdftoppm. Both are optional at
// startup; the features they back are gated on the probe result.
package tools

import (
	"bytes"
	"context"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

const probeTimeout = 10 * time.Second

// Capabilities reports which external tools are usable.
type Capabilities struct {
	HasFFmpeg       bool      `json:"has_ffmpeg"`
	FFmpegPath      string    `json:"ffmpeg_path,omitempty"`
	FFmpegVersion   string    `json:"ffmpeg_version,omitempty"`
	HasPdftoppm     bool      `json:"has_pdftoppm"`
	PdftoppmPath    string    `json:"pdftoppm_path,omitempty"`
	PdftoppmVersion string    `json:"pdftoppm_version,omitempty"`
	ProbedAt        time.Time `json:"probed_at"`
}

// Prober discovers tool availability.
type Prober interface {
	Probe(ctx context.Context) (*Capabilities, error)
}

// ExecProber locates tools on PATH (or at configured paths) and runs
// their version commands to confirm they execute.
type ExecProber struct {
	ffmpegPath   string // configured override; empty means PATH lookup
	pdftoppmPath string
	logger       *slog.Logger
}

func NewExecProber(ffmpegPath, pdftoppmPath string, logger *slog.Logger) *ExecProber {
	return &ExecProber{
		ffmpegPath:   ffmpegPath,
		pdftoppmPath: pdftoppmPath,
		logger:       logger,
	}
}

func (p *ExecProber) Probe(ctx context.Context) (*Capabilities, error) {
	caps := &Capabilities{ProbedAt: time.Now()}

	if path, version, ok := p.probeTool(ctx, p.ffmpegPath, "ffmpeg", "-version"); ok {
		caps.HasFFmpeg = true
		caps.FFmpegPath = path
		caps.FFmpegVersion = version
	}
	if path, version, ok := p.probeTool(ctx, p.pdftoppmPath, "pdftoppm", "-v"); ok {
		caps.HasPdftoppm = true
		caps.PdftoppmPath = path
		caps.PdftoppmVersion = version
	}

	p.logger.Info("tool probe complete",
		"ffmpeg", caps.HasFFmpeg,
		"pdftoppm", caps.HasPdftoppm,
	)
	return caps, nil
}

// probeTool resolves one binary and runs its version command. The first
// output line is kept as the version string.
func (p *ExecProber) probeTool(ctx context.Context, configured, name string, versionArgs ...string) (path, version string, ok bool) {
	lookup := name
	if configured != "" {
		lookup = configured
	}
	path, err := exec.LookPath(lookup)
	if err != nil {
		p.logger.Debug("tool not found", "tool", name, "error", err)
		return "", "", false
	}

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	// pdftoppm prints its version to stderr, ffmpeg to stdout.
	out, err := exec.CommandContext(ctx, path, versionArgs...).CombinedOutput()
	if err != nil {
		p.logger.Warn("tool present but version command failed",
			"tool", name, "path", path, "error", err)
		return "", "", false
	}

	return path, firstLine(out), true
}

func firstLine(out []byte) string {
	line, _, _ := bytes.Cut(out, []byte("\n"))
	return strings.TrimSpace(string(line))
}
