package export

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/slidecast/slidecast/internal/wav"
)

const maxStderrBytes = 8 * 1024 // 8 KB tail of stderr kept for diagnostics

// FFmpegEncoder encodes an export in two stages: raw RGBA frames are
// streamed over stdin into an H.264 video pass, then the accumulated
// narration PCM is written as WAV and muxed with the video into the
// final MP4 with an AAC audio track.
type FFmpegEncoder struct {
	ffmpegPath string
	outPath    string
	logger     *slog.Logger

	width      int
	height     int
	frameRate  int
	sampleRate int

	workDir string
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	stderr  *limitedWriter
	pcm     bytes.Buffer
	frames  int
	started time.Time
}

func NewFFmpegEncoder(ffmpegPath, outPath string, logger *slog.Logger) *FFmpegEncoder {
	return &FFmpegEncoder{
		ffmpegPath: ffmpegPath,
		outPath:    outPath,
		logger:     logger,
	}
}

func (e *FFmpegEncoder) Start(width, height, frameRate, sampleRate int) error {
	if e.ffmpegPath == "" {
		return fmt.Errorf("ffmpeg is not available")
	}
	if width <= 0 || height <= 0 || frameRate <= 0 {
		return fmt.Errorf("invalid stream geometry %dx%d@%d", width, height, frameRate)
	}

	if err := os.MkdirAll(filepath.Dir(e.outPath), 0755); err != nil {
		return fmt.Errorf("cannot create output dir: %w", err)
	}
	workDir, err := os.MkdirTemp(filepath.Dir(e.outPath), ".export-*")
	if err != nil {
		return fmt.Errorf("cannot create export work dir: %w", err)
	}

	e.width = width
	e.height = height
	e.frameRate = frameRate
	e.sampleRate = sampleRate
	e.workDir = workDir
	e.started = time.Now()
	e.stderr = &limitedWriter{limit: maxStderrBytes}

	cmd := exec.Command(e.ffmpegPath,
		"-hide_banner", "-y",
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-s", fmt.Sprintf("%dx%d", width, height),
		"-r", fmt.Sprintf("%d", frameRate),
		"-i", "-",
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-pix_fmt", "yuv420p",
		e.videoPath(),
	)
	cmd.Stderr = e.stderr
	cmd.Stdout = io.Discard

	stdin, err := cmd.StdinPipe()
	if err != nil {
		e.cleanup()
		return fmt.Errorf("cannot open ffmpeg stdin: %w", err)
	}
	if err := cmd.Start(); err != nil {
		e.cleanup()
		return fmt.Errorf("cannot start ffmpeg: %w", err)
	}

	e.cmd = cmd
	e.stdin = stdin
	e.logger.Info("video encode started",
		"width", width, "height", height, "frame_rate", frameRate)
	return nil
}

func (e *FFmpegEncoder) WriteFrame(frame *image.RGBA) error {
	if e.stdin == nil {
		return fmt.Errorf("encoder not started")
	}
	b := frame.Bounds()
	if b.Dx() != e.width || b.Dy() != e.height {
		return fmt.Errorf("frame is %dx%d, stream is %dx%d", b.Dx(), b.Dy(), e.width, e.height)
	}

	rowBytes := e.width * 4
	if frame.Stride == rowBytes {
		if _, err := e.stdin.Write(frame.Pix); err != nil {
			return fmt.Errorf("cannot write frame: %w", err)
		}
	} else {
		for y := 0; y < e.height; y++ {
			row := frame.Pix[y*frame.Stride : y*frame.Stride+rowBytes]
			if _, err := e.stdin.Write(row); err != nil {
				return fmt.Errorf("cannot write frame row: %w", err)
			}
		}
	}
	e.frames++
	return nil
}

func (e *FFmpegEncoder) WriteAudio(pcm []byte) error {
	if e.cmd == nil {
		return fmt.Errorf("encoder not started")
	}
	e.pcm.Write(pcm)
	return nil
}

func (e *FFmpegEncoder) Close() (Artifact, error) {
	if e.cmd == nil {
		return Artifact{}, fmt.Errorf("encoder not started")
	}
	defer e.cleanup()

	if err := e.stdin.Close(); err != nil {
		return Artifact{}, fmt.Errorf("cannot close frame stream: %w", err)
	}
	if err := e.cmd.Wait(); err != nil {
		return Artifact{}, fmt.Errorf("video encode failed: %w: %s", err, e.stderr.String())
	}

	container, err := wav.Encode(e.pcm.Bytes(), e.sampleRate)
	if err != nil {
		return Artifact{}, fmt.Errorf("cannot encode narration track: %w", err)
	}
	if err := os.WriteFile(e.audioPath(), container, 0644); err != nil {
		return Artifact{}, fmt.Errorf("cannot write narration track: %w", err)
	}

	if err := e.mux(); err != nil {
		return Artifact{}, err
	}

	info, err := os.Stat(e.outPath)
	if err != nil {
		return Artifact{}, fmt.Errorf("cannot stat export output: %w", err)
	}

	frameInterval := time.Second / time.Duration(e.frameRate)
	art := Artifact{
		Path:     e.outPath,
		Duration: time.Duration(e.frames) * frameInterval,
		Frames:   e.frames,
		Size:     info.Size(),
	}
	e.logger.Info("export encoded",
		"path", e.outPath,
		"frames", e.frames,
		"duration", art.Duration,
		"size_bytes", art.Size,
		"encode_elapsed", time.Since(e.started))
	return art, nil
}

// Abort kills the encode process and removes partial output.
func (e *FFmpegEncoder) Abort() {
	if e.stdin != nil {
		e.stdin.Close()
	}
	if e.cmd != nil && e.cmd.Process != nil {
		e.cmd.Process.Kill()
		e.cmd.Wait()
	}
	e.cleanup()
	os.Remove(e.outPath)
}

// mux combines the encoded video with the WAV narration into the final
// MP4, transcoding audio to AAC.
func (e *FFmpegEncoder) mux() error {
	stderr := &limitedWriter{limit: maxStderrBytes}
	cmd := exec.Command(e.ffmpegPath,
		"-hide_banner", "-y",
		"-i", e.videoPath(),
		"-i", e.audioPath(),
		"-c:v", "copy",
		"-c:a", "aac",
		"-shortest",
		e.outPath,
	)
	cmd.Stderr = stderr
	cmd.Stdout = io.Discard

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("mux failed: %w: %s", err, stderr.String())
	}
	return nil
}

func (e *FFmpegEncoder) videoPath() string {
	return filepath.Join(e.workDir, "video.mp4")
}

func (e *FFmpegEncoder) audioPath() string {
	return filepath.Join(e.workDir, "audio.wav")
}

func (e *FFmpegEncoder) cleanup() {
	if e.workDir != "" {
		os.RemoveAll(e.workDir)
		e.workDir = ""
	}
	e.cmd = nil
	e.stdin = nil
}

// limitedWriter keeps only the last limit bytes written.
type limitedWriter struct {
	buf   bytes.Buffer
	limit int
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	n := len(p)
	lw.buf.Write(p)
	if lw.buf.Len() > lw.limit {
		b := lw.buf.Bytes()
		tail := make([]byte, lw.limit)
		copy(tail, b[len(b)-lw.limit:])
		lw.buf.Reset()
		lw.buf.Write(tail)
	}
	return n, nil
}

func (lw *limitedWriter) String() string {
	return lw.buf.String()
}
