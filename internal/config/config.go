// Package config provides configuration management for the Slidecast studio.
// Configuration is loaded from an optional YAML file with environment
// variable overrides and sensible defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// Default values
	DefaultPort       = 8793
	DefaultLogLevel   = "info"
	DefaultDataDir    = ".slidecast"
	DefaultSampleRate = 24000
	DefaultFrameRate  = 30
	DefaultCanvasW    = 1280
	DefaultCanvasH    = 720

	// Environment variable names
	EnvPort         = "SLIDECAST_PORT"
	EnvLogLevel     = "SLIDECAST_LOG_LEVEL"
	EnvDataDir      = "SLIDECAST_DATA_DIR"
	EnvConfigFile   = "SLIDECAST_CONFIG"
	EnvGeminiAPIKey = "GEMINI_API_KEY"
	EnvHeadless     = "SLIDECAST_HEADLESS"
	EnvInboxDir     = "SLIDECAST_INBOX_DIR"
	EnvFFmpegPath   = "SLIDECAST_FFMPEG"
	EnvPdftoppmPath = "SLIDECAST_PDFTOPPM"

	// Database filename
	DBFilename = "slidecast.db"

	// Generation defaults
	DefaultScriptModel  = "gemini-3-pro-preview"
	DefaultCaptionModel = "gemini-3-flash-preview"
	DefaultSpeechModel  = "gemini-2.5-flash-preview-tts"
	DefaultPersona      = "CEO"
	DefaultVoice        = "Kore"

	// Tool execution timeouts
	DefaultRasterizeTimeout = 120 // seconds
	DefaultEncodeTimeout    = 600 // seconds
	DefaultGenerateTimeout  = 300 // seconds
)

// Config defines the application configuration interface
type Config interface {
	Port() int
	LogLevel() string
	DataDir() string
	DBPath() string
	ArtifactsDir() string
	InboxDir() string
	Headless() bool

	SampleRate() int
	FrameRate() int
	CanvasWidth() int
	CanvasHeight() int

	GeminiAPIKey() string
	ScriptModel() string
	CaptionModel() string
	SpeechModel() string

	FFmpegPath() string
	PdftoppmPath() string
	RasterizeTimeout() time.Duration
	EncodeTimeout() time.Duration
	GenerateTimeout() time.Duration
}

// fileConfig is the YAML layout accepted from a config file.
// Every field is optional; zero values fall back to defaults.
type fileConfig struct {
	Port     int    `yaml:"port"`
	LogLevel string `yaml:"log_level"`
	DataDir  string `yaml:"data_dir"`
	InboxDir string `yaml:"inbox_dir"`
	Headless bool   `yaml:"headless"`

	Canvas struct {
		Width     int `yaml:"width"`
		Height    int `yaml:"height"`
		FrameRate int `yaml:"frame_rate"`
	} `yaml:"canvas"`

	Gemini struct {
		ScriptModel  string `yaml:"script_model"`
		CaptionModel string `yaml:"caption_model"`
		SpeechModel  string `yaml:"speech_model"`
	} `yaml:"gemini"`

	Tools struct {
		FFmpeg   string `yaml:"ffmpeg"`
		Pdftoppm string `yaml:"pdftoppm"`
	} `yaml:"tools"`
}

// EnvConfig reads configuration from an optional YAML file plus
// environment variables.
type EnvConfig struct {
	port     int
	logLevel string
	dataDir  string
	inboxDir string
	headless bool

	canvasW   int
	canvasH   int
	frameRate int

	geminiAPIKey string
	scriptModel  string
	captionModel string
	speechModel  string

	ffmpegPath   string
	pdftoppmPath string
}

// New creates a new EnvConfig with defaults, YAML file values, and
// environment variable overrides, in that order of precedence.
func New() (*EnvConfig, error) {
	cfg := &EnvConfig{
		port:      DefaultPort,
		logLevel:  DefaultLogLevel,
		dataDir:   defaultDataDir(),
		canvasW:   DefaultCanvasW,
		canvasH:   DefaultCanvasH,
		frameRate: DefaultFrameRate,
	}

	if path := configFilePath(); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	// Override port from environment
	if p := os.Getenv(EnvPort); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		if port < 1 || port > 65535 {
			return nil, fmt.Errorf("invalid %s: port must be between 1 and 65535", EnvPort)
		}
		cfg.port = port
	}

	if ll := os.Getenv(EnvLogLevel); ll != "" {
		cfg.logLevel = ll
	}

	if dd := os.Getenv(EnvDataDir); dd != "" {
		cfg.dataDir = dd
	}

	if id := os.Getenv(EnvInboxDir); id != "" {
		cfg.inboxDir = id
	}

	if h := os.Getenv(EnvHeadless); h == "1" || h == "true" {
		cfg.headless = true
	}

	cfg.geminiAPIKey = os.Getenv(EnvGeminiAPIKey)

	if fp := os.Getenv(EnvFFmpegPath); fp != "" {
		cfg.ffmpegPath = fp
	}
	if pp := os.Getenv(EnvPdftoppmPath); pp != "" {
		cfg.pdftoppmPath = pp
	}

	return cfg, nil
}

func (c *EnvConfig) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("cannot read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("cannot parse config file %s: %w", path, err)
	}

	if fc.Port != 0 {
		c.port = fc.Port
	}
	if fc.LogLevel != "" {
		c.logLevel = fc.LogLevel
	}
	if fc.DataDir != "" {
		c.dataDir = fc.DataDir
	}
	if fc.InboxDir != "" {
		c.inboxDir = fc.InboxDir
	}
	if fc.Headless {
		c.headless = true
	}
	if fc.Canvas.Width > 0 {
		c.canvasW = fc.Canvas.Width
	}
	if fc.Canvas.Height > 0 {
		c.canvasH = fc.Canvas.Height
	}
	if fc.Canvas.FrameRate > 0 {
		c.frameRate = fc.Canvas.FrameRate
	}
	c.scriptModel = fc.Gemini.ScriptModel
	c.captionModel = fc.Gemini.CaptionModel
	c.speechModel = fc.Gemini.SpeechModel
	c.ffmpegPath = fc.Tools.FFmpeg
	c.pdftoppmPath = fc.Tools.Pdftoppm

	return nil
}

// Port returns the HTTP server port
func (c *EnvConfig) Port() int {
	return c.port
}

// LogLevel returns the log level (debug, info, warn, error)
func (c *EnvConfig) LogLevel() string {
	return c.logLevel
}

// DataDir returns the data directory path
func (c *EnvConfig) DataDir() string {
	return c.dataDir
}

// DBPath returns the full path to the SQLite database file
func (c *EnvConfig) DBPath() string {
	return filepath.Join(c.dataDir, DBFilename)
}

// ArtifactsDir returns the directory holding generated slide media
// and exported recordings.
func (c *EnvConfig) ArtifactsDir() string {
	return filepath.Join(c.dataDir, "artifacts")
}

// InboxDir returns the watched directory for dropped PDF decks.
// Empty disables the inbox watcher.
func (c *EnvConfig) InboxDir() string {
	return c.inboxDir
}

func (c *EnvConfig) Headless() bool {
	return c.headless
}

func (c *EnvConfig) SampleRate() int {
	return DefaultSampleRate
}

func (c *EnvConfig) FrameRate() int {
	return c.frameRate
}

func (c *EnvConfig) CanvasWidth() int {
	return c.canvasW
}

func (c *EnvConfig) CanvasHeight() int {
	return c.canvasH
}

func (c *EnvConfig) GeminiAPIKey() string {
	return c.geminiAPIKey
}

func (c *EnvConfig) ScriptModel() string {
	if c.scriptModel != "" {
		return c.scriptModel
	}
	return DefaultScriptModel
}

func (c *EnvConfig) CaptionModel() string {
	if c.captionModel != "" {
		return c.captionModel
	}
	return DefaultCaptionModel
}

func (c *EnvConfig) SpeechModel() string {
	if c.speechModel != "" {
		return c.speechModel
	}
	return DefaultSpeechModel
}

func (c *EnvConfig) FFmpegPath() string {
	return c.ffmpegPath
}

func (c *EnvConfig) PdftoppmPath() string {
	return c.pdftoppmPath
}

func (c *EnvConfig) RasterizeTimeout() time.Duration {
	return time.Duration(DefaultRasterizeTimeout) * time.Second
}

func (c *EnvConfig) EncodeTimeout() time.Duration {
	return time.Duration(DefaultEncodeTimeout) * time.Second
}

func (c *EnvConfig) GenerateTimeout() time.Duration {
	return time.Duration(DefaultGenerateTimeout) * time.Second
}

func configFilePath() string {
	if p := os.Getenv(EnvConfigFile); p != "" {
		return p
	}
	return "slidecast.yaml"
}

// defaultDataDir returns the default data directory path
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home is not available
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}

// Version information (set at build time via ldflags)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)
