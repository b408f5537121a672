package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/slidecast/slidecast/internal/api"
	"github.com/slidecast/slidecast/internal/config"
	"github.com/slidecast/slidecast/internal/deck"
	"github.com/slidecast/slidecast/internal/export"
	"github.com/slidecast/slidecast/internal/logging"
	"github.com/slidecast/slidecast/internal/player"
	"github.com/slidecast/slidecast/internal/render"
	"github.com/slidecast/slidecast/internal/store"
	"github.com/slidecast/slidecast/internal/stream"
	"github.com/slidecast/slidecast/internal/studio"
	"github.com/slidecast/slidecast/internal/tools"
	"github.com/slidecast/slidecast/internal/ui"
	"github.com/slidecast/slidecast/internal/watch"
)

var Version = "0.1.0"

func main() {
	if err := run(); err != nil {
		log.Fatalf("fatal error: %v", err)
	}
}

func run() error {
	startTime := time.Now()

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := os.MkdirAll(cfg.DataDir(), 0755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}
	if err := os.MkdirAll(cfg.ArtifactsDir(), 0755); err != nil {
		return fmt.Errorf("failed to create artifacts dir: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel())
	logger.Info("starting slidecast studio", "version", Version, "data_dir", cfg.DataDir())

	database, err := store.Open(cfg.DBPath(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	repo := store.NewRepository(database.Conn())

	deviceID, err := ensureDeviceID(repo)
	if err != nil {
		return fmt.Errorf("failed to ensure device ID: %w", err)
	}

	authToken, err := ensureAuthToken(repo)
	if err != nil {
		return fmt.Errorf("failed to ensure auth token: %w", err)
	}

	fmt.Println()
	fmt.Println("╔═══════════════════════════════════════════════════════════╗")
	fmt.Println("║                  SLIDECAST STUDIO v0.1.0                  ║")
	fmt.Println("╠═══════════════════════════════════════════════════════════╣")
	fmt.Printf("║  API URL:    http://127.0.0.1:%-27d ║\n", cfg.Port())
	fmt.Printf("║  Auth Token: %-45s ║\n", authToken)
	fmt.Printf("║  Device ID:  %-45s ║\n", deviceID[:16]+"...")
	fmt.Println("╚═══════════════════════════════════════════════════════════╝")
	fmt.Println()

	// Live narration goes to the speaker when one is available;
	// otherwise slides still advance on silent timers.
	var output player.Output
	speaker, err := player.NewSpeakerOutput(cfg.SampleRate(), logger)
	if err != nil {
		logger.Warn("audio device unavailable, playback will be silent", "error", err)
		output = player.NewTimerOutput()
	} else {
		output = speaker
	}

	controller := player.NewController(output, logger)

	// The live animation loop follows the controller: each slide change
	// re-arms it so the zoom restarts from that slide's own origin.
	liveSurface := render.NewSurface(cfg.CanvasWidth(), cfg.CanvasHeight())
	var frameMu sync.Mutex
	var currentSlide *deck.Slide
	var slideRunning bool

	loop := render.NewLoop(cfg.FrameRate(), func(elapsed time.Duration) {
		frameMu.Lock()
		slide := currentSlide
		running := slideRunning
		frameMu.Unlock()
		if slide == nil {
			return
		}
		liveSurface.Compose(slide.Image, elapsed, slide.Duration, running)
	})
	controller.SetOnSlideChange(func(index int, s *deck.Slide, running bool) {
		frameMu.Lock()
		currentSlide = s
		slideRunning = running
		frameMu.Unlock()
		if running {
			loop.Rearm()
		} else {
			loop.Stop()
		}
	})
	defer loop.Stop()

	prober := tools.NewCachedProber(tools.NewExecProber(cfg.FFmpegPath(), cfg.PdftoppmPath(), logger), logger)

	initCtx, initCancel := context.WithTimeout(context.Background(), 30*time.Second)
	caps, err := prober.Refresh(initCtx)
	initCancel()
	if err != nil {
		logger.Warn("initial tool probe failed", "error", err)
	} else {
		logger.Info("tool capabilities detected",
			"ffmpeg", caps.HasFFmpeg,
			"pdftoppm", caps.HasPdftoppm)
	}

	pdftoppmPath := cfg.PdftoppmPath()
	if caps != nil && caps.HasPdftoppm {
		pdftoppmPath = caps.PdftoppmPath
	}
	rasterizer := studio.NewPdftoppmRasterizer(pdftoppmPath, logger)

	var scripts studio.ScriptGenerator
	var captioner studio.Captioner
	var synth studio.Synthesizer
	if cfg.GeminiAPIKey() != "" {
		gemini := studio.NewGeminiStudio(cfg.GeminiAPIKey(), cfg.ScriptModel(), cfg.CaptionModel(), cfg.SpeechModel(), logger)
		scripts, captioner, synth = gemini, gemini, gemini
		logger.Info("gemini generation enabled", "script_model", cfg.ScriptModel())
	} else {
		stub := studio.NewStubStudio()
		scripts, captioner, synth = stub, stub, stub
		logger.Warn("GEMINI_API_KEY not set, using placeholder generation")
	}

	svc := studio.NewService(repo, rasterizer, scripts, captioner, synth, cfg.ArtifactsDir(), logger)

	// Export records on its own surface with silent timers, so a
	// running recording never contends with live playback drawing.
	recorder := export.NewRecorder(
		player.NewTimerOutput(),
		render.NewSurface(cfg.CanvasWidth(), cfg.CanvasHeight()),
		cfg.FrameRate(),
		controller,
		logger,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runner := studio.NewRunner(svc, repo, recorder, prober, logger)
	go runner.Start(ctx)

	if cfg.InboxDir() != "" {
		watcher, err := watch.New(cfg.InboxDir(), func(ctx context.Context, pdfPath string) error {
			_, _, err := svc.ImportProject(ctx, pdfPath, "", "", "")
			return err
		}, logger)
		if err != nil {
			logger.Warn("inbox watcher unavailable", "error", err)
		} else {
			defer watcher.Stop()
			go watcher.Start(ctx)
		}
	}

	apiServer := api.NewServer(api.ServerConfig{
		Port:       cfg.Port(),
		Studio:     svc,
		Repository: repo,
		Runner:     runner,
		Prober:     prober,
		Controller: controller,
		Artifacts:  stream.NewServer(cfg.ArtifactsDir(), logger),
		Logger:     logger,
		StartTime:  startTime,
		DeviceID:   deviceID,
	})

	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	quitCh := make(chan struct{})

	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received shutdown signal", "signal", sig)
			close(quitCh)
		case <-quitCh:
		}
	}()

	if cfg.Headless() {
		logger.Info("running in headless mode (no system tray)")
	} else {
		tray := ui.NewTray(ui.TrayConfig{
			Controller: controller,
			Runner:     runner,
			Logger:     logger,
			APIAddr:    apiServer.Addr(),
			OnQuit: func() {
				close(quitCh)
			},
		})
		go tray.Run()
	}

	<-quitCh

	logger.Info("initiating graceful shutdown")
	controller.Reset()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown HTTP server", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}

func ensureDeviceID(repo store.Repository) (string, error) {
	ctx := context.Background()

	existing, err := repo.GetConfig(ctx, "device_id")
	if err == nil && existing != "" {
		return existing, nil
	}

	idBytes := make([]byte, 16)
	if _, err := rand.Read(idBytes); err != nil {
		return "", err
	}
	deviceID := hex.EncodeToString(idBytes)

	if err := repo.SetConfig(ctx, "device_id", deviceID); err != nil {
		return "", err
	}

	return deviceID, nil
}

func ensureAuthToken(repo store.Repository) (string, error) {
	ctx := context.Background()

	existing, err := repo.GetConfig(ctx, "auth_token")
	if err == nil && existing != "" {
		return existing, nil
	}

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	token := hex.EncodeToString(tokenBytes)

	if err := repo.SetConfig(ctx, "auth_token", token); err != nil {
		return "", err
	}

	return token, nil
}
