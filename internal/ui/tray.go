// Package ui provides the system tray menu for controlling playback
// and the job queue without the HTTP API.
package ui

import (
	"log/slog"
	"sync"

	"github.com/getlantern/systray"

	"github.com/slidecast/slidecast/internal/player"
	"github.com/slidecast/slidecast/internal/studio"
)

type Tray struct {
	controller *player.Controller
	runner     *studio.Runner
	logger     *slog.Logger

	statusItem *systray.MenuItem
	playItem   *systray.MenuItem
	muteItem   *systray.MenuItem
	pauseItem  *systray.MenuItem

	mu sync.Mutex

	apiAddr string
	onQuit  func()
}

type TrayConfig struct {
	Controller *player.Controller
	Runner     *studio.Runner
	Logger     *slog.Logger
	APIAddr    string
	OnQuit     func()
}

func NewTray(cfg TrayConfig) *Tray {
	return &Tray{
		controller: cfg.Controller,
		runner:     cfg.Runner,
		logger:     cfg.Logger,
		apiAddr:    cfg.APIAddr,
		onQuit:     cfg.OnQuit,
	}
}

func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

func (t *Tray) onReady() {
	systray.SetIcon(iconBytes)
	systray.SetTitle("Slidecast")
	systray.SetTooltip("Slidecast Studio")

	t.statusItem = systray.AddMenuItem("Status: Idle", "Current studio status")
	t.statusItem.Disable()

	if t.apiAddr != "" {
		addrItem := systray.AddMenuItem("API: http://"+t.apiAddr, "Local control API address")
		addrItem.Disable()
	}

	systray.AddSeparator()

	t.playItem = systray.AddMenuItem("Play / Pause", "Toggle presentation playback")
	resetItem := systray.AddMenuItem("Restart Presentation", "Back to the first slide")
	t.muteItem = systray.AddMenuItem("Mute", "Toggle narration audio")

	systray.AddSeparator()

	t.pauseItem = systray.AddMenuItem("Pause Jobs", "Pause build and export jobs")

	systray.AddSeparator()

	quitItem := systray.AddMenuItem("Quit", "Quit Slidecast Studio")

	go func() {
		for {
			select {
			case <-t.playItem.ClickedCh:
				t.handleTogglePlay()
			case <-resetItem.ClickedCh:
				t.handleReset()
			case <-t.muteItem.ClickedCh:
				t.handleToggleMute()
			case <-t.pauseItem.ClickedCh:
				t.togglePauseJobs()
			case <-quitItem.ClickedCh:
				t.logger.Info("quit requested from tray")
				if t.onQuit != nil {
					t.onQuit()
				}
				systray.Quit()
				return
			}
		}
	}()

	t.logger.Info("system tray ready")
}

func (t *Tray) onExit() {
	t.logger.Info("system tray exiting")
}

func (t *Tray) handleTogglePlay() {
	if t.controller == nil {
		return
	}
	t.controller.TogglePlay()

	s := t.controller.Snapshot()
	t.mu.Lock()
	defer t.mu.Unlock()
	switch s.State {
	case player.StatePlaying:
		t.statusItem.SetTitle("Status: Playing")
	case player.StatePaused:
		t.statusItem.SetTitle("Status: Paused")
	default:
		t.statusItem.SetTitle("Status: Idle")
	}
}

func (t *Tray) handleReset() {
	if t.controller == nil {
		return
	}
	t.controller.Reset()
	t.mu.Lock()
	defer t.mu.Unlock()
	t.statusItem.SetTitle("Status: Idle")
}

func (t *Tray) handleToggleMute() {
	if t.controller == nil {
		return
	}
	muted := t.controller.ToggleMute()
	t.mu.Lock()
	defer t.mu.Unlock()
	if muted {
		t.muteItem.SetTitle("Unmute")
	} else {
		t.muteItem.SetTitle("Mute")
	}
}

func (t *Tray) togglePauseJobs() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.runner == nil {
		return
	}

	if t.runner.IsPaused() {
		t.runner.Resume()
		t.pauseItem.SetTitle("Pause Jobs")
	} else {
		t.runner.Pause()
		t.pauseItem.SetTitle("Resume Jobs")
	}
}

func (t *Tray) UpdateStatus(status string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.statusItem.SetTitle("Status: " + status)
}

func (t *Tray) Quit() {
	systray.Quit()
}
