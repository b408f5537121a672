// Package watch monitors the inbox directory: a PDF dropped there
// becomes a new project with a queued build job.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// settleDelay gives the writer time to finish before the PDF is read.
const settleDelay = 500 * time.Millisecond

// ImportFunc registers one dropped PDF as a project.
type ImportFunc func(ctx context.Context, pdfPath string) error

type Watcher struct {
	inboxDir string
	importFn ImportFunc
	logger   *slog.Logger
	fsw      *fsnotify.Watcher
	wg       sync.WaitGroup
}

func New(inboxDir string, importFn ImportFunc, logger *slog.Logger) (*Watcher, error) {
	if err := os.MkdirAll(inboxDir, 0755); err != nil {
		return nil, fmt.Errorf("cannot create inbox dir: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("cannot create watcher: %w", err)
	}
	if err := fsw.Add(inboxDir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("cannot watch inbox dir: %w", err)
	}

	return &Watcher{
		inboxDir: inboxDir,
		importFn: importFn,
		logger:   logger,
		fsw:      fsw,
	}, nil
}

// Start blocks until ctx is cancelled or the watcher breaks, importing
// each PDF created in the inbox.
func (w *Watcher) Start(ctx context.Context) error {
	w.logger.Info("inbox watcher started", "dir", w.inboxDir)

	for {
		select {
		case <-ctx.Done():
			w.wg.Wait()
			w.logger.Info("inbox watcher stopped")
			return ctx.Err()

		case event, ok := <-w.fsw.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if !event.Has(fsnotify.Create) || !isPDF(event.Name) {
				continue
			}

			w.logger.Info("pdf dropped in inbox", "file", filepath.Base(event.Name))
			w.wg.Add(1)
			go func(path string) {
				defer w.wg.Done()

				// The create event fires before the writer finishes.
				select {
				case <-time.After(settleDelay):
				case <-ctx.Done():
					return
				}

				if err := w.importFn(ctx, path); err != nil {
					w.logger.Error("cannot import dropped pdf",
						"file", filepath.Base(path), "error", err)
				}
			}(event.Name)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			w.logger.Error("watcher error", "error", err)
		}
	}
}

// Stop closes the underlying filesystem watcher.
func (w *Watcher) Stop() error {
	return w.fsw.Close()
}

func isPDF(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}
