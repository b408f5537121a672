package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

type importRecorder struct {
	mu    sync.Mutex
	paths []string
}

func (r *importRecorder) record(ctx context.Context, path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, path)
	return nil
}

func (r *importRecorder) imported() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paths...)
}

func TestWatcher_ImportsDroppedPDF(t *testing.T) {
	inbox := filepath.Join(t.TempDir(), "inbox")
	rec := &importRecorder{}

	w, err := New(inbox, rec.record, testLogger())
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	t.Cleanup(func() { w.Stop() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)

	time.Sleep(50 * time.Millisecond)
	pdf := filepath.Join(inbox, "deck.pdf")
	if err := os.WriteFile(pdf, []byte("%PDF-1.4"), 0644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if got := rec.imported(); len(got) == 1 {
			if got[0] != pdf {
				t.Fatalf("imported %q, want %q", got[0], pdf)
			}
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("dropped pdf was never imported")
}

func TestWatcher_IgnoresNonPDF(t *testing.T) {
	inbox := filepath.Join(t.TempDir(), "inbox")
	rec := &importRecorder{}

	w, err := New(inbox, rec.record, testLogger())
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	t.Cleanup(func() { w.Stop() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)

	time.Sleep(50 * time.Millisecond)
	os.WriteFile(filepath.Join(inbox, "notes.txt"), []byte("hi"), 0644)
	os.WriteFile(filepath.Join(inbox, "clip.mp4"), []byte("vid"), 0644)

	time.Sleep(800 * time.Millisecond)
	if got := rec.imported(); len(got) != 0 {
		t.Errorf("imported non-pdf files: %v", got)
	}
}

func TestWatcher_CreatesInboxDir(t *testing.T) {
	inbox := filepath.Join(t.TempDir(), "nested", "inbox")
	w, err := New(inbox, func(context.Context, string) error { return nil }, testLogger())
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	w.Stop()

	if _, err := os.Stat(inbox); err != nil {
		t.Errorf("inbox dir not created: %v", err)
	}
}

func TestIsPDF(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"deck.pdf", true},
		{"DECK.PDF", true},
		{"deck.pdf.part", false},
		{"deck.txt", false},
		{"pdf", false},
	}
	for _, tt := range tests {
		if got := isPDF(tt.path); got != tt.want {
			t.Errorf("isPDF(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}
