package studio

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/slidecast/slidecast/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func setupTestDB(t *testing.T) store.Repository {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"), nil)
	if err != nil {
		t.Fatalf("cannot create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return store.NewRepository(db.Conn())
}

// fakeRasterizer renders real PNG files so the build and deck-loading
// paths can decode them.
type fakeRasterizer struct {
	pages int
	err   error
}

func (f *fakeRasterizer) Rasterize(ctx context.Context, pdfPath, outDir string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, err
	}
	var paths []string
	for i := 1; i <= f.pages; i++ {
		p := filepath.Join(outDir, fmt.Sprintf("page-%d.png", i))
		out, err := os.Create(p)
		if err != nil {
			return nil, err
		}
		if err := png.Encode(out, image.NewRGBA(image.Rect(0, 0, 16, 12))); err != nil {
			out.Close()
			return nil, err
		}
		out.Close()
		paths = append(paths, p)
	}
	return paths, nil
}

type failingSynth struct{}

func (failingSynth) Synthesize(ctx context.Context, script, voice string) ([]byte, int, error) {
	return nil, 0, errors.New("tts unavailable")
}

func writeTestPDF(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "deck.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4 fake"), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func newTestService(t *testing.T, repo store.Repository, rast Rasterizer, synth Synthesizer) *Service {
	t.Helper()
	stub := NewStubStudio()
	if synth == nil {
		synth = stub
	}
	return NewService(repo, rast, stub, stub, synth, t.TempDir(), testLogger())
}

func TestImportProject_Defaults(t *testing.T) {
	repo := setupTestDB(t)
	svc := newTestService(t, repo, &fakeRasterizer{pages: 2}, nil)
	ctx := context.Background()

	project, job, err := svc.ImportProject(ctx, writeTestPDF(t), "", "", "")
	if err != nil {
		t.Fatalf("import: %v", err)
	}

	if project.Persona != PersonaCEO {
		t.Errorf("persona = %q, want default CEO", project.Persona)
	}
	if project.Voice != "Kore" {
		t.Errorf("voice = %q, want default Kore", project.Voice)
	}
	if project.Title != "deck" {
		t.Errorf("title = %q, want pdf basename", project.Title)
	}
	if project.Status != store.ProjectImporting {
		t.Errorf("status = %q", project.Status)
	}
	if job.Type != store.JobTypeBuild || job.Status != store.JobPending {
		t.Errorf("job = %+v, want pending build", job)
	}
}

func TestImportProject_Validation(t *testing.T) {
	repo := setupTestDB(t)
	svc := newTestService(t, repo, &fakeRasterizer{pages: 1}, nil)
	ctx := context.Background()
	pdf := writeTestPDF(t)

	if _, _, err := svc.ImportProject(ctx, pdf, "", "Pirate", ""); err == nil {
		t.Error("unknown persona accepted")
	}
	if _, _, err := svc.ImportProject(ctx, pdf, "", "", "Robotron"); err == nil {
		t.Error("unknown voice accepted")
	}
	if _, _, err := svc.ImportProject(ctx, "/nonexistent.pdf", "", "", ""); err == nil {
		t.Error("missing pdf accepted")
	}
}

func TestExecuteBuild_FullFlow(t *testing.T) {
	repo := setupTestDB(t)
	svc := newTestService(t, repo, &fakeRasterizer{pages: 3}, nil)
	ctx := context.Background()

	project, job, err := svc.ImportProject(ctx, writeTestPDF(t), "review", "Teacher", "Puck")
	if err != nil {
		t.Fatalf("import: %v", err)
	}

	if err := svc.ExecuteBuild(ctx, job.ID, project.ID); err != nil {
		t.Fatalf("build: %v", err)
	}

	got, _ := repo.GetProject(ctx, project.ID)
	if got.Status != store.ProjectReady {
		t.Errorf("project status = %q, want ready", got.Status)
	}

	gotJob, _ := repo.GetJob(ctx, job.ID)
	if gotJob.Status != store.JobDone {
		t.Errorf("job status = %q, want done", gotJob.Status)
	}
	if gotJob.Progress != 100 {
		t.Errorf("progress = %d, want 100", gotJob.Progress)
	}

	slides, _ := repo.GetSlidesByProject(ctx, project.ID)
	if len(slides) != 3 {
		t.Fatalf("slides = %d, want 3", len(slides))
	}
	for i, s := range slides {
		if s.PageNumber != i+1 {
			t.Errorf("slide %d has page %d", i, s.PageNumber)
		}
		if s.Script == "" || s.Caption == "" {
			t.Errorf("slide %d missing script or caption", s.PageNumber)
		}
		if s.Duration <= 0 {
			t.Errorf("slide %d duration = %v", s.PageNumber, s.Duration)
		}
		if s.SampleRate != 24000 {
			t.Errorf("slide %d sample rate = %d", s.PageNumber, s.SampleRate)
		}
		if _, err := os.Stat(s.AudioPath); err != nil {
			t.Errorf("slide %d audio missing: %v", s.PageNumber, err)
		}
	}
}

func TestExecuteBuild_RasterFailureFailsProject(t *testing.T) {
	repo := setupTestDB(t)
	svc := newTestService(t, repo, &fakeRasterizer{err: errors.New("poppler exploded")}, nil)
	ctx := context.Background()

	project, job, _ := svc.ImportProject(ctx, writeTestPDF(t), "", "", "")
	if err := svc.ExecuteBuild(ctx, job.ID, project.ID); err == nil {
		t.Fatal("expected build failure")
	}

	got, _ := repo.GetProject(ctx, project.ID)
	if got.Status != store.ProjectFailed {
		t.Errorf("project status = %q, want failed", got.Status)
	}
	gotJob, _ := repo.GetJob(ctx, job.ID)
	if gotJob.Status != store.JobFailed {
		t.Errorf("job status = %q, want failed", gotJob.Status)
	}
	if gotJob.Error == "" {
		t.Error("failed job carries no error message")
	}
}

func TestExecuteBuild_SynthFailureFailsProject(t *testing.T) {
	repo := setupTestDB(t)
	svc := newTestService(t, repo, &fakeRasterizer{pages: 2}, failingSynth{})
	ctx := context.Background()

	project, job, _ := svc.ImportProject(ctx, writeTestPDF(t), "", "", "")
	if err := svc.ExecuteBuild(ctx, job.ID, project.ID); err == nil {
		t.Fatal("expected build failure")
	}

	got, _ := repo.GetProject(ctx, project.ID)
	if got.Status != store.ProjectFailed {
		t.Errorf("project status = %q, want failed", got.Status)
	}
}

func TestLoadDeck_RoundTrip(t *testing.T) {
	repo := setupTestDB(t)
	svc := newTestService(t, repo, &fakeRasterizer{pages: 2}, nil)
	ctx := context.Background()

	project, job, _ := svc.ImportProject(ctx, writeTestPDF(t), "", "", "")
	if err := svc.ExecuteBuild(ctx, job.ID, project.ID); err != nil {
		t.Fatalf("build: %v", err)
	}

	d, err := svc.LoadDeck(ctx, project.ID)
	if err != nil {
		t.Fatalf("load deck: %v", err)
	}
	if d.Len() != 2 {
		t.Fatalf("deck len = %d, want 2", d.Len())
	}

	slides, _ := repo.GetSlidesByProject(ctx, project.ID)
	for i := 0; i < d.Len(); i++ {
		s := d.Slide(i)
		if s.Duration != slides[i].Duration {
			t.Errorf("slide %d duration = %v, stored %v", i, s.Duration, slides[i].Duration)
		}
		if len(s.PCM) == 0 {
			t.Errorf("slide %d has no audio", i)
		}
		if s.Image == nil {
			t.Errorf("slide %d has no image", i)
		}
	}
}

func TestLoadDeck_NotReady(t *testing.T) {
	repo := setupTestDB(t)
	svc := newTestService(t, repo, &fakeRasterizer{pages: 1}, nil)
	ctx := context.Background()

	project, _, _ := svc.ImportProject(ctx, writeTestPDF(t), "", "", "")
	if _, err := svc.LoadDeck(ctx, project.ID); err == nil {
		t.Error("importing project loaded as deck")
	}
}

func TestTranscript_Format(t *testing.T) {
	repo := setupTestDB(t)
	svc := newTestService(t, repo, &fakeRasterizer{pages: 2}, nil)
	ctx := context.Background()

	project, job, _ := svc.ImportProject(ctx, writeTestPDF(t), "", "Scientist", "Charon")
	if err := svc.ExecuteBuild(ctx, job.ID, project.ID); err != nil {
		t.Fatalf("build: %v", err)
	}

	transcript, err := svc.Transcript(ctx, project.ID)
	if err != nil {
		t.Fatalf("transcript: %v", err)
	}

	for _, want := range []string{
		"TRANSCRIPT EXPORT",
		"Persona: Scientist",
		"Voice: Charon",
		"[SLIDE 1]",
		"[SLIDE 2]",
		"Caption: " + PlaceholderCaption,
		"Script: Slide 1 narration.",
	} {
		if !strings.Contains(transcript, want) {
			t.Errorf("transcript missing %q:\n%s", want, transcript)
		}
	}
}

func TestQueueExport_RequiresReadyProject(t *testing.T) {
	repo := setupTestDB(t)
	svc := newTestService(t, repo, &fakeRasterizer{pages: 1}, nil)
	ctx := context.Background()

	project, job, _ := svc.ImportProject(ctx, writeTestPDF(t), "", "", "")
	if _, err := svc.QueueExport(ctx, project.ID); err == nil {
		t.Error("export queued for project still importing")
	}

	if err := svc.ExecuteBuild(ctx, job.ID, project.ID); err != nil {
		t.Fatalf("build: %v", err)
	}

	exportJob, err := svc.QueueExport(ctx, project.ID)
	if err != nil {
		t.Fatalf("queue export: %v", err)
	}
	if exportJob.Type != store.JobTypeExport || exportJob.Status != store.JobPending {
		t.Errorf("job = %+v, want pending export", exportJob)
	}
}

func TestValidPersonaAndVoice(t *testing.T) {
	for _, p := range Personas() {
		if !ValidPersona(p) {
			t.Errorf("persona %q rejected", p)
		}
	}
	if ValidPersona("Pirate") {
		t.Error("unknown persona accepted")
	}
	for _, v := range Voices {
		if !ValidVoice(v) {
			t.Errorf("voice %q rejected", v)
		}
	}
	if ValidVoice("Robotron") {
		t.Error("unknown voice accepted")
	}
}
