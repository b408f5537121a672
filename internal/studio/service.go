package studio

import (
	"context"
	"fmt"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/slidecast/slidecast/internal/deck"
	"github.com/slidecast/slidecast/internal/store"
	"github.com/slidecast/slidecast/internal/wav"
)

// Build progress milestones: rasterising claims the first slice,
// script generation the next, and per-slide synthesis the rest.
const (
	progressRasterised = 10
	progressScripted   = 30
)

type Service struct {
	repo       store.Repository
	rasterizer Rasterizer
	scripts    ScriptGenerator
	captioner  Captioner
	synth      Synthesizer
	artifacts  string
	logger     *slog.Logger
}

func NewService(repo store.Repository, rasterizer Rasterizer, scripts ScriptGenerator, captioner Captioner, synth Synthesizer, artifactsDir string, logger *slog.Logger) *Service {
	return &Service{
		repo:       repo,
		rasterizer: rasterizer,
		scripts:    scripts,
		captioner:  captioner,
		synth:      synth,
		artifacts:  artifactsDir,
		logger:     logger,
	}
}

// ImportProject registers a PDF as a new project and queues its build
// job. The file must already exist; persona and voice fall back to
// defaults when empty.
func (s *Service) ImportProject(ctx context.Context, pdfPath, title, persona, voice string) (*store.Project, *store.Job, error) {
	absPath, err := filepath.Abs(pdfPath)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid path: %w", err)
	}
	if _, err := os.Stat(absPath); err != nil {
		return nil, nil, fmt.Errorf("pdf not found: %w", err)
	}

	if persona == "" {
		persona = PersonaCEO
	}
	if !ValidPersona(persona) {
		return nil, nil, fmt.Errorf("unknown persona %q", persona)
	}
	if voice == "" {
		voice = Voices[0]
	}
	if !ValidVoice(voice) {
		return nil, nil, fmt.Errorf("unknown voice %q", voice)
	}
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(absPath), filepath.Ext(absPath))
	}

	now := time.Now()
	project := &store.Project{
		ID:        uuid.NewString(),
		Title:     title,
		Persona:   persona,
		Voice:     voice,
		PDFPath:   absPath,
		Status:    store.ProjectImporting,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateProject(ctx, project); err != nil {
		return nil, nil, fmt.Errorf("cannot create project: %w", err)
	}

	job := &store.Job{
		ID:        uuid.NewString(),
		Type:      store.JobTypeBuild,
		Status:    store.JobPending,
		ProjectID: project.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateJob(ctx, job); err != nil {
		return nil, nil, fmt.Errorf("cannot queue build job: %w", err)
	}

	s.logger.Info("project imported",
		"project_id", project.ID,
		"title", title,
		"persona", persona,
		"voice", voice)
	return project, job, nil
}

// ExecuteBuild runs one build job to completion: rasterise, generate
// scripts, then caption and synthesise each slide. Any synthesis or
// rasterisation failure fails both the job and the project; caption
// failures degrade to the placeholder caption.
func (s *Service) ExecuteBuild(ctx context.Context, jobID, projectID string) error {
	project, err := s.repo.GetProject(ctx, projectID)
	if err != nil {
		return err
	}
	if project == nil {
		s.repo.UpdateJobStatus(ctx, jobID, store.JobFailed, "project not found")
		return fmt.Errorf("project %s not found", projectID)
	}

	s.repo.UpdateJobStatus(ctx, jobID, store.JobRunning, "")
	if err := s.buildProject(ctx, jobID, project); err != nil {
		s.repo.UpdateJobStatus(ctx, jobID, store.JobFailed, err.Error())
		s.repo.UpdateProjectStatus(ctx, projectID, store.ProjectFailed, err.Error())
		return err
	}

	s.repo.UpdateJobStatus(ctx, jobID, store.JobDone, "")
	s.repo.UpdateProjectStatus(ctx, projectID, store.ProjectReady, "")
	s.logger.Info("project built", "project_id", projectID)
	return nil
}

func (s *Service) buildProject(ctx context.Context, jobID string, project *store.Project) error {
	projectDir := filepath.Join(s.artifacts, project.ID)

	pagePaths, err := s.rasterizer.Rasterize(ctx, project.PDFPath, filepath.Join(projectDir, "pages"))
	if err != nil {
		return fmt.Errorf("rasterise: %w", err)
	}
	s.repo.UpdateJobProgress(ctx, jobID, progressRasterised)

	images := make([][]byte, len(pagePaths))
	for i, p := range pagePaths {
		data, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("cannot read page image: %w", err)
		}
		images[i] = data
	}

	scripts, err := s.scripts.Scripts(ctx, images, project.Persona)
	if err != nil {
		return fmt.Errorf("script generation: %w", err)
	}
	s.repo.UpdateJobProgress(ctx, jobID, progressScripted)

	audioDir := filepath.Join(projectDir, "slides")
	if err := os.MkdirAll(audioDir, 0755); err != nil {
		return fmt.Errorf("cannot create slide dir: %w", err)
	}

	// Drop any slides from a previous failed attempt.
	if err := s.repo.DeleteSlidesByProject(ctx, project.ID); err != nil {
		return fmt.Errorf("cannot clear stale slides: %w", err)
	}

	for i, script := range scripts {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		page := i + 1

		caption, err := s.captioner.Caption(ctx, script)
		if err != nil {
			s.logger.Warn("caption generation failed, using placeholder",
				"project_id", project.ID, "page", page, "error", err)
			caption = PlaceholderCaption
		}

		pcm, sampleRate, err := s.synth.Synthesize(ctx, script, project.Voice)
		if err != nil {
			return fmt.Errorf("synthesis for slide %d: %w", page, err)
		}

		duration, err := wav.Duration(pcm, sampleRate)
		if err != nil {
			return fmt.Errorf("invalid slide %d audio: %w", page, err)
		}

		container, err := wav.Encode(pcm, sampleRate)
		if err != nil {
			return fmt.Errorf("cannot encode slide %d audio: %w", page, err)
		}
		audioPath := filepath.Join(audioDir, fmt.Sprintf("page-%d.wav", page))
		if err := os.WriteFile(audioPath, container, 0644); err != nil {
			return fmt.Errorf("cannot write slide %d audio: %w", page, err)
		}

		slide := &store.Slide{
			ID:         uuid.NewString(),
			ProjectID:  project.ID,
			PageNumber: page,
			ImagePath:  pagePaths[i],
			Script:     script,
			Caption:    caption,
			AudioPath:  audioPath,
			Duration:   duration,
			SampleRate: sampleRate,
			CreatedAt:  time.Now(),
		}
		if err := s.repo.CreateSlide(ctx, slide); err != nil {
			return fmt.Errorf("cannot persist slide %d: %w", page, err)
		}

		progress := progressScripted + (page*(100-progressScripted))/len(scripts)
		s.repo.UpdateJobProgress(ctx, jobID, progress)
	}

	return nil
}

// QueueExport creates a pending export job for a ready project.
func (s *Service) QueueExport(ctx context.Context, projectID string) (*store.Job, error) {
	project, err := s.repo.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, fmt.Errorf("project %s not found", projectID)
	}
	if project.Status != store.ProjectReady {
		return nil, fmt.Errorf("project %s is %s, not ready", projectID, project.Status)
	}

	now := time.Now()
	job := &store.Job{
		ID:        uuid.NewString(),
		Type:      store.JobTypeExport,
		Status:    store.JobPending,
		ProjectID: projectID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("cannot queue export job: %w", err)
	}

	s.logger.Info("export job created", "job_id", job.ID, "project_id", projectID)
	return job, nil
}

// LoadDeck materialises a ready project's slides from their stored
// artifacts into an in-memory deck.
func (s *Service) LoadDeck(ctx context.Context, projectID string) (*deck.Deck, error) {
	project, err := s.repo.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, fmt.Errorf("project %s not found", projectID)
	}
	if project.Status != store.ProjectReady {
		return nil, fmt.Errorf("project %s is %s, not ready", projectID, project.Status)
	}

	slides, err := s.repo.GetSlidesByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	b := deck.NewBuilder(project.Title)
	for _, slide := range slides {
		f, err := os.Open(slide.ImagePath)
		if err != nil {
			return nil, fmt.Errorf("cannot open slide %d image: %w", slide.PageNumber, err)
		}
		img, err := png.Decode(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("cannot decode slide %d image: %w", slide.PageNumber, err)
		}

		af, err := os.Open(slide.AudioPath)
		if err != nil {
			return nil, fmt.Errorf("cannot open slide %d audio: %w", slide.PageNumber, err)
		}
		pcm, info, err := wav.Decode(af)
		af.Close()
		if err != nil {
			return nil, fmt.Errorf("cannot parse slide %d audio: %w", slide.PageNumber, err)
		}
		if info.SampleRate != slide.SampleRate {
			return nil, fmt.Errorf("slide %d audio sample rate %d does not match stored %d",
				slide.PageNumber, info.SampleRate, slide.SampleRate)
		}

		b.Add(img, slide.Script, slide.Caption, pcm, slide.SampleRate, slide.Duration)
	}

	return b.Build()
}

// Transcript renders a project's narration as a plain-text export.
func (s *Service) Transcript(ctx context.Context, projectID string) (string, error) {
	project, err := s.repo.GetProject(ctx, projectID)
	if err != nil {
		return "", err
	}
	if project == nil {
		return "", fmt.Errorf("project %s not found", projectID)
	}

	slides, err := s.repo.GetSlidesByProject(ctx, projectID)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "TRANSCRIPT EXPORT\nPersona: %s\nVoice: %s\n\n", project.Persona, project.Voice)
	for _, slide := range slides {
		fmt.Fprintf(&b, "[SLIDE %d]\nCaption: %s\nScript: %s\n\n", slide.PageNumber, slide.Caption, slide.Script)
	}
	return b.String(), nil
}

// ProjectDir returns the artifacts directory for one project.
func (s *Service) ProjectDir(projectID string) string {
	return filepath.Join(s.artifacts, projectID)
}
