package studio

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/slidecast/slidecast/internal/export"
	"github.com/slidecast/slidecast/internal/store"
	"github.com/slidecast/slidecast/internal/tools"
)

// Runner drains the job queue: build jobs go through the service,
// export jobs through the recorder. One job runs at a time.
type Runner struct {
	service      *Service
	repo         store.Repository
	recorder     *export.Recorder
	prober       *tools.CachedProber
	logger       *slog.Logger
	pollInterval time.Duration
	running      atomic.Bool
	paused       atomic.Bool
}

func NewRunner(service *Service, repo store.Repository, recorder *export.Recorder, prober *tools.CachedProber, logger *slog.Logger) *Runner {
	return &Runner{
		service:      service,
		repo:         repo,
		recorder:     recorder,
		prober:       prober,
		logger:       logger,
		pollInterval: 2 * time.Second,
	}
}

func (r *Runner) Start(ctx context.Context) {
	if r.running.Swap(true) {
		return
	}

	r.logger.Info("job runner started")

	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("job runner stopping")
			r.running.Store(false)
			return
		case <-ticker.C:
			if !r.paused.Load() {
				r.processNextJob(ctx)
			}
		}
	}
}

func (r *Runner) Pause() {
	r.paused.Store(true)
	r.logger.Info("job runner paused")
}

func (r *Runner) Resume() {
	r.paused.Store(false)
	r.logger.Info("job runner resumed")
}

func (r *Runner) IsPaused() bool {
	return r.paused.Load()
}

func (r *Runner) IsRunning() bool {
	return r.running.Load()
}

func (r *Runner) processNextJob(ctx context.Context) {
	jobs, err := r.repo.ListPendingJobs(ctx)
	if err != nil {
		r.logger.Error("cannot list pending jobs", "error", err)
		return
	}
	if len(jobs) == 0 {
		return
	}

	job := jobs[0]
	r.logger.Info("processing job", "job_id", job.ID, "type", job.Type)

	switch job.Type {
	case store.JobTypeBuild:
		if err := r.service.ExecuteBuild(ctx, job.ID, job.ProjectID); err != nil {
			r.logger.Error("build job failed", "job_id", job.ID, "error", err)
		}

	case store.JobTypeExport:
		r.processExportJob(ctx, job)

	default:
		r.logger.Warn("unknown job type", "type", job.Type)
		r.repo.UpdateJobStatus(ctx, job.ID, store.JobFailed, "unknown job type")
	}
}

func (r *Runner) processExportJob(ctx context.Context, job *store.Job) {
	if r.recorder == nil || r.prober == nil {
		r.repo.UpdateJobStatus(ctx, job.ID, store.JobFailed, "export is not configured")
		return
	}

	r.repo.UpdateJobStatus(ctx, job.ID, store.JobRunning, "")

	caps, err := r.prober.Get(ctx)
	if err != nil {
		r.repo.UpdateJobStatus(ctx, job.ID, store.JobFailed, fmt.Sprintf("tool probe failed: %v", err))
		return
	}
	if !caps.HasFFmpeg {
		r.repo.UpdateJobStatus(ctx, job.ID, store.JobFailed, "ffmpeg is not available")
		return
	}

	d, err := r.service.LoadDeck(ctx, job.ProjectID)
	if err != nil {
		r.repo.UpdateJobStatus(ctx, job.ID, store.JobFailed, fmt.Sprintf("cannot load deck: %v", err))
		return
	}

	outPath := filepath.Join(r.service.ProjectDir(job.ProjectID), "export.mp4")
	enc := export.NewFFmpegEncoder(caps.FFmpegPath, outPath, r.logger)

	r.recorder.SetOnProgress(func(done, total int) {
		r.repo.UpdateJobProgress(ctx, job.ID, done*100/total)
	})
	defer r.recorder.SetOnProgress(nil)

	start := time.Now()
	art, err := r.recorder.Export(ctx, d, enc)
	if err != nil {
		r.repo.UpdateJobStatus(ctx, job.ID, store.JobFailed, fmt.Sprintf("export failed: %v", err))
		return
	}

	r.repo.UpdateJobArtifact(ctx, job.ID, art.Path)
	r.repo.UpdateJobStatus(ctx, job.ID, store.JobDone, "")
	r.logger.Info("export job completed",
		"job_id", job.ID,
		"project_id", job.ProjectID,
		"artifact", art.Path,
		"elapsed", time.Since(start))
}

// GetActiveJobCount reports how many jobs are currently running.
func (r *Runner) GetActiveJobCount(ctx context.Context) int {
	jobs, err := r.repo.ListJobs(ctx, 100)
	if err != nil {
		return 0
	}
	count := 0
	for _, j := range jobs {
		if j.Status == store.JobRunning {
			count++
		}
	}
	return count
}
