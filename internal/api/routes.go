package api

import (
	"encoding/json"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/slidecast/slidecast/internal/store"
)

func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))

	r.Get("/health", healthHandler(cfg))

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Repository, cfg.Logger))

		r.Get("/status", statusHandler(cfg))
		r.Get("/projects", listProjectsHandler(cfg))
		r.Post("/projects", importProjectHandler(cfg))
		r.Get("/projects/{id}", getProjectHandler(cfg))
		r.Delete("/projects/{id}", deleteProjectHandler(cfg))
		r.Get("/projects/{id}/slides", listSlidesHandler(cfg))
		r.Get("/projects/{id}/transcript", transcriptHandler(cfg))
		r.Post("/projects/{id}/load", loadProjectHandler(cfg))
		r.Post("/projects/{id}/export", exportProjectHandler(cfg))
		r.Get("/jobs", listJobsHandler(cfg))
		r.Get("/jobs/{id}", getJobHandler(cfg))
		r.Post("/playback/toggle", playbackToggleHandler(cfg))
		r.Post("/playback/reset", playbackResetHandler(cfg))
		r.Post("/playback/mute", playbackMuteHandler(cfg))
		r.Get("/playback/state", playbackStateHandler(cfg))
		r.Get("/artifacts/*", artifactHandler(cfg))
	})

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uptime := int64(time.Since(cfg.StartTime).Seconds())
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:   "ok",
			Version:  "0.1.0",
			UptimeS:  uptime,
			DeviceID: cfg.DeviceID,
		})
	}
}

func statusHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		projects, _ := cfg.Repository.ListProjects(ctx)
		jobs, _ := cfg.Repository.ListJobs(ctx, 10)

		state := "idle"
		var activeJob *JobResponse
		jobsRunning := 0
		lastError := ""

		if cfg.Runner != nil && cfg.Runner.IsPaused() {
			state = "paused"
		}

		for _, j := range jobs {
			if j.Status == store.JobRunning {
				state = "working"
				resp := JobToResponse(j)
				activeJob = &resp
				jobsRunning++
			}
			if j.Status == store.JobFailed && lastError == "" {
				lastError = j.Error
			}
		}

		if lastError != "" && state == "idle" {
			state = "error"
		}

		resp := StatusResponse{
			State:         state,
			LastError:     lastError,
			ProjectsCount: len(projects),
			JobsRunning:   jobsRunning,
			ActiveJob:     activeJob,
		}

		if cfg.Controller != nil {
			resp.Playback = cfg.Controller.Snapshot()
		}

		if cfg.Prober != nil {
			if caps := cfg.Prober.Peek(); caps != nil {
				resp.Tools = &ToolsResponse{
					HasFFmpeg:   caps.HasFFmpeg,
					HasPdftoppm: caps.HasPdftoppm,
					LastProbeAt: caps.ProbedAt.Format(time.RFC3339),
				}
			}
		}

		WriteJSON(w, http.StatusOK, resp)
	}
}

func listProjectsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projects, err := cfg.Repository.ListProjects(r.Context())
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list projects", "INTERNAL_ERROR")
			return
		}

		resp := ProjectsResponse{Projects: make([]ProjectResponse, len(projects))}
		for i, p := range projects {
			resp.Projects[i] = ProjectToResponse(p)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func importProjectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ImportRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		if req.Path == "" {
			WriteError(w, http.StatusBadRequest, "path is required", "BAD_REQUEST")
			return
		}

		project, job, err := cfg.Studio.ImportProject(r.Context(), req.Path, req.Title, req.Persona, req.Voice)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}

		WriteJSON(w, http.StatusCreated, ImportResponse{ProjectID: project.ID, JobID: job.ID})
	}
}

func getProjectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			WriteError(w, http.StatusBadRequest, "project id required", "BAD_REQUEST")
			return
		}

		project, err := cfg.Repository.GetProject(r.Context(), id)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		if project == nil {
			WriteError(w, http.StatusNotFound, "project not found", "NOT_FOUND")
			return
		}

		WriteJSON(w, http.StatusOK, ProjectToResponse(project))
	}
}

func deleteProjectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			WriteError(w, http.StatusBadRequest, "project id required", "BAD_REQUEST")
			return
		}

		if err := cfg.Repository.DeleteProject(r.Context(), id); err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		if err := os.RemoveAll(cfg.Studio.ProjectDir(id)); err != nil {
			cfg.Logger.Warn("cannot remove project artifacts", "project_id", id, "error", err)
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func listSlidesHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			WriteError(w, http.StatusBadRequest, "project id required", "BAD_REQUEST")
			return
		}

		slides, err := cfg.Repository.GetSlidesByProject(r.Context(), id)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}

		resp := SlidesResponse{Slides: make([]SlideResponse, len(slides))}
		for i, s := range slides {
			resp.Slides[i] = SlideToResponse(s)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func transcriptHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			WriteError(w, http.StatusBadRequest, "project id required", "BAD_REQUEST")
			return
		}

		text, err := cfg.Studio.Transcript(r.Context(), id)
		if err != nil {
			WriteError(w, http.StatusNotFound, err.Error(), "NOT_FOUND")
			return
		}

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="transcript.txt"`)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(text))
	}
}

func loadProjectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			WriteError(w, http.StatusBadRequest, "project id required", "BAD_REQUEST")
			return
		}
		if cfg.Controller == nil {
			WriteError(w, http.StatusServiceUnavailable, "playback is not configured", "PLAYBACK_UNAVAILABLE")
			return
		}

		d, err := cfg.Studio.LoadDeck(r.Context(), id)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}

		cfg.Controller.Load(d)
		WriteJSON(w, http.StatusOK, cfg.Controller.Snapshot())
	}
}

func exportProjectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			WriteError(w, http.StatusBadRequest, "project id required", "BAD_REQUEST")
			return
		}

		job, err := cfg.Studio.QueueExport(r.Context(), id)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}

		WriteJSON(w, http.StatusAccepted, ExportResponse{JobID: job.ID})
	}
}

func listJobsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobs, err := cfg.Repository.ListJobs(r.Context(), 50)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list jobs", "INTERNAL_ERROR")
			return
		}

		resp := JobsResponse{Jobs: make([]JobResponse, len(jobs))}
		for i, j := range jobs {
			resp.Jobs[i] = JobToResponse(j)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func getJobHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			WriteError(w, http.StatusBadRequest, "job id required", "BAD_REQUEST")
			return
		}

		job, err := cfg.Repository.GetJob(r.Context(), id)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		if job == nil {
			WriteError(w, http.StatusNotFound, "job not found", "NOT_FOUND")
			return
		}

		WriteJSON(w, http.StatusOK, JobToResponse(job))
	}
}

func playbackToggleHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.Controller == nil {
			WriteError(w, http.StatusServiceUnavailable, "playback is not configured", "PLAYBACK_UNAVAILABLE")
			return
		}
		cfg.Controller.TogglePlay()
		WriteJSON(w, http.StatusOK, cfg.Controller.Snapshot())
	}
}

func playbackResetHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.Controller == nil {
			WriteError(w, http.StatusServiceUnavailable, "playback is not configured", "PLAYBACK_UNAVAILABLE")
			return
		}
		cfg.Controller.Reset()
		WriteJSON(w, http.StatusOK, cfg.Controller.Snapshot())
	}
}

func playbackMuteHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.Controller == nil {
			WriteError(w, http.StatusServiceUnavailable, "playback is not configured", "PLAYBACK_UNAVAILABLE")
			return
		}
		WriteJSON(w, http.StatusOK, MuteResponse{Muted: cfg.Controller.ToggleMute()})
	}
}

func playbackStateHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.Controller == nil {
			WriteError(w, http.StatusServiceUnavailable, "playback is not configured", "PLAYBACK_UNAVAILABLE")
			return
		}
		WriteJSON(w, http.StatusOK, cfg.Controller.Snapshot())
	}
}

func artifactHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rel := chi.URLParam(r, "*")
		if rel == "" {
			WriteError(w, http.StatusBadRequest, "artifact path required", "BAD_REQUEST")
			return
		}

		if err := cfg.Artifacts.ServeArtifact(w, r, rel); err != nil {
			cfg.Logger.Error("artifact serve error", "error", err, "path", rel)
		}
	}
}
