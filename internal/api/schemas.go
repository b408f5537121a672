package api

import (
	"time"

	"github.com/slidecast/slidecast/internal/player"
	"github.com/slidecast/slidecast/internal/store"
)

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	UptimeS  int64  `json:"uptime_s"`
	DeviceID string `json:"device_id"`
}

type StatusResponse struct {
	State         string         `json:"state"`
	LastError     string         `json:"last_error,omitempty"`
	ProjectsCount int            `json:"projects_count"`
	JobsRunning   int            `json:"jobs_running"`
	ActiveJob     *JobResponse   `json:"active_job,omitempty"`
	Playback      player.Session `json:"playback"`
	Tools         *ToolsResponse `json:"tools,omitempty"`
}

type ToolsResponse struct {
	HasFFmpeg   bool   `json:"has_ffmpeg"`
	HasPdftoppm bool   `json:"has_pdftoppm"`
	LastProbeAt string `json:"last_probe_at"`
}

type ProjectResponse struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Persona   string `json:"persona"`
	Voice     string `json:"voice"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	CreatedAt string `json:"created_at"`
}

func ProjectToResponse(p *store.Project) ProjectResponse {
	return ProjectResponse{
		ID:        p.ID,
		Title:     p.Title,
		Persona:   p.Persona,
		Voice:     p.Voice,
		Status:    p.Status,
		Error:     p.Error,
		CreatedAt: p.CreatedAt.Format(time.RFC3339),
	}
}

type ProjectsResponse struct {
	Projects []ProjectResponse `json:"projects"`
}

type SlideResponse struct {
	PageNumber int     `json:"page_number"`
	Script     string  `json:"script"`
	Caption    string  `json:"caption"`
	DurationS  float64 `json:"duration_s"`
}

func SlideToResponse(s *store.Slide) SlideResponse {
	return SlideResponse{
		PageNumber: s.PageNumber,
		Script:     s.Script,
		Caption:    s.Caption,
		DurationS:  s.Duration.Seconds(),
	}
}

type SlidesResponse struct {
	Slides []SlideResponse `json:"slides"`
}

type ImportRequest struct {
	Path    string `json:"path"`
	Title   string `json:"title,omitempty"`
	Persona string `json:"persona,omitempty"`
	Voice   string `json:"voice,omitempty"`
}

type ImportResponse struct {
	ProjectID string `json:"project_id"`
	JobID     string `json:"job_id"`
}

type ExportResponse struct {
	JobID string `json:"job_id"`
}

type JobResponse struct {
	ID           string `json:"id"`
	Type         string `json:"type"`
	Status       string `json:"status"`
	ProjectID    string `json:"project_id,omitempty"`
	Progress     int    `json:"progress"`
	ArtifactPath string `json:"artifact_path,omitempty"`
	Error        string `json:"error,omitempty"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

func JobToResponse(j *store.Job) JobResponse {
	return JobResponse{
		ID:           j.ID,
		Type:         j.Type,
		Status:       j.Status,
		ProjectID:    j.ProjectID,
		Progress:     j.Progress,
		ArtifactPath: j.ArtifactPath,
		Error:        j.Error,
		CreatedAt:    j.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    j.UpdatedAt.Format(time.RFC3339),
	}
}

type JobsResponse struct {
	Jobs []JobResponse `json:"jobs"`
}

type MuteResponse struct {
	Muted bool `json:"muted"`
}
