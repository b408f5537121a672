package store

import "time"

// Project statuses.
const (
	ProjectImporting = "importing"
	ProjectReady     = "ready"
	ProjectFailed    = "failed"
)

// Job types and statuses.
const (
	JobTypeBuild  = "build"
	JobTypeExport = "export"

	JobPending = "pending"
	JobRunning = "running"
	JobDone    = "done"
	JobFailed  = "failed"
)

// Project is one imported presentation and its narration settings.
type Project struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Persona   string    `json:"persona"`
	Voice     string    `json:"voice"`
	PDFPath   string    `json:"pdf_path"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Slide is one generated page: rendered image, narration script and
// caption, plus the synthesised audio artifact.
type Slide struct {
	ID         string        `json:"id"`
	ProjectID  string        `json:"project_id"`
	PageNumber int           `json:"page_number"`
	ImagePath  string        `json:"image_path"`
	Script     string        `json:"script"`
	Caption    string        `json:"caption"`
	AudioPath  string        `json:"audio_path"`
	Duration   time.Duration `json:"duration"`
	SampleRate int           `json:"sample_rate"`
	CreatedAt  time.Time     `json:"created_at"`
}

// Job is one queued unit of background work.
type Job struct {
	ID           string    `json:"id"`
	Type         string    `json:"type"`
	Status       string    `json:"status"`
	ProjectID    string    `json:"project_id,omitempty"`
	Progress     int       `json:"progress"`
	ArtifactPath string    `json:"artifact_path,omitempty"`
	Error        string    `json:"error,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
