package store

import (
	"context"
	"database/sql"
	"time"
)

type Repository interface {
	CreateProject(ctx context.Context, p *Project) error
	GetProject(ctx context.Context, id string) (*Project, error)
	ListProjects(ctx context.Context) ([]*Project, error)
	UpdateProjectStatus(ctx context.Context, id, status, errorMsg string) error
	DeleteProject(ctx context.Context, id string) error

	CreateSlide(ctx context.Context, s *Slide) error
	GetSlidesByProject(ctx context.Context, projectID string) ([]*Slide, error)
	DeleteSlidesByProject(ctx context.Context, projectID string) error

	CreateJob(ctx context.Context, j *Job) error
	GetJob(ctx context.Context, id string) (*Job, error)
	ListJobs(ctx context.Context, limit int) ([]*Job, error)
	ListPendingJobs(ctx context.Context) ([]*Job, error)
	UpdateJobStatus(ctx context.Context, id, status, errorMsg string) error
	UpdateJobProgress(ctx context.Context, id string, progress int) error
	UpdateJobArtifact(ctx context.Context, id, artifactPath string) error

	GetConfig(ctx context.Context, key string) (string, error)
	SetConfig(ctx context.Context, key, value string) error
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) CreateProject(ctx context.Context, p *Project) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO projects (id, title, persona, voice, pdf_path, status, error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.Title, p.Persona, p.Voice, p.PDFPath, p.Status, nullString(p.Error),
		p.CreatedAt.Format(time.RFC3339), p.UpdatedAt.Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) GetProject(ctx context.Context, id string) (*Project, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, title, persona, voice, pdf_path, status, error, created_at, updated_at
		FROM projects WHERE id = ?
	`, id)
	return scanProject(row)
}

func scanProject(row *sql.Row) (*Project, error) {
	var p Project
	var errMsg sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(&p.ID, &p.Title, &p.Persona, &p.Voice, &p.PDFPath, &p.Status, &errMsg, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	p.Error = errMsg.String
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	p.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &p, nil
}

func (r *SQLiteRepository) ListProjects(ctx context.Context) ([]*Project, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, persona, voice, pdf_path, status, error, created_at, updated_at
		FROM projects ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []*Project
	for rows.Next() {
		var p Project
		var errMsg sql.NullString
		var createdAt, updatedAt string

		if err := rows.Scan(&p.ID, &p.Title, &p.Persona, &p.Voice, &p.PDFPath, &p.Status, &errMsg, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		p.Error = errMsg.String
		p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		p.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		projects = append(projects, &p)
	}
	return projects, rows.Err()
}

func (r *SQLiteRepository) UpdateProjectStatus(ctx context.Context, id, status, errorMsg string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE projects SET status = ?, error = ?, updated_at = datetime('now') WHERE id = ?
	`, status, nullString(errorMsg), id)
	return err
}

func (r *SQLiteRepository) DeleteProject(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM projects WHERE id = ?", id)
	return err
}

func (r *SQLiteRepository) CreateSlide(ctx context.Context, s *Slide) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO slides (id, project_id, page_number, image_path, script, caption, audio_path, duration_ms, sample_rate, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, s.ID, s.ProjectID, s.PageNumber, s.ImagePath, s.Script, s.Caption, s.AudioPath,
		s.Duration.Milliseconds(), s.SampleRate, s.CreatedAt.Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) GetSlidesByProject(ctx context.Context, projectID string) ([]*Slide, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, project_id, page_number, image_path, script, caption, audio_path, duration_ms, sample_rate, created_at
		FROM slides WHERE project_id = ? ORDER BY page_number ASC
	`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var slides []*Slide
	for rows.Next() {
		var s Slide
		var durationMS int64
		var createdAt string

		if err := rows.Scan(&s.ID, &s.ProjectID, &s.PageNumber, &s.ImagePath, &s.Script, &s.Caption, &s.AudioPath, &durationMS, &s.SampleRate, &createdAt); err != nil {
			return nil, err
		}
		s.Duration = time.Duration(durationMS) * time.Millisecond
		s.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		slides = append(slides, &s)
	}
	return slides, rows.Err()
}

func (r *SQLiteRepository) DeleteSlidesByProject(ctx context.Context, projectID string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM slides WHERE project_id = ?", projectID)
	return err
}

func (r *SQLiteRepository) CreateJob(ctx context.Context, j *Job) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO jobs (id, type, status, project_id, progress, artifact_path, error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, j.ID, j.Type, j.Status, nullString(j.ProjectID), j.Progress,
		nullString(j.ArtifactPath), nullString(j.Error),
		j.CreatedAt.Format(time.RFC3339), j.UpdatedAt.Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) GetJob(ctx context.Context, id string) (*Job, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, type, status, project_id, progress, artifact_path, error, created_at, updated_at
		FROM jobs WHERE id = ?
	`, id)

	var j Job
	var projectID, artifactPath, errMsg sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(&j.ID, &j.Type, &j.Status, &projectID, &j.Progress, &artifactPath, &errMsg, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	j.ProjectID = projectID.String
	j.ArtifactPath = artifactPath.String
	j.Error = errMsg.String
	j.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	j.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &j, nil
}

func (r *SQLiteRepository) ListJobs(ctx context.Context, limit int) ([]*Job, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, type, status, project_id, progress, artifact_path, error, created_at, updated_at
		FROM jobs ORDER BY created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanJobs(rows)
}

func (r *SQLiteRepository) ListPendingJobs(ctx context.Context) ([]*Job, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, type, status, project_id, progress, artifact_path, error, created_at, updated_at
		FROM jobs WHERE status = 'pending' ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanJobs(rows)
}

func scanJobs(rows *sql.Rows) ([]*Job, error) {
	var jobs []*Job
	for rows.Next() {
		var j Job
		var projectID, artifactPath, errMsg sql.NullString
		var createdAt, updatedAt string

		if err := rows.Scan(&j.ID, &j.Type, &j.Status, &projectID, &j.Progress, &artifactPath, &errMsg, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		j.ProjectID = projectID.String
		j.ArtifactPath = artifactPath.String
		j.Error = errMsg.String
		j.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		j.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		jobs = append(jobs, &j)
	}
	return jobs, rows.Err()
}

func (r *SQLiteRepository) UpdateJobStatus(ctx context.Context, id, status, errorMsg string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE jobs SET status = ?, error = ?, updated_at = datetime('now') WHERE id = ?
	`, status, nullString(errorMsg), id)
	return err
}

func (r *SQLiteRepository) UpdateJobProgress(ctx context.Context, id string, progress int) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE jobs SET progress = ?, updated_at = datetime('now') WHERE id = ?
	`, progress, id)
	return err
}

func (r *SQLiteRepository) UpdateJobArtifact(ctx context.Context, id, artifactPath string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE jobs SET artifact_path = ?, updated_at = datetime('now') WHERE id = ?
	`, artifactPath, id)
	return err
}

func (r *SQLiteRepository) GetConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, "SELECT value FROM config WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

func (r *SQLiteRepository) SetConfig(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
