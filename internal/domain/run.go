package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Render run lifecycle statuses.
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// RenderRun is one pipeline invocation recorded in the optional run
// history store.
type RenderRun struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	LessonID   string         `gorm:"index;not null" json:"lesson_id"`
	Kind       string         `gorm:"not null" json:"kind"` // render | preview
	Quality    string         `gorm:"not null" json:"quality"`
	Status     string         `gorm:"index;not null" json:"status"`
	Error      string         `json:"error,omitempty"`
	Metadata   datatypes.JSON `json:"metadata,omitempty"`
	StartedAt  time.Time      `gorm:"not null" json:"started_at"`
	FinishedAt *time.Time     `json:"finished_at,omitempty"`

	Artifacts []RenderArtifact `gorm:"foreignKey:RunID" json:"artifacts,omitempty"`
}

// RenderArtifact is one file a run produced: a scene clip, the final
// video, or a manifest.
type RenderArtifact struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	RunID           uuid.UUID      `gorm:"type:uuid;index;not null" json:"run_id"`
	SceneID         string         `json:"scene_id,omitempty"`
	Kind            string         `gorm:"not null" json:"kind"` // clip | final | manifest | frame
	Path            string         `gorm:"not null" json:"path"`
	DurationSeconds float64        `json:"duration_seconds,omitempty"`
	Metadata        datatypes.JSON `json:"metadata,omitempty"`
	CreatedAt       time.Time      `gorm:"not null" json:"created_at"`
}
