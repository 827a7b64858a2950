package runstore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/lessonforge/internal/domain"
	"github.com/yungbote/lessonforge/internal/platform/logger"
)

type RenderRunRepo interface {
	Begin(ctx context.Context, lessonID, kind, quality string) (*domain.RenderRun, error)
	AddArtifact(ctx context.Context, runID uuid.UUID, artifact *domain.RenderArtifact) error
	Finish(ctx context.Context, runID uuid.UUID, status string, runErr error, metadata map[string]any) error
	ListRecent(ctx context.Context, lessonID string, limit int) ([]*domain.RenderRun, error)
}

type renderRunRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRenderRunRepo(db *gorm.DB, baseLog *logger.Logger) RenderRunRepo {
	return &renderRunRepo{
		db:  db,
		log: baseLog.With("repo", "RenderRunRepo"),
	}
}

func (r *renderRunRepo) Begin(ctx context.Context, lessonID, kind, quality string) (*domain.RenderRun, error) {
	run := &domain.RenderRun{
		ID:        uuid.New(),
		LessonID:  lessonID,
		Kind:      kind,
		Quality:   quality,
		Status:    domain.RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	if err := r.db.WithContext(ctx).Create(run).Error; err != nil {
		return nil, err
	}
	return run, nil
}

func (r *renderRunRepo) AddArtifact(ctx context.Context, runID uuid.UUID, artifact *domain.RenderArtifact) error {
	if artifact.ID == uuid.Nil {
		artifact.ID = uuid.New()
	}
	artifact.RunID = runID
	artifact.CreatedAt = time.Now().UTC()
	return r.db.WithContext(ctx).Create(artifact).Error
}

func (r *renderRunRepo) Finish(ctx context.Context, runID uuid.UUID, status string, runErr error, metadata map[string]any) error {
	now := time.Now().UTC()
	updates := map[string]interface{}{
		"status":      status,
		"finished_at": &now,
	}
	if runErr != nil {
		updates["error"] = runErr.Error()
	}
	if len(metadata) > 0 {
		raw, err := json.Marshal(metadata)
		if err == nil {
			updates["metadata"] = datatypes.JSON(raw)
		}
	}
	return r.db.WithContext(ctx).
		Model(&domain.RenderRun{}).
		Where("id = ?", runID).
		Updates(updates).Error
}

func (r *renderRunRepo) ListRecent(ctx context.Context, lessonID string, limit int) ([]*domain.RenderRun, error) {
	if limit <= 0 {
		limit = 20
	}
	q := r.db.WithContext(ctx).
		Preload("Artifacts").
		Order("started_at DESC").
		Limit(limit)
	if lessonID != "" {
		q = q.Where("lesson_id = ?", lessonID)
	}
	var out []*domain.RenderRun
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
