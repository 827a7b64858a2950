// Package runstore is the optional run-history database. The pipeline
// works identically without it; when a database path is supplied each
// run and its artifacts are recorded for later inspection.
package runstore

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/yungbote/lessonforge/internal/domain"
	"github.com/yungbote/lessonforge/internal/platform/logger"
)

type SQLiteService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSQLiteService(logg *logger.Logger, path string) (*SQLiteService, error) {
	slog := logg.With("service", "SQLiteService")
	if path == "" {
		return nil, fmt.Errorf("database path required")
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database at %s: %w", path, err)
	}
	if err := db.AutoMigrate(&domain.RenderRun{}, &domain.RenderArtifact{}); err != nil {
		return nil, fmt.Errorf("failed to migrate run history schema: %w", err)
	}

	slog.Debug("run history database ready", "path", path)
	return &SQLiteService{db: db, log: slog}, nil
}

func (s *SQLiteService) DB() *gorm.DB { return s.db }
