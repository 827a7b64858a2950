package render

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/yungbote/lessonforge/internal/domain"
	"github.com/yungbote/lessonforge/internal/platform/ctxutil"
	"github.com/yungbote/lessonforge/internal/platform/env"
	"github.com/yungbote/lessonforge/internal/platform/logger"
	"github.com/yungbote/lessonforge/internal/platform/media"
)

// SceneRenderer turns one scene plus its narration alignment into a
// self-contained clip. Visuals follow the schedule walk; each narration
// chunk is placed at its alignment start offset.
type SceneRenderer interface {
	RenderScene(ctx context.Context, req SceneRenderRequest) (*SceneClip, error)
}

type SceneRenderRequest struct {
	Scene *domain.Scene

	// Events is the scene's slice of the lesson Timeline, already in
	// timeline order.
	Events []domain.TimelineEvent

	Style     domain.StyleTokens
	Alignment domain.SceneAlignment

	// AudioDir is the directory alignment file references resolve
	// against (the lesson's audio directory).
	AudioDir string

	// WorkDir holds intermediate frame PNGs; it is created if absent and
	// its frames are removed after a successful mux.
	WorkDir string

	Preset  QualityPreset
	OutPath string
}

type SceneClip struct {
	SceneID         string
	Path            string
	DurationSeconds float64
	Width           int
	Height          int
	FPS             int
}

type sceneRenderer struct {
	log   *logger.Logger
	media media.Tools
}

func NewSceneRenderer(log *logger.Logger, tools media.Tools) (SceneRenderer, error) {
	if tools == nil {
		return nil, fmt.Errorf("media tools required")
	}
	return &sceneRenderer{
		log:   log.With("service", "SceneRenderer"),
		media: tools,
	}, nil
}

func (r *sceneRenderer) RenderScene(ctx context.Context, req SceneRenderRequest) (*SceneClip, error) {
	ctx = ctxutil.Default(ctx)
	if req.Scene == nil {
		return nil, fmt.Errorf("scene required")
	}
	if req.OutPath == "" {
		return nil, fmt.Errorf("outPath required")
	}
	if req.Preset.Width <= 0 {
		req.Preset = PresetMedium
	}
	if req.WorkDir == "" {
		req.WorkDir = req.OutPath + ".frames"
	}

	// A narration chunk whose artifact vanished is not recoverable at
	// render time; the scene fails rather than drifting out of sync.
	placements := make([]media.AudioPlacement, 0, len(req.Alignment.Chunks))
	for _, rec := range req.Alignment.Chunks {
		abs := filepath.Join(req.AudioDir, filepath.FromSlash(rec.File))
		if _, err := os.Stat(abs); err != nil {
			return nil, fmt.Errorf("scene %s: narration artifact missing at %s: %w", req.Scene.ID, abs, err)
		}
		placements = append(placements, media.AudioPlacement{
			Path:         abs,
			StartSeconds: rec.StartSeconds,
		})
	}

	sched, err := BuildSchedule(req.Scene.ID, req.Events, req.Style, req.Alignment)
	if err != nil {
		return nil, fmt.Errorf("scene %s: %w", req.Scene.ID, err)
	}

	if err := os.MkdirAll(req.WorkDir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir frame dir: %w", err)
	}

	fontPath := env.Get("LESSONFORGE_FONT", "", r.log)
	artist, err := newFrameArtist(req.Style, req.Preset, fontPath)
	if err != nil {
		return nil, fmt.Errorf("scene %s: %w", req.Scene.ID, err)
	}

	frames := make([]media.SlideshowFrame, 0, len(sched.Spans))
	for i, span := range sched.Spans {
		framePath := filepath.Join(req.WorkDir, fmt.Sprintf("span_%03d.png", i))
		if err := artist.drawSpan(span, framePath); err != nil {
			return nil, fmt.Errorf("scene %s: draw span %d: %w", req.Scene.ID, i, err)
		}
		frames = append(frames, media.SlideshowFrame{
			ImagePath:       framePath,
			DurationSeconds: span.DurationSeconds,
		})
	}

	clipPath, err := r.media.MuxSlideshow(ctx, media.SlideshowRequest{
		Frames:       frames,
		Audio:        placements,
		Width:        req.Preset.Width,
		Height:       req.Preset.Height,
		FPS:          req.Preset.FPS,
		TotalSeconds: sched.TotalSeconds,
		OutPath:      req.OutPath,
	})
	if err != nil {
		return nil, fmt.Errorf("scene %s: %w", req.Scene.ID, err)
	}

	for _, f := range frames {
		_ = os.Remove(f.ImagePath)
	}
	_ = os.Remove(req.WorkDir)

	r.log.Info("scene rendered",
		"scene_id", req.Scene.ID,
		"spans", len(sched.Spans),
		"audio_tracks", len(placements),
		"duration_seconds", sched.TotalSeconds,
		"clip", clipPath,
	)
	return &SceneClip{
		SceneID:         req.Scene.ID,
		Path:            clipPath,
		DurationSeconds: sched.TotalSeconds,
		Width:           req.Preset.Width,
		Height:          req.Preset.Height,
		FPS:             req.Preset.FPS,
	}, nil
}
