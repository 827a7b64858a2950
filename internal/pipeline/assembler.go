// Package pipeline drives the full lesson render: scene clips in authored
// order, lossless concatenation, and the manifests that describe the
// resulting artifacts.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/yungbote/lessonforge/internal/domain"
	"github.com/yungbote/lessonforge/internal/platform/ctxutil"
	"github.com/yungbote/lessonforge/internal/platform/logger"
	"github.com/yungbote/lessonforge/internal/platform/media"
	"github.com/yungbote/lessonforge/internal/render"
)

// Assembler renders scenes strictly sequentially in lesson order and
// stitches the clips into one artifact with continuous audio.
type Assembler interface {
	// Render produces the final video: every non-preview scene rendered
	// at the requested preset, concatenated, plus a final manifest.
	Render(ctx context.Context, req Request) (*Result, error)

	// Preview renders every scene (preview-only included) at the low
	// preset and writes a preview manifest; no concatenation.
	Preview(ctx context.Context, req Request) (*Result, error)

	// ExportFrames extracts one representative PNG per previously
	// rendered preview clip.
	ExportFrames(ctx context.Context, req Request) ([]string, error)
}

// Request carries everything one pipeline invocation needs: the lesson,
// its Timeline projection, and the completed alignment index. AudioDir is
// where the alignment manifest's file references resolve; OutputDir is
// the artifact root (the lesson directory is created beneath it).
type Request struct {
	Lesson    *domain.Lesson
	Timeline  *domain.Timeline
	Alignment *domain.AlignmentManifest
	AudioDir  string
	OutputDir string
	Preset    render.QualityPreset
}

// Result describes the artifacts one run produced.
type Result struct {
	RunID        uuid.UUID
	LessonID     string
	Kind         string
	Quality      string
	ArtifactPath string
	Clips        []*render.SceneClip
	ManifestPath string
}

// RunRecorder receives run lifecycle notifications. A nil recorder
// disables history without changing pipeline behavior.
type RunRecorder interface {
	Begin(ctx context.Context, lessonID, kind, quality string) (*domain.RenderRun, error)
	AddArtifact(ctx context.Context, runID uuid.UUID, artifact *domain.RenderArtifact) error
	Finish(ctx context.Context, runID uuid.UUID, status string, runErr error, metadata map[string]any) error
}

type assembler struct {
	log      *logger.Logger
	renderer render.SceneRenderer
	media    media.Tools
	recorder RunRecorder
}

func NewAssembler(log *logger.Logger, renderer render.SceneRenderer, tools media.Tools, recorder RunRecorder) (Assembler, error) {
	if renderer == nil {
		return nil, fmt.Errorf("scene renderer required")
	}
	if tools == nil {
		return nil, fmt.Errorf("media tools required")
	}
	return &assembler{
		log:      log.With("service", "PipelineAssembler"),
		renderer: renderer,
		media:    tools,
		recorder: recorder,
	}, nil
}

func (a *assembler) Render(ctx context.Context, req Request) (result *Result, err error) {
	ctx = ctxutil.Default(ctx)
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if req.Preset.Width <= 0 {
		req.Preset = render.PresetMedium
	}

	scenes := make([]*domain.Scene, 0, len(req.Lesson.Scenes))
	for i := range req.Lesson.Scenes {
		if req.Lesson.Scenes[i].PreviewOnly {
			continue
		}
		scenes = append(scenes, &req.Lesson.Scenes[i])
	}
	if len(scenes) == 0 {
		return nil, fmt.Errorf("assembly failed: lesson %s has no renderable scenes", req.Lesson.LessonID)
	}

	runID, finish := a.beginRun(ctx, req.Lesson.LessonID, "render", req.Preset.Name)
	defer func() { finish(err) }()

	lessonDir := filepath.Join(req.OutputDir, req.Lesson.LessonID)
	clipsDir := filepath.Join(lessonDir, "clips")

	clips, err := a.renderScenes(ctx, req, scenes, clipsDir, req.Preset, runID)
	if err != nil {
		return nil, err
	}

	clipPaths := make([]string, len(clips))
	total := 0.0
	for i, c := range clips {
		clipPaths[i] = c.Path
		total += c.DurationSeconds
	}

	finalPath := filepath.Join(lessonDir, "final", req.Lesson.LessonID+".mp4")
	if _, err = a.media.ConcatClips(ctx, clipPaths, finalPath); err != nil {
		return nil, fmt.Errorf("assembly failed for lesson %s: %w", req.Lesson.LessonID, err)
	}
	a.recordArtifact(ctx, runID, &domain.RenderArtifact{
		Kind:            "final",
		Path:            finalPath,
		DurationSeconds: total,
	})

	manifestPath := filepath.Join(lessonDir, "manifest.json")
	if err = a.writeRunManifest(manifestPath, req, "render", clips, relPath(lessonDir, finalPath), total); err != nil {
		return nil, err
	}

	a.log.Info("lesson assembled",
		"lesson_id", req.Lesson.LessonID,
		"scenes", len(clips),
		"duration_seconds", total,
		"artifact", finalPath,
	)
	return &Result{
		RunID:        runID,
		LessonID:     req.Lesson.LessonID,
		Kind:         "render",
		Quality:      req.Preset.Name,
		ArtifactPath: finalPath,
		Clips:        clips,
		ManifestPath: manifestPath,
	}, nil
}

func (a *assembler) Preview(ctx context.Context, req Request) (result *Result, err error) {
	ctx = ctxutil.Default(ctx)
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if len(req.Lesson.Scenes) == 0 {
		return nil, fmt.Errorf("preview failed: lesson %s has no scenes", req.Lesson.LessonID)
	}

	preset := render.PresetLow
	runID, finish := a.beginRun(ctx, req.Lesson.LessonID, "preview", preset.Name)
	defer func() { finish(err) }()

	scenes := make([]*domain.Scene, len(req.Lesson.Scenes))
	for i := range req.Lesson.Scenes {
		scenes[i] = &req.Lesson.Scenes[i]
	}

	lessonDir := filepath.Join(req.OutputDir, req.Lesson.LessonID)
	previewDir := filepath.Join(lessonDir, "preview")

	clips, err := a.renderScenes(ctx, req, scenes, previewDir, preset, runID)
	if err != nil {
		return nil, err
	}

	total := 0.0
	for _, c := range clips {
		total += c.DurationSeconds
	}

	manifestPath := filepath.Join(previewDir, "preview_manifest.json")
	if err = a.writeRunManifest(manifestPath, req, "preview", clips, "", total); err != nil {
		return nil, err
	}

	a.log.Info("preview rendered",
		"lesson_id", req.Lesson.LessonID,
		"scenes", len(clips),
		"manifest", manifestPath,
	)
	return &Result{
		RunID:        runID,
		LessonID:     req.Lesson.LessonID,
		Kind:         "preview",
		Quality:      preset.Name,
		Clips:        clips,
		ManifestPath: manifestPath,
	}, nil
}

// ExportFrames needs preview clips on disk; it grabs the midpoint frame
// of each one.
func (a *assembler) ExportFrames(ctx context.Context, req Request) ([]string, error) {
	ctx = ctxutil.Default(ctx)
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	lessonDir := filepath.Join(req.OutputDir, req.Lesson.LessonID)
	previewDir := filepath.Join(lessonDir, "preview")
	framesDir := filepath.Join(lessonDir, "frames")

	out := make([]string, 0, len(req.Lesson.Scenes))
	for i := range req.Lesson.Scenes {
		scene := &req.Lesson.Scenes[i]
		clipPath := filepath.Join(previewDir, clipName(i, scene.ID))
		if _, err := os.Stat(clipPath); err != nil {
			return nil, fmt.Errorf("frame export needs preview clips: scene %s clip missing at %s", scene.ID, clipPath)
		}
		dur, err := a.media.ProbeDurationSeconds(ctx, clipPath)
		if err != nil {
			return nil, fmt.Errorf("frame export: %w", err)
		}
		framePath := filepath.Join(framesDir, fmt.Sprintf("scene_%02d_%s.png", i, scene.ID))
		if _, err := a.media.ExtractFrame(ctx, clipPath, framePath, dur/2); err != nil {
			return nil, fmt.Errorf("frame export: %w", err)
		}
		out = append(out, framePath)
	}

	a.log.Info("frames exported", "lesson_id", req.Lesson.LessonID, "count", len(out))
	return out, nil
}

// renderScenes walks scenes strictly sequentially in the given order;
// any scene failure aborts and names the scene, leaving earlier clips on
// disk.
func (a *assembler) renderScenes(ctx context.Context, req Request, scenes []*domain.Scene, clipsDir string, preset render.QualityPreset, runID uuid.UUID) ([]*render.SceneClip, error) {
	clips := make([]*render.SceneClip, 0, len(scenes))
	for i, scene := range scenes {
		clip, err := a.renderer.RenderScene(ctx, render.SceneRenderRequest{
			Scene:     scene,
			Events:    req.Timeline.SceneEvents(scene.ID),
			Style:     req.Lesson.Style,
			Alignment: req.Alignment.Scene(scene.ID),
			AudioDir:  req.AudioDir,
			Preset:    preset,
			OutPath:   filepath.Join(clipsDir, clipName(i, scene.ID)),
		})
		if err != nil {
			return nil, fmt.Errorf("scene render stage failed: %w", err)
		}
		a.recordArtifact(ctx, runID, &domain.RenderArtifact{
			SceneID:         scene.ID,
			Kind:            "clip",
			Path:            clip.Path,
			DurationSeconds: clip.DurationSeconds,
		})
		clips = append(clips, clip)
	}
	return clips, nil
}

// runManifest is the JSON artifact describing one run's outputs. Paths
// are relative to the manifest's directory so the lesson folder can be
// moved as a unit.
type runManifest struct {
	LessonID        string             `json:"lesson_id"`
	Kind            string             `json:"kind"`
	Quality         string             `json:"quality"`
	Artifact        string             `json:"artifact,omitempty"`
	DurationSeconds float64            `json:"duration_seconds"`
	Scenes          []runManifestScene `json:"scenes"`
}

type runManifestScene struct {
	SceneID         string  `json:"scene_id"`
	Clip            string  `json:"clip"`
	DurationSeconds float64 `json:"duration_seconds"`
}

func (a *assembler) writeRunManifest(path string, req Request, kind string, clips []*render.SceneClip, artifact string, total float64) error {
	baseDir := filepath.Dir(path)
	m := runManifest{
		LessonID:        req.Lesson.LessonID,
		Kind:            kind,
		Quality:         clipQuality(kind, req),
		Artifact:        artifact,
		DurationSeconds: total,
		Scenes:          make([]runManifestScene, 0, len(clips)),
	}
	for _, c := range clips {
		m.Scenes = append(m.Scenes, runManifestScene{
			SceneID:         c.SceneID,
			Clip:            relPath(baseDir, c.Path),
			DurationSeconds: c.DurationSeconds,
		})
	}

	raw, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode run manifest: %w", err)
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return fmt.Errorf("mkdir manifest dir: %w", err)
	}
	if err := os.WriteFile(path, append(raw, '\n'), 0o644); err != nil {
		return fmt.Errorf("write run manifest: %w", err)
	}
	return nil
}

func (a *assembler) beginRun(ctx context.Context, lessonID, kind, quality string) (uuid.UUID, func(error)) {
	if a.recorder == nil {
		return uuid.New(), func(error) {}
	}
	run, err := a.recorder.Begin(ctx, lessonID, kind, quality)
	if err != nil {
		a.log.Warn("run history unavailable, continuing without it", "error", err)
		return uuid.New(), func(error) {}
	}
	return run.ID, func(runErr error) {
		status := domain.RunStatusCompleted
		if runErr != nil {
			status = domain.RunStatusFailed
		}
		if ferr := a.recorder.Finish(ctx, run.ID, status, runErr, nil); ferr != nil {
			a.log.Warn("failed to finalize run record", "run_id", run.ID, "error", ferr)
		}
	}
}

func (a *assembler) recordArtifact(ctx context.Context, runID uuid.UUID, artifact *domain.RenderArtifact) {
	if a.recorder == nil {
		return
	}
	if err := a.recorder.AddArtifact(ctx, runID, artifact); err != nil {
		a.log.Warn("failed to record artifact", "run_id", runID, "path", artifact.Path, "error", err)
	}
}

func validateRequest(req Request) error {
	if req.Lesson == nil {
		return fmt.Errorf("lesson required")
	}
	if req.Timeline == nil {
		return fmt.Errorf("timeline required")
	}
	if req.Alignment == nil {
		return fmt.Errorf("alignment manifest required")
	}
	if req.OutputDir == "" {
		return fmt.Errorf("output dir required")
	}
	return nil
}

// clipName keeps concat order equal to authored order even when scene
// ids would sort differently.
func clipName(index int, sceneID string) string {
	return fmt.Sprintf("scene_%02d_%s.mp4", index, sceneID)
}

func clipQuality(kind string, req Request) string {
	if kind == "preview" {
		return render.PresetLow.Name
	}
	return req.Preset.Name
}

func relPath(base, target string) string {
	rel, err := filepath.Rel(base, target)
	if err != nil {
		return target
	}
	return filepath.ToSlash(rel)
}
