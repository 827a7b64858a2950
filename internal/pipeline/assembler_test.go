package pipeline

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/yungbote/lessonforge/internal/domain"
	"github.com/yungbote/lessonforge/internal/platform/logger"
	"github.com/yungbote/lessonforge/internal/platform/media"
	"github.com/yungbote/lessonforge/internal/render"
	"github.com/yungbote/lessonforge/internal/timeline"
)

// fakeTools records media invocations and fabricates output files so
// pipeline behavior can be tested without ffmpeg on PATH.
type fakeTools struct {
	muxed  []media.SlideshowRequest
	concat [][]string
}

func (f *fakeTools) AssertReady(ctx context.Context) error { return nil }

func (f *fakeTools) ProbeDurationSeconds(ctx context.Context, path string) (float64, error) {
	return 2.0, nil
}

func (f *fakeTools) MuxSlideshow(ctx context.Context, req media.SlideshowRequest) (string, error) {
	f.muxed = append(f.muxed, req)
	if err := os.MkdirAll(filepath.Dir(req.OutPath), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(req.OutPath, []byte("clip"), 0o644); err != nil {
		return "", err
	}
	return req.OutPath, nil
}

func (f *fakeTools) ConcatClips(ctx context.Context, clipPaths []string, outPath string) (string, error) {
	f.concat = append(f.concat, append([]string(nil), clipPaths...))
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(outPath, []byte("final"), 0o644); err != nil {
		return "", err
	}
	return outPath, nil
}

func (f *fakeTools) ExtractFrame(ctx context.Context, videoPath, outPath string, atSeconds float64) (string, error) {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(outPath, []byte("frame"), 0o644); err != nil {
		return "", err
	}
	return outPath, nil
}

// Scene ids chosen so lexicographic order disagrees with authored order.
func assemblyLesson() *domain.Lesson {
	return &domain.Lesson{
		LessonID: "lesson-order",
		Topic:    "Order",
		Prompt:   "order",
		Style:    domain.DefaultStyleTokens(),
		Scenes: []domain.Scene{
			{ID: "zebra", Title: "First", DurationTarget: 5},
			{ID: "alpha", Title: "Second", DurationTarget: 5},
			{ID: "draft", Title: "Draft", DurationTarget: 5, PreviewOnly: true},
		},
	}
}

func lessonTimeline(t *testing.T, lesson *domain.Lesson) *domain.Timeline {
	t.Helper()
	tl, err := timeline.Build(lesson)
	if err != nil {
		t.Fatalf("timeline.Build: %v", err)
	}
	return tl
}

func newTestAssembler(t *testing.T) (Assembler, *fakeTools) {
	t.Helper()
	tools := &fakeTools{}
	renderer, err := render.NewSceneRenderer(logger.Nop(), tools)
	if err != nil {
		t.Fatalf("NewSceneRenderer: %v", err)
	}
	asm, err := NewAssembler(logger.Nop(), renderer, tools, nil)
	if err != nil {
		t.Fatalf("NewAssembler: %v", err)
	}
	return asm, tools
}

func TestRenderFollowsAuthoredOrderAndSkipsPreviewOnly(t *testing.T) {
	asm, tools := newTestAssembler(t)
	out := t.TempDir()

	lesson := assemblyLesson()
	res, err := asm.Render(context.Background(), Request{
		Lesson:    lesson,
		Timeline:  lessonTimeline(t, lesson),
		Alignment: &domain.AlignmentManifest{},
		AudioDir:  out,
		OutputDir: out,
		Preset:    render.PresetMedium,
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	if len(res.Clips) != 2 {
		t.Fatalf("clips: got %d, want 2 (preview-only excluded)", len(res.Clips))
	}
	if res.Clips[0].SceneID != "zebra" || res.Clips[1].SceneID != "alpha" {
		t.Fatalf("clip order: got %s, %s", res.Clips[0].SceneID, res.Clips[1].SceneID)
	}

	if len(tools.concat) != 1 {
		t.Fatalf("concat calls: got %d, want 1", len(tools.concat))
	}
	order := tools.concat[0]
	if !strings.Contains(order[0], "scene_00_zebra") || !strings.Contains(order[1], "scene_01_alpha") {
		t.Fatalf("concat order: %v", order)
	}

	raw, err := os.ReadFile(res.ManifestPath)
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("decode manifest: %v", err)
	}
	artifact, _ := m["artifact"].(string)
	if filepath.IsAbs(artifact) || artifact == "" {
		t.Fatalf("artifact path should be relative, got %q", artifact)
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(res.ManifestPath), filepath.FromSlash(artifact))); err != nil {
		t.Fatalf("artifact not resolvable from manifest dir: %v", err)
	}
}

func TestRenderRejectsZeroScenes(t *testing.T) {
	asm, _ := newTestAssembler(t)
	lesson := &domain.Lesson{LessonID: "empty", Prompt: "x"}

	_, err := asm.Render(context.Background(), Request{
		Lesson:    lesson,
		Timeline:  lessonTimeline(t, lesson),
		Alignment: &domain.AlignmentManifest{},
		OutputDir: t.TempDir(),
		Preset:    render.PresetLow,
	})
	if err == nil {
		t.Fatal("expected error for lesson with no scenes")
	}
}

func TestRenderRequiresTimeline(t *testing.T) {
	asm, _ := newTestAssembler(t)

	_, err := asm.Render(context.Background(), Request{
		Lesson:    assemblyLesson(),
		Alignment: &domain.AlignmentManifest{},
		OutputDir: t.TempDir(),
		Preset:    render.PresetLow,
	})
	if err == nil || !strings.Contains(err.Error(), "timeline") {
		t.Fatalf("expected timeline error, got %v", err)
	}
}

func TestRenderFailsOnMissingAudioArtifact(t *testing.T) {
	asm, _ := newTestAssembler(t)
	out := t.TempDir()

	lesson := assemblyLesson()
	alignment := &domain.AlignmentManifest{
		Scenes: []domain.SceneAlignment{
			{
				SceneID: "zebra",
				Chunks: []domain.AlignmentRecord{
					{Index: 0, File: "zebra/chunk_00.wav", DurationSeconds: 2, StartSeconds: 0},
				},
			},
		},
	}

	_, err := asm.Render(context.Background(), Request{
		Lesson:    lesson,
		Timeline:  lessonTimeline(t, lesson),
		Alignment: alignment,
		AudioDir:  filepath.Join(out, "audio"),
		OutputDir: out,
		Preset:    render.PresetLow,
	})
	if err == nil {
		t.Fatal("expected error for missing narration artifact")
	}
	if !strings.Contains(err.Error(), "zebra") {
		t.Fatalf("error should name the failing scene: %v", err)
	}
}

func TestPreviewIncludesPreviewOnlyScenes(t *testing.T) {
	asm, _ := newTestAssembler(t)
	out := t.TempDir()

	lesson := assemblyLesson()
	res, err := asm.Preview(context.Background(), Request{
		Lesson:    lesson,
		Timeline:  lessonTimeline(t, lesson),
		Alignment: &domain.AlignmentManifest{},
		AudioDir:  out,
		OutputDir: out,
	})
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if len(res.Clips) != 3 {
		t.Fatalf("preview clips: got %d, want 3", len(res.Clips))
	}
	if res.Quality != render.PresetLow.Name {
		t.Fatalf("preview quality: got %q", res.Quality)
	}
	if _, err := os.Stat(res.ManifestPath); err != nil {
		t.Fatalf("preview manifest missing: %v", err)
	}
}

func TestExportFramesNeedsPreviewClips(t *testing.T) {
	asm, _ := newTestAssembler(t)
	out := t.TempDir()
	lesson := assemblyLesson()
	req := Request{
		Lesson:    lesson,
		Timeline:  lessonTimeline(t, lesson),
		Alignment: &domain.AlignmentManifest{},
		AudioDir:  out,
		OutputDir: out,
	}

	if _, err := asm.ExportFrames(context.Background(), req); err == nil {
		t.Fatal("expected error before preview clips exist")
	}

	if _, err := asm.Preview(context.Background(), req); err != nil {
		t.Fatalf("Preview: %v", err)
	}
	frames, err := asm.ExportFrames(context.Background(), req)
	if err != nil {
		t.Fatalf("ExportFrames: %v", err)
	}
	if len(frames) != 3 {
		t.Fatalf("frames: got %d, want 3", len(frames))
	}
	for _, f := range frames {
		if _, err := os.Stat(f); err != nil {
			t.Fatalf("frame missing: %v", err)
		}
	}
}
