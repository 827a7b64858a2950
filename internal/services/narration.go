package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/lessonforge/internal/audio"
	"github.com/yungbote/lessonforge/internal/clients/openai"
	"github.com/yungbote/lessonforge/internal/domain"
	"github.com/yungbote/lessonforge/internal/platform/ctxutil"
	"github.com/yungbote/lessonforge/internal/platform/logger"
	"github.com/yungbote/lessonforge/internal/platform/media"
)

// NarrationSynthesisService produces one audio artifact per narration
// chunk plus the alignment manifest that places each chunk in scene time.
// A chunk is never left without an artifact: when the speech backend is
// unreachable (or the run is offline) the chunk gets deterministic
// silence of its fallback duration.
type NarrationSynthesisService interface {
	Synthesize(ctx context.Context, lesson *domain.Lesson, outputDir string) (*domain.AlignmentManifest, string, error)
}

type NarrationOptions struct {
	Voice       string
	Model       string
	Offline     bool
	MaxParallel int
}

type narrationService struct {
	log   *logger.Logger
	ai    openai.Client
	media media.Tools
	opts  NarrationOptions
}

func NewNarrationSynthesisService(log *logger.Logger, ai openai.Client, tools media.Tools, opts NarrationOptions) NarrationSynthesisService {
	if opts.Voice == "" {
		opts.Voice = "ballad"
	}
	if opts.Model == "" {
		opts.Model = "gpt-4o-mini-tts"
	}
	if opts.MaxParallel <= 0 {
		opts.MaxParallel = 4
	}
	if ai == nil {
		opts.Offline = true
	}
	return &narrationService{
		log:   log.With("service", "NarrationSynthesis"),
		ai:    ai,
		media: tools,
		opts:  opts,
	}
}

// Synthesize writes audio under <outputDir>/<lesson_id>/audio/ and
// returns the alignment manifest plus the manifest file path. File
// references inside the manifest are relative to the audio directory.
func (s *narrationService) Synthesize(ctx context.Context, lesson *domain.Lesson, outputDir string) (*domain.AlignmentManifest, string, error) {
	ctx = ctxutil.Default(ctx)
	if lesson == nil {
		return nil, "", fmt.Errorf("lesson required")
	}

	audioDir := filepath.Join(outputDir, lesson.LessonID, "audio")
	if err := os.MkdirAll(audioDir, 0o755); err != nil {
		return nil, "", fmt.Errorf("mkdir audio dir: %w", err)
	}

	measured := make(map[string][]audio.ChunkMeasurement, len(lesson.Scenes))
	for i := range lesson.Scenes {
		scene := &lesson.Scenes[i]
		if len(scene.Narration) == 0 {
			continue
		}
		if err := os.MkdirAll(filepath.Join(audioDir, scene.ID), 0o755); err != nil {
			return nil, "", fmt.Errorf("mkdir scene audio dir: %w", err)
		}

		records := make([]audio.ChunkMeasurement, len(scene.Narration))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.opts.MaxParallel)
		for j := range scene.Narration {
			j := j
			chunk := scene.Narration[j]
			g.Go(func() error {
				rel := filepath.Join(scene.ID, fmt.Sprintf("chunk_%02d.wav", j))
				abs := filepath.Join(audioDir, rel)
				dur, err := s.synthesizeChunk(gctx, chunk, abs)
				if err != nil {
					return fmt.Errorf("scene %s chunk %d: %w", scene.ID, j, err)
				}
				records[j] = audio.ChunkMeasurement{
					Text:            chunk.Text,
					File:            filepath.ToSlash(rel),
					DurationSeconds: dur,
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, "", err
		}
		measured[scene.ID] = records
	}

	manifest, err := audio.BuildIndex(lesson, measured)
	if err != nil {
		return nil, "", err
	}
	manifest.Voice = s.opts.Voice
	manifest.Model = s.modelLabel()

	manifestPath := filepath.Join(audioDir, "manifest.json")
	raw, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, "", fmt.Errorf("encode alignment manifest: %w", err)
	}
	if err := os.WriteFile(manifestPath, append(raw, '\n'), 0o644); err != nil {
		return nil, "", fmt.Errorf("write alignment manifest: %w", err)
	}

	s.log.Info("narration synthesized",
		"lesson_id", lesson.LessonID,
		"scenes", len(manifest.Scenes),
		"manifest", manifestPath,
	)
	return manifest, manifestPath, nil
}

// synthesizeChunk writes one chunk's audio and returns its measured
// duration. The measured value, not the authored estimate, feeds the
// alignment index.
func (s *narrationService) synthesizeChunk(ctx context.Context, chunk domain.NarrationChunk, outPath string) (float64, error) {
	if !s.opts.Offline {
		raw, err := s.ai.SynthesizeSpeech(ctx, s.opts.Model, s.opts.Voice, chunk.Text)
		if err == nil {
			if werr := os.WriteFile(outPath, raw, 0o644); werr != nil {
				return 0, fmt.Errorf("write audio: %w", werr)
			}
			dur, merr := s.measureAudio(ctx, outPath)
			if merr == nil {
				return dur, nil
			}
			s.log.Warn("synthesized audio not measurable, substituting silence", "path", outPath, "error", merr)
		} else {
			s.log.Warn("speech backend failed, substituting silence", "error", err)
		}
	}

	if err := writeSilenceWAV(outPath, chunk.DurationSeconds); err != nil {
		return 0, fmt.Errorf("write silence: %w", err)
	}
	return readWAVDurationSeconds(outPath)
}

// measureAudio reads the WAV header first and falls back to an ffprobe
// measurement, so a real synthesized artifact in another container is
// kept rather than discarded.
func (s *narrationService) measureAudio(ctx context.Context, path string) (float64, error) {
	dur, err := readWAVDurationSeconds(path)
	if err == nil {
		return dur, nil
	}
	if s.media == nil {
		return 0, err
	}
	dur, perr := s.media.ProbeDurationSeconds(ctx, path)
	if perr != nil {
		return 0, fmt.Errorf("wav header: %v; probe: %w", err, perr)
	}
	return dur, nil
}

func (s *narrationService) modelLabel() string {
	if s.opts.Offline {
		return "offline_silence"
	}
	return strings.TrimSpace(s.opts.Model)
}
