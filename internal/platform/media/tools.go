// Package media is the exec glue around system binaries the render
// pipeline needs.
//
// REQUIRED BINARIES in the render runtime:
//   - ffmpeg for muxing frame sequences with narration audio and for clip
//     concatenation
//   - ffprobe for measuring synthesized audio durations
//
// All operations are synchronous and deterministic for fixed inputs.
package media

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/yungbote/lessonforge/internal/platform/ctxutil"
	"github.com/yungbote/lessonforge/internal/platform/logger"
)

type Tools interface {
	AssertReady(ctx context.Context) error

	// ProbeDurationSeconds measures the container duration of an audio or
	// video file.
	ProbeDurationSeconds(ctx context.Context, path string) (float64, error)

	// MuxSlideshow renders a timed still-frame sequence into one clip,
	// placing each audio track at its start offset. The emitted clip is
	// exactly req.TotalSeconds long.
	MuxSlideshow(ctx context.Context, req SlideshowRequest) (string, error)

	// ConcatClips losslessly concatenates clips that share a codec
	// configuration, preserving each clip's embedded audio track.
	ConcatClips(ctx context.Context, clipPaths []string, outPath string) (string, error)

	// ExtractFrame grabs a single frame at the given instant as a PNG.
	ExtractFrame(ctx context.Context, videoPath string, outPath string, atSeconds float64) (string, error)
}

// SlideshowFrame holds one still image on screen for a duration.
type SlideshowFrame struct {
	ImagePath       string
	DurationSeconds float64
}

// AudioPlacement schedules one audio file at an offset from clip start.
// Overlapping placements are mixed, not rejected.
type AudioPlacement struct {
	Path         string
	StartSeconds float64
}

type SlideshowRequest struct {
	Frames       []SlideshowFrame
	Audio        []AudioPlacement
	Width        int
	Height       int
	FPS          int
	TotalSeconds float64
	OutPath      string
}

type tools struct {
	log *logger.Logger

	ffmpegPath  string
	ffprobePath string

	defaultTimeout time.Duration
}

func New(log *logger.Logger) Tools {
	slog := log.With("service", "MediaTools")
	return &tools{
		log:            slog,
		ffmpegPath:     "ffmpeg",
		ffprobePath:    "ffprobe",
		defaultTimeout: 10 * time.Minute,
	}
}

func (m *tools) AssertReady(ctx context.Context) error {
	for _, bin := range []string{m.ffmpegPath, m.ffprobePath} {
		if _, err := exec.LookPath(bin); err != nil {
			return fmt.Errorf("missing required binary %q in PATH: %w", bin, err)
		}
	}
	return nil
}

func (m *tools) ProbeDurationSeconds(ctx context.Context, path string) (float64, error) {
	if path == "" {
		return 0, fmt.Errorf("path required")
	}
	ctx, cancel := ctxutil.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, m.ffprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed: %w; out=%s", err, string(out))
	}

	raw := strings.TrimSpace(string(out))
	dur, err := strconv.ParseFloat(raw, 64)
	if err != nil || dur < 0 {
		return 0, fmt.Errorf("ffprobe returned unusable duration %q for %s", raw, path)
	}
	return dur, nil
}

func (m *tools) MuxSlideshow(ctx context.Context, req SlideshowRequest) (string, error) {
	if err := m.AssertReady(ctx); err != nil {
		return "", err
	}
	if len(req.Frames) == 0 {
		return "", fmt.Errorf("at least one frame required")
	}
	if req.OutPath == "" {
		return "", fmt.Errorf("outPath required")
	}
	if req.Width <= 0 || req.Height <= 0 || req.FPS <= 0 {
		return "", fmt.Errorf("invalid geometry %dx%d@%d", req.Width, req.Height, req.FPS)
	}
	if req.TotalSeconds <= 0 {
		return "", fmt.Errorf("totalSeconds must be > 0")
	}
	if err := os.MkdirAll(filepath.Dir(req.OutPath), 0o755); err != nil {
		return "", fmt.Errorf("mkdir out dir: %w", err)
	}

	for _, a := range req.Audio {
		if _, err := os.Stat(a.Path); err != nil {
			return "", fmt.Errorf("audio file missing at %s: %w", a.Path, err)
		}
	}

	listPath := req.OutPath + ".frames.txt"
	if err := writeConcatImageList(listPath, req.Frames); err != nil {
		return "", err
	}
	defer func() { _ = os.Remove(listPath) }()

	ctx, cancel := ctxutil.WithTimeout(ctx, m.defaultTimeout)
	defer cancel()

	args := []string{"-y", "-f", "concat", "-safe", "0", "-i", listPath}
	for _, a := range req.Audio {
		args = append(args, "-i", a.Path)
	}
	if len(req.Audio) == 0 {
		args = append(args, "-f", "lavfi", "-i", "anullsrc=channel_layout=stereo:sample_rate=44100")
	}

	var filters []string
	filters = append(filters, fmt.Sprintf("[0:v]fps=%d,scale=%d:%d,format=yuv420p[v]",
		req.FPS, req.Width, req.Height))

	switch len(req.Audio) {
	case 0:
		filters = append(filters, "[1:a]apad[aout]")
	case 1:
		filters = append(filters, fmt.Sprintf("[1:a]%sapad[aout]", adelayFilter(req.Audio[0].StartSeconds)))
	default:
		labels := make([]string, 0, len(req.Audio))
		for i, a := range req.Audio {
			label := fmt.Sprintf("[a%d]", i)
			filters = append(filters, fmt.Sprintf("[%d:a]%saresample=44100%s",
				i+1, adelayFilter(a.StartSeconds), label))
			labels = append(labels, label)
		}
		filters = append(filters, fmt.Sprintf("%samix=inputs=%d:normalize=0,apad[aout]",
			strings.Join(labels, ""), len(req.Audio)))
	}

	args = append(args,
		"-filter_complex", strings.Join(filters, ";"),
		"-map", "[v]",
		"-map", "[aout]",
		"-t", formatSeconds(req.TotalSeconds),
		"-r", strconv.Itoa(req.FPS),
		"-c:v", "libx264",
		"-preset", "medium",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-ar", "44100",
		"-ac", "2",
		req.OutPath,
	)

	cmd := exec.CommandContext(ctx, m.ffmpegPath, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("ffmpeg mux failed: %w; out=%s", err, string(out))
	}
	if _, err := os.Stat(req.OutPath); err != nil {
		return "", fmt.Errorf("clip output missing at %s", req.OutPath)
	}
	return req.OutPath, nil
}

func (m *tools) ConcatClips(ctx context.Context, clipPaths []string, outPath string) (string, error) {
	if err := m.AssertReady(ctx); err != nil {
		return "", err
	}
	if len(clipPaths) == 0 {
		return "", fmt.Errorf("at least one clip required")
	}
	if outPath == "" {
		return "", fmt.Errorf("outPath required")
	}
	for _, p := range clipPaths {
		if _, err := os.Stat(p); err != nil {
			return "", fmt.Errorf("clip missing at %s: %w", p, err)
		}
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return "", fmt.Errorf("mkdir out dir: %w", err)
	}

	listPath := outPath + ".concat.txt"
	var b strings.Builder
	for _, p := range clipPaths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return "", fmt.Errorf("resolve clip path %s: %w", p, err)
		}
		b.WriteString("file '" + strings.ReplaceAll(abs, "'", `'\''`) + "'\n")
	}
	if err := os.WriteFile(listPath, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("write concat list: %w", err)
	}
	defer func() { _ = os.Remove(listPath) }()

	ctx, cancel := ctxutil.WithTimeout(ctx, m.defaultTimeout)
	defer cancel()

	// Stream copy keeps every clip's frame rate and audio untouched.
	cmd := exec.CommandContext(ctx, m.ffmpegPath,
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c", "copy",
		outPath,
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("ffmpeg concat failed: %w; out=%s", err, string(out))
	}
	if _, err := os.Stat(outPath); err != nil {
		return "", fmt.Errorf("concat output missing at %s", outPath)
	}
	return outPath, nil
}

func (m *tools) ExtractFrame(ctx context.Context, videoPath string, outPath string, atSeconds float64) (string, error) {
	if err := m.AssertReady(ctx); err != nil {
		return "", err
	}
	if videoPath == "" {
		return "", fmt.Errorf("videoPath required")
	}
	if outPath == "" {
		return "", fmt.Errorf("outPath required")
	}
	if atSeconds < 0 {
		atSeconds = 0
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return "", fmt.Errorf("mkdir out dir: %w", err)
	}

	ctx, cancel := ctxutil.WithTimeout(ctx, time.Minute)
	defer cancel()

	cmd := exec.CommandContext(ctx, m.ffmpegPath,
		"-y",
		"-ss", formatSeconds(atSeconds),
		"-i", videoPath,
		"-frames:v", "1",
		outPath,
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("ffmpeg frame extract failed: %w; out=%s", err, string(out))
	}
	if _, err := os.Stat(outPath); err != nil {
		return "", fmt.Errorf("frame output missing at %s", outPath)
	}
	return outPath, nil
}

// writeConcatImageList emits the concat-demuxer list that holds each frame
// for its duration. The demuxer needs the final entry repeated without a
// duration so the last hold is honored.
func writeConcatImageList(path string, frames []SlideshowFrame) error {
	var b strings.Builder
	for _, f := range frames {
		abs, err := filepath.Abs(f.ImagePath)
		if err != nil {
			return fmt.Errorf("resolve frame path %s: %w", f.ImagePath, err)
		}
		dur := f.DurationSeconds
		if dur < 0.001 {
			dur = 0.001
		}
		b.WriteString("file '" + strings.ReplaceAll(abs, "'", `'\''`) + "'\n")
		b.WriteString("duration " + formatSeconds(dur) + "\n")
	}
	last, err := filepath.Abs(frames[len(frames)-1].ImagePath)
	if err != nil {
		return fmt.Errorf("resolve frame path: %w", err)
	}
	b.WriteString("file '" + strings.ReplaceAll(last, "'", `'\''`) + "'\n")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write frame list: %w", err)
	}
	return nil
}

// adelayFilter shifts an audio stream by a start offset. adelay wants
// integer milliseconds per channel; zero offsets still pass through
// adelay so the filter graph shape stays uniform.
func adelayFilter(startSeconds float64) string {
	ms := int64(startSeconds * 1000)
	if ms < 0 {
		ms = 0
	}
	return fmt.Sprintf("adelay=%d|%d,", ms, ms)
}

func formatSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', 3, 64)
}
