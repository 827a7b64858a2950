package services

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestSilenceWAVRoundTrip(t *testing.T) {
	dir := t.TempDir()
	for _, seconds := range []float64{0, 0.5, 2.0, 6.25} {
		path := filepath.Join(dir, "silence.wav")
		if err := writeSilenceWAV(path, seconds); err != nil {
			t.Fatalf("writeSilenceWAV(%v): %v", seconds, err)
		}
		got, err := readWAVDurationSeconds(path)
		if err != nil {
			t.Fatalf("readWAVDurationSeconds(%v): %v", seconds, err)
		}
		// Duration quantizes to whole sample frames.
		if math.Abs(got-seconds) > 1.0/silenceSampleRate {
			t.Fatalf("duration round trip: wrote %v, read %v", seconds, got)
		}
	}
}

func TestWriteSilenceWAVRejectsNegativeDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.wav")
	if err := writeSilenceWAV(path, -1); err == nil {
		t.Fatal("expected error for negative duration")
	}
}

func TestReadWAVDurationRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "not.wav")
	if err := os.WriteFile(path, []byte("definitely not audio"), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}
	if _, err := readWAVDurationSeconds(path); err == nil {
		t.Fatal("expected error for non-WAV input")
	}
}
