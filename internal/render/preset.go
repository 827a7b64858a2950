package render

import (
	"fmt"
	"strings"
)

// QualityPreset is a fixed (resolution, frame rate) configuration. All
// scenes of one assembly share a preset, which is what makes stream-copy
// concatenation safe.
type QualityPreset struct {
	Name   string
	Width  int
	Height int
	FPS    int
}

var (
	PresetLow    = QualityPreset{Name: "low", Width: 640, Height: 360, FPS: 15}
	PresetMedium = QualityPreset{Name: "medium", Width: 1280, Height: 720, FPS: 24}
	PresetHigh   = QualityPreset{Name: "high", Width: 1920, Height: 1080, FPS: 30}
)

func PresetByName(name string) (QualityPreset, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "low":
		return PresetLow, nil
	case "medium":
		return PresetMedium, nil
	case "high":
		return PresetHigh, nil
	default:
		return QualityPreset{}, fmt.Errorf("unknown quality preset %q (want low|medium|high)", name)
	}
}
