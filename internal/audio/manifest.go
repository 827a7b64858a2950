package audio

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/yungbote/lessonforge/internal/domain"
)

// LoadManifest reads a persisted alignment manifest. The second return is
// the directory its file references resolve against.
func LoadManifest(path string) (*domain.AlignmentManifest, string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("read alignment manifest: %w", err)
	}
	var m domain.AlignmentManifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, "", fmt.Errorf("parse alignment manifest %s: %w", filepath.Base(path), err)
	}
	for _, scene := range m.Scenes {
		for i, c := range scene.Chunks {
			if c.DurationSeconds < 0 {
				return nil, "", fmt.Errorf("alignment manifest %s: scene %s chunk %d has negative duration",
					filepath.Base(path), scene.SceneID, i)
			}
			if c.File == "" {
				return nil, "", fmt.Errorf("alignment manifest %s: scene %s chunk %d has no file",
					filepath.Base(path), scene.SceneID, i)
			}
		}
	}
	return &m, filepath.Dir(path), nil
}
