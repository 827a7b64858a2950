// Package audio computes the alignment index that places narration audio
// in scene time. The index is a pure function of the measured chunk
// durations; it is produced once per pipeline run and consumed read-only.
package audio

import (
	"fmt"

	"github.com/yungbote/lessonforge/internal/domain"
)

// ChunkMeasurement is one synthesized chunk as reported by narration
// synthesis: its text, the relative audio file it produced, and the
// measured (not estimated) duration of that file.
type ChunkMeasurement struct {
	Text            string
	File            string
	DurationSeconds float64
}

// BuildIndex computes start offsets for every chunk of every scene: each
// chunk starts where the measured durations of its predecessors end.
// Scene order and chunk order follow the lesson; a scene missing from
// measurements yields an empty alignment (the scene still renders, with
// no narration track).
func BuildIndex(lesson *domain.Lesson, measured map[string][]ChunkMeasurement) (*domain.AlignmentManifest, error) {
	if lesson == nil {
		return nil, fmt.Errorf("alignment: lesson required")
	}

	manifest := &domain.AlignmentManifest{
		Scenes: make([]domain.SceneAlignment, 0, len(lesson.Scenes)),
	}

	for i := range lesson.Scenes {
		scene := &lesson.Scenes[i]
		chunks := measured[scene.ID]

		aligned := domain.SceneAlignment{
			SceneID: scene.ID,
			Chunks:  make([]domain.AlignmentRecord, 0, len(chunks)),
		}

		cursor := 0.0
		for idx, c := range chunks {
			if c.DurationSeconds < 0 {
				return nil, fmt.Errorf("alignment: scene %s chunk %d has negative duration %.3f",
					scene.ID, idx, c.DurationSeconds)
			}
			aligned.Chunks = append(aligned.Chunks, domain.AlignmentRecord{
				Index:           idx,
				Text:            c.Text,
				File:            c.File,
				DurationSeconds: c.DurationSeconds,
				StartSeconds:    cursor,
			})
			cursor += c.DurationSeconds
		}

		manifest.Scenes = append(manifest.Scenes, aligned)
	}

	return manifest, nil
}
