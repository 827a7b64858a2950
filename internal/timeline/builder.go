// Package timeline derives the flattened, time-ordered event projection
// of a lesson. Pure and stateless: the same lesson always yields the same
// timeline, so downstream renders are reproducible.
package timeline

import (
	"fmt"
	"sort"

	"github.com/yungbote/lessonforge/internal/domain"
)

// Build produces the timeline for a lesson: scene ids in authored order,
// and per scene its events sorted ascending by offset. Ties keep the
// authored event order (stable sort) so visual stacking order is
// deterministic across renders of an unchanged lesson.
//
// Negative offsets are a schema violation the domain layer rejects; they
// are re-checked here and propagated rather than silently tolerated.
func Build(lesson *domain.Lesson) (*domain.Timeline, error) {
	if lesson == nil {
		return nil, fmt.Errorf("timeline: lesson required")
	}

	tl := &domain.Timeline{
		Scenes: make([]string, 0, len(lesson.Scenes)),
		Events: make([]domain.TimelineEvent, 0),
	}

	for i := range lesson.Scenes {
		scene := &lesson.Scenes[i]
		tl.Scenes = append(tl.Scenes, scene.ID)

		sorted, err := SortSceneEvents(scene)
		if err != nil {
			return nil, err
		}
		for _, ev := range sorted {
			tl.Events = append(tl.Events, domain.TimelineEvent{
				SceneID:   scene.ID,
				EventID:   ev.ID,
				AtSeconds: ev.AtSeconds,
				Type:      ev.Type,
				Payload:   ev.Payload,
			})
		}
	}

	return tl, nil
}

// SortSceneEvents returns one scene's events in timeline order without
// mutating the scene. The renderer uses this directly when scheduling a
// single scene.
func SortSceneEvents(scene *domain.Scene) ([]domain.Event, error) {
	if scene == nil {
		return nil, fmt.Errorf("timeline: scene required")
	}
	for i := range scene.Events {
		if scene.Events[i].AtSeconds < 0 {
			return nil, fmt.Errorf("timeline: scene %s event %s has negative offset %.3f",
				scene.ID, scene.Events[i].ID, scene.Events[i].AtSeconds)
		}
	}
	out := make([]domain.Event, len(scene.Events))
	copy(out, scene.Events)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].AtSeconds < out[j].AtSeconds
	})
	return out, nil
}
