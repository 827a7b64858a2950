package timeline

import (
	"reflect"
	"testing"

	"github.com/yungbote/lessonforge/internal/domain"
)

func lessonFixture() *domain.Lesson {
	return &domain.Lesson{
		LessonID: "lesson-waves",
		Prompt:   "explain waves",
		Scenes: []domain.Scene{
			{
				ID:             "intro",
				Title:          "Intro",
				DurationTarget: 30,
				Events: []domain.Event{
					{ID: "e0", AtSeconds: 0.0, Type: "show_text"},
					{ID: "e1", AtSeconds: 3.0, Type: "highlight"},
				},
			},
			{
				ID:             "concept",
				Title:          "Concept",
				DurationTarget: 30,
				Events: []domain.Event{
					{ID: "e0", AtSeconds: 1.0, Type: "show_text"},
					{ID: "e1", AtSeconds: 1.0, Type: "highlight"},
				},
			},
		},
	}
}

func TestBuildOrdersScenesAndEvents(t *testing.T) {
	tl, err := Build(lessonFixture())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !reflect.DeepEqual(tl.Scenes, []string{"intro", "concept"}) {
		t.Fatalf("scene order: got %v", tl.Scenes)
	}
	want := []struct {
		scene string
		event string
		at    float64
	}{
		{"intro", "e0", 0.0},
		{"intro", "e1", 3.0},
		{"concept", "e0", 1.0},
		{"concept", "e1", 1.0},
	}
	if len(tl.Events) != len(want) {
		t.Fatalf("events: got %d want %d", len(tl.Events), len(want))
	}
	for i, w := range want {
		got := tl.Events[i]
		if got.SceneID != w.scene || got.EventID != w.event || got.AtSeconds != w.at {
			t.Fatalf("events[%d]: got %s/%s@%.1f want %s/%s@%.1f",
				i, got.SceneID, got.EventID, got.AtSeconds, w.scene, w.event, w.at)
		}
	}
}

func TestBuildSortsOutOfOrderEventsStably(t *testing.T) {
	lesson := &domain.Lesson{
		LessonID: "lesson-x",
		Prompt:   "x",
		Scenes: []domain.Scene{{
			ID:             "s1",
			DurationTarget: 10,
			Events: []domain.Event{
				{ID: "late", AtSeconds: 5.0, Type: "show_text"},
				{ID: "tie_a", AtSeconds: 2.0, Type: "show_text"},
				{ID: "tie_b", AtSeconds: 2.0, Type: "highlight"},
				{ID: "early", AtSeconds: 0.0, Type: "show_text"},
			},
		}},
	}
	tl, err := Build(lesson)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	gotIDs := make([]string, 0, len(tl.Events))
	for _, ev := range tl.Events {
		gotIDs = append(gotIDs, ev.EventID)
	}
	if !reflect.DeepEqual(gotIDs, []string{"early", "tie_a", "tie_b", "late"}) {
		t.Fatalf("order: got %v", gotIDs)
	}
	for i := 1; i < len(tl.Events); i++ {
		if tl.Events[i].AtSeconds < tl.Events[i-1].AtSeconds {
			t.Fatalf("offsets not non-decreasing at %d", i)
		}
	}
	// Source scene must be untouched.
	if lesson.Scenes[0].Events[0].ID != "late" {
		t.Fatalf("builder mutated source scene")
	}
}

func TestBuildRejectsNegativeOffset(t *testing.T) {
	lesson := &domain.Lesson{
		LessonID: "lesson-x",
		Prompt:   "x",
		Scenes: []domain.Scene{{
			ID:             "s1",
			DurationTarget: 10,
			Events:         []domain.Event{{ID: "bad", AtSeconds: -0.5, Type: "show_text"}},
		}},
	}
	if _, err := Build(lesson); err == nil {
		t.Fatalf("expected error for negative offset")
	}
}

func TestBuildIsIdempotent(t *testing.T) {
	lesson := lessonFixture()
	first, err := Build(lesson)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	second, err := Build(lesson)
	if err != nil {
		t.Fatalf("Build again: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("rebuild differs:\nfirst=%+v\nsecond=%+v", first, second)
	}
}
