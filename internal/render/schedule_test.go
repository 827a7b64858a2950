package render

import (
	"math"
	"testing"

	"github.com/yungbote/lessonforge/internal/domain"
	"github.com/yungbote/lessonforge/internal/timeline"
)

func approx(t *testing.T, got, want float64, what string) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("%s: got %v, want %v", what, got, want)
	}
}

func styleWithTransition(ms int) domain.StyleTokens {
	s := domain.DefaultStyleTokens()
	s.Transitions.DurationMS = ms
	return s
}

// sceneTimelineEvents runs a scene through the timeline build, the same
// path the pipeline uses to feed the scheduler.
func sceneTimelineEvents(t *testing.T, scene domain.Scene) []domain.TimelineEvent {
	t.Helper()
	lesson := &domain.Lesson{
		LessonID: "lesson-schedule",
		Prompt:   "schedule",
		Scenes:   []domain.Scene{scene},
	}
	tl, err := timeline.Build(lesson)
	if err != nil {
		t.Fatalf("timeline.Build: %v", err)
	}
	return tl.SceneEvents(scene.ID)
}

func TestBuildScheduleWalksGapsAndTransitions(t *testing.T) {
	scene := domain.Scene{
		ID:             "intro",
		DurationTarget: 10,
		Events: []domain.Event{
			{ID: "e0", AtSeconds: 0, Type: "show_text", Payload: map[string]any{"text": "Hello", "style": "title"}},
			{ID: "e1", AtSeconds: 3, Type: "show_text", Payload: map[string]any{"text": "World"}},
		},
	}

	sched, err := BuildSchedule(scene.ID, sceneTimelineEvents(t, scene), styleWithTransition(500), domain.SceneAlignment{})
	if err != nil {
		t.Fatalf("BuildSchedule: %v", err)
	}

	// e0 transition, wait to 3.0, e1 transition, hold, teardown.
	if len(sched.Spans) != 5 {
		t.Fatalf("spans: got %d, want 5", len(sched.Spans))
	}
	approx(t, sched.Spans[0].DurationSeconds, 0.5, "e0 transition")
	approx(t, sched.Spans[1].DurationSeconds, 2.5, "gap wait")
	approx(t, sched.Spans[2].DurationSeconds, 0.5, "e1 transition")
	approx(t, sched.Spans[3].DurationSeconds, TrailingHoldSeconds, "hold")
	approx(t, sched.Spans[4].DurationSeconds, TeardownSeconds, "teardown")
	approx(t, sched.TotalSeconds, 5.5, "total")

	if n := len(sched.Spans[0].Elements); n != 1 {
		t.Fatalf("first span elements: got %d, want 1", n)
	}
	if n := len(sched.Spans[3].Elements); n != 2 {
		t.Fatalf("hold span elements: got %d, want 2", n)
	}
	if n := len(sched.Spans[4].Elements); n != 0 {
		t.Fatalf("teardown span elements: got %d, want 0", n)
	}
	if sched.Spans[0].Elements[0].Style != "title" {
		t.Fatalf("style role: got %q, want title", sched.Spans[0].Elements[0].Style)
	}
}

func TestBuildScheduleFollowsTimelineOrder(t *testing.T) {
	// Events authored out of order arrive sorted through the timeline
	// projection; the first element on screen is the earlier offset.
	scene := domain.Scene{
		ID:             "s",
		DurationTarget: 10,
		Events: []domain.Event{
			{ID: "late", AtSeconds: 4, Type: "show_text", Payload: map[string]any{"text": "late"}},
			{ID: "early", AtSeconds: 1, Type: "show_text", Payload: map[string]any{"text": "early"}},
		},
	}

	sched, err := BuildSchedule(scene.ID, sceneTimelineEvents(t, scene), styleWithTransition(300), domain.SceneAlignment{})
	if err != nil {
		t.Fatalf("BuildSchedule: %v", err)
	}
	var first string
	for _, span := range sched.Spans {
		if len(span.Elements) > 0 {
			first = span.Elements[0].EventID
			break
		}
	}
	if first != "early" {
		t.Fatalf("first visible event: got %q, want early", first)
	}
}

func TestBuildScheduleCatchUpEventsApplyImmediately(t *testing.T) {
	// The first event's long transition pushes the cursor past the second
	// event's offset; the second still applies with no extra wait.
	scene := domain.Scene{
		ID:             "s",
		DurationTarget: 10,
		Events: []domain.Event{
			{ID: "e0", AtSeconds: 1, Type: "show_text", Payload: map[string]any{"text": "a"}},
			{ID: "e1", AtSeconds: 2, Type: "show_text", Payload: map[string]any{"text": "b"}},
		},
	}

	sched, err := BuildSchedule(scene.ID, sceneTimelineEvents(t, scene), styleWithTransition(2000), domain.SceneAlignment{})
	if err != nil {
		t.Fatalf("BuildSchedule: %v", err)
	}
	// wait 1.0, transition 2.0 (cursor 3.0 > e1@2), transition 2.0,
	// hold, teardown.
	approx(t, sched.TotalSeconds, 1.0+2.0+2.0+TrailingHoldSeconds+TeardownSeconds, "total")
}

func TestBuildScheduleZeroEventsStillHolds(t *testing.T) {
	sched, err := BuildSchedule("quiet", nil, domain.DefaultStyleTokens(), domain.SceneAlignment{})
	if err != nil {
		t.Fatalf("BuildSchedule: %v", err)
	}
	if sched.TotalSeconds < TrailingHoldSeconds {
		t.Fatalf("total %v shorter than trailing hold", sched.TotalSeconds)
	}
	approx(t, sched.TotalSeconds, TrailingHoldSeconds+TeardownSeconds, "total")
}

func TestBuildScheduleAudioExtendsTimeline(t *testing.T) {
	scene := domain.Scene{
		ID:             "s",
		DurationTarget: 10,
		Events: []domain.Event{
			{ID: "e0", AtSeconds: 0, Type: "show_text", Payload: map[string]any{"text": "a"}},
		},
	}
	alignment := domain.SceneAlignment{
		SceneID: "s",
		Chunks: []domain.AlignmentRecord{
			{Index: 0, File: "s/chunk_00.wav", DurationSeconds: 4.0, StartSeconds: 0},
			{Index: 1, File: "s/chunk_01.wav", DurationSeconds: 3.5, StartSeconds: 4.0},
		},
	}

	sched, err := BuildSchedule(scene.ID, sceneTimelineEvents(t, scene), styleWithTransition(300), alignment)
	if err != nil {
		t.Fatalf("BuildSchedule: %v", err)
	}
	// Visuals end at 0.3; narration ends at 7.5 and extends the walk.
	approx(t, sched.TotalSeconds, 7.5+TrailingHoldSeconds+TeardownSeconds, "total")
}

func TestBuildScheduleUnknownEventIsNoOp(t *testing.T) {
	scene := domain.Scene{
		ID:             "s",
		DurationTarget: 5,
		Events: []domain.Event{
			{ID: "e0", AtSeconds: 0, Type: "sparkle_burst", Payload: map[string]any{"text": "x"}},
		},
	}

	sched, err := BuildSchedule(scene.ID, sceneTimelineEvents(t, scene), domain.DefaultStyleTokens(), domain.SceneAlignment{})
	if err != nil {
		t.Fatalf("BuildSchedule: %v", err)
	}
	for _, span := range sched.Spans {
		if len(span.Elements) != 0 {
			t.Fatalf("unknown event produced visual elements")
		}
	}
	approx(t, sched.TotalSeconds, TrailingHoldSeconds+TeardownSeconds, "total")
}

func TestBuildScheduleRejectsNegativeOffsets(t *testing.T) {
	events := []domain.TimelineEvent{
		{SceneID: "s", EventID: "e0", AtSeconds: -1, Type: "show_text"},
	}
	if _, err := BuildSchedule("s", events, domain.DefaultStyleTokens(), domain.SceneAlignment{}); err == nil {
		t.Fatal("expected error for negative event offset")
	}
}

func TestPresetByName(t *testing.T) {
	p, err := PresetByName("High")
	if err != nil {
		t.Fatalf("PresetByName: %v", err)
	}
	if p.Width != 1920 || p.Height != 1080 || p.FPS != 30 {
		t.Fatalf("unexpected high preset: %+v", p)
	}
	if _, err := PresetByName("ultra"); err == nil {
		t.Fatal("expected error for unknown preset")
	}
}
