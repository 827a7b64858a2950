package render

import (
	"fmt"

	"github.com/yungbote/lessonforge/internal/domain"
)

// Trailing hold keeps the final visual state on screen after the last
// event; teardown clears the canvas before the clip ends.
const (
	TrailingHoldSeconds = 1.5
	TeardownSeconds     = 0.5
)

// VisualElement is one on-screen item of the current visual state.
type VisualElement struct {
	EventID  string
	Text     string
	Style    string
	Enclosed bool
}

// FrameSpan is a stretch of the scene during which the visual state is
// static. The renderer draws one frame per span and holds it for the
// span's duration.
type FrameSpan struct {
	StartSeconds    float64
	DurationSeconds float64
	Elements        []VisualElement
}

// Schedule is the deterministic per-scene render plan: static spans plus
// the audio placements that play underneath them.
type Schedule struct {
	SceneID      string
	Spans        []FrameSpan
	TotalSeconds float64
}

// BuildSchedule walks one scene's timeline events with a time cursor.
// Events come from the lesson's Timeline projection, already in timeline
// order. Gaps ahead of the cursor become passive waits; events at or
// behind the cursor apply immediately, so total duration is monotonically
// non-decreasing and never exceeds the sum of declared gaps. Known
// effects consume the style's transition time before the cursor moves
// past them; unknown event types change nothing. The scene's narration
// end extends the timeline when audio outlasts the visuals, then the
// final state holds and tears down.
func BuildSchedule(sceneID string, events []domain.TimelineEvent, style domain.StyleTokens, alignment domain.SceneAlignment) (*Schedule, error) {
	if sceneID == "" {
		return nil, fmt.Errorf("schedule: scene id required")
	}

	transition := float64(style.Transitions.DurationMS) / 1000.0
	if transition <= 0 {
		transition = 0.3
	}

	sched := &Schedule{SceneID: sceneID}
	cursor := 0.0
	elements := make([]VisualElement, 0)

	appendSpan := func(dur float64) {
		if dur <= 0 {
			return
		}
		sched.Spans = append(sched.Spans, FrameSpan{
			StartSeconds:    cursor,
			DurationSeconds: dur,
			Elements:        snapshotElements(elements),
		})
		cursor += dur
	}

	for _, ev := range events {
		if ev.AtSeconds < 0 {
			return nil, fmt.Errorf("schedule: scene %s event %s has negative offset %.3f",
				sceneID, ev.EventID, ev.AtSeconds)
		}
		if ev.AtSeconds > cursor {
			appendSpan(ev.AtSeconds - cursor)
		}

		switch ev.Kind() {
		case domain.EventShowText:
			elements = append(elements, VisualElement{
				EventID: ev.EventID,
				Text:    ev.PayloadString("text"),
				Style:   payloadStyle(ev),
			})
			appendSpan(transition)
		case domain.EventHighlight:
			elements = append(elements, VisualElement{
				EventID:  ev.EventID,
				Text:     ev.PayloadString("text"),
				Style:    payloadStyle(ev),
				Enclosed: true,
			})
			appendSpan(transition)
		default:
			// Unrecognized event types are guaranteed no-ops.
		}
	}

	if audioEnd := alignment.EndSeconds(); audioEnd > cursor {
		appendSpan(audioEnd - cursor)
	}

	appendSpan(TrailingHoldSeconds)

	elements = elements[:0]
	appendSpan(TeardownSeconds)

	sched.TotalSeconds = cursor
	return sched, nil
}

func payloadStyle(ev domain.TimelineEvent) string {
	if s := ev.PayloadString("style"); s != "" {
		return s
	}
	return "body"
}

func snapshotElements(in []VisualElement) []VisualElement {
	out := make([]VisualElement, len(in))
	copy(out, in)
	return out
}
