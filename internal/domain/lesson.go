package domain

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Lesson is the canonical structured description of one instructional
// video, produced once by prompt expansion and immutable afterwards.
type Lesson struct {
	LessonID       string         `json:"lesson_id"`
	Topic          string         `json:"topic"`
	Prompt         string         `json:"prompt"`
	TargetAudience string         `json:"target_audience,omitempty"`
	Style          StyleTokens    `json:"style"`
	Scenes         []Scene        `json:"scenes"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// Scene is one self-contained segment with its own narration and events.
// Narration order defines default audio sequencing; event offsets are
// relative to scene start.
type Scene struct {
	ID             string           `json:"id"`
	Title          string           `json:"title"`
	Summary        string           `json:"summary"`
	DurationTarget float64          `json:"duration_target"`
	Narration      []NarrationChunk `json:"narration"`
	Events         []Event          `json:"events"`
	PreviewOnly    bool             `json:"preview_only,omitempty"`
}

// NarrationChunk carries one unit of spoken text. DurationSeconds is the
// authoring-time fallback; once audio is synthesized the measured duration
// in the alignment manifest is authoritative.
type NarrationChunk struct {
	Text            string         `json:"text"`
	DurationSeconds float64        `json:"duration_seconds"`
	StartSeconds    *float64       `json:"start_seconds,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
}

// Event is a timed visual change within a scene.
type Event struct {
	ID        string         `json:"id"`
	AtSeconds float64        `json:"at_seconds"`
	Type      string         `json:"type"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// EventKind is the closed set of visual effects the renderer knows how to
// draw. Unrecognized type tags map to EventUnknown, which renders as a
// no-op so lessons authored against newer vocabularies still play.
type EventKind int

const (
	EventUnknown EventKind = iota
	EventShowText
	EventHighlight
)

func (e Event) Kind() EventKind {
	return ParseEventKind(e.Type)
}

// ParseEventKind maps an event type tag to its kind, case-insensitively.
func ParseEventKind(tag string) EventKind {
	switch strings.ToLower(strings.TrimSpace(tag)) {
	case "show_text":
		return EventShowText
	case "highlight":
		return EventHighlight
	default:
		return EventUnknown
	}
}

// PayloadString returns a string payload field, empty when absent.
func (e Event) PayloadString(key string) string {
	return payloadString(e.Payload, key)
}

func payloadString(payload map[string]any, key string) string {
	if payload == nil {
		return ""
	}
	if s, ok := payload[key].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

// Validate checks the schema invariants the rendering core relies on and
// returns one message per violation. Rendering never sees a lesson that
// fails validation.
func (l *Lesson) Validate() []string {
	errs := make([]string, 0)

	if strings.TrimSpace(l.LessonID) == "" {
		errs = append(errs, "lesson_id missing")
	} else if !isFilesystemSafe(l.LessonID) {
		errs = append(errs, fmt.Sprintf("lesson_id %q is not filesystem-safe", l.LessonID))
	}
	if strings.TrimSpace(l.Prompt) == "" {
		errs = append(errs, "prompt missing")
	}

	seenScenes := map[string]bool{}
	for i := range l.Scenes {
		s := l.Scenes[i]
		prefix := fmt.Sprintf("scenes[%d]", i)

		id := strings.TrimSpace(s.ID)
		if id == "" {
			errs = append(errs, prefix+".id missing")
		} else if seenScenes[id] {
			errs = append(errs, prefix+".id duplicates "+id)
		} else {
			seenScenes[id] = true
			if !isFilesystemSafe(id) {
				errs = append(errs, prefix+".id is not filesystem-safe")
			}
		}
		if s.DurationTarget <= 0 {
			errs = append(errs, prefix+".duration_target must be > 0")
		}

		for j := range s.Narration {
			c := s.Narration[j]
			cprefix := fmt.Sprintf("%s.narration[%d]", prefix, j)
			if strings.TrimSpace(c.Text) == "" {
				errs = append(errs, cprefix+".text missing")
			}
			if c.DurationSeconds < 0 {
				errs = append(errs, cprefix+".duration_seconds must be >= 0")
			}
			if c.StartSeconds != nil && *c.StartSeconds < 0 {
				errs = append(errs, cprefix+".start_seconds must be >= 0")
			}
		}

		seenEvents := map[string]bool{}
		for j := range s.Events {
			ev := s.Events[j]
			eprefix := fmt.Sprintf("%s.events[%d]", prefix, j)
			eid := strings.TrimSpace(ev.ID)
			if eid == "" {
				errs = append(errs, eprefix+".id missing")
			} else if seenEvents[eid] {
				errs = append(errs, eprefix+".id duplicates "+eid)
			} else {
				seenEvents[eid] = true
			}
			if ev.AtSeconds < 0 {
				errs = append(errs, eprefix+".at_seconds must be >= 0")
			}
			if strings.TrimSpace(ev.Type) == "" {
				errs = append(errs, eprefix+".type missing")
			}
		}
	}

	return errs
}

// SceneByID returns the scene with the given id, nil when absent.
func (l *Lesson) SceneByID(id string) *Scene {
	for i := range l.Scenes {
		if l.Scenes[i].ID == id {
			return &l.Scenes[i]
		}
	}
	return nil
}

// LoadLesson reads and validates a persisted lesson spec. Schema
// violations are rejected here so they never reach the rendering core.
func LoadLesson(path string) (*Lesson, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read lesson spec: %w", err)
	}
	var l Lesson
	if err := json.Unmarshal(raw, &l); err != nil {
		return nil, fmt.Errorf("parse lesson spec %s: %w", filepath.Base(path), err)
	}
	if errs := l.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("invalid lesson spec %s: %s", filepath.Base(path), strings.Join(errs, "; "))
	}
	return &l, nil
}

// SaveLesson writes the canonical spec artifact. Re-running overwrites.
func SaveLesson(l *Lesson, path string) error {
	if errs := l.Validate(); len(errs) > 0 {
		return fmt.Errorf("refusing to save invalid lesson: %s", strings.Join(errs, "; "))
	}
	raw, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return fmt.Errorf("encode lesson spec: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir spec dir: %w", err)
	}
	if err := os.WriteFile(path, append(raw, '\n'), 0o644); err != nil {
		return fmt.Errorf("write lesson spec: %w", err)
	}
	return nil
}

// LessonIDFromPrompt derives a deterministic, filesystem-safe lesson id
// from the originating prompt: prefix plus the first five alphanumeric
// words, lowercased and hyphen-joined.
func LessonIDFromPrompt(prefix, prompt string) string {
	if strings.TrimSpace(prefix) == "" {
		prefix = "lesson"
	}
	words := make([]string, 0, 5)
	for _, part := range strings.Fields(strings.ToLower(prompt)) {
		var b strings.Builder
		for _, r := range part {
			if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
				b.WriteRune(r)
			}
		}
		if b.Len() == 0 {
			continue
		}
		words = append(words, b.String())
		if len(words) == 5 {
			break
		}
	}
	if len(words) == 0 {
		return prefix
	}
	return prefix + "-" + strings.Join(words, "-")
}

func isFilesystemSafe(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '-' || r == '_' || r == '.':
		default:
			return false
		}
	}
	return !strings.HasPrefix(s, ".")
}
