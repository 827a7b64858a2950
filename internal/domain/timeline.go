package domain

// Timeline is a derived, read-only projection of a lesson: scene ids in
// authored order plus all events flattened scene by scene, time-sorted
// within each scene. Rebuilt from the lesson on demand, never patched.
type Timeline struct {
	Scenes []string        `json:"scenes"`
	Events []TimelineEvent `json:"events"`
}

type TimelineEvent struct {
	SceneID   string         `json:"scene_id"`
	EventID   string         `json:"event_id"`
	AtSeconds float64        `json:"at_seconds"`
	Type      string         `json:"type"`
	Payload   map[string]any `json:"payload,omitempty"`
}

func (e TimelineEvent) Kind() EventKind {
	return ParseEventKind(e.Type)
}

// PayloadString returns a string payload field, empty when absent.
func (e TimelineEvent) PayloadString(key string) string {
	return payloadString(e.Payload, key)
}

// SceneEvents returns the timeline entries belonging to one scene, in
// timeline order.
func (t *Timeline) SceneEvents(sceneID string) []TimelineEvent {
	out := make([]TimelineEvent, 0)
	for _, ev := range t.Events {
		if ev.SceneID == sceneID {
			out = append(out, ev)
		}
	}
	return out
}
