package domain

// AlignmentRecord describes one synthesized narration chunk: where its
// audio lives, how long it actually is, and when it starts within its
// scene. Start offsets are the cumulative sum of the measured durations
// of all preceding chunks in the same scene; they are authoritative for
// audio placement regardless of any author-specified chunk offsets.
type AlignmentRecord struct {
	Index           int     `json:"index"`
	Text            string  `json:"text"`
	File            string  `json:"file"`
	DurationSeconds float64 `json:"duration_seconds"`
	StartSeconds    float64 `json:"start_seconds"`
}

// SceneAlignment is the ordered per-scene view of the index.
type SceneAlignment struct {
	SceneID string            `json:"scene_id"`
	Chunks  []AlignmentRecord `json:"chunks"`
}

// AlignmentManifest is the boundary artifact narration synthesis writes
// and rendering consumes. File references are relative to the manifest's
// directory.
type AlignmentManifest struct {
	Voice  string           `json:"voice"`
	Model  string           `json:"model"`
	Scenes []SceneAlignment `json:"scenes"`
}

// Scene returns the alignment for one scene id; an empty alignment when
// the scene has no narration entry.
func (m *AlignmentManifest) Scene(sceneID string) SceneAlignment {
	for _, s := range m.Scenes {
		if s.SceneID == sceneID {
			return s
		}
	}
	return SceneAlignment{SceneID: sceneID}
}

// TotalSeconds is the running total of measured durations for one scene.
func (s SceneAlignment) TotalSeconds() float64 {
	total := 0.0
	for _, c := range s.Chunks {
		total += c.DurationSeconds
	}
	return total
}

// EndSeconds is the instant the last chunk finishes, accounting for
// overlap-free and overlapping schedules alike.
func (s SceneAlignment) EndSeconds() float64 {
	end := 0.0
	for _, c := range s.Chunks {
		if e := c.StartSeconds + c.DurationSeconds; e > end {
			end = e
		}
	}
	return end
}
