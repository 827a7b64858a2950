package domain

// StyleTokens carry the visual identity shared across scenes: named font
// and color roles, transition timing, and layout constants. Pure
// configuration; the renderer resolves roles it does not find to defaults.
type StyleTokens struct {
	Name        string              `json:"name,omitempty"`
	Fonts       map[string]FontSpec `json:"fonts,omitempty"`
	Colors      map[string]string   `json:"colors,omitempty"`
	Transitions TransitionSpec      `json:"transitions,omitempty"`
	Layout      map[string]float64  `json:"layout,omitempty"`
}

type FontSpec struct {
	Family string  `json:"family,omitempty"`
	Size   float64 `json:"size,omitempty"`
}

type TransitionSpec struct {
	DurationMS int    `json:"duration_ms,omitempty"`
	Easing     string `json:"easing,omitempty"`
}

// DefaultStyleTokens mirrors the stock dark theme used when no style file
// is supplied.
func DefaultStyleTokens() StyleTokens {
	return StyleTokens{
		Name: "default",
		Fonts: map[string]FontSpec{
			"title":   {Family: "Inter", Size: 40},
			"heading": {Family: "Inter", Size: 32},
			"body":    {Family: "Inter", Size: 24},
			"caption": {Family: "Inter", Size: 20},
		},
		Colors: map[string]string{
			"background":       "#0B0F19",
			"text":             "#F6F8FF",
			"accent_primary":   "#3498DB",
			"accent_secondary": "#E74C3C",
			"highlight":        "#F1C40F",
			"neutral":          "#95A5A6",
		},
		Transitions: TransitionSpec{DurationMS: 300, Easing: "ease_in_out"},
		Layout: map[string]float64{
			"title_y":     3.2,
			"formula_x":   5.2,
			"safe_margin": 0.3,
		},
	}
}

// FontSize resolves a font role to its point size, falling back to body
// and finally a sane constant.
func (s StyleTokens) FontSize(role string) float64 {
	if f, ok := s.Fonts[role]; ok && f.Size > 0 {
		return f.Size
	}
	if f, ok := s.Fonts["body"]; ok && f.Size > 0 {
		return f.Size
	}
	return 24
}

// Color resolves a color role to its hex value, falling back to text.
func (s StyleTokens) Color(role string) string {
	if c, ok := s.Colors[role]; ok && c != "" {
		return c
	}
	if c, ok := s.Colors["text"]; ok && c != "" {
		return c
	}
	return "#FFFFFF"
}
