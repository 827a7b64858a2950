package render

import (
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/yungbote/lessonforge/internal/domain"
)

func TestParseHexColor(t *testing.T) {
	cases := []struct {
		in      string
		r, g, b uint8
	}{
		{"#0B0F19", 0x0B, 0x0F, 0x19},
		{"f1c40f", 0xF1, 0xC4, 0x0F},
		{"#fff", 0xFF, 0xFF, 0xFF},
		{"not-a-color", 0xFF, 0xFF, 0xFF},
	}
	for _, c := range cases {
		got := parseHexColor(c.in)
		if got.R != c.r || got.G != c.g || got.B != c.b || got.A != 255 {
			t.Fatalf("parseHexColor(%q) = %+v", c.in, got)
		}
	}
}

func TestDrawSpanWritesDecodablePNG(t *testing.T) {
	artist, err := newFrameArtist(domain.DefaultStyleTokens(), PresetLow, "")
	if err != nil {
		t.Fatalf("newFrameArtist: %v", err)
	}

	span := FrameSpan{
		DurationSeconds: 1,
		Elements: []VisualElement{
			{EventID: "e0", Text: "Binary Search", Style: "title"},
			{EventID: "e1", Text: "Split the sorted range in half each step.", Style: "body"},
			{EventID: "e2", Text: "O(log n)", Style: "body", Enclosed: true},
		},
	}

	out := filepath.Join(t.TempDir(), "span.png")
	if err := artist.drawSpan(span, out); err != nil {
		t.Fatalf("drawSpan: %v", err)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatalf("open frame: %v", err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode frame: %v", err)
	}
	bounds := img.Bounds()
	if bounds.Dx() != PresetLow.Width || bounds.Dy() != PresetLow.Height {
		t.Fatalf("frame size %dx%d, want %dx%d", bounds.Dx(), bounds.Dy(), PresetLow.Width, PresetLow.Height)
	}
}

func TestFrameArtistRejectsMissingFontFile(t *testing.T) {
	if _, err := newFrameArtist(domain.DefaultStyleTokens(), PresetLow, "/nonexistent/font.ttf"); err == nil {
		t.Fatal("expected error for unreadable font path")
	}
}
