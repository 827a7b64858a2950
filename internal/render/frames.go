package render

import (
	"fmt"
	"image/color"
	"os"
	"strings"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"

	"github.com/yungbote/lessonforge/internal/domain"
)

// frameArtist rasterizes one visual state snapshot into a still frame.
// One artist is built per scene render so font faces are sized once for
// the preset.
type frameArtist struct {
	style  domain.StyleTokens
	preset QualityPreset
	faces  map[string]font.Face
}

func newFrameArtist(style domain.StyleTokens, preset QualityPreset, fontPath string) (*frameArtist, error) {
	a := &frameArtist{
		style:  style,
		preset: preset,
		faces:  map[string]font.Face{},
	}

	// Faces scale with the preset so text occupies the same screen share
	// at every quality tier.
	scale := float64(preset.Height) / 720.0

	var ttf *truetype.Font
	if strings.TrimSpace(fontPath) != "" {
		raw, err := os.ReadFile(fontPath)
		if err != nil {
			return nil, fmt.Errorf("read font %s: %w", fontPath, err)
		}
		parsed, err := truetype.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("parse font %s: %w", fontPath, err)
		}
		ttf = parsed
	}

	for _, role := range []string{"title", "heading", "body", "caption"} {
		size := a.style.FontSize(role) * scale
		if ttf != nil {
			a.faces[role] = truetype.NewFace(ttf, &truetype.Options{Size: size})
		} else {
			a.faces[role] = basicfont.Face7x13
		}
	}
	return a, nil
}

func (a *frameArtist) face(role string) font.Face {
	if f, ok := a.faces[role]; ok {
		return f
	}
	return a.faces["body"]
}

// drawSpan renders one static visual state as a PNG.
func (a *frameArtist) drawSpan(span FrameSpan, outPath string) error {
	w, h := a.preset.Width, a.preset.Height
	dc := gg.NewContext(w, h)

	dc.SetColor(parseHexColor(a.style.Color("background")))
	dc.DrawRectangle(0, 0, float64(w), float64(h))
	dc.Fill()

	// safe_margin is a fraction of the frame width; theme values outside
	// a usable band fall back rather than squeezing the text column.
	margin := a.style.Layout["safe_margin"]
	if margin <= 0 || margin > 0.2 {
		margin = 0.06
	}
	x := float64(w) * margin
	maxWidth := float64(w) * (1 - 2*margin)
	y := float64(h) * 0.18

	textColor := parseHexColor(a.style.Color("text"))
	highlightColor := parseHexColor(a.style.Color("highlight"))

	for _, el := range span.Elements {
		if el.Text == "" {
			continue
		}
		face := a.face(el.Style)
		dc.SetFontFace(face)

		lines := dc.WordWrap(el.Text, maxWidth)
		lineHeight := dc.FontHeight() * 1.4

		if el.Enclosed {
			boxW := 0.0
			for _, line := range lines {
				if lw, _ := dc.MeasureString(line); lw > boxW {
					boxW = lw
				}
			}
			pad := dc.FontHeight() * 0.4
			dc.SetColor(highlightColor)
			dc.SetLineWidth(2 * float64(a.preset.Height) / 720.0)
			dc.DrawRoundedRectangle(x-pad, y-pad, boxW+2*pad, float64(len(lines))*lineHeight+pad, pad/2)
			dc.Stroke()
		}

		dc.SetColor(textColor)
		for _, line := range lines {
			if el.Style == "title" {
				lw, _ := dc.MeasureString(line)
				dc.DrawString(line, (float64(w)-lw)/2, y+dc.FontHeight())
			} else {
				dc.DrawString(line, x, y+dc.FontHeight())
			}
			y += lineHeight
		}
		y += lineHeight * 0.5
	}

	return dc.SavePNG(outPath)
}

// parseHexColor accepts #RGB and #RRGGBB values; malformed input falls
// back to white rather than failing a render over a theme typo.
func parseHexColor(s string) color.NRGBA {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	hexVal := func(b byte) (uint8, bool) {
		switch {
		case b >= '0' && b <= '9':
			return b - '0', true
		case b >= 'a' && b <= 'f':
			return b - 'a' + 10, true
		case b >= 'A' && b <= 'F':
			return b - 'A' + 10, true
		default:
			return 0, false
		}
	}
	pair := func(hi, lo byte) (uint8, bool) {
		h, ok1 := hexVal(hi)
		l, ok2 := hexVal(lo)
		return h<<4 | l, ok1 && ok2
	}

	switch len(s) {
	case 3:
		r, ok1 := hexVal(s[0])
		g, ok2 := hexVal(s[1])
		b, ok3 := hexVal(s[2])
		if ok1 && ok2 && ok3 {
			return color.NRGBA{R: r * 17, G: g * 17, B: b * 17, A: 255}
		}
	case 6:
		r, ok1 := pair(s[0], s[1])
		g, ok2 := pair(s[2], s[3])
		b, ok3 := pair(s[4], s[5])
		if ok1 && ok2 && ok3 {
			return color.NRGBA{R: r, G: g, B: b, A: 255}
		}
	}
	return color.NRGBA{R: 255, G: 255, B: 255, A: 255}
}
