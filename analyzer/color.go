package analyzer

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/hazyhaar/designscore/snapshot"
)

// ColorSampleCap bounds the elements read for color.
const ColorSampleCap = 100

// ExtractColor samples body elements and scores palette coherence.
func ExtractColor(ctx context.Context, snap snapshot.Snapshot) (DimensionResult, error) {
	samples, err := snap.Select(ctx, snapshot.BodyDescendants, ColorSampleCap)
	if err != nil {
		return DimensionResult{}, fmt.Errorf("analyzer: color: %w", err)
	}
	return ColorFrom(samples), nil
}

// ColorFrom keeps samples reporting both colors and scores
// round(max(50, 100 - distinct/10)). Transparent backgrounds count as
// ordinary background strings.
func ColorFrom(samples []snapshot.StyleSample) DimensionResult {
	pairs := []ColorPair{}
	for _, s := range samples {
		if s.Color == "" || s.BackgroundColor == "" {
			continue
		}
		p := ColorPair{FG: s.Color, BG: s.BackgroundColor}
		if ratio, ok := ContrastRatio(s.Color, s.BackgroundColor); ok {
			p.Contrast = math.Round(ratio*100) / 100
		}
		pairs = append(pairs, p)
	}
	distinct := distinctPairs(pairs)
	return DimensionResult{
		Dimension: Color,
		Score:     ColorScore(distinct),
		Details:   ColorDetails{Pairs: pairs, Distinct: distinct},
	}
}

// ColorScore maps a distinct pair count to a score in [50, 100].
func ColorScore(distinct int) int {
	return int(math.Round(math.Max(50, 100-float64(distinct)/10)))
}

func distinctPairs(pairs []ColorPair) int {
	seen := make(map[string]struct{}, len(pairs))
	for _, p := range pairs {
		seen[p.FG+p.BG] = struct{}{}
	}
	return len(seen)
}

// RGBA is a parsed color with channels in 0..255 and alpha in 0..1.
type RGBA struct {
	R, G, B float64
	A       float64
}

// ParseColor understands rgb(), rgba() and #rgb/#rrggbb notation.
func ParseColor(s string) (RGBA, bool) {
	s = strings.TrimSpace(strings.ToLower(s))
	if strings.HasPrefix(s, "#") {
		return parseHex(s[1:])
	}
	var body string
	switch {
	case strings.HasPrefix(s, "rgba(") && strings.HasSuffix(s, ")"):
		body = s[5 : len(s)-1]
	case strings.HasPrefix(s, "rgb(") && strings.HasSuffix(s, ")"):
		body = s[4 : len(s)-1]
	default:
		return RGBA{}, false
	}
	parts := strings.FieldsFunc(body, func(r rune) bool { return r == ',' || r == ' ' || r == '/' })
	if len(parts) != 3 && len(parts) != 4 {
		return RGBA{}, false
	}
	var ch [4]float64
	ch[3] = 1
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSuffix(p, "%"), 64)
		if err != nil {
			return RGBA{}, false
		}
		if strings.HasSuffix(p, "%") {
			if i == 3 {
				v /= 100
			} else {
				v = v * 255 / 100
			}
		}
		ch[i] = v
	}
	return RGBA{R: ch[0], G: ch[1], B: ch[2], A: ch[3]}, true
}

func parseHex(h string) (RGBA, bool) {
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 {
		return RGBA{}, false
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return RGBA{}, false
	}
	return RGBA{R: float64(v >> 16 & 0xff), G: float64(v >> 8 & 0xff), B: float64(v & 0xff), A: 1}, true
}

// Luminance is the WCAG relative luminance.
func (c RGBA) Luminance() float64 {
	lin := func(v float64) float64 {
		v /= 255
		if v <= 0.03928 {
			return v / 12.92
		}
		return math.Pow((v+0.055)/1.055, 2.4)
	}
	return 0.2126*lin(c.R) + 0.7152*lin(c.G) + 0.0722*lin(c.B)
}

// ContrastRatio returns the WCAG contrast ratio between two colors. It
// reports false when either color cannot be parsed or is fully transparent.
func ContrastRatio(fg, bg string) (float64, bool) {
	a, ok := ParseColor(fg)
	if !ok || a.A == 0 {
		return 0, false
	}
	b, ok := ParseColor(bg)
	if !ok || b.A == 0 {
		return 0, false
	}
	l1, l2 := a.Luminance(), b.Luminance()
	if l1 < l2 {
		l1, l2 = l2, l1
	}
	return (l1 + 0.05) / (l2 + 0.05), true
}
