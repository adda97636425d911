package analyzer

// Bucket identifies a recommendation tier, 0 being the weakest.
type Bucket int

// Thresholds holds the inclusive lower bounds of buckets 1..3.
type Thresholds struct {
	Dimension [3]int `yaml:"dimension" json:"dimension"`
	Overall   [3]int `yaml:"overall" json:"overall"`
}

// DefaultThresholds returns <50/50-69/70-84/>=85 for dimensions and
// <60/60-79/80-89/>=90 for the total.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Dimension: [3]int{50, 70, 85},
		Overall:   [3]int{60, 80, 90},
	}
}

// Recommendation is the guidance chosen for one dimension.
type Recommendation struct {
	Dimension Dimension `json:"dimension"`
	Bucket    Bucket    `json:"bucket"`
	Summary   string    `json:"summary"`
	Advice    string    `json:"advice"`
}

type tier struct {
	summary, advice string
}

var recommendationTable = map[Dimension][4]tier{
	Typography: {
		{"weak hierarchy", "Typographic hierarchy is weak. Use more contrasting sizes between headings and body text."},
		{"inconsistent families/weights", "Review consistency of font families and weights. Avoid mixing many combinations."},
		{"good, improve small-text contrast", "Good typography overall, though contrast and legibility of small text could improve."},
		{"excellent", "Excellent typography with clear hierarchy and legibility."},
	},
	Color: {
		{"low contrast, check WCAG AA/AAA", "Color contrast is low. Make sure text meets WCAG AA/AAA contrast levels."},
		{"low palette coherence", "The palette lacks coherence or text/background contrast is insufficient."},
		{"good balance, adjust secondary tones", "Good color balance, though secondary tones or backgrounds could be adjusted."},
		{"excellent harmony", "Excellent color harmony with appropriate contrast."},
	},
	Layout: {
		{"unbalanced, needs grid/flex + consistent margins", "The layout is unbalanced. Use a more uniform grid or flex structure with consistent margins."},
		{"some elements need reorganizing", "Some elements could be reorganized to improve visual hierarchy."},
		{"adequate, optimize spacing", "Adequate structure, though spacing and alignment can be optimized."},
		{"well structured", "Well structured design with a consistent, clean layout."},
	},
	Overall: {
		{"needs general improvement", "The design needs general improvement to deliver a clearer, more polished experience."},
		{"good with room to optimize", "Good overall design with room for visual optimization."},
		{"solid, minor polish", "Solid design with minor details left to polish."},
		{"outstanding", "Outstanding design meeting high visual standards."},
	},
}

func bucketFor(score int, bounds [3]int) Bucket {
	b := Bucket(0)
	for _, lo := range bounds {
		if score >= lo {
			b++
		}
	}
	return b
}

// Recommend returns exactly four recommendations in the order typography,
// color, layout, overall.
func Recommend(b ScoreBreakdown, th Thresholds) []Recommendation {
	entries := []struct {
		dim    Dimension
		score  int
		bounds [3]int
	}{
		{Typography, b.Typography, th.Dimension},
		{Color, b.Color, th.Dimension},
		{Layout, b.Layout, th.Dimension},
		{Overall, b.Total, th.Overall},
	}
	recs := make([]Recommendation, 0, len(entries))
	for _, e := range entries {
		bucket := bucketFor(e.score, e.bounds)
		t := recommendationTable[e.dim][bucket]
		recs = append(recs, Recommendation{
			Dimension: e.dim,
			Bucket:    bucket,
			Summary:   t.summary,
			Advice:    t.advice,
		})
	}
	return recs
}

// Summaries returns the table strings of recs in order.
func Summaries(recs []Recommendation) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.Summary
	}
	return out
}
