package analyzer

import (
	"context"
	"fmt"
	"sort"

	"github.com/hazyhaar/designscore/snapshot"
)

const (
	// TypographySampleCap bounds the elements read for typography.
	TypographySampleCap = 100
	topFamilyCount      = 3
	fontRecordCap       = 10
	maxDisciplinedFonts = 3
)

// ExtractTypography samples body elements and scores font family discipline.
func ExtractTypography(ctx context.Context, snap snapshot.Snapshot) (DimensionResult, error) {
	samples, err := snap.Select(ctx, snapshot.BodyDescendants, TypographySampleCap)
	if err != nil {
		return DimensionResult{}, fmt.Errorf("analyzer: typography: %w", err)
	}
	return TypographyFrom(samples), nil
}

// TypographyFrom scores 90 when at most three distinct families are used,
// 70 otherwise. Samples without a font family are ignored.
func TypographyFrom(samples []snapshot.StyleSample) DimensionResult {
	counts := make(map[string]int)
	families := []string{}
	records := []FontRecord{}

	for _, s := range samples {
		if s.FontFamily == "" {
			continue
		}
		if _, seen := counts[s.FontFamily]; !seen {
			families = append(families, s.FontFamily)
		}
		counts[s.FontFamily]++
		if len(records) < fontRecordCap {
			records = append(records, FontRecord{
				Tag:        s.Tag,
				FontFamily: s.FontFamily,
				FontSize:   s.FontSize,
				FontWeight: s.FontWeight,
			})
		}
	}

	ranked := make([]FamilyCount, len(families))
	for i, f := range families {
		ranked[i] = FamilyCount{Family: f, Count: counts[f]}
	}
	// Stable keeps first-seen order among ties.
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Count > ranked[j].Count })
	if len(ranked) > topFamilyCount {
		ranked = ranked[:topFamilyCount]
	}

	score := 90
	if len(families) > maxDisciplinedFonts {
		score = 70
	}
	return DimensionResult{
		Dimension: Typography,
		Score:     score,
		Details: TypographyDetails{
			Families:    families,
			TopFamilies: ranked,
			Sample:      records,
			FamilyCount: len(families),
		},
	}
}
