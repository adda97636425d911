package analyzer

import (
	"context"
	"fmt"
	"strings"

	"github.com/hazyhaar/designscore/snapshot"
)

// ExtractLayout reads every body element and scores modern layout usage.
func ExtractLayout(ctx context.Context, snap snapshot.Snapshot) (DimensionResult, error) {
	samples, err := snap.Select(ctx, snapshot.BodyDescendants, 0)
	if err != nil {
		return DimensionResult{}, fmt.Errorf("analyzer: layout: %w", err)
	}
	return LayoutFrom(samples), nil
}

// LayoutFrom classifies display modes with flex taking priority over grid.
func LayoutFrom(samples []snapshot.StyleSample) DimensionResult {
	var d LayoutDetails
	for _, s := range samples {
		switch {
		case strings.Contains(s.Display, "flex"):
			d.Flex++
		case strings.Contains(s.Display, "grid"):
			d.Grid++
		default:
			d.Block++
		}
	}
	return DimensionResult{Dimension: Layout, Score: LayoutScore(d), Details: d}
}

// LayoutScore is 90 when any flex or grid container exists, else 60.
func LayoutScore(d LayoutDetails) int {
	if d.Flex > 0 || d.Grid > 0 {
		return 90
	}
	return 60
}
