package main

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"

	"github.com/hazyhaar/designscore/analyzer"
	"github.com/hazyhaar/designscore/store"
)

// scoreColor picks green/yellow/red by the same bounds as the
// recommendation buckets.
func scoreColor(score int, bounds [3]int) *color.Color {
	switch {
	case score >= bounds[1]:
		return color.New(color.FgGreen, color.Bold)
	case score >= bounds[0]:
		return color.New(color.FgYellow, color.Bold)
	default:
		return color.New(color.FgRed, color.Bold)
	}
}

func printSummary(w io.Writer, res *analyzer.AnalysisResult, recs []analyzer.Recommendation, out *analyzer.RunOutcome, th analyzer.Thresholds) {
	cyan := color.New(color.FgCyan)
	faint := color.New(color.Faint)

	cyan.Fprintf(w, "\n%s\n", res.URL)
	if res.Title != "" {
		faint.Fprintf(w, "%s\n", res.Title)
	}
	fmt.Fprintln(w)

	scores := map[analyzer.Dimension]int{
		analyzer.Typography: res.Breakdown.Typography,
		analyzer.Color:      res.Breakdown.Color,
		analyzer.Layout:     res.Breakdown.Layout,
		analyzer.Overall:    res.Breakdown.Total,
	}
	for _, rec := range recs {
		bounds := th.Dimension
		if rec.Dimension == analyzer.Overall {
			bounds = th.Overall
		}
		s := scores[rec.Dimension]
		fmt.Fprintf(w, "  %-11s ", rec.Dimension)
		scoreColor(s, bounds).Fprintf(w, "%3d", s)
		fmt.Fprintf(w, "  %s\n", rec.Summary)
	}
	fmt.Fprintln(w)

	faint.Fprintf(w, "run %s in %s\n", res.ID, out.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "  %s\n", out.ResultPath)
	if out.ReportErr != nil {
		color.New(color.FgRed).Fprintf(w, "  report failed: %v\n", out.ReportErr)
		return
	}
	if out.Report.HTMLPath != "" {
		fmt.Fprintf(w, "  %s\n  %s\n", out.Report.HTMLPath, out.Report.PDFPath)
	}
}

func printRuns(w io.Writer, entries []*store.Entry, th analyzer.Thresholds) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "no runs")
		return
	}
	for _, e := range entries {
		fmt.Fprintf(w, "%s  %s  ", e.CreatedAt.Format("2006-01-02 15:04"), e.ID)
		scoreColor(e.Scores.Total, th.Overall).Fprintf(w, "%3d", e.Scores.Total)
		fmt.Fprintf(w, "  %s\n", e.URL)
	}
}
