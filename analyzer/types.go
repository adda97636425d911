package analyzer

import (
	"encoding/json"
	"fmt"
	"time"
)

// Dimension names one scoring axis.
type Dimension string

const (
	Typography Dimension = "typography"
	Color      Dimension = "color"
	Layout     Dimension = "layout"
	// Overall is used only by recommendations.
	Overall Dimension = "overall"
)

// Details is the dimension-specific payload of a DimensionResult.
// Implemented by TypographyDetails, ColorDetails and LayoutDetails.
type Details interface {
	dimension() Dimension
}

// FamilyCount is a font family with its occurrence count.
type FamilyCount struct {
	Family string `json:"family"`
	Count  int    `json:"count"`
}

// FontRecord is one sampled element's raw font properties.
type FontRecord struct {
	Tag        string `json:"tag"`
	FontFamily string `json:"fontFamily"`
	FontSize   string `json:"fontSize"`
	FontWeight string `json:"fontWeight"`
}

type TypographyDetails struct {
	Families    []string      `json:"families"`
	TopFamilies []FamilyCount `json:"topFamilies"`
	Sample      []FontRecord  `json:"sample"`
	FamilyCount int           `json:"familyCount"`
}

// ColorPair is one element's foreground/background. Contrast is the WCAG
// ratio when both colors parse, zero otherwise.
type ColorPair struct {
	FG       string  `json:"fg"`
	BG       string  `json:"bg"`
	Contrast float64 `json:"contrast,omitempty"`
}

type ColorDetails struct {
	Pairs    []ColorPair `json:"pairs"`
	Distinct int         `json:"distinct"`
}

type LayoutDetails struct {
	Flex  int `json:"flex"`
	Grid  int `json:"grid"`
	Block int `json:"block"`
}

func (TypographyDetails) dimension() Dimension { return Typography }
func (ColorDetails) dimension() Dimension      { return Color }
func (LayoutDetails) dimension() Dimension     { return Layout }

// DimensionResult is the score and details for one dimension.
type DimensionResult struct {
	Dimension Dimension
	Score     int
	Details   Details
}

type dimensionResultJSON struct {
	Dimension Dimension       `json:"dimension"`
	Score     int             `json:"score"`
	Details   json.RawMessage `json:"details"`
}

func (r DimensionResult) MarshalJSON() ([]byte, error) {
	details, err := json.Marshal(r.Details)
	if err != nil {
		return nil, err
	}
	return json.Marshal(dimensionResultJSON{Dimension: r.Dimension, Score: r.Score, Details: details})
}

func (r *DimensionResult) UnmarshalJSON(data []byte) error {
	var raw dimensionResultJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var d Details
	switch raw.Dimension {
	case Typography:
		var v TypographyDetails
		if err := json.Unmarshal(raw.Details, &v); err != nil {
			return fmt.Errorf("analyzer: typography details: %w", err)
		}
		d = v
	case Color:
		var v ColorDetails
		if err := json.Unmarshal(raw.Details, &v); err != nil {
			return fmt.Errorf("analyzer: color details: %w", err)
		}
		d = v
	case Layout:
		var v LayoutDetails
		if err := json.Unmarshal(raw.Details, &v); err != nil {
			return fmt.Errorf("analyzer: layout details: %w", err)
		}
		d = v
	default:
		return fmt.Errorf("analyzer: unknown dimension %q", raw.Dimension)
	}
	*r = DimensionResult{Dimension: raw.Dimension, Score: raw.Score, Details: d}
	return nil
}

// Typography returns the typography details, or the zero value when r holds
// another dimension.
func (r DimensionResult) Typography() TypographyDetails {
	d, _ := r.Details.(TypographyDetails)
	return d
}

func (r DimensionResult) Color() ColorDetails {
	d, _ := r.Details.(ColorDetails)
	return d
}

func (r DimensionResult) Layout() LayoutDetails {
	d, _ := r.Details.(LayoutDetails)
	return d
}

// ScoreBreakdown holds the weighted total and the per-dimension scores.
type ScoreBreakdown struct {
	Total      int `json:"total"`
	Typography int `json:"typography"`
	Color      int `json:"color"`
	Layout     int `json:"layout"`
}

// AnalysisResult is the canonical, write-once record of one run.
type AnalysisResult struct {
	ID         string          `json:"id"`
	URL        string          `json:"url"`
	Title      string          `json:"title,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
	Screenshot string          `json:"screenshot"`
	Typography DimensionResult `json:"typography"`
	Color      DimensionResult `json:"color"`
	Layout     DimensionResult `json:"layout"`
	Breakdown  ScoreBreakdown  `json:"breakdown"`
}

// RenderedReport lists the artifact paths of a rendered report.
type RenderedReport struct {
	HTMLPath     string `json:"htmlPath"`
	PDFPath      string `json:"pdfPath"`
	MarkdownPath string `json:"markdownPath,omitempty"`
}
