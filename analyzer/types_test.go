package analyzer

import (
	"encoding/json"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func sampleResult() *AnalysisResult {
	return &AnalysisResult{
		ID:         "20260101T000000Z_abc123",
		URL:        "https://example.com/",
		Title:      "Example",
		CreatedAt:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Screenshot: ScreenshotFile,
		Typography: DimensionResult{Dimension: Typography, Score: 90, Details: TypographyDetails{
			Families:    []string{"Arial", "Georgia"},
			TopFamilies: []FamilyCount{{"Arial", 2}, {"Georgia", 1}},
			Sample:      []FontRecord{{Tag: "h1", FontFamily: "Arial", FontSize: "32px", FontWeight: "700"}},
			FamilyCount: 2,
		}},
		Color: DimensionResult{Dimension: Color, Score: 100, Details: ColorDetails{
			Pairs:    []ColorPair{{FG: "rgb(0, 0, 0)", BG: "rgb(255, 255, 255)", Contrast: 21}},
			Distinct: 1,
		}},
		Layout:    DimensionResult{Dimension: Layout, Score: 90, Details: LayoutDetails{Flex: 2, Grid: 1, Block: 7}},
		Breakdown: ScoreBreakdown{Total: 93, Typography: 90, Color: 100, Layout: 90},
	}
}

func TestAnalysisResult_JSONRoundTrip(t *testing.T) {
	in := sampleResult()
	data, err := json.Marshal(in)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"dimension":"typography"`) {
		t.Fatalf("missing dimension tag: %s", data)
	}
	if !strings.Contains(string(data), `"breakdown":{"total":93,"typography":90,"color":100,"layout":90}`) {
		t.Fatalf("breakdown key: %s", data)
	}
	var out AnalysisResult
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(in, &out) {
		t.Fatalf("round trip mismatch:\n in=%+v\nout=%+v", in, &out)
	}
}

func TestWriteReadResult(t *testing.T) {
	path := filepath.Join(t.TempDir(), ResultFile)
	in := sampleResult()
	if err := WriteResult(path, in); err != nil {
		t.Fatal(err)
	}
	out, err := ReadResult(path)
	if err != nil {
		t.Fatal(err)
	}
	if out.Breakdown != in.Breakdown || !reflect.DeepEqual(out.Color.Details, in.Color.Details) {
		t.Fatalf("reload mismatch: %+v", out)
	}
}

func TestDimensionResult_UnknownDimension(t *testing.T) {
	var r DimensionResult
	if err := json.Unmarshal([]byte(`{"dimension":"motion","score":1,"details":{}}`), &r); err == nil {
		t.Fatal("expected error for unknown dimension")
	}
}

func TestDimensionResult_Accessors(t *testing.T) {
	r := sampleResult()
	if r.Layout.Typography().FamilyCount != 0 {
		t.Fatal("wrong variant should yield zero value")
	}
	if r.Layout.Layout().Flex != 2 {
		t.Fatal("layout accessor")
	}
}
