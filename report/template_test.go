package report

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func TestTemplate_Execute(t *testing.T) {
	tmpl := ParseTemplate("<h1>{{TITLE}}</h1><p>{{URL}} {{URL}}</p>")
	got := tmpl.Execute(map[string]string{"TITLE": "Home", "URL": "https://a.test"})
	want := "<h1>Home</h1><p>https://a.test https://a.test</p>"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestTemplate_SinglePass(t *testing.T) {
	tmpl := ParseTemplate("{{TITLE}}|{{URL}}")
	got := tmpl.Execute(map[string]string{"TITLE": "{{URL}}", "URL": "x"})
	if got != "{{URL}}|x" {
		t.Errorf("value was re-substituted: %q", got)
	}
}

func TestTemplate_UnknownKeptVerbatim(t *testing.T) {
	tmpl := ParseTemplate("a {{MISSING}} b {{lower}} c {{ URL }} d {{")
	got := tmpl.Execute(map[string]string{"URL": "u"})
	if got != "a {{MISSING}} b {{lower}} c {{ URL }} d {{" {
		t.Errorf("got %q", got)
	}
}

func TestTemplate_ExtraBraces(t *testing.T) {
	tmpl := ParseTemplate("{{{{URL}}}}")
	got := tmpl.Execute(map[string]string{"URL": "u"})
	if got != "{{u}}" {
		t.Errorf("got %q", got)
	}
}

func TestTemplate_Placeholders(t *testing.T) {
	tmpl := ParseTemplate("{{B}}{{A}}{{B}}text")
	got := tmpl.Placeholders()
	slices.Sort(got)
	if !slices.Equal(got, []string{"A", "B"}) {
		t.Errorf("placeholders = %v", got)
	}
}

func TestDefaultTemplate_CoversAllValues(t *testing.T) {
	names := DefaultTemplate().Placeholders()
	for _, want := range []string{
		"URL", "TITLE", "DATE", "TOTAL", "T", "C", "L",
		"SCREENSHOT_BASE64", "TYPO_ROWS", "COLOR_ROWS",
		"LAYOUT_GRID", "LAYOUT_FLEX", "LAYOUT_BLOCK",
		"BAR_T_H", "BAR_T_Y", "BAR_C_H", "BAR_C_Y", "BAR_L_H", "BAR_L_Y",
		"RECOMMENDATIONS", "RUN_ID",
	} {
		if !slices.Contains(names, want) {
			t.Errorf("default template lacks {{%s}}", want)
		}
	}
}

func TestLoadTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.html")
	if err := os.WriteFile(path, []byte("<b>{{TOTAL}}</b>"), 0o644); err != nil {
		t.Fatal(err)
	}
	tmpl, err := LoadTemplate(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := tmpl.Execute(map[string]string{"TOTAL": "93"}); got != "<b>93</b>" {
		t.Errorf("got %q", got)
	}
	_, err = LoadTemplate(filepath.Join(t.TempDir(), "missing.html"))
	if !errors.Is(err, ErrRender) || !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing template: got %v", err)
	}
}
