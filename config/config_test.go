package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hazyhaar/designscore/analyzer"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "designscore.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Addr != ":8080" || cfg.ResultsDir != "results" || cfg.Provider != ProviderBrowser {
		t.Errorf("defaults = %+v", cfg)
	}
	if cfg.Weights != analyzer.DefaultWeights() {
		t.Errorf("weights = %+v", cfg.Weights)
	}
	if cfg.Thresholds != analyzer.DefaultThresholds() {
		t.Errorf("thresholds = %+v", cfg.Thresholds)
	}
	if cfg.Browser.NavTimeout != 30*time.Second || cfg.Browser.IdleWindow != 500*time.Millisecond {
		t.Errorf("browser = %+v", cfg.Browser)
	}
	if !*cfg.Report.Markdown {
		t.Error("markdown should default on")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestLoad_File(t *testing.T) {
	path := writeFile(t, `
addr: ":9090"
provider: auto
log_level: debug
weights:
  typography: 0.5
  color: 0.25
  layout: 0.25
thresholds:
  dimension: [40, 60, 80]
  overall: [50, 70, 90]
browser:
  nav_timeout: 45s
  resource_blocking: [font, media]
report:
  timezone: Europe/Paris
  markdown: false
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":9090" || cfg.Provider != ProviderAuto {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Weights.Typography != 0.5 {
		t.Errorf("weights = %+v", cfg.Weights)
	}
	if cfg.Thresholds.Dimension != [3]int{40, 60, 80} {
		t.Errorf("thresholds = %+v", cfg.Thresholds)
	}
	if cfg.Browser.NavTimeout != 45*time.Second || len(cfg.Browser.ResourceBlocking) != 2 {
		t.Errorf("browser = %+v", cfg.Browser)
	}
	if *cfg.Report.Markdown {
		t.Error("markdown should be off")
	}
	if lvl, _ := cfg.SlogLevel(); lvl != slog.LevelDebug {
		t.Errorf("level = %v", lvl)
	}
	if loc, err := cfg.Location(); err != nil || loc.String() != "Europe/Paris" {
		t.Errorf("location = %v, %v", loc, err)
	}
	if cfg.ResultsDir != "results" {
		t.Errorf("unset field not defaulted: %q", cfg.ResultsDir)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DESIGNSCORE_ADDR", ":7000")
	t.Setenv("DESIGNSCORE_RESULTS_DIR", "/tmp/out")
	t.Setenv("DESIGNSCORE_DB", "/tmp/cat.db")
	t.Setenv("DESIGNSCORE_LOG_LEVEL", "warn")
	t.Setenv("DESIGNSCORE_CHROME_URL", "ws://chrome:9222")

	cfg, err := Load(writeFile(t, "addr: \":9090\"\n"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":7000" || cfg.ResultsDir != "/tmp/out" || cfg.DBPath != "/tmp/cat.db" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.LogLevel != "warn" || cfg.Browser.RemoteURL != "ws://chrome:9222" {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name, yaml string
	}{
		{"provider", "provider: phantom\n"},
		{"log level", "log_level: verbose\n"},
		{"weights sum", "weights: {typography: 0.5, color: 0.5, layout: 0.5}\n"},
		{"negative weight", "weights: {typography: 1.2, color: -0.1, layout: -0.1}\n"},
		{"thresholds order", "thresholds: {dimension: [80, 60, 90], overall: [60, 80, 90]}\n"},
		{"timezone", "report: {timezone: Mars/Olympus}\n"},
		{"yaml", "addr: [unclosed\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeFile(t, tt.yaml)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error")
	}
}

func TestLoad_EmptyPath(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DBPath != "designscore.db" {
		t.Errorf("db = %q", cfg.DBPath)
	}
}
