// Command designscore analyzes the design quality of web pages.
//
//	designscore serve                 HTTP API on the configured address
//	designscore analyze <url>         one analysis from the command line
//	designscore render <run id|dir>   re-render the report of a stored run
//	designscore runs                  list recent runs
//	designscore mcp                   MCP tools over stdio
//	designscore maintenance on|off    toggle the API maintenance flag
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/designscore/config"
)

var version = "dev"

type globalFlags struct {
	configPath string
	logLevel   string
}

func main() {
	var gf globalFlags

	rootCmd := &cobra.Command{
		Use:   "designscore",
		Short: "Heuristic design-quality scoring for web pages",
		Long: `designscore renders a web page, extracts typography, color and layout
signals, scores each dimension, and writes an HTML/PDF report per run.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&gf.configPath, "config", "c", os.Getenv("DESIGNSCORE_CONFIG"), "Path to YAML config file")
	rootCmd.PersistentFlags().StringVar(&gf.logLevel, "log-level", "", "Override log level: debug, info, warn, error")

	rootCmd.AddCommand(
		newServeCmd(&gf),
		newAnalyzeCmd(&gf),
		newRenderCmd(&gf),
		newRunsCmd(&gf),
		newMCPCmd(&gf),
		newMaintenanceCmd(&gf),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// loadConfig reads the config and installs the JSON logger as default.
// Logs go to w so that stdout stays free for command output.
func loadConfig(gf *globalFlags, w io.Writer) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(gf.configPath)
	if err != nil {
		return nil, nil, err
	}
	if gf.logLevel != "" {
		cfg.LogLevel = gf.logLevel
	}
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, nil, err
	}
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return cfg, logger, nil
}
