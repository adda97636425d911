package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/designscore/analyzer"
	"github.com/hazyhaar/designscore/guard"
	"github.com/hazyhaar/designscore/store"
)

func newAnalyzeCmd(gf *globalFlags) *cobra.Command {
	var (
		jsonOut  bool
		noReport bool
		provider string
	)

	cmd := &cobra.Command{
		Use:   "analyze <url>",
		Short: "Analyze one page and write its run directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(gf, os.Stderr)
			if err != nil {
				return err
			}
			if provider != "" {
				cfg.Provider = provider
				if err := cfg.Validate(); err != nil {
					return err
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(cfg, logger, appOptions{noReport: noReport})
			if err != nil {
				return err
			}
			defer a.Close()

			res, out, err := a.analyzer.Analyze(ctx, args[0])
			if err != nil {
				return err
			}
			recs := analyzer.Recommend(res.Breakdown, cfg.Thresholds)
			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"result":          res,
					"recommendations": recs,
					"runDir":          out.RunDir,
					"report":          out.Report,
				})
			}
			printSummary(cmd.OutOrStdout(), res, recs, out, cfg.Thresholds)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the result as JSON")
	cmd.Flags().BoolVar(&noReport, "no-report", false, "Skip HTML/PDF rendering")
	cmd.Flags().StringVar(&provider, "provider", "", "Snapshot provider: browser, static or auto")
	return cmd
}

func newRenderCmd(gf *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "render <run id | run dir>",
		Short: "Re-render the report of a stored run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(gf, os.Stderr)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(cfg, logger, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			runDir, err := resolveRunDir(cfg.ResultsDir, args[0])
			if err != nil {
				return err
			}
			res, err := store.Load(filepath.Join(runDir, analyzer.ResultFile))
			if err != nil {
				return err
			}
			rep, rerr := a.renderer.Render(ctx, res, filepath.Join(runDir, res.Screenshot), runDir)
			if err := a.store.SetReport(ctx, res.ID, rep, rerr); err != nil && !errors.Is(err, store.ErrNotFound) {
				logger.Warn("record report", "run_id", res.ID, "error", err)
			}
			if rerr != nil {
				return rerr
			}
			fmt.Fprintln(cmd.OutOrStdout(), rep.HTMLPath)
			fmt.Fprintln(cmd.OutOrStdout(), rep.PDFPath)
			if rep.MarkdownPath != "" {
				fmt.Fprintln(cmd.OutOrStdout(), rep.MarkdownPath)
			}
			return nil
		},
	}
}

// resolveRunDir accepts either an existing directory or a run id under
// resultsDir.
func resolveRunDir(resultsDir, arg string) (string, error) {
	if fi, err := os.Stat(arg); err == nil && fi.IsDir() {
		return arg, nil
	}
	if err := guard.ValidateIdentifier(arg); err != nil {
		return "", fmt.Errorf("run %q: %w", arg, err)
	}
	dir, err := guard.SafePath(resultsDir, arg)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(dir); err != nil {
		return "", fmt.Errorf("run %q: %w", arg, err)
	}
	return dir, nil
}

func newRunsCmd(gf *globalFlags) *cobra.Command {
	var (
		limit   int
		jsonOut bool
	)
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent runs from the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(gf, os.Stderr)
			if err != nil {
				return err
			}
			st, err := store.Open(cfg.DBPath)
			if err != nil {
				return err
			}
			defer st.Close()

			entries, err := st.List(context.Background(), limit)
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), entries)
			}
			printRuns(cmd.OutOrStdout(), entries, cfg.Thresholds)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print as JSON")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
