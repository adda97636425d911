package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/hazyhaar/designscore/mcpserver"
)

func newMCPCmd(gf *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the designscore tools over MCP stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			// stdout carries the protocol.
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

			srv := mcpserver.NewServer(&mcpserver.Tools{
				Runner:     a.analyzer,
				Catalog:    a.store,
				Weights:    cfg.Weights,
				Thresholds: cfg.Thresholds,
				Audit:      a.audit,
			}, version)
			logger.Info("mcp: serving on stdio")
			return srv.Run(ctx, &mcp.StdioTransport{})
		},
	}
}
