package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/MrWong99/voicenav/internal/app"
	"github.com/MrWong99/voicenav/internal/mcpserver"
)

func newMCPCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the navigation session as an MCP server on stdin/stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			// stdout carries the protocol.
			cfg.Console.Enabled = false
			cfg.Server.ListenAddr = ""

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			shutdownOTel, err := initTelemetry(ctx, cfg)
			if err != nil {
				return err
			}
			defer shutdownOTel()

			a, err := app.New(ctx, cfg, app.WithLevelVar(opts.level))
			if err != nil {
				return err
			}
			defer func() { _ = a.Shutdown(context.Background()) }()

			srv := mcpserver.New(a.Navigator(), mcpserver.WithVersion(version))
			if err := srv.ServeStdio(ctx); err != nil {
				return fmt.Errorf("mcp: %w", err)
			}
			return nil
		},
	}
}
