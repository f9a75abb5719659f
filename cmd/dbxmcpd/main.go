package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"dbxmcp/internal/app"
)

type serveOptions struct {
	configPath string
}

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := serveOptions{}

	root := &cobra.Command{
		Use:           "dbxmcpd",
		Short:         "Stateless MCP gateway for remote file storage",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", opts.configPath, "path to config file (optional, env vars apply on top)")

	root.AddCommand(
		newServeCmd(&opts),
		newValidateCmd(&opts),
	)

	return root
}

func newServeCmd(opts *serveOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.LoadConfig(opts.configPath)
			if err != nil {
				return err
			}

			logger, err := app.NewLogger(cfg.Logging)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, cancel := signalAwareContext(cmd.Context())
			defer cancel()

			application := app.New(logger)
			if err := application.Serve(ctx, cfg); err != nil {
				logger.Error("gateway failed", zap.Error(err))
				return err
			}
			return nil
		},
	}

	return cmd
}

func newValidateCmd(opts *serveOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration without serving",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := app.LoadConfig(opts.configPath)
			if err != nil {
				return err
			}
			cmd.Println("configuration OK")
			return nil
		},
	}

	return cmd
}

func signalAwareContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(signals)
		select {
		case <-signals:
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
