// Command hangar is the registry's process entrypoint: install a JSON slog
// handler, load config, construct the application context, start
// background loops, block for a shutdown signal, then stop cleanly.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mapyr/mcp-hangar/internal/app"
	"github.com/mapyr/mcp-hangar/internal/config"
)

const shutdownGracePeriod = 10 * time.Second

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "hangar",
		Short: "mcp-hangar multiplexes MCP provider processes behind one registry",
	}
	root.PersistentFlags().StringVar(&configPath, "config", os.Getenv("MCP_CONFIG"), "path to the YAML config file")

	root.AddCommand(newServeCmd(&configPath))
	root.AddCommand(newConfigCmd(&configPath))

	return root
}

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "load the configured providers and run the registry until signaled to stop",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(*configPath)
		},
	}
}

func newConfigCmd(configPath *string) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "inspect or validate the registry configuration",
	}
	configCmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "parse the config file and report validation errors",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := config.Load(*configPath); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "config OK")
			return nil
		},
	})
	return configCmd
}

func runServe(configPath string) error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if configPath == "" {
		return fmt.Errorf("no config path given (set --config or MCP_CONFIG)")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.Info("initializing registry", "config", configPath, "providers", len(cfg.Providers))
	appCtx, err := app.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize registry: %w", err)
	}

	appCtx.Start(ctx)
	logger.Info("registry ready", "providers", len(cfg.Providers))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received shutdown signal", "signal", sig.String())

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
	defer shutdownCancel()
	if err := appCtx.Shutdown(shutdownCtx); err != nil {
		logger.Error("error during shutdown", "error", err)
		return err
	}

	logger.Info("registry stopped")
	return nil
}
