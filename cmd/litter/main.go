package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mrjvadi/litter/broker"
	"github.com/mrjvadi/litter/codec"
	"github.com/mrjvadi/litter/config"
)

var (
	version   = "dev"
	gitCommit = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

type globalFlags struct {
	configPath string
	appName    string
}

func newRootCmd() *cobra.Command {
	var g globalFlags
	root := &cobra.Command{
		Use:          "litter",
		Short:        "Publish, request and watch litter channels",
		Version:      fmt.Sprintf("%s (commit: %s)", version, gitCommit),
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "configuration file path")
	root.PersistentFlags().StringVarP(&g.appName, "app-name", "n", "", "application name to send as")

	root.AddCommand(
		newPublishCmd(&g),
		newRequestCmd(&g),
		newIterCmd(&g),
		newMonitorCmd(&g),
	)
	return root
}

// connect loads the configuration and returns a connected App. The returned
// func disconnects it and flushes the logger.
func connect(ctx context.Context, g *globalFlags, defaultName string) (*broker.App, func(), error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, nil, err
	}
	logger, err := cfg.Log.Build()
	if err != nil {
		return nil, nil, err
	}

	name := g.appName
	if name == "" {
		name = cfg.AppName
	}
	if name == "" {
		name = defaultName
	}

	app := broker.New(cfg.Options(logger)...)
	if err := app.Connect(ctx, cfg.Redis.Credentials(), name); err != nil {
		_ = logger.Sync()
		return nil, nil, err
	}
	logger.Debug("configuration", zap.Stringer("config", cfg))
	return app, func() {
		_ = app.Disconnect()
		_ = logger.Sync()
	}, nil
}

// parseBody reads a JSON document from the command line. Tagged timestamps
// and byte blobs are understood.
func parseBody(args []string) (any, error) {
	if len(args) == 0 || args[0] == "" {
		return nil, nil
	}
	body, err := codec.Decode(args[0])
	if err != nil {
		return nil, fmt.Errorf("body: %w", err)
	}
	return body, nil
}
