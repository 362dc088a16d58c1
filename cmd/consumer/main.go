package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/charlesng35/tripmate/internal/app"
	"github.com/charlesng35/tripmate/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("tripmate-consumer", flag.ContinueOnError)
	fs.SetOutput(os.Stdout)

	var configPath string
	fs.StringVar(&configPath, "config", "", "Path to configuration directory or file")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := app.LoadConfigFrom(configPath)
	if err != nil {
		return err
	}

	if err := app.ConfigureLogging(cfg.Server, "tripmate-consumer"); err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	defer logger.Sync() // best effort

	log := logger.WithModule("bootstrap")

	w, err := bootstrapWorker(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := w.Close(); err != nil {
			log.Warn("consumer shutdown", zap.Error(err))
		}
	}()

	if err := w.Run(ctx); err != nil {
		return err
	}
	log.Info("consumer stopped")
	return nil
}
