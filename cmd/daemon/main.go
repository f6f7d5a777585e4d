package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/qwli7/meetbridge/internal/config"
	"github.com/qwli7/meetbridge/internal/daemon"
	"github.com/qwli7/meetbridge/internal/log"
)

var (
	version   = "v1.0.0"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	log.Configure(log.Config{
		Level:   config.ParseString("LOG_LEVEL", "info"),
		Service: "meetbridge",
	})
	logger := log.WithComponent("main")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.FromEnv()
	if err != nil {
		logger.Fatal().
			Err(err).
			Str(log.FieldEvent, "config.load_failed").
			Msg("failed to load configuration")
	}

	d, err := daemon.New(cfg)
	if err != nil {
		logger.Fatal().
			Err(err).
			Str(log.FieldEvent, "daemon.init_failed").
			Msg("failed to initialize daemon")
	}

	if err := d.Run(ctx); err != nil {
		logger.Error().
			Err(err).
			Str(log.FieldEvent, "daemon.failed").
			Msg("daemon exited with error")
		os.Exit(1)
	}
}
