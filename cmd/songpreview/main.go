package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"songpreview/internal/config"
	"songpreview/internal/logger"
	"songpreview/internal/pipeline"
	"songpreview/internal/playback"
	"songpreview/internal/preview"
	"songpreview/internal/progress"
	"songpreview/internal/shutdown"
)

func main() {
	cfg, opts, err := parseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "[ERROR] %v\n", err)
		os.Exit(1)
	}

	sh := shutdown.New()
	sh.Listen()

	log := logger.NewWithOptions(logger.Options{
		Verbose: cfg.Verbose,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
	})

	if !cfg.Verbose {
		logDir := config.GetDefaultLogPath()
		if err := os.MkdirAll(logDir, 0755); err != nil {
			fmt.Fprintf(os.Stderr, "[WARN] Failed to create log directory: %v\n", err)
		} else {
			logFile := filepath.Join(logDir, fmt.Sprintf("songpreview_%s.log", time.Now().Format("2006-01-02_15-04-05")))
			if err := log.SetFileLog(logFile); err != nil {
				fmt.Fprintf(os.Stderr, "[WARN] Failed to setup file logging: %v\n", err)
			} else {
				log.Debug("Logging to file: %s", logFile)
			}
		}
	}
	sh.AddCleanup(func() { log.Close() })

	if opts.configPath != "" {
		log.Debug("Loaded configuration from: %s", opts.configPath)
	}

	if err := cfg.Validate(); err != nil {
		log.Error("Configuration error: %v", err)
		sh.Shutdown()
		os.Exit(1)
	}

	err = run(sh, cfg, opts, log)
	sh.Shutdown()
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "[ERROR] %v\n", err)
		os.Exit(1)
	}
}

func run(sh *shutdown.Handler, cfg config.Config, opts options, log *logger.Logger) error {
	p, err := pipeline.New(cfg, log)
	if err != nil {
		return err
	}
	sh.AddCleanup(func() {
		log.Debug("Closing view model and cache...")
		if err := p.Close(); err != nil {
			log.Warn("Error during cleanup: %v", err)
		}
	})

	open, err := playback.NewMPVOpener()
	if err != nil {
		log.Warn("Playback unavailable: %v", err)
		open = func(context.Context) (playback.Player, error) { return nil, err }
	}

	prober := preview.NewProber(log)
	bar := progress.New(os.Stdout)

	var shell *Shell
	player := playback.NewController(open, playback.Options{
		Interval: cfg.ProgressInterval,
		Prober:   prober,
		OnUpdate: func(st playback.Status) {
			if shell != nil {
				shell.onPlayback(st)
			}
		},
	}, log)
	sh.AddCleanup(func() {
		log.Debug("Releasing player...")
		player.Close()
	})

	shell = newShell(p.Model, player, prober, bar, log, os.Stdout)

	if opts.keyword != "" {
		p.Model.SearchSongs(opts.keyword)
	} else {
		p.Model.Resume()
	}
	if err := shell.waitAndList(); err != nil {
		fmt.Fprintf(os.Stdout, "error: %v\n", err)
	}

	return shell.Run(sh.Context(), os.Stdin)
}
