package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"songpreview/internal/config"
	"songpreview/internal/logger"
	"songpreview/internal/pipeline"
	"songpreview/internal/shutdown"
	"songpreview/internal/web"
)

func main() {
	var (
		addr       string
		configPath string
		verbose    bool
	)

	flag.StringVar(&addr, "addr", "", "HTTP listen address (default from config)")
	flag.StringVar(&configPath, "config", "", "Config file path")
	flag.BoolVar(&verbose, "v", false, "Verbose logging")
	flag.Parse()

	cfg, err := config.LoadConfigFile(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	if err := config.LoadEnv(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	if addr != "" {
		cfg.Addr = addr
	}
	if verbose {
		cfg.Verbose = true
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	// Setup logger with file logging
	l := logger.NewWithOptions(logger.Options{
		Verbose: cfg.Verbose,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
	})
	logDir := config.GetDefaultLogPath()
	if err := os.MkdirAll(logDir, 0755); err == nil {
		logPath := filepath.Join(logDir, fmt.Sprintf("songpreview-web-%d.log", time.Now().Unix()))
		if err := l.SetFileLog(logPath); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: Failed to setup file logging: %v\n", err)
		}
	}

	sh := shutdown.New()
	sh.Listen()
	sh.AddCleanup(func() { l.Close() })

	p, err := pipeline.New(cfg, l)
	if err != nil {
		l.Error("Startup failed: %v", err)
		sh.Shutdown()
		os.Exit(1)
	}
	sh.AddCleanup(func() {
		if err := p.Close(); err != nil {
			l.Warn("Error during cleanup: %v", err)
		}
	})

	server := web.NewServer(sh.Context(), p.Model, cfg, l)
	p.Model.Resume()

	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      server.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	sh.AddCleanup(func() {
		l.Info("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(ctx); err != nil {
			l.Error("Server shutdown error: %v", err)
		}
		l.Info("Server stopped")
	})

	// Blocks until a signal runs the cleanups above.
	l.Info("Starting web server on %s", cfg.Addr)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		l.Error("Server error: %v", err)
		sh.Shutdown()
		os.Exit(1)
	}
	<-sh.Finished()
}
