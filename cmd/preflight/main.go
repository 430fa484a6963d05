package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/infraguard/preflight/internal/auth"
	"github.com/infraguard/preflight/internal/config"
	"github.com/infraguard/preflight/internal/diagnostics"
	"github.com/infraguard/preflight/internal/httpapi"
	"github.com/infraguard/preflight/internal/probe"
	"github.com/infraguard/preflight/internal/probes"
	"github.com/infraguard/preflight/internal/ratelimit"
)

// version is set via -ldflags "-X main.version=..." at build time.
var version = "dev"

func main() {
	root := &cobra.Command{
		Use:   "preflight",
		Short: "Pre-flight dependency validation and diagnostics service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	}
	root.AddCommand(newServeCmd())
	root.AddCommand(newVersionCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the service version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println(version)
			return nil
		},
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	}
}

func serve() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger, err := buildLogger(cfg.Server.LogLevel, cfg.Server.LogFormat)
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	registry := probe.NewRegistry(probes.BuildAll(cfg, "default")...)
	runner := probe.NewRunner(cfg.Server.WorkerConcurrency, sugar)
	collector := diagnostics.NewCollector(cfg.Diagnostics, sugar)
	authenticator := auth.New(cfg.Auth)
	loginLimiter := ratelimit.New()

	server := httpapi.NewServer(httpapi.Deps{
		Registry:       registry,
		Runner:         runner,
		Collector:      collector,
		Authenticator:  authenticator,
		LoginLimiter:   loginLimiter,
		Logger:         sugar,
		Version:        version,
		StaticDir:      "static",
		DefaultTimeout: 60 * time.Second,
	})

	// Every request context (and so every probe context derived from it)
	// descends from baseCtx, which is cancelled once Shutdown begins.
	baseCtx, cancelProbes := context.WithCancel(context.Background())
	defer cancelProbes()

	httpServer := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        server.Router(),
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   30 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
		BaseContext:    func(net.Listener) context.Context { return baseCtx },
	}
	httpServer.RegisterOnShutdown(cancelProbes)

	sugar.Infof("starting preflight service on port %d", cfg.Server.Port)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sugar.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	sugar.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		sugar.Errorf("forced shutdown: %v", err)
		return err
	}
	return nil
}

func buildLogger(level, format string) (*zap.Logger, error) {
	var cfg zap.Config
	if format == "json" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}
	zapLevel, err := zap.ParseAtomicLevel(level)
	if err != nil {
		zapLevel = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	cfg.Level = zapLevel
	return cfg.Build()
}
