package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/therealchjones/plex-admin/internal"

	"github.com/gin-gonic/gin"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config.yml (or set "+internal.ConfigPathEnvVar+")")
	flag.Parse()

	configPath = internal.ResolveConfigPath(configPath)
	cfg, err := internal.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "plexadmin: %v\n", err)
		os.Exit(1)
	}
	if err := internal.InitLogging(cfg.Log); err != nil {
		fmt.Fprintf(os.Stderr, "plexadmin: %v\n", err)
		os.Exit(1)
	}
	if configPath == "" {
		internal.DashLog(internal.INFO, "Startup", "No config file; using defaults and environment")
	} else {
		internal.DashLog(internal.INFO, "Startup", "Loaded config from %s", configPath)
	}
	internal.DashLog(internal.INFO, "Startup", "Proxy endpoint: %s", cfg.Proxy.BaseURL)

	gin.DefaultWriter = os.Stdout
	gin.DefaultErrorWriter = os.Stderr
	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	dash := internal.NewDashboard(cfg, nil)
	internal.RegisterRoutes(r, dash, configPath)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		internal.DashLog(internal.INFO, "Startup", "Listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-done:
	case err := <-errCh:
		internal.DashLog(internal.ERROR, "Startup", "Listen failed: %v", err)
		os.Exit(1)
	}
	internal.DashLog(internal.INFO, "Shutdown", "Shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		internal.DashLog(internal.WARN, "Shutdown", "Graceful shutdown failed: %v", err)
		_ = srv.Close()
	}
	internal.DashLog(internal.INFO, "Shutdown", "Server stopped")
}
