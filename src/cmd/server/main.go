//go:build !test

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"memory-gateway/src/internal/api"
	"memory-gateway/src/internal/config"
	"memory-gateway/src/internal/gateway"
	"memory-gateway/src/internal/storage"

	"github.com/gin-gonic/gin"
)

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func main() {
	var configFile, exportPath string
	flag.StringVar(&configFile, "config", "", "path to config file to load first")
	flag.StringVar(&exportPath, "export", "", "write the configured seed to this path (.json, .yaml, .msgpack, .db) and exit")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))
	cfg, err := config.Load(configFile)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(newLogger(cfg.Logging))
	if !strings.EqualFold(cfg.Logging.Level, "debug") {
		gin.SetMode(gin.ReleaseMode)
	}

	s, err := storage.New(cfg.StorageDir)
	if err != nil {
		slog.Error("failed to initialize storage", "error", err)
		os.Exit(1)
	}

	gw, err := gateway.New(cfg, s)
	if err != nil {
		slog.Error("failed to load memory store", "error", err)
		os.Exit(1)
	}

	if exportPath != "" {
		st := gw.Store()
		ds := storage.Dataset{Taxonomy: st.Taxonomy().Name, Records: st.AllRecords()}
		if err := storage.WriteDataset(exportPath, ds); err != nil {
			slog.Error("failed to export seed", "path", exportPath, "error", err)
			os.Exit(1)
		}
		slog.Info("exported seed", "path", exportPath, "records", len(ds.Records))
		return
	}

	// PID file management
	pidPath := filepath.Join(cfg.StorageDir, "memory-gateway.pid")

	// Check if already running
	if pidBytes, err := os.ReadFile(pidPath); err == nil {
		pidStr := strings.TrimSpace(string(pidBytes))
		if pid, err := strconv.Atoi(pidStr); err == nil && pid > 0 {
			if syscall.Kill(pid, 0) == nil {
				slog.Error("memory gateway already running", "pid", pid, "pidfile", pidPath)
				os.Exit(1)
			}
			if err := os.Remove(pidPath); err != nil {
				slog.Warn("failed to remove stale pidfile", "path", pidPath, "error", err)
			} else {
				slog.Info("cleaned stale pidfile", "pid", pid)
			}
		}
	}

	if err := os.WriteFile(pidPath, []byte(fmt.Sprintf("%d\n", os.Getpid())), 0644); err != nil {
		slog.Error("failed to write pidfile", "path", pidPath, "error", err)
		os.Exit(1)
	}
	defer func(name string) {
		if err := os.Remove(name); err != nil {
			slog.Error("failed to remove pidfile", "path", name, "error", err)
		}
	}(pidPath)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gw.Start()
	server := api.NewServer(gw)

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	slog.Info("starting memory gateway",
		"addr", cfg.Server.Addr,
		"taxonomy", gw.Taxonomy().Name,
		"mode", cfg.Retrieval.Mode,
		"records", gw.Store().Len(),
	)
	if err := server.ListenAndServe(ctx, cfg.Server.Addr); err != nil {
		slog.Error("server ListenAndServe failed", "error", err)
		os.Exit(1)
	}
}
