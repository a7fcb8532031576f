// Entry point for the chatgrab extraction service: chi HTTP API, optional
// MCP stdio transport, optional SQLite persistence.
package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/chatgrab/service"
	"github.com/hazyhaar/chatgrab/store"
)

func main() {
	configPath := env("CONFIG", "")
	logLevel := env("LOG_LEVEL", "info")
	mcpTransport := env("MCP_TRANSPORT", "")

	// Logging.
	var lvl slog.Level
	switch logLevel {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	// MCP stdio owns stdout; logs go to stderr either way.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)

	// Configuration: YAML file when given, env overrides on top.
	cfg := service.Default()
	if configPath != "" {
		loaded, err := service.LoadFile(configPath)
		if err != nil {
			slog.Error("config", "error", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if v := os.Getenv("LISTEN"); v != "" {
		cfg.Listen = v
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("CHROME_URL"); v != "" {
		cfg.Browser.RemoteURL = v
	}
	if mcpTransport == "stdio" {
		cfg.MCP = true
	}

	// Signal context.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Persistence.
	var db *sql.DB
	if cfg.DBPath != "" {
		var err error
		db, err = store.Open(cfg.DBPath)
		if err != nil {
			slog.Error("store", "error", err)
			os.Exit(1)
		}
		defer db.Close()
	}

	svc := service.New(cfg, db, logger)
	defer svc.Close()
	svc.StartBackground(ctx.Done())

	// Optional MCP over stdio.
	if cfg.MCP {
		mcpSrv := mcp.NewServer(&mcp.Implementation{
			Name:    "chatgrab",
			Version: "1.0.0",
		}, nil)
		svc.RegisterMCP(mcpSrv)

		go func() {
			slog.Info("mcp stdio starting")
			if err := mcpSrv.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
				slog.Error("mcp", "error", err)
			}
		}()
	}

	// HTTP server.
	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           svc.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", cfg.Listen)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown", "error", err)
	}
	slog.Info("server stopped")
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
