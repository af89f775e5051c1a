package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"tombola/api"
	"tombola/config"
	"tombola/loghandler"
	"tombola/registry"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Print("No .env file found; using environment variables and config defaults.")
	}

	configPath := "tombola.conf"
	if v := os.Getenv("TOMBOLA_CONFIG"); v != "" {
		configPath = v
	}
	for i, arg := range os.Args {
		if arg == "-config" && i+1 < len(os.Args) {
			configPath = os.Args[i+1]
		}
	}

	cfg := config.Load(configPath)

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	gamesDir := filepath.Join("data", "games")
	if v := os.Getenv("TOMBOLA_GAMES_DIR"); v != "" {
		gamesDir = v
	}

	directory := registry.NewClientDirectory()
	games := registry.NewGameRegistry()
	handler := api.NewHandler(directory, games, gamesDir, logger)
	mux := api.NewMux(handler)

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	logger.Info("tombola server starting", "addr", addr, "games_dir", gamesDir, "logging", cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info("shutting down")
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

// newLogger builds the slog.Logger the rest of the server uses, per
// spec.md section 6.5's three-way "console"/"file"/"both" switch.
func newLogger(cfg *config.Config) *slog.Logger {
	if cfg.Logging == "console" || cfg.Logging == "" {
		return slog.New(loghandler.NewCompactHandler(os.Stderr, slog.LevelInfo))
	}

	if err := os.MkdirAll(cfg.LogPath, 0o755); err != nil {
		log.Printf("config: could not create log directory %s: %v; logging to stderr", cfg.LogPath, err)
		return slog.New(loghandler.NewCompactHandler(os.Stderr, slog.LevelInfo))
	}
	path := filepath.Join(cfg.LogPath, "tombola.log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		log.Printf("config: could not open log file %s: %v; logging to stderr", path, err)
		return slog.New(loghandler.NewCompactHandler(os.Stderr, slog.LevelInfo))
	}

	var w io.Writer = f
	if cfg.Logging == "both" {
		w = io.MultiWriter(os.Stderr, f)
	}
	return slog.New(loghandler.NewCompactHandler(w, slog.LevelInfo))
}
