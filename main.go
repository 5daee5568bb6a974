package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/joho/godotenv"

	"github.com/bytebloom/starfall/config"
	"github.com/bytebloom/starfall/game"
	"github.com/bytebloom/starfall/handlers"
	"github.com/bytebloom/starfall/observe"
	"github.com/bytebloom/starfall/persistence"
)

func main() {
	os.Exit(run())
}

func run() int {
	// .env is optional; a missing file is the normal case in production.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "starfall: load .env: %v\n", err)
	}

	configPath := flag.String("config", envOr("STARFALL_CONFIG", "starfall.yaml"), "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "starfall: %v\n", err)
		return 1
	}
	config.ApplyEnv(cfg)

	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	met, err := observe.New()
	if err != nil {
		logger.Error("metrics init failed", "err", err)
		return 1
	}
	defer met.Shutdown()

	var store *persistence.Store
	if cfg.Persistence.Path != "" {
		store, err = persistence.Open(cfg.Persistence.Path)
		if err != nil {
			logger.Error("persistence unavailable, running in-memory only", "err", err)
			store = nil
		} else {
			defer store.Close()
		}
	}

	world := game.New(cfg, logger, met)
	router := handlers.NewRouter(world, logger, met)
	wsHandler := handlers.NewHandler(world, router, store, cfg, logger, met)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/", wsHandler.HandleInfo)
	r.Get("/ws", wsHandler.HandleWebSocket)
	r.Handle("/metrics", met.Handler())
	if cfg.Server.StaticDir != "" {
		fileServer := http.FileServer(http.Dir(cfg.Server.StaticDir))
		r.Handle("/static/*", http.StripPrefix("/static/", fileServer))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	scheduler := game.NewScheduler(world, cfg.World.TickInterval, nil)
	go scheduler.Run(ctx)
	if store != nil {
		go runSaver(ctx, world, store, cfg.Persistence.SaveInterval, logger)
	}

	srv := &http.Server{Addr: cfg.Server.ListenAddr, Handler: r}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("starfall listening",
			"addr", cfg.Server.ListenAddr,
			"realms", cfg.World.Realms,
			"tick", cfg.World.TickInterval.String())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		logger.Error("server failed", "err", err)
		return 1
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "err", err)
	}

	if store != nil {
		flushPlayers(world, store, logger)
	}
	world.CloseAll()
	return 0
}

// runSaver flushes every connected player on the configured interval. A
// failed write is logged and simply retried on the next pass.
func runSaver(ctx context.Context, world *game.World, store *persistence.Store, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			flushPlayers(world, store, logger)
		}
	}
}

func flushPlayers(world *game.World, store *persistence.Store, logger *slog.Logger) {
	for _, p := range world.SaveSnapshot() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := store.UpdatePlayer(ctx, persistence.PlayerData{
			ID:       p.ID,
			Name:     p.Name,
			XP:       p.XP,
			Hue:      p.Hue,
			LastSeen: p.LastSeen,
		})
		cancel()
		if err != nil {
			logger.Error("periodic save failed", "player", p.ID, "err", err)
		}
	}
}

func newLogger(level config.LogLevel) *slog.Logger {
	var l slog.Level
	switch level {
	case config.LogDebug:
		l = slog.LevelDebug
	case config.LogWarn:
		l = slog.LevelWarn
	case config.LogError:
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
