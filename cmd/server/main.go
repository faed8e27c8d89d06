package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/justinabrahms/hotseatchess/internal/config"
	"github.com/justinabrahms/hotseatchess/internal/session"
	"github.com/justinabrahms/hotseatchess/internal/store"
	"github.com/justinabrahms/hotseatchess/internal/web"
)

func main() {
	var showHelp bool
	var configDir string
	flag.BoolVar(&showHelp, "help", false, "Show help information")
	flag.BoolVar(&showHelp, "h", false, "Show help information")
	flag.StringVar(&configDir, "config", "", "Directory containing config.yaml")
	flag.Parse()

	if showHelp {
		showHelpMessage()
		return
	}

	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

	var paths []string
	if configDir != "" {
		paths = append(paths, configDir)
	}
	cfg, err := config.Load(paths...)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	setupLogging(cfg.Development)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	saves, err := store.Open(ctx, cfg.Store)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Store.Driver).Msg("Failed to open store")
	}
	defer saves.Close()

	hub := web.NewHub()
	go hub.Run(ctx)

	sessions := session.NewManager(
		session.WithStore(saves),
		session.WithLogger(log.Logger),
		session.WithInitialTime(cfg.Match.InitialTime),
		session.WithTickInterval(cfg.Match.TickInterval),
		session.WithAutosave(cfg.Match.Autosave),
		session.WithListener(hub.HandleEvent),
	)
	defer sessions.Close()

	if cfg.Match.Autosave {
		if id, ok, err := sessions.Resume(ctx); err != nil {
			log.Warn().Err(err).Msg("Could not resume autosave")
		} else if ok {
			log.Info().Str("matchID", id).Msg("Resumed autosaved match")
		}
	}

	service := web.NewService(sessions, hub, cfg)
	router := mux.NewRouter()

	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	})
	service.Routes(router)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("store", cfg.Store.Driver).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

func setupLogging(dev config.DevelopmentConfig) {
	level, err := zerolog.ParseLevel(dev.LogLevel)
	if err != nil || dev.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	if dev.Debug {
		level = zerolog.DebugLevel
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
	zerolog.SetGlobalLevel(level)
}

func showHelpMessage() {
	fmt.Println(`Hot-seat chess server

DESCRIPTION:
    Runs two-player chess matches on one board and serves them over HTTP.
    Every match has a running clock; watchers follow matches over WebSocket.
    Saved matches go to memory, Redis or PostgreSQL.

USAGE:
    hotseat-server [OPTIONS]

OPTIONS:
    -h, --help       Show this help message
    -config DIR      Read config.yaml from DIR

CONFIGURATION:
    config.yaml is read from the current directory or ./config, and every key
    can be overridden with a HOTSEAT_ environment variable
    (HOTSEAT_STORE_DRIVER=redis, HOTSEAT_SERVER_PORT=9000, ...).

    Example config.yaml:
        server:
          host: localhost
          port: 8080
        match:
          initial_time: 1h
          tick_interval: 1s
          autosave: true
        store:
          driver: redis            # memory, redis or postgres
          redis_url: redis://localhost:6379/0
          ttl: 720h
        development:
          debug: true
          log_level: debug

API ENDPOINTS:
    GET    /api/health                      - Service health check
    POST   /api/matches                     - Start a match
    GET    /api/matches                     - List live matches
    GET    /api/matches/{id}                - Match snapshot
    GET    /api/matches/{id}/select?square= - Legal destinations of a piece
    POST   /api/matches/{id}/moves          - Play a move
    POST   /api/matches/{id}/promotion      - Choose the promotion piece
    POST   /api/matches/{id}/draw/offer     - Offer a draw
    POST   /api/matches/{id}/draw/accept    - Accept the draw
    POST   /api/matches/{id}/resign         - Resign
    POST   /api/matches/{id}/reset          - Start over
    GET    /api/matches/{id}/state          - Encoded match
    PUT    /api/matches/{id}/state          - Replace with an encoded match
    POST   /api/matches/{id}/save           - Save under a name
    GET    /api/saves                       - List saves
    POST   /api/saves/{name}/load           - Load a save as a new match
    DELETE /api/saves/{name}                - Delete a save
    GET    /ws?matchId=                     - Live updates

EXAMPLES:
    curl -X POST http://localhost:8080/api/matches
    curl -X POST http://localhost:8080/api/matches/$ID/moves \
      -H "Content-Type: application/json" \
      -d '{"from": "e2", "to": "e4"}'`)
}
