package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/justinabrahms/hotseatchess/internal/config"
	"github.com/justinabrahms/hotseatchess/internal/console"
	"github.com/justinabrahms/hotseatchess/internal/session"
	"github.com/justinabrahms/hotseatchess/internal/store"
	"github.com/justinabrahms/hotseatchess/internal/watch"
)

func main() {
	var configDir, server, matchID string
	var noColor bool
	flag.StringVar(&configDir, "config", "", "Directory containing config.yaml")
	flag.BoolVar(&noColor, "no-color", false, "Disable colored output")
	flag.StringVar(&server, "watch", "", "Watch a match on a hotseat server, e.g. http://localhost:8080")
	flag.StringVar(&matchID, "match", "", "Match ID to watch")
	flag.Parse()

	if noColor {
		color.NoColor = true
	}

	// the board owns stdout, logs go to stderr
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	var paths []string
	if configDir != "" {
		paths = append(paths, configDir)
	}
	cfg, err := config.Load(paths...)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	level, err := zerolog.ParseLevel(cfg.Development.LogLevel)
	if err != nil || cfg.Development.LogLevel == "" {
		level = zerolog.WarnLevel
	}
	zerolog.SetGlobalLevel(level)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if server != "" {
		if err := spectate(ctx, server, matchID); err != nil {
			log.Fatal().Err(err).Msg("Watch failed")
		}
		return
	}

	saves, err := store.Open(ctx, cfg.Store)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Store.Driver).Msg("Failed to open store")
	}
	defer saves.Close()

	sessions := session.NewManager(
		session.WithStore(saves),
		session.WithLogger(log.Logger),
		session.WithInitialTime(cfg.Match.InitialTime),
		session.WithTickInterval(cfg.Match.TickInterval),
		session.WithAutosave(cfg.Match.Autosave),
	)
	defer sessions.Close()

	repl := console.NewREPL(sessions, color.Output, log.Logger)
	if err := repl.Run(ctx, os.Stdin); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("Console stopped")
	}
}

// spectate draws every update of a remote match until interrupted.
func spectate(ctx context.Context, server, matchID string) error {
	if matchID == "" {
		return errors.New("-match is required with -watch")
	}
	wsURL, err := watch.WatchURL(server, matchID)
	if err != nil {
		return err
	}

	out := color.Output
	client := watch.NewClient(wsURL, func(u watch.Update) error {
		if u.Snapshot == nil {
			fmt.Fprintf(out, "%d watching\n", u.Spectators)
			return nil
		}
		console.Render(out, *u.Snapshot, nil, console.DefaultTheme)
		fmt.Fprintln(out, console.Status(*u.Snapshot))
		return nil
	}, watch.WithLogger(log.Logger))
	client.Start()

	<-ctx.Done()
	return client.Stop()
}
