package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	cli "github.com/spf13/pflag"

	"github.com/lmittmann/tint"
	log "log/slog"

	"nova/internal/config"
	"nova/internal/hub"
	"nova/internal/server"
	"nova/internal/store"
	"nova/internal/twitch"
)

var logLevelMap = map[string]log.Level{
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

func main() {
	configPath := cli.StringP("config", "c", "nova.yaml", "Server config file")
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	listen := cli.StringP("listen", "a", "", "Listen address, overrides config and PORT")
	logLevel := cli.StringP("log", "l", "info", "Log level")
	cli.Parse()

	log.SetDefault(log.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level: logLevelMap[*logLevel],
	})))

	godotenv.Load(*envFile)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("Failed to load config", "path", *configPath, "err", err)
		os.Exit(1)
	}
	if port := os.Getenv("PORT"); port != "" {
		cfg.Listen = ":" + port
	}
	if *listen != "" {
		cfg.Listen = *listen
	}

	log.Debug("Loaded config", "path", *configPath, "data_dir", cfg.DataDir)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logs := store.OpenLogStore(cfg.LogPath())
	defer logs.Close()

	events := store.OpenEventStore(cfg.CalendarPath(), cfg.ScriptAgents)

	lookup := twitch.NewLookup(nil, nil)
	if tw, err := config.LoadTwitch(cfg.TwitchConfig); err != nil {
		log.Warn("Twitch lookup disabled", "path", cfg.TwitchConfig, "err", err)
	} else {
		lookup.Reconfigure(tw)
		log.Debug("Loaded twitch config", "channels", len(tw.Channels))
	}
	if err := config.WatchTwitch(ctx, cfg.TwitchConfig, lookup.Reconfigure); err != nil {
		log.Warn("Twitch config will not be reloaded", "err", err)
	}

	resync, err := server.StartResync(cfg.Resync, events)
	if err != nil {
		log.Error("Bad resync schedule", "spec", cfg.Resync, "err", err)
		os.Exit(1)
	}
	defer resync.Stop()

	srv := server.New(server.Deps{
		Logs:      logs,
		Events:    events,
		Status:    store.NewStatusRegister(),
		Hub:       hub.New(),
		Streams:   lookup,
		PublicDir: cfg.PublicDir,
	})

	if err := srv.Run(ctx, cfg.Listen); err != nil {
		log.Error("Server stopped", "err", err)
		os.Exit(1)
	}

	if events.Dirty() {
		if err := events.Resync(); err != nil {
			log.Error("Calendar file left out of date", "err", err)
		}
	}

	log.Info("Bye")
}
