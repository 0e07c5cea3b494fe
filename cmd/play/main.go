package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/user/frontline-missions/config"
	"github.com/user/frontline-missions/internal/game"
	"github.com/user/frontline-missions/internal/logger"
	"github.com/user/frontline-missions/internal/narrative"
	"github.com/user/frontline-missions/internal/storage"
	"github.com/user/frontline-missions/internal/tui"
)

func main() {
	configPath := flag.String("config", "./config/config.json", "Path to configuration file")
	sessionID := flag.String("session", "local", "Session to play")
	logPath := flag.String("log", "./data/play.log", "Log file")
	flag.Parse()

	if err := run(*configPath, *sessionID, *logPath); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, sessionID, logPath string) error {
	ctx := context.Background()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		return fmt.Errorf("creating log directory: %w", err)
	}
	log, err := logger.New(cfg.Server.LogLevel, "json", logPath)
	if err != nil {
		return err
	}
	defer log.Sync()

	stores, err := storage.Open(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer stores.Close()

	generator, err := narrative.NewGenerator(ctx, cfg.Generator, log)
	if err != nil {
		return err
	}
	if closer, ok := generator.(interface{ Close() error }); ok {
		defer closer.Close()
	}
	narrator := narrative.NewNarrator(generator, time.Duration(cfg.Generator.TimeoutSeconds)*time.Second, nil, log)

	games, err := game.NewGameManager(cfg, stores.Sessions, stores.Archive, narrator, log)
	if err != nil {
		return err
	}

	return tui.Run(games, sessionID)
}

