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

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver for the WhatsApp device store
	"go.uber.org/zap"

	"github.com/user/frontline-missions/config"
	"github.com/user/frontline-missions/internal/game"
	"github.com/user/frontline-missions/internal/logger"
	"github.com/user/frontline-missions/internal/narrative"
	"github.com/user/frontline-missions/internal/server"
	"github.com/user/frontline-missions/internal/storage"
	"github.com/user/frontline-missions/internal/whatsapp"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "./config/config.json", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Set up logger
	log, err := logger.New(cfg.Server.LogLevel, cfg.Server.LogEncoding)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Open session store and narrative archive
	stores, err := storage.Open(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to open stores", zap.Error(err))
	}
	defer stores.Close()

	// Narrative generator, nil falls back to canned text
	generator, err := narrative.NewGenerator(ctx, cfg.Generator, log)
	if err != nil {
		log.Fatal("Failed to create narrative generator", zap.Error(err))
	}
	if closer, ok := generator.(interface{ Close() error }); ok {
		defer closer.Close()
	}
	timeout := time.Duration(cfg.Generator.TimeoutSeconds) * time.Second
	narrator := narrative.NewNarrator(generator, timeout, nil, log)

	// Initialize game manager
	gameManager, err := game.NewGameManager(cfg, stores.Sessions, stores.Archive, narrator, log)
	if err != nil {
		log.Fatal("Failed to create game manager", zap.Error(err))
	}

	var opts []server.Option
	var clientManager *whatsapp.ClientManager
	if cfg.WhatsApp.Enabled {
		// Restores paired devices on creation
		clientManager = whatsapp.NewClientManager(gameManager, cfg, log)
		sessionManager := whatsapp.NewSessionManager(cfg.WhatsApp.StoreDir, log)
		qrManager := whatsapp.NewQRCodeManager(clientManager, sessionManager, cfg, log)
		opts = append(opts, server.WithWhatsApp(qrManager, sessionManager, clientManager))
	}

	httpServer := server.New(gameManager, log, opts...).HTTPServer(cfg.Server.Port)

	// Start HTTP server
	go func() {
		log.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server stopped", zap.Error(err))
			stop()
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("Failed to shut down HTTP server", zap.Error(err))
	}
	if clientManager != nil {
		clientManager.DisconnectAll()
	}
}
