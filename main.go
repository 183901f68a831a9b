package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"growth.service/config"
	c "growth.service/core"
	"growth.service/logger"
)

const defaultConfigPath = "config.yaml"

func main() {
	// initialize context and signal handler, listen for interrupt and term signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// load in environment variables from .env file, logged once the logger exists
	envErr := godotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = defaultConfigPath
	}

	cfg, err := config.Load(configPath)
	if err == nil {
		err = cfg.Validate()
	}

	env := "development"
	if cfg != nil {
		env = cfg.Env
	}
	logger.Init(env)
	defer logger.Sync()
	log := logger.Get()

	if envErr != nil {
		log.Infof(".env not loaded: %v", envErr)
	}
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	marketData, err := c.GetMarketData(cfg)
	if err != nil {
		log.Fatalf("Failed to build market data client: %v", err)
	}

	// optional raw price cache
	store, err := c.OpenPriceStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open price cache: %v", err)
	}
	if store != nil {
		defer store.Close()
	}

	sc := c.NewServiceContext(cfg, marketData, store)

	// get http server, makes all of the endpoints and routes
	s := c.GetHttpServer(sc)

	// start http server in goroutine
	go func() {
		log.Infof("Starting growth server on %s using %s", s.Addr, marketData.Name())
		if err := s.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// wait here until the context is closed (ie, ctrl+C)
	<-ctx.Done()
	log.Info("Received shutdown signal, shutting down gracefully...")

	// this gives the server 10 seconds to shutdown gracefully
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := s.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Server shutdown error: %v", err)
	}

	log.Info("Server stopped successfully")
}
