package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"hybrid-sizing/internal/api"
	"hybrid-sizing/internal/api/handlers"
	"hybrid-sizing/internal/config"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfgPath := flag.String("config", os.Getenv("SIZING_CONFIG"), "Optional YAML server settings")
	flag.Parse()

	settings, err := config.LoadServerSettings(*cfgPath)
	if err != nil {
		log.Fatalf("Failed to load server settings: %v", err)
	}
	logger, err := config.NewLogger(settings.Logging(), "")
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	if settings.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := api.NewRouter(api.Options{
		Engine: handlers.EngineSettings{
			Workers:            settings.Workers,
			MaxCombinations:    settings.MaxCombinations,
			CombinationTimeout: settings.CombinationTimeout,
		},
		AllowedOrigins: settings.AllowedOrigins,
		Logger:         logger,
	})

	addr := fmt.Sprintf(":%s", settings.Port)
	logger.Info("starting API server",
		zap.String("addr", addr),
		zap.String("env", settings.Env),
		zap.Int("workers", settings.Workers))
	if err := router.Run(addr); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
