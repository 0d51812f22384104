// Package api wires the HTTP handlers and middleware into a gin router.
package api

import (
	"net/http"

	"hybrid-sizing/internal/api/handlers"
	"hybrid-sizing/internal/api/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Options configure NewRouter.
type Options struct {
	Engine         handlers.EngineSettings
	PresetDir      string
	AllowedOrigins []string
	Logger         *zap.Logger
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(opts Options) *gin.Engine {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(middleware.Logger(logger))
	router.Use(middleware.ErrorHandler(logger))
	router.Use(middleware.CORS(opts.AllowedOrigins))

	presets := handlers.NewPresetHandler(opts.PresetDir, logger)
	optimize := handlers.NewOptimizeHandler(opts.Engine, presets, logger)
	combinations := handlers.NewCombinationsHandler(presets)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	{
		v1.POST("/optimize", optimize.Optimize)
		v1.POST("/combinations", combinations.ListCombinations)
		v1.GET("/storage-presets", presets.ListPresets)
		v1.GET("/scenario/defaults", handlers.ScenarioDefaults)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"code": "NOT_FOUND", "message": "Not found"}})
	})
	return router
}
