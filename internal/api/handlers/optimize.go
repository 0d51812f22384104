package handlers

import (
	"errors"
	"net/http"
	"time"

	"hybrid-sizing/internal/analysis"
	"hybrid-sizing/internal/api/middleware"
	"hybrid-sizing/internal/api/models"
	"hybrid-sizing/internal/model"
	"hybrid-sizing/internal/optimizer"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EngineSettings bound the work one request may trigger.
type EngineSettings struct {
	Workers            int
	MaxCombinations    int
	CombinationTimeout time.Duration
}

// OptimizeHandler handles optimization requests
type OptimizeHandler struct {
	settings EngineSettings
	presets  *PresetHandler
	logger   *zap.Logger
}

// NewOptimizeHandler creates a new optimize handler
func NewOptimizeHandler(settings EngineSettings, presets *PresetHandler, logger *zap.Logger) *OptimizeHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OptimizeHandler{settings: settings, presets: presets, logger: logger}
}

func errorJSON(c *gin.Context, status int, code, message string, details map[string]interface{}) {
	c.JSON(status, models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// Optimize handles POST /api/v1/optimize
func (h *OptimizeHandler) Optimize(c *gin.Context) {
	var req models.OptimizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorJSON(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
		return
	}

	cfg, err := buildConfig(req.Demand, req.Owners, req.Scenario, h.presets)
	if err != nil {
		errorJSON(c, http.StatusBadRequest, "INVALID_PRESET", err.Error(), nil)
		return
	}
	if err := cfg.Validate(); err != nil {
		errorJSON(c, http.StatusBadRequest, "INVALID_CONFIG", err.Error(), nil)
		return
	}
	in, warnings, err := cfg.Inputs(nil)
	if err != nil {
		errorJSON(c, http.StatusBadRequest, "INVALID_INPUT", err.Error(), nil)
		return
	}

	id := middleware.RequestID(c)
	if id == "" {
		id = uuid.NewString()
	}
	logger := h.logger.With(zap.String("request_id", id))
	for _, w := range warnings {
		logger.Warn("ignoring malformed scenario parameter", zap.Error(w))
	}

	engine := optimizer.New(logger)
	engine.Workers = h.settings.Workers
	engine.MaxCombinations = h.settings.MaxCombinations
	engine.CombinationTimeout = h.settings.CombinationTimeout
	engine.Halve = req.Options.Halve

	ranking, err := engine.Evaluate(c.Request.Context(), in.Owners, in.Demand, in.Scenario)
	switch {
	case errors.Is(err, model.ErrNoCombinations):
		errorJSON(c, http.StatusBadRequest, "NO_COMBINATIONS", "no owner supplied any candidate asset", nil)
		return
	case errors.Is(err, model.ErrDemandCannotBeMet):
		errorJSON(c, http.StatusUnprocessableEntity, "DEMAND_CANNOT_BE_MET",
			"no combination could meet demand under the scenario constraints",
			map[string]interface{}{
				"attempted": ranking.Attempted,
				"failures":  failureDetails(ranking.Failures),
			})
		return
	case errors.Is(err, model.ErrConfiguration):
		errorJSON(c, http.StatusBadRequest, "INVALID_SCENARIO", err.Error(), nil)
		return
	case err != nil:
		logger.Error("optimization failed", zap.Error(err))
		errorJSON(c, http.StatusInternalServerError, "OPTIMIZATION_ERROR", err.Error(), nil)
		return
	}

	resp := models.OptimizeResponse{
		ID:        id,
		Status:    "completed",
		Attempted: ranking.Attempted,
		Failures:  failureDetails(ranking.Failures),
	}
	for _, w := range warnings {
		resp.Warnings = append(resp.Warnings, w.Error())
	}
	for i, r := range analysis.Top(ranking.Results, req.Options.Top) {
		resp.Results = append(resp.Results, rankedResult(i+1, r, req.Options.IncludeTraces))
	}
	c.JSON(http.StatusOK, resp)
}

func failureDetails(failures []optimizer.Failure) []models.FailureDetail {
	out := make([]models.FailureDetail, 0, len(failures))
	for _, f := range failures {
		out = append(out, models.FailureDetail{Combination: f.Key.String(), Reason: f.Err.Error()})
	}
	return out
}
