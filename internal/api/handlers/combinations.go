package handlers

import (
	"net/http"

	"hybrid-sizing/internal/api/models"
	"hybrid-sizing/internal/optimizer"

	"github.com/gin-gonic/gin"
)

// CombinationsHandler previews combination enumeration.
type CombinationsHandler struct {
	presets *PresetHandler
}

func NewCombinationsHandler(presets *PresetHandler) *CombinationsHandler {
	return &CombinationsHandler{presets: presets}
}

// ListCombinations handles POST /api/v1/combinations
func (h *CombinationsHandler) ListCombinations(c *gin.Context) {
	var req models.CombinationsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorJSON(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
		return
	}

	// Profiles are not needed to enumerate, so a placeholder demand keeps Inputs happy.
	cfg, err := buildConfig(models.DemandInput{Values: []float64{0}}, req.Owners, models.ScenarioInput{}, h.presets)
	if err != nil {
		errorJSON(c, http.StatusBadRequest, "INVALID_PRESET", err.Error(), nil)
		return
	}
	in, _, err := cfg.Inputs(nil)
	if err != nil {
		errorJSON(c, http.StatusBadRequest, "INVALID_INPUT", err.Error(), nil)
		return
	}

	combos := optimizer.Enumerate(in.Owners)
	if len(combos) == 0 {
		errorJSON(c, http.StatusBadRequest, "NO_COMBINATIONS", "no owner supplied any candidate asset", nil)
		return
	}
	resp := models.CombinationsResponse{Count: len(combos)}
	for _, cb := range combos {
		resp.Combinations = append(resp.Combinations, combinationInfo(cb.ID))
	}
	c.JSON(http.StatusOK, resp)
}
