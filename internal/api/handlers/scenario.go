package handlers

import (
	"net/http"

	"hybrid-sizing/internal/api/models"
	"hybrid-sizing/internal/model"

	"github.com/gin-gonic/gin"
)

// ScenarioDefaults handles GET /api/v1/scenario/defaults
func ScenarioDefaults(c *gin.Context) {
	d := model.DefaultScenario()
	params := []models.ParameterInfo{
		{Name: "offset_target", Type: "float", Description: "Minimum share of demand met by renewables (0-1)", Default: d.OffsetTarget},
		{Name: "depth_of_discharge", Type: "float", Description: "Storage depth of discharge used when an asset omits its own (0-1)", Default: d.DepthOfDischarge},
		{Name: "curtailment_resale_fraction", Type: "float", Description: "Share of curtailed energy that can be resold (0-1)", Default: d.CurtailmentResaleFraction},
		{Name: "curtailment_resale_price", Type: "float", Description: "Resale price of curtailed energy per MWh", Default: d.CurtailmentResalePrice},
		{Name: "annual_curtailment_limit", Type: "float", Description: "Curtailment cap as a share of available generation, enforced under the aggregated policy", Default: d.AnnualCurtailmentLimit},
		{Name: "peak_target", Type: "float", Description: "Minimum share of peak-hour demand met (0-1 or 0-100)"},
		{Name: "peak_hours", Type: "int[]", Description: "Hours of day (0-23) treated as peak"},
		{Name: "peak_penalty", Type: "float", Description: "Objective penalty per MWh of unmet peak demand", Default: d.PeakPenalty},
		{Name: "monthly_targets", Type: "float[]", Description: "Per-month fulfillment targets; 1 value is applied to every month, otherwise 12"},
		{Name: "transmission_capacity_mw", Type: "float", Description: "Cap on net injection to the bus, 0 for none"},
		{Name: "fixed_cost_adder", Type: "float", Description: "External cost per MWh added to the landed cost"},
		{Name: "curtailment_policy", Type: "string", Description: "sizing reports curtailment, aggregated caps it", Default: string(d.CurtailmentPolicy)},
		{Name: "storage_energy_limit", Type: "string", Description: "hard bounds state of charge by max_hours, informational only reports it", Default: string(d.StorageEnergyLimit)},
		{Name: "unmet_demand_cost", Type: "float", Description: "Objective cost per MWh of unmet demand"},
		{Name: "unmet_demand_capacity_mw", Type: "float", Description: "Capacity of the unmet-demand slack generator", Default: d.UnmetDemandCapacityMW},
	}
	c.JSON(http.StatusOK, gin.H{"parameters": params})
}
