package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Vasanthadithya-mundrathi/NACC/orchestrator/dispatch"
	"github.com/Vasanthadithya-mundrathi/NACC/orchestrator/planner"
)

// executeCommandRequest is the wire shape of `POST /commands/execute`.
type executeCommandRequest struct {
	Description   string            `json:"description"`
	Argv          []string          `json:"argv"`
	Cwd           string            `json:"cwd"`
	PreferredTags []string          `json:"preferred_tags"`
	Parallelism   int               `json:"parallelism"`
	TimeoutHint   float64           `json:"timeout_hint"`
	EnvOverrides  map[string]string `json:"env_overrides"`
}

// handleExecuteCommand implements `POST /commands/execute`: plans via
// the four-stage agent pipeline, then — unless the Security stage
// denied the request — fans the command out to every selected node.
// Per spec.md §7, the caller always receives a complete ExecutionPlan,
// even for a deny, so clients never need to special-case a partial
// failure as a 500.
func (api *Interface) handleExecuteCommand(c *gin.Context) {
	var req executeCommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeAPIError(c, http.StatusBadRequest, "caller_input", "invalid request body: "+err.Error())
		return
	}
	if len(req.Argv) == 0 {
		writeAPIError(c, http.StatusBadRequest, "caller_input", "argv must not be empty")
		return
	}
	if req.Parallelism <= 0 {
		req.Parallelism = 1
	}

	plan := api.planner.PlanCommand(c.Request.Context(), planner.CommandRequest{
		Description:   req.Description,
		Argv:          req.Argv,
		PreferredTags: req.PreferredTags,
		Parallelism:   req.Parallelism,
		TimeoutHint:   req.TimeoutHint,
		EnvOverrides:  req.EnvOverrides,
	})

	if !plan.Security.Allow {
		c.JSON(http.StatusOK, gin.H{"plan": plan, "results": []any{}})
		return
	}

	results := dispatch.ExecuteCommand(c.Request.Context(), api.registry, plan, req.Argv, req.Cwd)
	c.JSON(http.StatusOK, gin.H{"plan": plan, "results": results})
}
