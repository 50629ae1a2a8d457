package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Vasanthadithya-mundrathi/NACC/orchestrator/dispatch"
)

// syncRequest is the wire shape of `POST /sync`.
type syncRequest struct {
	SourceNode   string   `json:"source_node"`
	TargetNodes  []string `json:"target_nodes"`
	Path         string   `json:"path"`
	StrategyHint string   `json:"strategy_hint"`
}

// handleSync implements `POST /sync`: plans the sync strategy via the
// Sync stage, then converges each target's directory tree with the
// source's via CrossNodeSync, per spec.md §3/§4.1's Mirror/Append
// transfer semantics.
func (api *Interface) handleSync(c *gin.Context) {
	var req syncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeAPIError(c, http.StatusBadRequest, "caller_input", "invalid request body: "+err.Error())
		return
	}
	if req.SourceNode == "" || len(req.TargetNodes) == 0 || req.Path == "" {
		writeAPIError(c, http.StatusBadRequest, "caller_input", "source_node, target_nodes, and path are required")
		return
	}

	plan, err := api.planner.PlanSync(c.Request.Context(), req.SourceNode, req.TargetNodes, req.StrategyHint)
	if err != nil {
		writeAPIError(c, http.StatusBadRequest, "caller_input", err.Error())
		return
	}

	reports, err := dispatch.CrossNodeSync(c.Request.Context(), api.registry, plan, req.Path, api.auditLogger)
	if err != nil {
		writeAPIError(c, http.StatusBadGateway, "node_unavailable", err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"plan":    plan,
		"reports": reports,
	})
}
