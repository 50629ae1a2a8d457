// Package api implements the Orchestrator HTTP API: node inventory and
// health, command execution, cross-node sync, agent probing, and
// backend management. Grounded on the teacher's rest/rest.go
// (RestInterface, route grouping) and original_source/server.go's
// create_app route set.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Vasanthadithya-mundrathi/NACC/orchestrator/audit"
	"github.com/Vasanthadithya-mundrathi/NACC/orchestrator/planner"
	"github.com/Vasanthadithya-mundrathi/NACC/orchestrator/registry"
	"github.com/Vasanthadithya-mundrathi/NACC/orchestrator/schedule"
)

// Interface is the orchestrator's gin-backed HTTP API. It holds the
// long-lived Suite/Registry/Scheduler constructed once at startup, the
// same "hold dependencies on a receiver, not in package globals" shape
// as node.Server.
type Interface struct {
	registry      *registry.Registry
	planner       *planner.Suite
	auditLogger   *audit.Logger
	scheduler     *schedule.Scheduler
	operatorToken string
	router        *gin.Engine
}

// NewInterface builds an Interface and wires every route. The
// scheduler is wired separately via SetScheduler once constructed,
// since schedule.NewScheduler itself needs this Interface as its
// schedule.Dispatcher — the two are mutually dependent at startup.
func NewInterface(reg *registry.Registry, suite *planner.Suite, auditLogger *audit.Logger, operatorToken string) *Interface {
	api := &Interface{
		registry:      reg,
		planner:       suite,
		auditLogger:   auditLogger,
		operatorToken: operatorToken,
		router:        gin.Default(),
	}

	api.router.GET("/healthz", api.handleHealthz)
	api.router.GET("/nodes", api.handleListNodes)
	api.router.GET("/nodes/:id", api.handleGetNode)
	api.router.POST("/nodes/:id/files", api.handleListNodeFiles)
	api.router.POST("/commands/execute", api.handleExecuteCommand)
	api.router.POST("/sync", api.handleSync)
	api.router.POST("/agents/probe", api.handleAgentProbe)
	api.router.GET("/backends", api.handleListBackends)
	api.router.POST("/backends/switch", api.requireOperatorToken, api.handleSwitchBackend)
	api.router.GET("/schedules", api.handleListSchedules)
	api.router.POST("/schedules", api.handleAddSchedule)
	api.router.DELETE("/schedules/:id", api.handleRemoveSchedule)

	return api
}

// SetScheduler wires the recurring-command scheduler in after
// construction. Until called, the /schedules routes report 503.
func (api *Interface) SetScheduler(scheduler *schedule.Scheduler) {
	api.scheduler = scheduler
}

// Router exposes the underlying gin.Engine for the binary's ListenAndServe call.
func (api *Interface) Router() *gin.Engine { return api.router }

func (api *Interface) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// requireOperatorToken gates a route behind a bearer token when one is
// configured, per spec.md §6's "gated behind an operator-only token if
// configured" note on POST /backends/switch.
func (api *Interface) requireOperatorToken(c *gin.Context) {
	if api.operatorToken == "" {
		return
	}
	got := c.GetHeader("Authorization")
	if got != "Bearer "+api.operatorToken {
		writeAPIError(c, http.StatusUnauthorized, "caller_input", "missing or invalid operator token")
		c.Abort()
	}
}

type errorEnvelope struct {
	Error struct {
		Kind    string `json:"kind"`
		Message string `json:"message"`
	} `json:"error"`
}

// writeAPIError writes spec.md §6's `{"error":{"kind":...,"message":...}}`
// envelope.
func writeAPIError(c *gin.Context, status int, kind, message string) {
	var env errorEnvelope
	env.Error.Kind = kind
	env.Error.Message = message
	c.JSON(status, env)
}
