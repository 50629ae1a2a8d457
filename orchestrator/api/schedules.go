package api

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Vasanthadithya-mundrathi/NACC/orchestrator/dispatch"
	"github.com/Vasanthadithya-mundrathi/NACC/orchestrator/planner"
	"github.com/Vasanthadithya-mundrathi/NACC/orchestrator/schedule"
)

// Dispatch implements schedule.Dispatcher: a fired cron job runs
// through the same plan-then-fan-out path as `POST /commands/execute`.
func (api *Interface) Dispatch(job schedule.Job) {
	ctx := context.Background()
	plan := api.planner.PlanCommand(ctx, job.Command)
	if !plan.Security.Allow {
		log.Println("schedule: job", job.ID, "denied:", plan.Security.Reason)
		return
	}
	dispatch.ExecuteCommand(ctx, api.registry, plan, job.Command.Argv, "")
}

// handleListSchedules implements `GET /schedules`, a supplemental
// endpoint fronting the schedule package (see SPEC_FULL.md §13).
func (api *Interface) handleListSchedules(c *gin.Context) {
	if api.scheduler == nil {
		writeAPIError(c, http.StatusServiceUnavailable, "internal", "scheduler is not configured")
		return
	}
	jobs, err := api.scheduler.List()
	if err != nil {
		writeAPIError(c, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"schedules": jobs})
}

// addScheduleRequest is the wire shape of `POST /schedules`.
type addScheduleRequest struct {
	Cron    string                 `json:"cron"`
	Command planner.CommandRequest `json:"command"`
}

func (api *Interface) handleAddSchedule(c *gin.Context) {
	if api.scheduler == nil {
		writeAPIError(c, http.StatusServiceUnavailable, "internal", "scheduler is not configured")
		return
	}
	var req addScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeAPIError(c, http.StatusBadRequest, "caller_input", "invalid request body: "+err.Error())
		return
	}

	id, err := api.scheduler.Add(schedule.Job{Cron: req.Cron, Command: req.Command})
	if err != nil {
		writeAPIError(c, http.StatusBadRequest, "caller_input", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id})
}

func (api *Interface) handleRemoveSchedule(c *gin.Context) {
	if api.scheduler == nil {
		writeAPIError(c, http.StatusServiceUnavailable, "internal", "scheduler is not configured")
		return
	}
	deleted, err := api.scheduler.Remove(c.Param("id"))
	if err != nil {
		writeAPIError(c, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	if !deleted {
		writeAPIError(c, http.StatusNotFound, "caller_input", "unknown schedule id")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
