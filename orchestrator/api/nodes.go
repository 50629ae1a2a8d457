package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Vasanthadithya-mundrathi/NACC/node"
	"github.com/Vasanthadithya-mundrathi/NACC/orchestrator/audit"
)

// handleListNodes implements `GET /nodes`.
func (api *Interface) handleListNodes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"nodes": api.registry.Snapshot()})
}

// handleGetNode implements `GET /nodes/{id}`.
func (api *Interface) handleGetNode(c *gin.Context) {
	nodeID := c.Param("id")
	if _, ok := api.registry.Definition(nodeID); !ok {
		writeAPIError(c, http.StatusNotFound, "caller_input", "unknown node_id: "+nodeID)
		return
	}

	state := api.registry.RefreshStatus(c.Request.Context(), nodeID)
	c.JSON(http.StatusOK, state)
}

// handleListNodeFiles implements `POST /nodes/{id}/files`.
func (api *Interface) handleListNodeFiles(c *gin.Context) {
	nodeID := c.Param("id")
	def, ok := api.registry.Definition(nodeID)
	if !ok {
		writeAPIError(c, http.StatusNotFound, "caller_input", "unknown node_id: "+nodeID)
		return
	}

	var req node.ListFilesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeAPIError(c, http.StatusBadRequest, "caller_input", "invalid request body: "+err.Error())
		return
	}

	result, err := def.Transport.ListFiles(c.Request.Context(), req)
	if api.auditLogger != nil {
		success := err == nil
		message := ""
		if err != nil {
			message = err.Error()
		}
		api.auditLogger.Record("operator", audit.ActionListFiles, nodeID, "", success, message, map[string]any{
			"path":      req.Path,
			"recursive": req.Recursive,
			"filter":    req.Filter,
		})
	}
	if err != nil {
		writeAPIError(c, http.StatusBadGateway, "node_unavailable", err.Error())
		return
	}
	c.JSON(http.StatusOK, result)
}
