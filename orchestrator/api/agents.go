package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Vasanthadithya-mundrathi/NACC/backend"
)

// probeRequest is the wire shape of `POST /agents/probe`.
type probeRequest struct {
	Message string `json:"message"`
}

// handleAgentProbe implements `POST /agents/probe`: forwards a
// free-form message to the active backend and returns its completion.
func (api *Interface) handleAgentProbe(c *gin.Context) {
	var req probeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeAPIError(c, http.StatusBadRequest, "caller_input", "invalid request body: "+err.Error())
		return
	}

	text, err := api.planner.ProbeBackend(c.Request.Context(), req.Message)
	if err != nil {
		writeAPIError(c, http.StatusBadGateway, "backend_failure", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"completion": text})
}

type backendListing struct {
	backend.CatalogEntry
	Configured bool `json:"configured"`
	Active     bool `json:"active"`
}

// handleListBackends implements `GET /backends`: the static catalog
// (§13's supplemental feature) annotated with which kind is currently
// active.
func (api *Interface) handleListBackends(c *gin.Context) {
	activeKind := api.planner.Backends.ActiveSpec().Kind

	listings := make([]backendListing, 0, len(backend.Catalog))
	for _, entry := range backend.Catalog {
		listings = append(listings, backendListing{
			CatalogEntry: entry,
			Configured:   true,
			Active:       entry.Kind == activeKind,
		})
	}
	c.JSON(http.StatusOK, gin.H{"backends": listings})
}

// switchBackendRequest is the wire shape of `POST /backends/switch`.
type switchBackendRequest struct {
	Kind       string                  `json:"kind"`
	Key        string                  `json:"key"`
	Endpoint   string                  `json:"endpoint"`
	APIKey     string                  `json:"api_key"`
	Model      string                  `json:"model"`
	SystemText string                  `json:"system_text"`
	TimeoutSec float64                 `json:"timeout_seconds"`
	Command    []string                `json:"command"`
	PoolSize   int                     `json:"pool_size"`
}

// handleSwitchBackend implements `POST /backends/switch`: builds the
// candidate backend, probes it, and only commits on a successful probe
// — per spec.md §9's "construct-new-then-CAS" design note, enforced by
// backend.Manager.Switch itself.
func (api *Interface) handleSwitchBackend(c *gin.Context) {
	var req switchBackendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeAPIError(c, http.StatusBadRequest, "caller_input", "invalid request body: "+err.Error())
		return
	}

	kind := backend.Kind(req.Kind)
	if _, ok := backend.LookupCatalogEntry(kind); !ok {
		writeAPIError(c, http.StatusBadRequest, "caller_input", "unknown backend kind: "+req.Kind)
		return
	}

	timeout := time.Duration(req.TimeoutSec * float64(time.Second))
	spec := backend.Spec{
		Kind: kind,
		Key:  req.Key,
		HTTPRemote: backend.HTTPRemoteConfig{
			Key: req.Key, Endpoint: req.Endpoint, APIKey: req.APIKey,
			Model: req.Model, SystemText: req.SystemText, Timeout: timeout,
		},
		Subprocess: backend.SubprocessConfig{
			Key: req.Key, Command: req.Command, PoolSize: req.PoolSize, Timeout: timeout,
		},
	}

	if err := api.planner.Backends.Switch(c.Request.Context(), spec); err != nil {
		writeAPIError(c, http.StatusBadGateway, "backend_failure", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "active_kind": req.Kind})
}
