package node

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
)

// Server is the node's gin-backed HTTP tool server. It holds the
// RootContext constructed once at startup; handlers never reach for
// package-level mutable state, following §9's "RootContext, not a
// global" design note.
type Server struct {
	ctx    RootContext
	router *gin.Engine
}

// NewServer builds a Server wiring the six tool endpoints plus
// /healthz and /node, directly mirroring the teacher's
// rest.NewRestInterface route-grouping shape.
func NewServer(cfg Config) *Server {
	s := &Server{
		ctx:    NewRootContext(cfg),
		router: gin.Default(),
	}

	tools := s.router.Group("/tools")
	tools.POST("/list-files", s.handleListFiles)
	tools.POST("/read-file", s.handleReadFile)
	tools.POST("/write-file", s.handleWriteFile)
	tools.POST("/execute-command", s.handleExecuteCommand)
	tools.POST("/sync-files", s.handleSyncFiles)
	tools.POST("/get-node-info", s.handleGetNodeInfo)

	s.router.GET("/healthz", s.handleHealthz)
	s.router.GET("/node", s.handleNode)

	return s
}

func (s *Server) Router() *gin.Engine { return s.router }

func (s *Server) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "node_id": s.ctx.Config.NodeID})
}

func (s *Server) handleNode(c *gin.Context) {
	c.JSON(http.StatusOK, s.ctx.GetNodeInfo())
}

func (s *Server) handleListFiles(c *gin.Context) {
	var req ListFilesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, NewToolError(ErrInternalError, "invalid request body", err))
		return
	}
	result, err := s.ctx.ListFiles(req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleReadFile(c *gin.Context) {
	var req ReadFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, NewToolError(ErrInternalError, "invalid request body", err))
		return
	}
	result, err := s.ctx.ReadFile(req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleWriteFile(c *gin.Context) {
	var req WriteFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, NewToolError(ErrInternalError, "invalid request body", err))
		return
	}
	result, err := s.ctx.WriteFile(req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleExecuteCommand(c *gin.Context) {
	var req CommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, NewToolError(ErrInternalError, "invalid request body", err))
		return
	}
	result, err := s.ctx.ExecuteCommand(c.Request.Context(), req)
	if err != nil {
		var toolErr *ToolError
		if errors.As(err, &toolErr) && toolErr.Kind == ErrTimeout {
			// A command timeout still yields a usable CommandResult
			// (partial stdout/stderr); it is not a hard transport
			// failure, so return 200 with the result plus the Timeout
			// marker the orchestrator checks for.
			c.JSON(http.StatusOK, result)
			return
		}
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleSyncFiles(c *gin.Context) {
	var req SyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, NewToolError(ErrInternalError, "invalid request body", err))
		return
	}
	result, err := s.ctx.SyncFiles(req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleGetNodeInfo(c *gin.Context) {
	c.JSON(http.StatusOK, s.ctx.GetNodeInfo())
}

func writeError(c *gin.Context, err error) {
	var toolErr *ToolError
	if !errors.As(err, &toolErr) {
		toolErr = NewToolError(ErrInternalError, err.Error(), nil)
	}
	c.JSON(toolErr.Kind.HTTPStatus(), toolErr.Envelope())
}

// ConfigureTLS applies cert/key and optional client-CA verification to
// an *http.Server, directly generalizing the teacher's tls.go helpers
// (configureServerCertificates/configureClientCertificates) to a single
// function shared by both NACC binaries.
func ConfigureTLS(server *http.Server, certFile, keyFile string, clientCAFiles []string) error {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return err
	}
	server.TLSConfig = &tls.Config{Certificates: []tls.Certificate{cert}}

	if len(clientCAFiles) > 0 {
		pool := x509.NewCertPool()
		for _, caFile := range clientCAFiles {
			pem, err := os.ReadFile(caFile)
			if err != nil {
				return err
			}
			if !pool.AppendCertsFromPEM(pem) {
				return errors.New("failed to parse client CA certificate: " + caFile)
			}
		}
		server.TLSConfig.ClientAuth = tls.RequireAndVerifyClientCert
		server.TLSConfig.ClientCAs = pool
	}

	return nil
}
