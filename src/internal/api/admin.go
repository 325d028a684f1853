package api

import (
	"net/http"

	"memory-gateway/src/internal/cron"
	"memory-gateway/src/internal/gateway"
	"memory-gateway/src/internal/memory"
	"memory-gateway/src/internal/system"

	"github.com/gin-gonic/gin"
)

type adminHealthResponse struct {
	Status   string            `json:"status"`
	Message  string            `json:"message"`
	System   string            `json:"system"`
	Memory   system.MemStats   `json:"memory"`
	Records  int               `json:"records"`
	Taxonomy string            `json:"taxonomy"`
	Mode     string            `json:"mode"`
	LastLoad gateway.LoadState `json:"last_load"`
	Jobs     []cron.Job        `json:"jobs"`
}

type memoriesResponse struct {
	Taxonomy string          `json:"taxonomy"`
	Memories []memory.Record `json:"memories"`
}

func (s *Server) handleAdminHealth(c *gin.Context) {
	gw := c.MustGet("gateway").(*gateway.Gateway)
	c.JSON(http.StatusOK, adminHealthResponse{
		Status:   "ok",
		Message:  "Admin API is operational",
		System:   system.GetInfo(),
		Memory:   system.ReadMemStats(),
		Records:  gw.Store().Len(),
		Taxonomy: gw.Taxonomy().Name,
		Mode:     gw.Config.Retrieval.Mode,
		LastLoad: gw.LastLoad(),
		Jobs:     gw.Jobs(),
	})
}

func (s *Server) handleGetConfig(c *gin.Context) {
	gw := c.MustGet("gateway").(*gateway.Gateway)
	c.JSON(http.StatusOK, gw.Config)
}

func (s *Server) handleListMemories(c *gin.Context) {
	gw := c.MustGet("gateway").(*gateway.Gateway)
	st := gw.Store()
	c.JSON(http.StatusOK, memoriesResponse{Taxonomy: st.Taxonomy().Name, Memories: st.AllRecords()})
}

func (s *Server) handleReload(c *gin.Context) {
	gw := c.MustGet("gateway").(*gateway.Gateway)
	state, err := gw.Reload(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, state)
}

func (s *Server) handleSnapshot(c *gin.Context) {
	gw := c.MustGet("gateway").(*gateway.Gateway)
	path, err := gw.Snapshot()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "snapshot written", "path": path})
}
