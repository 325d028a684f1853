package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"memory-gateway/src/internal/gateway"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-ID"

type Server struct {
	Gateway *gateway.Gateway
	Engine  *gin.Engine
}

func NewServer(gw *gateway.Gateway) *Server {
	e := gin.New()
	s := &Server{
		Gateway: gw,
		Engine:  e,
	}
	s.Engine.Use(gin.Recovery())
	s.Engine.Use(s.requestIDMiddleware())
	s.Engine.Use(s.loggingMiddleware())
	s.Engine.Use(s.corsMiddleware())
	s.Engine.Use(s.injectMiddleware())
	s.setupRoutesRest()
	s.setupRoutesWebSocket()
	s.setupRoutesAdmin()
	return s
}

func (s *Server) requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.New().String()
		}
		c.Set("request_id", id)
		c.Writer.Header().Set(requestIDHeader, id)
		c.Next()
	}
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		level := slog.LevelInfo
		if c.Writer.Status() >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		slog.Log(c.Request.Context(), level, "http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
			"request_id", c.GetString("request_id"),
		)
	}
}

func (s *Server) corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := "*"
		if s.Gateway != nil && s.Gateway.Config.Server.CORSOrigin != "" {
			origin = s.Gateway.Config.Server.CORSOrigin
		}
		c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")
		c.Writer.Header().Set("Access-Control-Expose-Headers", requestIDHeader)

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func (s *Server) injectMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("gateway", s.Gateway)
		c.Next()
	}
}

func (s *Server) setupRoutesRest() {
	s.Engine.GET("/health", s.handleHealth)

	mem := s.Engine.Group("/memories")
	{
		mem.POST("/search", s.handleSearch)
		mem.POST("/retrieve_for_task", s.handleRetrieveForTask)
	}
}

func (s *Server) setupRoutesWebSocket() {
	s.Engine.GET("/ws", s.handleWebsocket)
}

func (s *Server) setupRoutesAdmin() {
	admin := s.Engine.Group("/api/admin/v1")
	{
		admin.GET("/health", s.handleAdminHealth)
		admin.GET("/config", s.handleGetConfig)
		admin.GET("/memories", s.handleListMemories)
		admin.POST("/reload", s.handleReload)
		admin.POST("/snapshot", s.handleSnapshot)
	}
}

func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != http.ErrServerClosed && err != nil {
			slog.Error("server ListenAndServe error", "error", err)
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}
	slog.Info("shutting down server...")

	ctxShut, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctxShut); err != nil {
		slog.Error("server graceful shutdown error", "error", err)
	}

	if s.Gateway != nil {
		slog.Info("stopping scheduled jobs...")
		s.Gateway.Stop()
	}

	slog.Info("server stopped")

	return nil
}
