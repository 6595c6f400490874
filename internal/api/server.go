package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/inquestlabs/inquest-engine/internal/config"
)

// Server wraps the HTTP server implementation and lifecycle helpers.
type Server struct {
	cfg  config.ServerConfig
	echo *echo.Echo
}

// NewServer constructs the HTTP server and mounts the API routes.
func NewServer(cfg config.ServerConfig, h *Handler, logger *slog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	v1 := e.Group("/api/v1")
	v1.POST("/investigations", h.CreateInvestigation)
	v1.GET("/investigations", h.ListInvestigations)
	v1.GET("/investigations/:id", h.GetInvestigation)
	v1.POST("/investigations/:id/signals", h.IngestSignals)
	v1.POST("/investigations/:id/documents", h.IngestDocument)
	v1.GET("/investigations/:id/graph", h.GetGraph)
	v1.GET("/investigations/:id/briefing", h.GetBriefing)
	v1.GET("/patterns", h.GetPatterns)

	return &Server{cfg: cfg, echo: e}
}

// Start serves requests until Shutdown is invoked.
func (s *Server) Start() error {
	return s.echo.Start(s.cfg.Address)
}

// Shutdown drains in-flight requests within the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Echo exposes the underlying router, useful for tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}
