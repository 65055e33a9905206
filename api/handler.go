// Package api provides HTTP handlers for driftscope.
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/driftscope/config"
	"github.com/xiaot623/driftscope/service"
	"github.com/xiaot623/driftscope/store"
)

// Handler handles HTTP requests.
type Handler struct {
	svc    *service.Service
	store  store.Store
	config *config.Config
}

// NewHandler creates a new handler.
func NewHandler(svc *service.Service, store store.Store, config *config.Config) *Handler {
	return &Handler{
		svc:    svc,
		store:  store,
		config: config,
	}
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST("/v1/analyses", h.CreateAnalysis)
	e.GET("/v1/analyses", h.ListAnalyses)
	e.GET("/v1/analyses/:run_id", h.GetAnalysis)
	e.GET("/v1/analyses/:run_id/report", h.GetAnalysisReport)
	e.GET("/v1/analyses/:run_id/sessions", h.GetAnalysisSessions)

	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": "0.1.0",
	})
}
