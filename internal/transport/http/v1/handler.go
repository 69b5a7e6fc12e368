// Package v1 provides the public HTTP handlers of the CRISPy API.
package v1

import (
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/secondarymetabolites/crispy-service/internal/domain"
	"github.com/secondarymetabolites/crispy-service/internal/metrics"
	"github.com/secondarymetabolites/crispy-service/internal/service"
)

// Handler handles public HTTP requests.
type Handler struct {
	service *service.Service
	metrics *metrics.Metrics
}

// NewHandler creates a new handler.
func NewHandler(service *service.Service, m *metrics.Metrics) *Handler {
	return &Handler{
		service: service,
		metrics: m,
	}
}

// RegisterRoutes registers the public routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	// Session creation
	e.POST("/api/v1.0/seqs/id", h.CreateFromAccession)
	e.POST("/api/v1.0/seqs/file", h.CreateFromFile)

	// Session state
	e.GET("/api/v1.0/genome/:id", h.GetGenome)
	e.PUT("/api/v1.0/genome/:id/:state", h.ChangeState)
	e.POST("/api/v1.0/genome/:id", h.RequestScan)

	// Scan results
	e.GET("/api/v1.0/crispr/:id", h.GetCrispr)
	e.POST("/api/v1.0/crispr/:id", h.ExportCSV)
	e.GET("/download/:key/output.csv", h.Download)

	e.GET("/api/v1.0/version", h.Version)
	e.GET("/api/v1.0/news", h.News)
	e.GET("/healthz", h.Health)
	e.GET("/metrics", echo.WrapHandler(h.metrics.Handler()))
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// respondError maps the domain error taxonomy onto HTTP status codes. This is
// the single place client-visible error bodies are produced.
func respondError(c echo.Context, err error) error {
	switch {
	case domain.IsValidation(err):
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error":   "Bad request",
			"message": err.Error(),
		})
	case domain.IsNotFound(err):
		return c.JSON(http.StatusNotFound, map[string]string{
			"error": "Not found",
		})
	case domain.IsForbidden(err):
		return c.JSON(http.StatusForbidden, map[string]string{
			"error":   "Forbidden",
			"message": err.Error(),
		})
	default:
		// Dependency failures and anything unexpected. The detail stays in
		// the log; clients get a generic body.
		log.Printf("ERROR: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "Internal server error",
		})
	}
}
