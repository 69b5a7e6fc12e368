// Package internalapi provides the worker-facing HTTP handlers. Only the
// worker pool talks to these; they never appear on the public server.
package internalapi

import (
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/secondarymetabolites/crispy-service/internal/domain"
	"github.com/secondarymetabolites/crispy-service/internal/service"
)

// Handler handles internal HTTP requests from the worker pool.
type Handler struct {
	service *service.Service
}

// NewHandler creates a new internal API handler.
func NewHandler(service *service.Service) *Handler {
	return &Handler{
		service: service,
	}
}

// RegisterRoutes registers the internal routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST("/internal/queue/:name/reserve", h.ReserveJob)

	e.PUT("/internal/sessions/:id/genome", h.SubmitGenome)
	e.PUT("/internal/sessions/:id/region", h.SubmitRegion)
	e.PUT("/internal/sessions/:id/error", h.SubmitError)
}

// respondError mirrors the public error mapping; workers see the same
// taxonomy so a dropped job and a bad payload stay distinguishable.
func respondError(c echo.Context, err error) error {
	switch {
	case domain.IsValidation(err):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	case domain.IsNotFound(err):
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	case domain.IsForbidden(err):
		return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		log.Printf("ERROR: internal api: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}
