package internalapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/secondarymetabolites/crispy-service/internal/domain"
)

func sessionID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 0 {
		return 0, domain.Validationf("invalid session id %q", c.Param("id"))
	}
	return id, nil
}

// ReserveJob hands the oldest queued job to a worker, or 204 when the queue
// is empty.
// POST /internal/queue/:name/reserve
func (h *Handler) ReserveJob(c echo.Context) error {
	entry, err := h.service.ReserveJob(c.Request().Context(), c.Param("name"))
	if err != nil {
		return respondError(c, err)
	}
	if entry == nil {
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(http.StatusOK, entry)
}

// SubmitGenome records extracted genome metadata, finishing preparation.
// PUT /internal/sessions/:id/genome
func (h *Handler) SubmitGenome(c echo.Context) error {
	id, err := sessionID(c)
	if err != nil {
		return respondError(c, err)
	}
	var genome domain.Genome
	if err := c.Bind(&genome); err != nil {
		return respondError(c, domain.Validationf("invalid genome payload"))
	}
	session, err := h.service.ReportGenome(c.Request().Context(), id, &genome)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"state": session.State})
}

// SubmitRegion records a finished scan result.
// PUT /internal/sessions/:id/region
func (h *Handler) SubmitRegion(c echo.Context) error {
	id, err := sessionID(c)
	if err != nil {
		return respondError(c, err)
	}
	var region domain.Region
	if err := c.Bind(&region); err != nil {
		return respondError(c, domain.Validationf("invalid region payload"))
	}
	session, err := h.service.ReportRegion(c.Request().Context(), id, &region)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"state": session.State})
}

// ErrorReport carries a worker-side failure message.
type ErrorReport struct {
	Message string `json:"message"`
}

// SubmitError records a scan failure.
// PUT /internal/sessions/:id/error
func (h *Handler) SubmitError(c echo.Context) error {
	id, err := sessionID(c)
	if err != nil {
		return respondError(c, err)
	}
	var report ErrorReport
	if err := c.Bind(&report); err != nil {
		return respondError(c, domain.Validationf("invalid error payload"))
	}
	session, err := h.service.ReportFailure(c.Request().Context(), id, report.Message)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"state": session.State})
}
