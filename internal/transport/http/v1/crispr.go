package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/secondarymetabolites/crispy-service/internal/domain"
)

// RequestScan either enqueues a scan of the requested window or, when the
// session already holds a region, derives a cropped read-only child session.
// Either way the response points at the session carrying the result.
// POST /api/v1.0/genome/:id
func (h *Handler) RequestScan(c echo.Context) error {
	id, ok := sessionID(c)
	if !ok {
		return notFound(c)
	}

	var req domain.ScanRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, domain.Validationf("invalid request body"))
	}

	session, err := h.service.RequestScan(c.Request().Context(), id, req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"id":  session.ID,
		"uri": crisprURI(session.ID),
	})
}

// GetCrispr returns the scan result with the session's window and parameters
// merged into the region record, one flat object.
// GET /api/v1.0/crispr/:id
func (h *Handler) GetCrispr(c echo.Context) error {
	id, ok := sessionID(c)
	if !ok {
		return notFound(c)
	}
	session, err := h.service.Get(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}

	resp := map[string]interface{}{
		"id":           session.ID,
		"state":        session.State,
		"derived":      session.Derived,
		"from":         session.FromCoord,
		"to":           session.ToCoord,
		"best_size":    session.BestSize,
		"best_offset":  session.BestOffset,
		"last_updated": session.LastChanged,
	}
	if session.Region != nil {
		resp["name"] = session.Region.Name
		resp["orfs"] = session.Region.Orfs
		resp["grnas"] = session.Region.Grnas
	}
	if session.FullSize > 0 {
		resp["full_size"] = session.FullSize
	}
	if session.Error != "" {
		resp["error"] = session.Error
	}
	return c.JSON(http.StatusOK, resp)
}

// ExportRequest selects the gRNAs to export.
type ExportRequest struct {
	IDs []string `json:"ids"`
}

// ExportCSV renders the selected gRNAs to a CSV file and returns its
// download location.
// POST /api/v1.0/crispr/:id
func (h *Handler) ExportCSV(c echo.Context) error {
	id, ok := sessionID(c)
	if !ok {
		return notFound(c)
	}

	var req ExportRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, domain.Validationf("invalid request body"))
	}
	if req.IDs == nil {
		return respondError(c, domain.Validationf("ids is missing"))
	}

	export, err := h.service.ExportCSV(c.Request().Context(), id, req.IDs)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, export)
}

// Download streams a previously exported CSV file.
// GET /download/:key/output.csv
func (h *Handler) Download(c echo.Context) error {
	rc, contentType, err := h.service.OpenExport(c.Request().Context(), c.Param("key"))
	if err != nil {
		return respondError(c, err)
	}
	defer rc.Close()

	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="output.csv"`)
	return c.Stream(http.StatusOK, contentType, rc)
}
