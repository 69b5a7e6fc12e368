package v1

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/secondarymetabolites/crispy-service/internal/domain"
)

// sessionID parses the :id path parameter. Anything that is not a
// non-negative integer behaves like an unknown session.
func sessionID(c echo.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 0 {
		return 0, false
	}
	return id, true
}

func notFound(c echo.Context) error {
	return c.JSON(http.StatusNotFound, map[string]string{"error": "Not found"})
}

func genomeURI(id int64) string {
	return fmt.Sprintf("/api/v1.0/genome/%d", id)
}

func crisprURI(id int64) string {
	return fmt.Sprintf("/api/v1.0/crispr/%d", id)
}

// CreateFromAccessionRequest asks for a session backed by a database record.
type CreateFromAccessionRequest struct {
	AsID string `json:"asID"`
}

// CreateFromAccession creates a session for an antiSMASH-DB accession.
// POST /api/v1.0/seqs/id
func (h *Handler) CreateFromAccession(c echo.Context) error {
	ctx := c.Request().Context()

	var req CreateFromAccessionRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, domain.Validationf("invalid request body"))
	}

	session, err := h.service.CreateFromAccession(ctx, req.AsID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"id":  session.ID,
		"uri": genomeURI(session.ID),
	})
}

// CreateFromFile creates a session for an uploaded GenBank file.
// POST /api/v1.0/seqs/file
func (h *Handler) CreateFromFile(c echo.Context) error {
	ctx := c.Request().Context()

	fileHeader, err := c.FormFile("gbk")
	if err != nil {
		return respondError(c, domain.Validationf("gbk file is missing"))
	}
	file, err := fileHeader.Open()
	if err != nil {
		return respondError(c, domain.Validationf("cannot read uploaded file"))
	}
	defer file.Close()

	session, err := h.service.CreateFromUpload(ctx, fileHeader.Filename, file)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"id":  session.ID,
		"uri": genomeURI(session.ID),
	})
}

// GetGenome reports the preparation status of a session.
// GET /api/v1.0/genome/:id
func (h *Handler) GetGenome(c echo.Context) error {
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
		"genome":       session.Genome,
		"last_updated": session.LastChanged,
	}
	if session.Error != "" {
		resp["error"] = session.Error
	}
	return c.JSON(http.StatusOK, resp)
}

// ChangeState handles the client-side state reset.
// PUT /api/v1.0/genome/:id/:state
func (h *Handler) ChangeState(c echo.Context) error {
	id, ok := sessionID(c)
	if !ok {
		return notFound(c)
	}
	session, err := h.service.Reset(c.Request().Context(), id, domain.State(c.Param("state")))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"state": session.State,
	})
}
