package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/secondarymetabolites/crispy-service/internal/version"
)

// Version reports the service and API versions.
// GET /api/v1.0/version
func (h *Handler) Version(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"crispy": version.Version,
		"api":    version.API,
	})
}

// News returns the title and newest entries of the project news feed.
// GET /api/v1.0/news
func (h *Handler) News(c echo.Context) error {
	feed, err := h.service.News(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, feed)
}
