// Package http assembles the two HTTP servers of the CRISPy service.
package http

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/secondarymetabolites/crispy-service/internal/metrics"
	"github.com/secondarymetabolites/crispy-service/internal/service"
	"github.com/secondarymetabolites/crispy-service/internal/transport/http/internalapi"
	v1 "github.com/secondarymetabolites/crispy-service/internal/transport/http/v1"
)

// NewExternalServer creates and configures the public-facing HTTP server.
// It carries the session API, downloads, health and metrics.
func NewExternalServer(svc *service.Service, m *metrics.Metrics) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	v1.NewHandler(svc, m).RegisterRoutes(e)

	return e
}

// NewInternalServer creates and configures the worker-facing HTTP server.
// Only the worker pool talks to it; it is never exposed publicly.
func NewInternalServer(svc *service.Service) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	internalapi.NewHandler(svc).RegisterRoutes(e)

	return e
}
