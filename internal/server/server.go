package server

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

func Start(addr string, h Handlers, uploadsDir string, reg *prometheus.Registry) error {
	e := echo.New()
	e.HideBanner = true

	e.Use(echomw.Recover())
	e.Use(echomw.CORS())

	RegisterRoutes(e, h, uploadsDir, reg)
	return e.Start(addr)
}
