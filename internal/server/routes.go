package server

import (
	"net/http"

	"app/internal/handler"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Handlers struct {
	Auth     *handler.AuthHandler
	Product  *handler.ProductHandler
	Order    *handler.OrderHandler
	Payment  *handler.PaymentHandler
	Customer *handler.CustomerHandler
	Webhook  *handler.WebhookHandler
}

func RegisterRoutes(e *echo.Echo, h Handlers, uploadsDir string, reg *prometheus.Registry) {
	e.GET("/api/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	h.Auth.RegisterRoutes(e)
	h.Product.RegisterRoutes(e)
	h.Order.RegisterRoutes(e)
	h.Payment.RegisterRoutes(e)
	h.Customer.RegisterRoutes(e)
	h.Webhook.RegisterRoutes(e)

	//アップロード済みメディアの配信
	e.Static("/uploads", uploadsDir)

	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
}
