package handler

import (
	"encoding/json"
	"net/http"

	"app/internal/middleware"
	"app/internal/usecase"

	"github.com/labstack/echo/v4"
)

type PaymentHandler struct {
	uc        *usecase.PaymentUsecase
	jwtSecret string
}

func NewPaymentHandler(uc *usecase.PaymentUsecase, jwtSecret string) *PaymentHandler {
	return &PaymentHandler{uc: uc, jwtSecret: jwtSecret}
}

func (h *PaymentHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/payments", middleware.OptionalCustomer(h.jwtSecret))
	g.POST("/init", h.init)
	g.POST("/process", h.process)
}

type initPaymentRequest struct {
	usecase.ShippingInput
	Items            []usecase.CartItemInput `json:"items"`
	TotalAmount      json.Number             `json:"totalAmount"`
	SaveCustomerData bool                    `json:"saveCustomerData"`
}

func (h *PaymentHandler) init(c echo.Context) error {
	var req initPaymentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, err := h.uc.InitPayment(c.Request().Context(), getCustomer(c), usecase.InitPaymentInput{
		Shipping:         req.ShippingInput,
		Items:            req.Items,
		TotalAmount:      req.TotalAmount,
		SaveCustomerData: req.SaveCustomerData,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

type processPaymentRequest struct {
	usecase.ProcessPaymentInput
	Payer struct {
		Email string `json:"email"`
	} `json:"payer"`
}

func (h *PaymentHandler) process(c echo.Context) error {
	var req processPaymentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	in := req.ProcessPaymentInput
	in.PayerEmail = req.Payer.Email

	out, err := h.uc.ProcessPayment(c.Request().Context(), getCustomer(c), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
