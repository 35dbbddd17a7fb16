package handler

import (
	"net/http"

	"app/internal/middleware"
	"app/internal/usecase"

	"github.com/labstack/echo/v4"
)

type OrderHandler struct {
	uc        *usecase.OrderUsecase
	jwtSecret string
}

func NewOrderHandler(uc *usecase.OrderUsecase, jwtSecret string) *OrderHandler {
	return &OrderHandler{uc: uc, jwtSecret: jwtSecret}
}

func (h *OrderHandler) RegisterRoutes(e *echo.Echo) {
	//注文作成はゲストでも可能（トークンがあれば顧客に紐付く）
	e.POST("/api/orders", h.create, middleware.OptionalCustomer(h.jwtSecret))
	e.GET("/api/orders/mine", h.listMine, middleware.RequireCustomer(h.jwtSecret))
	e.GET("/api/orders/:id", h.detail, middleware.RequireCustomer(h.jwtSecret))
}

type createOrderRequest struct {
	usecase.ShippingInput
	Items            []usecase.CartItemInput `json:"items"`
	SaveCustomerData bool                    `json:"saveCustomerData"`
}

func (h *OrderHandler) create(c echo.Context) error {
	var req createOrderRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	order, err := h.uc.CreatePendingOrder(c.Request().Context(), getCustomer(c), usecase.CreatePendingOrderInput{
		Shipping:         req.ShippingInput,
		Items:            req.Items,
		SaveCustomerData: req.SaveCustomerData,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, usecase.ToOrderOutput(order))
}

func (h *OrderHandler) detail(c echo.Context) error {
	customer := getCustomer(c)
	if customer == nil {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	out, err := h.uc.GetMyOrder(c.Request().Context(), customer.ID, c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) listMine(c echo.Context) error {
	customer := getCustomer(c)
	if customer == nil {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	orders, err := h.uc.ListMyOrders(c.Request().Context(), customer.ID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, orders)
}
