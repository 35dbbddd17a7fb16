package handler

import (
	"net/http"

	"app/internal/middleware"
	repo "app/internal/repository"
	"app/internal/usecase"

	"github.com/labstack/echo/v4"
)

type CustomerHandler struct {
	uc        *usecase.CustomerUsecase
	jwtSecret string
}

func NewCustomerHandler(uc *usecase.CustomerUsecase, jwtSecret string) *CustomerHandler {
	return &CustomerHandler{uc: uc, jwtSecret: jwtSecret}
}

func (h *CustomerHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/customers", middleware.RequireCustomer(h.jwtSecret))
	g.GET("/me", h.me)
	g.PUT("/me", h.updateProfile)
	g.DELETE("/payment-methods/:id", h.deletePaymentMethod)
}

func (h *CustomerHandler) me(c echo.Context) error {
	customer := getCustomer(c)
	if customer == nil {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	out, err := h.uc.Me(c.Request().Context(), customer.ID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

type updateProfileRequest struct {
	FirstName  *string `json:"firstName"`
	LastName   *string `json:"lastName"`
	Province   *string `json:"province"`
	City       *string `json:"city"`
	Address1   *string `json:"address1"`
	Address2   *string `json:"address2"`
	PostalCode *string `json:"postalCode"`
	Phone      *string `json:"phone"`
}

func (h *CustomerHandler) updateProfile(c echo.Context) error {
	customer := getCustomer(c)
	if customer == nil {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	var req updateProfileRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, err := h.uc.UpdateProfile(c.Request().Context(), customer.ID, repo.CustomerProfile{
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Province:   req.Province,
		City:       req.City,
		Address1:   req.Address1,
		Address2:   req.Address2,
		PostalCode: req.PostalCode,
		Phone:      req.Phone,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CustomerHandler) deletePaymentMethod(c echo.Context) error {
	customer := getCustomer(c)
	if customer == nil {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	if err := h.uc.DeletePaymentMethod(c.Request().Context(), customer.ID, c.Param("id")); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
