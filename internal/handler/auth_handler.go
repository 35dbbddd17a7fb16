package handler

import (
	"net/http"

	"app/internal/middleware"
	"app/internal/usecase"

	"github.com/labstack/echo/v4"
)

type AuthHandler struct {
	uc        *usecase.AuthUsecase
	customers *usecase.CustomerUsecase
	jwtSecret string
}

func NewAuthHandler(uc *usecase.AuthUsecase, customers *usecase.CustomerUsecase, jwtSecret string) *AuthHandler {
	return &AuthHandler{uc: uc, customers: customers, jwtSecret: jwtSecret}
}

func (h *AuthHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/auth")
	g.POST("/login", h.adminLogin)
	g.POST("/google", h.googleLogin)
	g.POST("/google-admin", h.googleAdminLogin)
	g.GET("/admin-status", h.adminStatus, middleware.RequireCustomer(h.jwtSecret))
	g.GET("/me", h.me, middleware.RequireCustomer(h.jwtSecret))
}

type adminLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *AuthHandler) adminLogin(c echo.Context) error {
	var req adminLoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, err := h.uc.AdminLogin(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

type googleLoginRequest struct {
	Token string `json:"token"`
}

func (h *AuthHandler) googleLogin(c echo.Context) error {
	var req googleLoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, err := h.uc.GoogleLogin(c.Request().Context(), req.Token)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AuthHandler) googleAdminLogin(c echo.Context) error {
	var req googleLoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, err := h.uc.GoogleAdminLogin(c.Request().Context(), req.Token)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// ログイン中の顧客が管理者メールかどうか。
func (h *AuthHandler) adminStatus(c echo.Context) error {
	customer := getCustomer(c)
	if customer == nil {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}
	return c.JSON(http.StatusOK, map[string]bool{"isAdmin": h.uc.IsAdminEmail(customer.Email)})
}

// ログイン中の顧客情報（保存済みカード込み）。
func (h *AuthHandler) me(c echo.Context) error {
	customer := getCustomer(c)
	if customer == nil {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	out, err := h.customers.Me(c.Request().Context(), customer.ID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
