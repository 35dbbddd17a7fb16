package handler

import (
	"net/http"

	"app/internal/apperr"
	"app/internal/middleware"
	"app/internal/usecase"

	"github.com/labstack/echo/v4"
)

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}
	if e, ok := apperr.As(err); ok {
		return c.JSON(statusForKind(e.Kind), ErrorResponse{Error: e.Message, Code: e.Code})
	}

	//500
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}

func statusForKind(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation, apperr.KindConflict, apperr.KindGateway:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	default:
		//Configuration/Reconciliation/Internalは詳細を出さない
		return http.StatusInternalServerError
	}
}

// contextから認証済み顧客を取り出す。ゲストならnil。
func getCustomer(c echo.Context) *usecase.CustomerClaims {
	sub, _ := c.Get(middleware.CtxSubjectKey).(string)
	if sub == "" {
		return nil
	}
	role, _ := c.Get(middleware.CtxRoleKey).(string)
	if role != usecase.RoleCustomer {
		return nil
	}
	email, _ := c.Get(middleware.CtxEmailKey).(string)
	return &usecase.CustomerClaims{ID: sub, Email: email}
}
