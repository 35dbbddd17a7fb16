package middleware

import (
	"errors"
	"net/http"
	"strings"

	"app/internal/usecase"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
)

const (
	CtxSubjectKey = "auth_subject" // string（顧客ID or 管理者ID/メール）
	CtxEmailKey   = "auth_email"   // string
	CtxRoleKey    = "auth_role"    // string（admin/customer）
)

type errorResponse struct {
	Error string `json:"error"`
}

func errorJSON(msg string) errorResponse {
	return errorResponse{Error: msg}
}

// bearerトークンを取り出す。なければ空文字列。
func bearerToken(c echo.Context) string {
	authz := c.Request().Header.Get("Authorization")
	if authz == "" {
		return ""
	}
	parts := strings.SplitN(authz, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func parseClaims(rawToken string, jwtSecret string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(rawToken, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(jwtSecret), nil
	})
	if err != nil || token == nil || !token.Valid {
		return nil, errors.New("invalid token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid claims")
	}
	return claims, nil
}

func setAuthContext(c echo.Context, claims jwt.MapClaims) (role string, ok bool) {
	sub, _ := claims["sub"].(string)
	role, _ = claims["role"].(string)
	if sub == "" || role == "" {
		return "", false
	}
	email, _ := claims["email"].(string)

	c.Set(CtxSubjectKey, sub)
	c.Set(CtxEmailKey, email)
	c.Set(CtxRoleKey, role)
	return role, true
}

// RequireCustomer は顧客トークン必須のミドルウェア。
func RequireCustomer(jwtSecret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			rawToken := bearerToken(c)
			if rawToken == "" {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}
			claims, err := parseClaims(rawToken, jwtSecret)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}
			role, ok := setAuthContext(c, claims)
			if !ok || role != usecase.RoleCustomer {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}
			return next(c)
		}
	}
}

// RequireAdmin は管理者トークン必須のミドルウェア。
func RequireAdmin(jwtSecret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			rawToken := bearerToken(c)
			if rawToken == "" {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}
			claims, err := parseClaims(rawToken, jwtSecret)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}
			role, ok := setAuthContext(c, claims)
			if !ok {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}
			//customerは拒否、adminだけ許可
			if role != usecase.RoleAdmin {
				return c.JSON(http.StatusForbidden, errorJSON("admin only"))
			}
			return next(c)
		}
	}
}

// OptionalCustomer はトークンがあれば顧客情報をcontextへ載せ、
// 無ければゲストとして通す（注文作成はゲストでも可能）。
func OptionalCustomer(jwtSecret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			rawToken := bearerToken(c)
			if rawToken == "" {
				return next(c)
			}
			claims, err := parseClaims(rawToken, jwtSecret)
			if err != nil {
				//壊れたトークンはゲスト扱い（拒否はしない）
				return next(c)
			}
			if role, ok := setAuthContext(c, claims); !ok || role != usecase.RoleCustomer {
				c.Set(CtxSubjectKey, nil)
				c.Set(CtxEmailKey, nil)
				c.Set(CtxRoleKey, nil)
			}
			return next(c)
		}
	}
}
