package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/EzzalddeenAli/recticket/logger"
	"github.com/EzzalddeenAli/recticket/models"
	"github.com/labstack/echo/v4"
)

// Authenticator 校验 access token 并返回当前用户
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

func unauthorized(c echo.Context, msg string) error {
	return c.JSON(http.StatusUnauthorized, map[string]string{"error": msg})
}

// tokenFrom 优先读 Authorization 头，websocket 握手时读 ?token=
func tokenFrom(c echo.Context) (string, bool) {
	if authHeader := c.Request().Header.Get(echo.HeaderAuthorization); authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return "", false
		}
		return parts[1], true
	}
	token := strings.TrimSpace(strings.TrimPrefix(c.QueryParam("token"), "Bearer "))
	return token, token != ""
}

func AuthMiddleware(auth Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokenString, ok := tokenFrom(c)
			if !ok {
				return unauthorized(c, "missing or malformed authorization token")
			}
			req := c.Request()
			user, err := auth.Authenticate(req.Context(), tokenString)
			if err != nil {
				return unauthorized(c, "invalid token")
			}

			c.Set("user", user)
			c.SetRequest(req.WithContext(context.WithValue(req.Context(), logger.UserIDKey, user.ID)))
			return next(c)
		}
	}
}

// AdminAuthMiddleware 必须在 AuthMiddleware 之后
func AdminAuthMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, ok := c.Get("user").(*models.User)
			if !ok {
				return unauthorized(c, "unauthorized")
			}
			if !user.IsAdmin() {
				return c.JSON(http.StatusForbidden, map[string]string{
					"error": "only administrators can perform this action",
				})
			}
			return next(c)
		}
	}
}
