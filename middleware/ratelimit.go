package middleware

import (
	"net/http"

	"github.com/EzzalddeenAli/recticket/limiter"
	"github.com/EzzalddeenAli/recticket/logger"
	"github.com/labstack/echo/v4"
)

type RateLimitConfig struct {
	Scope   string                      // 区分不同接口的计数
	KeyFunc func(c echo.Context) string // 自定义 Key 生成器，默认用 IP
}

func NewRateLimitMiddleware(manager *limiter.Manager, config RateLimitConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ident := ""
			if config.KeyFunc != nil {
				ident = config.KeyFunc(c)
			}
			if ident == "" {
				ident = c.RealIP()
			}
			allowed, err := manager.Allow(c.Request().Context(), manager.Key(config.Scope, ident))
			if err != nil {
				// Redis 故障时放行
				logger.WithContext(c.Request().Context()).WithError(err).Error("rate limit check failed")
				return next(c)
			}
			if !allowed {
				return c.JSON(http.StatusTooManyRequests, map[string]string{
					"error": "too many requests",
				})
			}
			return next(c)
		}
	}
}
