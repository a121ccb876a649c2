package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/EzzalddeenAli/recticket/logger"
	"github.com/EzzalddeenAli/recticket/models"
	"github.com/EzzalddeenAli/recticket/query"
	"github.com/EzzalddeenAli/recticket/services"
	"github.com/labstack/echo/v4"
)

func errorJSON(c echo.Context, status int, msg string) error {
	return c.JSON(status, map[string]string{"error": msg})
}

func messageJSON(c echo.Context, msg string) error {
	return c.JSON(http.StatusOK, map[string]string{"message": msg})
}

// respondError 把服务层错误映射为 HTTP 状态码，未知错误只记录日志不返回细节
func respondError(c echo.Context, err error) error {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		return errorJSON(c, http.StatusBadRequest, verr.Error())
	case errors.Is(err, services.ErrNoDefaultConnector),
		errors.Is(err, services.ErrNotFound),
		errors.Is(err, services.ErrUnsupportedProvider):
		return errorJSON(c, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrInvalidContactNumber):
		return errorJSON(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrForbidden),
		errors.Is(err, services.ErrSignupDisabled),
		errors.Is(err, services.ErrLastAdminProtected),
		errors.Is(err, services.ErrNoLinkedAccount):
		return errorJSON(c, http.StatusForbidden, err.Error())
	case errors.Is(err, services.ErrEmailTaken),
		errors.Is(err, services.ErrContactNumberTaken):
		return errorJSON(c, http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrInvalidCredentials),
		errors.Is(err, services.ErrInvalidToken):
		return errorJSON(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, services.ErrConnectorUnavailable):
		return errorJSON(c, http.StatusInternalServerError, err.Error())
	}

	logger.WithContext(c.Request().Context()).
		WithError(err).
		WithField("path", c.Path()).
		Error("request failed")
	return errorJSON(c, http.StatusInternalServerError, "internal server error")
}

// bind 请求体格式错误统一返回 400
func bind(c echo.Context, v interface{}) error {
	if err := c.Bind(v); err != nil {
		return &services.ValidationError{Message: "invalid request body"}
	}
	return nil
}

func parseID(c echo.Context, name string) (uint, error) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, &services.ValidationError{Field: name, Message: "invalid id " + strconv.Quote(raw)}
	}
	return uint(id), nil
}

func parsePage(c echo.Context) (query.Page, error) {
	page, err := query.ParsePage(c.QueryParam("pageNumber"))
	if err != nil {
		return query.Page{}, &services.ValidationError{Field: "pageNumber", Message: "must be a number"}
	}
	return page, nil
}

// currentUser 由 AuthMiddleware 写入
func currentUser(c echo.Context) *models.User {
	user, _ := c.Get("user").(*models.User)
	return user
}
