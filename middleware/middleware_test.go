package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/EzzalddeenAli/recticket/logger"
	"github.com/EzzalddeenAli/recticket/models"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAuth map[string]*models.User

func (s stubAuth) Authenticate(_ context.Context, token string) (*models.User, error) {
	if u, ok := s[token]; ok {
		return u, nil
	}
	return nil, errors.New("invalid token")
}

func serve(t *testing.T, mw []echo.MiddlewareFunc, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	handler := func(c echo.Context) error {
		user, _ := c.Get("user").(*models.User)
		uid, _ := c.Request().Context().Value(logger.UserIDKey).(uint)
		return c.JSON(http.StatusOK, map[string]interface{}{"id": user.ID, "ctx": uid})
	}
	for i := len(mw) - 1; i >= 0; i-- {
		handler = mw[i](handler)
	}
	rec := httptest.NewRecorder()
	require.NoError(t, handler(e.NewContext(req, rec)))
	return rec
}

func TestAuthMiddleware(t *testing.T) {
	auth := stubAuth{"good": {ID: 7, Profile: models.ProfileUser}}
	mw := []echo.MiddlewareFunc{AuthMiddleware(auth)}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer good")
	rec := serve(t, mw, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":7,"ctx":7}`, rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/ws?token=good", nil)
	assert.Equal(t, http.StatusOK, serve(t, mw, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, "Token good")
	assert.Equal(t, http.StatusUnauthorized, serve(t, mw, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusUnauthorized, serve(t, mw, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/?token=bad", nil)
	assert.Equal(t, http.StatusUnauthorized, serve(t, mw, req).Code)
}

func TestAdminAuthMiddleware(t *testing.T) {
	auth := stubAuth{
		"admin": {ID: 1, Profile: models.ProfileAdmin},
		"agent": {ID: 2, Profile: models.ProfileUser},
	}
	mw := []echo.MiddlewareFunc{AuthMiddleware(auth), AdminAuthMiddleware()}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer admin")
	assert.Equal(t, http.StatusOK, serve(t, mw, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer agent")
	assert.Equal(t, http.StatusForbidden, serve(t, mw, req).Code)
}

func TestRequestID(t *testing.T) {
	e := echo.New()
	var seen interface{}
	handler := RequestID()(func(c echo.Context) error {
		seen = c.Request().Context().Value(logger.RequestIDKey)
		return c.NoContent(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderXRequestID, "req-1")
	rec := httptest.NewRecorder()
	require.NoError(t, handler(e.NewContext(req, rec)))
	assert.Equal(t, "req-1", seen)
	assert.Equal(t, "req-1", rec.Header().Get(echo.HeaderXRequestID))

	rec = httptest.NewRecorder()
	require.NoError(t, handler(e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)))
	assert.Len(t, rec.Header().Get(echo.HeaderXRequestID), 36)
}
