package handlers

import (
	"net/http"
	"time"

	"github.com/EzzalddeenAli/recticket/services"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const oauthStateCookie = "oauth_state"

type AuthHandler struct {
	authService  *services.AuthService
	oauthService *services.OAuthService
}

func NewAuthHandler(authService *services.AuthService, oauthService *services.OAuthService) *AuthHandler {
	return &AuthHandler{authService: authService, oauthService: oauthService}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Login POST /auth/login
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return respondError(c, err)
	}
	resp, err := h.authService.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// RefreshToken POST /auth/refresh
func (h *AuthHandler) RefreshToken(c echo.Context) error {
	var req struct {
		RefreshToken string `json:"refreshToken" validate:"required"`
	}
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return respondError(c, err)
	}
	resp, err := h.authService.Refresh(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// GetProviders GET /auth/providers
func (h *AuthHandler) GetProviders(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"providers": h.oauthService.GetAvailableProviders(),
	})
}

// OAuthLogin 跳转到第三方授权页，state 放在 cookie 里回调时校验
func (h *AuthHandler) OAuthLogin(c echo.Context) error {
	state := uuid.New().String()
	url, err := h.oauthService.GetAuthURL(c.Param("provider"), state)
	if err != nil {
		return respondError(c, err)
	}
	c.SetCookie(&http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		Expires:  time.Now().Add(10 * time.Minute),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return c.Redirect(http.StatusTemporaryRedirect, url)
}

// OAuthCallback 只允许邮箱已存在的坐席登录
func (h *AuthHandler) OAuthCallback(c echo.Context) error {
	cookie, err := c.Cookie(oauthStateCookie)
	if err != nil || cookie.Value == "" || cookie.Value != c.QueryParam("state") {
		return errorJSON(c, http.StatusBadRequest, "invalid oauth state")
	}
	code := c.QueryParam("code")
	if code == "" {
		return errorJSON(c, http.StatusBadRequest, "missing authorization code")
	}

	ctx := c.Request().Context()
	provider := c.Param("provider")
	token, err := h.oauthService.ExchangeCode(ctx, provider, code)
	if err != nil {
		return respondError(c, err)
	}
	info, err := h.oauthService.GetUserInfo(ctx, provider, token)
	if err != nil {
		return respondError(c, err)
	}
	resp, err := h.authService.LoginByEmail(ctx, info.Email)
	if err != nil {
		return respondError(c, err)
	}
	c.SetCookie(&http.Cookie{Name: oauthStateCookie, Path: "/", MaxAge: -1})
	return c.JSON(http.StatusOK, resp)
}
