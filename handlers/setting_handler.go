package handlers

import (
	"net/http"

	"github.com/EzzalddeenAli/recticket/events"
	"github.com/EzzalddeenAli/recticket/services"
	"github.com/labstack/echo/v4"
)

type SettingHandler struct {
	settings  *services.SettingService
	publisher events.Publisher
}

func NewSettingHandler(settings *services.SettingService, publisher events.Publisher) *SettingHandler {
	return &SettingHandler{settings: settings, publisher: publisher}
}

func (h *SettingHandler) Index(c echo.Context) error {
	settings, err := h.settings.List(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, settings)
}

// Update PUT /settings/:key {"value": "..."}
func (h *SettingHandler) Update(c echo.Context) error {
	var req struct {
		Value string `json:"value"`
	}
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	setting, box, err := h.settings.Update(c.Request().Context(), currentUser(c), c.Param("key"), req.Value)
	if err != nil {
		return respondError(c, err)
	}
	h.publisher.Publish(box)
	return c.JSON(http.StatusOK, setting)
}
