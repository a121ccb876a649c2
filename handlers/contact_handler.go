package handlers

import (
	"net/http"

	"github.com/EzzalddeenAli/recticket/events"
	"github.com/EzzalddeenAli/recticket/query"
	"github.com/EzzalddeenAli/recticket/services"
	"github.com/labstack/echo/v4"
)

type ContactHandler struct {
	contacts  *services.ContactService
	publisher events.Publisher
}

func NewContactHandler(contacts *services.ContactService, publisher events.Publisher) *ContactHandler {
	return &ContactHandler{contacts: contacts, publisher: publisher}
}

// Index GET /contacts
func (h *ContactHandler) Index(c echo.Context) error {
	page, err := parsePage(c)
	if err != nil {
		return respondError(c, err)
	}
	list, err := h.contacts.List(c.Request().Context(), query.ContactFilter{Search: c.QueryParam("searchParam")}, page)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

// Store POST /contacts
func (h *ContactHandler) Store(c echo.Context) error {
	var in services.CreateContactInput
	if err := bind(c, &in); err != nil {
		return respondError(c, err)
	}
	contact, box, err := h.contacts.Create(c.Request().Context(), in)
	if err != nil {
		return respondError(c, err)
	}
	h.publisher.Publish(box)
	return c.JSON(http.StatusOK, contact)
}

// Show GET /contacts/:id
func (h *ContactHandler) Show(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	contact, err := h.contacts.Get(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, contact)
}

// Update PUT /contacts/:id
func (h *ContactHandler) Update(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var in services.UpdateContactInput
	if err := bind(c, &in); err != nil {
		return respondError(c, err)
	}
	contact, box, err := h.contacts.Update(c.Request().Context(), id, in)
	if err != nil {
		return respondError(c, err)
	}
	h.publisher.Publish(box)
	return c.JSON(http.StatusOK, contact)
}

// Remove DELETE /contacts/:id
func (h *ContactHandler) Remove(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	box, err := h.contacts.Delete(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	h.publisher.Publish(box)
	return messageJSON(c, "contact deleted")
}

// Import POST /contacts/import 导入默认会话手机里的通讯录
func (h *ContactHandler) Import(c echo.Context) error {
	result, box, err := h.contacts.ImportFromPhone(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	h.publisher.Publish(box)
	return c.JSON(http.StatusOK, result)
}
