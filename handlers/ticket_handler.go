package handlers

import (
	"net/http"
	"strconv"

	"github.com/EzzalddeenAli/recticket/events"
	"github.com/EzzalddeenAli/recticket/query"
	"github.com/EzzalddeenAli/recticket/services"
	"github.com/labstack/echo/v4"
)

type TicketHandler struct {
	tickets   *services.TicketService
	publisher events.Publisher
}

func NewTicketHandler(tickets *services.TicketService, publisher events.Publisher) *TicketHandler {
	return &TicketHandler{tickets: tickets, publisher: publisher}
}

// Index GET /tickets，showAll=true 时不限制坐席
func (h *TicketHandler) Index(c echo.Context) error {
	page, err := parsePage(c)
	if err != nil {
		return respondError(c, err)
	}
	showAll := false
	if raw := c.QueryParam("showAll"); raw != "" {
		if showAll, err = strconv.ParseBool(raw); err != nil {
			return respondError(c, &services.ValidationError{Field: "showAll", Message: "must be true or false"})
		}
	}
	filter := query.TicketFilter{
		Search:  c.QueryParam("searchParam"),
		Status:  c.QueryParam("status"),
		Date:    c.QueryParam("date"),
		ShowAll: showAll,
		UserID:  currentUser(c).ID,
	}
	list, err := h.tickets.List(c.Request().Context(), filter, page)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

// Store POST /tickets
func (h *TicketHandler) Store(c echo.Context) error {
	var in services.CreateTicketInput
	if err := bind(c, &in); err != nil {
		return respondError(c, err)
	}
	ticket, box, err := h.tickets.Create(c.Request().Context(), in)
	if err != nil {
		return respondError(c, err)
	}
	h.publisher.Publish(box)
	return c.JSON(http.StatusOK, ticket)
}

// Update PUT /tickets/:id
func (h *TicketHandler) Update(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var in services.UpdateTicketInput
	if err := bind(c, &in); err != nil {
		return respondError(c, err)
	}
	ticket, box, err := h.tickets.Update(c.Request().Context(), id, in)
	if err != nil {
		return respondError(c, err)
	}
	h.publisher.Publish(box)
	return c.JSON(http.StatusOK, ticket)
}

// Remove DELETE /tickets/:id
func (h *TicketHandler) Remove(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	box, err := h.tickets.Delete(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	h.publisher.Publish(box)
	return messageJSON(c, "ticket deleted")
}
