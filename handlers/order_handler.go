package handlers

import (
	"net/http"

	"github.com/EzzalddeenAli/recticket/services"
	"github.com/labstack/echo/v4"
)

// OrderHandler 订单和常用地址
type OrderHandler struct {
	orders *services.OrderService
}

func NewOrderHandler(orders *services.OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

// Store POST /orders
func (h *OrderHandler) Store(c echo.Context) error {
	var in services.CreateOrderInput
	if err := bind(c, &in); err != nil {
		return respondError(c, err)
	}
	order, err := h.orders.Create(c.Request().Context(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, order)
}

// ByTicket GET /tickets/:id/orders
func (h *OrderHandler) ByTicket(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	orders, err := h.orders.ListByTicket(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, orders)
}

// UpdateStatus PUT /orders/:id/status
func (h *OrderHandler) UpdateStatus(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var in services.UpdateOrderStatusInput
	if err := bind(c, &in); err != nil {
		return respondError(c, err)
	}
	order, err := h.orders.UpdateStatus(c.Request().Context(), id, in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, order)
}

// Locations GET /locations
func (h *OrderHandler) Locations(c echo.Context) error {
	locations, err := h.orders.ListLocations(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, locations)
}

// StoreLocation POST /locations
func (h *OrderHandler) StoreLocation(c echo.Context) error {
	var in services.CreateLocationInput
	if err := bind(c, &in); err != nil {
		return respondError(c, err)
	}
	loc, err := h.orders.CreateLocation(c.Request().Context(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, loc)
}
