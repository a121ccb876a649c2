package handlers

import (
	"context"
	"net/http"

	"github.com/EzzalddeenAli/recticket/events"
	"github.com/EzzalddeenAli/recticket/query"
	"github.com/EzzalddeenAli/recticket/realtime"
	"github.com/EzzalddeenAli/recticket/services"
	"github.com/labstack/echo/v4"
)

// OnlineLister 在线坐席列表（Redis 或本地）
type OnlineLister interface {
	OnlineUsers(ctx context.Context) ([]realtime.OnlineUser, error)
}

type UserHandler struct {
	users     *services.UserService
	online    OnlineLister
	publisher events.Publisher
}

func NewUserHandler(users *services.UserService, online OnlineLister, publisher events.Publisher) *UserHandler {
	return &UserHandler{users: users, online: online, publisher: publisher}
}

func createdUser(c echo.Context, id uint) error {
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"message": "user created",
		"userId":  id,
	})
}

// Signup POST /signup 公开注册
func (h *UserHandler) Signup(c echo.Context) error {
	var in services.CreateUserInput
	if err := bind(c, &in); err != nil {
		return respondError(c, err)
	}
	user, box, err := h.users.Signup(c.Request().Context(), in)
	if err != nil {
		return respondError(c, err)
	}
	h.publisher.Publish(box)
	return createdUser(c, user.ID)
}

// Me GET /me
func (h *UserHandler) Me(c echo.Context) error {
	return c.JSON(http.StatusOK, currentUser(c))
}

// Index GET /users
func (h *UserHandler) Index(c echo.Context) error {
	page, err := parsePage(c)
	if err != nil {
		return respondError(c, err)
	}
	filter := query.UserFilter{Search: c.QueryParam("searchParam")}
	list, err := h.users.List(c.Request().Context(), currentUser(c), filter, page)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

// Store POST /users 管理员创建
func (h *UserHandler) Store(c echo.Context) error {
	var in services.CreateUserInput
	if err := bind(c, &in); err != nil {
		return respondError(c, err)
	}
	user, box, err := h.users.CreateByAdmin(c.Request().Context(), currentUser(c), in)
	if err != nil {
		return respondError(c, err)
	}
	h.publisher.Publish(box)
	return createdUser(c, user.ID)
}

// Show GET /users/:id
func (h *UserHandler) Show(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	user, err := h.users.Get(c.Request().Context(), currentUser(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, user)
}

// Update PUT /users/:id
func (h *UserHandler) Update(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var in services.UpdateUserInput
	if err := bind(c, &in); err != nil {
		return respondError(c, err)
	}
	user, box, err := h.users.Update(c.Request().Context(), currentUser(c), id, in)
	if err != nil {
		return respondError(c, err)
	}
	h.publisher.Publish(box)
	return c.JSON(http.StatusOK, user)
}

// Remove DELETE /users/:id
func (h *UserHandler) Remove(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	box, err := h.users.Delete(c.Request().Context(), currentUser(c), id)
	if err != nil {
		return respondError(c, err)
	}
	h.publisher.Publish(box)
	return messageJSON(c, "user deleted")
}

// Online GET /users/online
func (h *UserHandler) Online(c echo.Context) error {
	users, err := h.online.OnlineUsers(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"users": users,
		"count": len(users),
	})
}
