// Package realtime websocket 连接管理。Hub 单协程持有所有连接和房间成员关系
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/EzzalddeenAli/recticket/events"
	"github.com/EzzalddeenAli/recticket/logger"
	"github.com/sirupsen/logrus"
)

var ErrHubClosed = errors.New("hub closed")

// Presence 在线坐席记录，同一用户多个连接只在第一个连上和最后一个断开时调用
type Presence interface {
	Online(ctx context.Context, user OnlineUser) error
	Offline(ctx context.Context, userID uint) error
}

type OnlineUser struct {
	UserID uint      `json:"userId"`
	Name   string    `json:"name"`
	Since  time.Time `json:"since"`
}

// frame 推送给客户端的消息格式
type frame struct {
	Event string                 `json:"event"`
	Data  map[string]interface{} `json:"data"`
}

type membership struct {
	client *Client
	room   string
}

type countQuery struct {
	room  string
	reply chan int
}

type outgoing struct {
	room    string
	payload []byte
}

type Hub struct {
	clients  map[*Client]bool
	rooms    map[string]map[*Client]bool
	sessions map[uint]int // userID -> 连接数

	register   chan *Client
	unregister chan *Client
	join       chan membership
	leave      chan membership
	broadcast  chan outgoing
	count      chan countQuery
	done       chan struct{}

	presence Presence
	log      *logrus.Entry
}

// NewHub presence 可以为 nil（未配置 Redis）
func NewHub(presence Presence, broadcastBuffer int) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		rooms:      make(map[string]map[*Client]bool),
		sessions:   make(map[uint]int),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		join:       make(chan membership),
		leave:      make(chan membership),
		broadcast:  make(chan outgoing, broadcastBuffer),
		count:      make(chan countQuery),
		done:       make(chan struct{}),
		presence:   presence,
		log:        logger.App().WithField("component", "hub"),
	}
}

// Run 阻塞直到 ctx 结束，结束时关闭所有连接
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			for c := range h.clients {
				h.remove(c)
			}
			return

		case c := <-h.register:
			h.clients[c] = true
			h.sessions[c.UserID]++
			if h.sessions[c.UserID] == 1 {
				h.markOnline(c)
			}

		case c := <-h.unregister:
			h.remove(c)

		case m := <-h.join:
			if !h.clients[m.client] {
				continue
			}
			members, ok := h.rooms[m.room]
			if !ok {
				members = make(map[*Client]bool)
				h.rooms[m.room] = members
			}
			members[m.client] = true

		case m := <-h.leave:
			h.leaveRoom(m.client, m.room)

		case msg := <-h.broadcast:
			targets := h.clients
			if msg.room != "" {
				targets = h.rooms[msg.room]
			}
			for c := range targets {
				select {
				case c.send <- msg.payload:
				default:
					h.log.WithField("client", c.ID).Warn("client send buffer full, disconnecting")
					h.remove(c)
				}
			}

		case q := <-h.count:
			if q.room == "" {
				q.reply <- len(h.clients)
			} else {
				q.reply <- len(h.rooms[q.room])
			}
		}
	}
}

func (h *Hub) remove(c *Client) {
	if !h.clients[c] {
		return
	}
	delete(h.clients, c)
	for room := range h.rooms {
		h.leaveRoom(c, room)
	}
	close(c.send)

	h.sessions[c.UserID]--
	if h.sessions[c.UserID] <= 0 {
		delete(h.sessions, c.UserID)
		h.markOffline(c)
	}
}

func (h *Hub) leaveRoom(c *Client, room string) {
	members, ok := h.rooms[room]
	if !ok {
		return
	}
	delete(members, c)
	if len(members) == 0 {
		delete(h.rooms, room)
	}
}

func (h *Hub) markOnline(c *Client) {
	if h.presence == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	user := OnlineUser{UserID: c.UserID, Name: c.Name, Since: time.Now()}
	if err := h.presence.Online(ctx, user); err != nil {
		h.log.WithError(err).WithField("user_id", c.UserID).Warn("failed to record presence")
	}
}

func (h *Hub) markOffline(c *Client) {
	if h.presence == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := h.presence.Offline(ctx, c.UserID); err != nil {
		h.log.WithError(err).WithField("user_id", c.UserID).Warn("failed to clear presence")
	}
}

// Register hub 已停止时返回 false
func (h *Hub) Register(c *Client) bool {
	c.hub = h
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) Join(c *Client, room string) {
	select {
	case h.join <- membership{client: c, room: room}:
	case <-h.done:
	}
}

func (h *Hub) Leave(c *Client, room string) {
	select {
	case h.leave <- membership{client: c, room: room}:
	case <-h.done:
	}
}

// ClientCount 当前连接数
func (h *Hub) ClientCount() int {
	return h.RoomSize("")
}

// RoomSize room 为空时返回全部连接数
func (h *Hub) RoomSize(room string) int {
	q := countQuery{room: room, reply: make(chan int, 1)}
	select {
	case h.count <- q:
		return <-q.reply
	case <-h.done:
		return 0
	}
}

// Deliver 实现 events.Sink，把事件推给房间里的连接
func (h *Hub) Deliver(ctx context.Context, e events.Event) error {
	payload, err := json.Marshal(frame{Event: e.Name, Data: e.Data})
	if err != nil {
		return err
	}
	select {
	case h.broadcast <- outgoing{room: e.Room, payload: payload}:
		return nil
	case <-h.done:
		return ErrHubClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}
