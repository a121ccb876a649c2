// Package events 业务变更事件：服务层返回 Outbox，HTTP 层在请求成功后交给 Dispatcher 投递
package events

import "github.com/EzzalddeenAli/recticket/models"

const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

const (
	NameContact  = "contact"
	NameTicket   = "ticket"
	NameUser     = "user"
	NameSettings = "settings"
)

// RoomNotification 工单事件只发给加入了该房间的客户端，Room 为空表示所有连接
const RoomNotification = "notification"

type Event struct {
	Name string                 `json:"event"`
	Room string                 `json:"room,omitempty"`
	Data map[string]interface{} `json:"data"`
}

func (e Event) Action() string {
	a, _ := e.Data["action"].(string)
	return a
}

// Outbox 一次变更产生的事件，按顺序投递
type Outbox []Event

func (o *Outbox) Add(e Event) {
	*o = append(*o, e)
}

func Of(e ...Event) Outbox {
	return Outbox(e)
}

func ContactChanged(action string, contact *models.Contact) Event {
	return Event{Name: NameContact, Data: map[string]interface{}{"action": action, "contact": contact}}
}

func ContactDeleted(id uint) Event {
	return Event{Name: NameContact, Data: map[string]interface{}{"action": ActionDelete, "contactId": id}}
}

func TicketChanged(action string, ticket *models.Ticket) Event {
	return Event{
		Name: NameTicket,
		Room: RoomNotification,
		Data: map[string]interface{}{"action": action, "ticket": ticket},
	}
}

func TicketDeleted(id uint) Event {
	return Event{
		Name: NameTicket,
		Room: RoomNotification,
		Data: map[string]interface{}{"action": ActionDelete, "ticketId": id},
	}
}

func UserChanged(action string, user *models.User) Event {
	return Event{Name: NameUser, Data: map[string]interface{}{"action": action, "user": user}}
}

func UserDeleted(id uint) Event {
	return Event{Name: NameUser, Data: map[string]interface{}{"action": ActionDelete, "userId": id}}
}

func SettingsChanged(setting *models.Setting) Event {
	return Event{Name: NameSettings, Data: map[string]interface{}{"action": ActionUpdate, "setting": setting}}
}
