// Package whatsapp WhatsApp 会话连接器。号码校验和头像都通过 HTTP 网关访问会话
package whatsapp

import (
	"context"
	"errors"

	"github.com/EzzalddeenAli/recticket/models"
)

var (
	// ErrNoDefault 没有标记为默认的会话
	ErrNoDefault = errors.New("no default whatsapp session")
	// ErrUnavailable 网关不可达、超时或返回非 2xx
	ErrUnavailable = errors.New("whatsapp connector unavailable")
)

// Client 一个已连接的会话
type Client interface {
	IsRegisteredUser(ctx context.Context, number string) (bool, error)
	GetProfilePicURL(ctx context.Context, number string) (string, error)
	// GetContacts 会话手机通讯录
	GetContacts(ctx context.Context) ([]PhoneContact, error)
}

type PhoneContact struct {
	Name   string `json:"name"`
	Number string `json:"number"`
}

// Provider 提供默认会话，服务层通过它拿到 Client
type Provider interface {
	Default(ctx context.Context) (*models.Whatsapp, Client, error)
}

// SessionFinder store.WhatsappRepo 满足这个接口
type SessionFinder interface {
	FindDefault(ctx context.Context) (*models.Whatsapp, error)
}

// JID 号码转换为 WhatsApp 用户标识
func JID(number string) string {
	return number + "@c.us"
}
