package models

import "time"

const (
	TicketOpen    = "open"
	TicketPending = "pending"
	TicketClosed  = "closed"
)

type Ticket struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Status      string    `json:"status" gorm:"not null;default:'pending';index"`
	LastMessage string    `json:"lastMessage"`
	ContactID   *uint     `json:"contactId" gorm:"index"`
	UserID      *uint     `json:"userId" gorm:"index"`
	WhatsappID  *uint     `json:"whatsappId"`
	CreatedAt   time.Time `json:"createdAt" gorm:"index"`
	UpdatedAt   time.Time `json:"updatedAt" gorm:"index"`
	// 关联
	Contact  *TicketContact `json:"contact,omitempty" gorm:"foreignKey:ContactID;constraint:OnDelete:SET NULL"`
	User     *User          `json:"user,omitempty" gorm:"foreignKey:UserID;constraint:OnDelete:SET NULL"`
	Whatsapp *Whatsapp      `json:"-" gorm:"foreignKey:WhatsappID;constraint:OnDelete:SET NULL"`
	Messages []Message      `json:"messages,omitempty" gorm:"foreignKey:TicketID;constraint:OnDelete:CASCADE"`
}

// TicketContact 工单里携带的联系人，只有名字、号码和头像。
// 列定义与 Contact 保持一致，迁移时不会改动 contacts 表
type TicketContact struct {
	ID            uint   `json:"id" gorm:"primaryKey"`
	Name          string `json:"name"`
	Number        string `json:"number" gorm:"uniqueIndex;not null"`
	ProfilePicURL string `json:"profilePicUrl"`
}

func (TicketContact) TableName() string {
	return "contacts"
}

// Summary 联系人转换为工单里的摘要
func (c *Contact) Summary() *TicketContact {
	return &TicketContact{ID: c.ID, Name: c.Name, Number: c.Number, ProfilePicURL: c.ProfilePicURL}
}

// Whatsapp 一个 WhatsApp 连接会话，IsDefault 为 true 的那个用于校验号码和创建工单
type Whatsapp struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"uniqueIndex;not null"`
	Status    string    `json:"status"`
	IsDefault bool      `json:"isDefault" gorm:"not null;default:false"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
