package models

import "time"

const (
	OrderPending   = "pending"
	OrderAccepted  = "accepted"
	OrderDelivered = "delivered"
	OrderCancelled = "cancelled"
)

type Order struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	TicketID       *uint     `json:"ticketId" gorm:"index"`
	ContactID      *uint     `json:"contactId" gorm:"index"`
	Details        string    `json:"details" gorm:"type:text;not null"`
	Status         string    `json:"status" gorm:"not null;default:'pending'"`
	Address        string    `json:"address" gorm:"not null"`
	Latitude       string    `json:"latitude" gorm:"not null"`
	Longitude      string    `json:"longitude" gorm:"not null"`
	BeforeLocation *uint     `json:"beforeLocation"`
	StartTime      *string   `json:"startTime"`
	EndTime        *string   `json:"endTime"`
	CreatedAt      time.Time `json:"createdAt" gorm:"precision:6"`
	UpdatedAt      time.Time `json:"updatedAt" gorm:"precision:6"`

	Ticket   *Ticket          `json:"-" gorm:"foreignKey:TicketID;constraint:OnDelete:SET NULL"`
	Contact  *Contact         `json:"-" gorm:"foreignKey:ContactID;constraint:OnDelete:SET NULL"`
	Location *DefaultLocation `json:"location,omitempty" gorm:"foreignKey:BeforeLocation;constraint:OnDelete:SET NULL"`
}

// DefaultLocation 常用地址，订单的出发点
type DefaultLocation struct {
	ID               uint      `json:"id" gorm:"primaryKey"`
	Name             string    `json:"name" gorm:"not null"`
	Address          string    `json:"address" gorm:"not null"`
	Latitude         string    `json:"latitude" gorm:"not null"`
	Longitude        string    `json:"longitude" gorm:"not null"`
	BelongsToContact bool      `json:"belongsToContact" gorm:"not null;default:false"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}
