package models

import "time"

type Message struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	TicketID  uint      `json:"ticketId" gorm:"index;not null"`
	Body      string    `json:"body" gorm:"type:text"`
	FromMe    bool      `json:"fromMe"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
