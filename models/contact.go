package models

import "time"

type Contact struct {
	ID            uint                 `json:"id" gorm:"primaryKey"`
	Name          string               `json:"name"`
	Number        string               `json:"number" gorm:"uniqueIndex;not null"`
	Email         string               `json:"email" gorm:"not null;default:''"`
	ProfilePicURL string               `json:"profilePicUrl"`
	LocationID    *uint                `json:"locationId,omitempty"`
	CreatedAt     time.Time            `json:"createdAt" gorm:"index"`
	UpdatedAt     time.Time            `json:"updatedAt"`
	ExtraInfo     []ContactCustomField `json:"extraInfo,omitempty" gorm:"foreignKey:ContactID;constraint:OnDelete:CASCADE"`
	Location      *DefaultLocation     `json:"location,omitempty" gorm:"foreignKey:LocationID;constraint:OnDelete:SET NULL"`
}

// ContactCustomField 联系人的附加信息（key/value）
type ContactCustomField struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	ContactID uint      `json:"contactId" gorm:"index;not null"`
	Key       string    `json:"key" gorm:"not null"`
	Value     string    `json:"value"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
