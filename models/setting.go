package models

import "time"

const (
	SettingUserCreation = "userCreation"
	SettingEnabled      = "enabled"
	SettingDisabled     = "disabled"
)

type Setting struct {
	Key       string    `json:"key" gorm:"primaryKey"`
	Value     string    `json:"value" gorm:"not null"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
