package models

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func AutoMigrateAll(db *gorm.DB) error {
	err := db.AutoMigrate(
		&User{},
		&Whatsapp{},
		&DefaultLocation{},
		&Contact{},
		&ContactCustomField{},
		&Ticket{},
		&Message{},
		&Order{},
		&Setting{},
	)
	if err != nil {
		return err
	}
	return SeedSettings(db)
}

// SeedSettings 写入缺失的默认设置，已有的值不覆盖
func SeedSettings(db *gorm.DB) error {
	defaults := []Setting{
		{Key: SettingUserCreation, Value: SettingEnabled},
	}
	err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&defaults).Error
	if err != nil && !errors.Is(err, gorm.ErrDuplicatedKey) {
		return err
	}
	return nil
}
