package store

import (
	"context"

	"github.com/EzzalddeenAli/recticket/models"
	"gorm.io/gorm"
)

type WhatsappRepo struct {
	db *gorm.DB
}

// FindDefault 没有默认连接时返回 ErrNotFound
func (r *WhatsappRepo) FindDefault(ctx context.Context) (*models.Whatsapp, error) {
	var wa models.Whatsapp
	if err := r.db.WithContext(ctx).Where("is_default = ?", true).First(&wa).Error; err != nil {
		return nil, translate(err)
	}
	return &wa, nil
}
