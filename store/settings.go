package store

import (
	"context"

	"github.com/EzzalddeenAli/recticket/models"
	"gorm.io/gorm"
)

type SettingRepo struct {
	db *gorm.DB
}

func (r *SettingRepo) List(ctx context.Context) ([]models.Setting, error) {
	settings := make([]models.Setting, 0)
	err := r.db.WithContext(ctx).Order("key ASC").Find(&settings).Error
	return settings, err
}

func (r *SettingRepo) Get(ctx context.Context, key string) (*models.Setting, error) {
	var setting models.Setting
	if err := r.db.WithContext(ctx).Where("key = ?", key).First(&setting).Error; err != nil {
		return nil, translate(err)
	}
	return &setting, nil
}

func (r *SettingRepo) Update(ctx context.Context, key, value string) error {
	return affected(r.db.WithContext(ctx).Model(&models.Setting{}).Where("key = ?", key).Update("value", value))
}
