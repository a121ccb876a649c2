package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/EzzalddeenAli/recticket/events"
	"github.com/EzzalddeenAli/recticket/models"
	"github.com/EzzalddeenAli/recticket/store"
)

// settingValues 每个设置允许的取值
var settingValues = map[string][]string{
	models.SettingUserCreation: {models.SettingEnabled, models.SettingDisabled},
}

type SettingService struct {
	settings SettingStore
}

func NewSettingService(settings SettingStore) *SettingService {
	return &SettingService{settings: settings}
}

func (s *SettingService) List(ctx context.Context) ([]models.Setting, error) {
	return s.settings.List(ctx)
}

// Update 仅管理员
func (s *SettingService) Update(ctx context.Context, caller *models.User, key, value string) (*models.Setting, events.Outbox, error) {
	if !caller.IsAdmin() {
		return nil, nil, ErrForbidden
	}
	if _, err := s.settings.Get(ctx, key); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, ErrSettingNotFound
		}
		return nil, nil, err
	}
	if allowed, ok := settingValues[key]; ok && !contains(allowed, value) {
		return nil, nil, invalid("value", "must be one of %v", allowed)
	}

	if err := s.settings.Update(ctx, key, value); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, ErrSettingNotFound
		}
		return nil, nil, fmt.Errorf("update setting %s: %w", key, err)
	}
	setting, err := s.settings.Get(ctx, key)
	if err != nil {
		return nil, nil, err
	}
	return setting, events.Of(events.SettingsChanged(setting)), nil
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
