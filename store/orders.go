package store

import (
	"context"

	"github.com/EzzalddeenAli/recticket/models"
	"gorm.io/gorm"
)

type OrderRepo struct {
	db *gorm.DB
}

func (r *OrderRepo) Create(ctx context.Context, order *models.Order) error {
	return translate(r.db.WithContext(ctx).Omit("Ticket", "Contact", "Location").Create(order).Error)
}

func (r *OrderRepo) ListByTicket(ctx context.Context, ticketID uint) ([]models.Order, error) {
	orders := make([]models.Order, 0)
	err := r.db.WithContext(ctx).
		Preload("Location").
		Where("ticket_id = ?", ticketID).
		Order("created_at DESC").
		Find(&orders).Error
	return orders, err
}

func (r *OrderRepo) FindByID(ctx context.Context, id uint) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).Preload("Location").First(&order, id).Error; err != nil {
		return nil, translate(err)
	}
	return &order, nil
}

func (r *OrderRepo) UpdateStatus(ctx context.Context, id uint, status string) error {
	return affected(r.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", id).Update("status", status))
}

type LocationRepo struct {
	db *gorm.DB
}

func (r *LocationRepo) List(ctx context.Context) ([]models.DefaultLocation, error) {
	locations := make([]models.DefaultLocation, 0)
	err := r.db.WithContext(ctx).Order("name ASC").Find(&locations).Error
	return locations, err
}

func (r *LocationRepo) Create(ctx context.Context, loc *models.DefaultLocation) error {
	return translate(r.db.WithContext(ctx).Create(loc).Error)
}

func (r *LocationRepo) Exists(ctx context.Context, id uint) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.DefaultLocation{}).Where("id = ?", id).Count(&n).Error
	return n > 0, err
}
