package store

import (
	"context"
	"fmt"

	"github.com/EzzalddeenAli/recticket/models"
	"github.com/EzzalddeenAli/recticket/query"
	"gorm.io/gorm"
)

type TicketRepo struct {
	db *gorm.DB
}

// contactProjection 工单列表里的联系人只返回名字、号码和头像
func contactProjection(db *gorm.DB) *gorm.DB {
	return db.Select("id", "name", "number", "profile_pic_url")
}

// ticketCountQuery join 了 messages 时一条工单会对应多行，必须按主键去重计数
func ticketCountQuery(db *gorm.DB, pred query.Predicate) *gorm.DB {
	tx := pred.Scope(db.Model(&models.Ticket{}))
	if pred.Distinct {
		tx = tx.Distinct("tickets.id")
	}
	return tx
}

func ticketIDQuery(db *gorm.DB, pred query.Predicate) *gorm.DB {
	return pred.Scope(db.Model(&models.Ticket{}).Select("tickets.id"))
}

// Search 先按条件选出工单 id，再按 updated_at 倒序取当前页
func (r *TicketRepo) Search(ctx context.Context, pred query.Predicate, page query.Page) ([]models.Ticket, int64, error) {
	var total int64
	if err := ticketCountQuery(r.db.WithContext(ctx), pred).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count tickets: %w", err)
	}
	tickets := make([]models.Ticket, 0, page.Limit())
	err := r.db.WithContext(ctx).
		Preload("Contact", contactProjection).
		Where("tickets.id IN (?)", ticketIDQuery(r.db.WithContext(ctx), pred)).
		Order("tickets.updated_at DESC").
		Limit(page.Limit()).
		Offset(page.Offset()).
		Find(&tickets).Error
	if err != nil {
		return nil, 0, fmt.Errorf("find tickets: %w", err)
	}
	return tickets, total, nil
}

func (r *TicketRepo) FindByID(ctx context.Context, id uint) (*models.Ticket, error) {
	var ticket models.Ticket
	if err := r.db.WithContext(ctx).Preload("Contact", contactProjection).First(&ticket, id).Error; err != nil {
		return nil, translate(err)
	}
	return &ticket, nil
}

func (r *TicketRepo) Create(ctx context.Context, ticket *models.Ticket) error {
	return translate(r.db.WithContext(ctx).Omit("Contact", "User", "Whatsapp", "Messages").Create(ticket).Error)
}

func (r *TicketRepo) Update(ctx context.Context, id uint, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	return affected(r.db.WithContext(ctx).Model(&models.Ticket{}).Where("id = ?", id).Updates(fields))
}

// Delete 只删除工单本身，联系人保留
func (r *TicketRepo) Delete(ctx context.Context, id uint) error {
	return affected(r.db.WithContext(ctx).Delete(&models.Ticket{}, id))
}
