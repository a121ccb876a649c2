package store

import (
	"context"
	"fmt"

	"github.com/EzzalddeenAli/recticket/models"
	"github.com/EzzalddeenAli/recticket/query"
	"gorm.io/gorm"
)

type ContactRepo struct {
	db *gorm.DB
}

func contactCountQuery(db *gorm.DB, pred query.Predicate) *gorm.DB {
	return pred.Scope(db.Model(&models.Contact{}))
}

// Search 按创建时间倒序分页
func (r *ContactRepo) Search(ctx context.Context, pred query.Predicate, page query.Page) ([]models.Contact, int64, error) {
	var total int64
	if err := contactCountQuery(r.db.WithContext(ctx), pred).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count contacts: %w", err)
	}
	contacts := make([]models.Contact, 0, page.Limit())
	err := pred.Scope(r.db.WithContext(ctx).Model(&models.Contact{})).
		Order("contacts.created_at DESC").
		Limit(page.Limit()).
		Offset(page.Offset()).
		Find(&contacts).Error
	if err != nil {
		return nil, 0, fmt.Errorf("find contacts: %w", err)
	}
	return contacts, total, nil
}

func (r *ContactRepo) FindByID(ctx context.Context, id uint, withExtra bool) (*models.Contact, error) {
	var contact models.Contact
	tx := r.db.WithContext(ctx)
	if withExtra {
		tx = tx.Preload("ExtraInfo", func(db *gorm.DB) *gorm.DB {
			return db.Order("contact_custom_fields.id ASC")
		})
	}
	if err := tx.First(&contact, id).Error; err != nil {
		return nil, translate(err)
	}
	return &contact, nil
}

// ExistsByNumber 导入通讯录时用来跳过已有号码
func (r *ContactRepo) ExistsByNumber(ctx context.Context, number string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Contact{}).Where("number = ?", number).Count(&n).Error
	return n > 0, err
}

// Create 联系人和 ExtraInfo 在同一个事务里写入
func (r *ContactRepo) Create(ctx context.Context, contact *models.Contact) error {
	return translate(r.db.WithContext(ctx).Create(contact).Error)
}

func (r *ContactRepo) Update(ctx context.Context, id uint, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	return affected(r.db.WithContext(ctx).Model(&models.Contact{}).Where("id = ?", id).Updates(fields))
}

// UpsertField ID 为 0 时插入，否则按主键更新
func (r *ContactRepo) UpsertField(ctx context.Context, field *models.ContactCustomField) error {
	if field.ID == 0 {
		return translate(r.db.WithContext(ctx).Create(field).Error)
	}
	return translate(r.db.WithContext(ctx).Save(field).Error)
}

func (r *ContactRepo) DeleteField(ctx context.Context, id uint) error {
	return translate(r.db.WithContext(ctx).Delete(&models.ContactCustomField{}, id).Error)
}

// Delete 删除附加信息、解除工单关联，再删除联系人
func (r *ContactRepo) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var contact models.Contact
		if err := tx.Select("id").First(&contact, id).Error; err != nil {
			return translate(err)
		}
		if err := tx.Where("contact_id = ?", id).Delete(&models.ContactCustomField{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Ticket{}).Where("contact_id = ?", id).Update("contact_id", nil).Error; err != nil {
			return err
		}
		return affected(tx.Delete(&models.Contact{}, id))
	})
}
