package store

import (
	"context"
	"fmt"

	"github.com/EzzalddeenAli/recticket/models"
	"github.com/EzzalddeenAli/recticket/query"
	"gorm.io/gorm"
)

var userColumns = []string{"id", "name", "email", "profile", "created_at", "updated_at"}

type UserRepo struct {
	db *gorm.DB
}

func userCountQuery(db *gorm.DB, pred query.Predicate) *gorm.DB {
	return pred.Scope(db.Model(&models.User{}))
}

func (r *UserRepo) Search(ctx context.Context, pred query.Predicate, page query.Page) ([]models.User, int64, error) {
	var total int64
	if err := userCountQuery(r.db.WithContext(ctx), pred).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}
	users := make([]models.User, 0, page.Limit())
	err := pred.Scope(r.db.WithContext(ctx).Model(&models.User{})).
		Select(userColumns).
		Order("users.created_at DESC").
		Limit(page.Limit()).
		Offset(page.Offset()).
		Find(&users).Error
	if err != nil {
		return nil, 0, fmt.Errorf("find users: %w", err)
	}
	return users, total, nil
}

func (r *UserRepo) FindByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// EmailExists exceptID 不为 0 时排除该用户自身
func (r *UserRepo) EmailExists(ctx context.Context, email string, exceptID uint) (bool, error) {
	var n int64
	tx := r.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email)
	if exceptID != 0 {
		tx = tx.Where("id <> ?", exceptID)
	}
	if err := tx.Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *UserRepo) CountByProfile(ctx context.Context, profile string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Where("profile = ?", profile).Count(&n).Error
	return n, err
}

func (r *UserRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Count(&n).Error
	return n, err
}

func (r *UserRepo) Create(ctx context.Context, user *models.User) error {
	return translate(r.db.WithContext(ctx).Create(user).Error)
}

func (r *UserRepo) Update(ctx context.Context, id uint, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	return affected(r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(fields))
}

func (r *UserRepo) Delete(ctx context.Context, id uint) error {
	return affected(r.db.WithContext(ctx).Delete(&models.User{}, id))
}
