// Package store 基于 gorm 的关系型存储。查询条件由 query 包构造，
// 这里只负责 join、分页、排序和错误转换。
package store

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrNotFound         = errors.New("record not found")
	ErrDuplicate        = errors.New("duplicate key")
	// ErrInvalidReference 外键指向的记录不存在
	ErrInvalidReference = errors.New("referenced record does not exist")
)

type Store struct {
	db *gorm.DB

	Contacts  *ContactRepo
	Tickets   *TicketRepo
	Users     *UserRepo
	Settings  *SettingRepo
	Whatsapps *WhatsappRepo
	Orders    *OrderRepo
	Locations *LocationRepo
}

func New(db *gorm.DB) *Store {
	return &Store{
		db:        db,
		Contacts:  &ContactRepo{db: db},
		Tickets:   &TicketRepo{db: db},
		Users:     &UserRepo{db: db},
		Settings:  &SettingRepo{db: db},
		Whatsapps: &WhatsappRepo{db: db},
		Orders:    &OrderRepo{db: db},
		Locations: &LocationRepo{db: db},
	}
}

// translate 把 gorm 的错误转换为存储层错误，其余错误原样返回
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return ErrInvalidReference
	}
	return err
}

func affected(res *gorm.DB) error {
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
