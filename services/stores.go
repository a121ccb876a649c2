package services

import (
	"context"

	"github.com/EzzalddeenAli/recticket/models"
	"github.com/EzzalddeenAli/recticket/query"
)

// 以下接口由 store 包实现，测试里用内存版本替换

type ContactStore interface {
	Search(ctx context.Context, pred query.Predicate, page query.Page) ([]models.Contact, int64, error)
	FindByID(ctx context.Context, id uint, withExtra bool) (*models.Contact, error)
	ExistsByNumber(ctx context.Context, number string) (bool, error)
	Create(ctx context.Context, contact *models.Contact) error
	Update(ctx context.Context, id uint, fields map[string]interface{}) error
	UpsertField(ctx context.Context, field *models.ContactCustomField) error
	DeleteField(ctx context.Context, id uint) error
	Delete(ctx context.Context, id uint) error
}

type TicketStore interface {
	Search(ctx context.Context, pred query.Predicate, page query.Page) ([]models.Ticket, int64, error)
	FindByID(ctx context.Context, id uint) (*models.Ticket, error)
	Create(ctx context.Context, ticket *models.Ticket) error
	Update(ctx context.Context, id uint, fields map[string]interface{}) error
	Delete(ctx context.Context, id uint) error
}

type UserStore interface {
	Search(ctx context.Context, pred query.Predicate, page query.Page) ([]models.User, int64, error)
	FindByID(ctx context.Context, id uint) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	EmailExists(ctx context.Context, email string, exceptID uint) (bool, error)
	CountByProfile(ctx context.Context, profile string) (int64, error)
	Count(ctx context.Context) (int64, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, id uint, fields map[string]interface{}) error
	Delete(ctx context.Context, id uint) error
}

type SettingStore interface {
	List(ctx context.Context) ([]models.Setting, error)
	Get(ctx context.Context, key string) (*models.Setting, error)
	Update(ctx context.Context, key, value string) error
}

type OrderStore interface {
	Create(ctx context.Context, order *models.Order) error
	ListByTicket(ctx context.Context, ticketID uint) ([]models.Order, error)
	FindByID(ctx context.Context, id uint) (*models.Order, error)
	UpdateStatus(ctx context.Context, id uint, status string) error
}

type LocationStore interface {
	List(ctx context.Context) ([]models.DefaultLocation, error)
	Create(ctx context.Context, loc *models.DefaultLocation) error
	Exists(ctx context.Context, id uint) (bool, error)
}
