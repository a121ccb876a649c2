package store

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/EzzalddeenAli/recticket/models"
	"github.com/EzzalddeenAli/recticket/query"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/utils/tests"
)

func dryRunDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(tests.DummyDialector{}, &gorm.Config{})
	require.NoError(t, err)
	return db
}

func ticketPredicate(t *testing.T, f query.TicketFilter) query.Predicate {
	t.Helper()
	p, err := f.Predicate(time.UTC)
	require.NoError(t, err)
	return p
}

func TestTicketCountWithoutSearchIsPlainCount(t *testing.T) {
	db := dryRunDB(t)
	pred := ticketPredicate(t, query.TicketFilter{Status: "open", UserID: 7})

	sql := db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		var n int64
		return ticketCountQuery(tx, pred).Count(&n)
	})

	assert.Contains(t, sql, "count(*)")
	assert.NotContains(t, sql, "DISTINCT")
	assert.Contains(t, sql, "LEFT JOIN contacts ON contacts.id = tickets.contact_id")
	assert.Contains(t, sql, "`tickets`.`user_id` = 7")
	assert.Contains(t, sql, "`tickets`.`status` = \"open\"")
	assert.NotContains(t, sql, "messages")
}

func TestTicketCountWithSearchIsDistinct(t *testing.T) {
	db := dryRunDB(t)
	pred := ticketPredicate(t, query.TicketFilter{Search: "Pizza", ShowAll: true})

	sql := db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		var n int64
		return ticketCountQuery(tx, pred).Count(&n)
	})

	assert.Contains(t, sql, "COUNT(DISTINCT(")
	assert.Contains(t, sql, "LEFT JOIN messages ON messages.ticket_id = tickets.id")
	assert.Contains(t, sql, "LOWER(messages.body) LIKE \"%pizza%\"")
	assert.NotContains(t, sql, "user_id")
}

func TestTicketPageUsesIDSubquery(t *testing.T) {
	db := dryRunDB(t)
	pred := ticketPredicate(t, query.TicketFilter{Search: "ana", ShowAll: true})
	page := query.NewPage(3)

	sql := db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		var tickets []models.Ticket
		return tx.Where("tickets.id IN (?)", ticketIDQuery(tx, pred)).
			Order("tickets.updated_at DESC").
			Limit(page.Limit()).
			Offset(page.Offset()).
			Find(&tickets)
	})

	assert.Contains(t, sql, "tickets.id IN (SELECT tickets.id FROM `tickets` LEFT JOIN contacts")
	assert.Contains(t, sql, "ORDER BY tickets.updated_at DESC")
	assert.Contains(t, sql, fmt.Sprintf("LIMIT %d OFFSET %d", query.PageSize, 2*query.PageSize))
}

func TestContactCountAppliesSearch(t *testing.T) {
	db := dryRunDB(t)
	pred := query.ContactFilter{Search: "Ana"}.Predicate()

	sql := db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		var n int64
		return contactCountQuery(tx, pred).Count(&n)
	})

	assert.Contains(t, sql, "FROM `contacts`")
	assert.Contains(t, sql, "LOWER(contacts.name) LIKE \"%ana%\" OR LOWER(contacts.number) LIKE \"%ana%\"")
}

func TestUserCountWithoutSearchHasNoWhere(t *testing.T) {
	db := dryRunDB(t)
	pred := query.UserFilter{}.Predicate()

	sql := db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		var n int64
		return userCountQuery(tx, pred).Count(&n)
	})

	assert.Contains(t, sql, "FROM `users`")
	assert.NotContains(t, sql, "WHERE")
}

func TestTranslate(t *testing.T) {
	assert.NoError(t, translate(nil))
	assert.ErrorIs(t, translate(gorm.ErrRecordNotFound), ErrNotFound)
	assert.ErrorIs(t, translate(fmt.Errorf("wrap: %w", gorm.ErrDuplicatedKey)), ErrDuplicate)
	assert.ErrorIs(t, translate(gorm.ErrForeignKeyViolated), ErrInvalidReference)

	other := errors.New("boom")
	assert.Equal(t, other, translate(other))
}
