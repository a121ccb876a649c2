package query

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	joinTicketContacts = "LEFT JOIN contacts ON contacts.id = tickets.contact_id"
	joinTicketMessages = "LEFT JOIN messages ON messages.ticket_id = tickets.id"
)

// Predicate 结构化的查询条件。Distinct 为 true 表示 join 了一对多关系，
// 计数和分页必须按根实体主键去重
type Predicate struct {
	Joins    []string
	Exprs    []clause.Expression
	Distinct bool
}

// Scope 可直接用于 db.Scopes(p.Scope)
func (p Predicate) Scope(db *gorm.DB) *gorm.DB {
	for _, j := range p.Joins {
		db = db.Joins(j)
	}
	for _, e := range p.Exprs {
		db = db.Where(e)
	}
	return db
}

func likePattern(text string) string {
	return "%" + strings.ToLower(text) + "%"
}

func lowerLike(column, pattern string) clause.Expression {
	return clause.Expr{SQL: "LOWER(" + column + ") LIKE ?", Vars: []interface{}{pattern}}
}

// ContactFilter GET /contacts
type ContactFilter struct {
	Search string
}

func (f ContactFilter) Predicate() Predicate {
	var p Predicate
	if s := strings.TrimSpace(f.Search); s != "" {
		pattern := likePattern(s)
		p.Exprs = append(p.Exprs, clause.Or(
			lowerLike("contacts.name", pattern),
			lowerLike("contacts.number", pattern),
		))
	}
	return p
}

// UserFilter GET /users
type UserFilter struct {
	Search string
}

func (f UserFilter) Predicate() Predicate {
	var p Predicate
	if s := strings.TrimSpace(f.Search); s != "" {
		pattern := likePattern(s)
		p.Exprs = append(p.Exprs, clause.Or(
			lowerLike("users.name", pattern),
			lowerLike("users.email", pattern),
		))
	}
	return p
}

// TicketFilter GET /tickets
type TicketFilter struct {
	Search  string
	Status  string
	Date    string
	ShowAll bool
	// UserID 请求者，ShowAll 为 false 时只看自己的工单
	UserID uint
}

// Predicate loc 用于计算 date 所在自然日的起止时间
func (f TicketFilter) Predicate(loc *time.Location) (Predicate, error) {
	if loc == nil {
		loc = time.Local
	}
	p := Predicate{Joins: []string{joinTicketContacts}}

	if !f.ShowAll {
		p.Exprs = append(p.Exprs, clause.Eq{
			Column: clause.Column{Table: "tickets", Name: "user_id"},
			Value:  f.UserID,
		})
	}
	if status := strings.TrimSpace(f.Status); status != "" {
		p.Exprs = append(p.Exprs, clause.Eq{
			Column: clause.Column{Table: "tickets", Name: "status"},
			Value:  status,
		})
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		pattern := likePattern(s)
		p.Joins = append(p.Joins, joinTicketMessages)
		p.Distinct = true
		p.Exprs = append(p.Exprs, clause.Or(
			lowerLike("contacts.name", pattern),
			lowerLike("contacts.number", pattern),
			lowerLike("messages.body", pattern),
		))
	}
	if d := strings.TrimSpace(f.Date); d != "" {
		start, err := StartOfDay(d, loc)
		if err != nil {
			return Predicate{}, &ParamError{Param: "date", Value: d, Err: err}
		}
		end := start.AddDate(0, 0, 1).Add(-time.Nanosecond)
		p.Exprs = append(p.Exprs, clause.Expr{
			SQL:  "tickets.created_at BETWEEN ? AND ?",
			Vars: []interface{}{start, end},
		})
	}
	return p, nil
}

var errDateFormat = errors.New("expected YYYY-MM-DD or RFC3339")

// StartOfDay 解析 ISO 日期（2006-01-02 或 RFC3339），返回 loc 时区下当天 00:00
func StartOfDay(value string, loc *time.Location) (time.Time, error) {
	if t, err := time.ParseInLocation("2006-01-02", value, loc); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, errDateFormat
	}
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc), nil
}
