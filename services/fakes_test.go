package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/EzzalddeenAli/recticket/models"
	"github.com/EzzalddeenAli/recticket/query"
	"github.com/EzzalddeenAli/recticket/store"
	"github.com/EzzalddeenAli/recticket/whatsapp"
	"gorm.io/gorm/clause"
)

type fakeContacts struct {
	mu       sync.Mutex
	nextID   uint
	nextFld  uint
	contacts map[uint]models.Contact
	fields   map[uint]models.ContactCustomField
	writes   int
	lastPred query.Predicate
	// locations 非 nil 时 location_id 必须在其中
	locations map[uint]bool
}

func newFakeContacts() *fakeContacts {
	return &fakeContacts{
		contacts: make(map[uint]models.Contact),
		fields:   make(map[uint]models.ContactCustomField),
	}
}

func (f *fakeContacts) Search(_ context.Context, pred query.Predicate, page query.Page) ([]models.Contact, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastPred = pred
	var all []models.Contact
	for _, c := range f.contacts {
		row := map[string]interface{}{"contacts.name": c.Name, "contacts.number": c.Number}
		if matchRow(pred.Exprs, row) {
			all = append(all, c)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	total := int64(len(all))
	start := page.Offset()
	if start > len(all) {
		start = len(all)
	}
	end := start + page.Limit()
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

func (f *fakeContacts) FindByID(_ context.Context, id uint, withExtra bool) (*models.Contact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.contacts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	c.ExtraInfo = nil
	if withExtra {
		for _, fld := range f.fields {
			if fld.ContactID == id {
				c.ExtraInfo = append(c.ExtraInfo, fld)
			}
		}
		sort.Slice(c.ExtraInfo, func(i, j int) bool { return c.ExtraInfo[i].ID < c.ExtraInfo[j].ID })
	}
	return &c, nil
}

func (f *fakeContacts) ExistsByNumber(_ context.Context, number string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.contacts {
		if c.Number == number {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeContacts) locationOK(id *uint) bool {
	return f.locations == nil || id == nil || f.locations[*id]
}

func (f *fakeContacts) Create(_ context.Context, contact *models.Contact) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.locationOK(contact.LocationID) {
		return store.ErrInvalidReference
	}
	for _, c := range f.contacts {
		if c.Number == contact.Number {
			return store.ErrDuplicate
		}
	}
	f.writes++
	f.nextID++
	contact.ID = f.nextID
	for i := range contact.ExtraInfo {
		f.nextFld++
		contact.ExtraInfo[i].ID = f.nextFld
		contact.ExtraInfo[i].ContactID = contact.ID
		f.fields[f.nextFld] = contact.ExtraInfo[i]
	}
	stored := *contact
	stored.ExtraInfo = nil
	f.contacts[contact.ID] = stored
	return nil
}

func (f *fakeContacts) Update(_ context.Context, id uint, fields map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(fields) == 0 {
		return nil
	}
	c, ok := f.contacts[id]
	if !ok {
		return store.ErrNotFound
	}
	if v, ok := fields["location_id"].(uint); ok && !f.locationOK(&v) {
		return store.ErrInvalidReference
	}
	f.writes++
	if v, ok := fields["name"].(string); ok {
		c.Name = v
	}
	if v, ok := fields["number"].(string); ok {
		c.Number = v
	}
	if v, ok := fields["email"].(string); ok {
		c.Email = v
	}
	f.contacts[id] = c
	return nil
}

func (f *fakeContacts) UpsertField(_ context.Context, field *models.ContactCustomField) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	if field.ID == 0 {
		f.nextFld++
		field.ID = f.nextFld
	}
	f.fields[field.ID] = *field
	return nil
}

func (f *fakeContacts) DeleteField(_ context.Context, id uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	delete(f.fields, id)
	return nil
}

func (f *fakeContacts) Delete(_ context.Context, id uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.contacts[id]; !ok {
		return store.ErrNotFound
	}
	f.writes++
	for fid, fld := range f.fields {
		if fld.ContactID == id {
			delete(f.fields, fid)
		}
	}
	delete(f.contacts, id)
	return nil
}

func (f *fakeContacts) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes
}

type fakeTickets struct {
	mu       sync.Mutex
	nextID   uint
	tickets  map[uint]models.Ticket
	contacts *fakeContacts
	writes   int
	lastPred query.Predicate
	// messages 每个工单的消息内容
	messages map[uint][]string
	// users 非 nil 时 user_id 必须在其中
	users map[uint]bool
}

func newFakeTickets(contacts *fakeContacts) *fakeTickets {
	return &fakeTickets{tickets: make(map[uint]models.Ticket), contacts: contacts, messages: make(map[uint][]string)}
}

func (f *fakeTickets) userOK(id *uint) bool {
	return f.users == nil || id == nil || f.users[*id]
}

// rows 模拟 tickets LEFT JOIN contacts [LEFT JOIN messages] 的结果行
func (f *fakeTickets) rows(t models.Ticket, joinMessages bool) []map[string]interface{} {
	base := map[string]interface{}{
		"tickets.id":         t.ID,
		"tickets.status":     t.Status,
		"tickets.created_at": t.CreatedAt,
	}
	if t.UserID != nil {
		base["tickets.user_id"] = *t.UserID
	}
	if t.ContactID != nil && f.contacts != nil {
		if c, ok := f.contacts.contacts[*t.ContactID]; ok {
			base["contacts.name"] = c.Name
			base["contacts.number"] = c.Number
		}
	}
	bodies := f.messages[t.ID]
	if !joinMessages || len(bodies) == 0 {
		return []map[string]interface{}{base}
	}
	out := make([]map[string]interface{}, 0, len(bodies))
	for _, body := range bodies {
		row := make(map[string]interface{}, len(base)+1)
		for k, v := range base {
			row[k] = v
		}
		row["messages.body"] = body
		out = append(out, row)
	}
	return out
}

func (f *fakeTickets) Search(_ context.Context, pred query.Predicate, page query.Page) ([]models.Ticket, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastPred = pred
	joinMessages := false
	for _, j := range pred.Joins {
		if strings.Contains(j, "messages") {
			joinMessages = true
		}
	}
	if f.contacts != nil {
		f.contacts.mu.Lock()
		defer f.contacts.mu.Unlock()
	}

	var total int64
	var all []models.Ticket
	for _, t := range f.tickets {
		matched := 0
		for _, row := range f.rows(t, joinMessages) {
			if matchRow(pred.Exprs, row) {
				matched++
			}
		}
		if matched == 0 {
			continue
		}
		if pred.Distinct {
			total++
		} else {
			total += int64(matched)
		}
		all = append(all, t)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	start := page.Offset()
	if start > len(all) {
		start = len(all)
	}
	end := start + page.Limit()
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

func (f *fakeTickets) FindByID(ctx context.Context, id uint) (*models.Ticket, error) {
	f.mu.Lock()
	t, ok := f.tickets[id]
	f.mu.Unlock()
	if !ok {
		return nil, store.ErrNotFound
	}
	if t.ContactID != nil && f.contacts != nil {
		if c, err := f.contacts.FindByID(ctx, *t.ContactID, false); err == nil {
			t.Contact = c.Summary()
		}
	}
	return &t, nil
}

func (f *fakeTickets) Create(_ context.Context, ticket *models.Ticket) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.userOK(ticket.UserID) {
		return store.ErrInvalidReference
	}
	if ticket.CreatedAt.IsZero() {
		ticket.CreatedAt = time.Now()
	}
	f.writes++
	f.nextID++
	ticket.ID = f.nextID
	f.tickets[ticket.ID] = *ticket
	return nil
}

func (f *fakeTickets) Update(_ context.Context, id uint, fields map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tickets[id]
	if !ok {
		return store.ErrNotFound
	}
	if v, ok := fields["user_id"].(uint); ok && !f.userOK(&v) {
		return store.ErrInvalidReference
	}
	f.writes++
	if v, ok := fields["status"].(string); ok {
		t.Status = v
	}
	if v, ok := fields["user_id"].(uint); ok {
		t.UserID = &v
	}
	if v, ok := fields["contact_id"].(uint); ok {
		t.ContactID = &v
	}
	f.tickets[id] = t
	return nil
}

func (f *fakeTickets) Delete(_ context.Context, id uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.tickets[id]; !ok {
		return store.ErrNotFound
	}
	f.writes++
	delete(f.tickets, id)
	return nil
}

type fakeUsers struct {
	mu     sync.Mutex
	nextID uint
	users  map[uint]models.User
	writes int
}

func newFakeUsers(seed ...models.User) *fakeUsers {
	f := &fakeUsers{users: make(map[uint]models.User)}
	for _, u := range seed {
		f.nextID++
		u.ID = f.nextID
		f.users[u.ID] = u
	}
	return f
}

func (f *fakeUsers) Search(_ context.Context, _ query.Predicate, _ query.Page) ([]models.User, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []models.User
	for _, u := range f.users {
		all = append(all, u)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return all, int64(len(all)), nil
}

func (f *fakeUsers) FindByID(_ context.Context, id uint) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

func (f *fakeUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			u := u
			return &u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeUsers) EmailExists(_ context.Context, email string, exceptID uint) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email && u.ID != exceptID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeUsers) CountByProfile(_ context.Context, profile string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, u := range f.users {
		if u.Profile == profile {
			n++
		}
	}
	return n, nil
}

func (f *fakeUsers) Count(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.users)), nil
}

func (f *fakeUsers) Create(_ context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == user.Email {
			return store.ErrDuplicate
		}
	}
	f.writes++
	f.nextID++
	user.ID = f.nextID
	f.users[user.ID] = *user
	return nil
}

func (f *fakeUsers) Update(_ context.Context, id uint, fields map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return store.ErrNotFound
	}
	f.writes++
	for k, v := range fields {
		s, _ := v.(string)
		switch k {
		case "name":
			u.Name = s
		case "email":
			u.Email = s
		case "password":
			u.Password = s
		case "profile":
			u.Profile = s
		}
	}
	f.users[id] = u
	return nil
}

func (f *fakeUsers) Delete(_ context.Context, id uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[id]; !ok {
		return store.ErrNotFound
	}
	f.writes++
	delete(f.users, id)
	return nil
}

type fakeSettings struct {
	values map[string]string
}

func (f *fakeSettings) List(_ context.Context) ([]models.Setting, error) {
	var out []models.Setting
	for k, v := range f.values {
		out = append(out, models.Setting{Key: k, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (f *fakeSettings) Get(_ context.Context, key string) (*models.Setting, error) {
	v, ok := f.values[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &models.Setting{Key: key, Value: v}, nil
}

func (f *fakeSettings) Update(_ context.Context, key, value string) error {
	if _, ok := f.values[key]; !ok {
		return store.ErrNotFound
	}
	f.values[key] = value
	return nil
}

type fakeOrders struct {
	nextID uint
	orders map[uint]models.Order
}

func (f *fakeOrders) Create(_ context.Context, order *models.Order) error {
	f.nextID++
	order.ID = f.nextID
	f.orders[order.ID] = *order
	return nil
}

func (f *fakeOrders) ListByTicket(_ context.Context, ticketID uint) ([]models.Order, error) {
	var out []models.Order
	for _, o := range f.orders {
		if o.TicketID != nil && *o.TicketID == ticketID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeOrders) FindByID(_ context.Context, id uint) (*models.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &o, nil
}

func (f *fakeOrders) UpdateStatus(_ context.Context, id uint, status string) error {
	o, ok := f.orders[id]
	if !ok {
		return store.ErrNotFound
	}
	o.Status = status
	f.orders[id] = o
	return nil
}

type fakeLocations struct {
	locations []models.DefaultLocation
}

func (f *fakeLocations) List(_ context.Context) ([]models.DefaultLocation, error) {
	return f.locations, nil
}

func (f *fakeLocations) Create(_ context.Context, loc *models.DefaultLocation) error {
	loc.ID = uint(len(f.locations) + 1)
	f.locations = append(f.locations, *loc)
	return nil
}

func (f *fakeLocations) Exists(_ context.Context, id uint) (bool, error) {
	for _, l := range f.locations {
		if l.ID == id {
			return true, nil
		}
	}
	return false, nil
}

// fakeConnector 同时实现 whatsapp.Provider 和 whatsapp.Client
type fakeConnector struct {
	noDefault   bool
	registered  map[string]bool
	checkErr    error
	picURL      string
	picErr      error
	phoneBook   []whatsapp.PhoneContact
	contactsErr error
}

func (f *fakeConnector) Default(_ context.Context) (*models.Whatsapp, whatsapp.Client, error) {
	if f.noDefault {
		return nil, nil, whatsapp.ErrNoDefault
	}
	return &models.Whatsapp{ID: 1, Name: "main", IsDefault: true}, f, nil
}

func (f *fakeConnector) IsRegisteredUser(_ context.Context, number string) (bool, error) {
	if f.checkErr != nil {
		return false, f.checkErr
	}
	return f.registered[number], nil
}

func (f *fakeConnector) GetProfilePicURL(_ context.Context, _ string) (string, error) {
	return f.picURL, f.picErr
}

func (f *fakeConnector) GetContacts(_ context.Context) ([]whatsapp.PhoneContact, error) {
	return f.phoneBook, f.contactsErr
}

// matchRow 在内存里执行 query 包生成的条件，row 的 key 是 "表.列"
func matchRow(exprs []clause.Expression, row map[string]interface{}) bool {
	for _, e := range exprs {
		if !matchExpr(e, row) {
			return false
		}
	}
	return true
}

func matchExpr(e clause.Expression, row map[string]interface{}) bool {
	switch x := e.(type) {
	case clause.Eq:
		col := x.Column.(clause.Column)
		v := row[col.Table+"."+col.Name]
		return v != nil && fmt.Sprint(v) == fmt.Sprint(x.Value)
	case clause.OrConditions:
		for _, sub := range x.Exprs {
			if matchExpr(sub, row) {
				return true
			}
		}
		return false
	case clause.Expr:
		if strings.HasPrefix(x.SQL, "LOWER(") {
			col := strings.TrimSuffix(strings.TrimPrefix(x.SQL, "LOWER("), ") LIKE ?")
			s, ok := row[col].(string)
			needle := strings.Trim(x.Vars[0].(string), "%")
			return ok && strings.Contains(strings.ToLower(s), needle)
		}
		if strings.HasSuffix(x.SQL, "BETWEEN ? AND ?") {
			col := strings.TrimSuffix(x.SQL, " BETWEEN ? AND ?")
			t, ok := row[col].(time.Time)
			start, end := x.Vars[0].(time.Time), x.Vars[1].(time.Time)
			return ok && !t.Before(start) && !t.After(end)
		}
	}
	panic(fmt.Sprintf("fake store cannot evaluate %#v", e))
}
