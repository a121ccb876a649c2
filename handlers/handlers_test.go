package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/EzzalddeenAli/recticket/events"
	"github.com/EzzalddeenAli/recticket/models"
	"github.com/EzzalddeenAli/recticket/query"
	"github.com/EzzalddeenAli/recticket/services"
	"github.com/EzzalddeenAli/recticket/store"
	"github.com/EzzalddeenAli/recticket/whatsapp"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(box events.Outbox) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, box...)
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

type memContacts struct {
	contacts map[uint]models.Contact
}

func (m *memContacts) Search(_ context.Context, _ query.Predicate, _ query.Page) ([]models.Contact, int64, error) {
	var out []models.Contact
	for _, c := range m.contacts {
		out = append(out, c)
	}
	return out, int64(len(out)), nil
}

func (m *memContacts) FindByID(_ context.Context, id uint, _ bool) (*models.Contact, error) {
	c, ok := m.contacts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &c, nil
}

func (m *memContacts) ExistsByNumber(_ context.Context, _ string) (bool, error) { return false, nil }

func (m *memContacts) Create(_ context.Context, c *models.Contact) error {
	c.ID = uint(len(m.contacts) + 1)
	m.contacts[c.ID] = *c
	return nil
}

func (m *memContacts) Update(_ context.Context, _ uint, _ map[string]interface{}) error { return nil }

func (m *memContacts) UpsertField(_ context.Context, _ *models.ContactCustomField) error { return nil }

func (m *memContacts) DeleteField(_ context.Context, _ uint) error { return nil }

func (m *memContacts) Delete(_ context.Context, id uint) error {
	delete(m.contacts, id)
	return nil
}

type memTickets struct {
	tickets map[uint]models.Ticket
}

func (m *memTickets) Search(_ context.Context, _ query.Predicate, _ query.Page) ([]models.Ticket, int64, error) {
	return nil, 0, nil
}

func (m *memTickets) FindByID(_ context.Context, id uint) (*models.Ticket, error) {
	t, ok := m.tickets[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &t, nil
}

func (m *memTickets) Create(_ context.Context, t *models.Ticket) error {
	t.ID = uint(len(m.tickets) + 1)
	m.tickets[t.ID] = *t
	return nil
}

func (m *memTickets) Update(_ context.Context, _ uint, _ map[string]interface{}) error { return nil }

func (m *memTickets) Delete(_ context.Context, id uint) error {
	delete(m.tickets, id)
	return nil
}

type stubConnector struct {
	registered bool
}

func (s stubConnector) Default(_ context.Context) (*models.Whatsapp, whatsapp.Client, error) {
	return &models.Whatsapp{ID: 1, IsDefault: true}, s, nil
}

func (s stubConnector) IsRegisteredUser(_ context.Context, _ string) (bool, error) {
	return s.registered, nil
}

func (s stubConnector) GetProfilePicURL(_ context.Context, _ string) (string, error) { return "", nil }

func (s stubConnector) GetContacts(_ context.Context) ([]whatsapp.PhoneContact, error) {
	return nil, nil
}

func newContext(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = &CustomValidator{}
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("user", &models.User{ID: 1, Name: "Agent", Profile: models.ProfileUser})
	return c, rec
}

func TestCreateContactUnregisteredNumber(t *testing.T) {
	contacts := &memContacts{contacts: make(map[uint]models.Contact)}
	pub := &recordingPublisher{}
	h := NewContactHandler(services.NewContactService(contacts, stubConnector{registered: false}), pub)

	c, rec := newContext(http.MethodPost, "/api/v1/contacts", `{"number":"5511999999999"}`)
	require.NoError(t, h.Store(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "not a valid whatsapp number")
	assert.Empty(t, contacts.contacts)
	assert.Zero(t, pub.count())
}

func TestCreateContact(t *testing.T) {
	contacts := &memContacts{contacts: make(map[uint]models.Contact)}
	pub := &recordingPublisher{}
	h := NewContactHandler(services.NewContactService(contacts, stubConnector{registered: true}), pub)

	c, rec := newContext(http.MethodPost, "/api/v1/contacts", `{"name":"Ana","number":"5511999999999"}`)
	require.NoError(t, h.Store(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"number":"5511999999999"`)
	assert.Equal(t, 1, pub.count())
}

func TestContactIndexBadPage(t *testing.T) {
	contacts := &memContacts{contacts: make(map[uint]models.Contact)}
	h := NewContactHandler(services.NewContactService(contacts, stubConnector{}), &recordingPublisher{})

	c, rec := newContext(http.MethodGet, "/api/v1/contacts?pageNumber=abc", "")
	require.NoError(t, h.Index(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	c, rec = newContext(http.MethodGet, "/api/v1/contacts?pageNumber=1&searchParam=ana", "")
	require.NoError(t, h.Index(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"contacts":null,"count":0,"hasMore":false}`, rec.Body.String())
}

func TestDeleteMissingTicket(t *testing.T) {
	tickets := &memTickets{tickets: make(map[uint]models.Ticket)}
	contacts := &memContacts{contacts: make(map[uint]models.Contact)}
	pub := &recordingPublisher{}
	h := NewTicketHandler(services.NewTicketService(tickets, contacts, stubConnector{}, nil), pub)

	c, rec := newContext(http.MethodDelete, "/api/v1/tickets/42", "")
	c.SetParamNames("id")
	c.SetParamValues("42")
	require.NoError(t, h.Remove(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Zero(t, pub.count())
}

func TestTicketIndexRejectsBadShowAll(t *testing.T) {
	tickets := &memTickets{tickets: make(map[uint]models.Ticket)}
	contacts := &memContacts{contacts: make(map[uint]models.Contact)}
	h := NewTicketHandler(services.NewTicketService(tickets, contacts, stubConnector{}, nil), &recordingPublisher{})

	c, rec := newContext(http.MethodGet, "/api/v1/tickets?showAll=yes", "")
	c.Set("user", &models.User{ID: 2, Profile: models.ProfileUser})
	require.NoError(t, h.Index(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "showAll")

	c, rec = newContext(http.MethodGet, "/api/v1/tickets?showAll=true", "")
	c.Set("user", &models.User{ID: 2, Profile: models.ProfileUser})
	require.NoError(t, h.Index(c))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDeleteTicket(t *testing.T) {
	tickets := &memTickets{tickets: map[uint]models.Ticket{42: {ID: 42, Status: models.TicketOpen}}}
	contacts := &memContacts{contacts: make(map[uint]models.Contact)}
	pub := &recordingPublisher{}
	h := NewTicketHandler(services.NewTicketService(tickets, contacts, stubConnector{}, nil), pub)

	c, rec := newContext(http.MethodDelete, "/api/v1/tickets/42", "")
	c.SetParamNames("id")
	c.SetParamValues("42")
	require.NoError(t, h.Remove(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"ticket deleted"}`, rec.Body.String())
	require.Equal(t, 1, pub.count())
	assert.Equal(t, events.RoomNotification, pub.events[0].Room)
}

func TestRespondError(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{&services.ValidationError{Field: "date", Message: "bad"}, http.StatusBadRequest},
		{services.ErrTicketNotFound, http.StatusNotFound},
		{services.ErrNoDefaultConnector, http.StatusNotFound},
		{services.ErrInvalidContactNumber, http.StatusBadRequest},
		{services.ErrForbidden, http.StatusForbidden},
		{services.ErrSignupDisabled, http.StatusForbidden},
		{services.ErrLastAdminProtected, http.StatusForbidden},
		{services.ErrEmailTaken, http.StatusConflict},
		{services.ErrContactNumberTaken, http.StatusConflict},
		{services.ErrInvalidCredentials, http.StatusUnauthorized},
		{services.ErrConnectorUnavailable, http.StatusInternalServerError},
		{fmt.Errorf("wrapped: %w", services.ErrUserNotFound), http.StatusNotFound},
		{errors.New("pq: connection refused"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		c, rec := newContext(http.MethodGet, "/", "")
		require.NoError(t, respondError(c, tc.err))
		assert.Equal(t, tc.status, rec.Code, tc.err.Error())
	}

	c, rec := newContext(http.MethodGet, "/", "")
	require.NoError(t, respondError(c, errors.New("secret dsn leaked")))
	assert.NotContains(t, rec.Body.String(), "secret")
}

func TestParseID(t *testing.T) {
	c, _ := newContext(http.MethodGet, "/", "")
	c.SetParamNames("id")
	c.SetParamValues("abc")
	_, err := parseID(c, "id")
	var verr *services.ValidationError
	assert.ErrorAs(t, err, &verr)

	c.SetParamValues("12")
	id, err := parseID(c, "id")
	require.NoError(t, err)
	assert.Equal(t, uint(12), id)
}

func TestLoginValidation(t *testing.T) {
	h := NewAuthHandler(nil, nil)
	c, rec := newContext(http.MethodPost, "/api/v1/auth/login", `{"email":"nope"}`)
	require.NoError(t, h.Login(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
