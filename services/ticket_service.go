package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/EzzalddeenAli/recticket/events"
	"github.com/EzzalddeenAli/recticket/models"
	"github.com/EzzalddeenAli/recticket/query"
	"github.com/EzzalddeenAli/recticket/store"
	"github.com/EzzalddeenAli/recticket/whatsapp"
)

type CreateTicketInput struct {
	ContactID   uint   `json:"contactId" validate:"required"`
	Status      string `json:"status" validate:"omitempty,oneof=open pending closed"`
	UserID      *uint  `json:"userId"`
	LastMessage string `json:"lastMessage"`
}

type UpdateTicketInput struct {
	Status      *string `json:"status" validate:"omitempty,oneof=open pending closed"`
	UserID      *uint   `json:"userId"`
	ContactID   *uint   `json:"contactId"`
	LastMessage *string `json:"lastMessage"`
}

type TicketList struct {
	Count   int64           `json:"count"`
	Tickets []models.Ticket `json:"tickets"`
	HasMore bool            `json:"hasMore"`
}

type TicketService struct {
	tickets   TicketStore
	contacts  ContactStore
	connector whatsapp.Provider
	loc       *time.Location
}

// NewTicketService loc 决定按日期筛选时一天的起止
func NewTicketService(tickets TicketStore, contacts ContactStore, connector whatsapp.Provider, loc *time.Location) *TicketService {
	if loc == nil {
		loc = time.Local
	}
	return &TicketService{tickets: tickets, contacts: contacts, connector: connector, loc: loc}
}

// List GET /tickets
func (s *TicketService) List(ctx context.Context, filter query.TicketFilter, page query.Page) (*TicketList, error) {
	pred, err := filter.Predicate(s.loc)
	if err != nil {
		var pe *query.ParamError
		if errors.As(err, &pe) {
			return nil, invalid(pe.Param, "invalid value %q", pe.Value)
		}
		return nil, err
	}
	tickets, total, err := s.tickets.Search(ctx, pred, page)
	if err != nil {
		return nil, err
	}
	return &TicketList{
		Count:   total,
		Tickets: tickets,
		HasMore: page.HasMore(total, len(tickets)),
	}, nil
}

func (s *TicketService) find(ctx context.Context, id uint) (*models.Ticket, error) {
	ticket, err := s.tickets.FindByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrTicketNotFound
	}
	return ticket, err
}

func (s *TicketService) requireContact(ctx context.Context, id uint) error {
	_, err := s.contacts.FindByID(ctx, id, false)
	if errors.Is(err, store.ErrNotFound) {
		return ErrContactNotFound
	}
	return err
}

// Create 工单挂在默认会话下，状态默认为 pending
func (s *TicketService) Create(ctx context.Context, in CreateTicketInput) (*models.Ticket, events.Outbox, error) {
	if err := validateStruct(in); err != nil {
		return nil, nil, err
	}
	wa, _, err := defaultSession(ctx, s.connector)
	if err != nil {
		return nil, nil, err
	}
	if err := s.requireContact(ctx, in.ContactID); err != nil {
		return nil, nil, err
	}

	status := in.Status
	if status == "" {
		status = models.TicketPending
	}
	contactID := in.ContactID
	ticket := &models.Ticket{
		Status:      status,
		LastMessage: in.LastMessage,
		ContactID:   &contactID,
		UserID:      in.UserID,
		WhatsappID:  &wa.ID,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		if errors.Is(err, store.ErrInvalidReference) {
			return nil, nil, invalid("userId", "user does not exist")
		}
		return nil, nil, fmt.Errorf("create ticket: %w", err)
	}

	created, err := s.find(ctx, ticket.ID)
	if err != nil {
		return nil, nil, err
	}
	return created, events.Of(events.TicketChanged(events.ActionCreate, created)), nil
}

// Update 只修改提交的字段
func (s *TicketService) Update(ctx context.Context, id uint, in UpdateTicketInput) (*models.Ticket, events.Outbox, error) {
	if err := validateStruct(in); err != nil {
		return nil, nil, err
	}
	if _, err := s.find(ctx, id); err != nil {
		return nil, nil, err
	}

	fields := make(map[string]interface{})
	if in.Status != nil {
		fields["status"] = *in.Status
	}
	if in.UserID != nil {
		fields["user_id"] = *in.UserID
	}
	if in.ContactID != nil {
		if err := s.requireContact(ctx, *in.ContactID); err != nil {
			return nil, nil, err
		}
		fields["contact_id"] = *in.ContactID
	}
	if in.LastMessage != nil {
		fields["last_message"] = *in.LastMessage
	}
	if err := s.tickets.Update(ctx, id, fields); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return nil, nil, ErrTicketNotFound
		case errors.Is(err, store.ErrInvalidReference):
			// 联系人已经检查过，剩下的外键只有 user_id
			return nil, nil, invalid("userId", "user does not exist")
		}
		return nil, nil, fmt.Errorf("update ticket: %w", err)
	}

	ticket, err := s.find(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return ticket, events.Of(events.TicketChanged(events.ActionUpdate, ticket)), nil
}

// Delete 不校验工单归属，任何登录用户都可以删除
func (s *TicketService) Delete(ctx context.Context, id uint) (events.Outbox, error) {
	if _, err := s.find(ctx, id); err != nil {
		return nil, err
	}
	if err := s.tickets.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrTicketNotFound
		}
		return nil, fmt.Errorf("delete ticket: %w", err)
	}
	return events.Of(events.TicketDeleted(id)), nil
}
