package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/EzzalddeenAli/recticket/models"
	"github.com/EzzalddeenAli/recticket/store"
)

type CreateOrderInput struct {
	TicketID       uint    `json:"ticketId" validate:"required"`
	ContactID      uint    `json:"contactId" validate:"required"`
	Details        string  `json:"details" validate:"required"`
	Address        string  `json:"address" validate:"required,max=255"`
	Latitude       string  `json:"latitude" validate:"required,latitude"`
	Longitude      string  `json:"longitude" validate:"required,longitude"`
	BeforeLocation *uint   `json:"beforeLocation"`
	StartTime      *string `json:"startTime"`
	EndTime        *string `json:"endTime"`
}

type CreateLocationInput struct {
	Name             string `json:"name" validate:"required,max=255"`
	Address          string `json:"address" validate:"required,max=255"`
	Latitude         string `json:"latitude" validate:"required,latitude"`
	Longitude        string `json:"longitude" validate:"required,longitude"`
	BelongsToContact bool   `json:"belongsToContact"`
}

type UpdateOrderStatusInput struct {
	Status string `json:"status" validate:"required,oneof=pending accepted delivered cancelled"`
}

// OrderService 订单和常用地址只做关系记录，不产生实时事件
type OrderService struct {
	orders    OrderStore
	locations LocationStore
	tickets   TicketStore
	contacts  ContactStore
}

func NewOrderService(orders OrderStore, locations LocationStore, tickets TicketStore, contacts ContactStore) *OrderService {
	return &OrderService{orders: orders, locations: locations, tickets: tickets, contacts: contacts}
}

func (s *OrderService) Create(ctx context.Context, in CreateOrderInput) (*models.Order, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if _, err := s.tickets.FindByID(ctx, in.TicketID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}
	if _, err := s.contacts.FindByID(ctx, in.ContactID, false); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrContactNotFound
		}
		return nil, err
	}
	if in.BeforeLocation != nil {
		ok, err := s.locations.Exists(ctx, *in.BeforeLocation)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrLocationNotFound
		}
	}

	ticketID, contactID := in.TicketID, in.ContactID
	order := &models.Order{
		TicketID:       &ticketID,
		ContactID:      &contactID,
		Details:        in.Details,
		Status:         models.OrderPending,
		Address:        in.Address,
		Latitude:       in.Latitude,
		Longitude:      in.Longitude,
		BeforeLocation: in.BeforeLocation,
		StartTime:      in.StartTime,
		EndTime:        in.EndTime,
	}
	if err := s.orders.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	return order, nil
}

func (s *OrderService) ListByTicket(ctx context.Context, ticketID uint) ([]models.Order, error) {
	if _, err := s.tickets.FindByID(ctx, ticketID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}
	return s.orders.ListByTicket(ctx, ticketID)
}

func (s *OrderService) UpdateStatus(ctx context.Context, id uint, in UpdateOrderStatusInput) (*models.Order, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if err := s.orders.UpdateStatus(ctx, id, in.Status); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("update order status: %w", err)
	}
	order, err := s.orders.FindByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrOrderNotFound
	}
	return order, err
}

func (s *OrderService) ListLocations(ctx context.Context) ([]models.DefaultLocation, error) {
	return s.locations.List(ctx)
}

func (s *OrderService) CreateLocation(ctx context.Context, in CreateLocationInput) (*models.DefaultLocation, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	loc := &models.DefaultLocation{
		Name:             in.Name,
		Address:          in.Address,
		Latitude:         in.Latitude,
		Longitude:        in.Longitude,
		BelongsToContact: in.BelongsToContact,
	}
	if err := s.locations.Create(ctx, loc); err != nil {
		return nil, fmt.Errorf("create location: %w", err)
	}
	return loc, nil
}
