package store

import (
	"context"

	"sft-ticketing-backend/model"
)

// Store owns every event and ticket record. All reads run inside View and all
// writes inside Update; an Update whose function returns an error commits
// nothing.
type Store interface {
	View(ctx context.Context, fn func(Tx) error) error
	Update(ctx context.Context, fn func(Tx) error) error
	Close() error
}

// Tx is the view of the store inside one View or Update call. Lookups of
// missing records return an error wrapping model.ErrNotFound.
type Tx interface {
	InsertEvent(e *model.Event) error
	Event(id int64) (*model.Event, error)
	Events() ([]model.Event, error)
	UpdateEvent(e *model.Event) error

	InsertTicket(t *model.Ticket) error
	Ticket(id string) (*model.Ticket, error)
	Tickets(q TicketQuery) ([]model.Ticket, error)
	UpdateTicket(t *model.Ticket) error
}

// TicketQuery selects tickets; zero fields match everything.
type TicketQuery struct {
	EventID    int64
	Holder     model.Identity
	ResaleOnly bool
}

func (q TicketQuery) match(t *model.Ticket) bool {
	if q.EventID != 0 && t.EventID != q.EventID {
		return false
	}
	if q.Holder != "" && t.Holder != q.Holder {
		return false
	}
	if q.ResaleOnly && !t.IsResaleActive {
		return false
	}
	return true
}
