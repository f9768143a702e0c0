package ticket

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sft-ticketing-backend/logger"
	"sft-ticketing-backend/model"
	"sft-ticketing-backend/store"

	"github.com/google/uuid"
)

// Guard runs inside the mutating transaction, after the ticket and its event
// are loaded and before anything is written. A non-nil error aborts the
// mutation and is returned to the caller unchanged.
type Guard func(ev *model.Event, t *model.Ticket) error

// Settle runs inside the issuing transaction once capacity is confirmed.
type Settle func(ev *model.Event) error

// NewLedger returns the ticket ledger backed by s.
func NewLedger(s store.Store) *Ledger {
	return &Ledger{store: s, now: time.Now}
}

// Ledger mints, transfers and verifies tickets. All state lives in the store.
type Ledger struct {
	store store.Store
	now   func() time.Time
}

// IssueTicket mints one ticket of eventID for holder.
func (l *Ledger) IssueTicket(ctx context.Context, eventID int64, holder model.Identity) (*model.Ticket, error) {
	tickets, err := l.IssueTickets(ctx, eventID, holder, 1, nil)
	if err != nil {
		return nil, err
	}
	return &tickets[0], nil
}

// IssueTickets mints quantity tickets of eventID for holder in one commit.
// settle may be nil.
func (l *Ledger) IssueTickets(ctx context.Context, eventID int64, holder model.Identity, quantity uint64, settle Settle) ([]model.Ticket, error) {
	if quantity == 0 {
		return nil, fmt.Errorf("issueTickets: quantity must be at least 1: %w", model.ErrValidation)
	}
	if holder.Empty() {
		return nil, fmt.Errorf("issueTickets: no holder identity: %w", model.ErrValidation)
	}

	var issued []model.Ticket
	err := l.store.Update(ctx, func(tx store.Tx) error {
		issued = nil
		ev, err := tx.Event(eventID)
		if err != nil {
			return err
		}
		if ev.Available < quantity {
			return fmt.Errorf("event %d has %d left, %d requested: %w", eventID, ev.Available, quantity, model.ErrCapacity)
		}
		if settle != nil {
			if err := settle(ev); err != nil {
				return err
			}
		}

		ev.Available -= quantity
		if err := tx.UpdateEvent(ev); err != nil {
			return err
		}

		now := l.now().UTC()
		for i := uint64(0); i < quantity; i++ {
			t := model.Ticket{
				ID:       uuid.New().String(),
				EventID:  eventID,
				Holder:   holder,
				IssuedAt: now,
			}
			if err := tx.InsertTicket(&t); err != nil {
				return err
			}
			issued = append(issued, t)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("issueTickets: %w", err)
	}

	logger.Infof(ctx, "issueTickets: %d ticket(s) of event %d issued to %s", quantity, eventID, holder)
	return issued, nil
}

// ToggleResale flips the resale flag. Switching it on with no price set lists
// the ticket at the event price.
func (l *Ledger) ToggleResale(ctx context.Context, ticketID string) (*model.Ticket, error) {
	return l.ToggleResaleGuarded(ctx, ticketID, nil)
}

func (l *Ledger) ToggleResaleGuarded(ctx context.Context, ticketID string, guard Guard) (*model.Ticket, error) {
	t, err := l.mutate(ctx, ticketID, guard, func(ev *model.Event, t *model.Ticket) error {
		if !t.IsResaleActive && t.IsVerified {
			return fmt.Errorf("ticket %s has been used: %w", t.ID, model.ErrAlreadyVerified)
		}
		t.IsResaleActive = !t.IsResaleActive
		if t.IsResaleActive && t.ResalePrice == 0 {
			t.ResalePrice = ev.Price
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("toggleResale: %w", err)
	}
	return t, nil
}

// ListForResale sets the asking price and turns resale on.
func (l *Ledger) ListForResale(ctx context.Context, ticketID string, price model.Amount, guard Guard) (*model.Ticket, error) {
	t, err := l.mutate(ctx, ticketID, guard, func(_ *model.Event, t *model.Ticket) error {
		if t.IsVerified {
			return fmt.Errorf("ticket %s has been used: %w", t.ID, model.ErrAlreadyVerified)
		}
		t.ResalePrice = price
		t.IsResaleActive = true
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listForResale: %w", err)
	}
	return t, nil
}

// Transfer hands the ticket to a new holder and takes it off the resale market.
func (l *Ledger) Transfer(ctx context.Context, ticketID string, to model.Identity, guard Guard) (*model.Ticket, error) {
	if to.Empty() {
		return nil, fmt.Errorf("transfer: no recipient identity: %w", model.ErrValidation)
	}
	t, err := l.mutate(ctx, ticketID, guard, func(_ *model.Event, t *model.Ticket) error {
		t.Holder = to
		t.IsResaleActive = false
		t.ResalePrice = 0
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("transfer: %w", err)
	}
	return t, nil
}

// VerifyTicket marks the ticket used by verifier.
func (l *Ledger) VerifyTicket(ctx context.Context, ticketID string, verifier model.Identity) (*model.Ticket, error) {
	return l.Verify(ctx, ticketID, verifier, "", nil)
}

// Verify marks the ticket used. A non-empty custodian becomes the new holder.
// Verification is one-way: a second attempt fails with ErrAlreadyVerified
// before guard runs, whoever makes it.
func (l *Ledger) Verify(ctx context.Context, ticketID string, verifier, custodian model.Identity, guard Guard) (*model.Ticket, error) {
	unused := func(ev *model.Event, t *model.Ticket) error {
		if t.IsVerified {
			return fmt.Errorf("ticket %s verified by %s: %w", t.ID, t.VerifiedBy, model.ErrAlreadyVerified)
		}
		if guard != nil {
			return guard(ev, t)
		}
		return nil
	}
	t, err := l.mutate(ctx, ticketID, unused, func(_ *model.Event, t *model.Ticket) error {
		at := l.now().UTC()
		t.IsVerified = true
		t.VerifiedBy = verifier
		t.VerifiedAt = &at
		t.IsResaleActive = false
		if !custodian.Empty() {
			t.Holder = custodian
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("verifyTicket: %w", err)
	}

	logger.Infof(ctx, "verifyTicket: ticket %s verified by %s", ticketID, verifier)
	return t, nil
}

// IsResaleActive reports false for unknown tickets.
func (l *Ledger) IsResaleActive(ctx context.Context, ticketID string) bool {
	t, err := l.GetTicket(ctx, ticketID)
	if err != nil {
		return false
	}
	return t.IsResaleActive
}

// IsTicketVerified reports false for unknown tickets.
func (l *Ledger) IsTicketVerified(ctx context.Context, ticketID string) bool {
	t, err := l.GetTicket(ctx, ticketID)
	if err != nil {
		return false
	}
	return t.IsVerified
}

func (l *Ledger) GetTicket(ctx context.Context, ticketID string) (*model.Ticket, error) {
	var t *model.Ticket
	err := l.store.View(ctx, func(tx store.Tx) error {
		var err error
		t, err = tx.Ticket(ticketID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("getTicket: %w", err)
	}
	return t, nil
}

func (l *Ledger) TicketsByHolder(ctx context.Context, holder model.Identity) ([]model.Ticket, error) {
	if holder.Empty() {
		return []model.Ticket{}, nil
	}
	return l.query(ctx, store.TicketQuery{Holder: holder})
}

func (l *Ledger) TicketsByEvent(ctx context.Context, eventID int64) ([]model.Ticket, error) {
	return l.query(ctx, store.TicketQuery{EventID: eventID})
}

// ResaleTickets returns the tickets of eventID currently offered for resale.
func (l *Ledger) ResaleTickets(ctx context.Context, eventID int64) ([]model.Ticket, error) {
	return l.query(ctx, store.TicketQuery{EventID: eventID, ResaleOnly: true})
}

func (l *Ledger) query(ctx context.Context, q store.TicketQuery) ([]model.Ticket, error) {
	tickets := []model.Ticket{}
	err := l.store.View(ctx, func(tx store.Tx) error {
		found, err := tx.Tickets(q)
		if err != nil {
			return err
		}
		tickets = append(tickets, found...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("query tickets: %w", err)
	}
	return tickets, nil
}

func (l *Ledger) mutate(ctx context.Context, ticketID string, guard Guard, apply func(*model.Event, *model.Ticket) error) (*model.Ticket, error) {
	var out *model.Ticket
	err := l.store.Update(ctx, func(tx store.Tx) error {
		t, err := tx.Ticket(ticketID)
		if err != nil {
			return err
		}
		ev, err := tx.Event(t.EventID)
		if err != nil {
			if errors.Is(err, model.ErrNotFound) {
				return fmt.Errorf("ticket %s references missing event %d: %w", ticketID, t.EventID, model.ErrConflict)
			}
			return err
		}
		if guard != nil {
			if err := guard(ev, t); err != nil {
				return err
			}
		}
		if err := apply(ev, t); err != nil {
			return err
		}
		if err := tx.UpdateTicket(t); err != nil {
			return err
		}
		out = t
		return nil
	})
	return out, err
}
