package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"sft-ticketing-backend/model"
)

var errReadOnly = errors.New("write inside a read-only transaction")

// NewMemory returns a process-local store. Writers are serialized; each Update
// stages its writes and applies them only when the function succeeds.
func NewMemory() Store {
	return &memory{
		sem:     make(chan struct{}, 1),
		tickets: make(map[string]model.Ticket),
	}
}

type memory struct {
	sem chan struct{}

	mu          sync.RWMutex
	events      []model.Event
	tickets     map[string]model.Ticket
	ticketOrder []string
}

func (m *memory) View(ctx context.Context, fn func(Tx) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("view: %w", err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return fn(&memTx{m: m, readOnly: true})
}

func (m *memory) Update(ctx context.Context, fn func(Tx) error) error {
	select {
	case m.sem <- struct{}{}:
	case <-ctx.Done():
		return fmt.Errorf("update: waiting for writer slot: %w", ctx.Err())
	}
	defer func() { <-m.sem }()

	tx := &memTx{
		m:             m,
		stagedEvents:  make(map[int64]model.Event),
		stagedTickets: make(map[string]model.Ticket),
	}

	m.mu.RLock()
	err := fn(tx)
	m.mu.RUnlock()
	if err != nil {
		return err
	}

	m.mu.Lock()
	tx.apply()
	m.mu.Unlock()
	return nil
}

func (m *memory) Close() error {
	return nil
}

type memTx struct {
	m        *memory
	readOnly bool

	stagedEvents map[int64]model.Event
	newEvents    []model.Event

	stagedTickets map[string]model.Ticket
	newTickets    []string
}

func (tx *memTx) InsertEvent(e *model.Event) error {
	if tx.readOnly {
		return errReadOnly
	}
	e.ID = int64(len(tx.m.events) + len(tx.newEvents) + 1)
	e.Version = 1
	tx.newEvents = append(tx.newEvents, *e)
	return nil
}

func (tx *memTx) Event(id int64) (*model.Event, error) {
	if e, ok := tx.stagedEvents[id]; ok {
		return &e, nil
	}
	base := int64(len(tx.m.events))
	switch {
	case id >= 1 && id <= base:
		e := tx.m.events[id-1]
		return &e, nil
	case id > base && id <= base+int64(len(tx.newEvents)):
		e := tx.newEvents[id-base-1]
		return &e, nil
	}
	return nil, fmt.Errorf("event %d: %w", id, model.ErrNotFound)
}

func (tx *memTx) Events() ([]model.Event, error) {
	out := make([]model.Event, 0, len(tx.m.events)+len(tx.newEvents))
	for _, e := range tx.m.events {
		if s, ok := tx.stagedEvents[e.ID]; ok {
			e = s
		}
		out = append(out, e)
	}
	for _, e := range tx.newEvents {
		if s, ok := tx.stagedEvents[e.ID]; ok {
			e = s
		}
		out = append(out, e)
	}
	return out, nil
}

func (tx *memTx) UpdateEvent(e *model.Event) error {
	if tx.readOnly {
		return errReadOnly
	}
	if _, err := tx.Event(e.ID); err != nil {
		return err
	}
	e.Version++
	tx.stagedEvents[e.ID] = *e
	return nil
}

func (tx *memTx) InsertTicket(t *model.Ticket) error {
	if tx.readOnly {
		return errReadOnly
	}
	if _, err := tx.Event(t.EventID); err != nil {
		return fmt.Errorf("insertTicket: %w", err)
	}
	if _, err := tx.Ticket(t.ID); err == nil {
		return fmt.Errorf("insertTicket: duplicate ticket id %s: %w", t.ID, model.ErrConflict)
	}
	t.Version = 1
	tx.stagedTickets[t.ID] = *t
	tx.newTickets = append(tx.newTickets, t.ID)
	return nil
}

func (tx *memTx) Ticket(id string) (*model.Ticket, error) {
	if t, ok := tx.stagedTickets[id]; ok {
		return &t, nil
	}
	if t, ok := tx.m.tickets[id]; ok {
		return &t, nil
	}
	return nil, fmt.Errorf("ticket %s: %w", id, model.ErrNotFound)
}

func (tx *memTx) Tickets(q TicketQuery) ([]model.Ticket, error) {
	var out []model.Ticket
	for _, id := range tx.m.ticketOrder {
		t, _ := tx.Ticket(id)
		if q.match(t) {
			out = append(out, *t)
		}
	}
	for _, id := range tx.newTickets {
		t := tx.stagedTickets[id]
		if q.match(&t) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (tx *memTx) UpdateTicket(t *model.Ticket) error {
	if tx.readOnly {
		return errReadOnly
	}
	if _, err := tx.Ticket(t.ID); err != nil {
		return err
	}
	t.Version++
	tx.stagedTickets[t.ID] = *t
	return nil
}

// apply runs under the write lock.
func (tx *memTx) apply() {
	tx.m.events = append(tx.m.events, tx.newEvents...)
	for id, e := range tx.stagedEvents {
		tx.m.events[id-1] = e
	}
	for id, t := range tx.stagedTickets {
		tx.m.tickets[id] = t
	}
	tx.m.ticketOrder = append(tx.m.ticketOrder, tx.newTickets...)
}
