package event

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"sft-ticketing-backend/constants"
	"sft-ticketing-backend/logger"
	"sft-ticketing-backend/model"
	"sft-ticketing-backend/rabbitmq"
	"sft-ticketing-backend/store"
)

// NewRegistry returns the event registry backed by s.
func NewRegistry(s store.Store) *Registry {
	return &Registry{store: s, now: time.Now}
}

// Registry holds the set of events and their configuration.
type Registry struct {
	store     store.Store
	publisher rabbitmq.Publisher
	now       func() time.Time
}

// WithPublisher announces created and deactivated events through p.
func (r *Registry) WithPublisher(p rabbitmq.Publisher) *Registry {
	r.publisher = p
	return r
}

// CreateEvent validates req and appends a new event owned by creator.
func (r *Registry) CreateEvent(ctx context.Context, req *model.CreateEventRequest, creator model.Identity) (*model.Event, error) {
	if creator.Empty() {
		return nil, fmt.Errorf("createEvent: no creator identity: %w", model.ErrValidation)
	}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("createEvent: %w", err)
	}

	e := &model.Event{
		Name:           strings.TrimSpace(req.Name),
		Date:           req.Date,
		Time:           req.Time,
		Location:       strings.TrimSpace(req.Location),
		Description:    req.Description,
		Image:          req.Image,
		Category:       strings.TrimSpace(req.Category),
		Price:          req.Price,
		MaxResalePrice: req.MaxResalePrice,
		MaxSupply:      req.MaxSupply,
		Available:      req.MaxSupply,
		Creator:        creator,
		GateAddress:    req.GateAddress,
		Active:         true,
		ResaleAllowed:  true,
		CreatedAt:      r.now().UTC(),
	}

	err := r.store.Update(ctx, func(tx store.Tx) error {
		return tx.InsertEvent(e)
	})
	if err != nil {
		return nil, fmt.Errorf("createEvent: error inserting event by: %s: %w", creator, err)
	}

	rabbitmq.Notify(ctx, r.publisher, constants.EventCreated, e)
	logger.Infof(ctx, "createEvent: event %d created by %s with supply %d", e.ID, creator, e.MaxSupply)
	return e, nil
}

func (r *Registry) GetEventByID(ctx context.Context, id int64) (*model.Event, error) {
	var e *model.Event
	err := r.store.View(ctx, func(tx store.Tx) error {
		var err error
		e, err = tx.Event(id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("getEventByID: %w", err)
	}
	return e, nil
}

// GetHostedEvents returns the events created by identity in creation order.
func (r *Registry) GetHostedEvents(ctx context.Context, identity model.Identity) ([]model.Event, error) {
	hosted := []model.Event{}
	if identity.Empty() {
		return hosted, nil
	}

	events, err := r.all(ctx)
	if err != nil {
		return nil, fmt.Errorf("getHostedEvents: %w", err)
	}
	for _, e := range events {
		if e.Creator == identity {
			hosted = append(hosted, e)
		}
	}
	return hosted, nil
}

// ListEvents filters by category and applies a stable sort. The returned slice
// is a copy.
func (r *Registry) ListEvents(ctx context.Context, f model.EventFilter) ([]model.Event, error) {
	less, err := sorter(f.Sort)
	if err != nil {
		return nil, fmt.Errorf("listEvents: %w", err)
	}

	events, err := r.all(ctx)
	if err != nil {
		return nil, fmt.Errorf("listEvents: %w", err)
	}

	out := []model.Event{}
	for _, e := range events {
		if f.Category == "" || strings.EqualFold(f.Category, model.CategoryAll) || e.Category == f.Category {
			out = append(out, e)
		}
	}

	if less != nil {
		sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	}
	return out, nil
}

// DeactivateEvent stops primary sales. Only the creator may deactivate.
func (r *Registry) DeactivateEvent(ctx context.Context, id int64, caller model.Identity) (*model.Event, error) {
	e, err := r.configure(ctx, id, caller, func(e *model.Event) (bool, error) {
		if !e.Active {
			return false, nil
		}
		e.Active = false
		return true, nil
	})
	if err != nil {
		return nil, fmt.Errorf("deactivateEvent: %w", err)
	}

	rabbitmq.Notify(ctx, r.publisher, constants.EventDeactivated, e)
	logger.Infof(ctx, "deactivateEvent: event %d deactivated by %s", id, caller)
	return e, nil
}

// ActivateEvent reopens primary sales of a deactivated event.
func (r *Registry) ActivateEvent(ctx context.Context, id int64, caller model.Identity) (*model.Event, error) {
	e, err := r.configure(ctx, id, caller, func(e *model.Event) (bool, error) {
		if e.Active {
			return false, nil
		}
		e.Active = true
		return true, nil
	})
	if err != nil {
		return nil, fmt.Errorf("activateEvent: %w", err)
	}

	rabbitmq.Notify(ctx, r.publisher, constants.EventActivated, e)
	logger.Infof(ctx, "activateEvent: event %d activated by %s", id, caller)
	return e, nil
}

// SetResaleAllowed opens or closes the resale market of an event. Listings
// made while it was open stay listed but cannot be bought until it reopens.
func (r *Registry) SetResaleAllowed(ctx context.Context, id int64, caller model.Identity, allowed bool) (*model.Event, error) {
	e, err := r.configure(ctx, id, caller, func(e *model.Event) (bool, error) {
		if e.ResaleAllowed == allowed {
			return false, nil
		}
		e.ResaleAllowed = allowed
		return true, nil
	})
	if err != nil {
		return nil, fmt.Errorf("setResaleAllowed: %w", err)
	}

	rabbitmq.Notify(ctx, r.publisher, constants.EventUpdated, e)
	logger.Infof(ctx, "setResaleAllowed: resale of event %d set to %t by %s", id, allowed, caller)
	return e, nil
}

// AuthorizeGate lets gate verify tickets of the event besides its gate address.
func (r *Registry) AuthorizeGate(ctx context.Context, id int64, caller, gate model.Identity) (*model.Event, error) {
	if gate.Empty() {
		return nil, fmt.Errorf("authorizeGate: no gate identity: %w", model.ErrValidation)
	}
	e, err := r.configure(ctx, id, caller, func(e *model.Event) (bool, error) {
		if e.IsGate(gate) {
			return false, nil
		}
		gates := make([]model.Identity, 0, len(e.Gates)+1)
		e.Gates = append(append(gates, e.Gates...), gate)
		return true, nil
	})
	if err != nil {
		return nil, fmt.Errorf("authorizeGate: %w", err)
	}

	rabbitmq.Notify(ctx, r.publisher, constants.EventUpdated, e)
	logger.Infof(ctx, "authorizeGate: %s may verify tickets of event %d", gate, id)
	return e, nil
}

// RevokeGate withdraws a gate added by AuthorizeGate. The gate address given
// at creation cannot be revoked.
func (r *Registry) RevokeGate(ctx context.Context, id int64, caller, gate model.Identity) (*model.Event, error) {
	e, err := r.configure(ctx, id, caller, func(e *model.Event) (bool, error) {
		if e.GateAddress == gate {
			return false, fmt.Errorf("%s is the gate address of event %d: %w", gate, id, model.ErrValidation)
		}
		gates := make([]model.Identity, 0, len(e.Gates))
		for _, g := range e.Gates {
			if g != gate {
				gates = append(gates, g)
			}
		}
		if len(gates) == len(e.Gates) {
			return false, nil
		}
		e.Gates = gates
		return true, nil
	})
	if err != nil {
		return nil, fmt.Errorf("revokeGate: %w", err)
	}

	rabbitmq.Notify(ctx, r.publisher, constants.EventUpdated, e)
	logger.Infof(ctx, "revokeGate: %s may no longer verify tickets of event %d", gate, id)
	return e, nil
}

// configure applies a creator-only change to an event. apply reports whether
// anything changed; unchanged events are not written.
func (r *Registry) configure(ctx context.Context, id int64, caller model.Identity, apply func(e *model.Event) (bool, error)) (*model.Event, error) {
	var e *model.Event
	err := r.store.Update(ctx, func(tx store.Tx) error {
		var err error
		e, err = tx.Event(id)
		if err != nil {
			return err
		}
		if e.Creator != caller {
			return fmt.Errorf("event %d is hosted by %s: %w", id, e.Creator, model.ErrUnauthorized)
		}
		changed, err := apply(e)
		if err != nil || !changed {
			return err
		}
		return tx.UpdateEvent(e)
	})
	return e, err
}

func (r *Registry) all(ctx context.Context) ([]model.Event, error) {
	var events []model.Event
	err := r.store.View(ctx, func(tx store.Tx) error {
		var err error
		events, err = tx.Events()
		return err
	})
	return events, err
}

func sorter(key string) (func(a, b model.Event) bool, error) {
	switch key {
	case model.SortNone:
		return nil, nil
	case model.SortDate:
		return func(a, b model.Event) bool {
			if a.Date != b.Date {
				return a.Date < b.Date
			}
			return a.Time < b.Time
		}, nil
	case model.SortPrice:
		return func(a, b model.Event) bool { return a.Price < b.Price }, nil
	case model.SortAvailability:
		return func(a, b model.Event) bool { return a.AvailableFraction() > b.AvailableFraction() }, nil
	}
	return nil, fmt.Errorf("unknown sort %q: %w", key, model.ErrValidation)
}
