package model

import (
	"fmt"
	"time"
)

type Event struct {
	ID             int64      `json:"id"`
	Name           string     `json:"name"`
	Date           string     `json:"date"`
	Time           string     `json:"time"`
	Location       string     `json:"location"`
	Description    string     `json:"description"`
	Image          string     `json:"image"`
	Category       string     `json:"category,omitempty"`
	Price          Amount     `json:"price"`
	MaxResalePrice Amount     `json:"max_resale_price"`
	MaxSupply      uint64     `json:"max_supply"`
	Available      uint64     `json:"available"`
	Creator        Identity   `json:"creator"`
	GateAddress    Identity   `json:"gate_address"`
	Active         bool       `json:"active"`
	ResaleAllowed  bool       `json:"resale_allowed"`
	Gates          []Identity `json:"gates,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	Version        int64      `json:"-"`
}

// AvailableFraction is the share of supply still on primary sale, in [0, 1].
func (e Event) AvailableFraction() float64 {
	if e.MaxSupply == 0 {
		return 0
	}
	return float64(e.Available) / float64(e.MaxSupply)
}

// IsGate reports whether id may verify tickets at the entrance: the gate
// address given at creation or any gate the creator authorized since.
func (e Event) IsGate(id Identity) bool {
	if id.Empty() {
		return false
	}
	if e.GateAddress == id {
		return true
	}
	for _, g := range e.Gates {
		if g == id {
			return true
		}
	}
	return false
}

// CreateEventRequest is the typed input of event creation.
type CreateEventRequest struct {
	Name           string   `json:"name" validate:"notblank"`
	Date           string   `json:"date" validate:"required,datetime=2006-01-02"`
	Time           string   `json:"time" validate:"required,datetime=15:04"`
	Location       string   `json:"location" validate:"notblank"`
	Description    string   `json:"description" validate:"notblank"`
	Image          string   `json:"image" validate:"notblank"`
	Category       string   `json:"category,omitempty"`
	Price          Amount   `json:"price" validate:"gt=0"`
	MaxResalePrice Amount   `json:"max_resale_price" validate:"gtfield=Price"`
	MaxSupply      uint64   `json:"max_supply" validate:"gt=0"`
	GateAddress    Identity `json:"gate_address" validate:"notblank"`
}

// Validate checks every field and reports all problems at once.
func (r *CreateEventRequest) Validate() error {
	if r == nil {
		return fmt.Errorf("validate: missing event: %w", ErrValidation)
	}
	if err := validate.Struct(r); err != nil {
		return validationError("validate", err)
	}
	return nil
}

// Sort orders accepted by the event listing.
const (
	SortNone         = ""
	SortDate         = "date"
	SortPrice        = "price"
	SortAvailability = "availability"

	CategoryAll = "all"
)

type EventFilter struct {
	Category string `json:"category,omitempty"`
	Sort     string `json:"sort,omitempty"`
}
