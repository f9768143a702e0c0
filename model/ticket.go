package model

import "time"

type Ticket struct {
	ID             string     `json:"id"`
	EventID        int64      `json:"event_id"`
	Holder         Identity   `json:"holder"`
	IsResaleActive bool       `json:"is_resale_active"`
	ResalePrice    Amount     `json:"resale_price,omitempty"`
	IsVerified     bool       `json:"is_verified"`
	VerifiedBy     Identity   `json:"verified_by,omitempty"`
	VerifiedAt     *time.Time `json:"verified_at,omitempty"`
	IssuedAt       time.Time  `json:"issued_at"`
	Version        int64      `json:"-"`
}

// Listing is the marketplace view of a ticket offered for resale.
type Listing struct {
	TicketID string   `json:"ticket_id"`
	EventID  int64    `json:"event_id"`
	Price    Amount   `json:"price"`
	Seller   Identity `json:"seller"`
}

func (t Ticket) Listing() Listing {
	return Listing{
		TicketID: t.ID,
		EventID:  t.EventID,
		Price:    t.ResalePrice,
		Seller:   t.Holder,
	}
}
