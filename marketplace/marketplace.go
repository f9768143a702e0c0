package marketplace

import (
	"context"
	"fmt"

	"sft-ticketing-backend/constants"
	"sft-ticketing-backend/logger"
	"sft-ticketing-backend/model"
	"sft-ticketing-backend/rabbitmq"
	"sft-ticketing-backend/settlement"
	"sft-ticketing-backend/store"
	"sft-ticketing-backend/ticket"
)

// Marketplace enforces the purchase and resale rules on top of the ledger.
// Payments are settled inside the ledger transaction, so a failed payment
// leaves every ticket and event untouched.
type Marketplace struct {
	store     store.Store
	ledger    *ticket.Ledger
	payer     settlement.Payer
	publisher rabbitmq.Publisher
}

func New(s store.Store, l *ticket.Ledger, p settlement.Payer, pub rabbitmq.Publisher) *Marketplace {
	if pub == nil {
		pub = rabbitmq.Nop{}
	}
	return &Marketplace{store: s, ledger: l, payer: p, publisher: pub}
}

// Purchase is the outcome of a primary or resale purchase.
type Purchase struct {
	Tickets []model.Ticket      `json:"tickets"`
	Receipt *settlement.Receipt `json:"receipt,omitempty"`
}

// PurchaseTickets buys quantity tickets of eventID on the primary market. The
// creator is paid price*quantity; offered must cover it.
func (m *Marketplace) PurchaseTickets(ctx context.Context, eventID int64, buyer model.Identity, quantity uint64, offered model.Amount) (*Purchase, error) {
	if buyer.Empty() {
		return nil, fmt.Errorf("purchaseTickets: no buyer identity: %w", model.ErrValidation)
	}
	if quantity == 0 {
		return nil, fmt.Errorf("purchaseTickets: quantity must be at least 1: %w", model.ErrValidation)
	}

	if err := m.checkActive(ctx, eventID); err != nil {
		return nil, fmt.Errorf("purchaseTickets: %w", err)
	}

	var receipt *settlement.Receipt
	tickets, err := m.ledger.IssueTickets(ctx, eventID, buyer, quantity, func(ev *model.Event) error {
		if !ev.Active {
			return fmt.Errorf("event %d is deactivated: %w", ev.ID, model.ErrNotActive)
		}
		total, ok := ev.Price.Mul(quantity)
		if !ok {
			return fmt.Errorf("total price overflows: %w", model.ErrValidation)
		}
		if offered < total {
			return fmt.Errorf("offered %s, %d ticket(s) cost %s: %w", offered, quantity, total, model.ErrValidation)
		}

		var err error
		receipt, err = m.payer.Pay(ctx, settlement.Payment{
			From:   buyer,
			To:     ev.Creator,
			Amount: total,
			Memo:   fmt.Sprintf("event %d: %d ticket(s)", ev.ID, quantity),
		})
		return err
	})
	if err != nil {
		return nil, unsettled(ctx, "purchaseTickets", receipt, err)
	}

	for i := range tickets {
		rabbitmq.Notify(ctx, m.publisher, constants.TicketIssued, tickets[i])
	}
	logger.Infof(ctx, "purchaseTickets: %s bought %d ticket(s) of event %d", buyer, quantity, eventID)
	return &Purchase{Tickets: tickets, Receipt: receipt}, nil
}

// ListTicketForResale puts a held, unused ticket on the resale market at price.
func (m *Marketplace) ListTicketForResale(ctx context.Context, ticketID string, seller model.Identity, price model.Amount) (*model.Ticket, error) {
	if price == 0 {
		return nil, fmt.Errorf("listTicketForResale: price must be greater than 0: %w", model.ErrValidation)
	}

	t, err := m.ledger.ListForResale(ctx, ticketID, price, func(ev *model.Event, t *model.Ticket) error {
		if t.Holder != seller {
			return fmt.Errorf("%s does not hold ticket %s: %w", seller, t.ID, model.ErrUnauthorized)
		}
		if t.IsVerified {
			return fmt.Errorf("ticket %s has been used: %w", t.ID, model.ErrAlreadyVerified)
		}
		if !ev.ResaleAllowed {
			return resaleClosed(ev)
		}
		if price > ev.MaxResalePrice {
			return fmt.Errorf("price %s above cap %s of event %d: %w", price, ev.MaxResalePrice, ev.ID, model.ErrPriceCap)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listTicketForResale: %w", err)
	}

	rabbitmq.Notify(ctx, m.publisher, constants.TicketListed, t.Listing())
	return t, nil
}

// SetResale toggles the resale flag of a ticket held by caller.
func (m *Marketplace) SetResale(ctx context.Context, ticketID string, caller model.Identity) (*model.Ticket, error) {
	t, err := m.ledger.ToggleResaleGuarded(ctx, ticketID, func(ev *model.Event, t *model.Ticket) error {
		if t.Holder != caller {
			return fmt.Errorf("%s does not hold ticket %s: %w", caller, t.ID, model.ErrUnauthorized)
		}
		if t.IsResaleActive {
			return nil
		}
		if t.IsVerified {
			return fmt.Errorf("ticket %s has been used: %w", t.ID, model.ErrAlreadyVerified)
		}
		if !ev.ResaleAllowed {
			return resaleClosed(ev)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("setResale: %w", err)
	}

	rabbitmq.Notify(ctx, m.publisher, constants.TicketResaleToggle, t)
	return t, nil
}

// ListResaleTickets returns the listings of eventID.
func (m *Marketplace) ListResaleTickets(ctx context.Context, eventID int64) ([]model.Listing, error) {
	tickets, err := m.ledger.ResaleTickets(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("listResaleTickets: %w", err)
	}

	listings := make([]model.Listing, 0, len(tickets))
	for _, t := range tickets {
		listings = append(listings, t.Listing())
	}
	return listings, nil
}

// PurchaseResale buys a listed ticket from its holder at the listing price.
func (m *Marketplace) PurchaseResale(ctx context.Context, ticketID string, buyer model.Identity, offered model.Amount) (*Purchase, error) {
	if buyer.Empty() {
		return nil, fmt.Errorf("purchaseResale: no buyer identity: %w", model.ErrValidation)
	}

	var (
		receipt *settlement.Receipt
		seller  model.Identity
	)
	t, err := m.ledger.Transfer(ctx, ticketID, buyer, func(ev *model.Event, t *model.Ticket) error {
		if t.IsVerified {
			return fmt.Errorf("ticket %s has been used: %w", t.ID, model.ErrAlreadyVerified)
		}
		if !t.IsResaleActive {
			return fmt.Errorf("ticket %s is not listed: %w", t.ID, model.ErrNotActive)
		}
		if !ev.ResaleAllowed {
			return resaleClosed(ev)
		}
		if t.Holder == buyer {
			return fmt.Errorf("%s already holds ticket %s: %w", buyer, t.ID, model.ErrValidation)
		}
		if offered < t.ResalePrice {
			return fmt.Errorf("offered %s, listing asks %s: %w", offered, t.ResalePrice, model.ErrValidation)
		}

		seller = t.Holder
		var err error
		receipt, err = m.payer.Pay(ctx, settlement.Payment{
			From:   buyer,
			To:     seller,
			Amount: t.ResalePrice,
			Memo:   fmt.Sprintf("event %d: resale of ticket %s", ev.ID, t.ID),
		})
		return err
	})
	if err != nil {
		return nil, unsettled(ctx, "purchaseResale", receipt, err)
	}

	rabbitmq.Notify(ctx, m.publisher, constants.TicketSold, map[string]interface{}{
		"ticket": t,
		"seller": seller,
		"buyer":  buyer,
	})
	logger.Infof(ctx, "purchaseResale: ticket %s sold by %s to %s", ticketID, seller, buyer)
	return &Purchase{Tickets: []model.Ticket{*t}, Receipt: receipt}, nil
}

func resaleClosed(ev *model.Event) error {
	return fmt.Errorf("resale of event %d is closed by its creator: %w", ev.ID, model.ErrNotActive)
}

func (m *Marketplace) checkActive(ctx context.Context, eventID int64) error {
	return m.store.View(ctx, func(tx store.Tx) error {
		ev, err := tx.Event(eventID)
		if err != nil {
			return err
		}
		if !ev.Active {
			return fmt.Errorf("event %d is deactivated: %w", eventID, model.ErrNotActive)
		}
		return nil
	})
}

// unsettled reports a failure that happened after the payer accepted the
// payment, so the transaction id stays reconcilable.
func unsettled(ctx context.Context, op string, receipt *settlement.Receipt, err error) error {
	if receipt == nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	logger.Errorf(ctx, "%s: payment %s settled but not recorded: %v", op, receipt.TxID, err)
	return fmt.Errorf("%s: payment %s not recorded: %w", op, receipt.TxID, err)
}
