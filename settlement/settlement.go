package settlement

import (
	"context"
	"fmt"
	"sync"
	"time"

	"sft-ticketing-backend/logger"
	"sft-ticketing-backend/model"

	"github.com/google/uuid"
)

// Payment moves Amount from one identity to another.
type Payment struct {
	From   model.Identity `json:"from"`
	To     model.Identity `json:"to"`
	Amount model.Amount   `json:"amount"`
	Memo   string         `json:"memo,omitempty"`
}

type Receipt struct {
	TxID        string       `json:"tx_id"`
	Amount      model.Amount `json:"amount"`
	ConfirmedAt time.Time    `json:"confirmed_at"`
}

// Payer settles payments. Failures wrap model.ErrPayment.
type Payer interface {
	Pay(ctx context.Context, p Payment) (*Receipt, error)
}

// NewLedger returns an in-process payer where every unseen identity starts
// with startingBalance.
func NewLedger(startingBalance model.Amount) *Ledger {
	return &Ledger{
		starting: startingBalance,
		balances: make(map[model.Identity]model.Amount),
	}
}

// Ledger keeps balances in memory. It backs development and tests.
type Ledger struct {
	starting model.Amount

	mu       sync.Mutex
	balances map[model.Identity]model.Amount
	history  []Payment
}

func (l *Ledger) Pay(ctx context.Context, p Payment) (*Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("pay: %v: %w", err, model.ErrPayment)
	}
	if p.From.Empty() || p.To.Empty() {
		return nil, fmt.Errorf("pay: missing payer or payee: %w", model.ErrPayment)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	from := l.balance(p.From)
	if from < p.Amount {
		return nil, fmt.Errorf("pay: %s holds %s, needs %s: %w", p.From, from, p.Amount, model.ErrPayment)
	}
	l.balances[p.From] = from - p.Amount
	l.balances[p.To] = l.balance(p.To) + p.Amount
	l.history = append(l.history, p)

	r := &Receipt{
		TxID:        uuid.New().String(),
		Amount:      p.Amount,
		ConfirmedAt: time.Now().UTC(),
	}
	logger.Debugf(ctx, "pay: %s from %s to %s (%s)", p.Amount, p.From, p.To, r.TxID)
	return r, nil
}

// Credit adds amount to the identity's balance.
func (l *Ledger) Credit(id model.Identity, amount model.Amount) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[id] = l.balance(id) + amount
}

func (l *Ledger) Balance(id model.Identity) model.Amount {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balance(id)
}

// Payments returns a copy of every settled payment in order.
func (l *Ledger) Payments() []Payment {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Payment(nil), l.history...)
}

func (l *Ledger) balance(id model.Identity) model.Amount {
	b, ok := l.balances[id]
	if !ok {
		return l.starting
	}
	return b
}
