package gate

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base32"
	"fmt"
	"strconv"
	"time"

	"sft-ticketing-backend/constants"
	"sft-ticketing-backend/logger"
	"sft-ticketing-backend/model"
	"sft-ticketing-backend/rabbitmq"
	"sft-ticketing-backend/store"
	"sft-ticketing-backend/ticket"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const defaultPeriod = 30

type Config struct {
	// Secret derives the per-event entry-code seeds.
	Secret string
	// CodeRequired makes self-verification require the current entry code.
	CodeRequired bool
	// Period is the entry-code lifetime in seconds.
	Period    uint
	Publisher rabbitmq.Publisher
	Now       func() time.Time
}

// Gate verifies tickets at the venue entrance.
type Gate struct {
	store  store.Store
	ledger *ticket.Ledger
	cfg    Config
}

func New(s store.Store, l *ticket.Ledger, cfg Config) *Gate {
	if cfg.Period == 0 {
		cfg.Period = defaultPeriod
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Gate{store: s, ledger: l, cfg: cfg}
}

// VerifyTicketEntry is the gate scanning a ticket: it is marked used and
// custody moves to the gate.
func (g *Gate) VerifyTicketEntry(ctx context.Context, ticketID string, gateIdentity model.Identity) (*model.Ticket, error) {
	t, err := g.ledger.Verify(ctx, ticketID, gateIdentity, gateIdentity, gateOnly(gateIdentity))
	if err != nil {
		return nil, fmt.Errorf("verifyTicketEntry: %w", err)
	}
	rabbitmq.Notify(ctx, g.cfg.Publisher, constants.TicketVerified, t)
	return t, nil
}

// ValidateTicket marks the ticket used without taking custody.
func (g *Gate) ValidateTicket(ctx context.Context, ticketID string, gateIdentity model.Identity) (*model.Ticket, error) {
	t, err := g.ledger.Verify(ctx, ticketID, gateIdentity, "", gateOnly(gateIdentity))
	if err != nil {
		return nil, fmt.Errorf("validateTicket: %w", err)
	}
	rabbitmq.Notify(ctx, g.cfg.Publisher, constants.TicketVerified, t)
	return t, nil
}

// VerifyMyTicket lets the holder mark their own ticket used. When entry codes
// are required, code must match the one shown at the entrance.
func (g *Gate) VerifyMyTicket(ctx context.Context, ticketID string, holder model.Identity, code string) (*model.Ticket, error) {
	at := g.cfg.Now()
	t, err := g.ledger.Verify(ctx, ticketID, holder, "", func(ev *model.Event, t *model.Ticket) error {
		if holder.Empty() || t.Holder != holder {
			return fmt.Errorf("%s does not hold ticket %s: %w", holder, t.ID, model.ErrUnauthorized)
		}
		if !g.cfg.CodeRequired {
			return nil
		}
		ok, err := totp.ValidateCustom(code, g.seed(ev.ID), at, g.opts())
		if err != nil || !ok {
			return fmt.Errorf("entry code for event %d is invalid: %w", ev.ID, model.ErrUnauthorized)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("verifyMyTicket: %w", err)
	}
	rabbitmq.Notify(ctx, g.cfg.Publisher, constants.TicketVerified, t)
	return t, nil
}

// EntryCode is the code currently displayed at the gate of eventID.
type EntryCode struct {
	EventID   int64     `json:"event_id"`
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (g *Gate) EntryCode(ctx context.Context, eventID int64, gateIdentity model.Identity) (*EntryCode, error) {
	err := g.store.View(ctx, func(tx store.Tx) error {
		ev, err := tx.Event(eventID)
		if err != nil {
			return err
		}
		if !ev.IsGate(gateIdentity) {
			return fmt.Errorf("%s is not the gate of event %d: %w", gateIdentity, eventID, model.ErrUnauthorized)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("entryCode: %w", err)
	}

	at := g.cfg.Now()
	code, err := totp.GenerateCodeCustom(g.seed(eventID), at, g.opts())
	if err != nil {
		return nil, fmt.Errorf("entryCode: unable to generate code: %w", err)
	}

	period := int64(g.cfg.Period)
	expires := time.Unix((at.Unix()/period+1)*period, 0).UTC()
	logger.Debugf(ctx, "entryCode: code for event %d valid until %s", eventID, expires)
	return &EntryCode{EventID: eventID, Code: code, ExpiresAt: expires}, nil
}

func (g *Gate) opts() totp.ValidateOpts {
	return totp.ValidateOpts{
		Period:    g.cfg.Period,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	}
}

// seed is the base32 TOTP secret of one event.
func (g *Gate) seed(eventID int64) string {
	mac := hmac.New(sha256.New, []byte(g.cfg.Secret))
	mac.Write([]byte(strconv.FormatInt(eventID, 10)))
	return base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(mac.Sum(nil))
}

func gateOnly(caller model.Identity) ticket.Guard {
	return func(ev *model.Event, t *model.Ticket) error {
		if !ev.IsGate(caller) {
			return fmt.Errorf("%s is not the gate of event %d: %w", caller, ev.ID, model.ErrUnauthorized)
		}
		return nil
	}
}
