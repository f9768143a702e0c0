package ticket

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"sft-ticketing-backend/model"
	"sft-ticketing-backend/store"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLite(t *testing.T) store.Store {
	t.Helper()
	db, err := sql.Open(store.DriverSQLite, ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	s, err := store.NewSQL(context.Background(), db, store.DriverSQLite)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func setup(t *testing.T, supply uint64) (*Ledger, store.Store, *model.Event) {
	t.Helper()
	return setupOn(t, store.NewMemory(), supply)
}

func setupOn(t *testing.T, s store.Store, supply uint64) (*Ledger, store.Store, *model.Event) {
	t.Helper()
	e := &model.Event{
		Name:           "Concert",
		Date:           "2026-11-20",
		Time:           "20:00",
		Price:          model.MustAmount("0.1"),
		MaxResalePrice: model.MustAmount("0.15"),
		MaxSupply:      supply,
		Available:      supply,
		Creator:        "alice",
		GateAddress:    "gate",
		Active:         true,
		ResaleAllowed:  true,
		CreatedAt:      time.Now(),
	}
	require.NoError(t, s.Update(context.Background(), func(tx store.Tx) error {
		return tx.InsertEvent(e)
	}))
	return NewLedger(s), s, e
}

func available(t *testing.T, s store.Store, id int64) uint64 {
	t.Helper()
	var left uint64
	require.NoError(t, s.View(context.Background(), func(tx store.Tx) error {
		ev, err := tx.Event(id)
		if err != nil {
			return err
		}
		left = ev.Available
		return nil
	}))
	return left
}

func TestIssueTicket(t *testing.T) {
	ctx := context.Background()
	l, s, e := setup(t, 2)

	first, err := l.IssueTicket(ctx, e.ID, "bob")
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, model.Identity("bob"), first.Holder)
	assert.False(t, first.IsResaleActive)
	assert.False(t, first.IsVerified)
	assert.Equal(t, uint64(1), available(t, s, e.ID))

	second, err := l.IssueTicket(ctx, e.ID, "carol")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, uint64(0), available(t, s, e.ID))

	_, err = l.IssueTicket(ctx, e.ID, "dave")
	assert.True(t, errors.Is(err, model.ErrCapacity))
	assert.Equal(t, uint64(0), available(t, s, e.ID))

	_, err = l.IssueTicket(ctx, 99, "dave")
	assert.True(t, errors.Is(err, model.ErrNotFound))
}

func TestIssueTicketsAtomic(t *testing.T) {
	ctx := context.Background()
	l, s, e := setup(t, 3)

	_, err := l.IssueTickets(ctx, e.ID, "bob", 4, nil)
	assert.True(t, errors.Is(err, model.ErrCapacity))
	assert.Equal(t, uint64(3), available(t, s, e.ID))

	payment := errors.New("declined")
	_, err = l.IssueTickets(ctx, e.ID, "bob", 2, func(*model.Event) error { return payment })
	assert.True(t, errors.Is(err, payment))
	assert.Equal(t, uint64(3), available(t, s, e.ID))

	tickets, err := l.IssueTickets(ctx, e.ID, "bob", 3, func(ev *model.Event) error {
		assert.Equal(t, uint64(3), ev.Available)
		return nil
	})
	require.NoError(t, err)
	assert.Len(t, tickets, 3)
	assert.Equal(t, uint64(0), available(t, s, e.ID))

	held, err := l.TicketsByHolder(ctx, "bob")
	require.NoError(t, err)
	assert.Len(t, held, 3)
}

func TestIssueTicketsConcurrently(t *testing.T) {
	ctx := context.Background()
	l, s, e := setup(t, 10)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		sold     int
		capacity int
	)
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.IssueTicket(ctx, e.ID, "bob")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				sold++
			case errors.Is(err, model.ErrCapacity):
				capacity++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, sold)
	assert.Equal(t, 15, capacity)
	assert.Equal(t, uint64(0), available(t, s, e.ID))

	tickets, err := l.TicketsByEvent(ctx, e.ID)
	require.NoError(t, err)
	assert.Len(t, tickets, 10)
}

func TestToggleResale(t *testing.T) {
	ctx := context.Background()
	l, _, e := setup(t, 5)
	tk, err := l.IssueTicket(ctx, e.ID, "bob")
	require.NoError(t, err)

	on, err := l.ToggleResale(ctx, tk.ID)
	require.NoError(t, err)
	assert.True(t, on.IsResaleActive)
	assert.Equal(t, e.Price, on.ResalePrice)
	assert.True(t, l.IsResaleActive(ctx, tk.ID))

	off, err := l.ToggleResale(ctx, tk.ID)
	require.NoError(t, err)
	assert.False(t, off.IsResaleActive)
	assert.False(t, l.IsResaleActive(ctx, tk.ID))

	_, err = l.ToggleResale(ctx, "missing")
	assert.True(t, errors.Is(err, model.ErrNotFound))
	assert.False(t, l.IsResaleActive(ctx, "missing"))
}

func TestListForResaleGuard(t *testing.T) {
	ctx := context.Background()
	l, _, e := setup(t, 5)
	tk, err := l.IssueTicket(ctx, e.ID, "bob")
	require.NoError(t, err)

	denied := errors.New("denied")
	_, err = l.ListForResale(ctx, tk.ID, 5, func(*model.Event, *model.Ticket) error { return denied })
	assert.True(t, errors.Is(err, denied))
	assert.False(t, l.IsResaleActive(ctx, tk.ID))

	listed, err := l.ListForResale(ctx, tk.ID, 5, nil)
	require.NoError(t, err)
	assert.Equal(t, model.Amount(5), listed.ResalePrice)

	resale, err := l.ResaleTickets(ctx, e.ID)
	require.NoError(t, err)
	require.Len(t, resale, 1)
	assert.Equal(t, tk.ID, resale[0].ID)
}

func TestTransfer(t *testing.T) {
	ctx := context.Background()
	l, _, e := setup(t, 5)
	tk, err := l.IssueTicket(ctx, e.ID, "bob")
	require.NoError(t, err)
	_, err = l.ToggleResale(ctx, tk.ID)
	require.NoError(t, err)

	moved, err := l.Transfer(ctx, tk.ID, "carol", nil)
	require.NoError(t, err)
	assert.Equal(t, model.Identity("carol"), moved.Holder)
	assert.False(t, moved.IsResaleActive)
	assert.Equal(t, model.Amount(0), moved.ResalePrice)

	_, err = l.Transfer(ctx, tk.ID, "", nil)
	assert.True(t, errors.Is(err, model.ErrValidation))
}

func TestVerifyTicket(t *testing.T) {
	ctx := context.Background()
	l, _, e := setup(t, 5)
	tk, err := l.IssueTicket(ctx, e.ID, "bob")
	require.NoError(t, err)
	_, err = l.ToggleResale(ctx, tk.ID)
	require.NoError(t, err)

	assert.False(t, l.IsTicketVerified(ctx, tk.ID))
	v, err := l.VerifyTicket(ctx, tk.ID, "gate")
	require.NoError(t, err)
	assert.True(t, v.IsVerified)
	assert.False(t, v.IsResaleActive)
	assert.Equal(t, model.Identity("gate"), v.VerifiedBy)
	assert.Equal(t, model.Identity("bob"), v.Holder)
	require.NotNil(t, v.VerifiedAt)
	assert.True(t, l.IsTicketVerified(ctx, tk.ID))

	_, err = l.VerifyTicket(ctx, tk.ID, "gate")
	assert.True(t, errors.Is(err, model.ErrAlreadyVerified))

	_, err = l.VerifyTicket(ctx, "missing", "gate")
	assert.True(t, errors.Is(err, model.ErrNotFound))
	assert.False(t, l.IsTicketVerified(ctx, "missing"))
}

func TestVerifyWithCustodian(t *testing.T) {
	ctx := context.Background()
	l, _, e := setup(t, 5)
	tk, err := l.IssueTicket(ctx, e.ID, "bob")
	require.NoError(t, err)

	v, err := l.Verify(ctx, tk.ID, "gate", "gate", nil)
	require.NoError(t, err)
	assert.Equal(t, model.Identity("gate"), v.Holder)
}

func TestTicketsByHolderEmptyIdentity(t *testing.T) {
	l, _, _ := setup(t, 1)
	tickets, err := l.TicketsByHolder(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, tickets)
}

func TestLedgerOnEveryStore(t *testing.T) {
	for name, open := range map[string]func(*testing.T) store.Store{
		"memory": func(*testing.T) store.Store { return store.NewMemory() },
		"sqlite": newSQLite,
	} {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			l, s, e := setupOn(t, open(t), 2)

			issued, err := l.IssueTickets(ctx, e.ID, "bob", 2, nil)
			require.NoError(t, err)
			_, err = l.IssueTicket(ctx, e.ID, "carol")
			assert.True(t, errors.Is(err, model.ErrCapacity))
			assert.Equal(t, uint64(0), available(t, s, e.ID))

			id := issued[0].ID
			_, err = l.ListForResale(ctx, id, model.MustAmount("0.14"), nil)
			require.NoError(t, err)

			moved, err := l.Transfer(ctx, id, "carol", nil)
			require.NoError(t, err)
			assert.Equal(t, model.Amount(0), moved.ResalePrice)

			relisted, err := l.ToggleResale(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, e.Price, relisted.ResalePrice)

			verified, err := l.Verify(ctx, id, "gate", "gate", nil)
			require.NoError(t, err)
			assert.False(t, verified.IsResaleActive)
			assert.True(t, l.IsTicketVerified(ctx, id))

			_, err = l.ToggleResale(ctx, id)
			assert.True(t, errors.Is(err, model.ErrAlreadyVerified))
			_, err = l.ListForResale(ctx, id, model.MustAmount("0.1"), nil)
			assert.True(t, errors.Is(err, model.ErrAlreadyVerified))
		})
	}
}

func TestVerifyReportsUsedTicketBeforeGuard(t *testing.T) {
	ctx := context.Background()
	l, _, e := setup(t, 5)
	tk, err := l.IssueTicket(ctx, e.ID, "bob")
	require.NoError(t, err)

	_, err = l.Verify(ctx, tk.ID, "gate", "gate", nil)
	require.NoError(t, err)

	guarded := false
	_, err = l.Verify(ctx, tk.ID, "bob", "", func(*model.Event, *model.Ticket) error {
		guarded = true
		return model.ErrUnauthorized
	})
	assert.True(t, errors.Is(err, model.ErrAlreadyVerified))
	assert.False(t, errors.Is(err, model.ErrUnauthorized))
	assert.False(t, guarded)
}
