package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"sft-ticketing-backend/model"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLite(t *testing.T) Store {
	t.Helper()
	db, err := sql.Open(DriverSQLite, ":memory:")
	require.NoError(t, err)
	// every connection to :memory: is a separate database
	db.SetMaxOpenConns(1)

	s, err := NewSQL(context.Background(), db, DriverSQLite)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func stores(t *testing.T) map[string]Store {
	return map[string]Store{
		"memory": NewMemory(),
		"sqlite": newSQLite(t),
	}
}

func sampleEvent(creator model.Identity) *model.Event {
	return &model.Event{
		Name:           "Concert",
		Date:           "2026-11-20",
		Time:           "20:00",
		Location:       "Hall",
		Description:    "Live",
		Image:          "img.png",
		Category:       "music",
		Price:          model.MustAmount("0.1"),
		MaxResalePrice: model.MustAmount("0.2"),
		MaxSupply:      3,
		Available:      3,
		Creator:        creator,
		GateAddress:    "gate",
		Active:         true,
		ResaleAllowed:  true,
		CreatedAt:      time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC),
	}
}

func insertEvent(t *testing.T, s Store, e *model.Event) {
	t.Helper()
	require.NoError(t, s.Update(context.Background(), func(tx Tx) error {
		return tx.InsertEvent(e)
	}))
}

func TestStoreEventsAreSequential(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			a, b := sampleEvent("alice"), sampleEvent("bob")
			insertEvent(t, s, a)
			insertEvent(t, s, b)
			assert.Equal(t, int64(1), a.ID)
			assert.Equal(t, int64(2), b.ID)

			var events []model.Event
			require.NoError(t, s.View(context.Background(), func(tx Tx) error {
				var err error
				events, err = tx.Events()
				return err
			}))
			require.Len(t, events, 2)
			assert.Equal(t, model.Identity("alice"), events[0].Creator)
			assert.Equal(t, model.MustAmount("0.1"), events[1].Price)
			assert.Equal(t, uint64(3), events[1].Available)
			assert.True(t, events[1].Active)
		})
	}
}

func TestStoreRollbackOnError(t *testing.T) {
	boom := errors.New("boom")
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			e := sampleEvent("alice")
			insertEvent(t, s, e)

			err := s.Update(ctx, func(tx Tx) error {
				ev, err := tx.Event(e.ID)
				if err != nil {
					return err
				}
				ev.Available--
				if err := tx.UpdateEvent(ev); err != nil {
					return err
				}
				if err := tx.InsertTicket(&model.Ticket{ID: "t-1", EventID: ev.ID, Holder: "bob", IssuedAt: time.Now()}); err != nil {
					return err
				}
				return boom
			})
			assert.Equal(t, boom, err)

			require.NoError(t, s.View(ctx, func(tx Tx) error {
				ev, err := tx.Event(e.ID)
				require.NoError(t, err)
				assert.Equal(t, uint64(3), ev.Available)

				_, err = tx.Ticket("t-1")
				assert.True(t, errors.Is(err, model.ErrNotFound))
				return nil
			}))
		})
	}
}

func TestStoreTicketQueries(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			e1, e2 := sampleEvent("alice"), sampleEvent("alice")
			insertEvent(t, s, e1)
			insertEvent(t, s, e2)

			require.NoError(t, s.Update(ctx, func(tx Tx) error {
				for _, tk := range []model.Ticket{
					{ID: "a", EventID: e1.ID, Holder: "bob", IssuedAt: time.Now()},
					{ID: "b", EventID: e1.ID, Holder: "carol", IsResaleActive: true, ResalePrice: 5, IssuedAt: time.Now()},
					{ID: "c", EventID: e2.ID, Holder: "bob", IsResaleActive: true, ResalePrice: 7, IssuedAt: time.Now()},
				} {
					tk := tk
					if err := tx.InsertTicket(&tk); err != nil {
						return err
					}
				}
				return nil
			}))

			query := func(q TicketQuery) []string {
				var ids []string
				require.NoError(t, s.View(ctx, func(tx Tx) error {
					found, err := tx.Tickets(q)
					for _, tk := range found {
						ids = append(ids, tk.ID)
					}
					return err
				}))
				return ids
			}

			assert.Equal(t, []string{"a", "b", "c"}, query(TicketQuery{}))
			assert.Equal(t, []string{"a", "b"}, query(TicketQuery{EventID: e1.ID}))
			assert.Equal(t, []string{"a", "c"}, query(TicketQuery{Holder: "bob"}))
			assert.Equal(t, []string{"b"}, query(TicketQuery{EventID: e1.ID, ResaleOnly: true}))
		})
	}
}

func TestStoreUpdateTicket(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			e := sampleEvent("alice")
			insertEvent(t, s, e)

			require.NoError(t, s.Update(ctx, func(tx Tx) error {
				return tx.InsertTicket(&model.Ticket{ID: "t-1", EventID: e.ID, Holder: "bob", IssuedAt: time.Now()})
			}))

			at := time.Date(2026, 11, 20, 19, 30, 0, 0, time.UTC)
			require.NoError(t, s.Update(ctx, func(tx Tx) error {
				tk, err := tx.Ticket("t-1")
				if err != nil {
					return err
				}
				tk.Holder = "gate"
				tk.IsVerified = true
				tk.VerifiedBy = "gate"
				tk.VerifiedAt = &at
				return tx.UpdateTicket(tk)
			}))

			require.NoError(t, s.View(ctx, func(tx Tx) error {
				tk, err := tx.Ticket("t-1")
				require.NoError(t, err)
				assert.Equal(t, model.Identity("gate"), tk.Holder)
				assert.True(t, tk.IsVerified)
				require.NotNil(t, tk.VerifiedAt)
				assert.True(t, at.Equal(*tk.VerifiedAt))
				return nil
			}))
		})
	}
}

func TestStoreUpdateEventSettings(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			e := sampleEvent("alice")
			insertEvent(t, s, e)

			require.NoError(t, s.Update(ctx, func(tx Tx) error {
				ev, err := tx.Event(e.ID)
				if err != nil {
					return err
				}
				assert.True(t, ev.ResaleAllowed)
				assert.Empty(t, ev.Gates)
				ev.ResaleAllowed = false
				ev.Active = false
				ev.Gates = []model.Identity{"side-door", "vip"}
				return tx.UpdateEvent(ev)
			}))

			require.NoError(t, s.View(ctx, func(tx Tx) error {
				ev, err := tx.Event(e.ID)
				require.NoError(t, err)
				assert.False(t, ev.ResaleAllowed)
				assert.False(t, ev.Active)
				assert.Equal(t, []model.Identity{"side-door", "vip"}, ev.Gates)
				assert.Equal(t, int64(2), ev.Version)
				return nil
			}))
		})
	}
}

func TestStoreStaleVersionConflicts(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			e := sampleEvent("alice")
			insertEvent(t, s, e)

			var stale *model.Event
			require.NoError(t, s.View(ctx, func(tx Tx) error {
				var err error
				stale, err = tx.Event(e.ID)
				return err
			}))

			require.NoError(t, s.Update(ctx, func(tx Tx) error {
				ev, err := tx.Event(e.ID)
				if err != nil {
					return err
				}
				ev.Available--
				return tx.UpdateEvent(ev)
			}))

			if name == "memory" {
				// writers are serialized, versions are not checked
				return
			}
			err := s.Update(ctx, func(tx Tx) error {
				stale.Available--
				return tx.UpdateEvent(stale)
			})
			assert.True(t, errors.Is(err, model.ErrConflict))
		})
	}
}

func TestStoreMissingRecords(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.View(context.Background(), func(tx Tx) error {
				_, err := tx.Event(42)
				assert.True(t, errors.Is(err, model.ErrNotFound))
				_, err = tx.Ticket("nope")
				assert.True(t, errors.Is(err, model.ErrNotFound))
				return nil
			}))
		})
	}
}

func TestMemoryUpdateHonoursContext(t *testing.T) {
	s := NewMemory().(*memory)
	s.sem <- struct{}{}
	defer func() { <-s.sem }()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := s.Update(ctx, func(Tx) error { return nil })
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestMemoryViewIsReadOnly(t *testing.T) {
	s := NewMemory()
	err := s.View(context.Background(), func(tx Tx) error {
		return tx.InsertEvent(sampleEvent("alice"))
	})
	assert.Equal(t, errReadOnly, err)
}
