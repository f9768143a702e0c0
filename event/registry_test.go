package event

import (
	"context"
	"errors"
	"testing"

	"sft-ticketing-backend/model"
	"sft-ticketing-backend/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func request(name, date, tm, category, price string, supply uint64) *model.CreateEventRequest {
	p := model.MustAmount(price)
	return &model.CreateEventRequest{
		Name:           name,
		Date:           date,
		Time:           tm,
		Location:       "Hall",
		Description:    "desc",
		Image:          "img.png",
		Category:       category,
		Price:          p,
		MaxResalePrice: p * 2,
		MaxSupply:      supply,
		GateAddress:    "gate",
	}
}

func TestCreateEvent(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(store.NewMemory())

	e, err := r.CreateEvent(ctx, request("Concert", "2026-11-20", "20:00", "music", "0.1", 100), "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1), e.ID)
	assert.Equal(t, uint64(100), e.Available)
	assert.Equal(t, model.Identity("alice"), e.Creator)
	assert.True(t, e.Active)

	got, err := r.GetEventByID(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, "Concert", got.Name)

	second, err := r.CreateEvent(ctx, request("Play", "2026-11-21", "19:00", "theatre", "0.2", 10), "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(2), second.ID)
}

func TestCreateEventValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*model.CreateEventRequest)
		creator model.Identity
	}{
		{"resale cap equal to price", func(r *model.CreateEventRequest) { r.MaxResalePrice = r.Price }, "alice"},
		{"resale cap below price", func(r *model.CreateEventRequest) { r.MaxResalePrice = r.Price - 1 }, "alice"},
		{"zero price", func(r *model.CreateEventRequest) { r.Price = 0 }, "alice"},
		{"zero supply", func(r *model.CreateEventRequest) { r.MaxSupply = 0 }, "alice"},
		{"missing name", func(r *model.CreateEventRequest) { r.Name = " " }, "alice"},
		{"missing gate", func(r *model.CreateEventRequest) { r.GateAddress = "" }, "alice"},
		{"bad date", func(r *model.CreateEventRequest) { r.Date = "20/11/2026" }, "alice"},
		{"bad time", func(r *model.CreateEventRequest) { r.Time = "8pm" }, "alice"},
		{"no creator", func(*model.CreateEventRequest) {}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			r := NewRegistry(store.NewMemory())

			req := request("Concert", "2026-11-20", "20:00", "music", "0.1", 100)
			tt.mutate(req)
			_, err := r.CreateEvent(ctx, req, tt.creator)
			assert.True(t, errors.Is(err, model.ErrValidation), "got %v", err)

			events, err := r.ListEvents(ctx, model.EventFilter{})
			require.NoError(t, err)
			assert.Empty(t, events)
		})
	}
}

func TestGetEventByIDNotFound(t *testing.T) {
	r := NewRegistry(store.NewMemory())
	_, err := r.GetEventByID(context.Background(), 7)
	assert.True(t, errors.Is(err, model.ErrNotFound))
}

func TestGetHostedEvents(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(store.NewMemory())

	for _, c := range []model.Identity{"alice", "bob", "alice"} {
		_, err := r.CreateEvent(ctx, request("Concert", "2026-11-20", "20:00", "music", "0.1", 10), c)
		require.NoError(t, err)
	}

	hosted, err := r.GetHostedEvents(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, hosted, 2)
	assert.Equal(t, int64(1), hosted[0].ID)
	assert.Equal(t, int64(3), hosted[1].ID)

	none, err := r.GetHostedEvents(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, none)

	none, err = r.GetHostedEvents(ctx, "mallory")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestListEvents(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	r := NewRegistry(s)

	mustCreate := func(req *model.CreateEventRequest) *model.Event {
		e, err := r.CreateEvent(ctx, req, "alice")
		require.NoError(t, err)
		return e
	}
	a := mustCreate(request("A", "2026-12-01", "20:00", "music", "0.3", 10))
	mustCreate(request("B", "2026-11-01", "21:00", "sports", "0.1", 10))
	c := mustCreate(request("C", "2026-11-01", "18:00", "music", "0.2", 4))

	// half of A sold, none of B, one of C
	require.NoError(t, s.Update(ctx, func(tx store.Tx) error {
		for id, left := range map[int64]uint64{a.ID: 5, c.ID: 3} {
			ev, err := tx.Event(id)
			if err != nil {
				return err
			}
			ev.Available = left
			if err := tx.UpdateEvent(ev); err != nil {
				return err
			}
		}
		return nil
	}))

	names := func(f model.EventFilter) []string {
		events, err := r.ListEvents(ctx, f)
		require.NoError(t, err)
		var out []string
		for _, e := range events {
			out = append(out, e.Name)
		}
		return out
	}

	assert.Equal(t, []string{"A", "B", "C"}, names(model.EventFilter{}))
	assert.Equal(t, []string{"A", "B", "C"}, names(model.EventFilter{Category: "all"}))
	assert.Equal(t, []string{"A", "C"}, names(model.EventFilter{Category: "music"}))
	assert.Empty(t, names(model.EventFilter{Category: "comedy"}))
	assert.Equal(t, []string{"C", "B", "A"}, names(model.EventFilter{Sort: model.SortDate}))
	assert.Equal(t, []string{"B", "C", "A"}, names(model.EventFilter{Sort: model.SortPrice}))
	assert.Equal(t, []string{"B", "C", "A"}, names(model.EventFilter{Sort: model.SortAvailability}))
	assert.Equal(t, []string{"C", "A"}, names(model.EventFilter{Category: "music", Sort: model.SortPrice}))

	_, err := r.ListEvents(ctx, model.EventFilter{Sort: "popularity"})
	assert.True(t, errors.Is(err, model.ErrValidation))
}

func TestListEventsReturnsCopies(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(store.NewMemory())
	_, err := r.CreateEvent(ctx, request("A", "2026-12-01", "20:00", "music", "0.3", 10), "alice")
	require.NoError(t, err)

	events, err := r.ListEvents(ctx, model.EventFilter{})
	require.NoError(t, err)
	events[0].Name = "changed"

	got, err := r.GetEventByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "A", got.Name)
}

func TestDeactivateEvent(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(store.NewMemory())
	e, err := r.CreateEvent(ctx, request("A", "2026-12-01", "20:00", "music", "0.3", 10), "alice")
	require.NoError(t, err)

	_, err = r.DeactivateEvent(ctx, e.ID, "bob")
	assert.True(t, errors.Is(err, model.ErrUnauthorized))

	got, err := r.DeactivateEvent(ctx, e.ID, "alice")
	require.NoError(t, err)
	assert.False(t, got.Active)

	_, err = r.DeactivateEvent(ctx, 99, "alice")
	assert.True(t, errors.Is(err, model.ErrNotFound))
}

func TestActivateEvent(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(store.NewMemory())
	e, err := r.CreateEvent(ctx, request("A", "2026-12-01", "20:00", "music", "0.3", 10), "alice")
	require.NoError(t, err)
	assert.True(t, e.ResaleAllowed)

	_, err = r.DeactivateEvent(ctx, e.ID, "alice")
	require.NoError(t, err)

	_, err = r.ActivateEvent(ctx, e.ID, "bob")
	assert.True(t, errors.Is(err, model.ErrUnauthorized))

	got, err := r.ActivateEvent(ctx, e.ID, "alice")
	require.NoError(t, err)
	assert.True(t, got.Active)

	again, err := r.ActivateEvent(ctx, e.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, got.Version, again.Version)
}

func TestSetResaleAllowed(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(store.NewMemory())
	e, err := r.CreateEvent(ctx, request("A", "2026-12-01", "20:00", "music", "0.3", 10), "alice")
	require.NoError(t, err)

	_, err = r.SetResaleAllowed(ctx, e.ID, "bob", false)
	assert.True(t, errors.Is(err, model.ErrUnauthorized))

	got, err := r.SetResaleAllowed(ctx, e.ID, "alice", false)
	require.NoError(t, err)
	assert.False(t, got.ResaleAllowed)

	stored, err := r.GetEventByID(ctx, e.ID)
	require.NoError(t, err)
	assert.False(t, stored.ResaleAllowed)
}

func TestEntryGates(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(store.NewMemory())
	e, err := r.CreateEvent(ctx, request("A", "2026-12-01", "20:00", "music", "0.3", 10), "alice")
	require.NoError(t, err)

	_, err = r.AuthorizeGate(ctx, e.ID, "bob", "side-door")
	assert.True(t, errors.Is(err, model.ErrUnauthorized))
	_, err = r.AuthorizeGate(ctx, e.ID, "alice", "")
	assert.True(t, errors.Is(err, model.ErrValidation))

	got, err := r.AuthorizeGate(ctx, e.ID, "alice", "side-door")
	require.NoError(t, err)
	assert.Equal(t, []model.Identity{"side-door"}, got.Gates)
	assert.True(t, got.IsGate("side-door"))

	got, err = r.AuthorizeGate(ctx, e.ID, "alice", "side-door")
	require.NoError(t, err)
	assert.Len(t, got.Gates, 1)

	_, err = r.RevokeGate(ctx, e.ID, "alice", "gate")
	assert.True(t, errors.Is(err, model.ErrValidation))

	got, err = r.RevokeGate(ctx, e.ID, "alice", "side-door")
	require.NoError(t, err)
	assert.Empty(t, got.Gates)
	assert.False(t, got.IsGate("side-door"))
	assert.True(t, got.IsGate("gate"))
}
