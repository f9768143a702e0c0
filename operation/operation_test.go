package operation

import (
	"context"
	"errors"
	"testing"
	"time"

	"sft-ticketing-backend/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLifecycle(t *testing.T) {
	ctx := context.Background()
	tr := NewMemory(time.Hour)

	op, err := tr.Begin(ctx, "purchase", "bob")
	require.NoError(t, err)
	assert.Equal(t, Pending, op.Status)

	got, err := tr.Get(ctx, op.ID)
	require.NoError(t, err)
	assert.Equal(t, Pending, got.Status)
	assert.Nil(t, got.FinishedAt)

	require.NoError(t, tr.Confirm(ctx, op.ID, map[string]int{"tickets": 2}))
	got, err = tr.Get(ctx, op.ID)
	require.NoError(t, err)
	assert.Equal(t, Confirmed, got.Status)
	assert.JSONEq(t, `{"tickets":2}`, string(got.Result))
	assert.NotNil(t, got.FinishedAt)

	err = tr.Fail(ctx, op.ID, "PAYMENT_FAILED", "declined")
	assert.True(t, errors.Is(err, model.ErrConflict))
}

func TestMemoryFail(t *testing.T) {
	ctx := context.Background()
	tr := NewMemory(time.Hour)

	op, err := tr.Begin(ctx, "resale", "bob")
	require.NoError(t, err)
	require.NoError(t, tr.Fail(ctx, op.ID, "CAPACITY_ERROR", "sold out"))

	got, err := tr.Get(ctx, op.ID)
	require.NoError(t, err)
	assert.Equal(t, Failed, got.Status)
	assert.Equal(t, "CAPACITY_ERROR", got.ErrorStatus)
	assert.Equal(t, "sold out", got.Message)
}

func TestMemoryUnknownOperation(t *testing.T) {
	ctx := context.Background()
	tr := NewMemory(time.Hour)

	_, err := tr.Get(ctx, "missing")
	assert.True(t, errors.Is(err, model.ErrNotFound))
	assert.True(t, errors.Is(tr.Confirm(ctx, "missing", nil), model.ErrNotFound))
}

func TestMemoryRetention(t *testing.T) {
	ctx := context.Background()
	tr := NewMemory(time.Minute)

	old, err := tr.Begin(ctx, "purchase", "bob")
	require.NoError(t, err)
	require.NoError(t, tr.Confirm(ctx, old.ID, nil))
	past := time.Now().Add(-time.Hour)
	tr.ops[old.ID].FinishedAt = &past

	pending, err := tr.Begin(ctx, "purchase", "bob")
	require.NoError(t, err)

	_, err = tr.Get(ctx, old.ID)
	assert.True(t, errors.Is(err, model.ErrNotFound))
	_, err = tr.Get(ctx, pending.ID)
	assert.NoError(t, err)
}
