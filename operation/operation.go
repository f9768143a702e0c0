package operation

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"sft-ticketing-backend/model"

	"github.com/google/uuid"
)

type Status string

const (
	Pending   Status = "PENDING"
	Confirmed Status = "CONFIRMED"
	Failed    Status = "FAILED"
)

// Operation is the lifecycle record of one mutating request.
type Operation struct {
	ID          string          `json:"id"`
	Kind        string          `json:"kind"`
	Identity    model.Identity  `json:"identity,omitempty"`
	Status      Status          `json:"status"`
	ErrorStatus string          `json:"error_status,omitempty"`
	Message     string          `json:"message,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
	StartedAt   time.Time       `json:"started_at"`
	FinishedAt  *time.Time      `json:"finished_at,omitempty"`
}

// Tracker records operations so the front end can poll a pending one.
type Tracker interface {
	Begin(ctx context.Context, kind string, identity model.Identity) (*Operation, error)
	Confirm(ctx context.Context, id string, result interface{}) error
	Fail(ctx context.Context, id, errorStatus, message string) error
	Get(ctx context.Context, id string) (*Operation, error)
}

func newOperation(kind string, identity model.Identity) *Operation {
	return &Operation{
		ID:        uuid.New().String(),
		Kind:      kind,
		Identity:  identity,
		Status:    Pending,
		StartedAt: time.Now().UTC(),
	}
}

func confirm(op *Operation, result interface{}) error {
	if op.Status != Pending {
		return fmt.Errorf("operation %s already %s: %w", op.ID, op.Status, model.ErrConflict)
	}
	if result != nil {
		raw, err := json.Marshal(result)
		if err != nil {
			return fmt.Errorf("operation %s: unable to encode result: %w", op.ID, err)
		}
		op.Result = raw
	}
	now := time.Now().UTC()
	op.Status = Confirmed
	op.FinishedAt = &now
	return nil
}

func fail(op *Operation, errorStatus, message string) error {
	if op.Status != Pending {
		return fmt.Errorf("operation %s already %s: %w", op.ID, op.Status, model.ErrConflict)
	}
	now := time.Now().UTC()
	op.Status = Failed
	op.ErrorStatus = errorStatus
	op.Message = message
	op.FinishedAt = &now
	return nil
}

// NewMemory keeps operations in process for retention after they finish.
func NewMemory(retention time.Duration) *Memory {
	return &Memory{retention: retention, ops: make(map[string]*Operation)}
}

type Memory struct {
	retention time.Duration

	mu  sync.Mutex
	ops map[string]*Operation
}

func (m *Memory) Begin(_ context.Context, kind string, identity model.Identity) (*Operation, error) {
	op := newOperation(kind, identity)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.expire()
	m.ops[op.ID] = op
	c := *op
	return &c, nil
}

func (m *Memory) Confirm(_ context.Context, id string, result interface{}) error {
	return m.finish(id, func(op *Operation) error { return confirm(op, result) })
}

func (m *Memory) Fail(_ context.Context, id, errorStatus, message string) error {
	return m.finish(id, func(op *Operation) error { return fail(op, errorStatus, message) })
}

func (m *Memory) Get(_ context.Context, id string) (*Operation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	op, ok := m.ops[id]
	if !ok {
		return nil, fmt.Errorf("get: operation %s: %w", id, model.ErrNotFound)
	}
	c := *op
	return &c, nil
}

func (m *Memory) finish(id string, fn func(*Operation) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	op, ok := m.ops[id]
	if !ok {
		return fmt.Errorf("finish: operation %s: %w", id, model.ErrNotFound)
	}
	return fn(op)
}

// expire runs under mu.
func (m *Memory) expire() {
	if m.retention <= 0 {
		return
	}
	cutoff := time.Now().Add(-m.retention)
	for id, op := range m.ops {
		if op.FinishedAt != nil && op.FinishedAt.Before(cutoff) {
			delete(m.ops, id)
		}
	}
}
