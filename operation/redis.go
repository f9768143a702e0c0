package operation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"sft-ticketing-backend/model"

	"github.com/go-redis/redis"
)

const keyPrefix = "operation-"

// Redis stores operations as JSON with a TTL of retention.
type Redis struct {
	client    *redis.Client
	retention time.Duration
}

func NewRedis(client *redis.Client, retention time.Duration) *Redis {
	return &Redis{client: client, retention: retention}
}

func (r *Redis) Begin(_ context.Context, kind string, identity model.Identity) (*Operation, error) {
	op := newOperation(kind, identity)
	if err := r.save(op); err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	return op, nil
}

func (r *Redis) Confirm(ctx context.Context, id string, result interface{}) error {
	op, err := r.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("confirm: %w", err)
	}
	if err := confirm(op, result); err != nil {
		return fmt.Errorf("confirm: %w", err)
	}
	return r.save(op)
}

func (r *Redis) Fail(ctx context.Context, id, errorStatus, message string) error {
	op, err := r.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("fail: %w", err)
	}
	if err := fail(op, errorStatus, message); err != nil {
		return fmt.Errorf("fail: %w", err)
	}
	return r.save(op)
}

func (r *Redis) Get(_ context.Context, id string) (*Operation, error) {
	raw, err := r.client.Get(keyPrefix + id).Result()
	if err == redis.Nil {
		return nil, fmt.Errorf("get: operation %s: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get: unable to read operation %s: %w", id, err)
	}

	op := &Operation{}
	if err := json.Unmarshal([]byte(raw), op); err != nil {
		return nil, fmt.Errorf("get: unable to decode operation %s: %w", id, err)
	}
	return op, nil
}

func (r *Redis) save(op *Operation) error {
	b, err := json.Marshal(op)
	if err != nil {
		return fmt.Errorf("save: unable to encode operation %s: %w", op.ID, err)
	}
	if err := r.client.Set(keyPrefix+op.ID, b, r.retention).Err(); err != nil {
		return fmt.Errorf("save: unable to save operation %s: %w", op.ID, err)
	}
	return nil
}
