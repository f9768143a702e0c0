package wallet

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"sft-ticketing-backend/logger"
	"sft-ticketing-backend/model"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
)

const DefaultNetwork = "testnet"

type ChangeKind string

const (
	Connected      ChangeKind = "connected"
	Disconnected   ChangeKind = "disconnected"
	NetworkChanged ChangeKind = "network_changed"
)

// Change is delivered to subscribers whenever a session changes.
type Change struct {
	Kind     ChangeKind     `json:"kind"`
	Identity model.Identity `json:"identity"`
	Network  string         `json:"network"`
}

type Session struct {
	Token     string         `json:"token"`
	Identity  model.Identity `json:"identity"`
	Network   string         `json:"network"`
	ExpiresAt time.Time      `json:"expires_at"`
}

type claims struct {
	jwt.StandardClaims
	Network string `json:"network"`
}

// Revocations remembers disconnected sessions until they would have expired.
type Revocations interface {
	Revoke(ctx context.Context, sessionID string, ttl time.Duration) error
	Revoked(ctx context.Context, sessionID string) (bool, error)
}

// Manager issues and resolves wallet sessions. A session is an HS256 token
// naming the connected identity; the provider that proved the identity is not
// the backend's concern.
type Manager struct {
	secret      []byte
	ttl         time.Duration
	revocations Revocations
	now         func() time.Time

	mu        sync.RWMutex
	listeners []func(Change)
}

func NewManager(secret string, ttl time.Duration, r Revocations) *Manager {
	if r == nil {
		r = NewMemoryRevocations()
	}
	return &Manager{secret: []byte(secret), ttl: ttl, revocations: r, now: time.Now}
}

// Connect opens a session for identity on network.
func (m *Manager) Connect(ctx context.Context, identity model.Identity, network string) (*Session, error) {
	if identity.Empty() {
		return nil, fmt.Errorf("connect: empty identity: %w", model.ErrValidation)
	}
	if network == "" {
		network = DefaultNetwork
	}

	s, err := m.issue(identity, network)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	logger.Infof(ctx, "connect: wallet %s connected on %s", identity, network)
	m.notify(Change{Kind: Connected, Identity: identity, Network: network})
	return s, nil
}

// Disconnect revokes the session behind token.
func (m *Manager) Disconnect(ctx context.Context, token string) error {
	c, err := m.parse(ctx, token)
	if err != nil {
		return fmt.Errorf("disconnect: %w", err)
	}
	if err := m.revoke(ctx, c); err != nil {
		return fmt.Errorf("disconnect: %w", err)
	}

	m.notify(Change{Kind: Disconnected, Identity: model.Identity(c.Subject), Network: c.Network})
	return nil
}

// CurrentIdentity resolves token. It reports false for missing, invalid,
// expired or revoked sessions.
func (m *Manager) CurrentIdentity(ctx context.Context, token string) (model.Identity, bool) {
	s, err := m.Session(ctx, token)
	if err != nil {
		return "", false
	}
	return s.Identity, true
}

func (m *Manager) Session(ctx context.Context, token string) (*Session, error) {
	c, err := m.parse(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}
	return &Session{
		Token:     token,
		Identity:  model.Identity(c.Subject),
		Network:   c.Network,
		ExpiresAt: time.Unix(c.ExpiresAt, 0).UTC(),
	}, nil
}

// SwitchNetwork replaces the session behind token with one on network.
func (m *Manager) SwitchNetwork(ctx context.Context, token, network string) (*Session, error) {
	if network == "" {
		return nil, fmt.Errorf("switchNetwork: empty network: %w", model.ErrValidation)
	}
	c, err := m.parse(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("switchNetwork: %w", err)
	}
	identity := model.Identity(c.Subject)

	s, err := m.issue(identity, network)
	if err != nil {
		return nil, fmt.Errorf("switchNetwork: %w", err)
	}
	if err := m.revoke(ctx, c); err != nil {
		return nil, fmt.Errorf("switchNetwork: %w", err)
	}

	m.notify(Change{Kind: NetworkChanged, Identity: identity, Network: network})
	return s, nil
}

// Subscribe registers fn for every later session change.
func (m *Manager) Subscribe(fn func(Change)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

func (m *Manager) notify(c Change) {
	m.mu.RLock()
	listeners := append(([]func(Change))(nil), m.listeners...)
	m.mu.RUnlock()
	for _, fn := range listeners {
		fn(c)
	}
}

func (m *Manager) issue(identity model.Identity, network string) (*Session, error) {
	now := m.now()
	expires := now.Add(m.ttl)
	c := claims{
		StandardClaims: jwt.StandardClaims{
			Id:        uuid.New().String(),
			Subject:   string(identity),
			IssuedAt:  now.Unix(),
			ExpiresAt: expires.Unix(),
		},
		Network: network,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(m.secret)
	if err != nil {
		return nil, fmt.Errorf("issue: unable to sign session: %w", err)
	}
	return &Session{Token: signed, Identity: identity, Network: network, ExpiresAt: time.Unix(expires.Unix(), 0).UTC()}, nil
}

func (m *Manager) parse(ctx context.Context, token string) (*claims, error) {
	if token == "" {
		return nil, fmt.Errorf("no session token: %w", model.ErrUnauthorized)
	}

	c := &claims{}
	_, err := jwt.ParseWithClaims(token, c, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid session: %v: %w", err, model.ErrUnauthorized)
	}
	if c.Subject == "" || c.Id == "" {
		return nil, fmt.Errorf("session without identity: %w", model.ErrUnauthorized)
	}

	revoked, err := m.revocations.Revoked(ctx, c.Id)
	if err != nil {
		return nil, fmt.Errorf("unable to check session %s: %w", c.Id, err)
	}
	if revoked {
		return nil, fmt.Errorf("session %s was disconnected: %w", c.Id, model.ErrUnauthorized)
	}
	return c, nil
}

func (m *Manager) revoke(ctx context.Context, c *claims) error {
	ttl := time.Until(time.Unix(c.ExpiresAt, 0))
	if ttl <= 0 {
		return nil
	}
	return m.revocations.Revoke(ctx, c.Id, ttl)
}

// NewMemoryRevocations returns a process-local revocation list.
func NewMemoryRevocations() *MemoryRevocations {
	return &MemoryRevocations{revoked: make(map[string]time.Time)}
}

type MemoryRevocations struct {
	mu      sync.Mutex
	revoked map[string]time.Time
}

func (r *MemoryRevocations) Revoke(_ context.Context, sessionID string, ttl time.Duration) error {
	if sessionID == "" {
		return errors.New("revoke: empty session id")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	for id, until := range r.revoked {
		if now.After(until) {
			delete(r.revoked, id)
		}
	}
	r.revoked[sessionID] = now.Add(ttl)
	return nil
}

func (r *MemoryRevocations) Revoked(_ context.Context, sessionID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	until, ok := r.revoked[sessionID]
	return ok && time.Now().Before(until), nil
}
