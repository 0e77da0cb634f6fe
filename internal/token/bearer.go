package token

import (
	"errors"
	"sync"
	"time"

	"github.com/keerthanachowdary21/Live-Video-Calls/pkg/auth"
)

// Authorizer yields the bearer credential for provider calls.
type Authorizer interface {
	Bearer() (string, error)
}

// StaticKey is a pre-issued provider API key.
type StaticKey string

func (k StaticKey) Bearer() (string, error) {
	if k == "" {
		return "", errors.New("no provider api key configured")
	}
	return string(k), nil
}

// ManagementKey mints management tokens and reuses each one until it is
// within a tenth of its lifetime of expiring.
type ManagementKey struct {
	signer *auth.ManagementSigner
	ttl    time.Duration
	now    func() time.Time

	mu      sync.Mutex
	token   string
	renewAt time.Time
}

func NewManagementKey(signer *auth.ManagementSigner, ttl time.Duration) *ManagementKey {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &ManagementKey{signer: signer, ttl: ttl, now: time.Now}
}

func (m *ManagementKey) Bearer() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if m.token != "" && now.Before(m.renewAt) {
		return m.token, nil
	}
	tok, err := m.signer.Sign(m.ttl)
	if err != nil {
		return "", err
	}
	m.token = tok
	m.renewAt = now.Add(m.ttl - m.ttl/10)
	return tok, nil
}
