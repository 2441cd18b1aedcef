// Package cooldown tracks per-deployment cooldown windows so the selector
// and retry engine share one source of truth instead of each re-implementing
// it, as BaseRouter.SetCooldown/IsCircuitOpen did in the teacher codebase.
package cooldown

import (
	"context"
	"strconv"
	"time"

	"github.com/corvex/llmgate/internal/store"
)

// DefaultPeriod is the default cooldown window applied by Mark when the
// caller does not specify one, matching pkg/router.DefaultConfig's
// CooldownPeriod.
const DefaultPeriod = 60 * time.Second

// Manager marks deployments as cooling down and answers whether one
// currently is, backed by a Store so state is shared across processes when
// Store is a RedisStore.
type Manager struct {
	backend store.Store
}

// NewManager wraps backend.
func NewManager(backend store.Store) *Manager {
	return &Manager{backend: backend}
}

// Mark puts deploymentID into cooldown for duration (DefaultPeriod if <= 0).
// reason is carried only for logging by the caller; it is not persisted.
func (m *Manager) Mark(ctx context.Context, deploymentID string, duration time.Duration) error {
	if duration <= 0 {
		duration = DefaultPeriod
	}
	until := time.Now().Add(duration)
	return m.backend.Set(ctx, store.CooldownKey(deploymentID), encodeUnixNano(until), duration)
}

// IsCooling reports whether deploymentID is currently cooling down.
func (m *Manager) IsCooling(ctx context.Context, deploymentID string) (bool, error) {
	raw, found, err := m.backend.Get(ctx, store.CooldownKey(deploymentID))
	if err != nil {
		// Fail open: a Store error must never make an otherwise-healthy
		// deployment look permanently unavailable.
		return false, err
	}
	if !found {
		return false, nil
	}
	until, err := decodeUnixNano(raw)
	if err != nil {
		return false, nil
	}
	return time.Now().Before(until), nil
}

// Clear removes any cooldown on deploymentID.
func (m *Manager) Clear(ctx context.Context, deploymentID string) error {
	return m.backend.Delete(ctx, store.CooldownKey(deploymentID))
}

// Until returns the cooldown expiry time for deploymentID, or the zero time
// if it is not cooling down.
func (m *Manager) Until(ctx context.Context, deploymentID string) (time.Time, error) {
	raw, found, err := m.backend.Get(ctx, store.CooldownKey(deploymentID))
	if err != nil || !found {
		return time.Time{}, err
	}
	return decodeUnixNano(raw)
}

func encodeUnixNano(t time.Time) []byte {
	return []byte(strconv.FormatInt(t.UnixNano(), 10))
}

func decodeUnixNano(raw []byte) (time.Time, error) {
	n, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(0, n), nil
}
