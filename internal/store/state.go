package store

import (
	"context"
	"time"

	"github.com/goccy/go-json"
)

// DeploymentState is the per-deployment runtime state persisted under the
// "{group}_map" key. Field shapes mirror pkg/router.DeploymentStats so the
// JSON written here is structurally compatible with the teacher's existing
// stats snapshots, but ownership moves from BaseRouter's embedded map to
// this Store-backed, JSON-marshaled value.
type DeploymentState struct {
	DeploymentID string `json:"deployment_id"`

	TotalRequests  int64 `json:"total_requests"`
	SuccessCount   int64 `json:"success_count"`
	FailureCount   int64 `json:"failure_count"`
	ActiveRequests int64 `json:"active_requests"`

	LatencyHistory []float64 `json:"latency_history_ms"`
	TTFTHistory    []float64 `json:"ttft_history_ms"`

	CurrentMinuteTPM int64  `json:"current_minute_tpm"`
	CurrentMinuteRPM int64  `json:"current_minute_rpm"`
	CurrentMinuteKey string `json:"current_minute_key"`

	LastRequestTime time.Time `json:"last_request_time"`
}

// DeploymentMap is the value shape stored under "{group}_map": every
// deployment's runtime state for one logical model group, keyed by
// deployment ID.
type DeploymentMap map[string]*DeploymentState

// StateStore is a typed wrapper over Store for reading/writing
// DeploymentMap and the health/cooldown scalar keys, so MetricsRecorder,
// DeploymentSelector, and HealthChecker never hand-roll JSON marshaling.
type StateStore struct {
	backend Store
	ttl     time.Duration
}

// NewStateStore wraps backend. ttl bounds how long an untouched group map
// survives in the store (refreshed on every write); zero means no expiry.
func NewStateStore(backend Store, ttl time.Duration) *StateStore {
	return &StateStore{backend: backend, ttl: ttl}
}

func groupMapKey(group string) string {
	return group + "_map"
}

// HealthKey returns the Store key holding the latest health snapshot for a
// deployment.
func HealthKey(deploymentID string) string {
	return "health:" + deploymentID
}

// CooldownKey returns the Store key holding the cooldown-until timestamp for
// a deployment.
func CooldownKey(deploymentID string) string {
	return "cooldown:" + deploymentID
}

// GetDeploymentMap returns the current DeploymentMap for group, or an empty
// map if none has been written yet.
func (s *StateStore) GetDeploymentMap(ctx context.Context, group string) (DeploymentMap, error) {
	raw, found, err := s.backend.Get(ctx, groupMapKey(group))
	if err != nil {
		return nil, err
	}
	if !found {
		return DeploymentMap{}, nil
	}
	var m DeploymentMap
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	if m == nil {
		m = DeploymentMap{}
	}
	return m, nil
}

// UpdateFunc mutates a DeploymentMap in place and returns it (or a new map)
// to be persisted.
type MapUpdateFunc func(current DeploymentMap) (DeploymentMap, error)

// UpdateDeploymentMap atomically applies fn to group's DeploymentMap via the
// underlying Store.Update, so concurrent writers (e.g. two goroutines
// recording success for different deployments in the same group) never
// clobber each other's changes.
func (s *StateStore) UpdateDeploymentMap(ctx context.Context, group string, fn MapUpdateFunc) error {
	return s.backend.Update(ctx, groupMapKey(group), s.ttl, func(current []byte, found bool) ([]byte, error) {
		var m DeploymentMap
		if found {
			if err := json.Unmarshal(current, &m); err != nil {
				return nil, err
			}
		}
		if m == nil {
			m = DeploymentMap{}
		}

		next, err := fn(m)
		if err != nil {
			return nil, err
		}
		return json.Marshal(next)
	})
}

// SetHealth persists raw (a json.Marshal'd healthcheck.Result) under
// HealthKey(deploymentID) with the given TTL, so a stale probe result
// naturally expires out of the store instead of lingering as a false
// "last known" answer.
func (s *StateStore) SetHealth(ctx context.Context, deploymentID string, raw []byte, ttl time.Duration) error {
	return s.backend.Set(ctx, HealthKey(deploymentID), raw, ttl)
}

// GetHealth returns the last raw health payload written for deploymentID.
func (s *StateStore) GetHealth(ctx context.Context, deploymentID string) ([]byte, bool, error) {
	return s.backend.Get(ctx, HealthKey(deploymentID))
}
