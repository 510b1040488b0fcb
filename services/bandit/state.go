package bandit

import (
	"sync"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/upb/bandit-router/models"
	"github.com/upb/bandit-router/services"
)

// armState is the full mutable state of one backend. Every kind of
// state is maintained on every update so the hybrid policy can read
// count/mean statistics and ridge statistics from the same store.
type armState struct {
	mu sync.Mutex

	pulls       int64
	totalReward float64

	// Beta posterior, alpha and beta stay strictly positive.
	alpha float64
	beta  float64

	// Ridge state, nil when the store has no context dimension.
	a *mat.SymDense
	b *mat.VecDense

	updatedAt time.Time
	version   int64
}

// ArmStateStore holds per-backend learning state. Reads return deep
// copies; updates serialize per arm but run in parallel across arms.
type ArmStateStore struct {
	arms             map[string]*armState
	order            []string
	kind             models.StateKind
	dim              int
	successThreshold float64
}

// NewArmStateStore creates a store with one arm per catalog backend,
// each at the uniform prior: Beta(1,1), zero pulls, and for dim > 0 a
// ridge state of A = lambda*I, b = 0.
func NewArmStateStore(backends []models.Backend, kind models.StateKind, dim int, lambda, successThreshold float64) (*ArmStateStore, error) {
	if len(backends) == 0 {
		return nil, services.ErrEmptyBackendCatalog
	}
	if kind == models.StateKindLinear && dim <= 0 {
		return nil, services.ErrInvalidDimension.WithDetail("dim", dim)
	}
	if lambda <= 0 {
		lambda = 1.0
	}

	store := &ArmStateStore{
		arms:             make(map[string]*armState, len(backends)),
		order:            make([]string, 0, len(backends)),
		kind:             kind,
		dim:              dim,
		successThreshold: successThreshold,
	}
	for _, backend := range backends {
		arm := &armState{alpha: 1, beta: 1, updatedAt: time.Now()}
		if dim > 0 {
			arm.a = identityScaled(dim, lambda)
			arm.b = mat.NewVecDense(dim, nil)
		}
		store.arms[backend.ID] = arm
		store.order = append(store.order, backend.ID)
	}
	return store, nil
}

func identityScaled(dim int, lambda float64) *mat.SymDense {
	a := mat.NewSymDense(dim, nil)
	for i := 0; i < dim; i++ {
		a.SetSym(i, i, lambda)
	}
	return a
}

// Order returns backend ids in catalog order. The slice is shared and
// must not be modified.
func (s *ArmStateStore) Order() []string { return s.order }

// Dim returns the context dimension, zero for non-contextual stores.
func (s *ArmStateStore) Dim() int { return s.dim }

// Kind returns the state kind the store persists as.
func (s *ArmStateStore) Kind() models.StateKind { return s.kind }

// Snapshot returns a deep copy of one arm's state.
func (s *ArmStateStore) Snapshot(backendID string) (models.ArmStateSnapshot, error) {
	arm, ok := s.arms[backendID]
	if !ok {
		return models.ArmStateSnapshot{}, services.ErrBackendNotFound.WithDetail("backend_id", backendID)
	}

	arm.mu.Lock()
	defer arm.mu.Unlock()
	return s.snapshotLocked(backendID, arm), nil
}

// Snapshots returns deep copies of every arm's state in catalog order.
// Each arm is copied under its own lock; the result is per-arm
// consistent, which is what the selection algorithms require.
func (s *ArmStateStore) Snapshots() []models.ArmStateSnapshot {
	snaps := make([]models.ArmStateSnapshot, 0, len(s.order))
	for _, id := range s.order {
		arm := s.arms[id]
		arm.mu.Lock()
		snaps = append(snaps, s.snapshotLocked(id, arm))
		arm.mu.Unlock()
	}
	return snaps
}

func (s *ArmStateStore) snapshotLocked(id string, arm *armState) models.ArmStateSnapshot {
	snap := models.ArmStateSnapshot{
		BackendID:   id,
		Kind:        s.kind,
		Pulls:       arm.pulls,
		TotalReward: arm.totalReward,
		Alpha:       arm.alpha,
		Beta:        arm.beta,
		Dim:         s.dim,
		UpdatedAt:   arm.updatedAt,
		Version:     arm.version,
	}
	if arm.pulls > 0 {
		snap.MeanReward = arm.totalReward / float64(arm.pulls)
	}
	if arm.a != nil {
		snap.A = flattenSym(arm.a, s.dim)
		snap.B = append([]float64(nil), arm.b.RawVector().Data...)
	}
	return snap
}

func flattenSym(a *mat.SymDense, dim int) []float64 {
	out := make([]float64, dim*dim)
	for i := 0; i < dim; i++ {
		for j := 0; j < dim; j++ {
			out[i*dim+j] = a.At(i, j)
		}
	}
	return out
}

// Update applies one observed reward to one arm. The Beta posterior
// thresholds the reward at the success threshold (the boundary counts
// as success); the ridge state accumulates the continuous reward as
// A += x*x^T, b += r*x. contextVec may be nil for non-contextual use.
// Validation happens before any mutation.
func (s *ArmStateStore) Update(backendID string, reward float64, contextVec []float64) error {
	arm, ok := s.arms[backendID]
	if !ok {
		return services.ErrBackendNotFound.WithDetail("backend_id", backendID)
	}
	if contextVec != nil && len(contextVec) != s.dim {
		return services.ErrDimensionMismatch.
			WithDetail("expected", s.dim).
			WithDetail("got", len(contextVec))
	}

	arm.mu.Lock()
	defer arm.mu.Unlock()

	arm.pulls++
	arm.totalReward += reward
	if reward >= s.successThreshold {
		arm.alpha++
	} else {
		arm.beta++
	}
	if arm.a != nil && contextVec != nil {
		x := mat.NewVecDense(s.dim, contextVec)
		arm.a.SymRankOne(arm.a, 1.0, x)
		arm.b.AddScaledVec(arm.b, reward, x)
	}
	arm.updatedAt = time.Now()
	arm.version++
	return nil
}

// Load replaces arm state from persisted snapshots, used for warm
// starts and informed priors. Snapshots for unknown backends are
// skipped; a dimension mismatch on any snapshot aborts the load.
func (s *ArmStateStore) Load(snapshots []models.ArmStateSnapshot) error {
	for _, snap := range snapshots {
		if len(snap.A) > 0 && snap.Dim != s.dim {
			return services.ErrDimensionMismatch.
				WithDetail("backend_id", snap.BackendID).
				WithDetail("expected", s.dim).
				WithDetail("got", snap.Dim)
		}
	}

	for _, snap := range snapshots {
		arm, ok := s.arms[snap.BackendID]
		if !ok {
			continue
		}
		arm.mu.Lock()
		arm.pulls = snap.Pulls
		arm.totalReward = snap.TotalReward
		if snap.Alpha > 0 {
			arm.alpha = snap.Alpha
		}
		if snap.Beta > 0 {
			arm.beta = snap.Beta
		}
		if len(snap.A) == s.dim*s.dim && s.dim > 0 {
			a := mat.NewSymDense(s.dim, nil)
			for i := 0; i < s.dim; i++ {
				for j := i; j < s.dim; j++ {
					a.SetSym(i, j, snap.A[i*s.dim+j])
				}
			}
			arm.a = a
			arm.b = mat.NewVecDense(s.dim, append([]float64(nil), snap.B...))
		}
		arm.updatedAt = snap.UpdatedAt
		arm.version = snap.Version
		arm.mu.Unlock()
	}
	return nil
}

// Reset returns every arm to the uniform prior.
func (s *ArmStateStore) Reset(lambda float64) {
	if lambda <= 0 {
		lambda = 1.0
	}
	for _, id := range s.order {
		arm := s.arms[id]
		arm.mu.Lock()
		arm.pulls = 0
		arm.totalReward = 0
		arm.alpha = 1
		arm.beta = 1
		if s.dim > 0 {
			arm.a = identityScaled(s.dim, lambda)
			arm.b = mat.NewVecDense(s.dim, nil)
		}
		arm.updatedAt = time.Now()
		arm.version = 0
		arm.mu.Unlock()
	}
}

// TotalPulls sums pull counts across all arms.
func (s *ArmStateStore) TotalPulls() int64 {
	var total int64
	for _, id := range s.order {
		arm := s.arms[id]
		arm.mu.Lock()
		total += arm.pulls
		arm.mu.Unlock()
	}
	return total
}
