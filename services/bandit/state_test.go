package bandit

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/upb/bandit-router/models"
	"github.com/upb/bandit-router/services"
)

func testBackends(ids ...string) []models.Backend {
	backends := make([]models.Backend, 0, len(ids))
	for _, id := range ids {
		backends = append(backends, models.Backend{ID: id, Provider: "test"})
	}
	return backends
}

func newTestStore(t *testing.T, dim int, ids ...string) *ArmStateStore {
	t.Helper()
	kind := models.StateKindCountMean
	if dim > 0 {
		kind = models.StateKindLinear
	}
	store, err := NewArmStateStore(testBackends(ids...), kind, dim, 1.0, 0.7)
	require.NoError(t, err)
	return store
}

func TestNewArmStateStore(t *testing.T) {
	t.Run("rejects empty catalog", func(t *testing.T) {
		_, err := NewArmStateStore(nil, models.StateKindBeta, 0, 1.0, 0.7)
		assert.ErrorIs(t, err, services.ErrEmptyBackendCatalog)
	})

	t.Run("rejects linear kind without dimension", func(t *testing.T) {
		_, err := NewArmStateStore(testBackends("a"), models.StateKindLinear, 0, 1.0, 0.7)
		assert.Error(t, err)
	})

	t.Run("initializes uniform priors", func(t *testing.T) {
		store := newTestStore(t, 2, "a", "b")

		snap, err := store.Snapshot("a")
		require.NoError(t, err)
		assert.Equal(t, int64(0), snap.Pulls)
		assert.Equal(t, 1.0, snap.Alpha)
		assert.Equal(t, 1.0, snap.Beta)
		assert.Equal(t, []float64{1, 0, 0, 1}, snap.A)
		assert.Equal(t, []float64{0, 0}, snap.B)
	})
}

func TestArmStateStore_BetaUpdates(t *testing.T) {
	store := newTestStore(t, 0, "a")

	for i := 0; i < 10; i++ {
		require.NoError(t, store.Update("a", 0.9, nil))
	}
	for i := 0; i < 4; i++ {
		require.NoError(t, store.Update("a", 0.1, nil))
	}

	snap, err := store.Snapshot("a")
	require.NoError(t, err)
	assert.Equal(t, 11.0, snap.Alpha, "10 successes on top of the uniform prior")
	assert.Equal(t, 5.0, snap.Beta, "4 failures on top of the uniform prior")
	assert.Equal(t, int64(14), snap.Pulls)
	assert.InDelta(t, (10*0.9+4*0.1)/14, snap.MeanReward, 1e-12)
}

func TestArmStateStore_SuccessThresholdBoundary(t *testing.T) {
	store := newTestStore(t, 0, "a")

	require.NoError(t, store.Update("a", 0.7, nil))

	snap, err := store.Snapshot("a")
	require.NoError(t, err)
	assert.Equal(t, 2.0, snap.Alpha, "reward at the threshold counts as success")
	assert.Equal(t, 1.0, snap.Beta)
}

func TestArmStateStore_LinearUpdates(t *testing.T) {
	store := newTestStore(t, 2, "a", "b")

	require.NoError(t, store.Update("a", 0.5, []float64{1, 2}))

	snap, err := store.Snapshot("a")
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 2, 2, 5}, snap.A, "A accumulates x*x^T over the identity")
	assert.Equal(t, []float64{0.5, 1.0}, snap.B, "b accumulates r*x")

	t.Run("other arms untouched", func(t *testing.T) {
		other, err := store.Snapshot("b")
		require.NoError(t, err)
		assert.Equal(t, []float64{1, 0, 0, 1}, other.A)
		assert.Equal(t, []float64{0, 0}, other.B)
		assert.Equal(t, int64(0), other.Pulls)
	})
}

func TestArmStateStore_DimensionMismatchDoesNotMutate(t *testing.T) {
	store := newTestStore(t, 3, "a")

	err := store.Update("a", 1.0, []float64{1, 2})
	assert.True(t, services.IsDimensionMismatchError(err))

	snap, err := store.Snapshot("a")
	require.NoError(t, err)
	assert.Equal(t, int64(0), snap.Pulls)
	assert.Equal(t, 1.0, snap.Alpha)
}

func TestArmStateStore_UnknownBackend(t *testing.T) {
	store := newTestStore(t, 0, "a")

	assert.True(t, services.IsNotFoundError(store.Update("zzz", 1.0, nil)))
	_, err := store.Snapshot("zzz")
	assert.True(t, services.IsNotFoundError(err))
}

func TestArmStateStore_SnapshotIsDeepCopy(t *testing.T) {
	store := newTestStore(t, 2, "a")
	require.NoError(t, store.Update("a", 1.0, []float64{1, 1}))

	snap, err := store.Snapshot("a")
	require.NoError(t, err)
	snap.A[0] = -99
	snap.B[0] = -99

	fresh, err := store.Snapshot("a")
	require.NoError(t, err)
	assert.Equal(t, 2.0, fresh.A[0])
	assert.Equal(t, 1.0, fresh.B[0])
}

func TestArmStateStore_ConcurrentUpdates(t *testing.T) {
	store := newTestStore(t, 2, "a", "b")

	const workers = 8
	const perWorker = 250

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				_ = store.Update("a", 1.0, []float64{1, 0})
			}
		}()
	}
	wg.Wait()

	snap, err := store.Snapshot("a")
	require.NoError(t, err)
	total := int64(workers * perWorker)
	assert.Equal(t, total, snap.Pulls, "no update may be lost")
	assert.Equal(t, float64(total), snap.TotalReward)
	assert.Equal(t, float64(total)+1, snap.Alpha)
	assert.Equal(t, float64(total)+1, snap.A[0], "A[0,0] = lambda + pulls for x=[1,0]")
	assert.Equal(t, total, snap.Version)
}

func TestArmStateStore_LoadAndReset(t *testing.T) {
	store := newTestStore(t, 2, "a", "b")

	err := store.Load([]models.ArmStateSnapshot{
		{
			BackendID: "a", Kind: models.StateKindLinear,
			Pulls: 42, TotalReward: 30, Alpha: 31, Beta: 13,
			A: []float64{5, 1, 1, 5}, B: []float64{3, 2}, Dim: 2, Version: 42,
		},
		{BackendID: "gone", Pulls: 7}, // unknown arms are skipped
	})
	require.NoError(t, err)

	snap, err := store.Snapshot("a")
	require.NoError(t, err)
	assert.Equal(t, int64(42), snap.Pulls)
	assert.Equal(t, 31.0, snap.Alpha)
	assert.Equal(t, []float64{5, 1, 1, 5}, snap.A)
	assert.Equal(t, int64(42), snap.Version)
	assert.Equal(t, int64(42), store.TotalPulls())

	t.Run("load rejects wrong dimension", func(t *testing.T) {
		err := store.Load([]models.ArmStateSnapshot{
			{BackendID: "a", A: []float64{1}, B: []float64{1}, Dim: 1},
		})
		assert.True(t, services.IsDimensionMismatchError(err))
	})

	t.Run("reset restores priors", func(t *testing.T) {
		store.Reset(1.0)

		snap, err := store.Snapshot("a")
		require.NoError(t, err)
		assert.Equal(t, int64(0), snap.Pulls)
		assert.Equal(t, 1.0, snap.Alpha)
		assert.Equal(t, 1.0, snap.Beta)
		assert.Equal(t, []float64{1, 0, 0, 1}, snap.A)
		assert.Equal(t, int64(0), store.TotalPulls())
	})
}

func TestArmStateStore_SnapshotsInCatalogOrder(t *testing.T) {
	store := newTestStore(t, 0, "c", "a", "b")

	snaps := store.Snapshots()
	require.Len(t, snaps, 3)
	assert.Equal(t, "c", snaps[0].BackendID)
	assert.Equal(t, "a", snaps[1].BackendID)
	assert.Equal(t, "b", snaps[2].BackendID)
}
