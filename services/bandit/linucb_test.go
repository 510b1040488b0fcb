package bandit

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/upb/bandit-router/models"
	"github.com/upb/bandit-router/services"
)

func priorSnap(id string, dim int) models.ArmStateSnapshot {
	a := make([]float64, dim*dim)
	for i := 0; i < dim; i++ {
		a[i*dim+i] = 1
	}
	return models.ArmStateSnapshot{
		BackendID: id, Kind: models.StateKindLinear,
		A: a, B: make([]float64, dim), Dim: dim,
	}
}

func TestLinUCB_Select(t *testing.T) {
	l := NewLinUCB(1.0)

	t.Run("rejects context length mismatch", func(t *testing.T) {
		_, err := l.Select([]float64{1}, []models.ArmStateSnapshot{priorSnap("a", 2), priorSnap("b", 2)})
		assert.True(t, services.IsDimensionMismatchError(err))
	})

	t.Run("prefers the trained arm on its direction", func(t *testing.T) {
		// Arm "fit" saw x=[1,0] with reward 1 fifty times.
		fit := priorSnap("fit", 2)
		fit.A = []float64{51, 0, 0, 1}
		fit.B = []float64{50, 0}
		cold := priorSnap("cold", 2)

		d, err := l.Select([]float64{1, 0}, []models.ArmStateSnapshot{cold, fit})
		require.NoError(t, err)
		assert.Equal(t, "fit", d.BackendID)

		// theta = 50/51, bonus = sqrt(1/51)
		want := 50.0/51.0 + math.Sqrt(1.0/51.0)
		assert.InDelta(t, want, d.Score, 1e-9)
	})

	t.Run("identical priors tie-break to catalog order", func(t *testing.T) {
		d, err := l.Select([]float64{0.3, 0.7}, []models.ArmStateSnapshot{priorSnap("a", 2), priorSnap("b", 2)})
		require.NoError(t, err)
		assert.Equal(t, "a", d.BackendID)
	})

	t.Run("singular arm degrades to zero, others unaffected", func(t *testing.T) {
		broken := priorSnap("broken", 2)
		broken.A = []float64{0, 0, 0, 0}
		healthy := priorSnap("healthy", 2)
		healthy.B = []float64{1, 0}

		d, err := l.Select([]float64{1, 0}, []models.ArmStateSnapshot{broken, healthy})
		require.NoError(t, err)
		assert.Equal(t, "healthy", d.BackendID)
		assert.Greater(t, d.Score, 0.0)
	})

	t.Run("deterministic for a given state", func(t *testing.T) {
		snaps := []models.ArmStateSnapshot{priorSnap("a", 3), priorSnap("b", 3)}
		x := []float64{0.1, 0.2, 0.3}

		first, err := l.Select(x, snaps)
		require.NoError(t, err)
		second, err := l.Select(x, snaps)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})
}

// Drives LinUCB through the store: two arms with opposite preferred
// context directions must each win on their own direction.
func TestLinUCB_LearnsContextDependence(t *testing.T) {
	store := newTestStore(t, 2, "left", "right")
	l := NewLinUCB(0.5)

	xLeft := []float64{1, 0}
	xRight := []float64{0, 1}
	for i := 0; i < 40; i++ {
		require.NoError(t, store.Update("left", 1.0, xLeft))
		require.NoError(t, store.Update("left", 0.0, xRight))
		require.NoError(t, store.Update("right", 1.0, xRight))
		require.NoError(t, store.Update("right", 0.0, xLeft))
	}

	d, err := l.Select(xLeft, store.Snapshots())
	require.NoError(t, err)
	assert.Equal(t, "left", d.BackendID)

	d, err = l.Select(xRight, store.Snapshots())
	require.NoError(t, err)
	assert.Equal(t, "right", d.BackendID)
}
