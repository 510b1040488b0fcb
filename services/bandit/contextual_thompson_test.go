package bandit

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/upb/bandit-router/models"
	"github.com/upb/bandit-router/services"
)

func TestContextualThompson_Select(t *testing.T) {
	ct := NewContextualThompson(rand.NewPCG(3, 3))

	t.Run("rejects context length mismatch", func(t *testing.T) {
		_, err := ct.Select([]float64{1, 2, 3}, []models.ArmStateSnapshot{priorSnap("a", 2), priorSnap("b", 2)})
		assert.True(t, services.IsDimensionMismatchError(err))
	})

	t.Run("tight posterior dominates", func(t *testing.T) {
		// Both arms observed 1000 pulls on x=[1]; "good" with reward 1,
		// "bad" with reward 0. Posterior variance ~1/1001 each.
		good := models.ArmStateSnapshot{BackendID: "good", A: []float64{1001}, B: []float64{1000}, Dim: 1}
		bad := models.ArmStateSnapshot{BackendID: "bad", A: []float64{1001}, B: []float64{0}, Dim: 1}

		goodCount := 0
		for i := 0; i < 100; i++ {
			d, err := ct.Select([]float64{1}, []models.ArmStateSnapshot{bad, good})
			require.NoError(t, err)
			if d.BackendID == "good" {
				goodCount++
			}
		}
		assert.Greater(t, goodCount, 95)
	})

	t.Run("singular arm degrades without failing the selection", func(t *testing.T) {
		broken := models.ArmStateSnapshot{BackendID: "broken", A: []float64{0}, B: []float64{0}, Dim: 1}
		healthy := models.ArmStateSnapshot{BackendID: "healthy", A: []float64{101}, B: []float64{100}, Dim: 1}

		d, err := ct.Select([]float64{1}, []models.ArmStateSnapshot{broken, healthy})
		require.NoError(t, err)
		assert.Equal(t, "healthy", d.BackendID)
	})

	t.Run("single arm short-circuits", func(t *testing.T) {
		d, err := ct.Select([]float64{1}, []models.ArmStateSnapshot{priorSnap("only", 1)})
		require.NoError(t, err)
		assert.Equal(t, "only", d.BackendID)
	})
}
