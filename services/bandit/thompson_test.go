package bandit

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/upb/bandit-router/models"
)

func TestThompson_Select(t *testing.T) {
	t.Run("returns a configured arm", func(t *testing.T) {
		ts := NewThompson(rand.NewPCG(1, 1))
		d, err := ts.Select(nil, []models.ArmStateSnapshot{
			{BackendID: "a", Alpha: 1, Beta: 1},
			{BackendID: "b", Alpha: 1, Beta: 1},
		})
		require.NoError(t, err)
		assert.Contains(t, []string{"a", "b"}, d.BackendID)
		assert.GreaterOrEqual(t, d.Score, 0.0)
		assert.LessOrEqual(t, d.Score, 1.0)
	})

	t.Run("strong posterior dominates", func(t *testing.T) {
		ts := NewThompson(rand.NewPCG(42, 42))
		snaps := []models.ArmStateSnapshot{
			{BackendID: "bad", Alpha: 1, Beta: 100},
			{BackendID: "good", Alpha: 100, Beta: 1},
		}

		goodCount := 0
		for i := 0; i < 100; i++ {
			d, err := ts.Select(nil, snaps)
			require.NoError(t, err)
			if d.BackendID == "good" {
				goodCount++
			}
		}
		assert.Greater(t, goodCount, 90)
	})

	t.Run("single arm short-circuits", func(t *testing.T) {
		ts := NewThompson(rand.NewPCG(1, 1))
		d, err := ts.Select(nil, []models.ArmStateSnapshot{{BackendID: "only", Alpha: 1, Beta: 1}})
		require.NoError(t, err)
		assert.Equal(t, "only", d.BackendID)
	})
}
