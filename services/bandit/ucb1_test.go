package bandit

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/upb/bandit-router/models"
	"github.com/upb/bandit-router/services"
)

func TestUCB1_Select(t *testing.T) {
	u := NewUCB1(1.5)

	t.Run("empty catalog", func(t *testing.T) {
		_, err := u.Select(nil, nil)
		assert.ErrorIs(t, err, services.ErrEmptyBackendCatalog)
	})

	t.Run("single arm short-circuits", func(t *testing.T) {
		d, err := u.Select(nil, []models.ArmStateSnapshot{{BackendID: "only"}})
		require.NoError(t, err)
		assert.Equal(t, "only", d.BackendID)
	})

	t.Run("unpulled arms go first in catalog order", func(t *testing.T) {
		d, err := u.Select(nil, []models.ArmStateSnapshot{
			{BackendID: "a", Pulls: 3, MeanReward: 0.9},
			{BackendID: "b", Pulls: 0},
			{BackendID: "c", Pulls: 0},
		})
		require.NoError(t, err)
		assert.Equal(t, "b", d.BackendID)
		assert.True(t, math.IsInf(d.Score, 1))
	})

	t.Run("picks the highest upper bound", func(t *testing.T) {
		// total pulls 30: a bound = 0.5 + 1.5*sqrt(ln30/10) = 1.375
		//                 b bound = 0.8 + 1.5*sqrt(ln30/20) = 1.419
		d, err := u.Select(nil, []models.ArmStateSnapshot{
			{BackendID: "a", Pulls: 10, MeanReward: 0.5},
			{BackendID: "b", Pulls: 20, MeanReward: 0.8},
		})
		require.NoError(t, err)
		assert.Equal(t, "b", d.BackendID)
		assert.InDelta(t, 0.8+1.5*math.Sqrt(math.Log(30)/20), d.Score, 1e-12)
	})

	t.Run("ties break to catalog order", func(t *testing.T) {
		d, err := u.Select(nil, []models.ArmStateSnapshot{
			{BackendID: "a", Pulls: 10, MeanReward: 0.5},
			{BackendID: "b", Pulls: 10, MeanReward: 0.5},
		})
		require.NoError(t, err)
		assert.Equal(t, "a", d.BackendID)
	})
}

// Simulates the full loop: three backends, one of which is always
// rewarded far above the others.
func TestUCB1_ConvergesToRewardedArm(t *testing.T) {
	store := newTestStore(t, 0, "x", "y", "z")
	u := NewUCB1(1.5)

	reward := func(id string) float64 {
		if id == "x" {
			return 0.9
		}
		return 0.1
	}

	var picks []string
	for i := 0; i < 100; i++ {
		d, err := u.Select(nil, store.Snapshots())
		require.NoError(t, err)
		picks = append(picks, d.BackendID)
		require.NoError(t, store.Update(d.BackendID, reward(d.BackendID), nil))
	}

	assert.Equal(t, []string{"x", "y", "z"}, picks[:3], "cold start visits every arm once in catalog order")

	late := picks[89:]
	xCount := 0
	for _, id := range late {
		if id == "x" {
			xCount++
		}
	}
	assert.GreaterOrEqual(t, float64(xCount)/float64(len(late)), 0.9,
		"the rewarded arm must dominate requests 90-100")
}
