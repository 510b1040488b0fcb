package bandit

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/upb/bandit-router/config"
	"github.com/upb/bandit-router/services"
)

func TestNew(t *testing.T) {
	cfg := config.RoutingConfig{
		UCB1C:                 1.5,
		Epsilon:               0.1,
		EpsilonDecay:          0.995,
		EpsilonFloor:          0.01,
		LinUCBAlpha:           1.0,
		HybridSwitchThreshold: 2000,
	}
	catalog := baselineCatalog()

	tests := []struct {
		algorithm config.Algorithm
		name      string
	}{
		{config.AlgorithmUCB1, "ucb1"},
		{config.AlgorithmEpsilonGreedy, "epsilon_greedy"},
		{config.AlgorithmThompson, "thompson"},
		{config.AlgorithmContextualThompson, "contextual_thompson"},
		{config.AlgorithmLinUCB, "linucb"},
		{config.AlgorithmHybrid, "hybrid"},
		{config.AlgorithmRandom, "random"},
		{config.AlgorithmAlwaysBest, "always_best"},
		{config.AlgorithmAlwaysCheapest, "always_cheapest"},
	}

	for _, tt := range tests {
		t.Run(string(tt.algorithm), func(t *testing.T) {
			cfg := cfg
			cfg.Algorithm = tt.algorithm
			sel, err := New(cfg, catalog, rand.NewPCG(1, 1))
			require.NoError(t, err)
			assert.Equal(t, tt.name, sel.Name())
		})
	}

	t.Run("unknown algorithm", func(t *testing.T) {
		cfg := cfg
		cfg.Algorithm = "genetic"
		_, err := New(cfg, catalog, rand.NewPCG(1, 1))
		assert.ErrorIs(t, err, services.ErrUnknownAlgorithm)
	})
}
