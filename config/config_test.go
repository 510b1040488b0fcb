package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Environment: "development",
		Routing: RoutingConfig{
			Algorithm:                AlgorithmHybrid,
			CatalogPath:              "backends.yaml",
			EmbeddingDim:             384,
			SuccessThreshold:         0.7,
			UCB1C:                    1.5,
			Epsilon:                  0.1,
			EpsilonDecay:             0.995,
			EpsilonFloor:             0.01,
			LinUCBAlpha:              1.0,
			LambdaReg:                1.0,
			HybridSwitchThreshold:    2000,
			RewardWeightExplicit:     0.7,
			RewardWeightImplicit:     0.3,
			RetryReward:              0.3,
			RetryWindow:              5 * time.Minute,
			RetrySimilarityThreshold: 0.95,
			DecisionLedgerSize:       10000,
		},
		Observability: ObservabilityConfig{LogLevel: "info", LogFormat: "json"},
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Run("valid config passes", func(t *testing.T) {
		assert.NoError(t, validConfig().Validate())
	})

	t.Run("unknown algorithm rejected", func(t *testing.T) {
		cfg := validConfig()
		cfg.Routing.Algorithm = "gradient_descent"
		assert.ErrorContains(t, cfg.Validate(), "unknown routing algorithm")
	})

	t.Run("weights must sum to one", func(t *testing.T) {
		cfg := validConfig()
		cfg.Routing.RewardWeightExplicit = 0.5
		cfg.Routing.RewardWeightImplicit = 0.3
		assert.ErrorContains(t, cfg.Validate(), "reward weights must sum to 1")
	})

	t.Run("embedding dimension must be positive", func(t *testing.T) {
		cfg := validConfig()
		cfg.Routing.EmbeddingDim = 0
		assert.ErrorContains(t, cfg.Validate(), "embedding dimension")
	})

	t.Run("success threshold bounded", func(t *testing.T) {
		cfg := validConfig()
		cfg.Routing.SuccessThreshold = 1.3
		assert.ErrorContains(t, cfg.Validate(), "success threshold")
	})

	t.Run("epsilon floor cannot exceed epsilon", func(t *testing.T) {
		cfg := validConfig()
		cfg.Routing.EpsilonFloor = 0.5
		cfg.Routing.Epsilon = 0.1
		assert.ErrorContains(t, cfg.Validate(), "epsilon floor")
	})

	t.Run("hybrid threshold must be positive", func(t *testing.T) {
		cfg := validConfig()
		cfg.Routing.HybridSwitchThreshold = 0
		assert.ErrorContains(t, cfg.Validate(), "hybrid switch threshold")
	})
}

func TestNew_LoadsDefaults(t *testing.T) {
	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, AlgorithmHybrid, cfg.Routing.Algorithm)
	assert.Equal(t, 384, cfg.Routing.EmbeddingDim)
	assert.Equal(t, 0.7, cfg.Routing.SuccessThreshold)
	assert.Equal(t, int64(2000), cfg.Routing.HybridSwitchThreshold)
	assert.False(t, cfg.CacheEnabled())
}

func TestNew_EnvOverrides(t *testing.T) {
	t.Setenv("ROUTING_ALGORITHM", "ucb1")
	t.Setenv("EMBEDDING_DIM", "128")
	t.Setenv("SUCCESS_THRESHOLD", "0.8")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, AlgorithmUCB1, cfg.Routing.Algorithm)
	assert.Equal(t, 128, cfg.Routing.EmbeddingDim)
	assert.Equal(t, 0.8, cfg.Routing.SuccessThreshold)
	assert.True(t, cfg.CacheEnabled())
}

func TestParseCatalog(t *testing.T) {
	t.Run("valid catalog", func(t *testing.T) {
		data := []byte(`backends:
  - id: gpt-4o-mini
    provider: openai
    cost_per_input_token: 0.00015
    cost_per_output_token: 0.0006
    expected_quality: 0.85
  - id: claude-sonnet-4
    provider: anthropic
    cost_per_input_token: 0.003
    cost_per_output_token: 0.015
    expected_quality: 0.95
`)
		backends, err := ParseCatalog(data)
		require.NoError(t, err)
		require.Len(t, backends, 2)
		assert.Equal(t, "gpt-4o-mini", backends[0].ID)
		assert.Equal(t, "anthropic", backends[1].Provider)
		assert.InDelta(t, 0.009, backends[1].AverageCost(), 1e-12)
	})

	t.Run("empty catalog rejected", func(t *testing.T) {
		_, err := ParseCatalog([]byte("backends: []"))
		assert.ErrorContains(t, err, "empty")
	})

	t.Run("duplicate ids rejected", func(t *testing.T) {
		data := []byte(`backends:
  - id: gpt-4o
    expected_quality: 0.9
  - id: gpt-4o
    expected_quality: 0.9
`)
		_, err := ParseCatalog(data)
		assert.ErrorContains(t, err, "duplicate backend id")
	})

	t.Run("quality out of range rejected", func(t *testing.T) {
		data := []byte(`backends:
  - id: gpt-4o
    expected_quality: 1.2
`)
		_, err := ParseCatalog(data)
		assert.ErrorContains(t, err, "expected quality")
	})
}
