package bandit

import (
	"math/rand/v2"

	"github.com/upb/bandit-router/config"
	"github.com/upb/bandit-router/models"
	"github.com/upb/bandit-router/services"
)

// Decision is the outcome of one arm selection.
type Decision struct {
	BackendID string
	Score     float64
	Rationale string
}

// Selector picks one arm given the request context and a per-arm
// consistent set of state snapshots in catalog order. Select must not
// mutate arm state; learning happens only through the state store.
type Selector interface {
	Name() string
	Select(contextVec []float64, snapshots []models.ArmStateSnapshot) (Decision, error)
}

// New builds the selector named by the routing configuration. src
// seeds the stochastic selectors; pass rand.NewPCG values for
// reproducible runs.
func New(cfg config.RoutingConfig, catalog []models.Backend, src rand.Source) (Selector, error) {
	switch cfg.Algorithm {
	case config.AlgorithmUCB1:
		return NewUCB1(cfg.UCB1C), nil
	case config.AlgorithmEpsilonGreedy:
		return NewEpsilonGreedy(cfg.Epsilon, cfg.EpsilonDecay, cfg.EpsilonFloor, src), nil
	case config.AlgorithmThompson:
		return NewThompson(src), nil
	case config.AlgorithmLinUCB:
		return NewLinUCB(cfg.LinUCBAlpha), nil
	case config.AlgorithmContextualThompson:
		return NewContextualThompson(src), nil
	case config.AlgorithmHybrid:
		return NewHybrid(NewUCB1(cfg.UCB1C), NewLinUCB(cfg.LinUCBAlpha), cfg.HybridSwitchThreshold), nil
	case config.AlgorithmRandom:
		return NewRandom(src), nil
	case config.AlgorithmAlwaysBest:
		return NewAlwaysBest(catalog), nil
	case config.AlgorithmAlwaysCheapest:
		return NewAlwaysCheapest(catalog), nil
	default:
		return nil, services.ErrUnknownAlgorithm.WithDetail("algorithm", string(cfg.Algorithm))
	}
}

// argmax returns the index of the largest score. Ties break to the
// earliest index, so catalog order decides between equal arms.
func argmax(scores []float64) int {
	best := 0
	for i := 1; i < len(scores); i++ {
		if scores[i] > scores[best] {
			best = i
		}
	}
	return best
}

// checkArms validates the snapshot set and short-circuits trivial
// catalogs. The returned decision is valid only when done is true.
func checkArms(name string, snapshots []models.ArmStateSnapshot) (Decision, bool, error) {
	switch len(snapshots) {
	case 0:
		return Decision{}, true, services.ErrEmptyBackendCatalog
	case 1:
		return Decision{
			BackendID: snapshots[0].BackendID,
			Score:     1,
			Rationale: name + ": single backend",
		}, true, nil
	}
	return Decision{}, false, nil
}

// checkContext validates the context vector length against the
// snapshot dimension for contextual selectors.
func checkContext(contextVec []float64, snapshots []models.ArmStateSnapshot) error {
	dim := snapshots[0].Dim
	if dim <= 0 {
		return services.ErrInvalidDimension.WithDetail("dim", dim)
	}
	if len(contextVec) != dim {
		return services.ErrDimensionMismatch.
			WithDetail("expected", dim).
			WithDetail("got", len(contextVec))
	}
	return nil
}
