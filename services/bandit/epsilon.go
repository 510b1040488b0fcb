package bandit

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"sync/atomic"

	"github.com/upb/bandit-router/models"
)

// EpsilonGreedy explores uniformly at random with probability epsilon
// and otherwise exploits the arm with the highest running mean.
// Epsilon decays geometrically per selection down to a floor.
type EpsilonGreedy struct {
	epsilon0 float64
	decay    float64
	floor    float64

	selections atomic.Int64

	mu  sync.Mutex
	rng *rand.Rand
}

// NewEpsilonGreedy creates an epsilon-greedy selector. decay of 1.0
// disables the schedule and keeps epsilon constant.
func NewEpsilonGreedy(epsilon, decay, floor float64, src rand.Source) *EpsilonGreedy {
	return &EpsilonGreedy{
		epsilon0: epsilon,
		decay:    decay,
		floor:    floor,
		rng:      rand.New(src),
	}
}

func (e *EpsilonGreedy) Name() string { return "epsilon_greedy" }

// Epsilon returns the exploration probability for the t-th selection.
func (e *EpsilonGreedy) Epsilon(t int64) float64 {
	return math.Max(e.floor, e.epsilon0*math.Pow(e.decay, float64(t)))
}

func (e *EpsilonGreedy) Select(_ []float64, snapshots []models.ArmStateSnapshot) (Decision, error) {
	if d, done, err := checkArms(e.Name(), snapshots); done {
		return d, err
	}

	t := e.selections.Add(1) - 1
	eps := e.Epsilon(t)

	e.mu.Lock()
	explore := e.rng.Float64() < eps
	var pick int
	if explore {
		pick = e.rng.IntN(len(snapshots))
	}
	e.mu.Unlock()

	if explore {
		return Decision{
			BackendID: snapshots[pick].BackendID,
			Score:     snapshots[pick].MeanReward,
			Rationale: fmt.Sprintf("epsilon_greedy: explore at eps %.4f", eps),
		}, nil
	}

	scores := make([]float64, len(snapshots))
	for i, snap := range snapshots {
		scores[i] = snap.MeanReward
	}
	best := argmax(scores)
	return Decision{
		BackendID: snapshots[best].BackendID,
		Score:     scores[best],
		Rationale: fmt.Sprintf("epsilon_greedy: exploit mean %.3f at eps %.4f", scores[best], eps),
	}, nil
}
