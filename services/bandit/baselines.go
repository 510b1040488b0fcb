package bandit

import (
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/upb/bandit-router/models"
)

// The baselines never learn. They exist for comparison runs against
// the bandit policies and read only static catalog metadata.

// Random picks an arm uniformly at random.
type Random struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandom creates a uniform random selector.
func NewRandom(src rand.Source) *Random {
	return &Random{rng: rand.New(src)}
}

func (r *Random) Name() string { return "random" }

func (r *Random) Select(_ []float64, snapshots []models.ArmStateSnapshot) (Decision, error) {
	if d, done, err := checkArms(r.Name(), snapshots); done {
		return d, err
	}

	r.mu.Lock()
	pick := r.rng.IntN(len(snapshots))
	r.mu.Unlock()

	return Decision{
		BackendID: snapshots[pick].BackendID,
		Score:     1.0 / float64(len(snapshots)),
		Rationale: "random: uniform pick",
	}, nil
}

// AlwaysBest picks the backend with the highest expected quality from
// the static catalog.
type AlwaysBest struct {
	quality map[string]float64
}

// NewAlwaysBest creates the quality-maximizing baseline.
func NewAlwaysBest(catalog []models.Backend) *AlwaysBest {
	quality := make(map[string]float64, len(catalog))
	for _, b := range catalog {
		quality[b.ID] = b.ExpectedQuality
	}
	return &AlwaysBest{quality: quality}
}

func (a *AlwaysBest) Name() string { return "always_best" }

func (a *AlwaysBest) Select(_ []float64, snapshots []models.ArmStateSnapshot) (Decision, error) {
	if d, done, err := checkArms(a.Name(), snapshots); done {
		return d, err
	}

	scores := make([]float64, len(snapshots))
	for i, snap := range snapshots {
		scores[i] = a.quality[snap.BackendID]
	}
	best := argmax(scores)
	return Decision{
		BackendID: snapshots[best].BackendID,
		Score:     scores[best],
		Rationale: fmt.Sprintf("always_best: expected quality %.2f", scores[best]),
	}, nil
}

// AlwaysCheapest picks the backend with the lowest average per-token
// cost from the static catalog.
type AlwaysCheapest struct {
	cost map[string]float64
}

// NewAlwaysCheapest creates the cost-minimizing baseline.
func NewAlwaysCheapest(catalog []models.Backend) *AlwaysCheapest {
	cost := make(map[string]float64, len(catalog))
	for _, b := range catalog {
		cost[b.ID] = b.AverageCost()
	}
	return &AlwaysCheapest{cost: cost}
}

func (a *AlwaysCheapest) Name() string { return "always_cheapest" }

func (a *AlwaysCheapest) Select(_ []float64, snapshots []models.ArmStateSnapshot) (Decision, error) {
	if d, done, err := checkArms(a.Name(), snapshots); done {
		return d, err
	}

	scores := make([]float64, len(snapshots))
	for i, snap := range snapshots {
		scores[i] = -a.cost[snap.BackendID]
	}
	best := argmax(scores)
	return Decision{
		BackendID: snapshots[best].BackendID,
		Score:     -scores[best],
		Rationale: fmt.Sprintf("always_cheapest: average cost %.6f", -scores[best]),
	}, nil
}

// RewardFn returns the true expected reward of a backend for a
// context. Only evaluation harnesses can supply one.
type RewardFn func(backendID string, contextVec []float64) float64

// Oracle picks the arm with the highest true expected reward. It is an
// offline-evaluation ceiling for regret measurements, never a serving
// policy.
type Oracle struct {
	reward RewardFn
}

// NewOracle creates an oracle baseline over the given reward function.
func NewOracle(reward RewardFn) *Oracle {
	return &Oracle{reward: reward}
}

func (o *Oracle) Name() string { return "oracle" }

func (o *Oracle) Select(contextVec []float64, snapshots []models.ArmStateSnapshot) (Decision, error) {
	if d, done, err := checkArms(o.Name(), snapshots); done {
		return d, err
	}

	scores := make([]float64, len(snapshots))
	for i, snap := range snapshots {
		scores[i] = o.reward(snap.BackendID, contextVec)
	}
	best := argmax(scores)
	return Decision{
		BackendID: snapshots[best].BackendID,
		Score:     scores[best],
		Rationale: fmt.Sprintf("oracle: true reward %.3f", scores[best]),
	}, nil
}
