package bandit

import (
	"fmt"
	"math/rand/v2"
	"sync"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/upb/bandit-router/models"
)

// Thompson samples each arm's Beta posterior and picks the largest
// draw. It ignores the context.
type Thompson struct {
	mu  sync.Mutex
	src rand.Source
}

// NewThompson creates a non-contextual Thompson sampling selector.
func NewThompson(src rand.Source) *Thompson {
	return &Thompson{src: src}
}

func (t *Thompson) Name() string { return "thompson" }

func (t *Thompson) Select(_ []float64, snapshots []models.ArmStateSnapshot) (Decision, error) {
	if d, done, err := checkArms(t.Name(), snapshots); done {
		return d, err
	}

	scores := make([]float64, len(snapshots))
	t.mu.Lock()
	for i, snap := range snapshots {
		dist := distuv.Beta{Alpha: snap.Alpha, Beta: snap.Beta, Src: t.src}
		scores[i] = dist.Rand()
	}
	t.mu.Unlock()

	best := argmax(scores)
	return Decision{
		BackendID: snapshots[best].BackendID,
		Score:     scores[best],
		Rationale: fmt.Sprintf("thompson: draw %.3f from Beta(%.0f, %.0f)", scores[best], snapshots[best].Alpha, snapshots[best].Beta),
	}, nil
}
