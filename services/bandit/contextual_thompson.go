package bandit

import (
	"fmt"
	"math/rand/v2"
	"sync"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"

	"github.com/upb/bandit-router/models"
)

// ContextualThompson samples coefficients from each arm's Bayesian
// linear posterior N(A^-1 b, A^-1) and scores the context with the
// sampled coefficients. Arms whose A fails to factorize score zero.
type ContextualThompson struct {
	mu  sync.Mutex
	src rand.Source
}

// NewContextualThompson creates a contextual Thompson sampling selector.
func NewContextualThompson(src rand.Source) *ContextualThompson {
	return &ContextualThompson{src: src}
}

func (c *ContextualThompson) Name() string { return "contextual_thompson" }

func (c *ContextualThompson) Select(contextVec []float64, snapshots []models.ArmStateSnapshot) (Decision, error) {
	if d, done, err := checkArms(c.Name(), snapshots); done {
		return d, err
	}
	if err := checkContext(contextVec, snapshots); err != nil {
		return Decision{}, err
	}

	dim := snapshots[0].Dim
	x := mat.NewVecDense(dim, contextVec)

	scores := make([]float64, len(snapshots))
	degraded := make([]bool, len(snapshots))

	c.mu.Lock()
	for i, snap := range snapshots {
		score, ok := c.sampleScore(snap, x, dim)
		scores[i] = score
		degraded[i] = !ok
	}
	c.mu.Unlock()

	best := argmax(scores)
	rationale := fmt.Sprintf("contextual_thompson: sampled score %.3f", scores[best])
	if degraded[best] {
		rationale = "contextual_thompson: degraded arm, zero coefficients"
	}
	return Decision{
		BackendID: snapshots[best].BackendID,
		Score:     scores[best],
		Rationale: rationale,
	}, nil
}

// sampleScore draws theta^~ from the arm's posterior and returns
// theta^~ . x. Caller holds the sampling mutex.
func (c *ContextualThompson) sampleScore(snap models.ArmStateSnapshot, x *mat.VecDense, dim int) (float64, bool) {
	chol, ok := factorize(snap, dim)
	if !ok {
		return 0, false
	}

	var theta mat.VecDense
	if err := chol.SolveVecTo(&theta, mat.NewVecDense(dim, snap.B)); err != nil {
		return 0, false
	}

	prec := mat.NewSymDense(dim, nil)
	for i := 0; i < dim; i++ {
		for j := i; j < dim; j++ {
			prec.SetSym(i, j, snap.A[i*dim+j])
		}
	}
	posterior, ok := distmv.NewNormalPrecision(theta.RawVector().Data, prec, c.src)
	if !ok {
		return 0, false
	}

	sampled := posterior.Rand(nil)
	return mat.Dot(mat.NewVecDense(dim, sampled), x), true
}
