package bandit

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/upb/bandit-router/models"
)

// LinUCB scores each arm with the ridge-regression estimate
// theta = A^-1 b plus the exploration bonus alpha * sqrt(x^T A^-1 x).
// Both terms come from Cholesky solves rather than an explicit
// inverse. An arm whose A fails to factorize scores zero with theta
// treated as zero; the failure is confined to that arm.
type LinUCB struct {
	alpha float64
}

// NewLinUCB creates a LinUCB selector with exploration constant alpha.
func NewLinUCB(alpha float64) *LinUCB {
	return &LinUCB{alpha: alpha}
}

func (l *LinUCB) Name() string { return "linucb" }

func (l *LinUCB) Select(contextVec []float64, snapshots []models.ArmStateSnapshot) (Decision, error) {
	if d, done, err := checkArms(l.Name(), snapshots); done {
		return d, err
	}
	if err := checkContext(contextVec, snapshots); err != nil {
		return Decision{}, err
	}

	dim := snapshots[0].Dim
	x := mat.NewVecDense(dim, contextVec)

	scores := make([]float64, len(snapshots))
	degraded := make([]bool, len(snapshots))
	for i, snap := range snapshots {
		score, ok := l.score(snap, x, dim)
		scores[i] = score
		degraded[i] = !ok
	}

	best := argmax(scores)
	rationale := fmt.Sprintf("linucb: score %.3f (alpha %.2f)", scores[best], l.alpha)
	if degraded[best] {
		rationale = "linucb: degraded arm, zero coefficients"
	}
	return Decision{
		BackendID: snapshots[best].BackendID,
		Score:     scores[best],
		Rationale: rationale,
	}, nil
}

func (l *LinUCB) score(snap models.ArmStateSnapshot, x *mat.VecDense, dim int) (float64, bool) {
	chol, ok := factorize(snap, dim)
	if !ok {
		return 0, false
	}

	var theta, z mat.VecDense
	if err := chol.SolveVecTo(&theta, mat.NewVecDense(dim, snap.B)); err != nil {
		return 0, false
	}
	if err := chol.SolveVecTo(&z, x); err != nil {
		return 0, false
	}

	uncertainty := mat.Dot(x, &z)
	if uncertainty < 0 {
		uncertainty = 0
	}
	return mat.Dot(&theta, x) + l.alpha*math.Sqrt(uncertainty), true
}

// factorize rebuilds the arm's design matrix from its snapshot and
// Cholesky-factorizes it.
func factorize(snap models.ArmStateSnapshot, dim int) (*mat.Cholesky, bool) {
	if len(snap.A) != dim*dim || len(snap.B) != dim {
		return nil, false
	}
	a := mat.NewSymDense(dim, nil)
	for i := 0; i < dim; i++ {
		for j := i; j < dim; j++ {
			a.SetSym(i, j, snap.A[i*dim+j])
		}
	}

	var chol mat.Cholesky
	if !chol.Factorize(a) {
		return nil, false
	}
	return &chol, true
}
