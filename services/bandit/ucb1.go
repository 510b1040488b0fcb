package bandit

import (
	"fmt"
	"math"

	"github.com/upb/bandit-router/models"
)

// UCB1 scores each arm by its running mean plus a confidence bonus
// c * sqrt(ln(total pulls) / arm pulls). It ignores the context.
type UCB1 struct {
	c float64
}

// NewUCB1 creates a UCB1 selector with exploration constant c.
func NewUCB1(c float64) *UCB1 {
	return &UCB1{c: c}
}

func (u *UCB1) Name() string { return "ucb1" }

// Select picks the arm with the highest upper confidence bound. Arms
// that have never been pulled are selected first, in catalog order, so
// every arm is visited before any bound is computed.
func (u *UCB1) Select(_ []float64, snapshots []models.ArmStateSnapshot) (Decision, error) {
	if d, done, err := checkArms(u.Name(), snapshots); done {
		return d, err
	}

	var total int64
	for _, snap := range snapshots {
		total += snap.Pulls
	}

	for _, snap := range snapshots {
		if snap.Pulls == 0 {
			return Decision{
				BackendID: snap.BackendID,
				Score:     math.Inf(1),
				Rationale: "ucb1: cold start, unpulled arm",
			}, nil
		}
	}

	scores := make([]float64, len(snapshots))
	for i, snap := range snapshots {
		bonus := u.c * math.Sqrt(math.Log(float64(total))/float64(snap.Pulls))
		scores[i] = snap.MeanReward + bonus
	}

	best := argmax(scores)
	return Decision{
		BackendID: snapshots[best].BackendID,
		Score:     scores[best],
		Rationale: fmt.Sprintf("ucb1: mean %.3f, bound %.3f after %d pulls", snapshots[best].MeanReward, scores[best], snapshots[best].Pulls),
	}, nil
}
