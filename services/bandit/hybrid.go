package bandit

import (
	"sync/atomic"

	"github.com/upb/bandit-router/models"
)

// Hybrid serves the first switchThreshold requests with a cheap
// non-contextual policy, then hands over to the contextual one. The
// transition is one way: once the counter passes the threshold the
// contextual policy serves every later request, even after a state
// reset.
type Hybrid struct {
	warmup     Selector
	contextual Selector
	threshold  int64
	served     atomic.Int64
}

// NewHybrid creates a hybrid selector switching from warmup to
// contextual after threshold selections.
func NewHybrid(warmup, contextual Selector, threshold int64) *Hybrid {
	return &Hybrid{warmup: warmup, contextual: contextual, threshold: threshold}
}

func (h *Hybrid) Name() string { return "hybrid" }

// Advance moves the request counter forward, used when warm starting
// from persisted state so a restart does not repeat the warmup phase.
func (h *Hybrid) Advance(n int64) {
	if n > 0 {
		h.served.Add(n)
	}
}

// Switched reports whether the contextual phase is active.
func (h *Hybrid) Switched() bool {
	return h.served.Load() > h.threshold
}

func (h *Hybrid) Select(contextVec []float64, snapshots []models.ArmStateSnapshot) (Decision, error) {
	n := h.served.Add(1)

	active := h.warmup
	phase := "warmup/"
	if n > h.threshold {
		active = h.contextual
		phase = "contextual/"
	}

	decision, err := active.Select(contextVec, snapshots)
	if err != nil {
		return Decision{}, err
	}
	decision.Rationale = "hybrid " + phase + decision.Rationale
	return decision, nil
}
