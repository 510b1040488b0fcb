package models

import "time"

// StateKind identifies which statistical state variant an arm carries.
type StateKind string

const (
	StateKindBeta      StateKind = "beta"
	StateKindCountMean StateKind = "count_mean"
	StateKindLinear    StateKind = "linear"
)

// ArmStateSnapshot is the serializable form of one backend's bandit
// state, used for persistence and restart continuity. Exactly one
// variant's fields are meaningful, indicated by Kind.
type ArmStateSnapshot struct {
	BackendID string    `json:"backend_id"`
	Kind      StateKind `json:"kind"`

	// Shared bookkeeping
	Pulls        int64   `json:"pulls"`
	TotalReward  float64 `json:"total_reward"`

	// Beta variant
	Alpha float64 `json:"alpha,omitempty"`
	Beta  float64 `json:"beta,omitempty"`

	// Count/mean variant
	MeanReward float64 `json:"mean_reward,omitempty"`

	// Linear variant: A is d×d row-major, B is length d.
	A []float64 `json:"a,omitempty"`
	B []float64 `json:"b,omitempty"`
	Dim int     `json:"dim,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`

	// Version supports optimistic locking in the snapshot repository.
	Version int64 `json:"version"`
}
