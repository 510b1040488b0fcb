package models

import (
	"time"

	"github.com/google/uuid"
)

// RoutingDecision records the outcome of a single routing selection.
// Decisions are immutable after creation and correlated with later
// feedback through their ID.
type RoutingDecision struct {
	ID        string    `json:"id"`
	QueryID   string    `json:"query_id"`
	BackendID string    `json:"backend_id"`
	Algorithm string    `json:"algorithm"`
	Confidence float64  `json:"confidence"`
	Context   []float64 `json:"context"`
	Reasoning string    `json:"reasoning"`
	CreatedAt time.Time `json:"created_at"`
}

// NewRoutingDecision creates an immutable decision record. The context
// vector is copied so later mutations by the caller cannot leak in.
func NewRoutingDecision(queryID, backendID, algorithm string, confidence float64, contextVec []float64, reasoning string) RoutingDecision {
	ctx := make([]float64, len(contextVec))
	copy(ctx, contextVec)
	return RoutingDecision{
		ID:         uuid.New().String(),
		QueryID:    queryID,
		BackendID:  backendID,
		Algorithm:  algorithm,
		Confidence: confidence,
		Context:    ctx,
		Reasoning:  reasoning,
		CreatedAt:  time.Now().UTC(),
	}
}
