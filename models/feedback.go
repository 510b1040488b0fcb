package models

import "time"

// LatencyBucket classifies observed latency against user tolerance.
type LatencyBucket string

const (
	LatencyFast   LatencyBucket = "fast"
	LatencyMedium LatencyBucket = "medium"
	LatencySlow   LatencyBucket = "slow"
)

// ExplicitFeedback is user-supplied quality feedback for a decision.
// All fields are optional; nil means "not provided".
type ExplicitFeedback struct {
	// QualityScore is a normalized quality rating in [0,1].
	QualityScore *float64 `json:"quality_score,omitempty"`

	// UserRating is a 1-5 star rating.
	UserRating *int `json:"user_rating,omitempty"`

	// MetExpectations reports whether the response met expectations.
	MetExpectations *bool `json:"met_expectations,omitempty"`
}

// ImplicitFeedback carries signals observed by the system rather than
// reported by the user.
type ImplicitFeedback struct {
	// ErrorOccurred marks a hard failure of the routed backend.
	ErrorOccurred bool `json:"error_occurred"`

	// LatencyBucket classifies observed latency. Empty means unobserved.
	LatencyBucket LatencyBucket `json:"latency_bucket,omitempty"`

	// RetryDetected marks a near-duplicate request seen within the
	// retry window, a strong negative signal.
	RetryDetected bool `json:"retry_detected"`
}

// Feedback bundles the explicit and implicit signals received for one
// routing decision. Zero or more Feedback records may arrive per decision.
type Feedback struct {
	DecisionID string            `json:"decision_id"`
	Explicit   *ExplicitFeedback `json:"explicit,omitempty"`
	Implicit   *ImplicitFeedback `json:"implicit,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

// Empty reports whether the feedback carries no usable signal at all.
func (f Feedback) Empty() bool {
	return f.Explicit == nil && f.Implicit == nil
}
