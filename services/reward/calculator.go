package reward

import (
	"go.uber.org/zap"

	"github.com/upb/bandit-router/config"
	"github.com/upb/bandit-router/models"
	"github.com/upb/bandit-router/services"
)

// Latency bucket scores for the implicit component.
const (
	scoreFast   = 1.0
	scoreMedium = 0.6
	scoreSlow   = 0.2
)

// Calculator converts heterogeneous feedback into a scalar reward in
// [0,1]. Priority order: an error zeroes the reward outright, a
// detected retry yields the fixed retry reward, otherwise the reward
// is the weighted blend of the explicit and implicit components.
type Calculator struct {
	weightExplicit float64
	weightImplicit float64
	retryReward    float64
	logger         *zap.Logger
}

// NewCalculator creates a reward calculator from the routing config.
func NewCalculator(cfg config.RoutingConfig, logger *zap.Logger) *Calculator {
	return &Calculator{
		weightExplicit: cfg.RewardWeightExplicit,
		weightImplicit: cfg.RewardWeightImplicit,
		retryReward:    cfg.RetryReward,
		logger:         logger,
	}
}

// Compute returns the scalar reward for one piece of feedback.
// Out-of-range explicit signals return ErrInvalidFeedback; the caller
// drops the feedback with a warning rather than learning from it.
func (c *Calculator) Compute(fb models.Feedback) (float64, error) {
	if err := validate(fb); err != nil {
		return 0, err
	}

	if fb.Implicit != nil && fb.Implicit.ErrorOccurred {
		c.logger.Debug("reward zeroed by backend error", zap.String("decision_id", fb.DecisionID))
		return 0, nil
	}
	if fb.Implicit != nil && fb.Implicit.RetryDetected {
		c.logger.Debug("retry reward applied", zap.String("decision_id", fb.DecisionID))
		return c.retryReward, nil
	}

	explicit, hasExplicit := explicitScore(fb.Explicit)
	implicit, hasImplicit := implicitScore(fb.Implicit)

	switch {
	case hasExplicit && hasImplicit:
		return clamp01(c.weightExplicit*explicit + c.weightImplicit*implicit), nil
	case hasExplicit:
		return clamp01(explicit), nil
	case hasImplicit:
		return clamp01(implicit), nil
	default:
		return 0, services.ErrInvalidFeedback.WithDetail("reason", "no signals present")
	}
}

func validate(fb models.Feedback) error {
	if fb.Explicit != nil {
		if q := fb.Explicit.QualityScore; q != nil && (*q < 0 || *q > 1) {
			return services.ErrInvalidFeedback.WithDetail("quality_score", *q)
		}
		if r := fb.Explicit.UserRating; r != nil && (*r < 1 || *r > 5) {
			return services.ErrInvalidFeedback.WithDetail("user_rating", *r)
		}
	}
	if fb.Implicit != nil {
		switch fb.Implicit.LatencyBucket {
		case "", models.LatencyFast, models.LatencyMedium, models.LatencySlow:
		default:
			return services.ErrInvalidFeedback.WithDetail("latency_bucket", string(fb.Implicit.LatencyBucket))
		}
	}
	return nil
}

// explicitScore averages whichever explicit signals are present:
// quality score as-is, star rating normalized from 1..5 to [0,1],
// met-expectations as a binary signal.
func explicitScore(e *models.ExplicitFeedback) (float64, bool) {
	if e == nil {
		return 0, false
	}

	var sum float64
	var n int
	if e.QualityScore != nil {
		sum += *e.QualityScore
		n++
	}
	if e.UserRating != nil {
		sum += float64(*e.UserRating-1) / 4.0
		n++
	}
	if e.MetExpectations != nil {
		if *e.MetExpectations {
			sum += 1.0
		}
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

func implicitScore(i *models.ImplicitFeedback) (float64, bool) {
	if i == nil {
		return 0, false
	}
	switch i.LatencyBucket {
	case models.LatencyFast:
		return scoreFast, true
	case models.LatencyMedium:
		return scoreMedium, true
	case models.LatencySlow:
		return scoreSlow, true
	default:
		return 0, false
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
