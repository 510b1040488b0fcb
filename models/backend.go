package models

// Backend represents one routable LLM backend (a bandit arm).
// The static cost/quality metadata is used only as a prior; learned
// statistical state lives in the bandit state store.
type Backend struct {
	ID                 string  `json:"id" yaml:"id"`
	Provider           string  `json:"provider" yaml:"provider"`
	CostPerInputToken  float64 `json:"cost_per_input_token" yaml:"cost_per_input_token"`
	CostPerOutputToken float64 `json:"cost_per_output_token" yaml:"cost_per_output_token"`
	ExpectedQuality    float64 `json:"expected_quality" yaml:"expected_quality"`
}

// AverageCost returns the blended per-token cost used for cost-aware priors.
func (b Backend) AverageCost() float64 {
	return (b.CostPerInputToken + b.CostPerOutputToken) / 2
}
