package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/upb/bandit-router/app"
	"github.com/upb/bandit-router/models"
	"github.com/upb/bandit-router/utils"
)

// RouteRequest is the payload for POST /v1/route.
type RouteRequest struct {
	Query  string `json:"query" validate:"required,min=1"`
	UserID string `json:"user_id,omitempty"`
}

// RouteResponse is the routing decision returned to the caller.
type RouteResponse struct {
	DecisionID string  `json:"decision_id"`
	BackendID  string  `json:"backend_id"`
	Algorithm  string  `json:"algorithm"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// FeedbackRequest is the payload for POST /v1/feedback. All signal
// fields are optional; at least one must be present for the feedback
// to count.
type FeedbackRequest struct {
	DecisionID      string   `json:"decision_id" validate:"required"`
	QualityScore    *float64 `json:"quality_score,omitempty" validate:"omitempty,gte=0,lte=1"`
	UserRating      *int     `json:"user_rating,omitempty" validate:"omitempty,gte=1,lte=5"`
	MetExpectations *bool    `json:"met_expectations,omitempty"`
	ErrorOccurred   bool     `json:"error_occurred,omitempty"`
	LatencyBucket   string   `json:"latency_bucket,omitempty" validate:"omitempty,oneof=fast medium slow"`
}

// RouteHandler handles POST /v1/route
func RouteHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RouteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			_ = utils.WriteBadRequest(w, "invalid JSON payload", nil)
			return
		}
		if err := utils.ValidateStruct(req); err != nil {
			details := make(map[string]interface{})
			for field, msg := range utils.GetValidationFields(err) {
				details[field] = msg
			}
			_ = utils.WriteBadRequest(w, err.Error(), details)
			return
		}

		query := models.NewQuery(req.Query)
		query.UserID = req.UserID

		decision, err := deps.Router.Route(r.Context(), query)
		if err != nil {
			HandleServiceError(w, err, deps.Logger)
			return
		}

		_ = utils.WriteJSON(w, http.StatusOK, RouteResponse{
			DecisionID: decision.ID,
			BackendID:  decision.BackendID,
			Algorithm:  decision.Algorithm,
			Confidence: decision.Confidence,
			Reasoning:  decision.Reasoning,
		})
	}
}

// FeedbackHandler handles POST /v1/feedback. Feedback is fire and
// forget: problems are logged and acknowledged with 202 so a broken
// feedback emitter can never fail the completed request path.
func FeedbackHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accepted := func() {
			_ = utils.WriteAccepted(w, "feedback accepted")
		}

		var req FeedbackRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			deps.Logger.Warn("dropping malformed feedback payload", zap.Error(err))
			accepted()
			return
		}
		if err := utils.ValidateStruct(req); err != nil {
			deps.Logger.Warn("dropping invalid feedback",
				zap.String("decision_id", req.DecisionID), zap.Error(err))
			accepted()
			return
		}

		explicit, implicit := req.split()
		if err := deps.Router.SubmitFeedback(r.Context(), req.DecisionID, explicit, implicit); err != nil {
			deps.Logger.Warn("feedback not applied",
				zap.String("decision_id", req.DecisionID), zap.Error(err))
		}
		accepted()
	}
}

func (req FeedbackRequest) split() (*models.ExplicitFeedback, *models.ImplicitFeedback) {
	var explicit *models.ExplicitFeedback
	if req.QualityScore != nil || req.UserRating != nil || req.MetExpectations != nil {
		explicit = &models.ExplicitFeedback{
			QualityScore:    req.QualityScore,
			UserRating:      req.UserRating,
			MetExpectations: req.MetExpectations,
		}
	}

	var implicit *models.ImplicitFeedback
	if req.ErrorOccurred || req.LatencyBucket != "" {
		implicit = &models.ImplicitFeedback{
			ErrorOccurred: req.ErrorOccurred,
			LatencyBucket: models.LatencyBucket(req.LatencyBucket),
		}
	}
	return explicit, implicit
}

// StatsHandler handles GET /v1/stats
func StatsHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteOK(w, deps.Router.Stats())
	}
}

// ResetStatsHandler handles POST /v1/stats/reset
func ResetStatsHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deps.Router.ResetStats()
		utils.WriteNoContent(w)
	}
}
