package routing

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"

	"github.com/upb/bandit-router/config"
	"github.com/upb/bandit-router/models"
	"github.com/upb/bandit-router/repositories"
	"github.com/upb/bandit-router/services"
	"github.com/upb/bandit-router/services/bandit"
	"github.com/upb/bandit-router/services/features"
	"github.com/upb/bandit-router/services/reward"
)

// ledgerEntry correlates a returned decision with the feedback that
// may arrive later. updated flips once, the first feedback wins.
type ledgerEntry struct {
	decision models.RoutingDecision
	updated  bool
}

// recentQuery is one entry of the retry-detection window.
type recentQuery struct {
	decisionID string
	vector     []float64
	seenAt     time.Time
}

// Service orchestrates the request path: extract features, select a
// backend without mutating arm state, hand the decision back
// immediately, and learn later when feedback is correlated to a prior
// decision.
type Service struct {
	cfg      config.RoutingConfig
	features *features.Service
	selector bandit.Selector
	store    *bandit.ArmStateStore
	rewards  *reward.Calculator
	repo     repositories.StateRepository
	logger   *zap.Logger

	totalRequests atomic.Int64

	mu     sync.Mutex
	ledger map[string]*ledgerEntry
	order  []string
	recent []recentQuery
}

// NewService creates the routing orchestrator. repo may be nil, in
// which case state lives in memory only. A non-nil repo triggers a
// warm start: persisted snapshots are loaded into the store and the
// hybrid request counter is advanced past the replayed pulls.
func NewService(
	cfg config.RoutingConfig,
	featureSvc *features.Service,
	selector bandit.Selector,
	store *bandit.ArmStateStore,
	rewards *reward.Calculator,
	repo repositories.StateRepository,
	logger *zap.Logger,
) (*Service, error) {
	s := &Service{
		cfg:      cfg,
		features: featureSvc,
		selector: selector,
		store:    store,
		rewards:  rewards,
		repo:     repo,
		logger:   logger,
		ledger:   make(map[string]*ledgerEntry),
	}

	if repo != nil {
		if err := s.warmStart(context.Background()); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Service) warmStart(ctx context.Context) error {
	snapshots, err := s.repo.LoadAll(ctx)
	if err != nil {
		return services.WrapInternal("warm start failed", err)
	}
	if len(snapshots) == 0 {
		return nil
	}
	if err := s.store.Load(snapshots); err != nil {
		return err
	}

	replayed := s.store.TotalPulls()
	s.totalRequests.Store(replayed)
	if h, ok := s.selector.(*bandit.Hybrid); ok {
		h.Advance(replayed)
	}
	s.logger.Info("warm started from persisted arm state",
		zap.Int("arms", len(snapshots)),
		zap.Int64("replayed_pulls", replayed))
	return nil
}

// Route picks a backend for the query. Selection reads a per-arm
// consistent snapshot and never mutates arm state; learning happens
// only when feedback arrives. Retries of a recent near-identical query
// feed a retry signal back to the earlier decision.
func (s *Service) Route(ctx context.Context, query models.Query) (models.RoutingDecision, error) {
	if err := query.Validate(); err != nil {
		return models.RoutingDecision{}, err
	}

	feats, err := s.features.Analyze(ctx, query)
	if err != nil {
		return models.RoutingDecision{}, err
	}
	contextVec, err := s.features.Vector(feats)
	if err != nil {
		return models.RoutingDecision{}, err
	}

	selected, err := s.selector.Select(contextVec, s.store.Snapshots())
	if err != nil {
		return models.RoutingDecision{}, err
	}

	decision := models.NewRoutingDecision(
		query.ID, selected.BackendID, s.selector.Name(),
		confidence(selected.Score), contextVec, selected.Rationale)

	s.totalRequests.Add(1)
	s.remember(decision, contextVec)

	s.logger.Debug("routed query",
		zap.String("decision_id", decision.ID),
		zap.String("backend_id", decision.BackendID),
		zap.String("algorithm", decision.Algorithm),
		zap.Float64("confidence", decision.Confidence))
	return decision, nil
}

// confidence folds an unbounded selection score onto [0,1].
func confidence(score float64) float64 {
	if math.IsInf(score, 1) {
		return 1
	}
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// remember records the decision for feedback correlation and checks
// the retry window: a near-identical query arriving shortly after an
// earlier one marks that earlier decision as implicitly retried.
func (s *Service) remember(decision models.RoutingDecision, contextVec []float64) {
	now := time.Now()

	s.mu.Lock()
	s.pruneWindowLocked(now)
	retryOf := ""
	for _, prev := range s.recent {
		if cosineSimilarity(prev.vector, contextVec) >= s.cfg.RetrySimilarityThreshold {
			retryOf = prev.decisionID
			break
		}
	}

	s.ledger[decision.ID] = &ledgerEntry{decision: decision}
	s.order = append(s.order, decision.ID)
	for len(s.order) > s.cfg.DecisionLedgerSize {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.ledger, oldest)
	}
	s.recent = append(s.recent, recentQuery{decisionID: decision.ID, vector: contextVec, seenAt: now})
	s.mu.Unlock()

	if retryOf != "" {
		s.logger.Debug("retry detected",
			zap.String("decision_id", decision.ID),
			zap.String("retry_of", retryOf))
		err := s.SubmitFeedback(context.Background(), retryOf, nil, &models.ImplicitFeedback{RetryDetected: true})
		if err != nil && !services.IsNotFoundError(err) {
			s.logger.Warn("retry feedback failed", zap.String("decision_id", retryOf), zap.Error(err))
		}
	}
}

func (s *Service) pruneWindowLocked(now time.Time) {
	cutoff := now.Add(-s.cfg.RetryWindow)
	keep := s.recent[:0]
	for _, q := range s.recent {
		if q.seenAt.After(cutoff) {
			keep = append(keep, q)
		}
	}
	s.recent = keep
}

func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	na := floats.Norm(a, 2)
	nb := floats.Norm(b, 2)
	if na == 0 || nb == 0 {
		return 0
	}
	return floats.Dot(a, b) / (na * nb)
}

// SubmitFeedback converts feedback for a prior decision into a reward
// and applies at most one state update for that decision. A second
// submission for the same decision is ignored. Unknown decision ids
// return a not-found error; invalid feedback returns an
// invalid-feedback error and leaves state untouched.
func (s *Service) SubmitFeedback(ctx context.Context, decisionID string, explicit *models.ExplicitFeedback, implicit *models.ImplicitFeedback) error {
	fb := models.Feedback{
		DecisionID: decisionID,
		Explicit:   explicit,
		Implicit:   implicit,
		CreatedAt:  time.Now(),
	}
	if fb.Empty() {
		return services.ErrInvalidFeedback.WithDetail("reason", "no signals present")
	}

	s.mu.Lock()
	entry, ok := s.ledger[decisionID]
	if !ok {
		s.mu.Unlock()
		return services.ErrDecisionNotFound.WithDetail("decision_id", decisionID)
	}
	if entry.updated {
		s.mu.Unlock()
		s.logger.Debug("duplicate feedback ignored", zap.String("decision_id", decisionID))
		return nil
	}
	entry.updated = true
	decision := entry.decision
	s.mu.Unlock()

	value, err := s.rewards.Compute(fb)
	if err != nil {
		// Invalid feedback must not consume the decision's single update.
		s.mu.Lock()
		if e, ok := s.ledger[decisionID]; ok {
			e.updated = false
		}
		s.mu.Unlock()
		return err
	}

	var contextVec []float64
	if s.store.Dim() > 0 {
		contextVec = decision.Context
	}
	if err := s.store.Update(decision.BackendID, value, contextVec); err != nil {
		return err
	}

	s.logger.Debug("arm state updated",
		zap.String("decision_id", decisionID),
		zap.String("backend_id", decision.BackendID),
		zap.Float64("reward", value))
	return nil
}

// ArmStats summarizes one arm for reporting.
type ArmStats struct {
	BackendID  string  `json:"backend_id"`
	Pulls      int64   `json:"pulls"`
	MeanReward float64 `json:"mean_reward"`
	Alpha      float64 `json:"alpha"`
	Beta       float64 `json:"beta"`
	Version    int64   `json:"version"`
}

// RouterStats is the live view of the router's learning state.
type RouterStats struct {
	Algorithm     string     `json:"algorithm"`
	TotalRequests int64      `json:"total_requests"`
	Arms          []ArmStats `json:"arms"`
}

// Stats reports the current learning state in catalog order.
func (s *Service) Stats() RouterStats {
	snaps := s.store.Snapshots()
	arms := make([]ArmStats, 0, len(snaps))
	for _, snap := range snaps {
		arms = append(arms, ArmStats{
			BackendID:  snap.BackendID,
			Pulls:      snap.Pulls,
			MeanReward: snap.MeanReward,
			Alpha:      snap.Alpha,
			Beta:       snap.Beta,
			Version:    snap.Version,
		})
	}
	return RouterStats{
		Algorithm:     s.selector.Name(),
		TotalRequests: s.totalRequests.Load(),
		Arms:          arms,
	}
}

// ResetStats returns every arm to its prior and clears the decision
// ledger. The hybrid switch, once made, stays made.
func (s *Service) ResetStats() {
	s.store.Reset(s.cfg.LambdaReg)
	s.totalRequests.Store(0)

	s.mu.Lock()
	s.ledger = make(map[string]*ledgerEntry)
	s.order = nil
	s.recent = nil
	s.mu.Unlock()

	s.logger.Info("arm state and decision ledger reset")
}

// PersistState writes every arm snapshot through the repository. The
// gateway calls this on a timer and at shutdown; it is a no-op without
// a repository.
func (s *Service) PersistState(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}
	return s.repo.SaveAll(ctx, s.store.Snapshots())
}
