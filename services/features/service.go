package features

import (
	"context"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/upb/bandit-router/models"
	"github.com/upb/bandit-router/services"
)

// MetadataDims is the number of scalar metadata dimensions appended to
// the (possibly reduced) embedding: token count, complexity, domain.
const MetadataDims = 3

// tokenCountCeiling caps the token count used for normalization so the
// feature stays in [0,1].
const tokenCountCeiling = 1000.0

// Embedder turns raw text into a dense vector. The embedding model is
// an external collaborator; the pipeline only checks dimensions.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// domains is the fixed classification list. Its order is part of the
// feature layout: changing it invalidates accumulated linear state.
var domains = []string{"general", "code", "math", "creative", "business", "science"}

var domainKeywords = map[string][]string{
	"code":     {"function", "code", "bug", "debug", "compile", "python", "golang", "javascript", "sql", "api", "error", "implement"},
	"math":     {"calculate", "equation", "integral", "derivative", "theorem", "proof", "probability", "matrix", "solve"},
	"creative": {"story", "poem", "write a", "creative", "fiction", "lyrics", "essay"},
	"business": {"market", "revenue", "strategy", "customer", "sales", "business", "invoice", "budget"},
	"science":  {"physics", "chemistry", "biology", "quantum", "molecule", "experiment", "hypothesis"},
}

// Service is the feature pipeline: it turns a raw query plus an
// externally supplied embedding into a fixed-length context vector.
type Service struct {
	embedder     Embedder
	reducer      *Projection
	cache        *Cache
	embeddingDim int
	logger       *zap.Logger
}

// NewService creates a feature pipeline service. reducer and cache may
// be nil (identity pass-through and no caching respectively).
func NewService(embedder Embedder, reducer *Projection, cache *Cache, embeddingDim int, logger *zap.Logger) *Service {
	return &Service{
		embedder:     embedder,
		reducer:      reducer,
		cache:        cache,
		embeddingDim: embeddingDim,
		logger:       logger,
	}
}

// ContextDim returns the length of the context vectors this pipeline
// produces. It is fixed for the life of a deployment.
func (s *Service) ContextDim() int {
	if s.reducer != nil {
		return s.reducer.OutputDim() + MetadataDims
	}
	return s.embeddingDim + MetadataDims
}

// Analyze extracts features for a query. The cache, when configured, is
// consulted first and always fails open: a cache error degrades to
// direct computation, never to a routing failure.
func (s *Service) Analyze(ctx context.Context, query models.Query) (models.QueryFeatures, error) {
	if s.cache != nil {
		if feats, ok := s.cache.Get(ctx, query.Text); ok {
			return feats, nil
		}
	}

	embedding, err := s.embedder.Embed(ctx, query.Text)
	if err != nil {
		return models.QueryFeatures{}, services.WrapInternal("embedding failed", err)
	}
	if len(embedding) != s.embeddingDim {
		return models.QueryFeatures{}, services.ErrDimensionMismatch.
			WithDetail("expected", s.embeddingDim).
			WithDetail("got", len(embedding))
	}

	domain, confidence := classifyDomain(query.Text)
	feats := models.QueryFeatures{
		Embedding:        embedding,
		TokenCount:       estimateTokens(query.Text),
		ComplexityScore:  complexityScore(query.Text),
		Domain:           domain,
		DomainConfidence: confidence,
	}

	if s.cache != nil {
		s.cache.Set(ctx, query.Text, feats)
	}
	return feats, nil
}

// Vector builds the context vector from features. Concatenation order
// is stable: [embedding..., tokenNorm, complexity, domainNorm]. The
// PCA reducer, when fitted, applies to the embedding sub-vector only.
func (s *Service) Vector(feats models.QueryFeatures) ([]float64, error) {
	if len(feats.Embedding) != s.embeddingDim {
		return nil, services.ErrDimensionMismatch.
			WithDetail("expected", s.embeddingDim).
			WithDetail("got", len(feats.Embedding))
	}

	embedding := feats.Embedding
	if s.reducer != nil {
		embedding = s.reducer.Apply(embedding)
	}

	vec := make([]float64, 0, len(embedding)+MetadataDims)
	vec = append(vec, embedding...)
	vec = append(vec,
		math.Min(float64(feats.TokenCount)/tokenCountCeiling, 1.0),
		feats.ComplexityScore,
		domainIndexNorm(feats.Domain),
	)
	return vec, nil
}

// estimateTokens approximates the token count with a whitespace split
// scaled by the usual 0.75 words-per-token heuristic.
func estimateTokens(text string) int {
	words := len(strings.Fields(text))
	return int(math.Ceil(float64(words) / 0.75))
}

// complexityScore estimates query difficulty in [0,1] from length and
// structural markers.
func complexityScore(text string) float64 {
	words := float64(len(strings.Fields(text)))
	score := math.Min(words/200.0, 0.6)

	lower := strings.ToLower(text)
	for _, marker := range []string{"explain", "analyze", "compare", "design", "prove", "step by step", "in detail"} {
		if strings.Contains(lower, marker) {
			score += 0.1
		}
	}
	if strings.Contains(text, "\n") {
		score += 0.05
	}
	return math.Min(score, 1.0)
}

// classifyDomain assigns the query to the domain with the most keyword
// hits. Queries with no hits fall back to "general".
func classifyDomain(text string) (string, float64) {
	lower := strings.ToLower(text)

	best, bestHits := "general", 0
	for _, domain := range domains {
		hits := 0
		for _, kw := range domainKeywords[domain] {
			if strings.Contains(lower, kw) {
				hits++
			}
		}
		if hits > bestHits {
			best, bestHits = domain, hits
		}
	}

	if bestHits == 0 {
		return "general", 0.5
	}
	return best, math.Min(0.5+0.15*float64(bestHits), 1.0)
}

// domainIndexNorm maps the domain to its normalized catalog position.
func domainIndexNorm(domain string) float64 {
	for i, d := range domains {
		if d == domain {
			return float64(i) / float64(len(domains)-1)
		}
	}
	return 0
}
