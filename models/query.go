package models

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrEmptyQueryText is returned when a query has no routable content.
var ErrEmptyQueryText = errors.New("query text cannot be empty")

// Query represents a user request to be routed to an LLM backend.
type Query struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	UserID    string    `json:"user_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewQuery creates a Query with a generated ID and trimmed text.
func NewQuery(text string) Query {
	return Query{
		ID:        uuid.New().String(),
		Text:      strings.TrimSpace(text),
		CreatedAt: time.Now().UTC(),
	}
}

// Validate checks that the query carries routable content.
func (q Query) Validate() error {
	if strings.TrimSpace(q.Text) == "" {
		return ErrEmptyQueryText
	}
	return nil
}

// QueryFeatures holds the features extracted from a query for routing.
type QueryFeatures struct {
	// Embedding is the semantic embedding of the query text.
	Embedding []float64 `json:"embedding"`

	// TokenCount is the approximate input token count.
	TokenCount int `json:"token_count"`

	// ComplexityScore estimates query difficulty in [0,1].
	ComplexityScore float64 `json:"complexity_score"`

	// Domain is the classified query domain (e.g. "code", "math").
	Domain string `json:"domain"`

	// DomainConfidence is the classifier's confidence in [0,1].
	DomainConfidence float64 `json:"domain_confidence"`
}
