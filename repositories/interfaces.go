package repositories

import (
	"context"

	"github.com/upb/bandit-router/models"
)

// StateRepository persists per-arm learning state so the router can
// warm start after a restart. Implementations must use optimistic
// locking on the snapshot version: a concurrent writer winning the
// race surfaces as a conflict error after retries are exhausted.
//
// A nil StateRepository is a valid configuration; the router then
// keeps state in memory only.
type StateRepository interface {
	// Save upserts one arm snapshot.
	Save(ctx context.Context, snapshot models.ArmStateSnapshot) error

	// SaveAll upserts every snapshot, stopping at the first failure.
	SaveAll(ctx context.Context, snapshots []models.ArmStateSnapshot) error

	// Get retrieves one arm snapshot by backend id.
	Get(ctx context.Context, backendID string) (models.ArmStateSnapshot, error)

	// LoadAll retrieves every persisted arm snapshot.
	LoadAll(ctx context.Context) ([]models.ArmStateSnapshot, error)

	// Reset removes all persisted state.
	Reset(ctx context.Context) error
}
