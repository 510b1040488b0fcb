package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"github.com/upb/bandit-router/models"
	"github.com/upb/bandit-router/services"
)

// Optimistic-locking retry schedule.
const (
	baseRetryDelay = 50 * time.Millisecond
	maxRetryDelay  = 500 * time.Millisecond
	maxRetries     = 3
)

// StateRepository persists arm state snapshots with optimistic
// locking: every row carries a version that must match on update, and
// a lost race retries with exponential backoff plus jitter before
// surfacing a conflict.
type StateRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewStateRepository creates a new PostgreSQL state repository
func NewStateRepository(db *sql.DB, logger *zap.Logger) *StateRepository {
	return &StateRepository{
		db:     db,
		logger: logger,
	}
}

// Save upserts one arm snapshot, retrying version conflicts.
func (r *StateRepository) Save(ctx context.Context, snapshot models.ArmStateSnapshot) error {
	for attempt := 0; ; attempt++ {
		err := r.trySave(ctx, snapshot)
		if err == nil {
			return nil
		}
		if !services.IsConflictError(err) || attempt >= maxRetries {
			return err
		}

		delay := retryDelay(attempt)
		r.logger.Debug("arm state version conflict, retrying",
			zap.String("backend_id", snapshot.BackendID),
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

// retryDelay doubles the base delay per attempt up to the cap and
// randomizes the upper half to spread competing writers.
func retryDelay(attempt int) time.Duration {
	delay := baseRetryDelay << attempt
	if delay > maxRetryDelay {
		delay = maxRetryDelay
	}
	half := delay / 2
	return half + time.Duration(rand.Int64N(int64(half)))
}

func (r *StateRepository) trySave(ctx context.Context, snapshot models.ArmStateSnapshot) error {
	aJSON, bJSON, err := marshalLinear(snapshot)
	if err != nil {
		return err
	}

	var current int64
	err = r.db.QueryRowContext(ctx,
		`SELECT version FROM arm_states WHERE backend_id = $1`,
		snapshot.BackendID).Scan(&current)

	if errors.Is(err, sql.ErrNoRows) {
		result, err := r.db.ExecContext(ctx, `
			INSERT INTO arm_states (backend_id, kind, pulls, total_reward, alpha, beta, a, b, dim, updated_at, version)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 1)
			ON CONFLICT (backend_id) DO NOTHING`,
			snapshot.BackendID, string(snapshot.Kind), snapshot.Pulls, snapshot.TotalReward,
			snapshot.Alpha, snapshot.Beta, aJSON, bJSON, snapshot.Dim, snapshot.UpdatedAt)
		if err != nil {
			return services.WrapInternal("inserting arm state", err)
		}
		return requireOneRow(result, snapshot.BackendID)
	}
	if err != nil {
		return services.WrapInternal("reading arm state version", err)
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE arm_states
		SET kind = $2, pulls = $3, total_reward = $4, alpha = $5, beta = $6,
		    a = $7, b = $8, dim = $9, updated_at = $10, version = version + 1
		WHERE backend_id = $1 AND version = $11`,
		snapshot.BackendID, string(snapshot.Kind), snapshot.Pulls, snapshot.TotalReward,
		snapshot.Alpha, snapshot.Beta, aJSON, bJSON, snapshot.Dim, snapshot.UpdatedAt, current)
	if err != nil {
		return services.WrapInternal("updating arm state", err)
	}
	return requireOneRow(result, snapshot.BackendID)
}

func requireOneRow(result sql.Result, backendID string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return services.WrapInternal("checking rows affected", err)
	}
	if rows == 0 {
		return services.ErrStateVersionConflict.WithDetail("backend_id", backendID)
	}
	return nil
}

// SaveAll upserts every snapshot, stopping at the first failure.
func (r *StateRepository) SaveAll(ctx context.Context, snapshots []models.ArmStateSnapshot) error {
	for _, snap := range snapshots {
		if err := r.Save(ctx, snap); err != nil {
			return err
		}
	}
	return nil
}

// Get retrieves one arm snapshot by backend id.
func (r *StateRepository) Get(ctx context.Context, backendID string) (models.ArmStateSnapshot, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT backend_id, kind, pulls, total_reward, alpha, beta, a, b, dim, updated_at, version
		FROM arm_states WHERE backend_id = $1`, backendID)

	snap, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ArmStateSnapshot{}, services.ErrBackendNotFound.WithDetail("backend_id", backendID)
	}
	if err != nil {
		return models.ArmStateSnapshot{}, services.WrapInternal("reading arm state", err)
	}
	return snap, nil
}

// LoadAll retrieves every persisted arm snapshot.
func (r *StateRepository) LoadAll(ctx context.Context) ([]models.ArmStateSnapshot, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT backend_id, kind, pulls, total_reward, alpha, beta, a, b, dim, updated_at, version
		FROM arm_states ORDER BY backend_id`)
	if err != nil {
		return nil, services.WrapInternal("loading arm states", err)
	}
	defer rows.Close()

	var snapshots []models.ArmStateSnapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, services.WrapInternal("scanning arm state", err)
		}
		snapshots = append(snapshots, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, services.WrapInternal("iterating arm states", err)
	}
	return snapshots, nil
}

// Reset removes all persisted state.
func (r *StateRepository) Reset(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM arm_states`); err != nil {
		return services.WrapInternal("resetting arm states", err)
	}
	r.logger.Info("persisted arm state reset")
	return nil
}

type scannable interface {
	Scan(dest ...interface{}) error
}

func scanSnapshot(row scannable) (models.ArmStateSnapshot, error) {
	var snap models.ArmStateSnapshot
	var kind string
	var aJSON, bJSON []byte

	err := row.Scan(&snap.BackendID, &kind, &snap.Pulls, &snap.TotalReward,
		&snap.Alpha, &snap.Beta, &aJSON, &bJSON, &snap.Dim, &snap.UpdatedAt, &snap.Version)
	if err != nil {
		return models.ArmStateSnapshot{}, err
	}

	snap.Kind = models.StateKind(kind)
	if snap.Pulls > 0 {
		snap.MeanReward = snap.TotalReward / float64(snap.Pulls)
	}
	if len(aJSON) > 0 {
		if err := json.Unmarshal(aJSON, &snap.A); err != nil {
			return models.ArmStateSnapshot{}, err
		}
	}
	if len(bJSON) > 0 {
		if err := json.Unmarshal(bJSON, &snap.B); err != nil {
			return models.ArmStateSnapshot{}, err
		}
	}
	return snap, nil
}

func marshalLinear(snapshot models.ArmStateSnapshot) ([]byte, []byte, error) {
	var aJSON, bJSON []byte
	var err error
	if len(snapshot.A) > 0 {
		if aJSON, err = json.Marshal(snapshot.A); err != nil {
			return nil, nil, services.WrapInternal("encoding design matrix", err)
		}
		if bJSON, err = json.Marshal(snapshot.B); err != nil {
			return nil, nil, services.WrapInternal("encoding reward vector", err)
		}
	}
	return aJSON, bJSON, nil
}
