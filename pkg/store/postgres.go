package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/fsmkit"
)

// PostgresStore implements Store on top of the fsm_snapshots table created
// by the pg package migrations. Context is stored as JSONB.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a Postgres-backed snapshot store. The pool must
// point at a database where the fsm migrations have been applied.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Save persists a snapshot, overwriting any existing snapshot with the same ID.
func (p *PostgresStore) Save(ctx context.Context, snap fsmkit.Snapshot) error {
	if snap.ID == "" {
		return ErrInvalidSnapshot
	}

	contextJSON, err := json.Marshal(snap.Context)
	if err != nil {
		return fmt.Errorf("marshal snapshot context %s: %w", snap.ID, err)
	}

	_, err = p.pool.Exec(ctx, `
		INSERT INTO fsm_snapshots (id, state, context, taken_at, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (id) DO UPDATE
		SET state = EXCLUDED.state,
		    context = EXCLUDED.context,
		    taken_at = EXCLUDED.taken_at,
		    updated_at = now()`,
		snap.ID, string(snap.State), contextJSON, snap.TakenAt,
	)
	if err != nil {
		return fmt.Errorf("upsert snapshot %s: %w", snap.ID, err)
	}
	return nil
}

// Load retrieves a snapshot by machine ID.
func (p *PostgresStore) Load(ctx context.Context, id string) (fsmkit.Snapshot, error) {
	var (
		state       string
		contextJSON []byte
		takenAt     time.Time
	)
	err := p.pool.QueryRow(ctx,
		`SELECT state, context, taken_at FROM fsm_snapshots WHERE id = $1`, id,
	).Scan(&state, &contextJSON, &takenAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fsmkit.Snapshot{}, ErrSnapshotNotFound
		}
		return fsmkit.Snapshot{}, fmt.Errorf("select snapshot %s: %w", id, err)
	}

	snap := fsmkit.Snapshot{
		ID:      id,
		State:   fsmkit.StateID(state),
		TakenAt: takenAt,
	}
	if len(contextJSON) > 0 {
		if err := json.Unmarshal(contextJSON, &snap.Context); err != nil {
			return fsmkit.Snapshot{}, fmt.Errorf("unmarshal snapshot context %s: %w", id, err)
		}
	}
	return snap, nil
}

// Delete removes a snapshot by machine ID.
func (p *PostgresStore) Delete(ctx context.Context, id string) error {
	if _, err := p.pool.Exec(ctx, `DELETE FROM fsm_snapshots WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete snapshot %s: %w", id, err)
	}
	return nil
}
