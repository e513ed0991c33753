// Package snapshot persists versioned, immutable copies of computed
// dashboards. Conditions and lifecycle transitions resolve against a
// snapshot version, never against a live computation.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"dealgate/engine"
)

var ErrNotFound = errors.New("snapshot: not found")

// Snapshot is one frozen dashboard for a deal. Version is assigned on
// insert and increases monotonically per deal; rows are never updated.
type Snapshot struct {
	ID        string
	DealID    string
	Version   int64
	Dashboard engine.Dashboard
	CreatedAt time.Time
}

type Store interface {
	Save(ctx context.Context, dash engine.Dashboard) (Snapshot, error)
	Latest(ctx context.Context, dealID string) (Snapshot, error)
	Get(ctx context.Context, dealID string, version int64) (Snapshot, error)
}

type PGStore struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

// Save assigns the next version for the deal and inserts the dashboard as
// JSONB. The subselect and insert share one statement so concurrent saves
// for the same deal serialize on the unique (deal_id, version) index: a
// loser gets a constraint error rather than a duplicate version.
func (s *PGStore) Save(ctx context.Context, dash engine.Dashboard) (Snapshot, error) {
	payload, err := json.Marshal(dash)
	if err != nil {
		return Snapshot{}, fmt.Errorf("snapshot: marshal dashboard: %w", err)
	}

	const query = `
		INSERT INTO dashboard_snapshots (id, deal_id, version, dashboard)
		SELECT gen_random_uuid(), $1, COALESCE(MAX(version), 0) + 1, $2
		FROM dashboard_snapshots
		WHERE deal_id = $1
		RETURNING id, deal_id, version, dashboard, created_at
	`

	row := s.pool.QueryRow(ctx, query, dash.DealID, payload)
	snap, err := scanSnapshot(row)
	if err != nil {
		return Snapshot{}, fmt.Errorf("snapshot: save: %w", err)
	}
	return snap, nil
}

func (s *PGStore) Latest(ctx context.Context, dealID string) (Snapshot, error) {
	const query = `
		SELECT id, deal_id, version, dashboard, created_at
		FROM dashboard_snapshots
		WHERE deal_id = $1
		ORDER BY version DESC
		LIMIT 1
	`

	snap, err := scanSnapshot(s.pool.QueryRow(ctx, query, dealID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Snapshot{}, ErrNotFound
		}
		return Snapshot{}, fmt.Errorf("snapshot: latest: %w", err)
	}
	return snap, nil
}

func (s *PGStore) Get(ctx context.Context, dealID string, version int64) (Snapshot, error) {
	const query = `
		SELECT id, deal_id, version, dashboard, created_at
		FROM dashboard_snapshots
		WHERE deal_id = $1 AND version = $2
	`

	snap, err := scanSnapshot(s.pool.QueryRow(ctx, query, dealID, version))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Snapshot{}, ErrNotFound
		}
		return Snapshot{}, fmt.Errorf("snapshot: get: %w", err)
	}
	return snap, nil
}

func scanSnapshot(row pgx.Row) (Snapshot, error) {
	var (
		snap    Snapshot
		payload []byte
	)
	if err := row.Scan(&snap.ID, &snap.DealID, &snap.Version, &payload, &snap.CreatedAt); err != nil {
		return Snapshot{}, err
	}
	if err := json.Unmarshal(payload, &snap.Dashboard); err != nil {
		return Snapshot{}, fmt.Errorf("unmarshal dashboard: %w", err)
	}
	return snap, nil
}
