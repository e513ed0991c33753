// Package actors holds the concurrent workloads of the stress test. Each
// actor loops until stop closes, hammering one deal through the real
// services so the oracles can look for invariant violations.
package actors

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"dealgate/auth"
	"dealgate/conditions"
	"dealgate/deal"
	"dealgate/engine"
	"dealgate/lifecycle"
	"dealgate/snapshot"
)

// DashboardComputer recomputes the dashboard and stores a new snapshot.
// Concurrent computers racing on the same deal exercise the unique
// (deal_id, version) constraint; a loser simply retries next round.
func DashboardComputer(ctx context.Context, registry *engine.Registry, store snapshot.Store, rec *deal.Record, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		dash, err := registry.ComputeDashboard(ctx, rec)
		if err != nil {
			return fmt.Errorf("compute dashboard: %w", err)
		}
		if _, err := store.Save(ctx, dash); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			var pgErr *pgconn.PgError
			versionRace := errors.As(err, &pgErr) && pgErr.Code == "23505"
			if !versionRace && !isTransient(err) {
				return fmt.Errorf("save snapshot: %w", err)
			}
		}
		time.Sleep(time.Duration(20+rand.Intn(40)) * time.Millisecond)
	}
}

// ConditionResolver runs the feedback loop against the latest snapshot and
// persists the resolution atomically.
func ConditionResolver(ctx context.Context, pool *pgxpool.Pool, repo deal.Repository, store snapshot.Store, dealID string, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		snap, err := store.Latest(ctx, dealID)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, snapshot.ErrNotFound) || isTransient(err) {
				time.Sleep(50 * time.Millisecond)
				continue
			}
			return fmt.Errorf("latest snapshot: %w", err)
		}
		tx, err := pool.Begin(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			time.Sleep(50 * time.Millisecond)
			continue
		}
		conds, err := repo.LockConditions(ctx, tx, dealID)
		if err != nil {
			_ = tx.Rollback(ctx)
			if isTransient(err) {
				time.Sleep(50 * time.Millisecond)
				continue
			}
			return fmt.Errorf("lock conditions: %w", err)
		}
		res, err := conditions.Resolve(conds, snap.Dashboard, snap.Version)
		if err != nil {
			_ = tx.Rollback(ctx)
			if errors.Is(err, conditions.ErrStaleSnapshot) {
				continue // a newer resolution won the race
			}
			return fmt.Errorf("resolve conditions: %w", err)
		}
		if err := repo.ReplaceConditions(ctx, tx, dealID, res.Updated); err != nil {
			_ = tx.Rollback(ctx)
			if isTransient(err) {
				continue
			}
			return fmt.Errorf("replace conditions: %w", err)
		}
		_ = tx.Commit(ctx)
		time.Sleep(time.Duration(30+rand.Intn(50)) * time.Millisecond)
	}
}

// Transitioner keeps requesting the next lifecycle state. Blocked transitions
// are the expected outcome while gates are unmet; only infrastructure errors
// abort the actor.
func Transitioner(ctx context.Context, svc *lifecycle.Service, pool *pgxpool.Pool, dealID, actorID string, stop <-chan struct{}) error {
	forward := []lifecycle.State{
		lifecycle.StateReview,
		lifecycle.StateNegotiation,
		lifecycle.StatePreClosing,
		lifecycle.StateClosing,
		lifecycle.StateClosed,
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		var current lifecycle.State
		if err := pool.QueryRow(ctx, `SELECT state FROM deal_lifecycle WHERE deal_id=$1`, dealID).Scan(&current); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			time.Sleep(50 * time.Millisecond)
			continue
		}
		if current.Terminal() {
			return nil
		}
		target := forward[0]
		for i, s := range forward {
			if s == current && i+1 < len(forward) {
				target = forward[i+1]
			}
		}
		if current == lifecycle.StateDraft {
			target = lifecycle.StateReview
		}

		err := svc.RequestTransition(ctx, lifecycle.TransitionParams{
			DealID:  dealID,
			ActorID: actorID,
			Target:  target,
		})
		var blocked *lifecycle.TransitionBlocked
		switch {
		case err == nil, errors.As(err, &blocked):
		case errors.Is(err, lifecycle.ErrTerminal):
		case ctx.Err() != nil:
			return ctx.Err()
		default:
			if !isTransient(err) {
				return fmt.Errorf("transition to %s: %w", target, err)
			}
		}
		time.Sleep(time.Duration(40+rand.Intn(80)) * time.Millisecond)
	}
}

// Waiver occasionally waives one open manual condition, as a deal admin
// would. Each waiver re-checks the actor's privilege the way the API would.
func Waiver(ctx context.Context, authz *auth.Service, repo deal.Repository, dealID, actorID string, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		if err := authz.AuthorizeWaiver(ctx, actorID); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// a forbidden or unknown actor is a real bug, anything else
			// is the chaos actor breaking connections
			if errors.Is(err, auth.ErrForbidden) || errors.Is(err, auth.ErrUserNotFound) {
				return fmt.Errorf("authorize waiver: %w", err)
			}
			time.Sleep(50 * time.Millisecond)
			continue
		}
		conds, err := repo.ListConditions(ctx, dealID)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			time.Sleep(50 * time.Millisecond)
			continue
		}
		for _, c := range conds {
			if c.Status == deal.ConditionOpen && !c.AutoCheckable() && rand.Intn(4) == 0 {
				_, err := repo.SetConditionStatus(ctx, dealID, c.ID, deal.ConditionWaived, actorID, "waived under stress")
				if err != nil && !errors.Is(err, deal.ErrConditionNotFound) && !isTransient(err) && ctx.Err() == nil {
					return fmt.Errorf("waive condition: %w", err)
				}
				break
			}
		}
		time.Sleep(time.Duration(100+rand.Intn(150)) * time.Millisecond)
	}
}

// OutboxWorker consumes pending outbox messages with SKIP LOCKED and marks
// them processed, with a simulated failure rate to exercise retries.
func OutboxWorker(ctx context.Context, pool *pgxpool.Pool, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}
		rows, err := tx.Query(ctx, `SELECT id FROM outbox WHERE status='pending' ORDER BY created_at FOR UPDATE SKIP LOCKED LIMIT 10`)
		if err != nil {
			_ = tx.Rollback(ctx)
			time.Sleep(50 * time.Millisecond)
			continue
		}
		ids := make([]string, 0, 10)
		for rows.Next() {
			var id string
			_ = rows.Scan(&id)
			ids = append(ids, id)
		}
		rows.Close()
		for _, id := range ids {
			if rand.Intn(10) == 0 {
				_, _ = tx.Exec(ctx, `UPDATE outbox SET attempts=attempts+1, last_attempt=NOW() WHERE id=$1`, id)
				continue
			}
			_, _ = tx.Exec(ctx, `UPDATE outbox SET status='processed', last_attempt=NOW() WHERE id=$1`, id)
		}
		_ = tx.Commit(ctx)
		time.Sleep(100 * time.Millisecond)
	}
}

// isTransient filters errors caused by chaos terminating backends.
func isTransient(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 57P01 admin shutdown, 40001 serialization, 40P01 deadlock
		switch pgErr.Code {
		case "57P01", "40001", "40P01":
			return true
		}
	}
	// a terminated backend can also surface as a dead connection
	msg := err.Error()
	return strings.Contains(msg, "conn closed") || strings.Contains(msg, "unexpected EOF")
}
