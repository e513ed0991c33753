package lifecycle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"dealgate/deal"
	"dealgate/engine"
)

var ErrDealNotFound = errors.New("lifecycle: deal not found")

// Service persists lifecycle transitions, ensuring the state update, the
// timeline event and the outbox message land in one transaction. Concurrent
// requests for the same deal serialize on the row lock.
type Service struct {
	pool *pgxpool.Pool
}

func NewService(pool *pgxpool.Pool) *Service {
	return &Service{pool: pool}
}

type TransitionParams struct {
	DealID  string
	ActorID string
	Target  State
	Reason  string
}

func (s *Service) RequestTransition(ctx context.Context, params TransitionParams) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var current State
	if err := tx.QueryRow(ctx, `SELECT state FROM deal_lifecycle WHERE deal_id=$1 FOR UPDATE`, params.DealID).
		Scan(&current); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrDealNotFound
		}
		return fmt.Errorf("lifecycle: fetch current state: %w", err)
	}

	in, err := loadGateInputs(ctx, tx, params.DealID, params.Target)
	if err != nil {
		return err
	}
	if err := validate(current, params.Target, in); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `
        UPDATE deal_lifecycle
        SET state=$1,
            state_updated_at=now(),
            state_updated_by=NULLIF($2,'')::uuid
        WHERE deal_id=$3
    `, params.Target, params.ActorID, params.DealID); err != nil {
		return fmt.Errorf("lifecycle: update state: %w", err)
	}

	payload := map[string]any{
		"previous_state": current,
		"next_state":     params.Target,
	}
	if params.Reason != "" {
		payload["reason"] = params.Reason
	}
	if params.ActorID != "" {
		payload["actor_id"] = params.ActorID
	}

	var actorPtr *string
	if params.ActorID != "" {
		actorPtr = &params.ActorID
	}
	if _, err := tx.Exec(ctx, `
        INSERT INTO timeline_events (deal_id, type, payload, actor_id)
        VALUES ($1,'DEAL_STATE_CHANGED',$2::jsonb,$3::uuid)
    `, params.DealID, toJSON(payload), actorPtr); err != nil {
		return fmt.Errorf("lifecycle: insert timeline: %w", err)
	}

	outboxPayload := map[string]any{
		"deal_id":  params.DealID,
		"previous": current,
		"next":     params.Target,
	}
	if _, err := tx.Exec(ctx, `
        INSERT INTO outbox (topic, payload)
        VALUES ('deal.state_changed',$1::jsonb)
    `, toJSON(outboxPayload)); err != nil {
		return fmt.Errorf("lifecycle: enqueue outbox: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("lifecycle: commit transition: %w", err)
	}

	return nil
}

// loadGateInputs fetches only what the target transition needs, inside the
// caller's transaction so the checks see a consistent view.
func loadGateInputs(ctx context.Context, tx pgx.Tx, dealID string, target State) (GateInputs, error) {
	var in GateInputs

	switch target {
	case StatePreClosing:
		var payload []byte
		err := tx.QueryRow(ctx, `
			SELECT dashboard FROM dashboard_snapshots
			WHERE deal_id=$1
			ORDER BY version DESC
			LIMIT 1
		`, dealID).Scan(&payload)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			// nil Dashboard blocks the transition with a readable reason.
		case err != nil:
			return GateInputs{}, fmt.Errorf("lifecycle: fetch latest snapshot: %w", err)
		default:
			var dash engine.Dashboard
			if err := json.Unmarshal(payload, &dash); err != nil {
				return GateInputs{}, fmt.Errorf("lifecycle: unmarshal snapshot: %w", err)
			}
			in.Dashboard = &dash
		}
	case StateClosing:
		rows, err := tx.Query(ctx, `SELECT id, status FROM conditions WHERE deal_id=$1`, dealID)
		if err != nil {
			return GateInputs{}, fmt.Errorf("lifecycle: fetch conditions: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var c deal.Condition
			if err := rows.Scan(&c.ID, &c.Status); err != nil {
				return GateInputs{}, fmt.Errorf("lifecycle: scan condition: %w", err)
			}
			in.Conditions = append(in.Conditions, c)
		}
		if err := rows.Err(); err != nil {
			return GateInputs{}, fmt.Errorf("lifecycle: iterate conditions: %w", err)
		}
	}

	return in, nil
}

func toJSON(m map[string]any) string {
	b, err := json.Marshal(m)
	if err != nil {
		panic(err)
	}
	return string(b)
}
