// Package oracles defines SQL invariant checks run periodically during the
// stress test. Any returned row is a violation.
package oracles

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Oracle struct {
	Name string
	SQL  string
}

func All() []Oracle {
	return []Oracle{
		{
			Name: "O1_snapshot_versions_contiguous",
			SQL: `SELECT deal_id, MAX(version), COUNT(*) FROM dashboard_snapshots
                  GROUP BY deal_id HAVING MAX(version) <> COUNT(*)`,
		},
		{
			Name: "O2_auto_satisfied_has_snapshot",
			SQL: `SELECT c.id FROM conditions c
                  WHERE c.status = 'AUTO_SATISFIED'
                    AND (c.satisfied_at_snap <= 0
                         OR c.satisfied_at_snap > (SELECT COALESCE(MAX(version),0)
                                                   FROM dashboard_snapshots s
                                                   WHERE s.deal_id = c.deal_id))`,
		},
		{
			Name: "O3_closing_without_open_conditions",
			SQL: `SELECT l.deal_id, l.state FROM deal_lifecycle l
                  WHERE l.state IN ('CLOSING','CLOSED')
                    AND EXISTS (SELECT 1 FROM conditions c
                                WHERE c.deal_id = l.deal_id AND c.status = 'OPEN')`,
		},
		{
			Name: "O4_preclosing_requires_snapshot",
			SQL: `SELECT l.deal_id, l.state FROM deal_lifecycle l
                  WHERE l.state IN ('PRE_CLOSING','CLOSING','CLOSED')
                    AND NOT EXISTS (SELECT 1 FROM dashboard_snapshots s
                                    WHERE s.deal_id = l.deal_id)`,
		},
		{
			Name: "O5_lifecycle_forward_only",
			SQL: `WITH ranks AS (
                      SELECT * FROM (VALUES
                          ('DRAFT',0),('REVIEW',1),('NEGOTIATION',2),
                          ('PRE_CLOSING',3),('CLOSING',4),('CLOSED',5)
                      ) AS r(state, pos)
                  )
                  SELECT e.id FROM timeline_events e
                  JOIN ranks prev ON prev.state = e.payload->>'previous_state'
                  JOIN ranks next ON next.state = e.payload->>'next_state'
                  WHERE e.type = 'DEAL_STATE_CHANGED'
                    AND next.pos <> prev.pos + 1`,
		},
		{
			Name: "O6_outbox_drain",
			SQL: `SELECT id FROM outbox
                  WHERE status NOT IN ('processed','dead')
                    AND now() - created_at > interval '5 minutes'`,
		},
		{
			Name: "O7_snapshot_immutability_guard",
			SQL: `SELECT 'missing_immutability_trigger' AS detail
                  WHERE NOT EXISTS (SELECT 1 FROM pg_trigger WHERE tgname='no_update_dashboard_snapshots')`,
		},
	}
}

// Run executes all oracles and returns the first failure (name and sample
// row text) or an empty name if all pass.
func Run(ctx context.Context, pool *pgxpool.Pool) (string, string, error) {
	for _, o := range All() {
		rows, err := pool.Query(ctx, o.SQL)
		if err != nil {
			return o.Name, "", fmt.Errorf("oracle %s: %w", o.Name, err)
		}
		has := rows.Next()
		if has {
			vals, err := rows.Values()
			rows.Close()
			if err != nil {
				return o.Name, "", err
			}
			return o.Name, fmt.Sprintf("%v", vals), nil
		}
		rows.Close()
	}
	return "", "", nil
}
