package deal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound          = errors.New("deal: not found")
	ErrConditionNotFound = errors.New("deal: condition not found")
)

// Repository persists deal records and their closing conditions. The record
// body is stored as one JSONB document; conditions get their own rows so
// the lifecycle gate and the feedback loop can read and lock them directly.
type Repository interface {
	Create(ctx context.Context, rec Record) (Record, error)
	Get(ctx context.Context, id string) (Record, error)
	Update(ctx context.Context, rec Record) (Record, error)
	List(ctx context.Context, category TransactionCategory) ([]Record, error)

	ListConditions(ctx context.Context, dealID string) ([]Condition, error)
	LockConditions(ctx context.Context, tx pgx.Tx, dealID string) ([]Condition, error)
	ReplaceConditions(ctx context.Context, tx pgx.Tx, dealID string, conds []Condition) error
	SetConditionStatus(ctx context.Context, dealID, conditionID string, status ConditionStatus, actorID, notes string) (Condition, error)
}

type PGRepository struct {
	pool  *pgxpool.Pool
	idGen func() string
}

func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{
		pool:  pool,
		idGen: func() string { return uuid.NewString() },
	}
}

func (r *PGRepository) Create(ctx context.Context, rec Record) (Record, error) {
	if rec.ID == "" {
		rec.ID = r.idGen()
	}
	body, err := json.Marshal(rec)
	if err != nil {
		return Record{}, fmt.Errorf("deal: marshal record: %w", err)
	}

	const query = `
        INSERT INTO deals (id, name, category, record)
        VALUES ($1, $2, $3, $4)
        RETURNING id, record
    `

	row := r.pool.QueryRow(ctx, query, rec.ID, rec.Name, rec.Category, body)
	created, err := scanRecord(row)
	if err != nil {
		return Record{}, fmt.Errorf("deal: create: %w", err)
	}
	return created, nil
}

func (r *PGRepository) Get(ctx context.Context, id string) (Record, error) {
	const query = `SELECT id, record FROM deals WHERE id = $1`

	rec, err := scanRecord(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("deal: get: %w", err)
	}
	return rec, nil
}

func (r *PGRepository) Update(ctx context.Context, rec Record) (Record, error) {
	body, err := json.Marshal(rec)
	if err != nil {
		return Record{}, fmt.Errorf("deal: marshal record: %w", err)
	}

	const query = `
		UPDATE deals
		SET name = $2,
		    category = $3,
		    record = $4,
		    updated_at = now()
		WHERE id = $1
		RETURNING id, record
	`

	updated, err := scanRecord(r.pool.QueryRow(ctx, query, rec.ID, rec.Name, rec.Category, body))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("deal: update: %w", err)
	}
	return updated, nil
}

func (r *PGRepository) List(ctx context.Context, category TransactionCategory) ([]Record, error) {
	base := `SELECT id, record FROM deals`
	args := []any{}
	if category != "" {
		base += ` WHERE category = $1`
		args = append(args, category)
	}
	base += ` ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, base, args...)
	if err != nil {
		return nil, fmt.Errorf("deal: query list: %w", err)
	}
	defer rows.Close()

	list := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("deal: list: %w", err)
		}
		list = append(list, rec)
	}
	return list, rows.Err()
}

func (r *PGRepository) ListConditions(ctx context.Context, dealID string) ([]Condition, error) {
	const query = `
		SELECT id, description, predicate, status, evidence_ref, satisfied_at_snap, satisfied_by, notes
		FROM conditions
		WHERE deal_id = $1
		ORDER BY created_at, id
	`

	rows, err := r.pool.Query(ctx, query, dealID)
	if err != nil {
		return nil, fmt.Errorf("deal: query conditions: %w", err)
	}
	defer rows.Close()

	list := []Condition{}
	for rows.Next() {
		c, err := scanCondition(rows)
		if err != nil {
			return nil, fmt.Errorf("deal: list conditions: %w", err)
		}
		list = append(list, c)
	}
	return list, rows.Err()
}

// LockConditions reads the condition set FOR UPDATE inside the caller's
// transaction. A resolution computed from this read cannot overwrite a
// concurrent waiver: the waiver blocks on the row locks instead.
func (r *PGRepository) LockConditions(ctx context.Context, tx pgx.Tx, dealID string) ([]Condition, error) {
	const query = `
		SELECT id, description, predicate, status, evidence_ref, satisfied_at_snap, satisfied_by, notes
		FROM conditions
		WHERE deal_id = $1
		ORDER BY created_at, id
		FOR UPDATE
	`

	rows, err := tx.Query(ctx, query, dealID)
	if err != nil {
		return nil, fmt.Errorf("deal: lock conditions: %w", err)
	}
	defer rows.Close()

	list := []Condition{}
	for rows.Next() {
		c, err := scanCondition(rows)
		if err != nil {
			return nil, fmt.Errorf("deal: lock conditions: %w", err)
		}
		list = append(list, c)
	}
	return list, rows.Err()
}

// ReplaceConditions rewrites the full condition set for a deal inside the
// caller's transaction. The feedback loop uses it to apply a Resolution
// atomically alongside the snapshot it resolved against.
func (r *PGRepository) ReplaceConditions(ctx context.Context, tx pgx.Tx, dealID string, conds []Condition) error {
	if _, err := tx.Exec(ctx, `DELETE FROM conditions WHERE deal_id = $1`, dealID); err != nil {
		return fmt.Errorf("deal: clear conditions: %w", err)
	}

	const query = `
        INSERT INTO conditions (id, deal_id, description, predicate, status, evidence_ref, satisfied_at_snap, satisfied_by, notes)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    `

	for _, c := range conds {
		if c.ID == "" {
			c.ID = r.idGen()
		}
		var predicate any
		if c.Predicate != nil {
			b, err := json.Marshal(c.Predicate)
			if err != nil {
				return fmt.Errorf("deal: marshal predicate: %w", err)
			}
			predicate = b
		}
		if _, err := tx.Exec(ctx, query,
			c.ID, dealID, c.Description, predicate, c.Status,
			nullableString(c.EvidenceRef), c.SatisfiedAtSnap,
			nullableString(c.SatisfiedBy), nullableString(c.Notes),
		); err != nil {
			return fmt.Errorf("deal: insert condition: %w", err)
		}
	}
	return nil
}

// SetConditionStatus records a manual satisfaction or waiver by an actor.
func (r *PGRepository) SetConditionStatus(ctx context.Context, dealID, conditionID string, status ConditionStatus, actorID, notes string) (Condition, error) {
	const query = `
		UPDATE conditions
		SET status = $3,
		    satisfied_by = $4,
		    notes = $5,
		    updated_at = now()
		WHERE deal_id = $1 AND id = $2
		RETURNING id, description, predicate, status, evidence_ref, satisfied_at_snap, satisfied_by, notes
	`

	c, err := scanCondition(r.pool.QueryRow(ctx, query, dealID, conditionID, status, nullableString(actorID), nullableString(notes)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Condition{}, ErrConditionNotFound
		}
		return Condition{}, fmt.Errorf("deal: set condition status: %w", err)
	}
	return c, nil
}

func scanRecord(row pgx.Row) (Record, error) {
	var (
		id   string
		body []byte
	)
	if err := row.Scan(&id, &body); err != nil {
		return Record{}, err
	}
	var rec Record
	if err := json.Unmarshal(body, &rec); err != nil {
		return Record{}, fmt.Errorf("unmarshal record: %w", err)
	}
	rec.ID = id
	return rec, nil
}

func scanCondition(row pgx.Row) (Condition, error) {
	var (
		c           Condition
		predicate   []byte
		evidenceRef *string
		satisfiedBy *string
		notes       *string
	)
	if err := row.Scan(&c.ID, &c.Description, &predicate, &c.Status, &evidenceRef, &c.SatisfiedAtSnap, &satisfiedBy, &notes); err != nil {
		return Condition{}, err
	}
	if len(predicate) > 0 {
		c.Predicate = &GatePredicate{}
		if err := json.Unmarshal(predicate, c.Predicate); err != nil {
			return Condition{}, fmt.Errorf("unmarshal predicate: %w", err)
		}
	}
	if evidenceRef != nil {
		c.EvidenceRef = *evidenceRef
	}
	if satisfiedBy != nil {
		c.SatisfiedBy = *satisfiedBy
	}
	if notes != nil {
		c.Notes = *notes
	}
	return c, nil
}

func nullableString(v string) any {
	if v == "" {
		return nil
	}
	return v
}
