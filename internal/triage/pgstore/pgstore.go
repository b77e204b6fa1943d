// Package pgstore provides a PostgreSQL implementation of triage.Store.
package pgstore

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/linnemanlabs/warden/internal/triage"
)

var tracer = otel.Tracer("github.com/linnemanlabs/warden/internal/triage/pgstore")

//go:embed schema.sql
var schema string

// Store persists plan records in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// New applies the schema on pool and returns a ready Store. The caller
// owns the pool.
func New(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close shuts down the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

const planColumns = `id, fingerprint, assessment_source, plan_source, assessment, plan, created_at`

func startSpan(ctx context.Context, name, op string) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", op),
		attribute.String("db.collection.name", "plan_records"),
	))
}

func fail(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// Get retrieves a plan record by ID.
func (s *Store) Get(ctx context.Context, id string) (*triage.PlanRecord, bool, error) {
	ctx, span := startSpan(ctx, "pgstore.Get", "SELECT")
	defer span.End()

	r, err := scanRecord(s.pool.QueryRow(ctx, `SELECT `+planColumns+` FROM plan_records WHERE id = $1`, id))
	if err != nil {
		fail(span, err)
		return nil, false, err
	}
	return r, r != nil, nil
}

// GetByFingerprint retrieves the most recent plan record for a fingerprint.
func (s *Store) GetByFingerprint(ctx context.Context, fingerprint string) (*triage.PlanRecord, bool, error) {
	ctx, span := startSpan(ctx, "pgstore.GetByFingerprint", "SELECT")
	defer span.End()

	r, err := scanRecord(s.pool.QueryRow(ctx,
		`SELECT `+planColumns+` FROM plan_records WHERE fingerprint = $1 ORDER BY created_at DESC, id DESC LIMIT 1`,
		fingerprint))
	if err != nil {
		fail(span, err)
		return nil, false, err
	}
	return r, r != nil, nil
}

// Put inserts or replaces a plan record.
func (s *Store) Put(ctx context.Context, r *triage.PlanRecord) error {
	ctx, span := startSpan(ctx, "pgstore.Put", "UPSERT")
	defer span.End()

	assessment, err := json.Marshal(r.Assessment)
	if err != nil {
		fail(span, err)
		return fmt.Errorf("marshal assessment: %w", err)
	}
	planDoc, err := json.Marshal(r.Plan)
	if err != nil {
		fail(span, err)
		return fmt.Errorf("marshal plan: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		fail(span, err)
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is harmless

	_, err = tx.Exec(ctx, `
		INSERT INTO plan_records (id, fingerprint, assessment_source, plan_source, strategy, priority, assessment, plan, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			fingerprint       = EXCLUDED.fingerprint,
			assessment_source = EXCLUDED.assessment_source,
			plan_source       = EXCLUDED.plan_source,
			strategy          = EXCLUDED.strategy,
			priority          = EXCLUDED.priority,
			assessment        = EXCLUDED.assessment,
			plan              = EXCLUDED.plan`,
		r.ID, r.Fingerprint, r.AssessmentSource, r.PlanSource,
		string(r.Plan.Strategy), r.Plan.Priority, assessment, planDoc, r.CreatedAt,
	)
	if err != nil {
		fail(span, err)
		return fmt.Errorf("upsert plan record: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		fail(span, err)
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// scanRecord returns nil, nil when the row does not exist.
func scanRecord(row pgx.Row) (*triage.PlanRecord, error) {
	var (
		r               triage.PlanRecord
		assessment, doc []byte
	)
	err := row.Scan(&r.ID, &r.Fingerprint, &r.AssessmentSource, &r.PlanSource, &assessment, &doc, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan plan record: %w", err)
	}
	if err := json.Unmarshal(assessment, &r.Assessment); err != nil {
		return nil, fmt.Errorf("decode assessment: %w", err)
	}
	if err := json.Unmarshal(doc, &r.Plan); err != nil {
		return nil, fmt.Errorf("decode plan: %w", err)
	}
	r.CreatedAt = r.CreatedAt.UTC()
	return &r, nil
}
