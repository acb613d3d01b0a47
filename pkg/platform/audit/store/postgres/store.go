package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	audit "tiermask/pkg/platform/audit"
	"tiermask/pkg/platform/sentinel"
	"tiermask/pkg/platform/tx"
)

// Schema creates the append-only audit table. The table has no UPDATE or
// DELETE path in this codebase; retention is handled outside it.
const Schema = `
CREATE TABLE IF NOT EXISTS masking_audit (
	id             UUID PRIMARY KEY,
	recorded_at    TIMESTAMPTZ NOT NULL,
	viewer_id      TEXT NOT NULL DEFAULT '',
	request_id     TEXT NOT NULL DEFAULT '',
	tier           TEXT NOT NULL,
	data_type      TEXT NOT NULL,
	field          TEXT NOT NULL DEFAULT '',
	rule_id        TEXT NOT NULL DEFAULT '',
	policy_version TEXT NOT NULL DEFAULT '',
	full_reveal    BOOLEAN NOT NULL,
	fallback       BOOLEAN NOT NULL,
	reason         TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS masking_audit_viewer_idx ON masking_audit (viewer_id, recorded_at DESC);
`

const insertRecord = `
	INSERT INTO masking_audit (
		id, recorded_at, viewer_id, request_id, tier, data_type,
		field, rule_id, policy_version, full_reveal, fallback, reason
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	ON CONFLICT (id) DO NOTHING
`

// Store implements audit.Store on PostgreSQL. A batch is written in one
// transaction, or joins the caller's transaction when ctx carries one.
type Store struct {
	db *sql.DB
}

// New creates a PostgreSQL audit store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// EnsureSchema creates the audit table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("create masking_audit schema: %w", classify(err))
	}
	return nil
}

// Append inserts records. Re-sending a record is a no-op, so the sink may
// retry a batch whose commit outcome it never learned.
func (s *Store) Append(ctx context.Context, records []audit.Record) error {
	if len(records) == 0 {
		return nil
	}
	return tx.Run(ctx, s.db, func(ctx context.Context, t *sql.Tx) error {
		stmt, err := t.PrepareContext(ctx, insertRecord)
		if err != nil {
			return fmt.Errorf("prepare audit insert: %w", classify(err))
		}
		defer stmt.Close()

		for _, r := range records {
			_, err := stmt.ExecContext(ctx,
				r.ID,
				r.Timestamp,
				r.ViewerID,
				r.RequestID,
				r.Tier,
				r.DataType,
				r.Field,
				r.RuleID,
				r.PolicyVersion,
				r.FullReveal,
				r.Fallback,
				string(r.Reason),
			)
			if err != nil {
				return fmt.Errorf("insert audit record: %w", classify(err))
			}
		}
		return nil
	})
}

// ListByViewer returns the most recent records for one viewer, newest first.
func (s *Store) ListByViewer(ctx context.Context, viewerID string, limit int) ([]audit.Record, error) {
	query := `
		SELECT id, recorded_at, viewer_id, request_id, tier, data_type,
			   field, rule_id, policy_version, full_reveal, fallback, reason
		FROM masking_audit
		WHERE viewer_id = $1
		ORDER BY recorded_at DESC
		LIMIT $2
	`
	rows, err := s.db.QueryContext(ctx, query, viewerID, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit records: %w", classify(err))
	}
	defer rows.Close()

	var records []audit.Record
	for rows.Next() {
		var (
			r      audit.Record
			reason string
		)
		err := rows.Scan(
			&r.ID,
			&r.Timestamp,
			&r.ViewerID,
			&r.RequestID,
			&r.Tier,
			&r.DataType,
			&r.Field,
			&r.RuleID,
			&r.PolicyVersion,
			&r.FullReveal,
			&r.Fallback,
			&reason,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit record: %w", err)
		}
		r.Reason = audit.Reason(reason)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit records: %w", err)
	}
	return records, nil
}

// classify marks connection-class failures (SQLSTATE class 08) and
// insufficient-resources failures (class 53) as unavailable.
func classify(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Class() {
		case "08", "53":
			return errors.Join(sentinel.ErrUnavailable, err)
		}
	}
	if errors.Is(err, sql.ErrConnDone) {
		return errors.Join(sentinel.ErrUnavailable, err)
	}
	return err
}
