package record

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"data-sentinel/pkg/utils"

	"github.com/jackc/pgx/v5/pgconn"
)

// PostgresStore persists audit records in Postgres (pgx stdlib driver).
//
// NOTE: This store assumes the following schema exists:
//
//	CREATE TABLE audit_records (
//	    audit_id        text PRIMARY KEY,
//	    requester_email text        NOT NULL,
//	    file_name       text        NOT NULL,
//	    storage_path    text        NOT NULL,
//	    raw_text        text        NOT NULL,
//	    status          text        NOT NULL,
//	    sensitive_data_count integer,
//	    masked_sample   jsonb,
//	    created_at      timestamptz NOT NULL,
//	    updated_at      timestamptz NOT NULL
//	);
//	CREATE INDEX audit_records_requester_idx
//	    ON audit_records (requester_email, created_at DESC, audit_id DESC);
//
// The requester index is a true ordered index; queries never fall back to a
// sequential scan + filter.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const pgUniqueViolation = "23505"

func (s *PostgresStore) Create(ctx context.Context, rec AuditRecord) error {
	if rec.AuditID == "" {
		return ErrInvalidArgument
	}
	const q = `
INSERT INTO audit_records
  (audit_id, requester_email, file_name, storage_path, raw_text, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`
	_, err := s.db.ExecContext(ctx, q,
		rec.AuditID,
		rec.RequesterEmail,
		rec.FileName,
		rec.StoragePath,
		rec.RawText,
		string(rec.Status),
		rec.CreatedAt.UTC(),
		rec.UpdatedAt.UTC(),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrDuplicateKey
		}
		return fmt.Errorf("record: create: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, auditID string) (AuditRecord, error) {
	const q = `
SELECT audit_id, requester_email, file_name, storage_path, raw_text, status,
       sensitive_data_count, masked_sample, created_at, updated_at
FROM audit_records
WHERE audit_id = $1
`
	return scanRecord(s.db.QueryRowContext(ctx, q, auditID))
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, auditID string, status Status, summary *Summary, now time.Time) error {
	return utils.WithTx(ctx, s.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		// Lock the row to serialize racing Analyze invocations for the same id.
		const sel = `
SELECT status FROM audit_records WHERE audit_id = $1 FOR UPDATE
`
		var current Status
		if err := tx.QueryRowContext(ctx, sel, auditID).Scan(&current); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("record: update status: %w", err)
		}

		apply, err := checkTransition(current, status)
		if err != nil {
			return err
		}
		if !apply {
			return nil
		}

		var count sql.NullInt64
		var sample []byte
		if summary != nil {
			count = sql.NullInt64{Int64: int64(summary.SensitiveDataCount), Valid: true}
			sample, err = json.Marshal(summary.MaskedSample)
			if err != nil {
				return fmt.Errorf("record: encode sample: %w", err)
			}
		}

		const upd = `
UPDATE audit_records
SET status = $2, sensitive_data_count = $3, masked_sample = $4, updated_at = $5
WHERE audit_id = $1
`
		if _, err := tx.ExecContext(ctx, upd, auditID, string(status), count, sample, now.UTC()); err != nil {
			return fmt.Errorf("record: update status: %w", err)
		}
		return nil
	})
}

func (s *PostgresStore) ListByRequester(ctx context.Context, email string, limit int) ([]AuditRecord, error) {
	if limit <= 0 {
		return []AuditRecord{}, nil
	}
	const q = `
SELECT audit_id, requester_email, file_name, storage_path, raw_text, status,
       sensitive_data_count, masked_sample, created_at, updated_at
FROM audit_records
WHERE requester_email = $1
ORDER BY created_at DESC, audit_id DESC
LIMIT $2
`
	rows, err := s.db.QueryContext(ctx, q, email, limit)
	if err != nil {
		return nil, fmt.Errorf("record: list by requester: %w", err)
	}
	defer rows.Close()

	out := make([]AuditRecord, 0, limit)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("record: list by requester: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Delete(ctx context.Context, auditID string) error {
	const q = `DELETE FROM audit_records WHERE audit_id = $1`
	if _, err := s.db.ExecContext(ctx, q, auditID); err != nil {
		return fmt.Errorf("record: delete: %w", err)
	}
	return nil
}

func (s *PostgresStore) Clear(ctx context.Context) error {
	const q = `DELETE FROM audit_records`
	if _, err := s.db.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("record: clear: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (AuditRecord, error) {
	var rec AuditRecord
	var status string
	var count sql.NullInt64
	var sample []byte
	if err := row.Scan(
		&rec.AuditID,
		&rec.RequesterEmail,
		&rec.FileName,
		&rec.StoragePath,
		&rec.RawText,
		&status,
		&count,
		&sample,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return AuditRecord{}, ErrNotFound
		}
		return AuditRecord{}, fmt.Errorf("record: scan: %w", err)
	}
	rec.Status = Status(status)
	if count.Valid {
		sum := Summary{SensitiveDataCount: int(count.Int64)}
		if len(sample) > 0 {
			if err := json.Unmarshal(sample, &sum.MaskedSample); err != nil {
				return AuditRecord{}, fmt.Errorf("record: decode sample: %w", err)
			}
		}
		if sum.MaskedSample == nil {
			sum.MaskedSample = []map[string]string{}
		}
		rec.Summary = &sum
	}
	return rec, nil
}
