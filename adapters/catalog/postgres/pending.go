package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"datamart/domain/core"
	"datamart/domain/dataset"
)

// PendingStore implements ports.PendingStore against a single-row-per-
// source table, the Discovery Loop's durable change-detection cursor.
type PendingStore struct {
	db *sqlx.DB
}

func NewPendingStore(db *sqlx.DB) *PendingStore {
	return &PendingStore{db: db}
}

func (s *PendingStore) Get(ctx context.Context, sourceIdentifier string) (dataset.PendingRecord, bool, error) {
	var sha1 string
	err := s.db.QueryRowContext(ctx,
		`SELECT sha1 FROM pending_records WHERE source_identifier = $1`, sourceIdentifier,
	).Scan(&sha1)
	if err == sql.ErrNoRows {
		return dataset.PendingRecord{}, false, nil
	}
	if err != nil {
		return dataset.PendingRecord{}, false, fmt.Errorf("failed to get pending record: %w", err)
	}
	return dataset.PendingRecord{SourceIdentifier: sourceIdentifier, Sha1: core.Sha1Digest(sha1)}, true, nil
}

func (s *PendingStore) Put(ctx context.Context, record dataset.PendingRecord) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO pending_records (source_identifier, sha1)
		VALUES ($1, $2)
		ON CONFLICT (source_identifier) DO UPDATE SET sha1 = EXCLUDED.sha1`,
		record.SourceIdentifier, record.Sha1.String())
	if err != nil {
		return fmt.Errorf("failed to put pending record: %w", err)
	}
	return nil
}
