// Package postgres is the Catalog adapter backing C4 with a JSONB
// document store, following the same marshal-to-JSONB-column pattern as
// the teacher's dataset repository: nested collections (columns,
// spatial_coverage, materialize) are stored as JSONB columns, and Search
// evaluates queries in Go with query.Evaluate over the scanned rows.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"datamart/domain/core"
	"datamart/domain/dataset"
	"datamart/ports"
	"datamart/query"
)

// Catalog implements ports.Catalog against a "profiles" table with JSONB
// columns for the nested collections.
type Catalog struct {
	db *sqlx.DB
}

func NewCatalog(db *sqlx.DB) *Catalog {
	return &Catalog{db: db}
}

// Put upserts a Profile by id, fully replacing the document.
func (c *Catalog) Put(ctx context.Context, profile *dataset.Profile) error {
	columnsJSON, err := json.Marshal(profile.Columns)
	if err != nil {
		return fmt.Errorf("failed to marshal columns: %w", err)
	}
	spatialJSON, err := json.Marshal(profile.SpatialCoverage)
	if err != nil {
		return fmt.Errorf("failed to marshal spatial_coverage: %w", err)
	}
	materializeJSON, err := json.Marshal(profile.Materialize)
	if err != nil {
		return fmt.Errorf("failed to marshal materialize: %w", err)
	}
	lazoJSON, err := json.Marshal(profile.Lazo)
	if err != nil {
		return fmt.Errorf("failed to marshal lazo: %w", err)
	}

	stmt := `INSERT INTO profiles (
		id, source_identifier, name, description, nb_rows, size_bytes,
		columns, spatial_coverage, materialize, lazo, indexed_at
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
	)
	ON CONFLICT (id) DO UPDATE SET
		source_identifier = EXCLUDED.source_identifier,
		name = EXCLUDED.name,
		description = EXCLUDED.description,
		nb_rows = EXCLUDED.nb_rows,
		size_bytes = EXCLUDED.size_bytes,
		columns = EXCLUDED.columns,
		spatial_coverage = EXCLUDED.spatial_coverage,
		materialize = EXCLUDED.materialize,
		lazo = EXCLUDED.lazo,
		indexed_at = EXCLUDED.indexed_at`

	_, err = c.db.ExecContext(ctx, stmt,
		profile.ID, profile.Materialize.Identifier, profile.Name, profile.Description,
		profile.NbRows, profile.SizeBytes, columnsJSON, spatialJSON, materializeJSON,
		lazoJSON, profile.IndexedAt.Time(),
	)
	if err != nil {
		return fmt.Errorf("failed to put profile: %w", err)
	}
	return nil
}

// Get retrieves a Profile by id.
func (c *Catalog) Get(ctx context.Context, id dataset.Id) (*dataset.Profile, error) {
	stmt := `SELECT
		id, name, COALESCE(description, '') as description, nb_rows, size_bytes,
		columns, spatial_coverage, materialize, COALESCE(lazo, '[]') as lazo, indexed_at
	FROM profiles WHERE id = $1`

	var p dataset.Profile
	var columnsJSON, spatialJSON, materializeJSON, lazoJSON []byte
	var indexedAt sqlTime

	err := c.db.QueryRowContext(ctx, stmt, id).Scan(
		&p.ID, &p.Name, &p.Description, &p.NbRows, &p.SizeBytes,
		&columnsJSON, &spatialJSON, &materializeJSON, &lazoJSON, &indexedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, core.NewDatasetNotFoundError(string(id))
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	if err := unmarshalAll(columnsJSON, &p.Columns, spatialJSON, &p.SpatialCoverage,
		materializeJSON, &p.Materialize, lazoJSON, &p.Lazo); err != nil {
		return nil, err
	}
	p.IndexedAt = core.NewTimestamp(indexedAt.Time)
	return &p, nil
}

// Delete removes a Profile by id.
func (c *Catalog) Delete(ctx context.Context, id dataset.Id) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM profiles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}
	return nil
}

// Scan streams all documents matching the filter, used by the Discovery
// Loop's per-pass reconciliation.
func (c *Catalog) Scan(ctx context.Context, filter ports.ScanFilter) ([]*dataset.Profile, error) {
	stmt := `SELECT
		id, name, COALESCE(description, '') as description, nb_rows, size_bytes,
		columns, spatial_coverage, materialize, COALESCE(lazo, '[]') as lazo, indexed_at
	FROM profiles`
	args := []interface{}{}
	if filter.SourceIdentifier != "" {
		stmt += ` WHERE source_identifier = $1`
		args = append(args, filter.SourceIdentifier)
	}

	rows, err := c.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to scan profiles: %w", err)
	}
	defer rows.Close()

	var out []*dataset.Profile
	for rows.Next() {
		var p dataset.Profile
		var columnsJSON, spatialJSON, materializeJSON, lazoJSON []byte
		var indexedAt sqlTime
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.NbRows, &p.SizeBytes,
			&columnsJSON, &spatialJSON, &materializeJSON, &lazoJSON, &indexedAt); err != nil {
			return nil, fmt.Errorf("failed to scan profile row: %w", err)
		}
		if err := unmarshalAll(columnsJSON, &p.Columns, spatialJSON, &p.SpatialCoverage,
			materializeJSON, &p.Materialize, lazoJSON, &p.Lazo); err != nil {
			return nil, err
		}
		p.IndexedAt = core.NewTimestamp(indexedAt.Time)
		out = append(out, &p)
	}
	return out, nil
}

// Search evaluates a compiled query tree. It scans every stored profile
// and runs query.Evaluate over the rows in Go; no predicate is compiled
// to SQL. Matching is therefore the same code as the in-memory adapter,
// just sourced from Postgres rows instead of a map.
func (c *Catalog) Search(ctx context.Context, tree *query.Tree) ([]ports.SearchHit, error) {
	profiles, err := c.Scan(ctx, ports.ScanFilter{})
	if err != nil {
		return nil, err
	}
	hits := query.Evaluate(profiles, tree)
	out := make([]ports.SearchHit, len(hits))
	for i, h := range hits {
		out[i] = ports.SearchHit{ID: h.ID, Score: h.Score, Source: h.Source}
	}
	return out, nil
}

type sqlTime = sql.NullTime

func unmarshalAll(columnsJSON []byte, columns *[]dataset.ColumnProfile,
	spatialJSON []byte, spatial *[]dataset.SpatialCoverage,
	materializeJSON []byte, materialize *dataset.Materialize,
	lazoJSON []byte, lazo *[]dataset.Lazo) error {
	if len(columnsJSON) > 0 {
		if err := json.Unmarshal(columnsJSON, columns); err != nil {
			return fmt.Errorf("failed to unmarshal columns: %w", err)
		}
	}
	if len(spatialJSON) > 0 {
		if err := json.Unmarshal(spatialJSON, spatial); err != nil {
			return fmt.Errorf("failed to unmarshal spatial_coverage: %w", err)
		}
	}
	if len(materializeJSON) > 0 {
		if err := json.Unmarshal(materializeJSON, materialize); err != nil {
			return fmt.Errorf("failed to unmarshal materialize: %w", err)
		}
	}
	if len(lazoJSON) > 0 {
		if err := json.Unmarshal(lazoJSON, lazo); err != nil {
			return fmt.Errorf("failed to unmarshal lazo: %w", err)
		}
	}
	return nil
}
