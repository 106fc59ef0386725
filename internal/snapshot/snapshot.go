// Package snapshot writes captures of the batch view into a DuckDB file so
// they can be queried offline.
package snapshot

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/tinytelemetry/olam/internal/model"
	"github.com/tinytelemetry/olam/internal/query"
	"github.com/tinytelemetry/olam/internal/snapshot/migrate"
)

// Store is an open snapshot database.
type Store struct {
	db     *sql.DB
	mu     sync.Mutex
	dbPath string
}

// Open opens or creates the snapshot database at dbPath and migrates it.
// An empty dbPath opens an in-memory database.
func Open(ctx context.Context, dbPath string) (*Store, error) {
	if dbPath != "" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("snapshot: create dir: %w", err)
		}
	}
	db, err := sql.Open("duckdb", dbPath)
	if err != nil {
		return nil, fmt.Errorf("snapshot: open %s: %w", dbPath, err)
	}
	if err := migrate.NewRunner(db).Run(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	return &Store{db: db, dbPath: dbPath}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file, or "" for an in-memory store.
func (s *Store) Path() string { return s.dbPath }

// Export is one capture of the batch view.
type Export struct {
	CapturedAt time.Time
	BaseURL    string
	Filter     model.Filter
	Summary    model.BatchSummary
	Rounds     model.RoundsByBatch
}

// ExportInfo describes a stored export.
type ExportInfo struct {
	ID         int64
	CapturedAt time.Time
	BaseURL    string
	FilterMode string
	Filter     model.Filter
	Batches    int
}

// Write stores e in one transaction and returns its id.
func (s *Store) Write(ctx context.Context, e Export) (int64, error) {
	if e.CapturedAt.IsZero() {
		e.CapturedAt = time.Now()
	}
	filterJSON, err := json.Marshal(e.Filter)
	if err != nil {
		return 0, fmt.Errorf("snapshot: encode filter: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("snapshot: begin: %w", err)
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRowContext(ctx,
		`INSERT INTO exports (captured_at, base_url, filter_mode, filter_json) VALUES (?, ?, ?, ?) RETURNING id`,
		e.CapturedAt.UTC(), e.BaseURL, query.ModeOf(e.Filter).String(), string(filterJSON),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("snapshot: insert export: %w", err)
	}

	if err := insertPoints(ctx, tx, id, e.Summary); err != nil {
		return 0, err
	}
	if err := insertRounds(ctx, tx, id, e.Rounds); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("snapshot: commit: %w", err)
	}
	return id, nil
}

func insertPoints(ctx context.Context, tx *sql.Tx, id int64, b model.BatchSummary) error {
	if b.Len() == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO batch_points (export_id, position, batch_id, frequency, stdev, label) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("snapshot: prepare batch points: %w", err)
	}
	defer stmt.Close()

	for i, batchID := range b.BatchIDs {
		if _, err := stmt.ExecContext(ctx, id, i, batchID, b.Frequencies[i], b.Stdevs[i], b.Timestamps[i]); err != nil {
			return fmt.Errorf("snapshot: insert batch %s: %w", batchID, err)
		}
	}
	return nil
}

func insertRounds(ctx context.Context, tx *sql.Tx, id int64, rounds model.RoundsByBatch) error {
	if len(rounds) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO batch_rounds (export_id, batch_id, round_count, resonant, stdev, measured_at) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("snapshot: prepare rounds: %w", err)
	}
	defer stmt.Close()

	for batchID, rs := range rounds {
		for _, r := range rs {
			if _, err := stmt.ExecContext(ctx, id, batchID, r.Count, r.Resonant, r.Stdev, r.Time); err != nil {
				return fmt.Errorf("snapshot: insert rounds of %s: %w", batchID, err)
			}
		}
	}
	return nil
}

// Exports lists stored exports, newest first.
func (s *Store) Exports(ctx context.Context) ([]ExportInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT e.id, e.captured_at, e.base_url, e.filter_mode, e.filter_json, COUNT(p.position)
		FROM exports e
		LEFT JOIN batch_points p ON p.export_id = e.id
		GROUP BY e.id, e.captured_at, e.base_url, e.filter_mode, e.filter_json
		ORDER BY e.id DESC`)
	if err != nil {
		return nil, fmt.Errorf("snapshot: list exports: %w", err)
	}
	defer rows.Close()

	var out []ExportInfo
	for rows.Next() {
		var (
			info       ExportInfo
			filterJSON string
		)
		if err := rows.Scan(&info.ID, &info.CapturedAt, &info.BaseURL, &info.FilterMode, &filterJSON, &info.Batches); err != nil {
			return nil, fmt.Errorf("snapshot: scan export: %w", err)
		}
		if err := json.Unmarshal([]byte(filterJSON), &info.Filter); err != nil {
			return nil, fmt.Errorf("snapshot: decode filter of export %d: %w", info.ID, err)
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

// Summary reads back the batch summary of export id.
func (s *Store) Summary(ctx context.Context, id int64) (model.BatchSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT batch_id, frequency, stdev, label FROM batch_points WHERE export_id = ? ORDER BY position`, id)
	if err != nil {
		return model.BatchSummary{}, fmt.Errorf("snapshot: read batch points: %w", err)
	}
	defer rows.Close()

	out := model.EmptyBatchSummary()
	for rows.Next() {
		var (
			batchID, label string
			freq, stdev    float64
		)
		if err := rows.Scan(&batchID, &freq, &stdev, &label); err != nil {
			return model.BatchSummary{}, fmt.Errorf("snapshot: scan batch point: %w", err)
		}
		out.BatchIDs = append(out.BatchIDs, batchID)
		out.Frequencies = append(out.Frequencies, freq)
		out.Stdevs = append(out.Stdevs, stdev)
		out.Timestamps = append(out.Timestamps, label)
	}
	return out, rows.Err()
}

// Rounds reads back the per-round curves of export id.
func (s *Store) Rounds(ctx context.Context, id int64) (model.RoundsByBatch, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT batch_id, round_count, resonant, stdev, measured_at FROM batch_rounds
		 WHERE export_id = ? ORDER BY batch_id, round_count`, id)
	if err != nil {
		return nil, fmt.Errorf("snapshot: read rounds: %w", err)
	}
	defer rows.Close()

	out := model.RoundsByBatch{}
	for rows.Next() {
		var (
			batchID string
			r       model.Round
		)
		if err := rows.Scan(&batchID, &r.Count, &r.Resonant, &r.Stdev, &r.Time); err != nil {
			return nil, fmt.Errorf("snapshot: scan round: %w", err)
		}
		out[batchID] = append(out[batchID], r)
	}
	return out, rows.Err()
}
