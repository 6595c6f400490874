// Package store provides SQLite persistence for investigations, their raw
// signals, and prior path state. Holding path state here is what lets the
// engine stay a pure function: the service loads the previous lifecycle
// snapshot, recomputes, reconciles, and writes the diff back.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/inquestlabs/inquest-engine/internal/models"
)

// Store handles SQLite persistence. All methods are safe for concurrent use;
// writes per investigation are serialised by the internal mutex, which also
// gives the recommended at-most-one-recompute-at-a-time behaviour.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Open creates a Store at the given database path, creating tables as
// needed. Use ":memory:" for tests.
func Open(dbPath string) (*Store, error) {
	connStr := dbPath
	if dbPath == ":memory:" {
		// Shared cache so every pooled connection sees the same database.
		connStr = "file::memory:?cache=shared"
	}

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS investigations (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		hypothesis TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS signals (
		id TEXT NOT NULL,
		investigation_id TEXT NOT NULL,
		source TEXT NOT NULL,
		url TEXT,
		observed_at DATETIME,
		tier TEXT,
		impact TEXT NOT NULL,
		facts TEXT,
		kind TEXT,
		created_at DATETIME NOT NULL,
		PRIMARY KEY (investigation_id, id),
		FOREIGN KEY (investigation_id) REFERENCES investigations(id)
	);

	CREATE INDEX IF NOT EXISTS idx_signals_investigation ON signals(investigation_id);

	CREATE TABLE IF NOT EXISTS path_state (
		id TEXT NOT NULL,
		investigation_id TEXT NOT NULL,
		node_ids TEXT NOT NULL,
		status TEXT NOT NULL,
		confidence REAL NOT NULL,
		hypothesis_label TEXT,
		updated_at DATETIME NOT NULL,
		PRIMARY KEY (investigation_id, id),
		FOREIGN KEY (investigation_id) REFERENCES investigations(id)
	);

	CREATE INDEX IF NOT EXISTS idx_path_state_investigation ON path_state(investigation_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateInvestigation inserts a new investigation record.
func (s *Store) CreateInvestigation(ctx context.Context, inv models.Investigation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO investigations (id, title, hypothesis, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		inv.ID, inv.Title, inv.Hypothesis, inv.CreatedAt.UTC(), inv.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert investigation: %w", err)
	}
	return nil
}

// GetInvestigation loads one investigation by id.
func (s *Store) GetInvestigation(ctx context.Context, id string) (models.Investigation, error) {
	var inv models.Investigation
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, hypothesis, created_at, updated_at
		FROM investigations WHERE id = ?`, id).
		Scan(&inv.ID, &inv.Title, &inv.Hypothesis, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return models.Investigation{}, fmt.Errorf("load investigation %s: %w", id, err)
	}
	return inv, nil
}

// ListInvestigations returns all investigations, newest first.
func (s *Store) ListInvestigations(ctx context.Context) ([]models.Investigation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, hypothesis, created_at, updated_at
		FROM investigations ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list investigations: %w", err)
	}
	defer rows.Close()

	var out []models.Investigation
	for rows.Next() {
		var inv models.Investigation
		if err := rows.Scan(&inv.ID, &inv.Title, &inv.Hypothesis, &inv.CreatedAt, &inv.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

// TouchInvestigation bumps an investigation's updated_at stamp.
func (s *Store) TouchInvestigation(ctx context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`UPDATE investigations SET updated_at = ? WHERE id = ?`, at.UTC(), id)
	return err
}

// SaveSignals upserts a batch of signals for an investigation and returns
// the number of rows written. Signals are immutable facts; an upsert on an
// existing id only refreshes auxiliary fields.
func (s *Store) SaveSignals(ctx context.Context, investigationID string, signals []models.Signal) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO signals (id, investigation_id, source, url, observed_at, tier, impact, facts, kind, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(investigation_id, id) DO UPDATE SET
			url = excluded.url,
			tier = excluded.tier,
			impact = excluded.impact,
			facts = excluded.facts`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	inserted := 0
	for _, sig := range signals {
		facts, err := json.Marshal(sig.Facts)
		if err != nil {
			return 0, fmt.Errorf("marshal facts for %s: %w", sig.ID, err)
		}
		var observed any
		if sig.ObservedAt != nil {
			observed = sig.ObservedAt.UTC()
		}
		res, err := stmt.ExecContext(ctx, sig.ID, investigationID, sig.Source, sig.URL,
			observed, string(sig.Tier), string(sig.Impact), string(facts), string(sig.Kind), sig.CreatedAt.UTC())
		if err != nil {
			return 0, fmt.Errorf("save signal %s: %w", sig.ID, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return inserted, nil
}

// ListSignals returns every stored signal for an investigation.
func (s *Store) ListSignals(ctx context.Context, investigationID string) ([]models.Signal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source, url, observed_at, tier, impact, facts, kind, created_at
		FROM signals WHERE investigation_id = ? ORDER BY created_at, id`, investigationID)
	if err != nil {
		return nil, fmt.Errorf("list signals: %w", err)
	}
	defer rows.Close()

	var out []models.Signal
	for rows.Next() {
		var (
			sig      models.Signal
			url      sql.NullString
			observed sql.NullTime
			tier     sql.NullString
			facts    sql.NullString
			kind     sql.NullString
		)
		if err := rows.Scan(&sig.ID, &sig.Source, &url, &observed, &tier, &sig.Impact, &facts, &kind, &sig.CreatedAt); err != nil {
			return nil, err
		}
		sig.URL = url.String
		if observed.Valid {
			t := observed.Time
			sig.ObservedAt = &t
		}
		sig.Tier = models.CredibilityTier(tier.String)
		sig.Kind = models.NodeType(kind.String)
		if facts.Valid && facts.String != "" {
			if err := json.Unmarshal([]byte(facts.String), &sig.Facts); err != nil {
				return nil, fmt.Errorf("unmarshal facts for %s: %w", sig.ID, err)
			}
		}
		out = append(out, sig)
	}
	return out, rows.Err()
}

// LoadPathState returns the previously persisted lifecycle state for an
// investigation's threads.
func (s *Store) LoadPathState(ctx context.Context, investigationID string) ([]models.Path, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, node_ids, status, confidence, hypothesis_label
		FROM path_state WHERE investigation_id = ? ORDER BY confidence DESC, id`, investigationID)
	if err != nil {
		return nil, fmt.Errorf("load path state: %w", err)
	}
	defer rows.Close()

	var out []models.Path
	for rows.Next() {
		var (
			p       models.Path
			nodeIDs string
			label   sql.NullString
		)
		if err := rows.Scan(&p.ID, &nodeIDs, &p.Status, &p.Confidence, &label); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(nodeIDs), &p.NodeIDs); err != nil {
			return nil, fmt.Errorf("unmarshal node ids for %s: %w", p.ID, err)
		}
		p.HypothesisLabel = label.String
		out = append(out, p)
	}
	return out, rows.Err()
}

// SavePathState upserts the reconciled lifecycle state. Historic threads no
// longer present in the recomputation are left untouched: paths are
// append-only and must stay auditable.
func (s *Store) SavePathState(ctx context.Context, investigationID string, paths []models.Path, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO path_state (id, investigation_id, node_ids, status, confidence, hypothesis_label, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(investigation_id, id) DO UPDATE SET
			status = excluded.status,
			confidence = excluded.confidence,
			hypothesis_label = excluded.hypothesis_label,
			updated_at = excluded.updated_at`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range paths {
		nodeIDs, err := json.Marshal(p.NodeIDs)
		if err != nil {
			return fmt.Errorf("marshal node ids for %s: %w", p.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, p.ID, investigationID, string(nodeIDs),
			string(p.Status), p.Confidence, p.HypothesisLabel, at.UTC()); err != nil {
			return fmt.Errorf("save path %s: %w", p.ID, err)
		}
	}

	return tx.Commit()
}
