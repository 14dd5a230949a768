// Package store handles SQLite persistence.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/verte-zerg/hplcgreen/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// ErrNotFound reports a missing method.
var ErrNotFound = errors.New("not found")

const factorVersionKey = "factor_version"

// timeLayout is fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store wraps SQLite access for methods, factor tables and score history.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS methods (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			config_json TEXT NOT NULL,
			gradient_json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS factors (
			position INTEGER NOT NULL,
			name TEXT PRIMARY KEY,
			data_json TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS score_history (
			run_id TEXT PRIMARY KEY,
			method_id TEXT NOT NULL,
			method_name TEXT NOT NULL,
			scored_at TEXT NOT NULL,
			schemes TEXT NOT NULL,
			score1 REAL NOT NULL,
			score2 REAL NOT NULL,
			score3 REAL NOT NULL,
			total_volume REAL NOT NULL,
			warnings INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS score_factors (
			run_id TEXT NOT NULL,
			stage TEXT NOT NULL,
			factor TEXT NOT NULL,
			value REAL NOT NULL,
			PRIMARY KEY (run_id, stage, factor)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_score_history_scored_at ON score_history(scored_at);`,
		`CREATE INDEX IF NOT EXISTS idx_score_history_method ON score_history(method_id);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// SaveMethod inserts or replaces a method and returns its ID. A new ID is
// assigned when cfg has none.
func (s *Store) SaveMethod(ctx context.Context, cfg model.MethodConfiguration, now time.Time) (string, error) {
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	configJSON, err := json.Marshal(cfg)
	if err != nil {
		return "", err
	}
	gradientJSON, err := json.Marshal(cfg.Gradient)
	if err != nil {
		return "", err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO methods (id, name, config_json, gradient_json, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name, config_json = excluded.config_json,
			gradient_json = excluded.gradient_json, updated_at = excluded.updated_at`,
		cfg.ID, cfg.Name, string(configJSON), string(gradientJSON), now.UTC().Format(timeLayout))
	if err != nil {
		return "", err
	}
	return cfg.ID, nil
}

// GetMethod loads a stored method with its gradient program.
func (s *Store) GetMethod(ctx context.Context, id string) (model.MethodConfiguration, error) {
	var configJSON, gradientJSON string
	err := s.db.QueryRowContext(ctx, `SELECT config_json, gradient_json FROM methods WHERE id = ?`, id).Scan(&configJSON, &gradientJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return model.MethodConfiguration{}, fmt.Errorf("method %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.MethodConfiguration{}, err
	}
	var cfg model.MethodConfiguration
	if err := json.Unmarshal([]byte(configJSON), &cfg); err != nil {
		return model.MethodConfiguration{}, err
	}
	if err := json.Unmarshal([]byte(gradientJSON), &cfg.Gradient); err != nil {
		return model.MethodConfiguration{}, err
	}
	return cfg, nil
}

// ListMethods returns stored methods ordered by name.
func (s *Store) ListMethods(ctx context.Context) ([]model.MethodSummary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, updated_at FROM methods ORDER BY name ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []model.MethodSummary
	for rows.Next() {
		var m model.MethodSummary
		var updatedAt string
		if err := rows.Scan(&m.ID, &m.Name, &updatedAt); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(time.RFC3339Nano, updatedAt)
		if err != nil {
			return nil, err
		}
		m.UpdatedAt = parsed
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// LoadFactors returns the stored factor table in order and its data version.
// An empty database yields a nil table and version 0.
func (s *Store) LoadFactors(ctx context.Context) ([]model.ReagentFactor, int, error) {
	version := 0
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, factorVersionKey).Scan(&raw)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return nil, 0, err
	default:
		version, err = strconv.Atoi(raw)
		if err != nil {
			return nil, 0, fmt.Errorf("invalid factor version %q: %w", raw, err)
		}
	}

	rows, err := s.db.QueryContext(ctx, `SELECT data_json FROM factors ORDER BY position ASC`)
	if err != nil {
		return nil, 0, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []model.ReagentFactor
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, 0, err
		}
		var f model.ReagentFactor
		if err := json.Unmarshal([]byte(data), &f); err != nil {
			return nil, 0, err
		}
		result = append(result, f)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return result, version, nil
}

// SaveFactors replaces the stored factor table and records its version.
func (s *Store) SaveFactors(ctx context.Context, items []model.ReagentFactor, version int) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM factors`); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO factors (position, name, data_json) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := stmt.Close(); cerr != nil {
			// Best-effort statement close.
			_ = cerr
		}
	}()
	for i, f := range items {
		data, merr := json.Marshal(f)
		if merr != nil {
			err = merr
			return err
		}
		if _, err = stmt.ExecContext(ctx, i, f.Name, string(data)); err != nil {
			return err
		}
	}
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO meta (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		factorVersionKey, strconv.Itoa(version)); err != nil {
		return err
	}
	err = tx.Commit()
	return err
}

// InsertScore stores a scoring run and its per-stage major factors. A run ID
// is assigned when rec has none.
func (s *Store) InsertScore(ctx context.Context, rec model.ScoreRecord, factors []model.ScoreFactor) (runID string, err error) {
	if rec.RunID == "" {
		rec.RunID = uuid.NewString()
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO score_history (run_id, method_id, method_name, scored_at, schemes, score1, score2, score3, total_volume, warnings)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID,
		rec.MethodID,
		rec.MethodName,
		rec.ScoredAt.UTC().Format(timeLayout),
		rec.Schemes,
		rec.Score1,
		rec.Score2,
		rec.Score3,
		rec.TotalVolume,
		rec.Warnings,
	)
	if err != nil {
		return "", err
	}

	if len(factors) > 0 {
		stmt, perr := tx.PrepareContext(ctx,
			`INSERT INTO score_factors (run_id, stage, factor, value) VALUES (?, ?, ?, ?)`)
		if perr != nil {
			err = perr
			return "", err
		}
		defer func() {
			if cerr := stmt.Close(); cerr != nil {
				// Best-effort statement close.
				_ = cerr
			}
		}()
		for _, f := range factors {
			if _, err = stmt.ExecContext(ctx, rec.RunID, f.Stage, f.Factor, f.Value); err != nil {
				return "", err
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return "", err
	}
	return rec.RunID, nil
}

// ListScores returns stored runs in chronological order. Last keeps only the
// most recent runs.
func (s *Store) ListScores(ctx context.Context, filter model.HistoryFilter) ([]model.ScoreRecord, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if filter.MethodID != "" {
		clauses = append(clauses, "method_id = ?")
		args = append(args, filter.MethodID)
	}
	if filter.Since != nil {
		clauses = append(clauses, "scored_at >= ?")
		args = append(args, filter.Since.UTC().Format(timeLayout))
	}
	limit := -1
	if filter.Last > 0 {
		limit = filter.Last
	}
	args = append(args, limit)
	query := fmt.Sprintf(`SELECT run_id, method_id, method_name, scored_at, schemes, score1, score2, score3, total_volume, warnings
		FROM (
			SELECT * FROM score_history
			WHERE %s
			ORDER BY scored_at DESC
			LIMIT ?
		)
		ORDER BY scored_at ASC`, strings.Join(clauses, " AND "))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var records []model.ScoreRecord
	for rows.Next() {
		var rec model.ScoreRecord
		var scoredAt string
		if err := rows.Scan(&rec.RunID, &rec.MethodID, &rec.MethodName, &scoredAt, &rec.Schemes,
			&rec.Score1, &rec.Score2, &rec.Score3, &rec.TotalVolume, &rec.Warnings); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(time.RFC3339Nano, scoredAt)
		if err != nil {
			return nil, err
		}
		rec.ScoredAt = parsed
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// ListScoreFactors returns the stored major factors keyed by run ID.
func (s *Store) ListScoreFactors(ctx context.Context, runIDs []string) (map[string][]model.ScoreFactor, error) {
	if len(runIDs) == 0 {
		return map[string][]model.ScoreFactor{}, nil
	}
	placeholders := make([]string, len(runIDs))
	args := make([]any, len(runIDs))
	for i, id := range runIDs {
		placeholders[i] = "?"
		args[i] = id
	}
	query := fmt.Sprintf(`SELECT run_id, stage, factor, value
		FROM score_factors
		WHERE run_id IN (%s)
		ORDER BY run_id, stage, factor`, strings.Join(placeholders, ","))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	result := map[string][]model.ScoreFactor{}
	for rows.Next() {
		var runID string
		var f model.ScoreFactor
		if err := rows.Scan(&runID, &f.Stage, &f.Factor, &f.Value); err != nil {
			return nil, err
		}
		result[runID] = append(result[runID], f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
