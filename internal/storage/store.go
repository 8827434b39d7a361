package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mrzor/buildlens/internal/result"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a build id does not exist.
var ErrNotFound = errors.New("build not found")

// Build describes one stored analysis.
type Build struct {
	ID             int64
	ProjectFile    string
	Source         string
	OverallSuccess bool
	Finished       bool
	Error          string
	AnalyzedAt     time.Time
	Results        int
}

// Store wraps the database connection.
// Thread-safe: all methods take mu.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open opens or creates the database at dbPath. ":memory:" opens an
// in-memory database shared by the process until its last Store closes.
func Open(dbPath string) (*Store, error) {
	connStr := dbPath
	if dbPath == ":memory:" {
		connStr = "file::memory:?cache=shared"
	}

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A shared-cache memory database lives as long as its last connection.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if dbPath != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to enable WAL: %w", err)
		}
	}

	s := &Store{db: db}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

func (s *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS builds (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		project_file TEXT NOT NULL,
		source TEXT NOT NULL DEFAULT '',
		overall_success INTEGER NOT NULL DEFAULT 0,
		finished INTEGER NOT NULL DEFAULT 0,
		error TEXT NOT NULL DEFAULT '',
		analyzed_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS results (
		build_id INTEGER NOT NULL,
		ordinal INTEGER NOT NULL,
		target_framework TEXT NOT NULL,
		status TEXT NOT NULL,
		properties TEXT NOT NULL,
		items TEXT NOT NULL,
		compiler TEXT,
		PRIMARY KEY (build_id, ordinal)
	);

	CREATE INDEX IF NOT EXISTS idx_builds_project ON builds(project_file);
	CREATE INDEX IF NOT EXISTS idx_builds_analyzed ON builds(analyzed_at DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// SaveBuild stores rs under a new build row and returns its id. b.ID and
// b.Results are ignored; ProjectFile and OverallSuccess default to rs.
func (s *Store) SaveBuild(ctx context.Context, b Build, rs *result.Results) (int64, error) {
	if rs == nil {
		return 0, errors.New("no results to save")
	}
	if b.ProjectFile == "" {
		b.ProjectFile = rs.ProjectFile()
	}
	if b.AnalyzedAt.IsZero() {
		b.AnalyzedAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO builds (project_file, source, overall_success, finished, error, analyzed_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		b.ProjectFile, b.Source, boolToInt(rs.OverallSuccess()), boolToInt(b.Finished), b.Error, b.AnalyzedAt.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert build: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO results (build_id, ordinal, target_framework, status, properties, items, compiler)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for i, r := range rs.All() {
		props, items, cmd, err := encodeResult(r)
		if err != nil {
			return 0, fmt.Errorf("failed to encode result %q: %w", r.TargetFramework(), err)
		}
		if _, err := stmt.ExecContext(ctx, id, i, r.TargetFramework(), r.Status().String(), props, items, cmd); err != nil {
			return 0, fmt.Errorf("failed to insert result %q: %w", r.TargetFramework(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// ListBuilds returns the most recent builds first. A non-empty projectFile
// restricts the listing to that project; limit <= 0 means no limit.
func (s *Store) ListBuilds(ctx context.Context, projectFile string, limit int) ([]Build, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT b.id, b.project_file, b.source, b.overall_success, b.finished, b.error, b.analyzed_at,
			(SELECT COUNT(*) FROM results r WHERE r.build_id = b.id)
		FROM builds b
		WHERE (? = '' OR b.project_file = ?)
		ORDER BY b.analyzed_at DESC, b.id DESC
		LIMIT ?
	`
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, query, projectFile, projectFile, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var builds []Build
	for rows.Next() {
		var b Build
		var success, finished int
		if err := rows.Scan(&b.ID, &b.ProjectFile, &b.Source, &success, &finished, &b.Error, &b.AnalyzedAt, &b.Results); err != nil {
			return nil, err
		}
		b.OverallSuccess = success != 0
		b.Finished = finished != 0
		builds = append(builds, b)
	}
	return builds, rows.Err()
}

// LoadBuild returns a stored build and its results.
func (s *Store) LoadBuild(ctx context.Context, id int64) (Build, *result.Results, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var b Build
	var success, finished int
	err := s.db.QueryRowContext(ctx,
		`SELECT id, project_file, source, overall_success, finished, error, analyzed_at FROM builds WHERE id = ?`, id,
	).Scan(&b.ID, &b.ProjectFile, &b.Source, &success, &finished, &b.Error, &b.AnalyzedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Build{}, nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	if err != nil {
		return Build{}, nil, err
	}
	b.OverallSuccess = success != 0
	b.Finished = finished != 0

	rows, err := s.db.QueryContext(ctx,
		`SELECT target_framework, status, properties, items, compiler
		FROM results WHERE build_id = ? ORDER BY ordinal`, id)
	if err != nil {
		return Build{}, nil, err
	}
	defer rows.Close()

	var all []*result.Result
	for rows.Next() {
		var tfm, status, props, items string
		var cmd sql.NullString
		if err := rows.Scan(&tfm, &status, &props, &items, &cmd); err != nil {
			return Build{}, nil, err
		}
		r, err := decodeResult(b.ProjectFile, tfm, status, props, items, cmd)
		if err != nil {
			return Build{}, nil, fmt.Errorf("failed to decode result %q: %w", tfm, err)
		}
		all = append(all, r)
	}
	if err := rows.Err(); err != nil {
		return Build{}, nil, err
	}

	b.Results = len(all)
	return b, result.NewResults(b.ProjectFile, all, b.OverallSuccess), nil
}

// DeleteBuild removes a build and its results.
func (s *Store) DeleteBuild(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM results WHERE build_id = ?", id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM builds WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return tx.Commit()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
