package out

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"nightwatch/internal/modules/runlog/domain"
	apperrors "nightwatch/internal/platform/errors"

	_ "modernc.org/sqlite"
)

// timeLayout is fixed width so TEXT ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type SQLiteRunStore struct {
	db *sql.DB
}

func NewSQLiteRunStore(dbPath string) (*SQLiteRunStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	store := &SQLiteRunStore{db: db}
	if err := store.ensureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteRunStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteRunStore) ensureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS runs (
  id TEXT PRIMARY KEY,
  schema_version INTEGER NOT NULL,
  started_at TEXT NOT NULL,
  ended_at TEXT NOT NULL,
  outcome TEXT NOT NULL,
  total_ms INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS run_marks (
  run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
  slot INTEGER NOT NULL,
  label TEXT NOT NULL,
  elapsed_ms INTEGER NOT NULL,
  PRIMARY KEY (run_id, slot)
);
CREATE INDEX IF NOT EXISTS runs_started_at ON runs(started_at);
`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create run tables: %w", err)
	}
	return nil
}

func (s *SQLiteRunStore) Save(ctx context.Context, run domain.Run) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin run insert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const insertRun = `
INSERT INTO runs (id, schema_version, started_at, ended_at, outcome, total_ms)
VALUES (?, ?, ?, ?, ?, ?);
`
	if _, err := tx.ExecContext(ctx, insertRun,
		run.ID,
		domain.SchemaVersion,
		run.StartedAt.UTC().Format(timeLayout),
		run.EndedAt.UTC().Format(timeLayout),
		string(run.Outcome),
		run.Total.Milliseconds(),
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	for _, m := range run.Marks {
		if _, err := tx.ExecContext(ctx, `INSERT INTO run_marks (run_id, slot, label, elapsed_ms) VALUES (?, ?, ?, ?)`,
			run.ID, m.Slot, m.Label, m.Elapsed.Milliseconds()); err != nil {
			return fmt.Errorf("insert run mark: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}
	return nil
}

// List returns the newest runs first. A limit of zero means no limit.
func (s *SQLiteRunStore) List(ctx context.Context, limit int, outcome domain.Outcome) ([]domain.Run, error) {
	query := strings.Builder{}
	query.WriteString(`SELECT id, started_at, ended_at, outcome, total_ms FROM runs`)
	args := []any{}
	if outcome != "" {
		query.WriteString(` WHERE outcome = ?`)
		args = append(args, string(outcome))
	}
	query.WriteString(` ORDER BY started_at DESC`)
	if limit > 0 {
		query.WriteString(` LIMIT ?`)
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	var runs []domain.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	rows.Close()

	for i := range runs {
		marks, err := s.marks(ctx, runs[i].ID)
		if err != nil {
			return nil, err
		}
		runs[i].Marks = marks
	}
	return runs, nil
}

func (s *SQLiteRunStore) Get(ctx context.Context, runID string) (domain.Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, started_at, ended_at, outcome, total_ms FROM runs WHERE id = ?`, runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Run{}, fmt.Errorf("run %q: %w", runID, apperrors.ErrNotFound)
	}
	if err != nil {
		return domain.Run{}, err
	}
	if run.Marks, err = s.marks(ctx, run.ID); err != nil {
		return domain.Run{}, err
	}
	return run, nil
}

func (s *SQLiteRunStore) marks(ctx context.Context, runID string) ([]domain.Mark, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT slot, label, elapsed_ms FROM run_marks WHERE run_id = ? ORDER BY slot`, runID)
	if err != nil {
		return nil, fmt.Errorf("query run marks: %w", err)
	}
	defer rows.Close()
	var marks []domain.Mark
	for rows.Next() {
		var (
			m  domain.Mark
			ms int64
		)
		if err := rows.Scan(&m.Slot, &m.Label, &ms); err != nil {
			return nil, fmt.Errorf("scan run mark: %w", err)
		}
		m.Elapsed = time.Duration(ms) * time.Millisecond
		marks = append(marks, m)
	}
	return marks, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (domain.Run, error) {
	var (
		run            domain.Run
		started, ended string
		outcome        string
		totalMS        int64
	)
	if err := row.Scan(&run.ID, &started, &ended, &outcome, &totalMS); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Run{}, err
		}
		return domain.Run{}, fmt.Errorf("scan run: %w", err)
	}
	var err error
	if run.StartedAt, err = time.Parse(timeLayout, started); err != nil {
		return domain.Run{}, fmt.Errorf("parse started_at: %w", err)
	}
	if run.EndedAt, err = time.Parse(timeLayout, ended); err != nil {
		return domain.Run{}, fmt.Errorf("parse ended_at: %w", err)
	}
	run.Outcome = domain.Outcome(outcome)
	run.Total = time.Duration(totalMS) * time.Millisecond
	return run, nil
}
