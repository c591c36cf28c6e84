// Package journal keeps a SQLite history of export runs.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"binder/internal/export"
)

const FileName = "journal.db"

// DefaultPath is ~/.config/binder/journal.db.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return FileName
	}
	return filepath.Join(home, ".config", "binder", FileName)
}

type Store struct {
	db *sql.DB
}

// Open opens or creates the journal at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating journal directory: %w", err)
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening journal: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			root TEXT NOT NULL,
			state TEXT NOT NULL,
			partial INTEGER NOT NULL,
			started TEXT NOT NULL,
			finished TEXT NOT NULL,
			warnings INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS run_groups (
			run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			label TEXT NOT NULL,
			folder TEXT NOT NULL,
			status TEXT NOT NULL,
			output_path TEXT,
			pages INTEGER NOT NULL,
			total INTEGER NOT NULL,
			deleted INTEGER NOT NULL,
			issues TEXT,
			PRIMARY KEY (run_id, position)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_groups_status ON run_groups(status)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Record stores a finished report and returns its run id.
func (s *Store) Record(ctx context.Context, rep export.Report) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO runs (root, state, partial, started, finished, warnings) VALUES (?, ?, ?, ?, ?, ?)`,
		rep.Root, string(rep.State), rep.Partial,
		rep.Started.UTC().Format(time.RFC3339Nano), rep.Finished.UTC().Format(time.RFC3339Nano),
		len(rep.Warnings),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	for i, g := range rep.Groups {
		var issues []byte
		if len(g.Issues) > 0 {
			if issues, err = json.Marshal(g.Issues); err != nil {
				return 0, err
			}
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO run_groups (run_id, position, label, folder, status, output_path, pages, total, deleted, issues)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, i, g.Label, g.Folder, string(g.Status), g.OutputPath, g.Pages, g.Total, g.Deleted, string(issues),
		); err != nil {
			return 0, fmt.Errorf("inserting group %s: %w", g.Label, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return runID, nil
}

// Run is one journal row with its groups.
type Run struct {
	ID       int64
	Root     string
	State    export.State
	Partial  bool
	Started  time.Time
	Finished time.Time
	Warnings int
	Groups   []export.GroupReport
}

// Count returns how many groups of the run ended with status st.
func (r Run) Count(st export.Status) int {
	n := 0
	for _, g := range r.Groups {
		if g.Status == st {
			n++
		}
	}
	return n
}

// Recent returns up to limit runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, root, state, partial, started, finished, warnings FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var state, started, finished string
		if err := rows.Scan(&r.ID, &r.Root, &state, &r.Partial, &started, &finished, &r.Warnings); err != nil {
			return nil, err
		}
		r.State = export.State(state)
		r.Started, _ = time.Parse(time.RFC3339Nano, started)
		r.Finished, _ = time.Parse(time.RFC3339Nano, finished)
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range runs {
		groups, err := s.groups(ctx, runs[i].ID)
		if err != nil {
			return nil, err
		}
		runs[i].Groups = groups
	}
	return runs, nil
}

func (s *Store) groups(ctx context.Context, runID int64) ([]export.GroupReport, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT label, folder, status, output_path, pages, total, deleted, issues
		 FROM run_groups WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []export.GroupReport
	for rows.Next() {
		var g export.GroupReport
		var status string
		var outputPath, issues sql.NullString
		if err := rows.Scan(&g.Label, &g.Folder, &status, &outputPath, &g.Pages, &g.Total, &g.Deleted, &issues); err != nil {
			return nil, err
		}
		g.Status = export.Status(status)
		g.OutputPath = outputPath.String
		if issues.String != "" {
			if err := json.Unmarshal([]byte(issues.String), &g.Issues); err != nil {
				return nil, fmt.Errorf("decoding issues of run %d: %w", runID, err)
			}
		}
		out = append(out, g)
	}
	return out, rows.Err()
}
