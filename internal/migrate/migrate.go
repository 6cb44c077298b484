// Package migrate runs versioned SQL migrations and idempotent seed files
// against the staffhub database.
package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const recordsTable = "schema_history"

// Runner applies .up.sql/.down.sql migration pairs from a directory and
// records each applied file in a bookkeeping table. Seed files live in a
// sibling directory and are tracked in the same table under a seed prefix.
type Runner struct {
	db            *sql.DB
	migrationsDir string
	seedsDir      string
}

// NewRunner constructs a Runner over db.
func NewRunner(db *sql.DB, migrationsDir, seedsDir string) *Runner {
	return &Runner{db: db, migrationsDir: migrationsDir, seedsDir: seedsDir}
}

// Entry is one line of the migration history.
type Entry struct {
	Name    string
	Applied bool
}

// Up applies every pending migration in lexical order.
func (r *Runner) Up(ctx context.Context) error {
	if err := r.ensureTable(ctx); err != nil {
		return err
	}
	applied, err := r.applied(ctx, "")
	if err != nil {
		return err
	}
	names, err := listSQL(r.migrationsDir, ".up.sql")
	if err != nil {
		return err
	}
	for _, name := range names {
		if applied[name] {
			continue
		}
		if err := r.execFile(ctx, filepath.Join(r.migrationsDir, name)); err != nil {
			return fmt.Errorf("apply %s: %w", name, err)
		}
		if err := r.record(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

// Down rolls back the most recently applied migration.
func (r *Runner) Down(ctx context.Context) error {
	if err := r.ensureTable(ctx); err != nil {
		return err
	}
	last, err := r.latest(ctx)
	if err != nil {
		return err
	}
	if last == "" {
		return errors.New("no migrations applied")
	}
	down := strings.TrimSuffix(last, ".up.sql") + ".down.sql"
	path := filepath.Join(r.migrationsDir, down)
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("missing down migration for %s", last)
	}
	if err := r.execFile(ctx, path); err != nil {
		return fmt.Errorf("rollback %s: %w", last, err)
	}
	_, err = r.db.ExecContext(ctx, `delete from `+recordsTable+` where name=$1`, last)
	return err
}

// Seed applies seed files that have not run before. Seeds never roll back.
func (r *Runner) Seed(ctx context.Context) error {
	if err := r.ensureTable(ctx); err != nil {
		return err
	}
	applied, err := r.applied(ctx, "seed:")
	if err != nil {
		return err
	}
	names, err := listSQL(r.seedsDir, ".sql")
	if err != nil {
		return err
	}
	for _, name := range names {
		if applied["seed:"+name] {
			continue
		}
		if err := r.execFile(ctx, filepath.Join(r.seedsDir, name)); err != nil {
			return fmt.Errorf("seed %s: %w", name, err)
		}
		if err := r.record(ctx, "seed:"+name); err != nil {
			return err
		}
	}
	return nil
}

// Status reports every migration file on disk with its applied state.
func (r *Runner) Status(ctx context.Context) ([]Entry, error) {
	if err := r.ensureTable(ctx); err != nil {
		return nil, err
	}
	applied, err := r.applied(ctx, "")
	if err != nil {
		return nil, err
	}
	names, err := listSQL(r.migrationsDir, ".up.sql")
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(names))
	for _, name := range names {
		entries = append(entries, Entry{Name: name, Applied: applied[name]})
	}
	return entries, nil
}

func (r *Runner) ensureTable(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		create table if not exists `+recordsTable+` (
			name text primary key,
			applied_at timestamptz not null default now()
		)`)
	return err
}

func (r *Runner) applied(ctx context.Context, prefix string) (map[string]bool, error) {
	rows, err := r.db.QueryContext(ctx, `select name from `+recordsTable)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		if prefix == "" && strings.HasPrefix(name, "seed:") {
			continue
		}
		if prefix != "" && !strings.HasPrefix(name, prefix) {
			continue
		}
		out[name] = true
	}
	return out, rows.Err()
}

func (r *Runner) latest(ctx context.Context) (string, error) {
	var name string
	err := r.db.QueryRowContext(ctx, `
		select name from `+recordsTable+`
		where name not like 'seed:%'
		order by applied_at desc limit 1
	`).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return name, err
}

func (r *Runner) record(ctx context.Context, name string) error {
	_, err := r.db.ExecContext(ctx,
		`insert into `+recordsTable+`(name, applied_at) values ($1, $2)`,
		name, time.Now().UTC())
	return err
}

func (r *Runner) execFile(ctx context.Context, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	for _, stmt := range splitStatements(string(raw)) {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func listSQL(dir, suffix string) ([]string, error) {
	if dir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), suffix) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// splitStatements splits SQL on semicolons outside single-quoted strings.
func splitStatements(src string) []string {
	var (
		stmts   []string
		current strings.Builder
		quoted  bool
	)
	for _, r := range src {
		current.WriteRune(r)
		switch r {
		case '\'':
			quoted = !quoted
		case ';':
			if !quoted {
				stmts = append(stmts, current.String())
				current.Reset()
			}
		}
	}
	if strings.TrimSpace(current.String()) != "" {
		stmts = append(stmts, current.String())
	}
	return stmts
}
