package migrate

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestSplitStatements(t *testing.T) {
	src := `create table a (id text);
insert into a values ('x;y');
`
	stmts := splitStatements(src)
	if len(stmts) != 2 {
		t.Fatalf("expected 2 statements, got %d: %q", len(stmts), stmts)
	}
	if !strings.Contains(stmts[1], "'x;y'") {
		t.Fatalf("semicolon inside quotes split the statement: %q", stmts[1])
	}
}

func TestSplitStatementsTrailingWithoutSemicolon(t *testing.T) {
	stmts := splitStatements("select 1")
	if len(stmts) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(stmts))
	}
}

func TestSplitStatementsIgnoresTrailingWhitespace(t *testing.T) {
	stmts := splitStatements("select 1;\n\n  ")
	if len(stmts) != 1 {
		t.Fatalf("expected 1 statement, got %d: %q", len(stmts), stmts)
	}
}

func TestUpSkipsAppliedMigrations(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	write("0001_first.up.sql", "create table a (id text);")
	write("0002_second.up.sql", "create table b (id text);")

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("create table if not exists schema_history").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("select name from schema_history").
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("0001_first.up.sql"))

	// Only the second migration runs.
	mock.ExpectBegin()
	mock.ExpectExec("create table b").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()
	mock.ExpectExec("insert into schema_history").
		WillReturnResult(sqlmock.NewResult(0, 1))

	runner := NewRunner(db, dir, "")
	if err := runner.Up(context.Background()); err != nil {
		t.Fatalf("up: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestStatusReportsPending(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "0001_first.up.sql"), []byte("select 1;"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("create table if not exists schema_history").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("select name from schema_history").
		WillReturnRows(sqlmock.NewRows([]string{"name"}))

	entries, err := NewRunner(db, dir, "").Status(context.Background())
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Name != "0001_first.up.sql" || entries[0].Applied {
		t.Fatalf("unexpected entry: %+v", entries[0])
	}
}
