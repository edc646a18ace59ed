package main

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"feedrelay/migrations"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("sqlite3"); err != nil {
		t.Fatalf("set dialect: %v", err)
	}
	return db
}

func TestRunCommandUpDownReset(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	steps := []struct {
		cmd  string
		want int64
	}{
		{"up", 2},
		{"down", 1},
		{"up-one", 2},
		{"reset", 0},
	}
	for _, s := range steps {
		if err := runCommand(ctx, db, s.cmd); err != nil {
			t.Fatalf("%s: %v", s.cmd, err)
		}
		got, err := migrations.Version(ctx, db)
		if err != nil {
			t.Fatalf("version after %s: %v", s.cmd, err)
		}
		if diff := cmp.Diff(s.want, got); diff != "" {
			t.Errorf("version after %s mismatch (-want +got):\n%s", s.cmd, diff)
		}
	}
}

func TestRunCommandUnknown(t *testing.T) {
	if err := runCommand(context.Background(), openTestDB(t), "sideways"); err == nil {
		t.Fatal("expected error, got nil")
	}
}
