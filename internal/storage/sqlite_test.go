package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"feedrelay/internal/model"
)

var ignoreCreatedAt = cmpopts.IgnoreFields(model.Account{}, "CreatedAt")

func newTestDB(t *testing.T) *SQLite {
	t.Helper()
	s, err := NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestAccountLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	exists, err := s.AccountExists(ctx, "alice")
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if exists {
		t.Fatal("account should not exist yet")
	}

	a := &model.Account{Identity: "alice", PasswordHash: "$2a$10$hash"}
	if err := s.CreateAccount(ctx, a); err != nil {
		t.Fatalf("create: %v", err)
	}
	if a.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be populated")
	}

	got, err := s.GetAccount(ctx, "alice")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	want := &model.Account{Identity: "alice", PasswordHash: "$2a$10$hash"}
	if diff := cmp.Diff(want, got, ignoreCreatedAt); diff != "" {
		t.Errorf("GetAccount mismatch (-want +got):\n%s", diff)
	}

	exists, err = s.AccountExists(ctx, "alice")
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if !exists {
		t.Error("account should exist")
	}
}

func TestCreateAccountConflict(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	if err := s.CreateAccount(ctx, &model.Account{Identity: "bob", PasswordHash: "first"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	err := s.CreateAccount(ctx, &model.Account{Identity: "bob", PasswordHash: "second"})
	if !errors.Is(err, ErrAccountExists) {
		t.Fatalf("second create error = %v, want ErrAccountExists", err)
	}

	got, err := s.GetAccount(ctx, "bob")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if diff := cmp.Diff("first", got.PasswordHash); diff != "" {
		t.Errorf("hash overwritten (-want +got):\n%s", diff)
	}
}

func TestIdentityIsCaseSensitive(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)

	if err := s.CreateAccount(ctx, &model.Account{Identity: "Carol", PasswordHash: "h"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.GetAccount(ctx, "carol"); !errors.Is(err, ErrAccountNotFound) {
		t.Errorf("GetAccount(carol) error = %v, want ErrAccountNotFound", err)
	}
}

func TestSQLiteIgnoreList(t *testing.T) {
	ctx := context.Background()
	s := newTestDB(t)
	testIgnoreList(t, ctx, s)
}

func TestSchemaVersion(t *testing.T) {
	s := newTestDB(t)
	v, err := s.SchemaVersion(context.Background())
	if err != nil {
		t.Fatalf("schema version: %v", err)
	}
	if diff := cmp.Diff(int64(2), v); diff != "" {
		t.Errorf("version mismatch (-want +got):\n%s", diff)
	}
}

func testIgnoreList(t *testing.T, ctx context.Context, s IgnoreLists) {
	t.Helper()

	got, err := s.LoadIgnoreList(ctx, "dave")
	if err != nil {
		t.Fatalf("load empty: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty list, got %v", got)
	}

	steps := [][]string{
		{"^Fixed:.*"},
		{"^Fixed:.*", "MC-\\d+ .*", "(?i)works as intended"},
		{"only one"},
	}
	for _, want := range steps {
		if err := s.SaveIgnoreList(ctx, "dave", want); err != nil {
			t.Fatalf("save %v: %v", want, err)
		}
		got, err := s.LoadIgnoreList(ctx, "dave")
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("ignore list mismatch (-want +got):\n%s", diff)
		}
	}

	other, err := s.LoadIgnoreList(ctx, "erin")
	if err != nil {
		t.Fatalf("load other: %v", err)
	}
	if len(other) != 0 {
		t.Errorf("lists leaked across identities: %v", other)
	}
}
