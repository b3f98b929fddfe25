package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/sakif/qi-research/internal/model"
)

// newTestDB opens a fresh in-memory database. Each test gets its own; the
// single pooled connection keeps every query on the same database.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// createTestUser creates a user named name with email name@example.com.
func createTestUser(t *testing.T, db *DB, name string) *model.User {
	t.Helper()
	user := &model.User{
		Username:     name,
		Email:        name + "@example.com",
		PasswordHash: "$2a$10$notarealhash",
		APIKey:       "pubmed-" + name,
	}
	if err := db.Users().Create(context.Background(), user); err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// createTestProject creates a project owned by owner.
func createTestProject(t *testing.T, db *DB, owner *model.User, title string) *model.Project {
	t.Helper()
	project := &model.Project{
		Title:       title,
		Description: fmt.Sprintf("description of %s", title),
		SearchQuery: model.SearchQuery{Query: "fall prevention in elderly patients"},
		Owner:       owner.Summary(),
	}
	if err := db.Projects().Create(context.Background(), project); err != nil {
		t.Fatalf("failed to create test project: %v", err)
	}
	return project
}

func TestNew_MigrationsAreIdempotent(t *testing.T) {
	db := newTestDB(t)
	if err := db.migrate(); err != nil {
		t.Fatalf("second migrate() error = %v", err)
	}
	if err := db.Ping(context.Background()); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
}

func TestDSN(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{":memory:", ":memory:?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)"},
		{"data/qi.db", "data/qi.db?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)"},
		{"file:qi.db?cache=shared", "file:qi.db?cache=shared&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)"},
	}
	for _, tt := range tests {
		if got := dsn(tt.path); got != tt.want {
			t.Errorf("dsn(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

// A connection opened after New must still enforce foreign keys.
func TestNew_PragmasApplyToNewConnections(t *testing.T) {
	db, err := New(filepath.Join(t.TempDir(), "qi.db"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	db.conn.SetMaxOpenConns(2)
	first, err := db.conn.Conn(ctx)
	if err != nil {
		t.Fatalf("first Conn() error = %v", err)
	}
	defer first.Close()
	second, err := db.conn.Conn(ctx)
	if err != nil {
		t.Fatalf("second Conn() error = %v", err)
	}
	defer second.Close()

	var fk int
	if err := second.QueryRowContext(ctx, `PRAGMA foreign_keys`).Scan(&fk); err != nil {
		t.Fatalf("reading foreign_keys: %v", err)
	}
	if fk != 1 {
		t.Errorf("foreign_keys = %d on a fresh connection, want 1", fk)
	}

	var mode string
	if err := second.QueryRowContext(ctx, `PRAGMA journal_mode`).Scan(&mode); err != nil {
		t.Fatalf("reading journal_mode: %v", err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %q, want wal", mode)
	}
}
