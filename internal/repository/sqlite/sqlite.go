// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// WHY modernc.org/sqlite?
// It is a pure Go translation of SQLite: no CGo, no C compiler, cross-compiles
// like any other Go package. The whole database is one file (or ":memory:" in
// tests).
//
// ONE CONNECTION:
// database/sql keeps a pool, and with ":memory:" every pooled connection would
// get its own empty database. The pool is capped at one connection, which also
// serializes writes the way SQLite wants them anyway. The consequence for the
// code below: never run a second query while a *sql.Rows is still open. Collect
// the rows first, close them, then populate.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// DB owns the connection pool. The per-table stores (Users, Projects, Keys,
// CollaborationRequests) share it.
type DB struct {
	conn *sql.DB
}

// New opens the database at dbPath and runs migrations.
//
//   - "data/qi.db" → file-based database (persistent)
//   - ":memory:"   → in-memory database (tests)
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// connPragmas run on every connection the driver opens, not only the first.
// WAL lets readers proceed while a write is in progress; foreign keys are off
// by default in SQLite and documents must reference real users.
var connPragmas = []string{"foreign_keys(1)", "journal_mode(WAL)"}

// dsn appends connPragmas to dbPath as _pragma query parameters.
func dsn(dbPath string) string {
	params := make([]string, len(connPragmas))
	for i, p := range connPragmas {
		params[i] = "_pragma=" + p
	}
	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	return dbPath + sep + strings.Join(params, "&")
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping reports whether the database is reachable. Used by the readiness probe.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

func (db *DB) Users() *UserDB {
	return &UserDB{conn: db.conn}
}

func (db *DB) Projects() *ProjectDB {
	return &ProjectDB{conn: db.conn}
}

func (db *DB) Keys() *GPTKeyDB {
	return &GPTKeyDB{conn: db.conn}
}

func (db *DB) CollaborationRequests() *CollaborationRequestDB {
	return &CollaborationRequestDB{conn: db.conn}
}

// migrate creates the schema. Every statement is idempotent, so it runs on
// every start.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			username      TEXT NOT NULL UNIQUE,
			email         TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			api_key       TEXT NOT NULL DEFAULT '',
			role          TEXT NOT NULL DEFAULT 'client',
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS projects (
			id               TEXT PRIMARY KEY,
			title            TEXT NOT NULL,
			description      TEXT NOT NULL,
			search_query     TEXT NOT NULL,
			owner_id         TEXT NOT NULL REFERENCES users(id),
			last_modified_by TEXT,
			last_modified_at DATETIME,
			created_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_projects_owner_id ON projects(owner_id);
	`)
	if err != nil {
		return fmt.Errorf("creating projects table: %w", err)
	}

	// The primary key is what makes the collaborator list a set.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS project_collaborators (
			project_id TEXT NOT NULL REFERENCES projects(id),
			user_id    TEXT NOT NULL REFERENCES users(id),
			added_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (project_id, user_id)
		);
		CREATE INDEX IF NOT EXISTS idx_project_collaborators_user_id ON project_collaborators(user_id);
	`)
	if err != nil {
		return fmt.Errorf("creating project_collaborators table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS documents (
			id         TEXT PRIMARY KEY,
			link       TEXT NOT NULL,
			created_by TEXT NOT NULL REFERENCES users(id),
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE TABLE IF NOT EXISTS project_documents (
			project_id  TEXT NOT NULL REFERENCES projects(id),
			document_id TEXT NOT NULL REFERENCES documents(id),
			position    INTEGER NOT NULL,
			PRIMARY KEY (project_id, document_id)
		);
	`)
	if err != nil {
		return fmt.Errorf("creating documents tables: %w", err)
	}

	// Single-slot table: the CHECK pins the only row to id 1.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS gpt_keys (
			id         INTEGER PRIMARY KEY CHECK (id = 1),
			api_key    TEXT NOT NULL,
			updated_by TEXT NOT NULL DEFAULT '',
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating gpt_keys table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS collaboration_requests (
			id           TEXT PRIMARY KEY,
			project_id   TEXT NOT NULL REFERENCES projects(id),
			requester_id TEXT NOT NULL REFERENCES users(id),
			status       TEXT NOT NULL DEFAULT 'pending',
			created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating collaboration_requests table: %w", err)
	}

	// Older databases predate the per-user literature key.
	if err := db.addColumnIfNotExists("users", "api_key", "TEXT NOT NULL DEFAULT ''"); err != nil {
		return fmt.Errorf("adding api_key to users: %w", err)
	}

	return nil
}

// addColumnIfNotExists adds a column to a table only if it doesn't already exist.
// Makes ALTER TABLE migrations idempotent.
func (db *DB) addColumnIfNotExists(table, column, definition string) error {
	var count int
	err := db.conn.QueryRow(
		`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`,
		table, column,
	).Scan(&count)
	if err != nil {
		return fmt.Errorf("checking column %s.%s: %w", table, column, err)
	}
	if count > 0 {
		return nil
	}
	_, err = db.conn.Exec(fmt.Sprintf(
		`ALTER TABLE %s ADD COLUMN %s %s`, table, column, definition,
	))
	return err
}

// uniqueViolation reports whether err is a UNIQUE or PRIMARY KEY constraint
// failure, and if so which "table.column" tripped it.
func uniqueViolation(err error) (string, bool) {
	var serr *sqlite.Error
	if !errors.As(err, &serr) {
		return "", false
	}
	switch serr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
	default:
		return "", false
	}
	msg := serr.Error()
	if i := strings.LastIndex(msg, "failed: "); i >= 0 {
		msg = msg[i+len("failed: "):]
	}
	if i := strings.Index(msg, " ("); i >= 0 {
		msg = msg[:i]
	}
	return msg, true
}
