package db

import (
	"fmt"
)

// Items and images are stored as JSON documents so a borrow log is always
// read and written as one row.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS labs (
    id         TEXT PRIMARY KEY,
    name       TEXT NOT NULL,
    created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS borrow_logs (
    id            TEXT PRIMARY KEY,
    user_id       TEXT,
    lab_id        TEXT NOT NULL,
    student_id    TEXT NOT NULL,
    student_name  TEXT NOT NULL,
    course        TEXT NOT NULL,
    student_email TEXT NOT NULL,
    borrow_date   DATETIME NOT NULL,
    return_date   DATETIME,
    status        TEXT NOT NULL DEFAULT 'BORROWED' CHECK (status IN ('BORROWED', 'PARTIAL_RETURN', 'RETURNED')),
    items         TEXT NOT NULL DEFAULT '[]',
    images        TEXT NOT NULL DEFAULT '[]',
    remarks       TEXT NOT NULL DEFAULT '',
    version       INTEGER NOT NULL DEFAULT 0,
    created_at    DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_borrow_logs_status_created
    ON borrow_logs(status, created_at);

CREATE INDEX IF NOT EXISTS idx_borrow_logs_student
    ON borrow_logs(student_id, status);
`

const postgresSchema = `
CREATE TABLE IF NOT EXISTS labs (
    id         TEXT PRIMARY KEY,
    name       TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS borrow_logs (
    id            TEXT PRIMARY KEY,
    user_id       TEXT,
    lab_id        TEXT NOT NULL,
    student_id    TEXT NOT NULL,
    student_name  TEXT NOT NULL,
    course        TEXT NOT NULL,
    student_email TEXT NOT NULL,
    borrow_date   TIMESTAMPTZ NOT NULL,
    return_date   TIMESTAMPTZ,
    status        TEXT NOT NULL DEFAULT 'BORROWED' CHECK (status IN ('BORROWED', 'PARTIAL_RETURN', 'RETURNED')),
    items         TEXT NOT NULL DEFAULT '[]',
    images        TEXT NOT NULL DEFAULT '[]',
    remarks       TEXT NOT NULL DEFAULT '',
    version       BIGINT NOT NULL DEFAULT 0,
    created_at    TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_borrow_logs_status_created
    ON borrow_logs(status, created_at);

CREATE INDEX IF NOT EXISTS idx_borrow_logs_student
    ON borrow_logs(student_id, status);
`

// EnsureSchema creates all tables and indexes if they don't already exist.
func EnsureSchema(d *DB) error {
	schema := sqliteSchema
	if d.Dialect == DialectPostgres {
		schema = postgresSchema
	}
	if _, err := d.Exec(schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}
