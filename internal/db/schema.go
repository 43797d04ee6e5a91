package db

import "database/sql"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS gchat_config (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL
);

-- Single row holding the signed-in session.
CREATE TABLE IF NOT EXISTS gchat_session (
  id INTEGER PRIMARY KEY CHECK (id = 1),
  access_token TEXT NOT NULL,
  refresh_token TEXT NOT NULL DEFAULT '',
  user_id INTEGER NOT NULL DEFAULT 0,
  username TEXT NOT NULL DEFAULT '',
  updated_at INTEGER NOT NULL           -- unix ms
);
`

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// InitSchema creates tables if they do not exist.
func InitSchema(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(schemaSQL); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
