package db

import (
	"database/sql"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// DBFileName is the state database inside the gchat home directory.
const DBFileName = "gchat.db"

// OpenDatabase opens (creating if needed) the local state database and
// ensures the schema exists.
func OpenDatabase(path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec("PRAGMA journal_mode = WAL"); err != nil {
		_ = conn.Close()
		return nil, err
	}
	if _, err := conn.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		_ = conn.Close()
		return nil, err
	}

	if err := InitSchema(conn); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return conn, nil
}
