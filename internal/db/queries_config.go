package db

import (
	"database/sql"
	"errors"

	"github.com/adamavenir/gchat/internal/types"
)

// Well-known config keys.
const (
	ConfigLastGroup = "last_group"
)

// GetConfig returns a config value, or "" when unset.
func GetConfig(db DBTX, key string) (string, error) {
	row := db.QueryRow("SELECT value FROM gchat_config WHERE key = ?", key)
	var value string
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return value, nil
}

// SetConfig sets a config value.
func SetConfig(db DBTX, key, value string) error {
	_, err := db.Exec("INSERT OR REPLACE INTO gchat_config (key, value) VALUES (?, ?)", key, value)
	return err
}

// DeleteConfig removes a config value.
func DeleteConfig(db DBTX, key string) error {
	_, err := db.Exec("DELETE FROM gchat_config WHERE key = ?", key)
	return err
}

// GetAllConfig returns all config entries.
func GetAllConfig(db DBTX) ([]types.ConfigEntry, error) {
	rows, err := db.Query("SELECT key, value FROM gchat_config ORDER BY key")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []types.ConfigEntry
	for rows.Next() {
		var entry types.ConfigEntry
		if err := rows.Scan(&entry.Key, &entry.Value); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
