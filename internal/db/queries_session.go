package db

import (
	"database/sql"
	"errors"
	"time"

	"github.com/adamavenir/gchat/internal/types"
)

// SessionRow is the persisted session.
type SessionRow struct {
	Access    string
	Refresh   string
	UserID    types.ID
	Username  string
	UpdatedAt int64
}

// GetSession returns the stored session, or nil when signed out.
func GetSession(db DBTX) (*SessionRow, error) {
	row := db.QueryRow(`
		SELECT access_token, refresh_token, user_id, username, updated_at
		FROM gchat_session WHERE id = 1
	`)
	var s SessionRow
	if err := row.Scan(&s.Access, &s.Refresh, &s.UserID, &s.Username, &s.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// PutSession replaces the stored session.
func PutSession(db DBTX, s SessionRow) error {
	if s.UpdatedAt == 0 {
		s.UpdatedAt = time.Now().UnixMilli()
	}
	_, err := db.Exec(`
		INSERT OR REPLACE INTO gchat_session (id, access_token, refresh_token, user_id, username, updated_at)
		VALUES (1, ?, ?, ?, ?, ?)
	`, s.Access, s.Refresh, s.UserID, s.Username, s.UpdatedAt)
	return err
}

// DeleteSession removes the stored session.
func DeleteSession(db DBTX) error {
	_, err := db.Exec("DELETE FROM gchat_session WHERE id = 1")
	return err
}
