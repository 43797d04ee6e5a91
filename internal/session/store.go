package session

import (
	"database/sql"
	"time"

	"github.com/adamavenir/gchat/internal/db"
)

// Store persists the session in the local state database.
type Store struct {
	conn *sql.DB
	path string
}

// OpenStore opens the state database at path.
func OpenStore(path string) (*Store, error) {
	conn, err := db.OpenDatabase(path)
	if err != nil {
		return nil, err
	}
	return &Store{conn: conn, path: path}, nil
}

// Path returns the database file backing the store.
func (s *Store) Path() string {
	return s.path
}

// DB exposes the connection for config queries.
func (s *Store) DB() *sql.DB {
	return s.conn
}

// Close releases the database.
func (s *Store) Close() error {
	return s.conn.Close()
}

// Load returns the stored session, or nil when signed out.
func (s *Store) Load() (*Session, error) {
	row, err := db.GetSession(s.conn)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, nil
	}
	return &Session{
		Access:   row.Access,
		Refresh:  row.Refresh,
		UserID:   row.UserID,
		Username: row.Username,
	}, nil
}

// Current returns the stored session if it is still valid at now. An
// expired or unreadable session is cleared and ErrNotAuthenticated returned.
func (s *Store) Current(now time.Time) (*Session, error) {
	sess, err := s.Load()
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrNotAuthenticated
	}
	if !sess.IsAuthenticated(now) {
		if err := s.Clear(); err != nil {
			return nil, err
		}
		return nil, ErrNotAuthenticated
	}
	return sess, nil
}

// Save replaces the stored session.
func (s *Store) Save(sess *Session) error {
	return db.PutSession(s.conn, db.SessionRow{
		Access:   sess.Access,
		Refresh:  sess.Refresh,
		UserID:   sess.UserID,
		Username: sess.Username,
	})
}

// Clear removes the stored session.
func (s *Store) Clear() error {
	return db.DeleteSession(s.conn)
}
