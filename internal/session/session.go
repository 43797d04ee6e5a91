// Package session holds the signed-in user's credentials. A Session value is
// created at process start from the Store, replaced only by login and logout,
// and passed explicitly to the components that need it.
package session

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/adamavenir/gchat/internal/types"
	"github.com/golang-jwt/jwt/v5"
)

// ErrNotAuthenticated is returned when no usable session exists.
var ErrNotAuthenticated = errors.New("not logged in")

// Session is the credential set for the current user.
type Session struct {
	Access   string
	Refresh  string
	UserID   types.ID
	Username string
}

// New builds a session from issued tokens, reading the user id and
// username from the access token claims when present.
func New(tokens types.Tokens, username string) *Session {
	s := &Session{
		Access:   tokens.Access,
		Refresh:  tokens.Refresh,
		Username: username,
	}
	if claims, err := DecodeClaims(tokens.Access); err == nil {
		s.UserID = claims.UserID
		if s.Username == "" {
			s.Username = claims.Username
		}
	}
	return s
}

// IsAuthenticated reports whether the access token is present and not
// expired at now. Tokens without an exp claim are accepted.
func (s *Session) IsAuthenticated(now time.Time) bool {
	if s == nil || strings.TrimSpace(s.Access) == "" {
		return false
	}
	claims, err := DecodeClaims(s.Access)
	if err != nil {
		return false
	}
	if claims.Expiry.IsZero() {
		return true
	}
	return now.Before(claims.Expiry)
}

// CurrentUserID returns the user id, or 0 when signed out.
func (s *Session) CurrentUserID() types.ID {
	if s == nil {
		return 0
	}
	return s.UserID
}

// DisplayName is the name used for the user's own optimistic entities.
func (s *Session) DisplayName() string {
	if s == nil || s.Username == "" {
		return "me"
	}
	return s.Username
}

// Sender returns the sender record for locally authored messages.
func (s *Session) Sender() types.Sender {
	return types.Sender{ID: s.CurrentUserID(), Username: s.DisplayName()}
}

// Claims are the fields read from a JWT access token.
type Claims struct {
	Expiry   time.Time
	UserID   types.ID
	Username string
}

type accessClaims struct {
	jwt.RegisteredClaims
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
}

// DecodeClaims reads the claims of a JWT without verifying the signature.
// Verification is the server's job.
func DecodeClaims(token string) (Claims, error) {
	var raw accessClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &raw); err != nil {
		return Claims{}, fmt.Errorf("parse token: %w", err)
	}
	claims := Claims{
		UserID:   types.ID(raw.UserID),
		Username: raw.Username,
	}
	if raw.ExpiresAt != nil {
		claims.Expiry = raw.ExpiresAt.Time
	}
	return claims, nil
}
