package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/adamavenir/gchat/internal/types"
)

const minPasswordLength = 6

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidationError is a local form check that failed before any request.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ValidateCredentials checks a login form.
func ValidateCredentials(c types.Credentials) (types.Credentials, error) {
	c.Username = strings.TrimSpace(c.Username)
	if c.Username == "" || c.Password == "" {
		return c, &ValidationError{Message: "username and password are required"}
	}
	return c, nil
}

// ValidateRegistration checks a sign-up form.
func ValidateRegistration(r types.Registration) (types.Registration, error) {
	r.Username = strings.TrimSpace(r.Username)
	r.Email = strings.TrimSpace(r.Email)
	if r.Username == "" || r.Email == "" || r.Password == "" || r.Password2 == "" {
		return r, &ValidationError{Message: "all fields are required"}
	}
	if !emailPattern.MatchString(r.Email) {
		return r, &ValidationError{Message: "invalid email address"}
	}
	if len(r.Password) < minPasswordLength {
		return r, &ValidationError{Message: fmt.Sprintf("password must be at least %d characters", minPasswordLength)}
	}
	if r.Password != r.Password2 {
		return r, &ValidationError{Message: "passwords do not match"}
	}
	return r, nil
}

// Login exchanges credentials for a token pair.
func (c *Client) Login(ctx context.Context, creds types.Credentials) (types.Tokens, error) {
	creds, err := ValidateCredentials(creds)
	if err != nil {
		return types.Tokens{}, err
	}
	var tokens types.Tokens
	if err := c.doJSON(ctx, http.MethodPost, "/api/token/", nil, creds, &tokens); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Message() == "" {
			return types.Tokens{}, fmt.Errorf("invalid username or password")
		}
		return types.Tokens{}, err
	}
	if tokens.Access == "" {
		return types.Tokens{}, fmt.Errorf("login response did not include an access token")
	}
	return tokens, nil
}

// Register creates an account.
func (c *Client) Register(ctx context.Context, reg types.Registration) error {
	reg, err := ValidateRegistration(reg)
	if err != nil {
		return err
	}
	return c.doJSON(ctx, http.MethodPost, "/api/register/", nil, reg, nil)
}

// Me returns the authenticated user's profile.
func (c *Client) Me(ctx context.Context) (types.User, error) {
	var user types.User
	if err := c.doJSON(ctx, http.MethodGet, "/api/user/me/", nil, nil, &user); err != nil {
		return types.User{}, err
	}
	return user, nil
}
