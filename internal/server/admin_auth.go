package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/stanadevale/trailrace/internal/store"
	"github.com/stanadevale/trailrace/internal/trailrace"
)

// SessionStore is the subset of the store used for organizer accounts.
type SessionStore interface {
	CreateUser(ctx context.Context, username, passwordHash string, now time.Time) (trailrace.User, error)
	UserByUsername(ctx context.Context, username string) (trailrace.User, error)
	UpdateUserPassword(ctx context.Context, id int64, passwordHash string) error
	CreateSession(ctx context.Context, userID int64, now, expiresAt time.Time) (string, error)
	UserFromSession(ctx context.Context, sessionID string, now time.Time) (trailrace.User, error)
	DeleteSession(ctx context.Context, sessionID string) error
}

var errNoAdminSession = errors.New("no valid admin session")

const (
	adminCookieName = "admin_session"
	adminSessionTTL = 7 * 24 * time.Hour
)

// adminFromRequest reads the admin_session cookie and looks up its user.
func adminFromRequest(r *http.Request, st SessionStore, now time.Time) (trailrace.User, error) {
	cookie, err := r.Cookie(adminCookieName)
	if err != nil || cookie.Value == "" {
		return trailrace.User{}, errNoAdminSession
	}
	u, err := st.UserFromSession(r.Context(), cookie.Value, now)
	if errors.Is(err, store.ErrNotFound) {
		return trailrace.User{}, errNoAdminSession
	}
	return u, err
}

// EnsureAdmin creates the organizer account, or resets its password when
// it already exists. created reports which happened.
func EnsureAdmin(ctx context.Context, st SessionStore, username, password string, now time.Time) (created bool, err error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || len(password) < 8 {
		return false, fmt.Errorf("admin username is required and password must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return false, fmt.Errorf("hashing password: %w", err)
	}

	existing, err := st.UserByUsername(ctx, username)
	switch {
	case errors.Is(err, store.ErrNotFound):
		if _, err := st.CreateUser(ctx, username, string(hash), now); err != nil {
			return false, fmt.Errorf("creating admin: %w", err)
		}
		return true, nil
	case err != nil:
		return false, err
	}
	if err := st.UpdateUserPassword(ctx, existing.ID, string(hash)); err != nil {
		return false, fmt.Errorf("updating admin password: %w", err)
	}
	return false, nil
}
