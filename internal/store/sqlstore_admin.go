package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/stanadevale/trailrace/internal/trailrace"
)

func (s *SQLStore) CreateUser(ctx context.Context, username, passwordHash string, now time.Time) (trailrace.User, error) {
	u := trailrace.User{Username: username, PasswordHash: passwordHash, CreatedAt: now.UTC()}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO users (username, password_hash, created_at)
		VALUES (?, ?, ?)
		RETURNING id
	`, username, passwordHash, formatTime(now)).Scan(&u.ID)
	if isUniqueViolation(err) {
		return u, ErrConflict
	}
	return u, err
}

func (s *SQLStore) UserByUsername(ctx context.Context, username string) (trailrace.User, error) {
	var u trailrace.User
	var created dbTime
	err := s.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, created_at FROM users WHERE username = ?`, username,
	).Scan(&u.ID, &u.Username, &u.PasswordHash, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return u, ErrNotFound
	}
	u.CreatedAt = created.Time
	return u, err
}

func (s *SQLStore) UpdateUserPassword(ctx context.Context, id int64, passwordHash string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET password_hash = ? WHERE id = ?`, passwordHash, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLStore) CreateSession(ctx context.Context, userID int64, now, expiresAt time.Time) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO admin_sessions (id, user_id, created_at, expires_at)
		VALUES (?, ?, ?, ?)
	`, id, userID, formatTime(now), formatTime(expiresAt))
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *SQLStore) UserFromSession(ctx context.Context, sessionID string, now time.Time) (trailrace.User, error) {
	var u trailrace.User
	var created dbTime
	err := s.db.QueryRowContext(ctx, `
		SELECT u.id, u.username, u.password_hash, u.created_at
		FROM admin_sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.id = ? AND s.expires_at > ?
	`, sessionID, formatTime(now)).Scan(&u.ID, &u.Username, &u.PasswordHash, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return u, ErrNotFound
	}
	u.CreatedAt = created.Time
	return u, err
}

func (s *SQLStore) DeleteSession(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM admin_sessions WHERE id = ?`, sessionID)
	return err
}
