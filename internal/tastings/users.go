package tastings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tasting_bot/pkg"
)

// GetOrCreateUser returns the settings row of a user, creating it with a zero offset
func (s *Store) GetOrCreateUser(ctx context.Context, id int64) (pkg.User, error) {
	u := pkg.User{ID: id}
	var createdAt int64
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT created_at, tz_offset_min FROM users WHERE id = ?`), id).
		Scan(&createdAt, &u.TZOffsetMin)
	if err == nil {
		u.CreatedAt = unixUTC(createdAt)
		return u, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return pkg.User{}, fmt.Errorf("failed to load user: %w", err)
	}

	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx, s.rebind(`INSERT INTO users (id, created_at, tz_offset_min) VALUES (?, ?, 0)
		ON CONFLICT (id) DO NOTHING`), id, now.Unix())
	if err != nil {
		return pkg.User{}, fmt.Errorf("failed to create user: %w", err)
	}
	u.CreatedAt = unixUTC(now.Unix())
	return u, nil
}

// SetUserTZ stores the offset in minutes east of UTC
func (s *Store) SetUserTZ(ctx context.Context, id int64, offsetMin int) error {
	if _, err := s.GetOrCreateUser(ctx, id); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, s.rebind(`UPDATE users SET tz_offset_min = ? WHERE id = ?`), offsetMin, id); err != nil {
		return fmt.Errorf("failed to update timezone: %w", err)
	}
	return nil
}

func unixUTC(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}
