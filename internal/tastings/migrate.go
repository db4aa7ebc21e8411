package tastings

import (
	"context"
	"fmt"

	"tasting_bot/internal/logger"
	"tasting_bot/pkg"
)

// MigrationReport summarizes a copy between stores
type MigrationReport struct {
	Users     int
	Tastings  int
	Infusions int
	Photos    int
	// IDs maps source tasting ids to target ids.
	IDs map[int64]int64
}

// Migrate copies every user and tasting from src into dst inside one dst transaction.
// Tasting ids are reassigned by dst; user ids are kept.
func Migrate(ctx context.Context, src, dst *Store) (MigrationReport, error) {
	if src == dst {
		return MigrationReport{}, fmt.Errorf("source and target must differ")
	}

	users, err := src.allUsers(ctx)
	if err != nil {
		return MigrationReport{}, err
	}
	ids, err := src.allIDs(ctx)
	if err != nil {
		return MigrationReport{}, err
	}

	// Load everything before opening the target transaction.
	all := make([]pkg.Tasting, 0, len(ids))
	for _, id := range ids {
		t, err := src.Load(ctx, id)
		if err != nil {
			return MigrationReport{}, err
		}
		all = append(all, t)
	}

	tx, err := dst.db.BeginTx(ctx, nil)
	if err != nil {
		return MigrationReport{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	report := MigrationReport{IDs: make(map[int64]int64, len(all))}
	for _, u := range users {
		_, err := tx.ExecContext(ctx, dst.rebind(`INSERT INTO users (id, created_at, tz_offset_min) VALUES (?, ?, ?)
			ON CONFLICT (id) DO NOTHING`), u.ID, u.CreatedAt.Unix(), u.TZOffsetMin)
		if err != nil {
			return MigrationReport{}, fmt.Errorf("failed to copy user %d: %w", u.ID, err)
		}
		report.Users++
	}

	for _, t := range all {
		newID, err := dst.insert(ctx, tx, t)
		if err != nil {
			return MigrationReport{}, fmt.Errorf("failed to copy tasting %d: %w", t.ID, err)
		}
		report.IDs[t.ID] = newID
		report.Tastings++
		report.Infusions += len(t.Infusions)
		report.Photos += len(t.Attachments)
	}

	if err := tx.Commit(); err != nil {
		return MigrationReport{}, fmt.Errorf("failed to commit migration: %w", err)
	}

	logger.Info().
		Int("users", report.Users).
		Int("tastings", report.Tastings).
		Int("infusions", report.Infusions).
		Int("photos", report.Photos).
		Msg("migration complete")
	return report, nil
}

func (s *Store) allIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM tastings ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tastings: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) allUsers(ctx context.Context) ([]pkg.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, created_at, tz_offset_min FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []pkg.User
	for rows.Next() {
		var (
			u         pkg.User
			createdAt int64
		)
		if err := rows.Scan(&u.ID, &createdAt, &u.TZOffsetMin); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		u.CreatedAt = unixUTC(createdAt)
		users = append(users, u)
	}
	return users, rows.Err()
}
