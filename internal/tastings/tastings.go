package tastings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tasting_bot/internal/logger"
	"tasting_bot/pkg"
)

const tastingColumns = `id, owner_id, created_at, name, year, region, category, grams, temp_c, tasted_at,
	gear, aroma_dry, aroma_warmed, effects, scenarios, rating, summary`

type scanner interface {
	Scan(dest ...any) error
}

func scanTasting(row scanner) (pkg.Tasting, error) {
	var (
		t         pkg.Tasting
		createdAt int64
		year      sql.NullInt64
		tempC     sql.NullInt64
		grams     sql.NullFloat64
		region    sql.NullString
		tastedAt  sql.NullString
		gear      sql.NullString
		aromaDry  sql.NullString
		aromaWarm sql.NullString
		effects   sql.NullString
		scenarios sql.NullString
		summary   sql.NullString
	)
	err := row.Scan(&t.ID, &t.OwnerID, &createdAt, &t.Name, &year, &region, &t.Category, &grams, &tempC,
		&tastedAt, &gear, &aromaDry, &aromaWarm, &effects, &scenarios, &t.Rating, &summary)
	if err != nil {
		return pkg.Tasting{}, err
	}
	t.CreatedAt = time.Unix(createdAt, 0).UTC()
	t.Year = intPtr(year)
	t.Region = strPtr(region)
	t.Grams = floatPtr(grams)
	t.TempC = intPtr(tempC)
	t.TastedAt = strPtr(tastedAt)
	t.Gear = strPtr(gear)
	t.AromaDry = strPtr(aromaDry)
	t.AromaWarmed = strPtr(aromaWarm)
	t.Effects = strPtr(effects)
	t.Scenarios = strPtr(scenarios)
	t.Summary = strPtr(summary)
	return t, nil
}

// execer is satisfied by *sql.DB and *sql.Tx
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Create validates t and inserts it with its infusions and photos in one transaction
func (s *Store) Create(ctx context.Context, t pkg.Tasting) (int64, error) {
	if err := s.check(t); err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	id, err := s.insert(ctx, tx, t)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit tasting: %w", err)
	}

	logger.Info().
		Int64("tasting_id", id).
		Int64("owner", t.OwnerID).
		Int("infusions", len(t.Infusions)).
		Int("photos", len(t.Attachments)).
		Msg("tasting saved")
	return id, nil
}

// check runs struct validation and the infusion numbering rule
func (s *Store) check(t pkg.Tasting) error {
	if err := s.validate.Struct(t); err != nil {
		return fmt.Errorf("invalid tasting: %w", err)
	}
	for i, inf := range t.Infusions {
		if inf.N != i+1 {
			return fmt.Errorf("invalid tasting: infusion %d numbered %d", i+1, inf.N)
		}
	}
	return nil
}

// insert writes parent, children and attachments using tx; it returns the new parent id
func (s *Store) insert(ctx context.Context, tx execer, t pkg.Tasting) (int64, error) {
	createdAt := t.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	var id int64
	err := tx.QueryRowContext(ctx, s.rebind(`INSERT INTO tastings (owner_id, created_at, name, year, region, category,
		grams, temp_c, tasted_at, gear, aroma_dry, aroma_warmed, effects, scenarios, rating, summary)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`),
		t.OwnerID, createdAt.Unix(), t.Name, nullable(t.Year), nullable(t.Region), t.Category,
		nullable(t.Grams), nullable(t.TempC), nullable(t.TastedAt), nullable(t.Gear), nullable(t.AromaDry),
		nullable(t.AromaWarmed), nullable(t.Effects), nullable(t.Scenarios), t.Rating, nullable(t.Summary),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert tasting: %w", err)
	}

	for _, inf := range t.Infusions {
		_, err := tx.ExecContext(ctx, s.rebind(`INSERT INTO infusions (tasting_id, n, seconds, liquor_color, taste,
			special_notes, body, aftertaste) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
			id, inf.N, nullable(inf.Seconds), nullable(inf.LiquorColor), nullable(inf.Taste),
			nullable(inf.SpecialNotes), nullable(inf.Body), nullable(inf.Aftertaste))
		if err != nil {
			return 0, fmt.Errorf("failed to insert infusion %d: %w", inf.N, err)
		}
	}

	for _, a := range t.Attachments {
		if _, err := tx.ExecContext(ctx, s.rebind(`INSERT INTO photos (tasting_id, file_id) VALUES (?, ?)`), id, a.FileID); err != nil {
			return 0, fmt.Errorf("failed to insert photo: %w", err)
		}
	}
	return id, nil
}

// Load reads a tasting with children regardless of owner
func (s *Store) Load(ctx context.Context, id int64) (pkg.Tasting, error) {
	return s.load(ctx, s.db, id)
}

func (s *Store) load(ctx context.Context, q execer, id int64) (pkg.Tasting, error) {
	t, err := scanTasting(q.QueryRowContext(ctx, s.rebind(`SELECT `+tastingColumns+` FROM tastings WHERE id = ?`), id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return pkg.Tasting{}, ErrNotFound
		}
		return pkg.Tasting{}, fmt.Errorf("failed to load tasting %d: %w", id, err)
	}
	if t.Infusions, err = s.infusions(ctx, q, id); err != nil {
		return pkg.Tasting{}, err
	}
	if t.Attachments, err = s.photos(ctx, q, id); err != nil {
		return pkg.Tasting{}, err
	}
	return t, nil
}

// Get loads a tasting owned by ownerID
func (s *Store) Get(ctx context.Context, ownerID, id int64) (pkg.Tasting, error) {
	t, err := s.Load(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return pkg.Tasting{}, ErrNoAccess
	}
	if err != nil {
		return pkg.Tasting{}, err
	}
	if t.OwnerID != ownerID {
		return pkg.Tasting{}, ErrNoAccess
	}
	return t, nil
}

func (s *Store) infusions(ctx context.Context, q execer, id int64) ([]pkg.Infusion, error) {
	rows, err := q.QueryContext(ctx, s.rebind(`SELECT n, seconds, liquor_color, taste, special_notes, body, aftertaste
		FROM infusions WHERE tasting_id = ? ORDER BY n`), id)
	if err != nil {
		return nil, fmt.Errorf("failed to query infusions: %w", err)
	}
	defer rows.Close()

	var out []pkg.Infusion
	for rows.Next() {
		var (
			inf                                      pkg.Infusion
			seconds                                  sql.NullInt64
			color, taste, special, body, aftertaste sql.NullString
		)
		if err := rows.Scan(&inf.N, &seconds, &color, &taste, &special, &body, &aftertaste); err != nil {
			return nil, fmt.Errorf("failed to scan infusion: %w", err)
		}
		inf.Seconds = intPtr(seconds)
		inf.LiquorColor = strPtr(color)
		inf.Taste = strPtr(taste)
		inf.SpecialNotes = strPtr(special)
		inf.Body = strPtr(body)
		inf.Aftertaste = strPtr(aftertaste)
		out = append(out, inf)
	}
	return out, rows.Err()
}

func (s *Store) photos(ctx context.Context, q execer, id int64) ([]pkg.Attachment, error) {
	rows, err := q.QueryContext(ctx, s.rebind(`SELECT file_id FROM photos WHERE tasting_id = ? ORDER BY id`), id)
	if err != nil {
		return nil, fmt.Errorf("failed to query photos: %w", err)
	}
	defer rows.Close()

	var out []pkg.Attachment
	for rows.Next() {
		var a pkg.Attachment
		if err := rows.Scan(&a.FileID); err != nil {
			return nil, fmt.Errorf("failed to scan photo: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Delete removes an owned tasting; children go with it
func (s *Store) Delete(ctx context.Context, ownerID, id int64) error {
	res, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM tastings WHERE id = ? AND owner_id = ?`), id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete tasting: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete tasting: %w", err)
	}
	if n == 0 {
		return ErrNoAccess
	}
	logger.Info().Int64("tasting_id", id).Int64("owner", ownerID).Msg("tasting deleted")
	return nil
}
