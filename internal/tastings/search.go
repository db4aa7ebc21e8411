package tastings

import (
	"context"
	"fmt"
	"strings"

	"tasting_bot/pkg"
)

// DefaultPageSize is the number of rows per search page
const DefaultPageSize = 5

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Find runs q for its owner, newest first, returning rows with id < cursor (cursor 0 starts from the top)
func (s *Store) Find(ctx context.Context, q pkg.Query, cursor int64, limit int) (pkg.Page, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}

	where := []string{"owner_id = ?"}
	args := []any{q.OwnerID}
	switch q.Kind {
	case pkg.QueryName:
		where = append(where, `LOWER(name) LIKE ? ESCAPE '\'`)
		args = append(args, "%"+likeEscaper.Replace(strings.ToLower(strings.TrimSpace(q.Text)))+"%")
	case pkg.QueryCategory:
		where = append(where, "LOWER(category) = ?")
		args = append(args, strings.ToLower(strings.TrimSpace(q.Category)))
	case pkg.QueryYear:
		where = append(where, "year = ?")
		args = append(args, q.Year)
	case pkg.QueryMinRating:
		where = append(where, "rating >= ?")
		args = append(args, q.MinRating)
	case pkg.QueryRecent:
	default:
		return pkg.Page{}, fmt.Errorf("unknown query kind %q", q.Kind)
	}
	if cursor > 0 {
		where = append(where, "id < ?")
		args = append(args, cursor)
	}
	args = append(args, limit+1)

	query := `SELECT ` + tastingColumns + ` FROM tastings WHERE ` + strings.Join(where, " AND ") + ` ORDER BY id DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return pkg.Page{}, fmt.Errorf("failed to search tastings: %w", err)
	}
	defer rows.Close()

	var page pkg.Page
	for rows.Next() {
		t, err := scanTasting(rows)
		if err != nil {
			return pkg.Page{}, fmt.Errorf("failed to scan tasting: %w", err)
		}
		page.Items = append(page.Items, t)
	}
	if err := rows.Err(); err != nil {
		return pkg.Page{}, fmt.Errorf("failed to search tastings: %w", err)
	}

	if len(page.Items) > limit {
		page.Items = page.Items[:limit]
		page.HasMore = true
	}
	if n := len(page.Items); n > 0 {
		page.NextCursor = page.Items[n-1].ID
	}
	return page, nil
}

// FindBySubstring matches names case-insensitively
func (s *Store) FindBySubstring(ctx context.Context, ownerID int64, text string, cursor int64, limit int) (pkg.Page, error) {
	return s.Find(ctx, pkg.Query{Kind: pkg.QueryName, OwnerID: ownerID, Text: text}, cursor, limit)
}

func (s *Store) FindByCategory(ctx context.Context, ownerID int64, category string, cursor int64, limit int) (pkg.Page, error) {
	return s.Find(ctx, pkg.Query{Kind: pkg.QueryCategory, OwnerID: ownerID, Category: category}, cursor, limit)
}

func (s *Store) FindByYear(ctx context.Context, ownerID int64, year int, cursor int64, limit int) (pkg.Page, error) {
	return s.Find(ctx, pkg.Query{Kind: pkg.QueryYear, OwnerID: ownerID, Year: year}, cursor, limit)
}

func (s *Store) FindByMinRating(ctx context.Context, ownerID int64, threshold int, cursor int64, limit int) (pkg.Page, error) {
	return s.Find(ctx, pkg.Query{Kind: pkg.QueryMinRating, OwnerID: ownerID, MinRating: threshold}, cursor, limit)
}

func (s *Store) FindRecent(ctx context.Context, ownerID int64, cursor int64, limit int) (pkg.Page, error) {
	return s.Find(ctx, pkg.Query{Kind: pkg.QueryRecent, OwnerID: ownerID}, cursor, limit)
}
