package tastings

import (
	"context"
	"fmt"
	"strings"

	"tasting_bot/internal/logger"
)

type columnKind int

const (
	colText columnKind = iota
	colRequiredText
	colInt
	colFloat
	colRating
)

// editableColumns whitelists the columns UpdateField may touch
var editableColumns = map[string]columnKind{
	"name":      colRequiredText,
	"year":      colInt,
	"region":    colText,
	"category":  colRequiredText,
	"grams":     colFloat,
	"temp_c":    colInt,
	"tasted_at": colText,
	"gear":      colText,
	"effects":   colText,
	"scenarios": colText,
	"rating":    colRating,
	"summary":   colText,
}

// coerce maps a draft value onto the column type. Drafts that went through JSON carry float64 numbers.
func coerce(kind columnKind, value any) (any, error) {
	switch kind {
	case colRequiredText:
		s, ok := value.(string)
		if !ok || strings.TrimSpace(s) == "" {
			return nil, fmt.Errorf("value is required")
		}
		return strings.TrimSpace(s), nil
	case colText:
		switch v := value.(type) {
		case nil:
			return nil, nil
		case string:
			return v, nil
		}
	case colInt, colRating:
		var n int
		switch v := value.(type) {
		case nil:
			if kind == colRating {
				return 0, nil
			}
			return nil, nil
		case int:
			n = v
		case int64:
			n = int(v)
		case float64:
			n = int(v)
		default:
			return nil, fmt.Errorf("unexpected %T for integer column", value)
		}
		if kind == colRating {
			n = min(max(n, 0), 10)
		}
		return n, nil
	case colFloat:
		switch v := value.(type) {
		case nil:
			return nil, nil
		case float64:
			return v, nil
		case int:
			return float64(v), nil
		}
	}
	return nil, fmt.Errorf("unexpected %T for column", value)
}

// UpdateField sets one column of an owned tasting
func (s *Store) UpdateField(ctx context.Context, ownerID, id int64, field string, value any) error {
	kind, ok := editableColumns[field]
	if !ok {
		return fmt.Errorf("field %q is not editable", field)
	}
	v, err := coerce(kind, value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", field, err)
	}

	// field is whitelisted above
	res, err := s.db.ExecContext(ctx, s.rebind(`UPDATE tastings SET `+field+` = ? WHERE id = ? AND owner_id = ?`), v, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", field, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", field, err)
	}
	if n == 0 {
		return ErrNoAccess
	}

	logger.Info().Int64("tasting_id", id).Str("field", field).Msg("tasting updated")
	return nil
}
