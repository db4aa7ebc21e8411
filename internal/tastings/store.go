package tastings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"tasting_bot/internal/logger"
)

var (
	// ErrNotFound is returned by unscoped lookups of a missing tasting.
	ErrNotFound = errors.New("tasting not found")
	// ErrNoAccess covers both foreign and missing tastings in owner-scoped calls.
	ErrNoAccess = errors.New("no access to tasting")
)

// Dialect selects SQL flavor differences
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// Store is the SQL repository for tastings, infusions, photos and users
type Store struct {
	db       *sql.DB
	dialect  Dialect
	validate *validator.Validate
}

// ParseURL splits "sqlite://path" or "postgres://..." into a dialect and a driver DSN
func ParseURL(url string) (Dialect, string, error) {
	switch {
	case strings.HasPrefix(url, "sqlite://"):
		return DialectSQLite, strings.TrimPrefix(url, "sqlite://"), nil
	case strings.HasPrefix(url, "sqlite:"):
		return DialectSQLite, strings.TrimPrefix(url, "sqlite:"), nil
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return DialectPostgres, url, nil
	default:
		return "", "", fmt.Errorf("unsupported database URL %q", url)
	}
}

// OpenURL opens a store from a database URL
func OpenURL(ctx context.Context, url string) (*Store, error) {
	dialect, dsn, err := ParseURL(url)
	if err != nil {
		return nil, err
	}
	return Open(ctx, dialect, dsn)
}

// Open connects, checks the connection and creates missing tables
func Open(ctx context.Context, dialect Dialect, dsn string) (*Store, error) {
	var db *sql.DB
	var err error
	switch dialect {
	case DialectSQLite:
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		db, err = sql.Open("sqlite", dsn+sep+"_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
		if err == nil {
			// single writer; transactions hold the only connection
			db.SetMaxOpenConns(1)
		}
	case DialectPostgres:
		db, err = sql.Open("postgres", dsn)
	default:
		return nil, fmt.Errorf("unsupported dialect %q", dialect)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &Store{db: db, dialect: dialect, validate: validator.New()}
	if err := s.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info().Str("dialect", string(dialect)).Msg("tasting store ready")
	return s, nil
}

// Close releases the connection pool
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the pool for tests and tooling
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) Dialect() Dialect {
	return s.dialect
}

// rebind rewrites "?" placeholders for postgres
func (s *Store) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

const schemaTemplate = `
CREATE TABLE IF NOT EXISTS users (
	id {bigint} PRIMARY KEY,
	created_at {bigint} NOT NULL,
	tz_offset_min INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS tastings (
	id {serial},
	owner_id {bigint} NOT NULL,
	created_at {bigint} NOT NULL,
	name TEXT NOT NULL,
	year INTEGER,
	region TEXT,
	category TEXT NOT NULL DEFAULT '',
	grams {real},
	temp_c INTEGER,
	tasted_at TEXT,
	gear TEXT,
	aroma_dry TEXT,
	aroma_warmed TEXT,
	effects TEXT,
	scenarios TEXT,
	rating INTEGER NOT NULL DEFAULT 0,
	summary TEXT
);
CREATE INDEX IF NOT EXISTS idx_tastings_owner ON tastings (owner_id, id);
CREATE TABLE IF NOT EXISTS infusions (
	id {serial},
	tasting_id {bigint} NOT NULL REFERENCES tastings (id) ON DELETE CASCADE,
	n INTEGER NOT NULL,
	seconds INTEGER,
	liquor_color TEXT,
	taste TEXT,
	special_notes TEXT,
	body TEXT,
	aftertaste TEXT
);
CREATE INDEX IF NOT EXISTS idx_infusions_tasting ON infusions (tasting_id, n);
CREATE TABLE IF NOT EXISTS photos (
	id {serial},
	tasting_id {bigint} NOT NULL REFERENCES tastings (id) ON DELETE CASCADE,
	file_id TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_photos_tasting ON photos (tasting_id);
`

func (s *Store) ensureSchema(ctx context.Context) error {
	r := strings.NewReplacer(
		"{serial}", "INTEGER PRIMARY KEY AUTOINCREMENT",
		"{bigint}", "INTEGER",
		"{real}", "REAL",
	)
	if s.dialect == DialectPostgres {
		r = strings.NewReplacer(
			"{serial}", "BIGSERIAL PRIMARY KEY",
			"{bigint}", "BIGINT",
			"{real}", "DOUBLE PRECISION",
		)
	}

	for _, stmt := range strings.Split(r.Replace(schemaTemplate), ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// Nullable column helpers

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

func strPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func nullable[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}
