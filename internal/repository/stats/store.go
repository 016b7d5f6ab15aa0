// Package stats executes read-only queries against the relational stats store.
package stats

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // CGO-free sqlite driver

	"github.com/courtside-ai/courtside/internal/domain"
)

// Store wraps the SQLite stats database. Only single SELECT statements are
// executed; everything else is rejected before reaching the driver.
type Store struct {
	db           *sql.DB
	queryTimeout time.Duration
	maxRows      int
}

// Open opens the stats database read-only.
func Open(path string, queryTimeout time.Duration, maxRows int) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?mode=ro", path)
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open stats db: %w", err)
	}
	return &Store{db: sqlDB, queryTimeout: queryTimeout, maxRows: maxRows}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks database availability.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping stats db: %w", err)
	}
	return nil
}

// Schema returns the CREATE statements of all user tables, used to describe
// the store in generation prompts.
func (s *Store) Schema(ctx context.Context) (string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT sql FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return "", fmt.Errorf("read schema: %w", err)
	}
	defer rows.Close()

	var ddl []string
	for rows.Next() {
		var stmt sql.NullString
		if err := rows.Scan(&stmt); err != nil {
			return "", fmt.Errorf("scan schema: %w", err)
		}
		if stmt.Valid {
			ddl = append(ddl, stmt.String)
		}
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("read schema: %w", err)
	}
	return strings.Join(ddl, ";\n"), nil
}

// Query executes a single SELECT under the configured execution ceiling and
// returns up to maxRows rows as column-name maps.
func (s *Store) Query(ctx context.Context, query string) ([]string, []map[string]any, error) {
	if err := validateReadOnly(query); err != nil {
		return nil, nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, nil, fmt.Errorf("execute query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, nil, fmt.Errorf("read columns: %w", err)
	}

	var out []map[string]any
	for rows.Next() {
		if len(out) >= s.maxRows {
			break
		}

		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, fmt.Errorf("scan row: %w", err)
		}

		row := make(map[string]any, len(cols))
		for i, col := range cols {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate rows: %w", err)
	}

	return cols, out, nil
}

// validateReadOnly rejects anything that is not a single SELECT statement.
func validateReadOnly(query string) error {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return fmt.Errorf("%w: empty query", domain.ErrQueryRejected)
	}

	lower := strings.ToLower(trimmed)
	if !strings.HasPrefix(lower, "select") && !strings.HasPrefix(lower, "with") {
		return fmt.Errorf("%w: only SELECT statements are allowed", domain.ErrQueryRejected)
	}

	// A trailing semicolon is fine; an embedded one means multiple statements.
	if i := strings.IndexByte(trimmed, ';'); i >= 0 && i != len(trimmed)-1 {
		return fmt.Errorf("%w: multiple statements are not allowed", domain.ErrQueryRejected)
	}

	for _, kw := range []string{"insert", "update", "delete", "drop", "alter", "create", "attach", "pragma"} {
		if containsWord(lower, kw) {
			return fmt.Errorf("%w: statement contains %q", domain.ErrQueryRejected, kw)
		}
	}
	return nil
}

// containsWord reports whether lower contains kw as a whole word.
func containsWord(lower, kw string) bool {
	idx := 0
	for {
		i := strings.Index(lower[idx:], kw)
		if i < 0 {
			return false
		}
		i += idx
		before := i == 0 || !isWordByte(lower[i-1])
		after := i+len(kw) == len(lower) || !isWordByte(lower[i+len(kw)])
		if before && after {
			return true
		}
		idx = i + len(kw)
	}
}

func isWordByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9')
}
