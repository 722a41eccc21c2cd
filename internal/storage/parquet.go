package storage

import (
	"context"
	"fmt"
	"strings"

	"ratelens/internal/domain"
	"ratelens/internal/engine"
)

// ReadParquet reads a local columnar file through a pooled connection,
// optionally projecting to the given columns, and returns rows plus the
// column order the file produced.
func ReadParquet(ctx context.Context, pool *engine.Pool, path string, columns []string) ([]domain.Row, []string, error) {
	conn, err := pool.Get(ctx, path)
	if err != nil {
		return nil, nil, err
	}

	projection := "*"
	if len(columns) > 0 {
		quoted := make([]string, len(columns))
		for i, c := range columns {
			quoted[i] = quoteIdent(c)
		}
		projection = strings.Join(quoted, ", ")
	}

	query := fmt.Sprintf("SELECT %s FROM %s", projection, pool.ViewName())
	rows, err := conn.QueryContext(ctx, query)
	if err != nil {
		return nil, nil, fmt.Errorf("read columnar source %s: %w", path, err)
	}
	defer rows.Close() //nolint:errcheck

	cols, err := rows.Columns()
	if err != nil {
		return nil, nil, fmt.Errorf("columns for %s: %w", path, err)
	}

	var out []domain.Row
	values := make([]interface{}, len(cols))
	ptrs := make([]interface{}, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, fmt.Errorf("scan row from %s: %w", path, err)
		}
		row := make(domain.Row, len(cols))
		for i, c := range cols {
			row[c] = values[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate %s: %w", path, err)
	}

	return out, cols, nil
}

// quoteIdent double-quotes a SQL identifier, escaping embedded quotes.
func quoteIdent(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}
