package store

import (
	"fmt"
	"sort"
	"strings"

	sq "github.com/Masterminds/squirrel"
)

func psql() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
}

// buildUpdateClause renders the SET list of an ON CONFLICT DO UPDATE.
func buildUpdateClause(fields map[string]any) string {
	keys := make([]string, 0, len(fields))
	for field := range fields {
		keys = append(keys, field)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, field := range keys {
		parts[i] = fmt.Sprintf("%s = EXCLUDED.%s", field, field)
	}
	return strings.Join(parts, ", ")
}
