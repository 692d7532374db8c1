package store

import (
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
)

// DonorsChangedChannel is the Postgres NOTIFY channel carrying donor ids after
// every donor mutation.
const DonorsChangedChannel = "donors_changed"

func psql() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
}

// buildUpdateClause creates the SET clause for ON CONFLICT DO UPDATE
// e.g., "name = EXCLUDED.name, slug = EXCLUDED.slug, ..."
func buildUpdateClause(columns []string, skip ...string) string {
	skipped := make(map[string]bool, len(skip))
	for _, s := range skip {
		skipped[s] = true
	}

	parts := make([]string, 0, len(columns))
	for _, c := range columns {
		if skipped[c] {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s = EXCLUDED.%s", c, c))
	}
	return strings.Join(parts, ", ")
}
