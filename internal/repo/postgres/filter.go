package postgres

import (
	"fmt"
	"strings"

	"github.com/geocoder89/tourhub/internal/query"
)

var sqlOps = map[query.Op]string{
	query.Eq:  "=",
	query.Gte: ">=",
	query.Gt:  ">",
	query.Lte: "<=",
	query.Lt:  "<",
}

// whereClause appends the list conditions to fixed, numbering placeholders
// after the args already present. Fields missing from columns are skipped;
// query.Parse has already rejected them.
func whereClause(fixed []string, conds []query.Condition, columns map[string]string, args []any) (string, []any) {
	parts := append([]string(nil), fixed...)

	for _, c := range conds {
		col, ok := columns[c.Field]
		if !ok {
			continue
		}
		if c.Op == query.In {
			args = append(args, typedSlice(c.Value))
			parts = append(parts, fmt.Sprintf("%s = ANY($%d)", col, len(args)))
			continue
		}
		op, ok := sqlOps[c.Op]
		if !ok {
			continue
		}
		args = append(args, c.Value)
		parts = append(parts, fmt.Sprintf("%s %s $%d", col, op, len(args)))
	}

	if len(parts) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(parts, " AND "), args
}

func orderClause(sorts []query.SortField, columns map[string]string) string {
	var parts []string
	for _, s := range sorts {
		col, ok := columns[s.Field]
		if !ok {
			continue
		}
		dir := "ASC"
		if s.Desc {
			dir = "DESC"
		}
		parts = append(parts, col+" "+dir)
	}
	// stable ordering for pagination
	parts = append(parts, "id ASC")
	return " ORDER BY " + strings.Join(parts, ", ")
}

func pageClause(l query.List, args []any) (string, []any) {
	if l.Limit <= 0 {
		return "", args
	}
	args = append(args, l.Limit, l.Offset())
	return fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args)), args
}

// typedSlice narrows an In value to a slice pgx can encode as an array.
func typedSlice(v any) any {
	vals, ok := v.([]any)
	if !ok || len(vals) == 0 {
		return v
	}
	switch vals[0].(type) {
	case string:
		out := make([]string, 0, len(vals))
		for _, x := range vals {
			s, _ := x.(string)
			out = append(out, s)
		}
		return out
	case float64:
		out := make([]float64, 0, len(vals))
		for _, x := range vals {
			f, _ := x.(float64)
			out = append(out, f)
		}
		return out
	}
	return v
}
