package postgres

import (
	"testing"

	"github.com/geocoder89/tourhub/internal/query"
	"github.com/stretchr/testify/assert"
)

func TestWhereClause(t *testing.T) {
	conds := []query.Condition{
		{Field: "price", Op: query.Gte, Value: 100.0},
		{Field: "difficulty", Op: query.In, Value: []any{"easy", "medium"}},
		{Field: "unknown", Op: query.Eq, Value: "x"},
	}

	where, args := whereClause([]string{"NOT secret_tour"}, conds, tourSortColumns, nil)

	assert.Equal(t, " WHERE NOT secret_tour AND price >= $1 AND difficulty = ANY($2)", where)
	assert.Equal(t, []any{100.0, []string{"easy", "medium"}}, args)
}

func TestOrderAndPageClause(t *testing.T) {
	l := query.List{Sort: []query.SortField{{Field: "ratingsAverage", Desc: true}, {Field: "price"}}, Page: 3, Limit: 5}

	assert.Equal(t, " ORDER BY ratings_average DESC, price ASC, id ASC", orderClause(l.Sort, tourSortColumns))

	page, args := pageClause(l, []any{"x"})
	assert.Equal(t, " LIMIT $2 OFFSET $3", page)
	assert.Equal(t, []any{"x", 5, 10}, args)
}
