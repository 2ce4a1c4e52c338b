package memory

import (
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/geocoder89/tourhub/internal/query"
)

// doc is the JSON form of a record, the shape list queries address.
type doc map[string]any

func toDoc(v any) doc {
	b, err := json.Marshal(v)
	if err != nil {
		return doc{}
	}
	var d doc
	_ = json.Unmarshal(b, &d)
	return d
}

func (d doc) matches(conds []query.Condition) bool {
	for _, c := range conds {
		if !matchOne(d[c.Field], c) {
			return false
		}
	}
	return true
}

func matchOne(have any, c query.Condition) bool {
	if c.Op == query.In {
		vals, _ := c.Value.([]any)
		for _, v := range vals {
			if cmp, ok := compare(have, v); ok && cmp == 0 {
				return true
			}
		}
		return false
	}

	cmp, ok := compare(have, c.Value)
	if !ok {
		return false
	}
	switch c.Op {
	case query.Eq:
		return cmp == 0
	case query.Gte:
		return cmp >= 0
	case query.Gt:
		return cmp > 0
	case query.Lte:
		return cmp <= 0
	case query.Lt:
		return cmp < 0
	}
	return false
}

// compare orders a decoded JSON value against a typed query value.
func compare(have, want any) (int, bool) {
	switch w := want.(type) {
	case float64:
		h, ok := have.(float64)
		if !ok {
			return 0, false
		}
		return cmpOrdered(h, w), true
	case string:
		h, ok := have.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(h, w), true
	case bool:
		h, ok := have.(bool)
		if !ok || h != w {
			return 1, ok
		}
		return 0, true
	case time.Time:
		s, ok := have.(string)
		if !ok {
			return 0, false
		}
		h, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return 0, false
		}
		return h.Compare(w), true
	}
	return 0, false
}

func cmpOrdered(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// sortDocs orders records by the list's sort keys. Missing values sort first.
func sortDocs[T any](items []T, docs []doc, keys []query.SortField) {
	idx := make([]int, len(items))
	for i := range idx {
		idx[i] = i
	}

	sort.SliceStable(idx, func(a, b int) bool {
		da, db := docs[idx[a]], docs[idx[b]]
		for _, k := range keys {
			c := compareValues(da[k.Field], db[k.Field])
			if c == 0 {
				continue
			}
			if k.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})

	sorted := make([]T, len(items))
	for i, j := range idx {
		sorted[i] = items[j]
	}
	copy(items, sorted)
}

func compareValues(a, b any) int {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return -1
		default:
			return 1
		}
	}

	switch av := a.(type) {
	case float64:
		if bv, ok := b.(float64); ok {
			return cmpOrdered(av, bv)
		}
	case string:
		if bv, ok := b.(string); ok {
			ta, errA := time.Parse(time.RFC3339Nano, av)
			tb, errB := time.Parse(time.RFC3339Nano, bv)
			if errA == nil && errB == nil {
				return ta.Compare(tb)
			}
			return strings.Compare(av, bv)
		}
	case bool:
		if bv, ok := b.(bool); ok && av != bv {
			if av {
				return 1
			}
			return -1
		}
	}
	return 0
}

// apply filters, sorts and pages items according to l.
func apply[T any](items []T, l query.List) []T {
	docs := make([]doc, 0, len(items))
	kept := make([]T, 0, len(items))
	for _, it := range items {
		d := toDoc(it)
		if d.matches(l.Conditions) {
			docs = append(docs, d)
			kept = append(kept, it)
		}
	}

	sortDocs(kept, docs, l.SortOrDefault())

	if l.Limit <= 0 {
		return kept
	}
	start := l.Offset()
	if start < 0 {
		start = 0
	}
	if start >= len(kept) {
		return []T{}
	}
	end := start + l.Limit
	if end > len(kept) {
		end = len(kept)
	}
	return kept[start:end]
}
