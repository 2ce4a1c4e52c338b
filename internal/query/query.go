// Package query parses list query strings (filters, sorting, field limiting
// and pagination) into a store-neutral List.
package query

import (
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

type Op string

const (
	Eq  Op = "eq"
	In  Op = "in"
	Gte Op = "gte"
	Gt  Op = "gt"
	Lte Op = "lte"
	Lt  Op = "lt"
)

type Kind int

const (
	String Kind = iota
	Number
	Bool
	Time
	// Opaque fields can be selected with fields= but not filtered or sorted.
	Opaque
)

// Schema maps the JSON names of a resource's fields to their kinds.
type Schema map[string]Kind

const (
	DefaultLimit = 100
	MaxLimit     = 100

	// MaxPage keeps (Page-1)*Limit inside int.
	MaxPage = math.MaxInt / MaxLimit
)

type Condition struct {
	Field string
	Op    Op
	Value any // string, float64, bool, time.Time, or []any for In
}

type SortField struct {
	Field string
	Desc  bool
}

type List struct {
	Conditions []Condition
	Sort       []SortField
	Fields     []string
	Page       int
	Limit      int
}

func (l List) Offset() int {
	return (l.Page - 1) * l.Limit
}

// SortOrDefault falls back to newest first.
func (l List) SortOrDefault() []SortField {
	if len(l.Sort) == 0 {
		return []SortField{{Field: "createdAt", Desc: true}}
	}
	return l.Sort
}

// Error is returned for a malformed query parameter.
type Error struct {
	Param   string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("invalid query parameter %q: %s", e.Param, e.Message)
}

var reserved = map[string]bool{"page": true, "sort": true, "limit": true, "fields": true}

// Parse turns values into a List. Reserved keys are page, sort, limit and
// fields; every other key is a filter on a schema field, optionally with an
// operator suffix such as price[gte].
func Parse(values url.Values, schema Schema) (List, error) {
	l := List{Page: 1, Limit: DefaultLimit}

	var err error
	if l.Page, err = positiveInt(values, "page", 1); err != nil {
		return List{}, err
	}
	if l.Page > MaxPage {
		return List{}, &Error{Param: "page", Message: "is too large"}
	}
	if l.Limit, err = positiveInt(values, "limit", DefaultLimit); err != nil {
		return List{}, err
	}
	if l.Limit > MaxLimit {
		l.Limit = MaxLimit
	}

	if raw := values.Get("sort"); raw != "" {
		for _, part := range splitList(raw) {
			sf := SortField{Field: part}
			if strings.HasPrefix(part, "-") {
				sf = SortField{Field: part[1:], Desc: true}
			}
			if !filterable(schema, sf.Field) {
				return List{}, &Error{Param: "sort", Message: "unknown field " + sf.Field}
			}
			l.Sort = append(l.Sort, sf)
		}
	}

	if raw := values.Get("fields"); raw != "" {
		for _, f := range splitList(raw) {
			if _, ok := schema[f]; !ok && f != "id" {
				return List{}, &Error{Param: "fields", Message: "unknown field " + f}
			}
			l.Fields = append(l.Fields, f)
		}
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if reserved[key] {
			continue
		}
		field, op, err := splitKey(key)
		if err != nil {
			return List{}, err
		}
		kind, ok := schema[field]
		if !ok || kind == Opaque {
			return List{}, &Error{Param: key, Message: "unknown field"}
		}

		vals := values[key]
		if len(vals) > 1 && op == Eq {
			in := make([]any, 0, len(vals))
			for _, raw := range vals {
				v, err := convert(key, raw, kind)
				if err != nil {
					return List{}, err
				}
				in = append(in, v)
			}
			l.Conditions = append(l.Conditions, Condition{Field: field, Op: In, Value: in})
			continue
		}

		for _, raw := range vals {
			v, err := convert(key, raw, kind)
			if err != nil {
				return List{}, err
			}
			l.Conditions = append(l.Conditions, Condition{Field: field, Op: op, Value: v})
		}
	}

	return l, nil
}

func filterable(schema Schema, field string) bool {
	kind, ok := schema[field]
	return ok && kind != Opaque
}

func splitKey(key string) (string, Op, error) {
	open := strings.IndexByte(key, '[')
	if open < 0 {
		return key, Eq, nil
	}
	if !strings.HasSuffix(key, "]") || open == 0 {
		return "", "", &Error{Param: key, Message: "malformed operator"}
	}

	op := Op(key[open+1 : len(key)-1])
	switch op {
	case Gte, Gt, Lte, Lt:
		return key[:open], op, nil
	}
	return "", "", &Error{Param: key, Message: "unsupported operator " + string(op)}
}

func convert(param, raw string, kind Kind) (any, error) {
	switch kind {
	case Number:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, &Error{Param: param, Message: "must be a number"}
		}
		return f, nil
	case Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, &Error{Param: param, Message: "must be a boolean"}
		}
		return b, nil
	case Time:
		for _, layout := range []string{time.RFC3339, "2006-01-02"} {
			if t, err := time.Parse(layout, raw); err == nil {
				return t.UTC(), nil
			}
		}
		return nil, &Error{Param: param, Message: "must be a date"}
	default:
		return raw, nil
	}
}

func positiveInt(values url.Values, key string, fallback int) (int, error) {
	raw := values.Get(key)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, &Error{Param: key, Message: "must be a positive integer"}
	}
	return n, nil
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Project keeps only fields (plus id) of the JSON form of v. With no fields
// it returns v unchanged.
func Project(v any, fields []string) (any, error) {
	if len(fields) == 0 {
		return v, nil
	}

	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}

	out := make(map[string]any, len(fields)+1)
	if id, ok := m["id"]; ok {
		out["id"] = id
	}
	for _, f := range fields {
		if val, ok := m[f]; ok {
			out[f] = val
		}
	}
	return out, nil
}

// ProjectAll applies Project to every element of items.
func ProjectAll[T any](items []T, fields []string) ([]any, error) {
	out := make([]any, 0, len(items))
	for _, it := range items {
		p, err := Project(it, fields)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}
