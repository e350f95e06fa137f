package repository

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Op is a filter comparison.
type Op string

const (
	OpEq  Op = "=="
	OpGte Op = ">="
	OpLte Op = "<="
)

type Filter struct {
	Field string
	Op    Op
	Value any
}

type OrderBy struct {
	Field string
	Desc  bool
}

// Query selects and orders documents of one collection. The zero Query
// returns everything in store order.
type Query struct {
	Filters []Filter
	OrderBy []OrderBy
}

// Where returns a copy of q with an extra filter.
func (q Query) Where(field string, op Op, value any) Query {
	out := Query{
		Filters: append(append([]Filter(nil), q.Filters...), Filter{Field: field, Op: op, Value: value}),
		OrderBy: q.OrderBy,
	}
	return out
}

// Ordered returns a copy of q with an extra sort key.
func (q Query) Ordered(field string, desc bool) Query {
	return Query{
		Filters: q.Filters,
		OrderBy: append(append([]OrderBy(nil), q.OrderBy...), OrderBy{Field: field, Desc: desc}),
	}
}

// String is a canonical representation, stable for equal queries.
func (q Query) String() string {
	var sb strings.Builder
	for i, f := range q.Filters {
		if i > 0 {
			sb.WriteString("&")
		}
		fmt.Fprintf(&sb, "%s%s%v", f.Field, f.Op, f.Value)
	}
	for _, o := range q.OrderBy {
		dir := "asc"
		if o.Desc {
			dir = "desc"
		}
		fmt.Fprintf(&sb, "|%s:%s", o.Field, dir)
	}
	return sb.String()
}

// Matches evaluates the filters against stored fields.
func (q Query) Matches(f Fields) bool {
	for _, flt := range q.Filters {
		c, ok := Compare(f[flt.Field], flt.Value)
		if !ok {
			return false
		}
		switch flt.Op {
		case OpEq:
			if c != 0 {
				return false
			}
		case OpGte:
			if c < 0 {
				return false
			}
		case OpLte:
			if c > 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// Sort orders docs by q's sort keys, falling back to document id.
func (q Query) Sort(docs []Document) {
	sort.SliceStable(docs, func(i, j int) bool {
		for _, o := range q.OrderBy {
			c, _ := Compare(docs[i].Fields[o.Field], docs[j].Fields[o.Field])
			if c == 0 {
				continue
			}
			if o.Desc {
				return c > 0
			}
			return c < 0
		}
		return docs[i].ID < docs[j].ID
	})
}

// Compare orders two stored values. nil sorts before everything. The second
// result is false when the values are of unrelated kinds.
func Compare(a, b any) (int, bool) {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0, true
		case a == nil:
			return -1, true
		default:
			return 1, true
		}
	}
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		if !ok {
			return 0, false
		}
		return cmpOrdered(fa, fb), true
	}
	if ta, ok := toTime(a); ok {
		tb, ok := toTime(b)
		if !ok {
			return 0, false
		}
		return cmpOrdered(ta.UnixMilli(), tb.UnixMilli()), true
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(av, bv), true
	case bool:
		bv, ok := b.(bool)
		if !ok {
			return 0, false
		}
		switch {
		case av == bv:
			return 0, true
		case !av:
			return -1, true
		default:
			return 1, true
		}
	}
	return 0, false
}

func cmpOrdered[T int64 | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func toTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case primitive.DateTime:
		return t.Time(), true
	}
	return time.Time{}, false
}
