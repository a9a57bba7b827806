// Package query provides a small, store-agnostic predicate builder for
// chunk search. A predicate is a conjunction of disjunction groups
// (AND-of-ORs); each group matches when any of its conditions matches.
// The same predicate renders to parameterized SQL for relational stores
// and evaluates in-process for the in-memory store.
package query

import (
	"strings"
)

// Op is a comparison operator.
type Op string

// Supported operators.
const (
	// OpContains matches a case-insensitive substring.
	OpContains Op = "contains"
	// OpEq matches exact equality.
	OpEq Op = "eq"
)

// Cond is a single typed condition against a named field.
type Cond struct {
	Field string
	Op    Op
	Value string
}

// Contains builds a case-insensitive substring condition.
func Contains(field, value string) Cond {
	return Cond{Field: field, Op: OpContains, Value: value}
}

// Eq builds an equality condition.
func Eq(field, value string) Cond {
	return Cond{Field: field, Op: OpEq, Value: value}
}

// Group is a disjunction: it matches when any condition matches.
type Group struct {
	Any []Cond
}

// Predicate is a conjunction of groups. The zero value matches every row,
// which is the fail-open behavior for queries with no usable terms.
type Predicate struct {
	All []Group
}

// And appends a disjunction group built from the given conditions.
// Groups with no conditions are dropped.
func (p *Predicate) And(conds ...Cond) {
	if len(conds) == 0 {
		return
	}
	p.All = append(p.All, Group{Any: conds})
}

// Empty reports whether the predicate matches unconditionally.
func (p *Predicate) Empty() bool {
	return len(p.All) == 0
}

// SQL renders the predicate to a parameterized WHERE fragment using `?`
// placeholders. columnOf maps logical field names to store columns; when
// nil, field names are used as-is. An empty predicate renders to "", nil.
func (p *Predicate) SQL(columnOf func(field string) string) (string, []any) {
	if p.Empty() {
		return "", nil
	}
	if columnOf == nil {
		columnOf = func(field string) string { return field }
	}

	var (
		groups []string
		args   []any
	)
	for _, g := range p.All {
		var conds []string
		for _, c := range g.Any {
			col := columnOf(c.Field)
			switch c.Op {
			case OpContains:
				conds = append(conds, "LOWER("+col+") LIKE ?")
				args = append(args, "%"+strings.ToLower(c.Value)+"%")
			case OpEq:
				conds = append(conds, col+" = ?")
				args = append(args, c.Value)
			}
		}
		if len(conds) == 0 {
			continue
		}
		if len(conds) == 1 {
			groups = append(groups, conds[0])
		} else {
			groups = append(groups, "("+strings.Join(conds, " OR ")+")")
		}
	}
	if len(groups) == 0 {
		return "", nil
	}
	return strings.Join(groups, " AND "), args
}

// Match evaluates the predicate against a row exposed through lookup,
// which returns the value of a logical field. Used by the in-memory store
// and by tests to verify the AND-of-ORs structure directly.
func (p *Predicate) Match(lookup func(field string) string) bool {
	for _, g := range p.All {
		matched := false
		for _, c := range g.Any {
			value := lookup(c.Field)
			switch c.Op {
			case OpContains:
				if strings.Contains(strings.ToLower(value), strings.ToLower(c.Value)) {
					matched = true
				}
			case OpEq:
				if value == c.Value {
					matched = true
				}
			}
			if matched {
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}
