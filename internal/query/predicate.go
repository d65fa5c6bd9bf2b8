// Package query builds storage-agnostic predicate trees from search criteria.
//
// A Predicate is a tagged union: a leaf condition (field, operator, value),
// an And/Or node over children, or All, which matches every article. Storage
// backends interpret the tree; Match evaluates it in memory.
package query

import (
	"sort"
	"strconv"
	"strings"
)

// Kind discriminates predicate nodes.
type Kind string

const (
	KindAll  Kind = "all"
	KindCond Kind = "cond"
	KindAnd  Kind = "and"
	KindOr   Kind = "or"
)

// Field names an article attribute, or an attribute of a related row.
type Field string

const (
	FieldTitle         Field = "title"
	FieldBody          Field = "body"
	FieldAuthor        Field = "author"
	FieldTagName       Field = "tag_name"
	FieldTagID         Field = "tag_id"
	FieldCommentText   Field = "comment_text"
	FieldCommentAuthor Field = "comment_author"
)

// Related reports whether f lives on a many-side relation, where a condition
// holds if any related row satisfies it.
func (f Field) Related() bool {
	switch f {
	case FieldTagName, FieldTagID, FieldCommentText, FieldCommentAuthor:
		return true
	}
	return false
}

// Op is a comparison operator.
type Op string

const (
	// OpContains is a case-insensitive substring match.
	OpContains Op = "contains"
	// OpIEquals is a case-insensitive equality.
	OpIEquals Op = "iequals"
	// OpEquals is an exact equality.
	OpEquals Op = "equals"
)

// Predicate is one node of a filter tree.
type Predicate struct {
	Kind     Kind        `json:"kind"`
	Field    Field       `json:"field,omitempty"`
	Op       Op          `json:"op,omitempty"`
	Value    string      `json:"value,omitempty"`
	Children []Predicate `json:"children,omitempty"`
}

// All matches everything.
func All() Predicate { return Predicate{Kind: KindAll} }

// Cond builds a leaf condition.
func Cond(f Field, op Op, value string) Predicate {
	return Predicate{Kind: KindCond, Field: f, Op: op, Value: value}
}

// Or combines children with OR. All children short-circuit to All; no
// children yields All.
func Or(children ...Predicate) Predicate {
	return combine(KindOr, children)
}

// And combines children with AND. All children are dropped.
func And(children ...Predicate) Predicate {
	return combine(KindAnd, children)
}

func combine(kind Kind, children []Predicate) Predicate {
	kept := make([]Predicate, 0, len(children))
	for _, c := range children {
		if c.IsAll() {
			if kind == KindOr {
				return All()
			}
			continue
		}
		kept = append(kept, c)
	}
	switch len(kept) {
	case 0:
		return All()
	case 1:
		return kept[0]
	}
	return Predicate{Kind: kind, Children: kept}
}

// IsAll reports whether p matches every article.
func (p Predicate) IsAll() bool { return p.Kind == KindAll || p.Kind == "" }

// Key renders p canonically. And/Or children are sorted, so predicates that
// differ only in child order share a key.
func (p Predicate) Key() string {
	switch p.Kind {
	case KindCond:
		return string(p.Field) + " " + string(p.Op) + " " + strconv.Quote(p.Value)
	case KindAnd, KindOr:
		parts := make([]string, len(p.Children))
		for i, c := range p.Children {
			parts[i] = c.Key()
		}
		sort.Strings(parts)
		return string(p.Kind) + "(" + strings.Join(parts, ", ") + ")"
	default:
		return string(KindAll)
	}
}

// Equivalent reports whether p and o select the same rows by construction.
func (p Predicate) Equivalent(o Predicate) bool { return p.Key() == o.Key() }

func (p Predicate) String() string { return p.Key() }
