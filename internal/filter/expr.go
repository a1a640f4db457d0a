// Package filter builds and interprets typed boolean filter expressions
// over index attributes.
//
// Expressions form a closed sum type:
//
//	Eq      attr == value
//	Prefix  attr begins with prefix
//	Gte     attr >= value
//	Lte     attr <= value
//	Between lo <= attr <= hi
//	And     all terms hold
//	Or      any term holds
//
// Backends translate the tree into their own condition language
// (DynamoDB expression builders, SQL via squirrel) or evaluate it
// directly with Eval. Nothing is ever rendered to source text and
// re-parsed.
package filter

import (
	"github.com/xtxerr/seisfetch/internal/query"
)

// Expr is a node of a filter expression tree.
type Expr interface {
	isExpr()
}

// Eq matches records whose attribute equals Value.
type Eq struct {
	Attr  string
	Value query.Value
}

// Prefix matches string attributes beginning with Prefix.
type Prefix struct {
	Attr   string
	Prefix string
}

// Gte matches records whose attribute is >= Value.
type Gte struct {
	Attr  string
	Value query.Value
}

// Lte matches records whose attribute is <= Value.
type Lte struct {
	Attr  string
	Value query.Value
}

// Between matches records whose attribute lies in [Lo, Hi].
type Between struct {
	Attr string
	Lo   query.Value
	Hi   query.Value
}

// And matches when every term matches. An empty And matches everything.
type And struct {
	Terms []Expr
}

// Or matches when any term matches. An empty Or matches nothing.
type Or struct {
	Terms []Expr
}

func (Eq) isExpr()      {}
func (Prefix) isExpr()  {}
func (Gte) isExpr()     {}
func (Lte) isExpr()     {}
func (Between) isExpr() {}
func (And) isExpr()     {}
func (Or) isExpr()      {}

// AllOf combines terms with AND, collapsing trivial cases.
// It returns nil when no terms are given.
func AllOf(terms ...Expr) Expr {
	flat := make([]Expr, 0, len(terms))
	for _, t := range terms {
		if t != nil {
			flat = append(flat, t)
		}
	}
	switch len(flat) {
	case 0:
		return nil
	case 1:
		return flat[0]
	default:
		return And{Terms: flat}
	}
}

// AnyOf combines terms with OR, collapsing the single-term case.
func AnyOf(terms ...Expr) Expr {
	flat := make([]Expr, 0, len(terms))
	for _, t := range terms {
		if t != nil {
			flat = append(flat, t)
		}
	}
	switch len(flat) {
	case 0:
		return nil
	case 1:
		return flat[0]
	default:
		return Or{Terms: flat}
	}
}

// Attributes returns the distinct attribute names referenced by e,
// in first-seen order.
func Attributes(e Expr) []string {
	var names []string
	seen := make(map[string]bool)
	add := func(a string) {
		if !seen[a] {
			seen[a] = true
			names = append(names, a)
		}
	}

	var walk func(Expr)
	walk = func(e Expr) {
		switch n := e.(type) {
		case Eq:
			add(n.Attr)
		case Prefix:
			add(n.Attr)
		case Gte:
			add(n.Attr)
		case Lte:
			add(n.Attr)
		case Between:
			add(n.Attr)
		case And:
			for _, t := range n.Terms {
				walk(t)
			}
		case Or:
			for _, t := range n.Terms {
				walk(t)
			}
		}
	}
	walk(e)

	return names
}
