package filter

import (
	"fmt"
	"strings"

	"github.com/xtxerr/seisfetch/internal/query"
)

// Record exposes the attributes of one index item.
type Record interface {
	Attr(name string) (query.Value, bool)
}

// AttributeMap is a map-backed Record.
type AttributeMap map[string]query.Value

// Attr implements Record.
func (m AttributeMap) Attr(name string) (query.Value, bool) {
	v, ok := m[name]
	return v, ok
}

// Eval interprets e against r. A nil expression matches everything.
// Comparisons against a missing attribute or a value of another kind
// never match, mirroring DynamoDB condition semantics.
func Eval(e Expr, r Record) bool {
	switch n := e.(type) {
	case nil:
		return true
	case Eq:
		v, ok := r.Attr(n.Attr)
		return ok && v.Equal(n.Value)
	case Prefix:
		v, ok := r.Attr(n.Attr)
		return ok && v.Kind == query.KindString && strings.HasPrefix(v.Str, n.Prefix)
	case Gte:
		return compare(r, n.Attr, n.Value, func(c int) bool { return c >= 0 })
	case Lte:
		return compare(r, n.Attr, n.Value, func(c int) bool { return c <= 0 })
	case Between:
		return compare(r, n.Attr, n.Lo, func(c int) bool { return c >= 0 }) &&
			compare(r, n.Attr, n.Hi, func(c int) bool { return c <= 0 })
	case And:
		for _, t := range n.Terms {
			if !Eval(t, r) {
				return false
			}
		}
		return true
	case Or:
		for _, t := range n.Terms {
			if Eval(t, r) {
				return true
			}
		}
		return false
	default:
		panic(fmt.Sprintf("filter: unknown expression %T", e))
	}
}

func compare(r Record, attr string, want query.Value, pred func(int) bool) bool {
	v, ok := r.Attr(attr)
	if !ok {
		return false
	}
	c, ok := v.Compare(want)
	return ok && pred(c)
}

// String renders e for logs. The output is informational only.
func String(e Expr) string {
	var b strings.Builder
	write(&b, e)
	return b.String()
}

func write(b *strings.Builder, e Expr) {
	switch n := e.(type) {
	case nil:
		b.WriteString("TRUE")
	case Eq:
		fmt.Fprintf(b, "%s = %s", n.Attr, literal(n.Value))
	case Prefix:
		fmt.Fprintf(b, "begins_with(%s, %q)", n.Attr, n.Prefix)
	case Gte:
		fmt.Fprintf(b, "%s >= %s", n.Attr, literal(n.Value))
	case Lte:
		fmt.Fprintf(b, "%s <= %s", n.Attr, literal(n.Value))
	case Between:
		fmt.Fprintf(b, "%s BETWEEN %s AND %s", n.Attr, literal(n.Lo), literal(n.Hi))
	case And:
		join(b, n.Terms, " AND ")
	case Or:
		join(b, n.Terms, " OR ")
	}
}

func join(b *strings.Builder, terms []Expr, sep string) {
	b.WriteByte('(')
	for i, t := range terms {
		if i > 0 {
			b.WriteString(sep)
		}
		write(b, t)
	}
	b.WriteByte(')')
}

func literal(v query.Value) string {
	if v.IsNumber() {
		return v.Num.String()
	}
	return fmt.Sprintf("%q", v.Str)
}
