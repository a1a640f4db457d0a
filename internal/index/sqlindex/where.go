package sqlindex

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/xtxerr/seisfetch/internal/errors"
	"github.com/xtxerr/seisfetch/internal/filter"
	"github.com/xtxerr/seisfetch/internal/query"
	"github.com/xtxerr/seisfetch/internal/validation"
)

// Where translates a filter expression into a squirrel predicate over the
// stations table. Attributes must be known columns; values are always
// bound as arguments.
func Where(e filter.Expr) (sq.Sqlizer, error) {
	switch n := e.(type) {
	case filter.Eq:
		return compare(n.Attr, "=", n.Value)
	case filter.Prefix:
		col, err := stationColumn(n.Attr)
		if err != nil {
			return nil, err
		}
		return sq.Expr(col+` LIKE ? ESCAPE '\'`, validation.SafeLikePrefix(n.Prefix)), nil
	case filter.Gte:
		return compare(n.Attr, ">=", n.Value)
	case filter.Lte:
		return compare(n.Attr, "<=", n.Value)
	case filter.Between:
		col, err := stationColumn(n.Attr)
		if err != nil {
			return nil, err
		}
		lo, loArg := param(n.Lo)
		hi, hiArg := param(n.Hi)
		return sq.Expr(col+" BETWEEN "+lo+" AND "+hi, loArg, hiArg), nil
	case filter.And:
		terms, err := whereAll(n.Terms)
		if err != nil {
			return nil, err
		}
		return sq.And(terms), nil
	case filter.Or:
		terms, err := whereAll(n.Terms)
		if err != nil {
			return nil, err
		}
		return sq.Or(terms), nil
	default:
		return nil, fmt.Errorf("expression %T: %w", e, errors.ErrInvalidFilter)
	}
}

func whereAll(exprs []filter.Expr) ([]sq.Sqlizer, error) {
	if len(exprs) == 0 {
		return nil, fmt.Errorf("empty conjunction or disjunction: %w", errors.ErrInvalidFilter)
	}
	out := make([]sq.Sqlizer, 0, len(exprs))
	for _, e := range exprs {
		w, err := Where(e)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, nil
}

func compare(attr, op string, v query.Value) (sq.Sqlizer, error) {
	col, err := stationColumn(attr)
	if err != nil {
		return nil, err
	}
	ph, a := param(v)
	return sq.Expr(col+" "+op+" "+ph, a), nil
}

func stationColumn(attr string) (string, error) {
	if _, ok := stationKinds[attr]; !ok {
		return "", fmt.Errorf("unknown attribute %q: %w", attr, errors.ErrInvalidFilter)
	}
	return quote(attr), nil
}

// boundType is wide enough to hold any query bound without rounding it
// to the precision of the coordinate columns.
const boundType = "DECIMAL(18,9)"

// param returns the placeholder and argument for a comparison operand.
// Numbers are bound as decimal text and cast in SQL.
func param(v query.Value) (string, any) {
	if v.IsNumber() {
		return "CAST(? AS " + boundType + ")", v.Num.String()
	}
	return "?", v.Str
}

func quote(ident string) string {
	return `"` + ident + `"`
}
