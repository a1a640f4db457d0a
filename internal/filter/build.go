package filter

import (
	"strings"

	"github.com/xtxerr/seisfetch/config"
	"github.com/xtxerr/seisfetch/internal/query"
)

// Wildcard marks "any value" or, when trailing, a prefix match.
const Wildcard = "*"

// attrOf maps query parameters onto station index attributes.
var attrOf = map[query.Param]string{
	query.Network:      config.AttrNetwork,
	query.Station:      config.AttrStation,
	query.Location:     config.AttrLocation,
	query.Channel:      config.AttrChannel,
	query.MinLatitude:  config.AttrLatitude,
	query.MaxLatitude:  config.AttrLatitude,
	query.MinLongitude: config.AttrLongitude,
	query.MaxLongitude: config.AttrLongitude,
	query.StartTime:    config.AttrStartTime,
	query.EndTime:      config.AttrEndTime,
}

// AttributeFor returns the index attribute backing p.
func AttributeFor(p query.Param) string {
	return attrOf[p]
}

// Build composes the station filter for n.
//
// Non-time clauses are ANDed in canonical parameter order and the
// time-overlap disjunction is ANDed last. Unconstrained parameters
// ("" or "*") contribute nothing. Build returns nil when n places no
// constraint at all.
func Build(n query.Normalized) Expr {
	var clauses []Expr

	n.Each(func(p query.Param, v query.Value) {
		if p.IsTime() {
			return
		}
		if c := clause(p, v); c != nil {
			clauses = append(clauses, c)
		}
	})

	if n.HasTime() {
		clauses = append(clauses, TimeOverlap(n.Window()))
	}

	return AllOf(clauses...)
}

func clause(p query.Param, v query.Value) Expr {
	attr := attrOf[p]

	if v.Kind == query.KindString && (v.Str == "" || v.Str == Wildcard) {
		return nil
	}

	switch {
	case p.IsMin():
		return Gte{Attr: attr, Value: v}
	case p.IsMax():
		return Lte{Attr: attr, Value: v}
	case v.Kind == query.KindString && strings.Contains(v.Str, Wildcard):
		return Prefix{Attr: attr, Prefix: v.Str[:strings.Index(v.Str, Wildcard)]}
	default:
		return Eq{Attr: attr, Value: v}
	}
}

// TimeOverlap matches station epochs overlapping the window w:
//
//	(a) STARTTIME within [start, end]
//	(b) STARTTIME <= start AND ENDTIME >= end (epoch spans the window)
//	(c) ENDTIME within [start, end]
func TimeOverlap(w query.Window) Expr {
	start := query.String(w.Start)
	end := query.String(w.End)

	return Or{Terms: []Expr{
		Between{Attr: config.AttrStartTime, Lo: start, Hi: end},
		And{Terms: []Expr{
			Lte{Attr: config.AttrStartTime, Value: start},
			Gte{Attr: config.AttrEndTime, Value: end},
		}},
		Between{Attr: config.AttrEndTime, Lo: start, Hi: end},
	}}
}
