// Package emitter lowers compiled query ASTs into the RediSearch query
// dialect. Emission is pure string building: no backend round trips, no
// knowledge of which resource the query will run against. Geometry literals
// travel as bound parameters, never inline in the query string.
package emitter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/twpayne/go-geom/encoding/wkt"

	"github.com/kailas-cloud/multidex/internal/domain/query"
)

// Reserved index attributes every record index carries alongside the
// per-field attributes.
const (
	AttrData     = "__data"      // JSON payload of the record
	AttrRecordID = "__record_id" // record id within its resource
	AttrText     = "__text"      // catch-all TEXT over every string field
	AttrGeo      = "__geo"       // GEO position, set when the record has one
	AttrShape    = "__shape"     // GEOSHAPE footprint for polygon containment
	AttrVerFrom  = "__ver_from"  // NUMERIC, version the record became visible
	AttrVerTo    = "__ver_to"    // NUMERIC, version the record was superseded
	AttrSeq      = "__seq"       // NUMERIC SORTABLE, modified-timestamp sort key
)

// Per-field attribute suffixes. A record field f is indexed three ways: as a
// TAG named f, a NUMERIC named f__num and a TEXT named f__txt.
const (
	SuffixNumeric = "__num"
	SuffixText    = "__txt"
)

// pointRadiusMeters is the radius used for a geo_point term without an
// explicit radius: close enough to exact-coordinate match while tolerating
// float round-tripping.
const pointRadiusMeters = 0.01

// Emitted is a backend-ready query: the FT.SEARCH query string plus bound
// parameters referenced from it.
type Emitted struct {
	Query  string
	Params map[string]string
}

// Emit lowers a compiled query for one resource index. version is the
// snapshot timestamp in epoch milliseconds; resume, when non-nil, is the
// inclusive upper bound on the sort sequence used to continue a previous
// page. The bound is inclusive because sequence values can collide: records
// at the bound are re-read and the caller drops the already-returned ones by
// record id. Named-area terms must be resolved to custom areas before
// emission.
func Emit(q query.Query, version int64, resume *float64) (Emitted, error) {
	e := &emitter{params: make(map[string]string)}

	var parts []string
	if q.Filters() != nil {
		clause, err := e.group(q.Filters())
		if err != nil {
			return Emitted{}, err
		}
		parts = append(parts, clause)
	}
	if q.Search() != "" {
		parts = append(parts, "@"+AttrText+":("+textEscaper.Replace(q.Search())+")")
	}

	ts := strconv.FormatInt(version, 10)
	parts = append(parts,
		"@"+AttrVerFrom+":[-inf "+ts+"]",
		"@"+AttrVerTo+":[("+ts+" +inf]",
	)
	if resume != nil {
		parts = append(parts, "@"+AttrSeq+":[-inf "+num(*resume)+"]")
	}

	return Emitted{Query: strings.Join(parts, " "), Params: e.params}, nil
}

// emitter carries the bound-parameter state for one emission.
type emitter struct {
	params map[string]string
	areas  int
}

func (e *emitter) group(g *query.Group) (string, error) {
	clauses := make([]string, 0, len(g.Members()))
	for _, member := range g.Members() {
		var clause string
		var err error
		switch n := member.(type) {
		case *query.Group:
			clause, err = e.group(n)
			clause = "(" + clause + ")"
		case query.Term:
			clause, err = e.term(n)
		default:
			err = fmt.Errorf("unsupported node type %T", member)
		}
		if err != nil {
			return "", err
		}
		clauses = append(clauses, clause)
	}

	switch g.Kind() {
	case query.And:
		return strings.Join(clauses, " "), nil
	case query.Or:
		return strings.Join(clauses, " | "), nil
	case query.Not:
		// not is NOR: records matching none of the members.
		return "-(" + strings.Join(clauses, " | ") + ")", nil
	default:
		return "", fmt.Errorf("unsupported group kind %q", g.Kind())
	}
}

func (e *emitter) term(t query.Term) (string, error) {
	switch term := t.(type) {
	case *query.StringEquals:
		return anyField(term.Fields(), func(f string) string {
			return "@" + attr(f) + ":{" + tagEscaper.Replace(term.Value()) + "}"
		}), nil

	case *query.StringContains:
		value := "(" + textEscaper.Replace(term.Value()) + ")"
		if len(term.Fields()) == 0 {
			return "@" + AttrText + ":" + value, nil
		}
		attrs := make([]string, len(term.Fields()))
		for i, f := range term.Fields() {
			attrs[i] = attr(f) + SuffixText
		}
		return "@" + strings.Join(attrs, "|") + ":" + value, nil

	case *query.NumberEquals:
		v := num(term.Value())
		return anyField(term.Fields(), func(f string) string {
			return "@" + attr(f) + SuffixNumeric + ":[" + v + " " + v + "]"
		}), nil

	case *query.NumberRange:
		lo, hi := "-inf", "+inf"
		if b := term.GreaterThan(); b != nil {
			lo = bound(b, "(")
		}
		if b := term.LessThan(); b != nil {
			hi = bound(b, "(")
		}
		return anyField(term.Fields(), func(f string) string {
			return "@" + attr(f) + SuffixNumeric + ":[" + lo + " " + hi + "]"
		}), nil

	case *query.GeoPoint:
		radius := pointRadiusMeters
		if d := term.Radius(); d != nil {
			radius = d.Meters()
		}
		p := term.Point()
		return "@" + AttrGeo + ":[" +
			num(p.Lon()) + " " + num(p.Lat()) + " " + num(radius) + " m]", nil

	case *query.GeoCustomArea:
		shape, err := wkt.Marshal(term.Area())
		if err != nil {
			return "", fmt.Errorf("encode custom area: %w", err)
		}
		name := "area" + strconv.Itoa(e.areas)
		e.areas++
		e.params[name] = shape
		return "@" + AttrShape + ":[WITHIN $" + name + "]", nil

	case *query.GeoNamedArea:
		// Named areas are rewritten to custom areas before emission.
		return "", fmt.Errorf("unresolved named area %s:%q", term.Kind(), term.Name())

	case *query.Exists:
		if term.GeoField() {
			return "-ismissing(@" + AttrGeo + ")", nil
		}
		return anyField(term.Fields(), func(f string) string {
			return "-ismissing(@" + attr(f) + ")"
		}), nil

	default:
		return "", fmt.Errorf("unsupported term type %T", t)
	}
}

// anyField renders one clause per field and OR-joins them: multiple fields on
// a term mean "match if any field satisfies".
func anyField(fields []string, render func(string) string) string {
	if len(fields) == 1 {
		return render(fields[0])
	}
	clauses := make([]string, len(fields))
	for i, f := range fields {
		clauses[i] = render(f)
	}
	return "(" + strings.Join(clauses, " | ") + ")"
}

// bound renders a range endpoint, prefixing exclusive bounds.
func bound(b *query.Bound, exclusivePrefix string) string {
	if b.Inclusive() {
		return num(b.Value())
	}
	return exclusivePrefix + num(b.Value())
}

// num renders a float without exponent notation; FT.SEARCH numeric ranges and
// geo clauses do not accept scientific notation in all server versions.
func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func attr(field string) string {
	return fieldEscaper.Replace(field)
}
