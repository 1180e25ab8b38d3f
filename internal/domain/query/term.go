package query

import (
	"fmt"

	"github.com/twpayne/go-geom"

	querygeo "github.com/kailas-cloud/multidex/internal/domain/query/geo"
)

// Term is the closed set of predicate kinds. Adding a kind forces an update
// at every exhaustive switch over terms (compiler, emitter, renderer).
type Term interface {
	Node
	term()
}

// StringEquals matches records where any listed field equals the value,
// case-insensitively. This is a behavioral contract the backend honors via
// normalized tag indexing, not just a shape check.
type StringEquals struct {
	fields Fields
	value  string
}

func (*StringEquals) term() {}
func (*StringEquals) node() {}

// NewStringEquals creates a case-insensitive exact-match term.
func NewStringEquals(fields Fields, value string) (*StringEquals, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("string_equals requires at least one field")
	}
	return &StringEquals{fields: fields, value: value}, nil
}

// Fields returns the candidate fields.
func (t *StringEquals) Fields() Fields { return t.fields }

// Value returns the comparison value.
func (t *StringEquals) Value() string { return t.value }

// StringContains matches records where any listed field contains the value
// under the backend's analyzed (stemmed) full-text semantics. It is not a
// literal substring match. An empty field set means "across all fields",
// equivalent to the top-level search.
type StringContains struct {
	fields Fields
	value  string
}

func (*StringContains) term() {}
func (*StringContains) node() {}

// NewStringContains creates an analyzed full-text term.
func NewStringContains(fields Fields, value string) (*StringContains, error) {
	if value == "" {
		return nil, fmt.Errorf("string_contains requires a non-empty value")
	}
	return &StringContains{fields: fields, value: value}, nil
}

// Fields returns the candidate fields (empty means all).
func (t *StringContains) Fields() Fields { return t.fields }

// Value returns the search text.
func (t *StringContains) Value() string { return t.value }

// NumberEquals matches records where any listed field equals the numeric value.
type NumberEquals struct {
	fields Fields
	value  float64
}

func (*NumberEquals) term() {}
func (*NumberEquals) node() {}

// NewNumberEquals creates a numeric equality term.
func NewNumberEquals(fields Fields, value float64) (*NumberEquals, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("number_equals requires at least one field")
	}
	return &NumberEquals{fields: fields, value: value}, nil
}

// Fields returns the candidate fields.
func (t *NumberEquals) Fields() Fields { return t.fields }

// Value returns the comparison value.
func (t *NumberEquals) Value() float64 { return t.value }

// Bound is one side of a numeric range, inclusive by default.
type Bound struct {
	value     float64
	inclusive bool
}

// NewBound creates a range bound.
func NewBound(value float64, inclusive bool) Bound {
	return Bound{value: value, inclusive: inclusive}
}

// Value returns the bound value.
func (b Bound) Value() float64 { return b.value }

// Inclusive reports whether the bound itself matches.
func (b Bound) Inclusive() bool { return b.inclusive }

// NumberRange matches records where any listed field falls within the bounds.
// When both bounds are present they apply as an AND.
type NumberRange struct {
	fields      Fields
	greaterThan *Bound
	lessThan    *Bound
}

func (*NumberRange) term() {}
func (*NumberRange) node() {}

// NewNumberRange creates a range term. At least one bound is required.
func NewNumberRange(fields Fields, greaterThan, lessThan *Bound) (*NumberRange, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("number_range requires at least one field")
	}
	if greaterThan == nil && lessThan == nil {
		return nil, fmt.Errorf("number_range requires at least one of greater_than/less_than")
	}
	return &NumberRange{fields: fields, greaterThan: greaterThan, lessThan: lessThan}, nil
}

// Fields returns the candidate fields.
func (t *NumberRange) Fields() Fields { return t.fields }

// GreaterThan returns the lower bound (nil if absent).
func (t *NumberRange) GreaterThan() *Bound { return t.greaterThan }

// LessThan returns the upper bound (nil if absent).
func (t *NumberRange) LessThan() *Bound { return t.lessThan }

// GeoPoint matches records within a radius of a coordinate. A nil radius
// means point-exact match.
type GeoPoint struct {
	point  querygeo.Point
	radius *querygeo.Distance
}

func (*GeoPoint) term() {}
func (*GeoPoint) node() {}

// NewGeoPoint creates a geo proximity term.
func NewGeoPoint(point querygeo.Point, radius *querygeo.Distance) *GeoPoint {
	return &GeoPoint{point: point, radius: radius}
}

// Point returns the center coordinate.
func (t *GeoPoint) Point() querygeo.Point { return t.point }

// Radius returns the search radius (nil for point-exact).
func (t *GeoPoint) Radius() *querygeo.Distance { return t.radius }

// GeoNamedArea matches records within a named boundary from one of the
// reference datasets. The name is resolved at execution time; an unresolvable
// name is a runtime UnknownArea error, never a compile-time one.
type GeoNamedArea struct {
	kind querygeo.AreaKind
	name string
}

func (*GeoNamedArea) term() {}
func (*GeoNamedArea) node() {}

// NewGeoNamedArea creates a named-area term.
func NewGeoNamedArea(kind querygeo.AreaKind, name string) (*GeoNamedArea, error) {
	if !kind.IsValid() {
		return nil, fmt.Errorf("unknown area kind %q", kind)
	}
	if name == "" {
		return nil, fmt.Errorf("area name must not be empty")
	}
	return &GeoNamedArea{kind: kind, name: name}, nil
}

// Kind returns the reference dataset.
func (t *GeoNamedArea) Kind() querygeo.AreaKind { return t.kind }

// Name returns the area name key.
func (t *GeoNamedArea) Name() string { return t.name }

// GeoCustomArea matches records within a caller-supplied MultiPolygon.
type GeoCustomArea struct {
	area *geom.MultiPolygon
}

func (*GeoCustomArea) term() {}
func (*GeoCustomArea) node() {}

// NewGeoCustomArea creates a custom-area term.
func NewGeoCustomArea(area *geom.MultiPolygon) (*GeoCustomArea, error) {
	if area == nil || area.NumPolygons() == 0 {
		return nil, fmt.Errorf("custom area requires at least one polygon")
	}
	return &GeoCustomArea{area: area}, nil
}

// Area returns the boundary geometry.
func (t *GeoCustomArea) Area() *geom.MultiPolygon { return t.area }

// Exists matches records carrying a non-null value in any listed field, or,
// in geo-field form, records carrying any geographic position data at all.
type Exists struct {
	fields   Fields
	geoField bool
}

func (*Exists) term() {}
func (*Exists) node() {}

// NewExistsFields creates a field-existence term.
func NewExistsFields(fields Fields) (*Exists, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("exists requires at least one field")
	}
	return &Exists{fields: fields}, nil
}

// NewExistsGeo creates a geo-data-existence term.
func NewExistsGeo() *Exists {
	return &Exists{geoField: true}
}

// Fields returns the candidate fields (empty for the geo-field form).
func (t *Exists) Fields() Fields { return t.fields }

// GeoField reports whether this is the geo-data-existence form.
func (t *Exists) GeoField() bool { return t.geoField }
