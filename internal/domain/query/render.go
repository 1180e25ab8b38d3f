package query

import (
	"encoding/json"
	"fmt"
)

// Canonical returns the query document in its wire form. Compiling the result
// again yields a semantically identical query: defaults are materialized
// (inclusive flags) but matching behavior is unchanged. encoding/json sorts
// map keys, so Marshal of the canonical form is stable and hashable.
func (q Query) Canonical() map[string]any {
	doc := make(map[string]any, 2)
	if q.search != "" {
		doc["search"] = q.search
	}
	if q.filters != nil {
		doc["filters"] = q.filters.canonical()
	}
	return doc
}

// MarshalJSON renders the canonical wire form.
func (q Query) MarshalJSON() ([]byte, error) {
	b, err := json.Marshal(q.Canonical())
	if err != nil {
		return nil, fmt.Errorf("marshal query: %w", err)
	}
	return b, nil
}

func (g *Group) canonical() map[string]any {
	members := make([]any, len(g.members))
	for i, m := range g.members {
		switch n := m.(type) {
		case *Group:
			members[i] = n.canonical()
		case Term:
			members[i] = canonicalTerm(n)
		}
	}
	return map[string]any{string(g.kind): members}
}

func canonicalTerm(t Term) map[string]any {
	switch v := t.(type) {
	case *StringEquals:
		return map[string]any{"string_equals": map[string]any{
			"fields": []string(v.fields),
			"value":  v.value,
		}}
	case *StringContains:
		body := map[string]any{"value": v.value}
		if len(v.fields) > 0 {
			body["fields"] = []string(v.fields)
		}
		return map[string]any{"string_contains": body}
	case *NumberEquals:
		return map[string]any{"number_equals": map[string]any{
			"fields": []string(v.fields),
			"value":  v.value,
		}}
	case *NumberRange:
		body := map[string]any{"fields": []string(v.fields)}
		if b := v.greaterThan; b != nil {
			body["greater_than"] = b.value
			body["greater_than_inclusive"] = b.inclusive
		}
		if b := v.lessThan; b != nil {
			body["less_than"] = b.value
			body["less_than_inclusive"] = b.inclusive
		}
		return map[string]any{"number_range": body}
	case *GeoPoint:
		body := map[string]any{
			"latitude":  v.point.Lat(),
			"longitude": v.point.Lon(),
		}
		if r := v.radius; r != nil {
			body["radius"] = r.Value()
			body["radius_unit"] = string(r.Unit())
		}
		return map[string]any{"geo_point": body}
	case *GeoNamedArea:
		return map[string]any{"geo_named_area": map[string]any{
			string(v.kind): v.name,
		}}
	case *GeoCustomArea:
		return map[string]any{"geo_custom_area": multiPolygonCoords(v)}
	case *Exists:
		if v.geoField {
			return map[string]any{"exists": map[string]any{"geo_field": true}}
		}
		return map[string]any{"exists": map[string]any{
			"fields": []string(v.fields),
		}}
	}
	return nil
}

func multiPolygonCoords(t *GeoCustomArea) []any {
	polygons := make([]any, t.area.NumPolygons())
	for i := 0; i < t.area.NumPolygons(); i++ {
		polygon := t.area.Polygon(i)
		rings := make([]any, polygon.NumLinearRings())
		for j := 0; j < polygon.NumLinearRings(); j++ {
			ring := polygon.LinearRing(j)
			coords := make([]any, ring.NumCoords())
			for k := 0; k < ring.NumCoords(); k++ {
				c := ring.Coord(k)
				coords[k] = []any{c.X(), c.Y()}
			}
			rings[j] = coords
		}
		polygons[i] = rings
	}
	return polygons
}
