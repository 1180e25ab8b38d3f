package compiler

import (
	"strconv"

	"github.com/kailas-cloud/multidex/internal/domain"
	"github.com/kailas-cloud/multidex/internal/domain/query"
	querygeo "github.com/kailas-cloud/multidex/internal/domain/query/geo"
)

// compileTerm dispatches on the single term key to the per-kind compiler.
func compileTerm(obj map[string]any, path string) (query.Term, error) {
	kind, err := singleKey(obj, termKeys, path, "term")
	if err != nil {
		return nil, err
	}
	payload := obj[kind]
	termPath := path + "/" + kind

	switch kind {
	case "string_equals":
		return compileStringEquals(payload, termPath)
	case "string_contains":
		return compileStringContains(payload, termPath)
	case "number_equals":
		return compileNumberEquals(payload, termPath)
	case "number_range":
		return compileNumberRange(payload, termPath)
	case "geo_point":
		return compileGeoPoint(payload, termPath)
	case "geo_named_area":
		return compileGeoNamedArea(payload, termPath)
	case "geo_custom_area":
		return compileGeoCustomArea(payload, termPath)
	default:
		return compileExists(payload, termPath)
	}
}

func compileStringEquals(payload any, path string) (query.Term, error) {
	obj, err := asObject(payload, path, "fields", "value")
	if err != nil {
		return nil, err
	}
	fields, err := requireFields(obj, path, false)
	if err != nil {
		return nil, err
	}
	value, err := requireString(obj, "value", path)
	if err != nil {
		return nil, err
	}
	t, err := query.NewStringEquals(fields, value)
	if err != nil {
		return nil, domain.NewSchemaViolation(path, "%s", err.Error())
	}
	return t, nil
}

func compileStringContains(payload any, path string) (query.Term, error) {
	obj, err := asObject(payload, path, "fields", "value")
	if err != nil {
		return nil, err
	}
	// An empty (or absent) field set means "match across all fields".
	fields, err := optionalFields(obj, path)
	if err != nil {
		return nil, err
	}
	value, err := requireString(obj, "value", path)
	if err != nil {
		return nil, err
	}
	t, err := query.NewStringContains(fields, value)
	if err != nil {
		return nil, domain.NewSchemaViolation(path, "%s", err.Error())
	}
	return t, nil
}

func compileNumberEquals(payload any, path string) (query.Term, error) {
	obj, err := asObject(payload, path, "fields", "value")
	if err != nil {
		return nil, err
	}
	fields, err := requireFields(obj, path, false)
	if err != nil {
		return nil, err
	}
	value, err := requireNumber(obj, "value", path)
	if err != nil {
		return nil, err
	}
	t, err := query.NewNumberEquals(fields, value)
	if err != nil {
		return nil, domain.NewSchemaViolation(path, "%s", err.Error())
	}
	return t, nil
}

func compileNumberRange(payload any, path string) (query.Term, error) {
	obj, err := asObject(payload, path,
		"fields", "greater_than", "greater_than_inclusive", "less_than", "less_than_inclusive")
	if err != nil {
		return nil, err
	}
	fields, err := requireFields(obj, path, false)
	if err != nil {
		return nil, err
	}

	greaterThan, err := optionalBound(obj, "greater_than", path)
	if err != nil {
		return nil, err
	}
	lessThan, err := optionalBound(obj, "less_than", path)
	if err != nil {
		return nil, err
	}
	if greaterThan == nil && lessThan == nil {
		return nil, domain.NewSchemaViolation(path, "at least one of greater_than/less_than is required")
	}

	t, err := query.NewNumberRange(fields, greaterThan, lessThan)
	if err != nil {
		return nil, domain.NewSchemaViolation(path, "%s", err.Error())
	}
	return t, nil
}

// optionalBound reads a bound value plus its _inclusive flag, which defaults
// to true when omitted.
func optionalBound(obj map[string]any, key, path string) (*query.Bound, error) {
	raw, ok := obj[key]
	if !ok {
		if _, flagOnly := obj[key+"_inclusive"]; flagOnly {
			return nil, domain.NewSchemaViolation(path+"/"+key+"_inclusive", "%s is required with this flag", key)
		}
		return nil, nil
	}
	value, ok := raw.(float64)
	if !ok {
		return nil, domain.NewSchemaViolation(path+"/"+key, "must be a number")
	}
	inclusive := true
	if rawFlag, ok := obj[key+"_inclusive"]; ok {
		flag, ok := rawFlag.(bool)
		if !ok {
			return nil, domain.NewSchemaViolation(path+"/"+key+"_inclusive", "must be a boolean")
		}
		inclusive = flag
	}
	b := query.NewBound(value, inclusive)
	return &b, nil
}

func compileGeoPoint(payload any, path string) (query.Term, error) {
	obj, err := asObject(payload, path, "latitude", "longitude", "radius", "radius_unit")
	if err != nil {
		return nil, err
	}
	lat, err := requireNumber(obj, "latitude", path)
	if err != nil {
		return nil, err
	}
	lon, err := requireNumber(obj, "longitude", path)
	if err != nil {
		return nil, err
	}
	point, err := querygeo.NewPoint(lat, lon)
	if err != nil {
		return nil, domain.NewSchemaViolation(path, "%s", err.Error())
	}

	rawRadius, hasRadius := obj["radius"]
	rawUnit, hasUnit := obj["radius_unit"]
	// A unit without a radius is rejected: the backend has no point-exact
	// search that a unit hint could select.
	if hasUnit && !hasRadius {
		return nil, domain.NewSchemaViolation(path+"/radius_unit", "radius is required when radius_unit is present")
	}
	if !hasRadius {
		return query.NewGeoPoint(point, nil), nil
	}
	if !hasUnit {
		return nil, domain.NewSchemaViolation(path+"/radius", "radius_unit is required when radius is present")
	}

	radiusValue, ok := rawRadius.(float64)
	if !ok {
		return nil, domain.NewSchemaViolation(path+"/radius", "must be a number")
	}
	unitStr, ok := rawUnit.(string)
	if !ok {
		return nil, domain.NewSchemaViolation(path+"/radius_unit", "must be a string")
	}
	unit, err := querygeo.ParseUnit(unitStr)
	if err != nil {
		return nil, domain.NewSchemaViolation(path+"/radius_unit", "%s", err.Error())
	}
	radius, err := querygeo.NewDistance(radiusValue, unit)
	if err != nil {
		return nil, domain.NewSchemaViolation(path+"/radius", "%s", err.Error())
	}
	return query.NewGeoPoint(point, &radius), nil
}

func compileGeoNamedArea(payload any, path string) (query.Term, error) {
	obj, err := asObject(payload, path, "country", "marine", "geography")
	if err != nil {
		return nil, err
	}
	kind, err := singleKey(obj, []string{"country", "marine", "geography"}, path, "named area")
	if err != nil {
		return nil, err
	}
	name, err := requireString(obj, kind, path)
	if err != nil {
		return nil, err
	}
	// The name's presence in the reference dataset is checked at execution
	// time, surfacing as UnknownArea, never here.
	t, err := query.NewGeoNamedArea(querygeo.AreaKind(kind), name)
	if err != nil {
		return nil, domain.NewSchemaViolation(path, "%s", err.Error())
	}
	return t, nil
}

func compileGeoCustomArea(payload any, path string) (query.Term, error) {
	rawPolygons, ok := payload.([]any)
	if !ok {
		return nil, domain.NewSchemaViolation(path, "must be an array of polygons")
	}
	polygons := make([][][][2]float64, len(rawPolygons))
	for i, rawPolygon := range rawPolygons {
		rings, ok := rawPolygon.([]any)
		if !ok {
			return nil, domain.NewSchemaViolation(pathIdx(path, i), "must be an array of rings")
		}
		polygons[i] = make([][][2]float64, len(rings))
		for j, rawRing := range rings {
			coords, ok := rawRing.([]any)
			if !ok {
				return nil, domain.NewSchemaViolation(pathIdx(pathIdx(path, i), j), "must be an array of coordinates")
			}
			ringPath := pathIdx(pathIdx(path, i), j)
			if len(coords) < 4 {
				return nil, domain.NewSchemaViolation(ringPath, "ring requires at least 4 coordinates, got %d", len(coords))
			}
			polygons[i][j] = make([][2]float64, len(coords))
			for k, rawCoord := range coords {
				pair, ok := rawCoord.([]any)
				if !ok || len(pair) != 2 {
					return nil, domain.NewSchemaViolation(pathIdx(ringPath, k), "coordinate must be a [longitude, latitude] pair")
				}
				lon, okLon := pair[0].(float64)
				lat, okLat := pair[1].(float64)
				if !okLon || !okLat {
					return nil, domain.NewSchemaViolation(pathIdx(ringPath, k), "coordinate values must be numbers")
				}
				polygons[i][j][k] = [2]float64{lon, lat}
			}
		}
	}
	area, err := querygeo.NewMultiPolygon(polygons)
	if err != nil {
		return nil, domain.NewSchemaViolation(path, "%s", err.Error())
	}
	t, err := query.NewGeoCustomArea(area)
	if err != nil {
		return nil, domain.NewSchemaViolation(path, "%s", err.Error())
	}
	return t, nil
}

func compileExists(payload any, path string) (query.Term, error) {
	obj, err := asObject(payload, path, "fields", "geo_field")
	if err != nil {
		return nil, err
	}
	_, hasFields := obj["fields"]
	rawGeo, hasGeo := obj["geo_field"]
	if hasFields == hasGeo {
		return nil, domain.NewSchemaViolation(path, "exactly one of fields/geo_field is required")
	}
	if hasGeo {
		flag, ok := rawGeo.(bool)
		if !ok {
			return nil, domain.NewSchemaViolation(path+"/geo_field", "must be a boolean")
		}
		if !flag {
			return nil, domain.NewSchemaViolation(path+"/geo_field", "must be true")
		}
		return query.NewExistsGeo(), nil
	}
	fields, err := requireFields(obj, path, false)
	if err != nil {
		return nil, err
	}
	t, err := query.NewExistsFields(fields)
	if err != nil {
		return nil, domain.NewSchemaViolation(path, "%s", err.Error())
	}
	return t, nil
}

// --- shared payload helpers ---

func asObject(payload any, path string, allowedKeys ...string) (map[string]any, error) {
	obj, ok := payload.(map[string]any)
	if !ok {
		return nil, domain.NewSchemaViolation(path, "must be an object")
	}
	allowed := make(map[string]struct{}, len(allowedKeys))
	for _, k := range allowedKeys {
		allowed[k] = struct{}{}
	}
	for key := range obj {
		if _, ok := allowed[key]; !ok {
			return nil, domain.NewSchemaViolation(path+"/"+key, "unknown key %q", key)
		}
	}
	return obj, nil
}

func requireString(obj map[string]any, key, path string) (string, error) {
	raw, ok := obj[key]
	if !ok {
		return "", domain.NewSchemaViolation(path, "%s is required", key)
	}
	s, ok := raw.(string)
	if !ok {
		return "", domain.NewSchemaViolation(path+"/"+key, "must be a string")
	}
	return s, nil
}

func requireNumber(obj map[string]any, key, path string) (float64, error) {
	raw, ok := obj[key]
	if !ok {
		return 0, domain.NewSchemaViolation(path, "%s is required", key)
	}
	f, ok := raw.(float64)
	if !ok {
		return 0, domain.NewSchemaViolation(path+"/"+key, "must be a number")
	}
	return f, nil
}

func requireFields(obj map[string]any, path string, allowEmpty bool) (query.Fields, error) {
	raw, ok := obj["fields"]
	if !ok {
		if allowEmpty {
			return nil, nil
		}
		return nil, domain.NewSchemaViolation(path, "fields is required")
	}
	return parseFields(raw, path+"/fields", allowEmpty)
}

func optionalFields(obj map[string]any, path string) (query.Fields, error) {
	raw, ok := obj["fields"]
	if !ok {
		return nil, nil
	}
	return parseFields(raw, path+"/fields", true)
}

func parseFields(raw any, path string, allowEmpty bool) (query.Fields, error) {
	arr, ok := raw.([]any)
	if !ok {
		return nil, domain.NewSchemaViolation(path, "must be an array of strings")
	}
	names := make([]string, len(arr))
	for i, item := range arr {
		s, ok := item.(string)
		if !ok {
			return nil, domain.NewSchemaViolation(pathIdx(path, i), "must be a string")
		}
		names[i] = s
	}
	fields, err := query.NewFields(names, allowEmpty)
	if err != nil {
		return nil, domain.NewSchemaViolation(path, "%s", err.Error())
	}
	return fields, nil
}

func pathIdx(path string, i int) string {
	return path + "/" + strconv.Itoa(i)
}
