package schema

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/kailas-cloud/multidex/internal/domain"
	"github.com/kailas-cloud/multidex/internal/domain/query"
)

func makeRegistry(t *testing.T) *Registry {
	t.Helper()
	reg, err := Default(0)
	if err != nil {
		t.Fatalf("Default(0): %v", err)
	}
	return reg
}

func parseDoc(t *testing.T, raw string) map[string]any {
	t.Helper()
	var doc map[string]any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		t.Fatalf("unmarshal %q: %v", raw, err)
	}
	return doc
}

func TestResolve_EmptyTagSelectsLatest(t *testing.T) {
	reg := makeRegistry(t)

	g, err := reg.Resolve("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.Version() != VersionV1 {
		t.Errorf("Version() = %q, want %q", g.Version(), VersionV1)
	}
	if reg.Latest() != VersionV1 {
		t.Errorf("Latest() = %q, want %q", reg.Latest(), VersionV1)
	}
}

func TestResolve_UnknownVersion(t *testing.T) {
	reg := makeRegistry(t)

	_, err := reg.Resolve("v9.9.9")
	if err == nil {
		t.Fatal("expected error for unknown version")
	}
	if !errors.Is(err, domain.ErrUnsupportedVersion) {
		t.Errorf("error = %v, want ErrUnsupportedVersion", err)
	}
	if !strings.Contains(err.Error(), "v9.9.9") {
		t.Errorf("error = %q, want the requested tag", err)
	}
}

func TestValidate_AcceptsWellFormedDocuments(t *testing.T) {
	g, err := makeRegistry(t).Resolve(VersionV1)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	docs := []string{
		`{}`,
		`{"search": "mollusca"}`,
		`{"filters": {"and": [{"string_equals": {"fields": ["genus"], "value": "helix"}}]}}`,
		`{"filters": {"or": [
			{"number_range": {"fields": ["year"], "greater_than": 1950}},
			{"exists": {"geo_field": true}}
		]}}`,
		`{"filters": {"not": [{"geo_point": {"latitude": 51.4, "longitude": -0.1}}]}}`,
		`{"filters": {"and": [{"geo_custom_area": [[[[0,0],[0,1],[1,1],[0,0]]]]}]}}`,
	}
	for _, raw := range docs {
		if err := g.Validate(parseDoc(t, raw)); err != nil {
			t.Errorf("Validate(%s): %v", raw, err)
		}
	}
}

func TestValidate_RejectsMalformedDocuments(t *testing.T) {
	g, err := makeRegistry(t).Resolve(VersionV1)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	tests := []struct {
		name string
		raw  string
	}{
		{"unknown top-level key", `{"size": 10}`},
		{"search not a string", `{"search": 7}`},
		{"empty group", `{"filters": {}}`},
		{"two group keys", `{"filters": {"and": [], "or": []}}`},
		{"or with one member", `{"filters": {"or": [{"exists": {"geo_field": true}}]}}`},
		{"unknown term", `{"filters": {"and": [{"fuzzy": {}}]}}`},
		{"string_equals without value", `{"filters": {"and": [{"string_equals": {"fields": ["x"]}}]}}`},
		{"string_equals empty fields", `{"filters": {"and": [{"string_equals": {"fields": [], "value": "v"}}]}}`},
		{"string_contains empty value", `{"filters": {"and": [{"string_contains": {"value": ""}}]}}`},
		{"number_range without bounds", `{"filters": {"and": [{"number_range": {"fields": ["y"]}}]}}`},
		{"latitude out of range", `{"filters": {"and": [{"geo_point": {"latitude": 91, "longitude": 0}}]}}`},
		{"radius without unit", `{"filters": {"and": [{"geo_point": {"latitude": 0, "longitude": 0, "radius": 5}}]}}`},
		{"unit without radius", `{"filters": {"and": [{"geo_point": {"latitude": 0, "longitude": 0, "radius_unit": "km"}}]}}`},
		{"zero radius", `{"filters": {"and": [{"geo_point": {"latitude": 0, "longitude": 0, "radius": 0, "radius_unit": "m"}}]}}`},
		{"bad radius unit", `{"filters": {"and": [{"geo_point": {"latitude": 0, "longitude": 0, "radius": 1, "radius_unit": "furlong"}}]}}`},
		{"named area with two kinds", `{"filters": {"and": [{"geo_named_area": {"country": "Chile", "marine": "x"}}]}}`},
		{"open ring too short", `{"filters": {"and": [{"geo_custom_area": [[[[0,0],[0,1],[1,1]]]]}]}}`},
		{"exists with both selectors", `{"filters": {"and": [{"exists": {"fields": ["x"], "geo_field": true}}]}}`},
		{"exists geo_field false", `{"filters": {"and": [{"exists": {"geo_field": false}}]}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := g.Validate(parseDoc(t, tt.raw))
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, domain.ErrSchemaViolation) {
				t.Errorf("error = %v, want ErrSchemaViolation", err)
			}
		})
	}
}

func TestValidate_ViolationCarriesPath(t *testing.T) {
	g, err := makeRegistry(t).Resolve(VersionV1)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	doc := parseDoc(t, `{"filters": {"and": [{"number_equals": {"fields": ["age"], "value": "old"}}]}}`)
	verr := g.Validate(doc)
	if verr == nil {
		t.Fatal("expected error")
	}
	var sv *domain.SchemaViolationError
	if !errors.As(verr, &sv) {
		t.Fatalf("error = %T, want *SchemaViolationError", verr)
	}
	if !strings.HasPrefix(sv.Path, "/filters/and/0") {
		t.Errorf("Path = %q, want prefix /filters/and/0", sv.Path)
	}
}

func TestCompile_ValidatesBeforeCompiling(t *testing.T) {
	g, err := makeRegistry(t).Resolve(VersionV1)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	q, err := g.Compile(parseDoc(t, `{"search": "beetle", "filters": {"and": [
		{"string_equals": {"fields": ["order"], "value": "Coleoptera"}}
	]}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Search() != "beetle" {
		t.Errorf("Search() = %q, want %q", q.Search(), "beetle")
	}
	if q.Filters() == nil {
		t.Error("Filters() = nil, want compiled group")
	}

	if _, err := g.Compile(parseDoc(t, `{"filters": {"nand": []}}`)); err == nil {
		t.Error("expected error for unknown group key")
	}
}

func TestNewRegistry_DuplicateVersion(t *testing.T) {
	g, err := NewGrammar("v1.0.0", rawSchemaV1, stubCompiler{})
	if err != nil {
		t.Fatalf("NewGrammar: %v", err)
	}
	if _, err := NewRegistry(g, g); err == nil {
		t.Error("expected error for duplicate version")
	}
}

type stubCompiler struct{}

func (stubCompiler) Compile(map[string]any) (query.Query, error) { return query.Query{}, nil }
