package compiler

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/kailas-cloud/multidex/internal/domain"
	"github.com/kailas-cloud/multidex/internal/domain/query"
)

func parseDoc(t *testing.T, raw string) map[string]any {
	t.Helper()
	var doc map[string]any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		t.Fatalf("parse document: %v", err)
	}
	return doc
}

func compile(t *testing.T, raw string) (query.Query, error) {
	t.Helper()
	return New(0).Compile(parseDoc(t, raw))
}

func TestCompile_EmptyDocument(t *testing.T) {
	q, err := compile(t, `{}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !q.IsEmpty() {
		t.Error("empty document should compile to an empty query")
	}
}

func TestCompile_SearchOnly(t *testing.T) {
	q, err := compile(t, `{"search":"mollusc"}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Search() != "mollusc" {
		t.Errorf("search: got %q, want mollusc", q.Search())
	}
	if q.Filters() != nil {
		t.Error("filters should be nil")
	}
}

func TestCompile_FullTree(t *testing.T) {
	q, err := compile(t, `{
		"search": "beetle",
		"filters": {
			"and": [
				{"string_equals": {"fields": ["genus"], "value": "Carabus"}},
				{"or": [
					{"number_range": {"fields": ["year"], "greater_than": 1950}},
					{"exists": {"fields": ["collector"]}}
				]}
			]
		}
	}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	root := q.Filters()
	if root == nil || root.Kind() != query.And {
		t.Fatalf("root group: %+v", root)
	}
	if len(root.Members()) != 2 {
		t.Fatalf("root members: got %d, want 2", len(root.Members()))
	}
	nested, ok := root.Members()[1].(*query.Group)
	if !ok || nested.Kind() != query.Or {
		t.Fatalf("nested member: %+v", root.Members()[1])
	}
}

func TestCompile_Violations(t *testing.T) {
	tests := []struct {
		name     string
		doc      string
		wantPath string
	}{
		{
			name:     "unknown top-level key",
			doc:      `{"serach": "typo"}`,
			wantPath: "/serach",
		},
		{
			name:     "search not a string",
			doc:      `{"search": 7}`,
			wantPath: "/search",
		},
		{
			name:     "group with two keys",
			doc:      `{"filters": {"and": [], "or": []}}`,
			wantPath: "/filters",
		},
		{
			name:     "mixed group and term keys",
			doc:      `{"filters": {"and": [{"or": [], "exists": {"fields": ["x"]}}]}}`,
			wantPath: "/filters/and/0",
		},
		{
			name:     "string_equals missing value",
			doc:      `{"filters": {"and": [{"string_equals": {"fields": ["x"]}}]}}`,
			wantPath: "/filters/and/0/string_equals",
		},
		{
			name:     "number_range without bounds",
			doc:      `{"filters": {"and": [{"number_range": {"fields": ["year"]}}]}}`,
			wantPath: "/filters/and/0/number_range",
		},
		{
			name:     "inclusive flag without bound",
			doc:      `{"filters": {"and": [{"number_range": {"fields": ["year"], "less_than_inclusive": true}}]}}`,
			wantPath: "/filters/and/0/number_range/less_than_inclusive",
		},
		{
			name:     "geo_point unit without radius",
			doc:      `{"filters": {"and": [{"geo_point": {"latitude": 1, "longitude": 2, "radius_unit": "km"}}]}}`,
			wantPath: "/filters/and/0/geo_point/radius_unit",
		},
		{
			name:     "geo_point radius without unit",
			doc:      `{"filters": {"and": [{"geo_point": {"latitude": 1, "longitude": 2, "radius": 5}}]}}`,
			wantPath: "/filters/and/0/geo_point/radius",
		},
		{
			name:     "geo_point bad latitude",
			doc:      `{"filters": {"and": [{"geo_point": {"latitude": 91, "longitude": 2}}]}}`,
			wantPath: "/filters/and/0/geo_point",
		},
		{
			name:     "named area with two kinds",
			doc:      `{"filters": {"and": [{"geo_named_area": {"country": "chile", "marine": "baltic sea"}}]}}`,
			wantPath: "/filters/and/0/geo_named_area",
		},
		{
			name:     "custom area open ring",
			doc:      `{"filters": {"and": [{"geo_custom_area": [[[[0,0],[0,1],[1,1],[1,0]]]]}]}}`,
			wantPath: "/filters/and/0/geo_custom_area",
		},
		{
			name:     "custom area short ring",
			doc:      `{"filters": {"and": [{"geo_custom_area": [[[[0,0],[0,1],[0,0]]]]}]}}`,
			wantPath: "/filters/and/0/geo_custom_area/0/0",
		},
		{
			name:     "exists with both forms",
			doc:      `{"filters": {"and": [{"exists": {"fields": ["x"], "geo_field": true}}]}}`,
			wantPath: "/filters/and/0/exists",
		},
		{
			name:     "exists geo_field false",
			doc:      `{"filters": {"and": [{"exists": {"geo_field": false}}]}}`,
			wantPath: "/filters/and/0/exists/geo_field",
		},
		{
			name:     "or with single member",
			doc:      `{"filters": {"or": [{"exists": {"fields": ["x"]}}]}}`,
			wantPath: "/filters",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := compile(t, tt.doc)
			if err == nil {
				t.Fatal("expected a schema violation")
			}
			if !errors.Is(err, domain.ErrSchemaViolation) {
				t.Fatalf("error = %v, want ErrSchemaViolation", err)
			}
			var sv *domain.SchemaViolationError
			if !errors.As(err, &sv) {
				t.Fatalf("error %v does not carry a path", err)
			}
			if sv.Path != tt.wantPath {
				t.Errorf("path: got %s, want %s", sv.Path, tt.wantPath)
			}
		})
	}
}

func TestCompile_DepthGuard(t *testing.T) {
	// Build 5 nested not-groups around one term, with a limit of 3.
	doc := `{"exists": {"fields": ["x"]}}`
	for i := 0; i < 5; i++ {
		doc = `{"not": [` + doc + `]}`
	}
	doc = `{"filters": ` + doc + `}`

	_, err := New(3).Compile(parseDoc(t, doc))
	if err == nil {
		t.Fatal("expected QueryTooComplex")
	}
	if !errors.Is(err, domain.ErrQueryTooComplex) {
		t.Fatalf("error = %v, want ErrQueryTooComplex", err)
	}
	if !strings.Contains(err.Error(), "3 levels") {
		t.Errorf("error should name the limit: %v", err)
	}
}

func TestCompile_DepthWithinLimit(t *testing.T) {
	doc := `{"exists": {"fields": ["x"]}}`
	for i := 0; i < 3; i++ {
		doc = `{"not": [` + doc + `]}`
	}
	doc = `{"filters": ` + doc + `}`

	if _, err := New(4).Compile(parseDoc(t, doc)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCompile_BoundDefaults(t *testing.T) {
	q, err := compile(t, `{"filters": {"and": [
		{"number_range": {"fields": ["year"], "greater_than": 1950, "less_than": 2000, "less_than_inclusive": false}}
	]}}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rng, ok := q.Filters().Members()[0].(*query.NumberRange)
	if !ok {
		t.Fatalf("member type: %T", q.Filters().Members()[0])
	}
	if !rng.GreaterThan().Inclusive() {
		t.Error("greater_than should default to inclusive")
	}
	if rng.LessThan().Inclusive() {
		t.Error("less_than_inclusive=false was ignored")
	}
}

func TestCompile_FieldsDeduplicated(t *testing.T) {
	q, err := compile(t, `{"filters": {"and": [
		{"string_equals": {"fields": ["a", "b", "a"], "value": "v"}}
	]}}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	eq, _ := q.Filters().Members()[0].(*query.StringEquals)
	if len(eq.Fields()) != 2 {
		t.Errorf("fields: got %v, want [a b]", eq.Fields())
	}
}
