package query

import (
	"encoding/json"
	"testing"

	querygeo "github.com/kailas-cloud/multidex/internal/domain/query/geo"
)

func TestCanonical_MaterializesDefaults(t *testing.T) {
	lower := NewBound(1950, true)
	rng, err := NewNumberRange(Fields{"year"}, &lower, nil)
	if err != nil {
		t.Fatalf("build term: %v", err)
	}
	g, err := NewGroup(And, []Node{rng})
	if err != nil {
		t.Fatalf("build group: %v", err)
	}

	raw, err := json.Marshal(New("", g).Canonical())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"filters":{"and":[{"number_range":{"fields":["year"],"greater_than":1950,"greater_than_inclusive":true}}]}}`
	if string(raw) != want {
		t.Errorf("canonical form:\ngot:  %s\nwant: %s", raw, want)
	}
}

func TestMarshalJSON_Stable(t *testing.T) {
	eq, err := NewStringEquals(Fields{"genus"}, "Carabus")
	if err != nil {
		t.Fatalf("build term: %v", err)
	}
	ex, err := NewExistsFields(Fields{"collector"})
	if err != nil {
		t.Fatalf("build term: %v", err)
	}
	g, err := NewGroup(And, []Node{eq, ex})
	if err != nil {
		t.Fatalf("build group: %v", err)
	}
	q := New("beetle", g)

	first, err := json.Marshal(q)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	second, err := json.Marshal(q)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(first) != string(second) {
		t.Errorf("marshal not stable:\n%s\n%s", first, second)
	}
}

func TestCanonical_GeoPoint(t *testing.T) {
	point, err := querygeo.NewPoint(51.4967, -0.1764)
	if err != nil {
		t.Fatalf("build point: %v", err)
	}
	radius, err := querygeo.NewDistance(2, querygeo.Kilometres)
	if err != nil {
		t.Fatalf("build radius: %v", err)
	}
	g, err := NewGroup(And, []Node{NewGeoPoint(point, &radius)})
	if err != nil {
		t.Fatalf("build group: %v", err)
	}

	raw, err := json.Marshal(New("", g))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"filters":{"and":[{"geo_point":{"latitude":51.4967,"longitude":-0.1764,"radius":2,"radius_unit":"km"}}]}}`
	if string(raw) != want {
		t.Errorf("canonical form:\ngot:  %s\nwant: %s", raw, want)
	}
}

func TestCanonical_EmptyQuery(t *testing.T) {
	raw, err := json.Marshal(New("", nil))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(raw) != "{}" {
		t.Errorf("empty query: got %s, want {}", raw)
	}
}
