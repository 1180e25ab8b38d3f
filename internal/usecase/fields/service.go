// Package fields discovers the record fields behind the searchable
// resources: name autocompletion and most-common-field guessing for clients
// building column pickers over a multi-resource search.
package fields

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/kailas-cloud/multidex/internal/domain"
	"github.com/kailas-cloud/multidex/internal/repository/catalog"
	"github.com/kailas-cloud/multidex/internal/schema"
)

// Guess sizing.
const (
	DefaultGuessSize = 10
	MaxGuessSize     = 25
)

// Service answers field discovery requests over the catalog.
type Service struct {
	grammars *schema.Registry
	catalog  Catalog
}

// New creates a fields service.
func New(grammars *schema.Registry, cat Catalog) *Service {
	return &Service{grammars: grammars, catalog: cat}
}

// AutocompleteRequest asks which fields contain a text fragment.
type AutocompleteRequest struct {
	// Text is the fragment field names must contain; empty matches all.
	Text string
	// Resources limits the lookup; empty means every searchable resource.
	Resources []string
	// Lowercase makes the match case-insensitive.
	Lowercase bool
}

// FieldMatch is one matching field: which resources carry it and the value
// type each of them indexes it as.
type FieldMatch struct {
	Field string
	// Types maps resource id to "number" or "string".
	Types map[string]string
}

// Autocomplete returns the fields whose name contains the request text,
// ordered by field name.
func (s *Service) Autocomplete(ctx context.Context, req AutocompleteRequest) ([]FieldMatch, error) {
	resources, err := s.selectResources(ctx, req.Resources)
	if err != nil {
		return nil, err
	}

	needle := req.Text
	if req.Lowercase {
		needle = strings.ToLower(needle)
	}

	matches := make(map[string]*FieldMatch)
	for _, resource := range resources {
		flds, err := s.catalog.FieldsFor(ctx, resource)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrBackendUnavailable, err)
		}
		for _, f := range flds {
			hay := f.Name
			if req.Lowercase {
				hay = strings.ToLower(hay)
			}
			if !strings.Contains(hay, needle) {
				continue
			}
			m, ok := matches[f.Name]
			if !ok {
				m = &FieldMatch{Field: f.Name, Types: make(map[string]string)}
				matches[f.Name] = m
			}
			m.Types[resource] = fieldType(f)
		}
	}

	names := make([]string, 0, len(matches))
	for name := range matches {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]FieldMatch, 0, len(names))
	for _, name := range names {
		out = append(out, *matches[name])
	}
	return out, nil
}

// GuessRequest asks for the fields most worth showing for a search.
type GuessRequest struct {
	Query        map[string]any
	QueryVersion string
	// Resources limits the lookup; empty means every searchable resource.
	Resources []string
	// Size caps the number of groups returned; <= 0 selects the default.
	Size int
	// IgnoreGroups drops groups by their case-folded name.
	IgnoreGroups []string
}

// Group is a set of same-named fields, compared case-insensitively, across
// the searched resources.
type Group struct {
	// Name is the case-folded group name.
	Name string
	// Count is the number of resources carrying a field in the group.
	Count int
	// Fields maps resource id to the field name as that resource indexes it.
	Fields map[string]string
}

// Guess groups the searched resources' fields by case-folded name and
// returns the most widely shared groups. A single resource keeps its index
// declaration order; across resources groups come back by (resource count
// desc, name asc).
func (s *Service) Guess(ctx context.Context, req GuessRequest) ([]Group, error) {
	// The query does not influence the grouping, but an invalid one must
	// fail here the same way it fails a search.
	grammar, err := s.grammars.Resolve(req.QueryVersion)
	if err != nil {
		return nil, err
	}
	doc := req.Query
	if doc == nil {
		doc = map[string]any{}
	}
	if _, err := grammar.Compile(doc); err != nil {
		return nil, err
	}

	resources, err := s.selectResources(ctx, req.Resources)
	if err != nil {
		return nil, err
	}

	size := req.Size
	if size <= 0 {
		size = DefaultGuessSize
	}
	if size > MaxGuessSize {
		size = MaxGuessSize
	}

	ignored := make(map[string]struct{}, len(req.IgnoreGroups))
	for _, g := range req.IgnoreGroups {
		ignored[strings.ToLower(g)] = struct{}{}
	}

	groups := make(map[string]*Group)
	var order []string
	for _, resource := range resources {
		flds, err := s.catalog.FieldsFor(ctx, resource)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrBackendUnavailable, err)
		}
		for _, f := range flds {
			key := strings.ToLower(f.Name)
			if _, skip := ignored[key]; skip {
				continue
			}
			g, ok := groups[key]
			if !ok {
				g = &Group{Name: key, Fields: make(map[string]string)}
				groups[key] = g
				order = append(order, key)
			}
			if _, dup := g.Fields[resource]; !dup {
				g.Fields[resource] = f.Name
				g.Count++
			}
		}
	}

	out := make([]Group, 0, len(order))
	for _, key := range order {
		out = append(out, *groups[key])
	}
	if len(resources) > 1 {
		sort.Slice(out, func(i, j int) bool {
			if out[i].Count != out[j].Count {
				return out[i].Count > out[j].Count
			}
			return out[i].Name < out[j].Name
		})
	}
	if len(out) > size {
		out = out[:size]
	}
	return out, nil
}

// selectResources intersects the requested ids with the searchable set,
// preserving request order. Empty requested means all searchable resources.
func (s *Service) selectResources(ctx context.Context, requested []string) ([]string, error) {
	available, err := s.catalog.Resources(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrBackendUnavailable, err)
	}

	if len(requested) == 0 {
		if len(available) == 0 {
			return nil, domain.ErrNoResources
		}
		return available, nil
	}

	searchable := make(map[string]struct{}, len(available))
	for _, id := range available {
		searchable[id] = struct{}{}
	}
	seen := make(map[string]struct{}, len(requested))
	var selected []string
	for _, id := range requested {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if _, ok := searchable[id]; ok {
			selected = append(selected, id)
		}
	}
	if len(selected) == 0 {
		return nil, domain.ErrNoResources
	}
	return selected, nil
}

func fieldType(f catalog.Field) string {
	if f.Numeric {
		return "number"
	}
	return "string"
}
