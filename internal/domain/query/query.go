// Package query holds the typed representation of a multisearch query
// document: an optional free-text search plus a boolean tree of predicate
// terms. Values are immutable once built; constructors validate.
package query

import "fmt"

// Query is a validated query document.
type Query struct {
	search  string
	filters *Group
}

// New creates a query document. Both parts are optional; an entirely empty
// query matches everything.
func New(search string, filters *Group) Query {
	return Query{search: search, filters: filters}
}

// Search returns the free-text search string ("" if absent).
func (q Query) Search() string { return q.search }

// Filters returns the root filter group (nil if absent).
func (q Query) Filters() *Group { return q.filters }

// IsEmpty reports whether the query has neither search text nor filters.
func (q Query) IsEmpty() bool { return q.search == "" && q.filters == nil }

// Fields is an ordered, de-duplicated set of field names a term matches
// against. Multiple fields are OR-combined.
type Fields []string

// NewFields validates and de-duplicates field names, preserving first-seen
// order. An empty set is rejected unless allowEmpty is set (string_contains
// uses an empty set to mean "all fields").
func NewFields(names []string, allowEmpty bool) (Fields, error) {
	seen := make(map[string]struct{}, len(names))
	out := make(Fields, 0, len(names))
	for _, name := range names {
		if name == "" {
			return nil, fmt.Errorf("field name must not be empty")
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	if len(out) == 0 && !allowEmpty {
		return nil, fmt.Errorf("at least one field is required")
	}
	return out, nil
}
