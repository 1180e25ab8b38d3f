// Package catalog discovers which resources are searchable by enumerating
// the record indexes present on the backend.
package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/kailas-cloud/multidex/internal/db"
	"github.com/kailas-cloud/multidex/internal/emitter"
)

// store is the consumer interface for catalog operations (ISP).
type store interface {
	ListIndexes(ctx context.Context) ([]string, error)
	IndexInfo(ctx context.Context, index string) ([]db.IndexAttribute, error)
}

// Repo implements resource discovery over FT._LIST.
type Repo struct {
	store  store
	prefix string
}

// New creates a catalog repository. prefix is the key namespace shared with
// the ingest pipeline, e.g. "mdx:".
func New(s store, prefix string) *Repo {
	return &Repo{store: s, prefix: prefix}
}

// indexSuffix marks record indexes; other indexes under the prefix are not
// searchable resources.
const indexSuffix = ":idx"

// Resources returns the ids of every searchable resource, sorted.
func (r *Repo) Resources(ctx context.Context) ([]string, error) {
	names, err := r.store.ListIndexes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list indexes: %w", err)
	}

	resources := make([]string, 0, len(names))
	for _, name := range names {
		id, ok := r.parse(name)
		if !ok {
			continue
		}
		resources = append(resources, id)
	}
	sort.Strings(resources)
	return resources, nil
}

// IndexFor returns the record index name for a resource id.
func (r *Repo) IndexFor(resource string) string {
	return r.prefix + resource + indexSuffix
}

// Field is one record field of a resource, as seen through its index schema.
type Field struct {
	Name string
	// Numeric reports whether the field carries a numeric variant in the
	// index, i.e. at least one record held a number in it at ingest.
	Numeric bool
}

// FieldsFor returns the record fields of a resource in index declaration
// order. Reserved attributes are dropped and the per-variant suffixes
// collapse into one entry per field.
func (r *Repo) FieldsFor(ctx context.Context, resource string) ([]Field, error) {
	attrs, err := r.store.IndexInfo(ctx, r.IndexFor(resource))
	if err != nil {
		return nil, fmt.Errorf("index info for %s: %w", resource, err)
	}

	var fields []Field
	index := make(map[string]int, len(attrs))
	for _, a := range attrs {
		name := a.Name
		if strings.HasPrefix(name, "__") {
			continue
		}
		numeric := false
		switch {
		case strings.HasSuffix(name, emitter.SuffixNumeric):
			name = strings.TrimSuffix(name, emitter.SuffixNumeric)
			numeric = true
		case strings.HasSuffix(name, emitter.SuffixText):
			name = strings.TrimSuffix(name, emitter.SuffixText)
		}
		if name == "" {
			continue
		}
		if i, ok := index[name]; ok {
			fields[i].Numeric = fields[i].Numeric || numeric
			continue
		}
		index[name] = len(fields)
		fields = append(fields, Field{Name: name, Numeric: numeric})
	}
	return fields, nil
}

func (r *Repo) parse(index string) (string, bool) {
	if !strings.HasPrefix(index, r.prefix) || !strings.HasSuffix(index, indexSuffix) {
		return "", false
	}
	id := strings.TrimSuffix(strings.TrimPrefix(index, r.prefix), indexSuffix)
	if id == "" {
		return "", false
	}
	return id, true
}
