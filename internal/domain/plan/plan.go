// Package plan holds the immutable execution plan built once per request.
package plan

import (
	"fmt"

	"github.com/kailas-cloud/multidex/internal/domain/cursor"
	"github.com/kailas-cloud/multidex/internal/domain/query"
)

// Page size limits.
const (
	DefaultSize = 100
	MaxSize     = 1000
)

// Plan is a validated, immutable query plan: the compiled query document plus
// resource selection, snapshot version, pagination and aggregation metadata.
// It is consumed by the scatter-gather executor.
type Plan struct {
	query            query.Query
	resources        []string
	version          *int64
	resourceVersions map[string]int64
	size             int
	after            cursor.Cursor
	topResources     bool
}

// New validates the cross-field constraints the term/group grammar cannot
// express and builds a Plan. size < 0 selects the default; resource ids are
// de-duplicated preserving order; a nil version means "current".
// resourceVersions pins individual resources to their own snapshot, taking
// precedence over version for the resources it names.
func New(
	q query.Query,
	resources []string,
	version *int64,
	resourceVersions map[string]int64,
	size int,
	after cursor.Cursor,
	topResources bool,
) (Plan, error) {
	if size < 0 {
		size = DefaultSize
	}
	if size > MaxSize {
		return Plan{}, fmt.Errorf("size must be between 0 and %d, got %d", MaxSize, size)
	}
	if version != nil && *version < 0 {
		return Plan{}, fmt.Errorf("version must be non-negative, got %d", *version)
	}
	for id, v := range resourceVersions {
		if v < 0 {
			return Plan{}, fmt.Errorf("version for resource %s must be non-negative, got %d", id, v)
		}
	}

	seen := make(map[string]struct{}, len(resources))
	deduped := make([]string, 0, len(resources))
	for _, id := range resources {
		if id == "" {
			return Plan{}, fmt.Errorf("resource id must not be empty")
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		deduped = append(deduped, id)
	}

	pinned := make(map[string]int64, len(resourceVersions))
	for id, v := range resourceVersions {
		pinned[id] = v
	}

	return Plan{
		query:            q,
		resources:        deduped,
		version:          version,
		resourceVersions: pinned,
		size:             size,
		after:            after,
		topResources:     topResources,
	}, nil
}

// Query returns the compiled query document.
func (p Plan) Query() query.Query { return p.query }

// Resources returns the selected resource ids; empty means "all visible".
func (p Plan) Resources() []string { return p.resources }

// Version returns the snapshot timestamp in epoch milliseconds (nil = current).
func (p Plan) Version() *int64 { return p.version }

// VersionFor returns the snapshot a resource is individually pinned to.
func (p Plan) VersionFor(resource string) (int64, bool) {
	v, ok := p.resourceVersions[resource]
	return v, ok
}

// Size returns the page size.
func (p Plan) Size() int { return p.size }

// After returns the decoded pagination cursor (nil = first page).
func (p Plan) After() cursor.Cursor { return p.after }

// TopResources reports whether per-resource hit counts were requested.
func (p Plan) TopResources() bool { return p.topResources }
