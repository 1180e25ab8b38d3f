package multisearch

import (
	"context"

	"github.com/twpayne/go-geom"

	"github.com/kailas-cloud/multidex/internal/db"
	querygeo "github.com/kailas-cloud/multidex/internal/domain/query/geo"
)

// Searcher runs one backend query against a single resource index.
type Searcher interface {
	Search(ctx context.Context, q *db.SearchQuery) (*db.SearchResult, error)
}

// Catalog resolves which resources are searchable and where their records live.
type Catalog interface {
	Resources(ctx context.Context) ([]string, error)
	IndexFor(resource string) string
}

// AreaResolver maps named areas to boundary geometries at execution time.
type AreaResolver interface {
	Resolve(ctx context.Context, kind querygeo.AreaKind, name string) (*geom.MultiPolygon, error)
}
