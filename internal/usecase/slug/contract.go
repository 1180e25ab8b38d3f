package slug

import (
	"context"

	slugrepo "github.com/kailas-cloud/multidex/internal/repository/slug"
)

// Repository defines the storage contract for slug operations.
type Repository interface {
	Save(ctx context.Context, name string, rec slugrepo.Record) error
	Find(ctx context.Context, name string) (slugrepo.Record, error)
	Exists(ctx context.Context, name string) (bool, error)
	SlugForHash(ctx context.Context, hash string) (string, error)
	SaveHash(ctx context.Context, hash, name string) error
}

// QueryHasher produces the stable hash of a query document, used as the
// idempotency key component for slug creation.
type QueryHasher interface {
	HashQuery(ctx context.Context, doc map[string]any, versionTag string) (string, error)
}
