package fields

import (
	"context"

	"github.com/kailas-cloud/multidex/internal/repository/catalog"
)

// Catalog resolves searchable resources and their indexed fields.
type Catalog interface {
	Resources(ctx context.Context) ([]string, error)
	FieldsFor(ctx context.Context, resource string) ([]catalog.Field, error)
}
