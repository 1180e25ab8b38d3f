package db

import (
	"context"
	"time"
)

// Store is the main database facade combining all sub-interfaces.
// Consumers depend on the narrow sub-interfaces, never on Store itself.
type Store interface {
	Pinger
	KVStore
	Searcher
	IndexLister
	IndexInspector
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// KVStore provides simple key-value operations.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// SearchQuery is one FT.SEARCH invocation against a single index.
type SearchQuery struct {
	Index string
	Query string
	// Params holds bound parameters referenced from Query as $name.
	Params map[string]string
	// SortBy names a SORTABLE attribute; results come back in descending
	// order of it. Empty means backend default ordering.
	SortBy string
	// Offset and Limit select a window of the ordered results.
	Offset int
	Limit  int
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
type SearchEntry struct {
	Key    string
	Fields map[string]string
}

// Searcher provides search operations over FT indexes.
type Searcher interface {
	Search(ctx context.Context, q *SearchQuery) (*SearchResult, error)
}

// IndexLister enumerates the FT indexes present on the backend.
type IndexLister interface {
	ListIndexes(ctx context.Context) ([]string, error)
}

// IndexAttribute is one attribute of an FT index schema.
type IndexAttribute struct {
	Name string
	Type string
}

// IndexInspector reads index schemas.
type IndexInspector interface {
	IndexInfo(ctx context.Context, index string) ([]IndexAttribute, error)
}
