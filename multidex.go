// Package multidex embeds the multi-resource search engine as a library:
// the same query grammar, planner and scatter-gather executor the HTTP API
// serves, wired directly against a Redis-compatible backend.
package multidex

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/twpayne/go-geom"

	"github.com/kailas-cloud/multidex/internal/db"
	dbRedis "github.com/kailas-cloud/multidex/internal/db/redis"
	"github.com/kailas-cloud/multidex/internal/domain"
	querygeo "github.com/kailas-cloud/multidex/internal/domain/query/geo"
	"github.com/kailas-cloud/multidex/internal/domain/result"
	"github.com/kailas-cloud/multidex/internal/geodata"
	catalogrepo "github.com/kailas-cloud/multidex/internal/repository/catalog"
	slugrepo "github.com/kailas-cloud/multidex/internal/repository/slug"
	"github.com/kailas-cloud/multidex/internal/schema"
	fieldsuc "github.com/kailas-cloud/multidex/internal/usecase/fields"
	multisearchuc "github.com/kailas-cloud/multidex/internal/usecase/multisearch"
	sluguc "github.com/kailas-cloud/multidex/internal/usecase/slug"
)

const defaultReadinessTimeout = 10 * time.Second

// Sentinel errors returned by Client methods, re-exported for errors.Is.
var (
	ErrSchemaViolation    = domain.ErrSchemaViolation
	ErrUnsupportedVersion = domain.ErrUnsupportedVersion
	ErrQueryTooComplex    = domain.ErrQueryTooComplex
	ErrUnknownArea        = domain.ErrUnknownArea
	ErrSlugNotFound       = domain.ErrSlugNotFound
	ErrNoResources        = domain.ErrNoResources
)

// Client is the multidex SDK entry point.
type Client struct {
	store     db.Store
	searchSvc *multisearchuc.Service
	slugSvc   *sluguc.Service
	fieldsSvc *fieldsuc.Service
}

// New creates a multidex Client and connects to the database.
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{keyPrefix: "mdx:"}
	for _, o := range opts {
		o(cfg)
	}

	if len(cfg.addrs) == 0 {
		return nil, errors.New("multidex: database address required (use WithRedis)")
	}

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.addrs,
		Username: cfg.username,
		Password: cfg.password,
		DB:       cfg.database,
	})
	if err != nil {
		return nil, fmt.Errorf("multidex: create redis store: %w", err)
	}

	ctx := context.Background()
	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("multidex: database not ready: %w", err)
	}

	return wireClient(store, cfg)
}

func wireClient(store db.Store, cfg *clientConfig) (*Client, error) {
	grammars, err := schema.Default(cfg.maxDepth)
	if err != nil {
		return nil, fmt.Errorf("multidex: build grammar registry: %w", err)
	}

	catalogRepo := catalogrepo.New(store, cfg.keyPrefix)
	slugStore := slugrepo.New(store, cfg.keyPrefix)

	var areas multisearchuc.AreaResolver = noAreaResolver{}
	if cfg.geodataDir != "" {
		resolver, err := geodata.NewFileResolver(cfg.geodataDir, cfg.geodataCacheSize)
		if err != nil {
			return nil, fmt.Errorf("multidex: create geodata resolver: %w", err)
		}
		areas = resolver
	}

	searchSvc := multisearchuc.New(grammars, store, catalogRepo, areas, cfg.resourceTimeout)
	slugSvc := sluguc.New(slugStore, searchSvc)
	fieldsSvc := fieldsuc.New(grammars, catalogRepo)

	return &Client{
		store:     store,
		searchSvc: searchSvc,
		slugSvc:   slugSvc,
		fieldsSvc: fieldsSvc,
	}, nil
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks database connectivity.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// SearchRequest describes one multisearch call.
type SearchRequest struct {
	// Query is the JSON query document (free-text search plus filters).
	Query map[string]any
	// QueryVersion selects the query grammar; empty means latest.
	QueryVersion string
	// ResourceIDs restricts the search; empty means all searchable resources.
	ResourceIDs []string
	// ResourceVersions pins individual resources to snapshot timestamps
	// (epoch ms). When set it selects the resources to search, overriding
	// ResourceIDs and Version.
	ResourceVersions map[string]int64
	// Version pins the search to a snapshot timestamp (epoch ms); nil means
	// current data.
	Version *int64
	// Size is the page size; nil selects the default.
	Size *int
	// After resumes from a previous page's cursor.
	After []any
	// TopResources requests the per-resource hit count aggregation.
	TopResources bool
}

// Record is a single matched record.
type Record struct {
	Resource string
	Data     map[string]any
}

// ResourceCount is one entry of the top_resources aggregation.
type ResourceCount struct {
	Resource string
	Count    int
}

// SearchResult is one externally-ordered page of merged results.
type SearchResult struct {
	Total   int
	Records []Record
	// After is the cursor for the next page; nil when this page is the last.
	After            []any
	SkippedResources []string
	FailedResources  []string
	TopResources     []ResourceCount
}

// Multisearch runs a query across resources and merges the results into one
// page. Per-resource backend failures degrade the response (listed in
// FailedResources) instead of failing it.
func (c *Client) Multisearch(ctx context.Context, req SearchRequest) (*SearchResult, error) {
	page, err := c.searchSvc.Search(ctx, multisearchuc.Request{
		Query:            req.Query,
		QueryVersion:     req.QueryVersion,
		Resources:        req.ResourceIDs,
		ResourceVersions: req.ResourceVersions,
		Version:          req.Version,
		Size:             req.Size,
		After:            req.After,
		TopResources:     req.TopResources,
	})
	if err != nil {
		return nil, err
	}
	return resultFromPage(page), nil
}

func resultFromPage(page *result.Page) *SearchResult {
	records := make([]Record, len(page.Records))
	for i, rec := range page.Records {
		records[i] = Record{Resource: rec.Resource(), Data: rec.Data()}
	}

	res := &SearchResult{
		Total:            page.Total,
		Records:          records,
		After:            page.After,
		SkippedResources: page.SkippedResources,
	}
	for _, f := range page.FailedResources {
		res.FailedResources = append(res.FailedResources, f.Resource)
	}
	for _, tc := range page.TopResources {
		res.TopResources = append(res.TopResources, ResourceCount{Resource: tc.Resource, Count: tc.Count})
	}
	return res
}

// HashQuery returns the stable hash of a query document. Equivalent documents
// hash identically regardless of JSON key order.
func (c *Client) HashQuery(ctx context.Context, query map[string]any, queryVersion string) (string, error) {
	if query == nil {
		query = map[string]any{}
	}
	return c.searchSvc.HashQuery(ctx, query, queryVersion)
}

// Slug is the outcome of CreateSlug.
type Slug struct {
	Name string
	// IsNew reports whether this call minted the slug, as opposed to
	// returning one created earlier for the same parameters.
	IsNew bool
}

// CreateSlug mints a shareable reference to a saved search. Creation is
// idempotent per query, resource selection and version pin. pretty selects
// the two-adjectives-and-an-animal form over a plain uuid.
func (c *Client) CreateSlug(ctx context.Context, req SearchRequest, pretty bool) (Slug, error) {
	sl, err := c.slugSvc.Create(ctx, sluguc.CreateRequest{
		Query:        req.Query,
		QueryVersion: req.QueryVersion,
		Resources:    req.ResourceIDs,
		Version:      req.Version,
		PrettySlug:   pretty,
	})
	if err != nil {
		return Slug{}, err
	}
	return Slug{Name: sl.Name, IsNew: sl.IsNew}, nil
}

// SavedSearch is the search a slug refers to.
type SavedSearch struct {
	Query        map[string]any
	QueryVersion string
	ResourceIDs  []string
	Version      *int64
	CreatedAt    time.Time
}

// ResolveSlug returns the saved search behind a slug.
func (c *Client) ResolveSlug(ctx context.Context, name string) (SavedSearch, error) {
	rec, err := c.slugSvc.Resolve(ctx, name)
	if err != nil {
		return SavedSearch{}, err
	}
	return SavedSearch{
		Query:        rec.Query,
		QueryVersion: rec.Version,
		ResourceIDs:  rec.Resources,
		Version:      rec.VersionTS,
		CreatedAt:    time.UnixMilli(rec.CreatedAt).UTC(),
	}, nil
}

// FieldMatch is one field matched by FieldAutocomplete.
type FieldMatch struct {
	Field string
	// Types maps resource id to "number" or "string".
	Types map[string]string
}

// FieldAutocomplete returns the fields whose name contains text, across the
// given resources (all searchable resources when empty). lowercase makes the
// match case-insensitive.
func (c *Client) FieldAutocomplete(ctx context.Context, text string, resourceIDs []string, lowercase bool) ([]FieldMatch, error) {
	matches, err := c.fieldsSvc.Autocomplete(ctx, fieldsuc.AutocompleteRequest{
		Text:      text,
		Resources: resourceIDs,
		Lowercase: lowercase,
	})
	if err != nil {
		return nil, err
	}
	out := make([]FieldMatch, len(matches))
	for i, m := range matches {
		out[i] = FieldMatch{Field: m.Field, Types: m.Types}
	}
	return out, nil
}

// FieldGroup is a set of same-named fields across resources, as returned by
// GuessFields.
type FieldGroup struct {
	Name  string
	Count int
	// Fields maps resource id to the field name as that resource indexes it.
	Fields map[string]string
}

// GuessFields returns the field groups most widely shared by the resources a
// search would touch, for building column pickers. size caps the number of
// groups; <= 0 selects the default.
func (c *Client) GuessFields(ctx context.Context, req SearchRequest, size int, ignoreGroups []string) ([]FieldGroup, error) {
	groups, err := c.fieldsSvc.Guess(ctx, fieldsuc.GuessRequest{
		Query:        req.Query,
		QueryVersion: req.QueryVersion,
		Resources:    req.ResourceIDs,
		Size:         size,
		IgnoreGroups: ignoreGroups,
	})
	if err != nil {
		return nil, err
	}
	out := make([]FieldGroup, len(groups))
	for i, g := range groups {
		out[i] = FieldGroup{Name: g.Name, Count: g.Count, Fields: g.Fields}
	}
	return out, nil
}

// noAreaResolver rejects every named area (used when no geodata is configured).
type noAreaResolver struct{}

func (noAreaResolver) Resolve(_ context.Context, kind querygeo.AreaKind, name string) (*geom.MultiPolygon, error) {
	return nil, domain.NewUnknownArea(string(kind), name)
}
