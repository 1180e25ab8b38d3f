// Package multisearch executes query documents across many resources at
// once: grammar resolution, compilation, planning, concurrent scatter-gather
// and merge into one externally-ordered page.
package multisearch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/kailas-cloud/multidex/internal/domain"
	"github.com/kailas-cloud/multidex/internal/domain/cursor"
	"github.com/kailas-cloud/multidex/internal/domain/plan"
	"github.com/kailas-cloud/multidex/internal/domain/result"
	"github.com/kailas-cloud/multidex/internal/metrics"
	"github.com/kailas-cloud/multidex/internal/schema"
)

// DefaultResourceTimeout bounds each per-resource backend query.
const DefaultResourceTimeout = 10 * time.Second

// topResourcesLimit caps the per-resource count aggregation.
const topResourcesLimit = 10

// Request is a decoded multisearch call.
type Request struct {
	Query        map[string]any
	QueryVersion string
	Resources    []string
	// Version pins the search to a snapshot timestamp (epoch ms); nil means
	// current data.
	Version *int64
	// ResourceVersions pins each named resource to its own snapshot. When
	// set it selects the resources to search, overriding Resources and
	// Version.
	ResourceVersions map[string]int64
	// Size is the page size; nil selects the default.
	Size         *int
	After        []any
	TopResources bool
}

// Service coordinates multisearch execution.
type Service struct {
	grammars *schema.Registry
	searcher Searcher
	catalog  Catalog
	areas    AreaResolver
	timeout  time.Duration
	now      func() time.Time
}

// New creates a multisearch service. timeout bounds each per-resource query;
// <= 0 selects DefaultResourceTimeout.
func New(grammars *schema.Registry, searcher Searcher, catalog Catalog, areas AreaResolver, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = DefaultResourceTimeout
	}
	return &Service{
		grammars: grammars,
		searcher: searcher,
		catalog:  catalog,
		areas:    areas,
		timeout:  timeout,
		now:      time.Now,
	}
}

// Search runs a multisearch request end to end. Individual resource failures
// degrade the response (reported in FailedResources) instead of failing it;
// only request-level problems return an error.
func (s *Service) Search(ctx context.Context, req Request) (*result.Page, error) {
	p, skipped, err := s.buildPlan(ctx, req)
	if err != nil {
		return nil, err
	}

	version := s.now().UnixMilli()
	if v := p.Version(); v != nil {
		version = *v
	}

	metrics.SearchResourcesPerRequest.Observe(float64(len(p.Resources())))
	gathered := s.scatter(ctx, p, version)

	page, err := mergePage(p, gathered)
	if err != nil {
		return nil, err
	}
	for _, f := range page.FailedResources {
		metrics.SearchResourceFailuresTotal.WithLabelValues(failureReason(f.Err)).Inc()
	}
	page.SkippedResources = skipped
	if !req.TopResources {
		page.TopResources = nil
	}
	return page, nil
}

// HashQuery returns a stable hash of a query document: equivalent documents
// hash identically regardless of key order in the incoming JSON.
func (s *Service) HashQuery(ctx context.Context, doc map[string]any, versionTag string) (string, error) {
	grammar, err := s.grammars.Resolve(versionTag)
	if err != nil {
		return "", err
	}
	q, err := grammar.Compile(doc)
	if err != nil {
		return "", err
	}

	canonical, err := json.Marshal(q)
	if err != nil {
		return "", fmt.Errorf("canonicalize query: %w", err)
	}

	h := xxhash.New()
	h.Write([]byte(grammar.Version()))
	h.Write([]byte{0})
	h.Write(canonical)
	return fmt.Sprintf("%016x", h.Sum64()), nil
}

// buildPlan resolves the grammar, compiles the document, rewrites named areas
// and selects resources. skipped holds requested resource ids that are not
// searchable.
func (s *Service) buildPlan(ctx context.Context, req Request) (plan.Plan, []string, error) {
	grammar, err := s.grammars.Resolve(req.QueryVersion)
	if err != nil {
		return plan.Plan{}, nil, err
	}

	doc := req.Query
	if doc == nil {
		doc = map[string]any{}
	}
	q, err := grammar.Compile(doc)
	if err != nil {
		return plan.Plan{}, nil, err
	}

	q, err = s.resolveAreas(ctx, q)
	if err != nil {
		return plan.Plan{}, nil, err
	}

	after, err := cursor.Decode(req.After)
	if err != nil {
		return plan.Plan{}, nil, domain.NewSchemaViolation("/after", "%s", err.Error())
	}

	size := -1
	if req.Size != nil {
		if *req.Size < 0 {
			return plan.Plan{}, nil, domain.NewSchemaViolation("/size", "must be non-negative")
		}
		size = *req.Size
	}

	available, err := s.catalog.Resources(ctx)
	if err != nil {
		return plan.Plan{}, nil, fmt.Errorf("%w: %v", domain.ErrBackendUnavailable, err)
	}
	requested := req.Resources
	if len(req.ResourceVersions) > 0 {
		// Per-resource pins name the resources to search themselves.
		requested = make([]string, 0, len(req.ResourceVersions))
		for id := range req.ResourceVersions {
			requested = append(requested, id)
		}
		sort.Strings(requested)
	}
	selected, skipped := selectResources(requested, available)
	if len(selected) == 0 {
		return plan.Plan{}, nil, domain.ErrNoResources
	}

	p, err := plan.New(q, selected, req.Version, req.ResourceVersions, size, after, req.TopResources)
	if err != nil {
		return plan.Plan{}, nil, domain.NewSchemaViolation("/", "%s", err.Error())
	}
	return p, skipped, nil
}

// failureReason labels a degraded resource for the failure counter.
func failureReason(err error) string {
	if errors.Is(err, domain.ErrTimeout) {
		return "timeout"
	}
	return "unavailable"
}

// selectResources intersects the requested ids with the searchable set,
// preserving request order. Empty requested means all searchable resources.
func selectResources(requested, available []string) (selected, skipped []string) {
	if len(requested) == 0 {
		return available, nil
	}
	searchable := make(map[string]struct{}, len(available))
	for _, id := range available {
		searchable[id] = struct{}{}
	}
	seen := make(map[string]struct{}, len(requested))
	for _, id := range requested {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if _, ok := searchable[id]; ok {
			selected = append(selected, id)
		} else {
			skipped = append(skipped, id)
		}
	}
	return selected, skipped
}
