// Package slug creates and resolves shareable references to saved searches.
// Creation is idempotent: the same query, resources and version always map
// back to the first slug minted for them.
package slug

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"

	"github.com/kailas-cloud/multidex/internal/metrics"
	slugrepo "github.com/kailas-cloud/multidex/internal/repository/slug"
)

// prettyAttempts bounds collision retries before falling back to a uuid.
const prettyAttempts = 10

// CreateRequest are the multisearch parameters a slug captures.
type CreateRequest struct {
	Query        map[string]any
	QueryVersion string
	Resources    []string
	Version      *int64
	// PrettySlug selects the two-adjectives-and-an-animal form; false means
	// a plain uuid.
	PrettySlug bool
}

// Slug is the outcome of a create call.
type Slug struct {
	Name string
	// IsNew reports whether this call minted the slug, as opposed to
	// returning one created earlier for the same parameters.
	IsNew bool
}

// Service handles slug creation and resolution.
type Service struct {
	repo   Repository
	hasher QueryHasher
	now    func() time.Time
	pick   func(n int) int
}

// New creates a slug service.
func New(repo Repository, hasher QueryHasher) *Service {
	return &Service{
		repo:   repo,
		hasher: hasher,
		now:    time.Now,
		pick:   rand.Intn,
	}
}

// Create mints a slug for the given search parameters, or returns the
// existing one when these exact parameters were saved before.
func (s *Service) Create(ctx context.Context, req CreateRequest) (Slug, error) {
	doc := req.Query
	if doc == nil {
		doc = map[string]any{}
	}
	queryHash, err := s.hasher.HashQuery(ctx, doc, req.QueryVersion)
	if err != nil {
		return Slug{}, err
	}
	hash := requestHash(queryHash, req.Resources, req.Version)

	existing, err := s.repo.SlugForHash(ctx, hash)
	if err != nil {
		return Slug{}, err
	}
	if existing != "" {
		return Slug{Name: existing, IsNew: false}, nil
	}

	name, err := s.mint(ctx, req.PrettySlug)
	if err != nil {
		return Slug{}, err
	}

	rec := slugrepo.Record{
		Query:     doc,
		Version:   req.QueryVersion,
		Resources: req.Resources,
		VersionTS: req.Version,
		CreatedAt: s.now().UnixMilli(),
	}
	if err := s.repo.Save(ctx, name, rec); err != nil {
		return Slug{}, err
	}
	if err := s.repo.SaveHash(ctx, hash, name); err != nil {
		return Slug{}, err
	}
	return Slug{Name: name, IsNew: true}, nil
}

// Resolve returns the saved search a slug refers to.
func (s *Service) Resolve(ctx context.Context, name string) (slugrepo.Record, error) {
	return s.repo.Find(ctx, name)
}

// mint picks an unused slug name: two adjectives and an animal when pretty,
// falling back to a uuid after too many collisions.
func (s *Service) mint(ctx context.Context, pretty bool) (string, error) {
	if pretty {
		for i := 0; i < prettyAttempts; i++ {
			name := adjectives[s.pick(len(adjectives))] + "-" +
				adjectives[s.pick(len(adjectives))] + "-" +
				animals[s.pick(len(animals))]
			taken, err := s.repo.Exists(ctx, name)
			if err != nil {
				return "", fmt.Errorf("check slug %s: %w", name, err)
			}
			if !taken {
				metrics.SlugsCreatedTotal.WithLabelValues("pretty").Inc()
				return name, nil
			}
		}
	}
	metrics.SlugsCreatedTotal.WithLabelValues("uuid").Inc()
	return uuid.NewString(), nil
}

// requestHash combines the query hash with the resource selection and
// version pin so distinct requests never share a slug. Resource ids are
// sorted and de-duplicated first: the same selection in any order maps back
// to the same slug.
func requestHash(queryHash string, resources []string, version *int64) string {
	ids := make([]string, 0, len(resources))
	seen := make(map[string]struct{}, len(resources))
	for _, id := range resources {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	sort.Strings(ids)

	h := xxhash.New()
	h.Write([]byte(queryHash))
	h.Write([]byte{0})
	h.Write([]byte(strings.Join(ids, ",")))
	h.Write([]byte{0})
	if version != nil {
		h.Write([]byte(strconv.FormatInt(*version, 10)))
	}
	return fmt.Sprintf("%016x", h.Sum64())
}
