package slug

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/kailas-cloud/multidex/internal/domain"
	slugrepo "github.com/kailas-cloud/multidex/internal/repository/slug"
)

// mockRepo is an in-memory Repository.
type mockRepo struct {
	slugs  map[string]slugrepo.Record
	hashes map[string]string
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		slugs:  make(map[string]slugrepo.Record),
		hashes: make(map[string]string),
	}
}

func (m *mockRepo) Save(_ context.Context, name string, rec slugrepo.Record) error {
	m.slugs[name] = rec
	return nil
}

func (m *mockRepo) Find(_ context.Context, name string) (slugrepo.Record, error) {
	rec, ok := m.slugs[name]
	if !ok {
		return slugrepo.Record{}, domain.ErrSlugNotFound
	}
	return rec, nil
}

func (m *mockRepo) Exists(_ context.Context, name string) (bool, error) {
	_, ok := m.slugs[name]
	return ok, nil
}

func (m *mockRepo) SlugForHash(_ context.Context, hash string) (string, error) {
	return m.hashes[hash], nil
}

func (m *mockRepo) SaveHash(_ context.Context, hash, name string) error {
	m.hashes[hash] = name
	return nil
}

// mockHasher hashes by a fixed mapping so tests control equality.
type mockHasher struct {
	err error
}

func (m *mockHasher) HashQuery(_ context.Context, doc map[string]any, versionTag string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	if s, ok := doc["search"].(string); ok {
		return "hash-" + s + "-" + versionTag, nil
	}
	return "hash-empty-" + versionTag, nil
}

func newTestService(repo Repository) *Service {
	svc := New(repo, &mockHasher{})
	svc.pick = func(int) int { return 0 }
	return svc
}

var prettyPattern = regexp.MustCompile(`^[a-z]+-[a-z]+-[a-z]+$`)

func TestCreate_PrettySlug(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)

	got, err := svc.Create(context.Background(), CreateRequest{
		Query:      map[string]any{"search": "panda"},
		PrettySlug: true,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !got.IsNew {
		t.Error("IsNew = false, want true for first creation")
	}
	if !prettyPattern.MatchString(got.Name) {
		t.Errorf("Name = %q, want adjective-adjective-animal", got.Name)
	}
	if _, ok := repo.slugs[got.Name]; !ok {
		t.Error("slug record was not saved")
	}
}

func TestCreate_IdempotentPerParameters(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	req := CreateRequest{Query: map[string]any{"search": "panda"}, PrettySlug: true}

	first, err := svc.Create(context.Background(), req)
	if err != nil {
		t.Fatalf("first Create: %v", err)
	}
	second, err := svc.Create(context.Background(), req)
	if err != nil {
		t.Fatalf("second Create: %v", err)
	}
	if second.Name != first.Name {
		t.Errorf("second Name = %q, want %q", second.Name, first.Name)
	}
	if second.IsNew {
		t.Error("second IsNew = true, want false")
	}
}

func TestCreate_DistinctParametersGetDistinctSlugs(t *testing.T) {
	repo := newMockRepo()
	svc := New(repo, &mockHasher{})

	a, err := svc.Create(context.Background(), CreateRequest{
		Query: map[string]any{"search": "panda"}, PrettySlug: false,
	})
	if err != nil {
		t.Fatalf("Create(a): %v", err)
	}
	version := int64(1700000000000)
	b, err := svc.Create(context.Background(), CreateRequest{
		Query: map[string]any{"search": "panda"}, Version: &version, PrettySlug: false,
	})
	if err != nil {
		t.Fatalf("Create(b): %v", err)
	}
	if a.Name == b.Name {
		t.Error("version-pinned request must not reuse the unpinned slug")
	}
}

func TestCreate_ResourceOrderDoesNotMintNewSlug(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)

	first, err := svc.Create(context.Background(), CreateRequest{
		Query:     map[string]any{"search": "panda"},
		Resources: []string{"birds", "mammals"},
	})
	if err != nil {
		t.Fatalf("first Create: %v", err)
	}
	second, err := svc.Create(context.Background(), CreateRequest{
		Query:     map[string]any{"search": "panda"},
		Resources: []string{"mammals", "birds", "birds"},
	})
	if err != nil {
		t.Fatalf("second Create: %v", err)
	}
	if second.Name != first.Name {
		t.Errorf("reordered resources minted %q, want %q", second.Name, first.Name)
	}
	if second.IsNew {
		t.Error("second IsNew = true, want false for the same selection")
	}
}

func TestCreate_UUIDWhenNotPretty(t *testing.T) {
	svc := newTestService(newMockRepo())

	got, err := svc.Create(context.Background(), CreateRequest{PrettySlug: false})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if prettyPattern.MatchString(got.Name) {
		t.Errorf("Name = %q, want uuid form", got.Name)
	}
	if len(got.Name) != 36 {
		t.Errorf("Name length = %d, want 36", len(got.Name))
	}
}

func TestCreate_CollisionFallsBackToUUID(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	// pick is pinned to 0, so every pretty attempt yields the same name.
	collider := adjectives[0] + "-" + adjectives[0] + "-" + animals[0]
	repo.slugs[collider] = slugrepo.Record{}

	got, err := svc.Create(context.Background(), CreateRequest{
		Query: map[string]any{"search": "panda"}, PrettySlug: true,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if got.Name == collider {
		t.Error("minted a taken slug")
	}
	if len(got.Name) != 36 {
		t.Errorf("Name = %q, want uuid fallback", got.Name)
	}
}

func TestCreate_HasherErrorPropagates(t *testing.T) {
	svc := New(newMockRepo(), &mockHasher{err: domain.NewSchemaViolation("/", "bad")})

	_, err := svc.Create(context.Background(), CreateRequest{})
	if !errors.Is(err, domain.ErrSchemaViolation) {
		t.Errorf("error = %v, want ErrSchemaViolation", err)
	}
}

func TestResolve(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)

	created, err := svc.Create(context.Background(), CreateRequest{
		Query:     map[string]any{"search": "panda"},
		Resources: []string{"birds"},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	rec, err := svc.Resolve(context.Background(), created.Name)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if rec.Query["search"] != "panda" {
		t.Errorf("Query = %v, want search=panda", rec.Query)
	}
	if len(rec.Resources) != 1 || rec.Resources[0] != "birds" {
		t.Errorf("Resources = %v, want [birds]", rec.Resources)
	}

	if _, err := svc.Resolve(context.Background(), "missing"); !errors.Is(err, domain.ErrSlugNotFound) {
		t.Errorf("error = %v, want ErrSlugNotFound", err)
	}
}
