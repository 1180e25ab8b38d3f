package slug

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/multidex/internal/db"
	"github.com/kailas-cloud/multidex/internal/domain"
)

// mockStore is an in-memory KV backing for tests.
type mockStore struct {
	data  map[string][]byte
	getFn func(ctx context.Context, key string) ([]byte, error)
}

func newMockStore() *mockStore {
	return &mockStore{data: make(map[string][]byte)}
}

func (m *mockStore) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	data, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return data, nil
}

func (m *mockStore) Set(_ context.Context, key string, value []byte) error {
	m.data[key] = value
	return nil
}

func (m *mockStore) Exists(_ context.Context, key string) (bool, error) {
	_, ok := m.data[key]
	return ok, nil
}

func TestSaveAndFind(t *testing.T) {
	ms := newMockStore()
	repo := New(ms, "mdx:")

	version := int64(1700000000000)
	rec := Record{
		Query:     map[string]any{"search": "panda"},
		Resources: []string{"birds", "mammals"},
		VersionTS: &version,
		CreatedAt: 1700000001000,
	}
	if err := repo.Save(context.Background(), "quirky-heron", rec); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := repo.Find(context.Background(), "quirky-heron")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if got.Query["search"] != "panda" {
		t.Errorf("Query = %v, want search=panda", got.Query)
	}
	if len(got.Resources) != 2 {
		t.Errorf("Resources = %v, want 2 entries", got.Resources)
	}
	if got.VersionTS == nil || *got.VersionTS != version {
		t.Errorf("VersionTS = %v, want %d", got.VersionTS, version)
	}
}

func TestFind_MissingSlug(t *testing.T) {
	repo := New(newMockStore(), "mdx:")

	_, err := repo.Find(context.Background(), "no-such-slug")
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, domain.ErrSlugNotFound) {
		t.Errorf("error = %v, want ErrSlugNotFound", err)
	}
}

func TestFind_StoreErrorIsNotSlugNotFound(t *testing.T) {
	ms := newMockStore()
	ms.getFn = func(context.Context, string) ([]byte, error) {
		return nil, errors.New("connection refused")
	}
	repo := New(ms, "mdx:")

	_, err := repo.Find(context.Background(), "quirky-heron")
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, domain.ErrSlugNotFound) {
		t.Error("store failure must not masquerade as a missing slug")
	}
}

func TestHashRoundTrip(t *testing.T) {
	repo := New(newMockStore(), "mdx:")

	got, err := repo.SlugForHash(context.Background(), "abc123")
	if err != nil {
		t.Fatalf("SlugForHash: %v", err)
	}
	if got != "" {
		t.Errorf("SlugForHash on empty store = %q, want empty", got)
	}

	if err := repo.SaveHash(context.Background(), "abc123", "quirky-heron"); err != nil {
		t.Fatalf("SaveHash: %v", err)
	}
	got, err = repo.SlugForHash(context.Background(), "abc123")
	if err != nil {
		t.Fatalf("SlugForHash: %v", err)
	}
	if got != "quirky-heron" {
		t.Errorf("SlugForHash = %q, want quirky-heron", got)
	}
}

func TestExists(t *testing.T) {
	repo := New(newMockStore(), "mdx:")

	ok, err := repo.Exists(context.Background(), "quirky-heron")
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if ok {
		t.Error("Exists = true for absent slug")
	}

	if err := repo.Save(context.Background(), "quirky-heron", Record{}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	ok, err = repo.Exists(context.Background(), "quirky-heron")
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if !ok {
		t.Error("Exists = false for saved slug")
	}
}
