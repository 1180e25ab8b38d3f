// Package slug persists shareable references to saved searches. A slug maps
// to the full request that created it; a secondary hash key makes slug
// creation idempotent per distinct request.
package slug

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kailas-cloud/multidex/internal/db"
	"github.com/kailas-cloud/multidex/internal/domain"
)

// Record is the saved request a slug resolves back to.
type Record struct {
	Query     map[string]any `json:"query"`
	Version   string         `json:"query_version,omitempty"`
	Resources []string       `json:"resource_ids,omitempty"`
	// VersionTS is the snapshot timestamp in epoch milliseconds, if pinned.
	VersionTS *int64 `json:"version,omitempty"`
	CreatedAt int64  `json:"created_at"`
}

// store is the consumer interface for slug operations (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Exists(ctx context.Context, key string) (bool, error)
}

// Repo implements slug storage on the KV store.
type Repo struct {
	store  store
	prefix string
}

// New creates a slug repository.
func New(s store, prefix string) *Repo {
	return &Repo{store: s, prefix: prefix}
}

// Save persists a slug record.
func (r *Repo) Save(ctx context.Context, name string, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode slug %s: %w", name, err)
	}
	if err := r.store.Set(ctx, r.slugKey(name), data); err != nil {
		return fmt.Errorf("save slug %s: %w", name, err)
	}
	return nil
}

// Find resolves a slug back to its saved request.
func (r *Repo) Find(ctx context.Context, name string) (Record, error) {
	data, err := r.store.Get(ctx, r.slugKey(name))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return Record{}, fmt.Errorf("%w: %s", domain.ErrSlugNotFound, name)
		}
		return Record{}, fmt.Errorf("find slug %s: %w", name, err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("decode slug %s: %w", name, err)
	}
	return rec, nil
}

// Exists reports whether a slug name is taken.
func (r *Repo) Exists(ctx context.Context, name string) (bool, error) {
	ok, err := r.store.Exists(ctx, r.slugKey(name))
	if err != nil {
		return false, fmt.Errorf("check slug %s: %w", name, err)
	}
	return ok, nil
}

// SlugForHash returns the slug previously created for a request hash, or ""
// when the hash is new.
func (r *Repo) SlugForHash(ctx context.Context, hash string) (string, error) {
	data, err := r.store.Get(ctx, r.hashKey(hash))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("lookup slug hash %s: %w", hash, err)
	}
	return string(data), nil
}

// SaveHash records the slug created for a request hash.
func (r *Repo) SaveHash(ctx context.Context, hash, name string) error {
	if err := r.store.Set(ctx, r.hashKey(hash), []byte(name)); err != nil {
		return fmt.Errorf("save slug hash %s: %w", hash, err)
	}
	return nil
}

func (r *Repo) slugKey(name string) string {
	return r.prefix + "slug:" + name
}

func (r *Repo) hashKey(hash string) string {
	return r.prefix + "slughash:" + hash
}
