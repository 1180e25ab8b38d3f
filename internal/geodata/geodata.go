// Package geodata resolves named geographic areas (countries, marine regions,
// physical geography) to boundary geometries. Datasets are GeoJSON
// FeatureCollections on disk, one file per area kind; feature geometries are
// decoded lazily and kept in a bounded LRU cache.
package geodata

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/kailas-cloud/multidex/internal/domain"
	querygeo "github.com/kailas-cloud/multidex/internal/domain/query/geo"
)

// DefaultCacheSize bounds the number of decoded geometries kept in memory.
// Country boundaries run to megabytes each, so this stays small.
const DefaultCacheSize = 64

// Resolver maps a named area to its boundary geometry.
type Resolver interface {
	Resolve(ctx context.Context, kind querygeo.AreaKind, name string) (*geom.MultiPolygon, error)
}

// datasetFiles maps each area kind to its GeoJSON file within the data dir.
var datasetFiles = map[querygeo.AreaKind]string{
	querygeo.AreaCountry:   "country.geojson",
	querygeo.AreaMarine:    "marine.geojson",
	querygeo.AreaGeography: "geography.geojson",
}

// FileResolver implements Resolver over GeoJSON files. The per-kind name
// index is built on first use; geometries decode on demand.
type FileResolver struct {
	dir   string
	cache *lru.Cache[string, *geom.MultiPolygon]

	mu    sync.Mutex
	names map[querygeo.AreaKind]map[string]json.RawMessage
}

// NewFileResolver creates a resolver over the given dataset directory.
// cacheSize <= 0 selects DefaultCacheSize.
func NewFileResolver(dir string, cacheSize int) (*FileResolver, error) {
	if dir == "" {
		return nil, fmt.Errorf("geodata dir is required")
	}
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[string, *geom.MultiPolygon](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create geometry cache: %w", err)
	}
	return &FileResolver{
		dir:   dir,
		cache: cache,
		names: make(map[querygeo.AreaKind]map[string]json.RawMessage),
	}, nil
}

// Resolve returns the boundary for a named area. Name matching is
// case-insensitive; an unknown name within a loaded dataset is UnknownArea.
func (r *FileResolver) Resolve(_ context.Context, kind querygeo.AreaKind, name string) (*geom.MultiPolygon, error) {
	key := string(kind) + ":" + strings.ToLower(name)
	if mp, ok := r.cache.Get(key); ok {
		return mp, nil
	}

	raw, err := r.lookup(kind, strings.ToLower(name))
	if err != nil {
		return nil, err
	}

	mp, err := decodeBoundary(raw)
	if err != nil {
		return nil, fmt.Errorf("decode %s boundary %q: %w", kind, name, err)
	}
	r.cache.Add(key, mp)
	return mp, nil
}

func (r *FileResolver) lookup(kind querygeo.AreaKind, lowerName string) (json.RawMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	index, ok := r.names[kind]
	if !ok {
		loaded, err := r.loadIndex(kind)
		if err != nil {
			return nil, err
		}
		r.names[kind] = loaded
		index = loaded
	}

	raw, ok := index[lowerName]
	if !ok {
		return nil, domain.NewUnknownArea(string(kind), lowerName)
	}
	return raw, nil
}

// loadIndex reads a dataset file and indexes raw feature geometries by
// lowercased name. Geometries stay undecoded until a query asks for them.
func (r *FileResolver) loadIndex(kind querygeo.AreaKind) (map[string]json.RawMessage, error) {
	file, ok := datasetFiles[kind]
	if !ok {
		return nil, fmt.Errorf("no dataset for area kind %q", kind)
	}

	data, err := os.ReadFile(filepath.Join(r.dir, file))
	if err != nil {
		return nil, fmt.Errorf("load %s dataset: %w", kind, err)
	}

	var fc struct {
		Features []struct {
			Properties map[string]any  `json:"properties"`
			Geometry   json.RawMessage `json:"geometry"`
		} `json:"features"`
	}
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse %s dataset: %w", kind, err)
	}

	index := make(map[string]json.RawMessage, len(fc.Features))
	for _, feature := range fc.Features {
		name, _ := feature.Properties["name"].(string)
		if name == "" || len(feature.Geometry) == 0 {
			continue
		}
		index[strings.ToLower(name)] = feature.Geometry
	}
	return index, nil
}

// HealthCheck verifies the dataset directory is present and readable.
func (r *FileResolver) HealthCheck(_ context.Context) error {
	info, err := os.Stat(r.dir)
	if err != nil {
		return fmt.Errorf("geodata dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("geodata path %s is not a directory", r.dir)
	}
	return nil
}

// decodeBoundary parses a GeoJSON geometry, promoting a bare Polygon to a
// single-member MultiPolygon.
func decodeBoundary(raw json.RawMessage) (*geom.MultiPolygon, error) {
	var g geom.T
	if err := geojson.Unmarshal(raw, &g); err != nil {
		return nil, err
	}
	switch shape := g.(type) {
	case *geom.MultiPolygon:
		return shape, nil
	case *geom.Polygon:
		mp := geom.NewMultiPolygon(shape.Layout())
		if err := mp.Push(shape); err != nil {
			return nil, err
		}
		return mp, nil
	default:
		return nil, fmt.Errorf("unsupported geometry type %T", g)
	}
}
