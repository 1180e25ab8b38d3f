package multisearch

import (
	"context"

	"github.com/kailas-cloud/multidex/internal/domain/query"
)

// resolveAreas rewrites every geo_named_area term into a geo_custom_area
// carrying the resolved boundary, so emission never needs the reference
// datasets. The input tree is left untouched; a rewritten copy is returned
// only when the query actually contains named areas.
func (s *Service) resolveAreas(ctx context.Context, q query.Query) (query.Query, error) {
	if q.Filters() == nil {
		return q, nil
	}
	g, changed, err := s.resolveGroup(ctx, q.Filters())
	if err != nil {
		return query.Query{}, err
	}
	if !changed {
		return q, nil
	}
	return query.New(q.Search(), g), nil
}

func (s *Service) resolveGroup(ctx context.Context, g *query.Group) (*query.Group, bool, error) {
	members := make([]query.Node, len(g.Members()))
	changed := false
	for i, member := range g.Members() {
		switch n := member.(type) {
		case *query.Group:
			nested, nestedChanged, err := s.resolveGroup(ctx, n)
			if err != nil {
				return nil, false, err
			}
			members[i] = nested
			changed = changed || nestedChanged

		case *query.GeoNamedArea:
			boundary, err := s.areas.Resolve(ctx, n.Kind(), n.Name())
			if err != nil {
				return nil, false, err
			}
			term, err := query.NewGeoCustomArea(boundary)
			if err != nil {
				return nil, false, err
			}
			members[i] = term
			changed = true

		default:
			members[i] = member
		}
	}
	if !changed {
		return g, false, nil
	}
	rewritten, err := query.NewGroup(g.Kind(), members)
	if err != nil {
		return nil, false, err
	}
	return rewritten, true, nil
}
