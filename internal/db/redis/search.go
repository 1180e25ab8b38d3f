package redis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/multidex/internal/db"
)

// Search runs one FT.SEARCH against a single index. Queries always use
// DIALECT 2: parameterized geometry and ismissing() both require it.
func (s *Store) Search(ctx context.Context, q *db.SearchQuery) (*db.SearchResult, error) {
	if q.Index == "" {
		return nil, fmt.Errorf("index name is required")
	}
	if q.Offset < 0 || q.Limit < 0 {
		return nil, fmt.Errorf("offset and limit must be non-negative")
	}

	queryStr := q.Query
	if queryStr == "" {
		queryStr = "*"
	}

	args := []string{q.Index, queryStr}
	if q.SortBy != "" {
		args = append(args, "SORTBY", q.SortBy, "DESC")
	}
	args = append(args, "LIMIT", strconv.Itoa(q.Offset), strconv.Itoa(q.Limit))
	if len(q.Params) > 0 {
		args = append(args, "PARAMS", strconv.Itoa(len(q.Params)*2))
		for name, value := range q.Params {
			args = append(args, name, value)
		}
	}
	args = append(args, "DIALECT", "2")

	cmd := s.b().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		if isRedisErr(err, "no such index") || isRedisErr(err, "unknown index") {
			return nil, db.ErrIndexNotFound
		}
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	return parseSearchResult(raw)
}

// IndexInfo returns the schema attributes of one FT index, in declaration
// order.
func (s *Store) IndexInfo(ctx context.Context, index string) ([]db.IndexAttribute, error) {
	if index == "" {
		return nil, fmt.Errorf("index name is required")
	}

	cmd := s.b().Arbitrary("FT.INFO").Args(index).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		if isRedisErr(err, "no such index") || isRedisErr(err, "unknown index") {
			return nil, db.ErrIndexNotFound
		}
		return nil, &db.Error{Op: db.OpIndexInfo, Err: err}
	}

	// The reply is a flat key/value array; the "attributes" value is an array
	// of per-attribute key/value arrays.
	var attrs []db.IndexAttribute
	for i := 0; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil || key != "attributes" {
			continue
		}
		list, err := raw[i+1].ToArray()
		if err != nil {
			return nil, fmt.Errorf("parse attributes: %w", err)
		}
		for _, msg := range list {
			pairs, err := msg.ToArray()
			if err != nil {
				continue
			}
			var attr db.IndexAttribute
			for j := 0; j+1 < len(pairs); j += 2 {
				name, err := pairs[j].ToString()
				if err != nil {
					continue
				}
				value, err := pairs[j+1].ToString()
				if err != nil {
					continue
				}
				switch name {
				case "identifier":
					attr.Name = value
				case "type":
					attr.Type = value
				}
			}
			if attr.Name != "" {
				attrs = append(attrs, attr)
			}
		}
	}
	return attrs, nil
}

// ListIndexes returns the names of every FT index on the backend.
func (s *Store) ListIndexes(ctx context.Context) ([]string, error) {
	cmd := s.b().Arbitrary("FT._LIST").Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return nil, &db.Error{Op: db.OpListIndexes, Err: err}
	}

	names := make([]string, 0, len(raw))
	for _, msg := range raw {
		name, err := msg.ToString()
		if err != nil {
			continue
		}
		names = append(names, name)
	}
	return names, nil
}

func parseSearchResult(raw []rueidis.RedisMessage) (*db.SearchResult, error) {
	if len(raw) == 0 {
		return &db.SearchResult{}, nil
	}

	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}
	if total == 0 {
		return &db.SearchResult{Total: 0}, nil
	}

	entries := make([]db.SearchEntry, 0, (len(raw)-1)/2)
	// 2-stride: [total, key1, fields1, key2, fields2, ...]
	for i := 1; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}

		fields, err := raw[i+1].ToArray()
		if err != nil {
			continue
		}

		entries = append(entries, db.SearchEntry{
			Key:    key,
			Fields: parseFieldPairs(fields),
		})
	}

	return &db.SearchResult{Total: int(total), Entries: entries}, nil
}

func parseFieldPairs(fields []rueidis.RedisMessage) map[string]string {
	m := make(map[string]string, len(fields)/2)
	for j := 0; j+1 < len(fields); j += 2 {
		name, err := fields[j].ToString()
		if err != nil {
			continue
		}
		value, err := fields[j+1].ToString()
		if err != nil {
			continue
		}
		m[name] = value
	}
	return m
}
