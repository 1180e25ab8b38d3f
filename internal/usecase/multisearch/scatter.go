package multisearch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/kailas-cloud/multidex/internal/db"
	"github.com/kailas-cloud/multidex/internal/domain"
	"github.com/kailas-cloud/multidex/internal/domain/cursor"
	"github.com/kailas-cloud/multidex/internal/domain/plan"
	"github.com/kailas-cloud/multidex/internal/domain/result"
	"github.com/kailas-cloud/multidex/internal/emitter"
)

// gathered is the outcome of one per-resource query. Either records+total or
// err is set.
type gathered struct {
	resource string
	records  []result.Record
	total    int
	err      error
}

// scatter fans one backend query out per resource and waits for all of them.
// Results come back in plan resource order.
func (s *Service) scatter(ctx context.Context, p plan.Plan, version int64) []gathered {
	out := make([]gathered, len(p.Resources()))

	var wg sync.WaitGroup
	for i, resource := range p.Resources() {
		wg.Add(1)
		go func(i int, resource string) {
			defer wg.Done()
			out[i] = s.searchResource(ctx, p, version, resource)
		}(i, resource)
	}
	wg.Wait()

	return out
}

func (s *Service) searchResource(ctx context.Context, p plan.Plan, version int64, resource string) gathered {
	if pinned, ok := p.VersionFor(resource); ok {
		version = pinned
	}

	var resume *cursor.Position
	if pos, ok := p.After()[resource]; ok {
		resume = &pos
	}
	var seqBound *float64
	if resume != nil {
		seqBound = &resume.Seq
	}

	emitted, err := emitter.Emit(p.Query(), version, seqBound)
	if err != nil {
		return gathered{resource: resource, err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	// size+1 so the merge can tell a full last page from a continued one. The
	// resume bound is inclusive, so when resuming the window also holds the
	// boundary record itself.
	want := p.Size() + 1
	limit := want
	if resume != nil {
		limit = want + 1
	}

	var (
		records = make([]result.Record, 0, want)
		total   int
		offset  int
	)
	for {
		res, err := s.searcher.Search(ctx, &db.SearchQuery{
			Index:  s.catalog.IndexFor(resource),
			Query:  emitted.Query,
			Params: emitted.Params,
			SortBy: emitter.AttrSeq,
			Offset: offset,
			Limit:  limit,
		})
		if err != nil {
			return gathered{resource: resource, err: classify(err)}
		}
		total = res.Total

		for _, entry := range res.Entries {
			rec, err := parseRecord(resource, entry)
			if err != nil {
				return gathered{resource: resource, err: fmt.Errorf("%w: %v", domain.ErrBackendUnavailable, err)}
			}
			// Records at the boundary sequence that were already returned
			// come back again; drop everything not strictly after the
			// resume position.
			if resume != nil && !strictlyAfter(rec, *resume) {
				continue
			}
			records = append(records, rec)
		}

		if len(records) >= want || len(res.Entries) < limit {
			break
		}
		offset += len(res.Entries)
	}

	// The backend sorts on the sequence only; order ties by record id so the
	// merge consumes every stream in the total order.
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].Seq() != records[j].Seq() {
			return records[i].Seq() > records[j].Seq()
		}
		return records[i].RecordID() > records[j].RecordID()
	})

	return gathered{resource: resource, records: records, total: total}
}

// strictlyAfter reports whether rec comes after pos in the descending
// (sequence, record id) order, i.e. has not been returned yet.
func strictlyAfter(rec result.Record, pos cursor.Position) bool {
	if rec.Seq() != pos.Seq {
		return rec.Seq() < pos.Seq
	}
	return rec.RecordID() < pos.RecordID
}

// classify maps a per-resource failure onto the degradation taxonomy.
func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", domain.ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", domain.ErrBackendUnavailable, err)
}

func parseRecord(resource string, entry db.SearchEntry) (result.Record, error) {
	raw, ok := entry.Fields[emitter.AttrData]
	if !ok {
		return result.Record{}, fmt.Errorf("record %s missing %s", entry.Key, emitter.AttrData)
	}
	var data map[string]any
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return result.Record{}, fmt.Errorf("record %s: decode %s: %w", entry.Key, emitter.AttrData, err)
	}

	seqStr, ok := entry.Fields[emitter.AttrSeq]
	if !ok {
		return result.Record{}, fmt.Errorf("record %s missing %s", entry.Key, emitter.AttrSeq)
	}
	seq, err := strconv.ParseFloat(seqStr, 64)
	if err != nil {
		return result.Record{}, fmt.Errorf("record %s: parse %s: %w", entry.Key, emitter.AttrSeq, err)
	}

	return result.NewRecord(resource, data, seq, entry.Fields[emitter.AttrRecordID]), nil
}
