package multisearch

import (
	"sort"

	"github.com/kailas-cloud/multidex/internal/domain/cursor"
	"github.com/kailas-cloud/multidex/internal/domain/plan"
	"github.com/kailas-cloud/multidex/internal/domain/result"
)

// mergePage k-way merges the per-resource result streams into one page
// ordered by (seq desc, record id desc, resource desc). Failed resources
// contribute nothing to the page but are reported on it.
func mergePage(p plan.Plan, streams []gathered) (*result.Page, error) {
	page := &result.Page{}

	heads := make([]int, len(streams))
	for _, g := range streams {
		if g.err != nil {
			page.FailedResources = append(page.FailedResources, result.Failure{
				Resource: g.resource,
				Err:      g.err,
			})
			continue
		}
		page.Total += g.total
	}

	// One extra merged record distinguishes a full last page from one with a
	// continuation.
	merged := make([]result.Record, 0, p.Size()+1)
	for len(merged) < p.Size()+1 {
		best := -1
		for i, g := range streams {
			if g.err != nil || heads[i] >= len(g.records) {
				continue
			}
			if best < 0 || after(g.records[heads[i]], streams[best].records[heads[best]]) {
				best = i
			}
		}
		if best < 0 {
			break
		}
		merged = append(merged, streams[best].records[heads[best]])
		heads[best]++
	}

	hasMore := len(merged) > p.Size()
	if hasMore {
		merged = merged[:p.Size()]
	}
	page.Records = merged

	// A count-only page (size 0) consumes nothing, so there is no position to
	// resume from; emitting the incoming cursor again would let a client loop
	// without progress.
	if hasMore && len(merged) > 0 {
		next := make(cursor.Cursor, len(p.After())+len(streams))
		for resource, pos := range p.After() {
			next[resource] = pos
		}
		for _, rec := range merged {
			// Records are seq-descending, so the last write per resource is
			// its resume position.
			next[rec.Resource()] = cursor.Position{Seq: rec.Seq(), RecordID: rec.RecordID()}
		}
		after, err := next.Encode()
		if err != nil {
			return nil, err
		}
		page.After = after
	}

	page.TopResources = topCounts(streams)
	return page, nil
}

// after reports whether record a sorts before record b in the external order:
// newer first, sequence ties broken by record id then resource id, both
// descending. The full tiebreak keeps pagination deterministic when many
// records share a modified timestamp.
func after(a, b result.Record) bool {
	if a.Seq() != b.Seq() {
		return a.Seq() > b.Seq()
	}
	if a.RecordID() != b.RecordID() {
		return a.RecordID() > b.RecordID()
	}
	return a.Resource() > b.Resource()
}

// topCounts returns the largest per-resource hit counts, capped at
// topResourcesLimit, ordered by count descending then resource ascending.
func topCounts(streams []gathered) []result.ResourceCount {
	counts := make([]result.ResourceCount, 0, len(streams))
	for _, g := range streams {
		if g.err != nil || g.total == 0 {
			continue
		}
		counts = append(counts, result.ResourceCount{Resource: g.resource, Count: g.total})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Resource < counts[j].Resource
	})
	if len(counts) > topResourcesLimit {
		counts = counts[:topResourcesLimit]
	}
	return counts
}
