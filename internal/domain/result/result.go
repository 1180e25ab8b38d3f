// Package result holds the merged output of a multisearch execution.
package result

// Record is a single matched record with the resource it came from.
type Record struct {
	resource string
	data     map[string]any
	seq      float64
	recordID string
}

// NewRecord creates a record hit. seq and recordID carry the sort position
// used for merging and cursor construction.
func NewRecord(resource string, data map[string]any, seq float64, recordID string) Record {
	return Record{resource: resource, data: data, seq: seq, recordID: recordID}
}

// Resource returns the id of the resource the record belongs to.
func (r Record) Resource() string { return r.resource }

// Data returns the record fields.
func (r Record) Data() map[string]any { return r.data }

// Seq returns the per-resource sort sequence value (descending order).
func (r Record) Seq() float64 { return r.seq }

// RecordID returns the record's id within its resource.
func (r Record) RecordID() string { return r.recordID }

// ResourceCount is a per-resource hit count for the top_resources aggregation.
type ResourceCount struct {
	Resource string
	Count    int
}

// Failure records a resource that could not be searched. The request still
// succeeds; failed resources are reported, never silently dropped.
type Failure struct {
	Resource string
	Err      error
}

// Page is one externally-ordered page of merged results.
type Page struct {
	Records []Record
	Total   int
	After   []any
	// SkippedResources lists requested resource ids that are not searchable.
	SkippedResources []string
	// FailedResources lists resources degraded out of this response.
	FailedResources []Failure
	// TopResources holds the 10 largest per-resource counts when requested.
	TopResources []ResourceCount
}
