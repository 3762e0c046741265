package storage

import (
	"sort"
	"sync/atomic"
	"time"

	"ruraldata/internal/core"
)

// Generation identifies one immutable load of the source extract.
type Generation struct {
	ID          string    `json:"id"`
	SourceFile  string    `json:"source_file"`
	RecordCount int       `json:"record_count"`
	LoadedAt    time.Time `json:"loaded_at"`
}

// Snapshot is one fully loaded record generation held in memory. It is
// immutable after construction and safe for concurrent readers. Queries in
// flight keep evaluating the snapshot they started with even while a newer
// generation is being published.
type Snapshot struct {
	Generation Generation
	Records    []core.InvestmentRecord

	// distinct normalized values per categorical field, with the first-seen
	// raw spelling kept for display
	catalogs map[string]map[string]string
}

// NewSnapshot builds a snapshot and its categorical distinct-value catalogs.
// Records must already be in stable row order.
func NewSnapshot(gen Generation, records []core.InvestmentRecord) *Snapshot {
	s := &Snapshot{
		Generation: gen,
		Records:    records,
		catalogs:   make(map[string]map[string]string),
	}
	for _, f := range core.SchemaFields() {
		if f.Kind != core.KindCategorical {
			continue
		}
		s.catalogs[f.Name] = make(map[string]string)
	}
	for i := range records {
		for name, values := range s.catalogs {
			raw, ok := records[i].StringField(name)
			if !ok || raw == "" {
				continue
			}
			norm := core.Normalize(raw)
			if _, seen := values[norm]; !seen {
				values[norm] = raw
			}
		}
	}
	return s
}

// HasCategoryValue implements filter.Catalog.
func (s *Snapshot) HasCategoryValue(field, normalized string) bool {
	values, ok := s.catalogs[field]
	if !ok {
		return false
	}
	_, ok = values[normalized]
	return ok
}

// DistinctValues returns the stored distinct values of a categorical field in
// their first-seen spelling, sorted. Unknown or non-categorical fields yield
// nil.
func (s *Snapshot) DistinctValues(field string) []string {
	values, ok := s.catalogs[field]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, raw := range values {
		out = append(out, raw)
	}
	sort.Strings(out)
	return out
}

// Handle publishes the active snapshot to readers. Publication is atomic:
// a reader sees either the previous complete generation or the new one,
// never a mix.
type Handle struct {
	ptr atomic.Pointer[Snapshot]
}

// Publish atomically replaces the active snapshot.
func (h *Handle) Publish(s *Snapshot) {
	h.ptr.Store(s)
}

// Current returns the active snapshot, or a store_unavailable error when no
// generation has been loaded yet.
func (h *Handle) Current() (*Snapshot, error) {
	s := h.ptr.Load()
	if s == nil {
		return nil, core.NewStoreUnavailable("no record generation loaded")
	}
	return s, nil
}
