package engine

import (
	"sync"

	"github.com/distributor-bonus-ledger/internal/domain/bonus"
	"github.com/distributor-bonus-ledger/internal/domain/distributor"
)

// View is a snapshot of a projection, handed back by every mutating call.
type View struct {
	Seq       uint64                 `json:"seq"`
	Filter    bonus.Filter           `json:"-"`
	Records   []bonus.EnrichedRecord `json:"records"`
	Summary   AggregateSummary       `json:"summary"`
	Groups    []GroupSummary         `json:"groups"`
	Truncated bool                   `json:"truncated"`
}

// Projection is the live, ordered set of enriched records of the last applied
// fetch. All methods are safe for concurrent use; mutations are serialised and
// never wait on I/O.
//
// Every record held has passed bonus.Record.Validate, so the derived summaries
// in a View are always defined.
type Projection struct {
	mu sync.Mutex

	issued  uint64 // last sequence handed out by BeginFetch
	applied uint64 // sequence of the fetch currently shown

	filter    bonus.Filter
	records   []bonus.EnrichedRecord
	lookup    Lookup
	truncated bool
}

// NewProjection returns an empty projection. Events are ignored until the first
// fetch is applied.
func NewProjection() *Projection {
	return &Projection{lookup: Lookup{}}
}

// BeginFetch hands out the sequence number a fetch must present to Replace.
func (p *Projection) BeginFetch() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.issued++
	return p.issued
}

// Replace installs a completed fetch. A result whose sequence is not newer than
// the one already shown arrived out of order and is discarded. An invalid record
// rejects the whole result and leaves the projection untouched.
func (p *Projection) Replace(seq uint64, filter bonus.Filter, records []bonus.EnrichedRecord, lookup Lookup, truncated bool) (View, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if seq <= p.applied {
		return p.viewLocked(), false, nil
	}
	if err := validateAll(records); err != nil {
		return p.viewLocked(), false, err
	}

	p.applied = seq
	if seq > p.issued {
		p.issued = seq
	}
	p.filter = filter
	p.records = append(make([]bonus.EnrichedRecord, 0, len(records)), records...)
	p.lookup = make(Lookup, len(lookup))
	for id, d := range lookup {
		p.lookup[id] = d
	}
	p.truncated = truncated

	return p.viewLocked(), true, nil
}

// OnInsert enriches rec from the cached lookup and puts it at the head. Records
// outside the last fetch's filter are ignored; a stale copy with the same id is
// replaced.
func (p *Projection) OnInsert(rec bonus.Record) (View, bool, error) {
	if err := rec.Validate(); err != nil {
		return p.View(), false, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.applied == 0 {
		return p.viewLocked(), false, nil
	}
	enriched := p.lookup.Enrich(rec)
	if !p.filter.Matches(enriched) {
		return p.viewLocked(), false, nil
	}

	out := make([]bonus.EnrichedRecord, 0, len(p.records)+1)
	out = append(out, enriched)
	for _, r := range p.records {
		if r.ID != rec.ID {
			out = append(out, r)
		}
	}
	p.records = out

	return p.viewLocked(), true, nil
}

// OnUpdate replaces the record with rec's id in place. Updates for records not
// in the projection are dropped. Unlike OnInsert the filter is not re-applied:
// a record whose date or group moves outside the window stays until the next
// Replace.
func (p *Projection) OnUpdate(rec bonus.Record) (View, bool, error) {
	if err := rec.Validate(); err != nil {
		return p.View(), false, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	idx := p.indexLocked(rec.ID)
	if idx < 0 {
		return p.viewLocked(), false, nil
	}

	out := make([]bonus.EnrichedRecord, len(p.records))
	copy(out, p.records)
	out[idx] = p.lookup.Enrich(rec)
	p.records = out

	return p.viewLocked(), true, nil
}

// OnDelete removes the record with the given id, if present.
func (p *Projection) OnDelete(id int64) (View, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	idx := p.indexLocked(id)
	if idx < 0 {
		return p.viewLocked(), false
	}

	out := make([]bonus.EnrichedRecord, 0, len(p.records)-1)
	out = append(out, p.records[:idx]...)
	out = append(out, p.records[idx+1:]...)
	p.records = out

	return p.viewLocked(), true
}

// Remember adds directory entries to the cached lookup used by later events.
func (p *Projection) Remember(entries ...distributor.Distributor) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, e := range entries {
		p.lookup[e.ID] = e
	}
}

// Distributor returns a cached directory entry.
func (p *Projection) Distributor(id string) (distributor.Distributor, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	d, ok := p.lookup[id]
	return d, ok
}

// View returns the current snapshot.
func (p *Projection) View() View {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.viewLocked()
}

func (p *Projection) indexLocked(id int64) int {
	for i, r := range p.records {
		if r.ID == id {
			return i
		}
	}
	return -1
}

// viewLocked copies state out; callers must hold mu.
func (p *Projection) viewLocked() View {
	records := make([]bonus.EnrichedRecord, len(p.records))
	copy(records, p.records)
	return View{
		Seq:       p.applied,
		Filter:    p.filter,
		Records:   records,
		Summary:   totals(records),
		Groups:    groupTotals(records),
		Truncated: p.truncated,
	}
}
