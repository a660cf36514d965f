// Package engine is the in-memory core of the bonus board: it joins records
// with the distributor directory, aggregates them, derives the pivot table and
// keeps a live projection consistent with change feed events.
//
// Nothing in this package performs I/O.
package engine

import (
	"github.com/distributor-bonus-ledger/internal/domain/bonus"
	"github.com/distributor-bonus-ledger/internal/domain/distributor"
)

// Lookup indexes directory entries by distributor id.
type Lookup map[string]distributor.Distributor

// NewLookup builds the index once. Later entries win on duplicate ids.
func NewLookup(entries []distributor.Distributor) Lookup {
	lookup := make(Lookup, len(entries))
	for _, e := range entries {
		lookup[e.ID] = e
	}
	return lookup
}

// Enrich joins a single record. A missing distributor yields "Unknown" name and
// position and a nil group; empty directory attributes are treated the same way.
func (l Lookup) Enrich(rec bonus.Record) bonus.EnrichedRecord {
	enriched := bonus.EnrichedRecord{
		Record:         rec,
		EntityName:     bonus.UnknownLabel,
		EntityPosition: bonus.UnknownLabel,
	}

	d, ok := l[rec.DistributorID]
	if !ok {
		return enriched
	}
	if d.Name != "" {
		enriched.EntityName = d.Name
	}
	if d.Position != "" {
		enriched.EntityPosition = d.Position
	}
	if d.GroupKey != "" {
		group := d.GroupKey
		enriched.GroupKey = &group
	}
	return enriched
}

// Join enriches every record in O(records + directory).
func Join(records []bonus.Record, directory []distributor.Distributor) []bonus.EnrichedRecord {
	return JoinWithLookup(records, NewLookup(directory))
}

// JoinWithLookup enriches records against a prebuilt index, keeping input order.
func JoinWithLookup(records []bonus.Record, lookup Lookup) []bonus.EnrichedRecord {
	out := make([]bonus.EnrichedRecord, len(records))
	for i, rec := range records {
		out[i] = lookup.Enrich(rec)
	}
	return out
}

// DistributorIDs returns the distinct distributor ids of records in first-seen order.
func DistributorIDs(records []bonus.Record) []string {
	seen := make(map[string]struct{}, len(records))
	ids := make([]string, 0, len(records))
	for _, rec := range records {
		if _, ok := seen[rec.DistributorID]; ok {
			continue
		}
		seen[rec.DistributorID] = struct{}{}
		ids = append(ids, rec.DistributorID)
	}
	return ids
}
