package engine

import (
	"sort"
	"strings"

	"github.com/distributor-bonus-ledger/internal/domain/bonus"
)

// AggregateSummary holds the paid and unpaid totals of a record set.
type AggregateSummary struct {
	TotalPaid   int64 `json:"total_paid"`
	TotalUnpaid int64 `json:"total_unpaid"`
}

// GroupSummary is the running total of one group. Records without a group are
// reported under "Unknown".
type GroupSummary struct {
	GroupKey    string `json:"group_key"`
	TotalPaid   int64  `json:"total_paid"`
	TotalUnpaid int64  `json:"total_unpaid"`
	Count       int    `json:"count"`
}

// SortByEntityName returns a sorted copy: distributor name ascending, then record id.
func SortByEntityName(records []bonus.EnrichedRecord) []bonus.EnrichedRecord {
	out := make([]bonus.EnrichedRecord, len(records))
	copy(out, records)
	sort.SliceStable(out, func(i, j int) bool {
		if c := strings.Compare(out[i].EntityName, out[j].EntityName); c != 0 {
			return c < 0
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// FilterByGroup keeps records of the given group. An empty group keeps everything,
// otherwise records without a group are dropped.
func FilterByGroup(records []bonus.EnrichedRecord, groupKey string) []bonus.EnrichedRecord {
	if groupKey == "" {
		return records
	}
	out := make([]bonus.EnrichedRecord, 0, len(records))
	for _, r := range records {
		if r.GroupKey != nil && *r.GroupKey == groupKey {
			out = append(out, r)
		}
	}
	return out
}

// Summarize totals records in one pass. Any record breaking the model invariants
// fails the whole summary with bonus.ErrDataIntegrity.
func Summarize(records []bonus.EnrichedRecord) (AggregateSummary, error) {
	if err := validateAll(records); err != nil {
		return AggregateSummary{}, err
	}
	return totals(records), nil
}

// SummarizeByGroup computes per-group totals ordered by group key.
func SummarizeByGroup(records []bonus.EnrichedRecord) ([]GroupSummary, error) {
	if err := validateAll(records); err != nil {
		return nil, err
	}
	return groupTotals(records), nil
}

func validateAll(records []bonus.EnrichedRecord) error {
	for _, r := range records {
		if err := r.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// totals assumes records were validated.
func totals(records []bonus.EnrichedRecord) AggregateSummary {
	var s AggregateSummary
	for _, r := range records {
		if r.Status == bonus.StatusPaid {
			s.TotalPaid += r.Amount
		} else {
			s.TotalUnpaid += r.Amount
		}
	}
	return s
}

func groupTotals(records []bonus.EnrichedRecord) []GroupSummary {
	index := make(map[string]*GroupSummary)
	for _, r := range records {
		key := bonus.UnknownLabel
		if r.GroupKey != nil {
			key = *r.GroupKey
		}
		g, ok := index[key]
		if !ok {
			g = &GroupSummary{GroupKey: key}
			index[key] = g
		}
		g.Count++
		if r.Status == bonus.StatusPaid {
			g.TotalPaid += r.Amount
		} else {
			g.TotalUnpaid += r.Amount
		}
	}

	out := make([]GroupSummary, 0, len(index))
	for _, g := range index {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GroupKey < out[j].GroupKey })
	return out
}
