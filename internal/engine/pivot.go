package engine

import (
	"sort"

	"github.com/distributor-bonus-ledger/internal/domain/bonus"
)

// PivotTable maps a date (YYYY-MM-DD) to per-group totals.
type PivotTable struct {
	Rows map[string]map[string]int64 `json:"rows"`
}

// BuildPivot folds triples into a date x group table. Duplicate (date, group)
// pairs keep the last value. When knownGroupKeys is non-empty every date row is
// pre-filled with a zero for each of them.
func BuildPivot(triples []bonus.PivotTriple, knownGroupKeys []string) PivotTable {
	rows := make(map[string]map[string]int64)
	for _, t := range triples {
		day := t.Date.Format(bonus.DateLayout)
		row, ok := rows[day]
		if !ok {
			row = make(map[string]int64, len(knownGroupKeys)+1)
			for _, key := range knownGroupKeys {
				row[key] = 0
			}
			rows[day] = row
		}
		row[t.GroupKey] = t.Total
	}
	return PivotTable{Rows: rows}
}

// Dates returns the row keys in ascending order.
func (p PivotTable) Dates() []string {
	dates := make([]string, 0, len(p.Rows))
	for d := range p.Rows {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates
}

// Columns returns the sorted union of group keys across all rows.
func (p PivotTable) Columns() []string {
	seen := make(map[string]struct{})
	for _, row := range p.Rows {
		for key := range row {
			seen[key] = struct{}{}
		}
	}
	cols := make([]string, 0, len(seen))
	for key := range seen {
		cols = append(cols, key)
	}
	sort.Strings(cols)
	return cols
}

// Cell returns the total of one cell and whether it exists.
func (p PivotTable) Cell(date, groupKey string) (int64, bool) {
	row, ok := p.Rows[date]
	if !ok {
		return 0, false
	}
	v, ok := row[groupKey]
	return v, ok
}
