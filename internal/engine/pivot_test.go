package engine

import (
	"testing"
	"time"

	"github.com/distributor-bonus-ledger/internal/domain/bonus"
	"github.com/stretchr/testify/assert"
)

func triple(y int, m time.Month, d int, group string, total int64) bonus.PivotTriple {
	return bonus.PivotTriple{Date: time.Date(y, m, d, 0, 0, 0, 0, time.UTC), GroupKey: group, Total: total}
}

func TestBuildPivot_Sparse(t *testing.T) {
	table := BuildPivot([]bonus.PivotTriple{
		triple(2024, 1, 1, "A", 10),
		triple(2024, 1, 1, "B", 5),
		triple(2024, 1, 2, "A", 7),
	}, nil)

	assert.Equal(t, map[string]map[string]int64{
		"2024-01-01": {"A": 10, "B": 5},
		"2024-01-02": {"A": 7},
	}, table.Rows)
	assert.Equal(t, []string{"2024-01-01", "2024-01-02"}, table.Dates())
	assert.Equal(t, []string{"A", "B"}, table.Columns())

	_, ok := table.Cell("2024-01-02", "B")
	assert.False(t, ok, "unobserved cells stay absent in sparse mode")
}

func TestBuildPivot_Dense(t *testing.T) {
	table := BuildPivot([]bonus.PivotTriple{
		triple(2024, 1, 2, "A", 7),
		triple(2024, 1, 2, "Z", 1),
	}, []string{"A", "B"})

	assert.Equal(t, map[string]map[string]int64{
		"2024-01-02": {"A": 7, "B": 0, "Z": 1},
	}, table.Rows)
	assert.Equal(t, []string{"A", "B", "Z"}, table.Columns())

	v, ok := table.Cell("2024-01-02", "B")
	assert.True(t, ok)
	assert.Equal(t, int64(0), v)
}

func TestBuildPivot_LastWriteWins(t *testing.T) {
	table := BuildPivot([]bonus.PivotTriple{
		triple(2024, 1, 1, "A", 10),
		triple(2024, 1, 1, "A", 3),
	}, nil)

	v, _ := table.Cell("2024-01-01", "A")
	assert.Equal(t, int64(3), v)
}

func TestBuildPivot_Empty(t *testing.T) {
	table := BuildPivot(nil, []string{"A"})
	assert.Empty(t, table.Rows, "no dates are invented in dense mode")
	assert.Empty(t, table.Columns())
}
