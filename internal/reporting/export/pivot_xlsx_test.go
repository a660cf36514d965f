package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/distributor-bonus-ledger/internal/domain/bonus"
	"github.com/distributor-bonus-ledger/internal/engine"
)

func TestPivotXLSX(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2024, 2, d, 0, 0, 0, 0, time.UTC) }

	t.Run("sparse table fills gaps with zero", func(t *testing.T) {
		table := engine.BuildPivot([]bonus.PivotTriple{
			{Date: day(2), GroupKey: "DPC-B", Total: 50},
			{Date: day(1), GroupKey: "DPC-A", Total: 700},
		}, nil)

		var buf bytes.Buffer
		require.NoError(t, PivotXLSX(table, &buf))

		f, err := excelize.OpenReader(&buf)
		require.NoError(t, err)
		defer f.Close()

		rows, err := f.GetRows(PivotSheet)
		require.NoError(t, err)
		assert.Equal(t, [][]string{
			{"Date", "DPC-A", "DPC-B"},
			{"2024-02-01", "700", "0"},
			{"2024-02-02", "0", "50"},
		}, rows)
	})

	t.Run("empty table has only the header", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, PivotXLSX(engine.BuildPivot(nil, nil), &buf))

		f, err := excelize.OpenReader(&buf)
		require.NoError(t, err)
		defer f.Close()

		rows, err := f.GetRows(PivotSheet)
		require.NoError(t, err)
		assert.Equal(t, [][]string{{"Date"}}, rows)
	})
}
