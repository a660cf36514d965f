package engine

import (
	"testing"
	"time"

	"github.com/distributor-bonus-ledger/internal/domain/bonus"
	"github.com/distributor-bonus-ledger/internal/domain/distributor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day = time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)

func unpaid(id int64, distributorID string, amount int64) bonus.Record {
	return bonus.Record{ID: id, DistributorID: distributorID, Date: day, Amount: amount, Status: bonus.StatusUnpaid}
}

func paid(id int64, distributorID string, amount int64) bonus.Record {
	at := day.Add(24 * time.Hour)
	by := "alice"
	return bonus.Record{ID: id, DistributorID: distributorID, Date: day, Amount: amount, Status: bonus.StatusPaid, PaymentDate: &at, PaidBy: &by}
}

func TestJoin(t *testing.T) {
	directory := []distributor.Distributor{
		{ID: "D1", Name: "Zed", Position: "Manager", GroupKey: "NORTH"},
		{ID: "D2", Name: "", Position: "", GroupKey: ""},
	}
	records := []bonus.Record{unpaid(1, "D1", 100), unpaid(2, "D2", 50), unpaid(3, "D9", 10)}

	joined := Join(records, directory)
	require.Len(t, joined, 3)

	t.Run("matched distributor", func(t *testing.T) {
		assert.Equal(t, "Zed", joined[0].EntityName)
		assert.Equal(t, "Manager", joined[0].EntityPosition)
		require.NotNil(t, joined[0].GroupKey)
		assert.Equal(t, "NORTH", *joined[0].GroupKey)
		assert.Equal(t, records[0], joined[0].Record)
	})

	t.Run("empty attributes fall back", func(t *testing.T) {
		assert.Equal(t, bonus.UnknownLabel, joined[1].EntityName)
		assert.Equal(t, bonus.UnknownLabel, joined[1].EntityPosition)
		assert.Nil(t, joined[1].GroupKey)
	})

	t.Run("missing distributor", func(t *testing.T) {
		assert.Equal(t, bonus.UnknownLabel, joined[2].EntityName)
		assert.Equal(t, bonus.UnknownLabel, joined[2].EntityPosition)
		assert.Nil(t, joined[2].GroupKey)
	})
}

func TestJoin_Empty(t *testing.T) {
	assert.Empty(t, Join(nil, nil))
	assert.Empty(t, Join([]bonus.Record{}, []distributor.Distributor{{ID: "D1"}}))
}

func TestDistributorIDs(t *testing.T) {
	records := []bonus.Record{unpaid(1, "D2", 1), unpaid(2, "D1", 1), unpaid(3, "D2", 1)}
	assert.Equal(t, []string{"D2", "D1"}, DistributorIDs(records))
}
