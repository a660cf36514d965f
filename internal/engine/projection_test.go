package engine

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/distributor-bonus-ledger/internal/domain/bonus"
	"github.com/distributor-bonus-ledger/internal/domain/distributor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	febFilter = bonus.Filter{Range: bonus.DateRange{
		Start: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC),
	}}
	testDirectory = []distributor.Distributor{
		{ID: "D1", Name: "Alpha", Position: "Agent", GroupKey: "NORTH"},
		{ID: "D2", Name: "Bravo", Position: "Lead", GroupKey: "SOUTH"},
	}
)

func loadedProjection(t *testing.T, records ...bonus.Record) *Projection {
	t.Helper()
	p := NewProjection()
	lookup := NewLookup(testDirectory)
	_, applied, err := p.Replace(p.BeginFetch(), febFilter, JoinWithLookup(records, lookup), lookup, false)
	require.NoError(t, err)
	require.True(t, applied)
	return p
}

func ids(v View) []int64 {
	out := make([]int64, len(v.Records))
	for i, r := range v.Records {
		out[i] = r.ID
	}
	return out
}

func TestProjection_Replace(t *testing.T) {
	t.Run("applies fetch and derives summaries", func(t *testing.T) {
		p := loadedProjection(t, paid(1, "D1", 100), unpaid(2, "D2", 40))

		v := p.View()
		assert.Equal(t, []int64{1, 2}, ids(v))
		assert.Equal(t, AggregateSummary{TotalPaid: 100, TotalUnpaid: 40}, v.Summary)
		assert.Len(t, v.Groups, 2)
		assert.Equal(t, uint64(1), v.Seq)
	})

	t.Run("out of order result is discarded", func(t *testing.T) {
		p := NewProjection()
		lookup := NewLookup(testDirectory)
		slow := p.BeginFetch()
		fast := p.BeginFetch()

		_, applied, err := p.Replace(fast, febFilter, JoinWithLookup([]bonus.Record{unpaid(2, "D1", 1)}, lookup), lookup, false)
		require.NoError(t, err)
		require.True(t, applied)

		v, applied, err := p.Replace(slow, febFilter, JoinWithLookup([]bonus.Record{unpaid(1, "D1", 1)}, lookup), lookup, true)
		require.NoError(t, err)
		assert.False(t, applied)
		assert.Equal(t, []int64{2}, ids(v))
		assert.False(t, v.Truncated)
	})

	t.Run("earlier result applied before a later one", func(t *testing.T) {
		p := NewProjection()
		lookup := NewLookup(testDirectory)
		first := p.BeginFetch()
		second := p.BeginFetch()

		_, applied, _ := p.Replace(first, febFilter, JoinWithLookup([]bonus.Record{unpaid(1, "D1", 1)}, lookup), lookup, false)
		assert.True(t, applied)
		v, applied, _ := p.Replace(second, febFilter, JoinWithLookup([]bonus.Record{unpaid(3, "D1", 1)}, lookup), lookup, false)
		assert.True(t, applied)
		assert.Equal(t, []int64{3}, ids(v))
	})

	t.Run("invalid record leaves projection unchanged", func(t *testing.T) {
		p := loadedProjection(t, unpaid(1, "D1", 10))
		bad := unpaid(2, "D1", 10)
		bad.Status = "Pending"
		lookup := NewLookup(testDirectory)

		v, applied, err := p.Replace(p.BeginFetch(), febFilter, JoinWithLookup([]bonus.Record{bad}, lookup), lookup, false)
		var integrityErr bonus.ErrDataIntegrity
		assert.True(t, errors.As(err, &integrityErr))
		assert.False(t, applied)
		assert.Equal(t, []int64{1}, ids(v))
	})
}

func TestProjection_OnInsert(t *testing.T) {
	t.Run("inserts at head in arrival order", func(t *testing.T) {
		p := loadedProjection(t, unpaid(1, "D1", 10))

		_, changed, err := p.OnInsert(unpaid(2, "D1", 5))
		require.NoError(t, err)
		assert.True(t, changed)
		v, changed, err := p.OnInsert(unpaid(3, "D2", 7))
		require.NoError(t, err)
		assert.True(t, changed)

		assert.Equal(t, []int64{3, 2, 1}, ids(v))
		assert.Equal(t, "Bravo", v.Records[0].EntityName)
		assert.Equal(t, int64(22), v.Summary.TotalUnpaid)
	})

	t.Run("unknown distributor is enriched as unknown", func(t *testing.T) {
		p := loadedProjection(t)

		v, changed, err := p.OnInsert(unpaid(4, "D404", 5))
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, bonus.UnknownLabel, v.Records[0].EntityName)
		assert.Nil(t, v.Records[0].GroupKey)
	})

	t.Run("outside the fetched range is ignored", func(t *testing.T) {
		p := loadedProjection(t, unpaid(1, "D1", 10))
		march := unpaid(5, "D1", 10)
		march.Date = time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)

		v, changed, err := p.OnInsert(march)
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Equal(t, []int64{1}, ids(v))
	})

	t.Run("duplicate id replaces the stale copy", func(t *testing.T) {
		p := loadedProjection(t, unpaid(1, "D1", 10), unpaid(2, "D1", 10))

		v, changed, err := p.OnInsert(unpaid(2, "D1", 99))
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, []int64{2, 1}, ids(v))
		assert.Equal(t, int64(99), v.Records[0].Amount)
	})

	t.Run("ignored before any fetch", func(t *testing.T) {
		p := NewProjection()
		_, changed, err := p.OnInsert(unpaid(1, "D1", 10))
		require.NoError(t, err)
		assert.False(t, changed)
	})
}

func TestProjection_OnUpdate(t *testing.T) {
	t.Run("replaces in place", func(t *testing.T) {
		p := loadedProjection(t, unpaid(1, "D1", 10), unpaid(2, "D1", 20), unpaid(3, "D2", 30))

		v, changed, err := p.OnUpdate(paid(2, "D2", 25))
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, []int64{1, 2, 3}, ids(v))
		assert.Equal(t, bonus.StatusPaid, v.Records[1].Status)
		assert.Equal(t, "Bravo", v.Records[1].EntityName, "enrichment is rebuilt from the new distributor")
		assert.Equal(t, AggregateSummary{TotalPaid: 25, TotalUnpaid: 40}, v.Summary)
	})

	t.Run("update leaving the filter stays until the next fetch", func(t *testing.T) {
		p := NewProjection()
		lookup := NewLookup(testDirectory)
		north := febFilter
		north.GroupKey = "NORTH"
		_, applied, err := p.Replace(p.BeginFetch(), north, JoinWithLookup([]bonus.Record{unpaid(1, "D1", 10)}, lookup), lookup, false)
		require.NoError(t, err)
		require.True(t, applied)

		moved := unpaid(1, "D2", 10)
		moved.Date = time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
		v, changed, err := p.OnUpdate(moved)
		require.NoError(t, err)
		assert.True(t, changed)
		require.Equal(t, []int64{1}, ids(v))
		assert.Equal(t, "SOUTH", *v.Records[0].GroupKey)

		_, inserted, err := p.OnInsert(unpaid(2, "D2", 10))
		require.NoError(t, err)
		assert.False(t, inserted, "inserts are still filtered")
	})

	t.Run("absent id is dropped", func(t *testing.T) {
		p := loadedProjection(t, unpaid(1, "D1", 10))

		v, changed, err := p.OnUpdate(paid(7, "D1", 10))
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Equal(t, []int64{1}, ids(v))
	})

	t.Run("invalid update is rejected", func(t *testing.T) {
		p := loadedProjection(t, unpaid(1, "D1", 10))
		bad := paid(1, "D1", 10)
		bad.PaymentDate = nil

		_, changed, err := p.OnUpdate(bad)
		assert.Error(t, err)
		assert.False(t, changed)
		assert.Equal(t, bonus.StatusUnpaid, p.View().Records[0].Status)
	})
}

func TestProjection_OnDelete(t *testing.T) {
	p := loadedProjection(t, unpaid(1, "D1", 10), unpaid(2, "D1", 20), unpaid(3, "D1", 30))

	v, changed := p.OnDelete(2)
	assert.True(t, changed)
	assert.Equal(t, []int64{1, 3}, ids(v))

	v, changed = p.OnDelete(2)
	assert.False(t, changed, "deleting twice is a no-op")
	assert.Equal(t, []int64{1, 3}, ids(v))
}

func TestProjection_InsertThenDeleteRestoresState(t *testing.T) {
	p := loadedProjection(t, unpaid(1, "D1", 10), paid(2, "D2", 20))
	before := p.View()

	_, _, err := p.OnInsert(unpaid(9, "D1", 5))
	require.NoError(t, err)
	after, _ := p.OnDelete(9)

	assert.Equal(t, before.Records, after.Records)
	assert.Equal(t, before.Summary, after.Summary)
}

func TestProjection_Remember(t *testing.T) {
	p := loadedProjection(t, unpaid(1, "D3", 10))
	assert.Equal(t, bonus.UnknownLabel, p.View().Records[0].EntityName)

	p.Remember(distributor.Distributor{ID: "D3", Name: "Charlie", Position: "Agent"})
	d, ok := p.Distributor("D3")
	require.True(t, ok)
	assert.Equal(t, "Charlie", d.Name)

	v, changed, err := p.OnUpdate(unpaid(1, "D3", 10))
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "Charlie", v.Records[0].EntityName)
}

func TestProjection_ConcurrentEvents(t *testing.T) {
	p := loadedProjection(t)

	var wg sync.WaitGroup
	for i := int64(1); i <= 50; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			_, _, _ = p.OnInsert(unpaid(id, "D1", 1))
		}(i)
	}
	wg.Wait()

	v := p.View()
	assert.Len(t, v.Records, 50)
	assert.Equal(t, int64(50), v.Summary.TotalUnpaid)
}
