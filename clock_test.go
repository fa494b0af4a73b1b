package yahb

import (
	"github.com/hhkbp2/testify/require"
	"github.com/pkg/errors"
	"sort"
	"sync"
	"testing"
	"time"
)

type fakeImporter struct {
	first int64
	last  int64
	err   error
}

func (self *fakeImporter) ImportFirstTs(path string) (int64, error) {
	return self.first, self.err
}

func (self *fakeImporter) ImportLastTs(path string) (int64, error) {
	return self.last, self.err
}

func dateMS(year int, month time.Month, day int) int64 {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC).UnixNano() / int64(time.Millisecond)
}

func TestClockProjectedPopulation(t *testing.T) {
	start := int64(1500000000000)
	c, err := NewClockAt(1000, 5, start)
	require.Nil(t, err)
	require.Equal(t, start, c.StartTime())
	require.Equal(t, start, c.CurrentTs())
	expected := start + 1000*(5*DistrictsPerWarehouse*CustomersPerDistrict*2)
	require.Equal(t, expected, c.PopulateStartTs())
}

func TestClockPopulateStartsAtWallClock(t *testing.T) {
	before := NowMS()
	c, err := NewClock(10, 1)
	require.Nil(t, err)
	after := NowMS()
	require.True(t, c.StartTime() >= before && c.StartTime() <= after)
}

func TestClockRejectsNonPositiveDelta(t *testing.T) {
	_, err := NewClockAt(0, 1, 0)
	require.NotNil(t, err)
	_, err = NewAnchoredClockAt(-5, 1, 0)
	require.NotNil(t, err)
	_, err = NewReplayClock(0, 1, &fakeImporter{first: 1, last: 2}, "x")
	require.NotNil(t, err)
	_, err = NewClockAt(1, 0, 0)
	require.NotNil(t, err)
}

func TestClockRejectsNonPositiveWarehouses(t *testing.T) {
	importer := &fakeImporter{first: 1, last: 2}
	for _, warehouses := range []int64{0, -1} {
		_, err := NewClockAt(1, warehouses, 0)
		require.NotNil(t, err)
		_, ok := err.(*ConfigError)
		require.True(t, ok)

		_, err = NewAnchoredClockAt(1, warehouses, 0)
		require.NotNil(t, err)
		_, ok = err.(*ConfigError)
		require.True(t, ok)

		_, err = NewReplayClock(1, warehouses, importer, "density.yaml")
		require.NotNil(t, err)
		_, ok = err.(*ConfigError)
		require.True(t, ok)
	}
}

func TestClockTick(t *testing.T) {
	c, err := NewAnchoredClockAt(7, 1, 100)
	require.Nil(t, err)
	require.Equal(t, int64(107), c.Tick())
	require.Equal(t, int64(114), c.NewOrderTick())
	require.Equal(t, int64(114), c.CurrentTs())
	require.Equal(t, int64(1), c.NewOrders())
}

func TestClockConcurrentTicks(t *testing.T) {
	start := int64(1000)
	c, err := NewAnchoredClockAt(1, 1, start)
	require.Nil(t, err)
	routines := 50
	each := 1000
	results := make([][]int64, routines)
	var wg sync.WaitGroup
	for i := 0; i < routines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			values := make([]int64, 0, each)
			for j := 0; j < each; j++ {
				values = append(values, c.Tick())
			}
			results[i] = values
		}(i)
	}
	wg.Wait()
	require.Equal(t, start+int64(routines*each), c.CurrentTs())

	all := make([]int64, 0, routines*each)
	for _, values := range results {
		// ticks seen by one routine are strictly increasing
		for j := 1; j < len(values); j++ {
			require.True(t, values[j] > values[j-1])
		}
		all = append(all, values...)
	}
	sort.Slice(all, func(i, j int) bool { return all[i] < all[j] })
	for i, v := range all {
		require.Equal(t, start+int64(i+1), v)
	}
}

func TestClockConcurrentTicksWithDelta(t *testing.T) {
	start := int64(0)
	delta := int64(1000)
	c, err := NewAnchoredClockAt(delta, 1, start)
	require.Nil(t, err)
	routines := 8
	each := 500
	seen := make(chan int64, routines*each)
	var wg sync.WaitGroup
	for i := 0; i < routines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			last := int64(-1)
			for j := 0; j < each; j++ {
				v := c.Tick()
				require.True(t, v > last)
				require.True(t, c.CurrentTs() >= start)
				last = v
				seen <- v
			}
		}()
	}
	wg.Wait()
	close(seen)
	unique := make(map[int64]bool)
	for v := range seen {
		require.Equal(t, int64(0), v%delta)
		require.False(t, unique[v])
		unique[v] = true
	}
	require.Equal(t, routines*each, len(unique))
}

func TestTransformTsFromSpecToLong(t *testing.T) {
	first := dateMS(2020, time.January, 1)
	slot := int64(3600 * 1000)
	last := first + slot*TPCHDays
	c, err := NewReplayClock(1, 1, &fakeImporter{first: first, last: last}, "density.yaml")
	require.Nil(t, err)
	require.Equal(t, slot, c.SlotWidth())
	require.Equal(t, last, c.StartTime())
	require.Equal(t, first, c.PopulateStartTs())

	require.Equal(t, first, c.TransformTsFromSpecToLong(dateMS(1992, time.January, 1)))
	require.Equal(t, first, c.TransformDate(TPCHStartDate))
	require.Equal(t, first+slot, c.TransformTsFromSpecToLong(dateMS(1992, time.January, 2)))
	// within a day the mapping stays in the same slot
	noon := dateMS(1992, time.January, 1) + MillisecondsPerDay/2
	require.Equal(t, first, c.TransformTsFromSpecToLong(noon))

	prev := c.TransformDate(TPCHStartDate)
	for d := TPCHStartDate; !d.After(TPCHEndDate); d = d.AddDate(0, 0, 17) {
		mapped := c.TransformDate(d)
		require.True(t, mapped >= prev)
		require.True(t, mapped >= first)
		prev = mapped
	}
	require.True(t, c.TransformDate(TPCHEndDate) <= first+slot*(TPCHDays+2))
}

func TestTransformDegenerate(t *testing.T) {
	start := int64(1234567)
	c, err := NewAnchoredClockAt(10, 3, start)
	require.Nil(t, err)
	require.Equal(t, int64(0), c.SlotWidth())
	for _, d := range []time.Time{TPCHStartDate, TPCHEndDate, time.Date(1995, time.June, 1, 0, 0, 0, 0, time.UTC)} {
		require.Equal(t, start, c.TransformDate(d))
	}
}

func TestTransformProjectedIsMonotonic(t *testing.T) {
	c, err := NewClockAt(1000, 1, 0)
	require.Nil(t, err)
	require.True(t, c.SlotWidth() > 0)
	a := c.TransformDate(time.Date(1993, time.January, 1, 0, 0, 0, 0, time.UTC))
	b := c.TransformDate(time.Date(1995, time.June, 1, 0, 0, 0, 0, time.UTC))
	require.True(t, a < b)
}

func TestComputeTsMinusXDays(t *testing.T) {
	c, err := NewAnchoredClockAt(1, 1, 0)
	require.Nil(t, err)
	ts := dateMS(1998, time.December, 1)
	require.Equal(t, dateMS(1998, time.September, 2), c.ComputeTsMinusXDays(ts, 90))
	require.Equal(t, ts, c.ComputeTsMinusXDays(ts, 0))
}

func TestReplayClockFailsFast(t *testing.T) {
	_, err := NewReplayClock(1, 1, &fakeImporter{first: 10, last: 5}, "density.yaml")
	require.NotNil(t, err)
	_, ok := err.(*ConfigError)
	require.True(t, ok)

	_, err = NewReplayClock(1, 1, &fakeImporter{err: errors.New("no such file")}, "density.yaml")
	require.NotNil(t, err)
}

func TestReplayClockResumesAfterLast(t *testing.T) {
	c, err := NewReplayClock(5, 2, &fakeImporter{first: 100, last: 200}, "density.yaml")
	require.Nil(t, err)
	require.Equal(t, int64(200), c.CurrentTs())
	require.Equal(t, int64(205), c.Tick())
	require.Equal(t, int64(2), c.Warehouses())
}

func TestDeriveDeltaTs(t *testing.T) {
	require.Equal(t, int64(0), DeriveDeltaTs(0))
	require.Equal(t, int64(10), DeriveDeltaTs(100))
	require.Equal(t, int64(1), DeriveDeltaTs(5000))
	require.Equal(t, int64(333), DeriveDeltaTs(3))
}
