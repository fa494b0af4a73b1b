package yahb

import (
	"math"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
)

const (
	// TPC-C cardinalities used to project the end of the initial population.
	DistrictsPerWarehouse = 10
	CustomersPerDistrict  = 3000

	MillisecondsPerDay = int64(24 * 60 * 60 * 1000)
	// Number of slots the TPC-H date range is divided into (7 years of
	// 365 days).
	TPCHDays = 2555
)

var (
	// The fixed historical interval TPC-H query parameters are drawn from.
	TPCHStartDate = time.Date(1992, time.January, 1, 0, 0, 0, 0, time.UTC)
	TPCHEndDate   = time.Date(1998, time.December, 31, 0, 0, 0, 0, time.UTC)
)

// Clock is the logical clock shared by all terminals of one run. Every write
// transaction stamps its rows with Tick(), so the timestamps stored in the
// database reproduce the density of the run that produced them.
// Analytical queries translate TPC-H dates into that populated interval
// with TransformTsFromSpecToLong.
type Clock struct {
	// current logical time in ms since epoch, only touched atomically
	clock     int64
	newOrders int64

	deltaTs         int64
	startTime       int64
	populateStartTs int64
	warehouses      int64
}

func validateClock(deltaTs, warehouses int64) error {
	if deltaTs <= 0 {
		return NewConfigError("clock delta must be positive, got %d", deltaTs)
	}
	if warehouses <= 0 {
		return NewConfigError("warehouses must be positive, got %d", warehouses)
	}
	return nil
}

// NewClock returns a populate mode clock starting at the wall clock. The end
// of the initial population is projected assuming two ticks (new order and
// delivery) per customer of every district.
func NewClock(deltaTs, warehouses int64) (*Clock, error) {
	return NewClockAt(deltaTs, warehouses, NowMS())
}

// NewClockAt is NewClock with an explicit start time.
func NewClockAt(deltaTs, warehouses, startTime int64) (*Clock, error) {
	if err := validateClock(deltaTs, warehouses); err != nil {
		return nil, err
	}
	populateTicks := warehouses * DistrictsPerWarehouse * CustomersPerDistrict * 2
	return newClock(deltaTs, warehouses, startTime, startTime+deltaTs*populateTicks), nil
}

// NewAnchoredClock returns a populate mode clock whose population anchors
// immediately at the start time.
func NewAnchoredClock(deltaTs, warehouses int64) (*Clock, error) {
	return NewAnchoredClockAt(deltaTs, warehouses, NowMS())
}

func NewAnchoredClockAt(deltaTs, warehouses, startTime int64) (*Clock, error) {
	if err := validateClock(deltaTs, warehouses); err != nil {
		return nil, err
	}
	return newClock(deltaTs, warehouses, startTime, startTime), nil
}

// NewReplayClock seeds the clock with the boundaries recorded by a previous
// calibration run. Ticking resumes after the last recorded timestamp.
func NewReplayClock(deltaTs, warehouses int64, importer DensityImporter, path string) (*Clock, error) {
	if err := validateClock(deltaTs, warehouses); err != nil {
		return nil, err
	}
	first, err := importer.ImportFirstTs(path)
	if err != nil {
		return nil, errors.Wrapf(err, "import first timestamp from %s", path)
	}
	last, err := importer.ImportLastTs(path)
	if err != nil {
		return nil, errors.Wrapf(err, "import last timestamp from %s", path)
	}
	if last < first {
		return nil, NewConfigError("malformed density record %s: last timestamp %d before first %d",
			path, last, first)
	}
	return newClock(deltaTs, warehouses, last, first), nil
}

func newClock(deltaTs, warehouses, startTime, populateStartTs int64) *Clock {
	return &Clock{
		clock:           startTime,
		deltaTs:         deltaTs,
		startTime:       startTime,
		populateStartTs: populateStartTs,
		warehouses:      warehouses,
	}
}

// DeriveDeltaTs returns the tick length that makes a run at the given
// throughput advance logical time at wall clock speed.
func DeriveDeltaTs(targetTPS float64) int64 {
	if targetTPS <= 0 {
		return 0
	}
	delta := int64(math.Round(1000.0 / targetTPS))
	if delta < 1 {
		delta = 1
	}
	return delta
}

// Tick advances the clock by one delta and returns the new time.
func (self *Clock) Tick() int64 {
	return atomic.AddInt64(&self.clock, self.deltaTs)
}

// NewOrderTick is Tick for the order entry timestamp of NewOrder. These
// stamps are counted separately for the density report.
func (self *Clock) NewOrderTick() int64 {
	atomic.AddInt64(&self.newOrders, 1)
	return self.Tick()
}

func (self *Clock) CurrentTs() int64 {
	return atomic.LoadInt64(&self.clock)
}

func (self *Clock) NewOrders() int64 {
	return atomic.LoadInt64(&self.newOrders)
}

func (self *Clock) DeltaTs() int64 {
	return self.deltaTs
}

func (self *Clock) StartTime() int64 {
	return self.startTime
}

func (self *Clock) PopulateStartTs() int64 {
	return self.populateStartTs
}

func (self *Clock) Warehouses() int64 {
	return self.warehouses
}

// SlotWidth is the populated duration one TPC-H day maps onto.
func (self *Clock) SlotWidth() int64 {
	span := self.startTime - self.populateStartTs
	if span < 0 {
		span = -span
	}
	return span / TPCHDays
}

// TransformTsFromSpecToLong maps a TPC-H date (ms since epoch) onto the
// populated interval, keeping its relative position in 1992-01-01 ..
// 1998-12-31. With nothing populated yet every date maps to
// PopulateStartTs.
func (self *Clock) TransformTsFromSpecToLong(ts int64) int64 {
	epoch := TPCHStartDate.UnixNano() / int64(time.Millisecond)
	dayOffset := (ts - epoch) / MillisecondsPerDay
	return self.populateStartTs + dayOffset*self.SlotWidth()
}

// TransformDate is TransformTsFromSpecToLong for a time value.
func (self *Clock) TransformDate(t time.Time) int64 {
	return self.TransformTsFromSpecToLong(t.UnixNano() / int64(time.Millisecond))
}

func (self *Clock) ComputeTsMinusXDays(ts, days int64) int64 {
	return ts - days*MillisecondsPerDay
}
