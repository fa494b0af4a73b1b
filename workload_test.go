package yahb

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hhkbp2/testify/require"
	"github.com/pkg/errors"
)

// fakeProcedure stamps the clock when asked to and returns a fixed error.
type fakeProcedure struct {
	name  string
	kind  ProcedureKind
	stamp bool
	err   error
	think time.Duration
	calls int64
}

func (self *fakeProcedure) Name() string {
	return self.name
}

func (self *fakeProcedure) Kind() ProcedureKind {
	return self.kind
}

func (self *fakeProcedure) Init(p Properties) error {
	return nil
}

func (self *fakeProcedure) KeyingTime() time.Duration {
	return 0
}

func (self *fakeProcedure) ThinkTime() time.Duration {
	return self.think
}

func (self *fakeProcedure) Execute(ctx context.Context, db DB, env *TxEnv) error {
	atomic.AddInt64(&self.calls, 1)
	if self.stamp {
		env.Tick()
	}
	return self.err
}

var (
	fakeWrite = &fakeProcedure{name: "FakeWrite", kind: KindOLTP, stamp: true}
	fakeRead  = &fakeProcedure{name: "FakeRead", kind: KindOLTP}
	fakeAbort = &fakeProcedure{name: "FakeAbort", kind: KindOLTP, stamp: true,
		err: errors.Wrap(ErrUserAbort, "unused item")}
	fakeLost = &fakeProcedure{name: "FakeLost", kind: KindOLTP, stamp: true,
		err: ExpectOneRow(0, "delete new order")}
	fakeQuery = &fakeProcedure{name: "FakeQuery", kind: KindOLAP}
)

func init() {
	for _, p := range []*fakeProcedure{fakeWrite, fakeRead, fakeAbort, fakeLost, fakeQuery} {
		proc := p
		Procedures[proc.name] = func() Procedure {
			return proc
		}
	}
}

func newTestProperties(kv ...string) Properties {
	p := NewProperties()
	p.Add(PropertyOLTPMix, "FakeWrite=1")
	p.Add(PropertyOLAPMix, "FakeQuery=1")
	p.Add(PropertyTerminalWaitScale, "0")
	for i := 0; i+1 < len(kv); i += 2 {
		p.Add(kv[i], kv[i+1])
	}
	return p
}

func newTestWorkload(t *testing.T, p Properties) (*Workload, *DefaultMeasurements) {
	measurements, err := NewDefaultMeasurements(p)
	require.Nil(t, err)
	w, err := NewWorkload(p, measurements, NewMetrics())
	require.Nil(t, err)
	return w, measurements
}

func TestParseMix(t *testing.T) {
	pairs, err := ParseMix("NewOrder=45, Payment=43,OrderStatus=0,Delivery=4.5")
	require.Nil(t, err)
	require.Equal(t, 3, len(pairs))
	require.Equal(t, "NewOrder", pairs[0].Value)
	require.Equal(t, 45.0, pairs[0].Weight)
	require.Equal(t, "Payment", pairs[1].Value)
	require.Equal(t, "Delivery", pairs[2].Value)
	require.Equal(t, 4.5, pairs[2].Weight)

	for _, mix := range []string{"", "NewOrder=0", "NewOrder", "NewOrder=x", "NewOrder=-1,Payment=2"} {
		_, err = ParseMix(mix)
		require.NotNil(t, err, mix)
	}
}

func TestNewWorkload(t *testing.T) {
	w, _ := newTestWorkload(t, newTestProperties(PropertyOLTPMix, "FakeWrite=3,FakeRead=1"))
	require.Equal(t, []string{"FakeQuery", "FakeRead", "FakeWrite"}, w.ProcedureNames())
	require.False(t, w.Calibrate())

	chooser, err := w.NewChooser(KindOLTP)
	require.Nil(t, err)
	require.Equal(t, 4.0, chooser.TotalWeight())
	for i := 0; i < 100; i++ {
		name := chooser.NextString()
		require.True(t, name == "FakeWrite" || name == "FakeRead")
	}
}

func TestNewWorkloadCalibrateSkipsOLAP(t *testing.T) {
	w, _ := newTestWorkload(t, newTestProperties(
		PropertyCalibrate, "true", PropertyOLAPMix, "NoSuchQuery=1"))
	require.True(t, w.Calibrate())
	_, err := w.NewChooser(KindOLAP)
	require.NotNil(t, err)
}

func TestNewWorkloadErrors(t *testing.T) {
	cases := []Properties{
		newTestProperties(PropertyOLTPMix, "NoSuchTxn=1"),
		newTestProperties(PropertyOLTPMix, "FakeQuery=1"),
		newTestProperties(PropertyOLAPMix, "FakeWrite=1"),
		newTestProperties(PropertyOLTPMix, "FakeWrite=0"),
		newTestProperties(PropertyTerminalWaitScale, "-1"),
		newTestProperties(PropertyTarget, "fast"),
	}
	for _, p := range cases {
		measurements, err := NewDefaultMeasurements(p)
		require.Nil(t, err)
		_, err = NewWorkload(p, measurements, NewMetrics())
		require.NotNil(t, err)
	}
}

func TestTxEnv(t *testing.T) {
	c, err := NewAnchoredClockAt(10, 2, 0)
	require.Nil(t, err)
	env := &TxEnv{
		Clock:        c,
		Warehouse:    2,
		DistrictLow:  4,
		DistrictHigh: 6,
		Warehouses:   2,
		Rand:         newTestRand(),
	}
	require.Equal(t, int64(10), env.Tick())
	require.Equal(t, int64(20), env.NewOrderTick())
	require.Equal(t, int64(2), env.Stamps())
	require.Equal(t, int64(1), c.NewOrders())
	for i := 0; i < 100; i++ {
		d := env.District()
		require.True(t, d >= 4 && d <= 6)
		v := env.RandInt(1, 3000)
		require.True(t, v >= 1 && v <= 3000)
	}
}
