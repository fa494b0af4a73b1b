package yahb

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	g "github.com/hhkbp2/yahb/generator"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

type makeTickerFunc func(d time.Duration) (<-chan time.Time, func())

func newTimeTicker(d time.Duration) (<-chan time.Time, func()) {
	ticker := time.NewTicker(d)
	return ticker.C, ticker.Stop
}

// Controller owns the terminals of one benchmark phase. OLTP terminals
// start together, OLAP terminals are added one per interval up to a
// bound without looking at the load they cause.
// A new phase takes a new Controller.
type Controller struct {
	database      string
	props         Properties
	clock         *Clock
	workload      *Workload
	oltpTerminals int
	olapMax       int
	olapInterval  time.Duration
	makeTicker    makeTickerFunc
	ids           *g.CounterGenerator

	initialized int32

	lock      sync.Mutex
	cancel    context.CancelFunc
	group     *errgroup.Group
	terminals []*Terminal
	olapCount int
}

func NewController(database string, p Properties, clock *Clock, workload *Workload) (*Controller, error) {
	oltpTerminals, err := p.GetInt64(PropertyOLTPTerminals, PropertyOLTPTerminalsDefault)
	if err != nil {
		return nil, err
	}
	if oltpTerminals < 0 {
		return nil, NewConfigError("%s must not be negative", PropertyOLTPTerminals)
	}
	if oltpTerminals == 0 {
		oltpTerminals = clock.Warehouses() * DistrictsPerWarehouse
	}
	olapMax, err := p.GetInt64(PropertyOLAPMaxTerminals, PropertyOLAPMaxTerminalsDefault)
	if err != nil {
		return nil, err
	}
	if olapMax < 0 {
		return nil, NewConfigError("%s must not be negative", PropertyOLAPMaxTerminals)
	}
	if workload.Calibrate() {
		olapMax = 0
	}
	olapInterval, err := p.GetSeconds(PropertyOLAPInterval, PropertyOLAPIntervalDefault)
	if err != nil {
		return nil, err
	}
	if olapMax > 0 && olapInterval <= 0 {
		return nil, NewConfigError("%s must be positive", PropertyOLAPInterval)
	}
	if _, ok := Databases[database]; !ok {
		return nil, errors.Wrapf(ErrUnsupportedDatabase, "%q", database)
	}
	return &Controller{
		database:      database,
		props:         p,
		clock:         clock,
		workload:      workload,
		oltpTerminals: int(oltpTerminals),
		olapMax:       int(olapMax),
		olapInterval:  olapInterval,
		makeTicker:    newTimeTicker,
		ids:           g.NewCounterGenerator(0),
	}, nil
}

// InitializeWorkers starts the OLTP terminals and the OLAP scheduler.
// It must be called once per controller, later calls return
// ErrAlreadyInitialized. A terminal that cannot be started fails the
// whole phase: the terminals already running are stopped and the error
// is returned.
func (self *Controller) InitializeWorkers(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&self.initialized, 0, 1) {
		return ErrAlreadyInitialized
	}
	ctx, cancel := context.WithCancel(ctx)
	group, groupCtx := errgroup.WithContext(ctx)
	self.lock.Lock()
	self.cancel = cancel
	self.group = group
	self.lock.Unlock()
	for i := 0; i < self.oltpTerminals; i++ {
		if err := self.launch(groupCtx, KindOLTP); err != nil {
			cancel()
			group.Wait()
			return err
		}
	}
	Infof("started %d OLTP terminals", self.oltpTerminals)
	if self.olapMax > 0 {
		group.Go(func() error {
			return self.schedule(groupCtx)
		})
	}
	return nil
}

// schedule adds one OLAP terminal per tick. The ticker runs at a fixed
// rate, a tick that arrives while a terminal is being set up is not
// queued twice.
func (self *Controller) schedule(ctx context.Context) error {
	ticks, stop := self.makeTicker(self.olapInterval)
	defer stop()
	for self.OLAPCount() < self.olapMax {
		select {
		case <-ctx.Done():
			return nil
		case <-ticks:
		}
		if err := self.launch(ctx, KindOLAP); err != nil {
			return err
		}
		Infof("OLAP terminals: %d/%d", self.OLAPCount(), self.olapMax)
	}
	return nil
}

func (self *Controller) launch(ctx context.Context, kind ProcedureKind) error {
	id := int(self.ids.NextInt())
	db, err := NewDB(self.database, self.props)
	if err != nil {
		return err
	}
	if err = db.Init(); err != nil {
		return errors.Wrapf(err, "init db for terminal %d", id)
	}
	terminal, err := NewTerminal(id, kind, db, self.newTxEnv(id, kind), self.workload)
	if err != nil {
		db.Cleanup()
		return errors.Wrapf(err, "create terminal %d", id)
	}
	self.lock.Lock()
	self.terminals = append(self.terminals, terminal)
	if kind == KindOLAP {
		self.olapCount++
	}
	group := self.group
	self.lock.Unlock()
	group.Go(func() error {
		terminal.Run(ctx)
		if err := db.Cleanup(); err != nil {
			Warnf("cleanup db of terminal %d: %s", id, err)
		}
		return nil
	})
	return nil
}

func (self *Controller) newTxEnv(id int, kind ProcedureKind) *TxEnv {
	warehouses := self.clock.Warehouses()
	env := &TxEnv{
		Clock:        self.clock,
		Warehouse:    int64(id)%warehouses + 1,
		DistrictLow:  1,
		DistrictHigh: DistrictsPerWarehouse,
		Warehouses:   warehouses,
		Rand:         g.NewRandom(time.Now().UnixNano() + int64(id)),
	}
	if kind == KindOLTP {
		env.Warehouse, env.DistrictLow, env.DistrictHigh =
			AssignTerminal(int64(id), int64(self.oltpTerminals), warehouses)
	}
	return env
}

// AssignTerminal returns the warehouse and the district range of OLTP
// terminal i out of n. Terminals go round robin over the warehouses and
// the terminals of one warehouse split its districts into contiguous
// ranges. With more terminals than districts ranges shrink to a single
// district and are shared.
func AssignTerminal(i, n, warehouses int64) (warehouse, low, high int64) {
	warehouse = i%warehouses + 1
	// terminals on this warehouse, and the rank of i among them
	count := n / warehouses
	if (warehouse - 1) < n%warehouses {
		count++
	}
	rank := i / warehouses
	if count >= DistrictsPerWarehouse {
		d := rank%DistrictsPerWarehouse + 1
		return warehouse, d, d
	}
	low = rank*DistrictsPerWarehouse/count + 1
	high = (rank + 1) * DistrictsPerWarehouse / count
	return warehouse, low, high
}

// Wait blocks until every terminal has terminated. It returns the first
// error that failed the phase.
func (self *Controller) Wait() error {
	self.lock.Lock()
	group, cancel := self.group, self.cancel
	self.lock.Unlock()
	if group == nil {
		return nil
	}
	err := group.Wait()
	cancel()
	return err
}

// Stop ends the phase. Terminals finish their current transaction.
// Stopping before InitializeWorkers has no effect.
func (self *Controller) Stop() {
	self.lock.Lock()
	cancel := self.cancel
	self.lock.Unlock()
	if cancel != nil {
		cancel()
	}
}

// ActiveTerminals returns the number of terminals of each kind started in
// this phase. Terminals are never removed within a phase.
func (self *Controller) ActiveTerminals() (oltp, olap int) {
	self.lock.Lock()
	defer self.lock.Unlock()
	return len(self.terminals) - self.olapCount, self.olapCount
}

func (self *Controller) OLAPCount() int {
	self.lock.Lock()
	defer self.lock.Unlock()
	return self.olapCount
}

func (self *Controller) Terminals() []*Terminal {
	self.lock.Lock()
	defer self.lock.Unlock()
	ret := make([]*Terminal, len(self.terminals))
	copy(ret, self.terminals)
	return ret
}

// CalibrationCount sums the calibration counters of all terminals.
func (self *Controller) CalibrationCount() int64 {
	var sum int64
	for _, t := range self.Terminals() {
		sum += t.CalibrationCount()
	}
	return sum
}

// Transactions sums the executed procedures of all terminals.
func (self *Controller) Transactions() int64 {
	var sum int64
	for _, t := range self.Terminals() {
		sum += t.Transactions()
	}
	return sum
}
