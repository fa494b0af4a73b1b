package yahb

import (
	"context"
	"sync/atomic"
	"time"

	g "github.com/hhkbp2/yahb/generator"
)

type TerminalState int32

const (
	TerminalIdle TerminalState = iota
	TerminalSelectTxn
	TerminalKeyingDelay
	TerminalExecute
	TerminalThinkDelay
	TerminalTerminated
)

func (self TerminalState) String() string {
	switch self {
	case TerminalIdle:
		return "IDLE"
	case TerminalSelectTxn:
		return "SELECT_TXN"
	case TerminalKeyingDelay:
		return "KEYING_DELAY"
	case TerminalExecute:
		return "EXECUTE"
	case TerminalThinkDelay:
		return "THINK_DELAY"
	case TerminalTerminated:
		return "TERMINATED"
	default:
		return "UNKNOWN_STATE"
	}
}

// Think times are drawn from an exponential distribution truncated at
// this multiple of the mean.
const ThinkTimeCap = 10

// Terminal is one simulated client. It owns its DB and its TxEnv and
// loops over select, keying delay, execute and think delay until its
// context is done.
type Terminal struct {
	id       int
	kind     ProcedureKind
	db       DB
	env      *TxEnv
	workload *Workload
	chooser  *g.DiscreteGenerator
	// per procedure think time generators, in milliseconds
	thinkTimes map[string]*g.ExponentialGenerator

	state            int32
	transactions     int64
	calibrationCount int64
}

func NewTerminal(id int, kind ProcedureKind, db DB, env *TxEnv, workload *Workload) (*Terminal, error) {
	chooser, err := workload.NewChooser(kind)
	if err != nil {
		return nil, err
	}
	thinkTimes := make(map[string]*g.ExponentialGenerator)
	for _, pair := range chooser.Values() {
		proc, _ := workload.Procedure(pair.Value)
		mean := float64(proc.ThinkTime()/time.Millisecond) * workload.waitScale
		if mean > 0 {
			thinkTimes[pair.Value] = g.NewExponentialGeneratorByMean(mean)
		}
	}
	return &Terminal{
		id:         id,
		kind:       kind,
		db:         db,
		env:        env,
		workload:   workload,
		chooser:    chooser,
		thinkTimes: thinkTimes,
		state:      int32(TerminalIdle),
	}, nil
}

func (self *Terminal) ID() int {
	return self.id
}

func (self *Terminal) Kind() ProcedureKind {
	return self.kind
}

func (self *Terminal) Env() *TxEnv {
	return self.env
}

func (self *Terminal) State() TerminalState {
	return TerminalState(atomic.LoadInt32(&self.state))
}

func (self *Terminal) setState(state TerminalState) {
	atomic.StoreInt32(&self.state, int32(state))
}

// Transactions is the number of procedures executed so far.
func (self *Terminal) Transactions() int64 {
	return atomic.LoadInt64(&self.transactions)
}

// CalibrationCount is the number of committed transactions that drew at
// least one timestamp. It only moves in calibration runs.
func (self *Terminal) CalibrationCount() int64 {
	return atomic.LoadInt64(&self.calibrationCount)
}

// Run loops until ctx is done. A transaction that has started always runs
// to commit or rollback.
func (self *Terminal) Run(ctx context.Context) {
	defer self.setState(TerminalTerminated)
	metrics := self.workload.metrics
	metrics.TerminalStarted(self.kind)
	defer metrics.TerminalStopped(self.kind)
	Debugf("terminal %d (%s) started on warehouse %d districts %d-%d",
		self.id, self.kind, self.env.Warehouse, self.env.DistrictLow, self.env.DistrictHigh)
	for ctx.Err() == nil {
		self.setState(TerminalSelectTxn)
		name := self.chooser.NextString()
		proc, _ := self.workload.Procedure(name)

		self.setState(TerminalKeyingDelay)
		if !self.sleep(ctx, self.keyingTime(proc)) {
			break
		}
		if limiter := self.workload.limiter; limiter != nil && self.kind == KindOLTP {
			if err := limiter.Wait(ctx); err != nil {
				break
			}
		}

		self.setState(TerminalExecute)
		self.execute(ctx, proc)

		self.setState(TerminalThinkDelay)
		if !self.sleep(ctx, self.thinkTime(name)) {
			break
		}
	}
	Debugf("terminal %d (%s) terminated after %d transactions",
		self.id, self.kind, self.Transactions())
}

func (self *Terminal) execute(ctx context.Context, proc Procedure) {
	name := proc.Name()
	stamps := self.env.Stamps()
	startTime := time.Now()
	err := proc.Execute(context.WithoutCancel(ctx), self.db, self.env)
	elapsed := time.Since(startTime)
	status := Classify(err)

	measurements := self.workload.measurements
	measurements.Measure(name, NanosecondToMicrosecond(elapsed.Nanoseconds()))
	measurements.ReportStatus(name, status)
	self.workload.metrics.ObserveTransaction(name, status, elapsed)
	atomic.AddInt64(&self.transactions, 1)

	switch status {
	case StatusOK:
		if self.workload.calibrate && self.env.Stamps() > stamps {
			atomic.AddInt64(&self.calibrationCount, 1)
		}
	case StatusAborted, StatusNotFound:
		Verbosef("terminal %d: %s: %s", self.id, name, err)
	case StatusConflict:
		Debugf("terminal %d: %s: %s", self.id, name, err)
	case StatusInconsistent:
		Errorf("terminal %d: %s: %s", self.id, name, err)
	default:
		Warnf("terminal %d: %s failed: %s", self.id, name, err)
	}
}

func (self *Terminal) keyingTime(proc Procedure) time.Duration {
	return time.Duration(float64(proc.KeyingTime()) * self.workload.waitScale)
}

func (self *Terminal) thinkTime(name string) time.Duration {
	gen, ok := self.thinkTimes[name]
	if !ok {
		return 0
	}
	millis := gen.NextLong()
	if limit := int64(gen.Mean() * ThinkTimeCap); millis > limit {
		millis = limit
	}
	return time.Duration(MillisecondToNanosecond(millis))
}

// sleep returns false when ctx is done before d elapsed.
func (self *Terminal) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
