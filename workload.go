package yahb

import (
	"context"
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"time"

	g "github.com/hhkbp2/yahb/generator"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

type ProcedureKind uint8

const (
	KindOLTP ProcedureKind = 1 + iota
	KindOLAP
)

func (self ProcedureKind) String() string {
	switch self {
	case KindOLTP:
		return "OLTP"
	case KindOLAP:
		return "OLAP"
	default:
		return "UNKNOWN_KIND"
	}
}

// TxEnv is what a procedure sees of the terminal executing it.
// One TxEnv belongs to one terminal and is never shared.
type TxEnv struct {
	Clock        *Clock
	Warehouse    int64
	DistrictLow  int64
	DistrictHigh int64
	Warehouses   int64
	Rand         *rand.Rand

	stamps int64
}

// Tick stamps a write with the shared clock.
func (self *TxEnv) Tick() int64 {
	self.stamps++
	return self.Clock.Tick()
}

// NewOrderTick stamps the entry date of a new order.
func (self *TxEnv) NewOrderTick() int64 {
	self.stamps++
	return self.Clock.NewOrderTick()
}

// Stamps is the number of timestamps this terminal has drawn so far.
func (self *TxEnv) Stamps() int64 {
	return self.stamps
}

// RandInt returns a uniform value in [lb, ub].
func (self *TxEnv) RandInt(lb, ub int64) int64 {
	return lb + self.Rand.Int63n(ub-lb+1)
}

// District picks one of the districts assigned to the terminal.
func (self *TxEnv) District() int64 {
	return self.RandInt(self.DistrictLow, self.DistrictHigh)
}

// Procedure is one transaction type or analytical query.
// A single instance is shared by all terminals of a run, so Execute must
// keep its per-call state on the stack or in the TxEnv.
type Procedure interface {
	Name() string
	Kind() ProcedureKind

	// Initialize the procedure from the run properties.
	// Called once, before any terminal starts.
	Init(p Properties) error

	// Fixed delay before the transaction modeling data entry.
	KeyingTime() time.Duration

	// Mean of the exponentially distributed delay after the transaction.
	ThinkTime() time.Duration

	// Execute runs the procedure once. Returning ErrUserAbort or an error
	// wrapping it marks an expected rollback.
	Execute(ctx context.Context, db DB, env *TxEnv) error
}

type MakeProcedureFunc func() Procedure

var (
	Procedures = make(map[string]MakeProcedureFunc)
)

func NewProcedure(name string) (Procedure, error) {
	f, ok := Procedures[name]
	if !ok {
		return nil, NewConfigError("unsupported procedure: %s", name)
	}
	return f(), nil
}

// ParseMix parses a weighted mix like "NewOrder=45,Payment=43".
// Entries with zero weight are dropped.
func ParseMix(mix string) ([]*g.Pair, error) {
	ret := make([]*g.Pair, 0)
	var total float64
	for _, entry := range strings.Split(mix, ",") {
		entry = strings.TrimSpace(entry)
		if len(entry) == 0 {
			continue
		}
		parts := strings.Split(entry, "=")
		if len(parts) != 2 {
			return nil, NewConfigError("invalid mix entry %q, should be name=weight", entry)
		}
		name := strings.TrimSpace(parts[0])
		weight, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			return nil, NewConfigError("invalid weight for %s: %s", name, parts[1])
		}
		if weight < 0 {
			return nil, NewConfigError("negative weight for %s", name)
		}
		if weight == 0 {
			continue
		}
		ret = append(ret, &g.Pair{Weight: weight, Value: name})
		total += weight
	}
	if total <= 0 {
		return nil, NewConfigError("mix %q has no positive weight", mix)
	}
	return ret, nil
}

// Workload holds what all terminals of a run share: the procedures,
// the mixes, the pacing limiter and the accounting.
// Everything in it is read-only once terminals are running.
type Workload struct {
	procedures   map[string]Procedure
	mixes        map[ProcedureKind][]*g.Pair
	waitScale    float64
	limiter      *rate.Limiter
	calibrate    bool
	measurements Measurements
	metrics      *Metrics
}

// NewWorkload builds the procedures named by the OLTP mix and, unless this
// is a calibration run, by the OLAP mix.
func NewWorkload(p Properties, measurements Measurements, metrics *Metrics) (*Workload, error) {
	calibrate, err := p.GetBool(PropertyCalibrate, PropertyCalibrateDefault)
	if err != nil {
		return nil, err
	}
	waitScale, err := p.GetFloat64(PropertyTerminalWaitScale, PropertyTerminalWaitScaleDefault)
	if err != nil {
		return nil, err
	}
	if waitScale < 0 {
		return nil, NewConfigError("%s must not be negative", PropertyTerminalWaitScale)
	}
	target, err := p.GetFloat64(PropertyTarget, PropertyTargetDefault)
	if err != nil {
		return nil, err
	}
	var limiter *rate.Limiter
	if target > 0 {
		burst := int(target)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(target), burst)
	}
	self := &Workload{
		procedures:   make(map[string]Procedure),
		mixes:        make(map[ProcedureKind][]*g.Pair),
		waitScale:    waitScale,
		limiter:      limiter,
		calibrate:    calibrate,
		measurements: measurements,
		metrics:      metrics,
	}
	if err = self.addMix(p, KindOLTP, PropertyOLTPMix, PropertyOLTPMixDefault); err != nil {
		return nil, err
	}
	if !calibrate {
		if err = self.addMix(p, KindOLAP, PropertyOLAPMix, PropertyOLAPMixDefault); err != nil {
			return nil, err
		}
	}
	return self, nil
}

func (self *Workload) addMix(p Properties, kind ProcedureKind, key, defaultValue string) error {
	pairs, err := ParseMix(p.GetDefault(key, defaultValue))
	if err != nil {
		return errors.Wrapf(err, "parse %s", key)
	}
	for _, pair := range pairs {
		proc, err := NewProcedure(pair.Value)
		if err != nil {
			return errors.Wrapf(err, "parse %s", key)
		}
		if proc.Kind() != kind {
			return NewConfigError("%s is an %s procedure, not allowed in %s",
				pair.Value, proc.Kind(), key)
		}
		if err = proc.Init(p); err != nil {
			return errors.Wrapf(err, "init procedure %s", pair.Value)
		}
		self.procedures[pair.Value] = proc
	}
	self.mixes[kind] = pairs
	return nil
}

// NewChooser returns a fresh transaction chooser for one terminal.
func (self *Workload) NewChooser(kind ProcedureKind) (*g.DiscreteGenerator, error) {
	pairs, ok := self.mixes[kind]
	if !ok {
		return nil, NewConfigError("no %s mix configured", kind)
	}
	chooser := g.NewDiscreteGenerator()
	for _, pair := range pairs {
		chooser.AddValue(pair.Weight, pair.Value)
	}
	return chooser, nil
}

func (self *Workload) Procedure(name string) (Procedure, bool) {
	proc, ok := self.procedures[name]
	return proc, ok
}

// ProcedureNames returns the configured procedure names, sorted.
func (self *Workload) ProcedureNames() []string {
	names := make([]string, 0, len(self.procedures))
	for name := range self.procedures {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (self *Workload) Calibrate() bool {
	return self.calibrate
}

func (self *Workload) Measurements() Measurements {
	return self.measurements
}
