package yahb

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"regexp"
	"strconv"
	"syscall"
	"time"

	"github.com/hhkbp2/go-strftime"
	"github.com/pkg/errors"
)

type Client interface {
	Main()
}

// ResolveDeltaTs picks the tick length of a phase. An explicit
// clock.deltats wins, then the one derived from the target throughput,
// then the one derived from the calibrated throughput of record, which may
// be nil. clock.fallbackdeltats is used when nothing else is known.
func ResolveDeltaTs(p Properties, record *DensityRecord) (int64, error) {
	deltaTs, err := p.GetInt64(PropertyClockDeltaTs, PropertyClockDeltaTsDefault)
	if err != nil {
		return 0, err
	}
	if deltaTs < 0 {
		return 0, NewConfigError("%s must not be negative, got %d", PropertyClockDeltaTs, deltaTs)
	}
	if deltaTs > 0 {
		return deltaTs, nil
	}
	target, err := p.GetFloat64(PropertyTarget, PropertyTargetDefault)
	if err != nil {
		return 0, err
	}
	if deltaTs = DeriveDeltaTs(target); deltaTs > 0 {
		return deltaTs, nil
	}
	if record != nil {
		if deltaTs = DeriveDeltaTs(record.TPS()); deltaTs > 0 {
			return deltaTs, nil
		}
	}
	deltaTs, err = p.GetInt64(PropertyClockFallbackDeltaTs, PropertyClockFallbackDeltaTsDefault)
	if err != nil {
		return 0, err
	}
	if deltaTs <= 0 {
		return 0, NewConfigError("%s must be positive, got %d", PropertyClockFallbackDeltaTs, deltaTs)
	}
	return deltaTs, nil
}

// NewPhaseClock builds the clock of a calibration run (populate mode) or of
// a hybrid run (replay mode, seeded from the density file).
func NewPhaseClock(p Properties, calibrate bool, store *FileDensityStore) (*Clock, error) {
	warehouses, err := p.GetInt64(PropertyWarehouses, PropertyWarehousesDefault)
	if err != nil {
		return nil, err
	}
	if calibrate {
		deltaTs, err := ResolveDeltaTs(p, nil)
		if err != nil {
			return nil, err
		}
		project, err := p.GetBool(PropertyClockProject, PropertyClockProjectDefault)
		if err != nil {
			return nil, err
		}
		if project {
			return NewClock(deltaTs, warehouses)
		}
		return NewAnchoredClock(deltaTs, warehouses)
	}
	path := p.GetDefault(PropertyDensityFile, PropertyDensityFileDefault)
	record, err := store.Load(path)
	if err != nil {
		return nil, err
	}
	if record.Warehouses != warehouses {
		Warnf("density record %s was calibrated with %d warehouses, running with %d",
			path, record.Warehouses, warehouses)
	}
	deltaTs, err := ResolveDeltaTs(p, record)
	if err != nil {
		return nil, err
	}
	return NewReplayClock(deltaTs, warehouses, store, path)
}

type nopWriteCloser struct {
	io.Writer
}

func (self nopWriteCloser) Close() error {
	return nil
}

// exportMeasurements writes the final report to exportfile, or to stdout
// when it is not set.
func exportMeasurements(p Properties, measurements Measurements) (err error) {
	var w io.WriteCloser = nopWriteCloser{os.Stdout}
	if path := p.GetDefault(PropertyExportFile, ""); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return errors.Wrap(err, "create export file")
		}
		w = f
	}
	exporter, err := NewMeasurementExporter(p.GetDefault(PropertyExporter, PropertyExporterDefault), w)
	if err != nil {
		w.Close()
		return err
	}
	defer func() {
		if closeErr := exporter.Close(); err == nil {
			err = closeErr
		}
	}()
	return measurements.ExportMeasurements(exporter)
}

// Benchmark runs one phase: a calibration run or a hybrid run.
type Benchmark struct {
	args      *Arguments
	calibrate bool
}

func NewCalibrator(args *Arguments) *Benchmark {
	return &Benchmark{
		args:      args,
		calibrate: true,
	}
}

func NewRunner(args *Arguments) *Benchmark {
	return &Benchmark{
		args: args,
	}
}

func (self *Benchmark) Main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := self.Run(ctx); err != nil {
		ExitOnError("%s", err)
	}
}

func (self *Benchmark) phase() string {
	if self.calibrate {
		return "calibration"
	}
	return "hybrid"
}

// Run executes the phase until maxexecutiontime elapses or ctx is done.
func (self *Benchmark) Run(ctx context.Context) error {
	p := self.args.Properties
	p.Add(PropertyCalibrate, strconv.FormatBool(self.calibrate))
	if err := SetLogLevel(p.GetDefault(PropertyLogLevel, PropertyLogLevelDefault)); err != nil {
		return err
	}
	if self.args.Status {
		OutputProperties(p)
	}

	store := NewFileDensityStore()
	clock, err := NewPhaseClock(p, self.calibrate, store)
	if err != nil {
		return err
	}
	measurements, err := NewDefaultMeasurements(p)
	if err != nil {
		return err
	}
	metrics := NewMetrics()
	metrics.RegisterClock(clock)
	workload, err := NewWorkload(p, measurements, metrics)
	if err != nil {
		return err
	}
	controller, err := NewController(self.args.Database, p, clock, workload)
	if err != nil {
		return err
	}
	maxExecutionTime, err := p.GetSeconds(PropertyMaxExecutionTime, PropertyMaxExecutionTimeDefault)
	if err != nil {
		return err
	}
	statusInterval, err := p.GetSeconds(PropertyStatusInterval, PropertyStatusIntervalDefault)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if maxExecutionTime > 0 {
		ctx, cancel = context.WithTimeout(ctx, maxExecutionTime)
		defer cancel()
	}
	if addr := p.GetDefault(PropertyMetricsListen, PropertyMetricsListenDefault); addr != "" {
		go func() {
			if err := metrics.Serve(ctx, addr); err != nil {
				Errorf("%s", err)
			}
		}()
	}

	Infof("starting %s phase on %s: deltaTs %d, populate start %s, clock start %s",
		self.phase(), self.args.Database, clock.DeltaTs(),
		strftime.Format(LogTimeFormat, MillisToTime(clock.PopulateStartTs())),
		strftime.Format(LogTimeFormat, MillisToTime(clock.StartTime())))
	start := time.Now()
	if err = controller.InitializeWorkers(ctx); err != nil {
		return err
	}
	done := make(chan struct{})
	if self.args.Status && statusInterval > 0 {
		go self.status(done, statusInterval, start, clock, controller, measurements)
	}
	err = controller.Wait()
	close(done)
	elapsed := time.Since(start)
	if err != nil {
		return errors.Wrapf(err, "%s phase", self.phase())
	}
	Infof("%s phase finished after %s with %d transactions", self.phase(), elapsed, controller.Transactions())

	if err = exportMeasurements(p, measurements); err != nil {
		return err
	}
	if self.calibrate {
		path := p.GetDefault(PropertyDensityFile, PropertyDensityFileDefault)
		record := NewDensityRecord(clock, controller.CalibrationCount(), NanosecondToMillisecond(elapsed.Nanoseconds()))
		if err = store.Export(path, record); err != nil {
			return err
		}
		Infof("density recorded to %s: %d stamped transactions, %.2f tps", path, record.Transactions, record.TPS())
	}
	return nil
}

func (self *Benchmark) status(done <-chan struct{}, interval time.Duration, start time.Time,
	clock *Clock, controller *Controller, measurements Measurements) {

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case now := <-ticker.C:
			oltp, olap := controller.ActiveTerminals()
			EPrintln("%s %d sec: %d transactions; %d OLTP %d OLAP terminals; clock at %s; %s",
				strftime.Format(LogTimeFormat, now),
				MillisecondToSecond(NanosecondToMillisecond(now.Sub(start).Nanoseconds())),
				controller.Transactions(), oltp, olap,
				strftime.Format(LogTimeFormat, MillisToTime(clock.CurrentTs())),
				measurements.GetSummary())
		}
	}
}

// Shell is an interactive inspector of the density clock.
type Shell struct {
	args *Arguments
}

func NewShell(args *Arguments) *Shell {
	return &Shell{
		args: args,
	}
}

var (
	regexCmd = regexp.MustCompile(`\s+`)
)

const (
	shellTimeFormat = "%Y-%m-%d %H:%M:%S"
)

func (self *Shell) Main() {
	p := self.args.Properties
	if err := SetLogLevel(p.GetDefault(PropertyLogLevel, PropertyLogLevelDefault)); err != nil {
		ExitOnError("%s", err)
	}
	clock, record, err := self.OpenClock()
	if err != nil {
		ExitOnError("fail to create clock, error: %s", err)
	}
	Println("YAHB Density Clock Shell")
	Println(`Type "help" for command line help`)
	Interact(os.Stdin, os.Stdout, clock, record)
}

// OpenClock replays the density file when it can be loaded and falls back
// to a populate mode clock otherwise. record is nil in the latter case.
func (self *Shell) OpenClock() (*Clock, *DensityRecord, error) {
	p := self.args.Properties
	store := NewFileDensityStore()
	path := p.GetDefault(PropertyDensityFile, PropertyDensityFileDefault)
	record, err := store.Load(path)
	if err != nil {
		Warnf("no density record: %s", err)
		clock, err := NewPhaseClock(p, true, store)
		return clock, nil, err
	}
	clock, err := NewPhaseClock(p, false, store)
	return clock, record, err
}

func formatTs(ts int64) string {
	return fmt.Sprintf("%d (%s)", ts, strftime.Format(shellTimeFormat, MillisToTime(ts)))
}

// Interact reads shell commands from in until "quit" or end of input.
func Interact(in io.Reader, out io.Writer, clock *Clock, record *DensityRecord) {
	say := func(format string, args ...interface{}) {
		fmt.Fprintf(out, format, args...)
		fmt.Fprintln(out)
	}
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			break
		}
		parts := regexCmd.Split(scanner.Text(), -1)
		if len(parts) > 0 && parts[0] == "" {
			parts = parts[1:]
		}
		if len(parts) == 0 {
			continue
		}
		switch parts[0] {
		case "help":
			shellHelp(out)
		case "quit":
			return
		case "tick":
			say("%s", formatTs(clock.Tick()))
		case "now":
			say("%s", formatTs(clock.CurrentTs()))
		case "map":
			if len(parts) != 2 {
				say(`Error: syntax is "map yyyy-mm-dd"`)
				break
			}
			t, err := time.Parse("2006-01-02", parts[1])
			if err != nil {
				say("Error: invalid date %s", parts[1])
				break
			}
			say("%s", formatTs(clock.TransformDate(t)))
		case "minus":
			if len(parts) != 3 {
				say(`Error: syntax is "minus ts days"`)
				break
			}
			ts, err := strconv.ParseInt(parts[1], 0, 64)
			if err != nil {
				say("Error: invalid timestamp %s", parts[1])
				break
			}
			days, err := strconv.ParseInt(parts[2], 0, 64)
			if err != nil {
				say("Error: invalid days %s", parts[2])
				break
			}
			say("%s", formatTs(clock.ComputeTsMinusXDays(ts, days)))
		case "density":
			say("deltaTs=%d warehouses=%d slot=%dms", clock.DeltaTs(), clock.Warehouses(), clock.SlotWidth())
			say("populate start %s", formatTs(clock.PopulateStartTs()))
			say("clock start %s", formatTs(clock.StartTime()))
			say("new orders stamped: %d", clock.NewOrders())
			if record != nil {
				say("calibrated %d transactions in %dms, %.2f tps",
					record.Transactions, record.ElapsedMS, record.TPS())
			}
		default:
			say(`Error: unknown command "%s"`, parts[0])
		}
	}
}

func shellHelp(out io.Writer) {
	helpFormat := `Commands
  tick - Advance the clock by one delta
  now - Show the current logical time
  map yyyy-mm-dd - Map a TPC-H date into the populated interval
  minus ts days - Subtract days from a timestamp
  density - Show the clock and the density record
  quit - Quit`
	fmt.Fprintln(out, helpFormat)
}
