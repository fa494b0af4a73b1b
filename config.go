package yahb

const (
	// BasicDB
	ConfigBasicDBVerbose        = "basicdb.verbose"
	ConfigBasicDBVerboseDefault = "false"
	ConfigSimulateDelay         = "basicdb.simulatedelay"
	ConfigSimulateDelayDefault  = "0"
	ConfigRandomizeDelay        = "basicdb.randomizedelay"
	ConfigRandomizeDelayDefault = "true"

	// Client
	// The database binding to be used.
	PropertyDB        = "db"
	PropertyDBDefault = "basic"
	// The exporter class to be used. The default is TextMeasurementExporter.
	PropertyExporter        = "exporter"
	PropertyExporterDefault = "TextMeasurementExporter"
	// If set to the path of a file, this file will be written instead of stdout.
	PropertyExportFile = "exportfile"
	// Target number of OLTP transactions per second over all terminals.
	// Zero means unthrottled.
	PropertyTarget        = "target"
	PropertyTargetDefault = "0"
	// The maximum amount of time (in seconds) for which the benchmark will be run.
	// Zero means run until interrupted.
	PropertyMaxExecutionTime        = "maxexecutiontime"
	PropertyMaxExecutionTimeDefault = "0"
	// Seconds between two status lines.
	PropertyStatusInterval        = "status.interval"
	PropertyStatusIntervalDefault = "10"
	// One of verbose, debug, info, warn, error, quiet.
	PropertyLogLevel        = "log.level"
	PropertyLogLevelDefault = "info"

	// Whether this is a calibration run (OLTP only, density recorded).
	PropertyCalibrate        = "calibrate"
	PropertyCalibrateDefault = "false"
	// TPC-C scale factor.
	PropertyWarehouses        = "warehouses"
	PropertyWarehousesDefault = "1"

	// Clock
	// Logical milliseconds added per tick. When zero it is derived from
	// the target throughput, or from the calibrated throughput on replay.
	PropertyClockDeltaTs        = "clock.deltats"
	PropertyClockDeltaTsDefault = "0"
	// Used when no throughput is known to derive the delta from.
	PropertyClockFallbackDeltaTs        = "clock.fallbackdeltats"
	PropertyClockFallbackDeltaTsDefault = "100"
	// Whether a populate-mode clock projects the end of the initial
	// population ("true") or anchors it at the start time ("false").
	PropertyClockProject        = "clock.project"
	PropertyClockProjectDefault = "true"

	// Density
	// Where the calibration run records its timestamp boundaries and
	// where the hybrid run imports them from.
	PropertyDensityFile        = "density.file"
	PropertyDensityFileDefault = "density.yaml"

	// Terminals
	// The number of OLTP terminals. Zero means ten per warehouse.
	PropertyOLTPTerminals        = "oltp.terminals"
	PropertyOLTPTerminalsDefault = "0"
	// Weighted OLTP transaction mix.
	PropertyOLTPMix        = "oltp.mix"
	PropertyOLTPMixDefault = "NewOrder=45,Payment=43,OrderStatus=4,Delivery=4,StockLevel=4"
	// The maximum number of OLAP terminals added during a hybrid run.
	PropertyOLAPMaxTerminals        = "olap.maxterminals"
	PropertyOLAPMaxTerminalsDefault = "0"
	// Seconds between two OLAP terminal additions.
	PropertyOLAPInterval        = "olap.interval"
	PropertyOLAPIntervalDefault = "60"
	// Weighted analytical query mix.
	PropertyOLAPMix        = "olap.mix"
	PropertyOLAPMixDefault = "Q1=1,Q3=1,Q6=1,Q12=1,Q14=1"
	// Scale applied to keying and think times; 0 disables waiting.
	PropertyTerminalWaitScale        = "terminal.waitscale"
	PropertyTerminalWaitScaleDefault = "1.0"

	// Metrics
	// Address to serve prometheus metrics on, e.g. ":9090". Empty disables.
	PropertyMetricsListen        = "metrics.listen"
	PropertyMetricsListenDefault = ""

	// measurement
	// The name of the property for deciding what percentile values to output.
	PropertyPercentiles = "hdrhistogram.percentiles"
	// The default value of `PropertyPercentiles`
	PropertyPercentilesDefault = "95,99"
	// Highest trackable latency in microseconds.
	PropertyHdrHistogramMax        = "hdrhistogram.max"
	PropertyHdrHistogramMaxDefault = "3600000000"
	// Number of significant value digits kept by the histogram.
	PropertyHdrHistogramSig        = "hdrhistogram.sig"
	PropertyHdrHistogramSigDefault = "3"
)
