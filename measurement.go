package yahb

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/codahale/hdrhistogram"
	g "github.com/hhkbp2/yahb/generator"
)

type StatusType uint8

const (
	StatusOK StatusType = 1 + iota
	StatusError
	StatusNotFound
	StatusAborted
	StatusInconsistent
	StatusConflict

	statusCount = int(StatusConflict) + 1
)

func (self StatusType) String() string {
	switch self {
	case StatusOK:
		return "OK"
	case StatusError:
		return "ERROR"
	case StatusNotFound:
		return "NOT_FOUND"
	case StatusAborted:
		return "ABORTED"
	case StatusInconsistent:
		return "INCONSISTENT"
	case StatusConflict:
		return "CONFLICT"
	default:
		return "UNKNOW_STATUS"
	}
}

// MeasurementExporter writes the final report, one (metric, measurement,
// value) sample at a time.
type MeasurementExporter interface {
	// v is an int64, a uint32 or a float64
	Write(metric string, measurement string, v interface{}) error
	io.Closer
}

type MakeMeasurementExporterFunc func(w io.WriteCloser) MeasurementExporter

var (
	MeasurementExporters = map[string]MakeMeasurementExporterFunc{
		"TextMeasurementExporter": func(w io.WriteCloser) MeasurementExporter {
			return NewTextMeasurementExporter(w)
		},
		"JSONMeasurementExporter": func(w io.WriteCloser) MeasurementExporter {
			return NewJSONMeasurementExporter(w)
		},
		"JSONArrayMeasurementExporter": func(w io.WriteCloser) MeasurementExporter {
			return NewJSONArrayMeasurementExporter(w)
		},
	}
)

func NewMeasurementExporter(className string, w io.WriteCloser) (MeasurementExporter, error) {
	f, ok := MeasurementExporters[className]
	if !ok {
		return nil, g.NewErrorf("unsupported measurement exporter: %s", className)
	}
	return f(w), nil
}

// Measurements collects the latency and the outcome of every transaction of
// a run, keyed by procedure name. One instance is shared by all terminals.
type Measurements interface {
	// Latency is in microseconds.
	Measure(procedure string, latency int64)
	// One line per status interval; only procedures that ran since the
	// previous call are included.
	GetSummary() string
	ReportStatus(procedure string, status StatusType)
	ExportMeasurements(exporter MeasurementExporter) error
}

// procedureMeasurement is the latency histogram and the outcome counts of
// one procedure.
type procedureMeasurement struct {
	name      string
	lock      sync.Mutex
	histogram *hdrhistogram.Histogram
	window    int64
	statuses  [statusCount]uint32
}

func (self *procedureMeasurement) measure(latency int64) {
	self.lock.Lock()
	defer self.lock.Unlock()
	// clamp what the histogram cannot track
	if err := self.histogram.RecordValue(latency); err != nil {
		self.histogram.RecordValue(self.histogram.HighestTrackableValue())
	}
	self.window++
}

func (self *procedureMeasurement) report(status StatusType) {
	if int(status) >= statusCount {
		status = StatusError
	}
	self.lock.Lock()
	self.statuses[status]++
	self.lock.Unlock()
}

func (self *procedureMeasurement) count(status StatusType) uint32 {
	if int(status) >= statusCount {
		return 0
	}
	self.lock.Lock()
	defer self.lock.Unlock()
	return self.statuses[status]
}

func (self *procedureMeasurement) summary() string {
	self.lock.Lock()
	defer self.lock.Unlock()
	if self.window == 0 {
		return ""
	}
	self.window = 0
	h := self.histogram
	s := fmt.Sprintf("[%s: Count=%d, Max=%d, Min=%d, Avg=%.2f, 90=%d, 99=%d, 99.9=%d",
		self.name, h.TotalCount(), h.Max(), h.Min(), h.Mean(),
		h.ValueAtQuantile(90), h.ValueAtQuantile(99), h.ValueAtQuantile(99.9))
	for status := StatusError; int(status) < statusCount; status++ {
		if n := self.statuses[status]; n > 0 {
			s += fmt.Sprintf(", %s=%d", status, n)
		}
	}
	return s + "]"
}

func (self *procedureMeasurement) export(exporter MeasurementExporter, percentiles []int64) (err error) {
	defer catch(&err)
	self.lock.Lock()
	defer self.lock.Unlock()
	h := self.histogram
	try(exporter.Write(self.name, "Operations", h.TotalCount()))
	try(exporter.Write(self.name, "AverageLatency(us)", h.Mean()))
	try(exporter.Write(self.name, "MinLatency(us)", h.Min()))
	try(exporter.Write(self.name, "MaxLatency(us)", h.Max()))
	for _, p := range percentiles {
		try(exporter.Write(self.name, ordinal(p)+"PercentileLatency(us)", h.ValueAtQuantile(float64(p))))
	}
	for status := StatusOK; int(status) < statusCount; status++ {
		if n := self.statuses[status]; n > 0 {
			try(exporter.Write(self.name, "Return="+status.String(), n))
		}
	}
	return
}

// DefaultMeasurements keeps one HdrHistogram backed measurement per
// procedure name.
type DefaultMeasurements struct {
	percentiles []int64
	max         int64
	sig         int

	lock       sync.RWMutex
	procedures map[string]*procedureMeasurement
}

func NewDefaultMeasurements(props Properties) (*DefaultMeasurements, error) {
	percentiles, err := parsePercentiles(props.GetDefault(PropertyPercentiles, PropertyPercentilesDefault))
	if err != nil {
		Warnf("%s, using %s", err, PropertyPercentilesDefault)
		percentiles, _ = parsePercentiles(PropertyPercentilesDefault)
	}
	max, err := props.GetInt64(PropertyHdrHistogramMax, PropertyHdrHistogramMaxDefault)
	if err != nil {
		return nil, err
	}
	sig, err := props.GetInt64(PropertyHdrHistogramSig, PropertyHdrHistogramSigDefault)
	if err != nil {
		return nil, err
	}
	if sig < 1 || sig > 5 {
		return nil, g.NewErrorf("%s must be in [1, 5], got %d", PropertyHdrHistogramSig, sig)
	}
	return &DefaultMeasurements{
		percentiles: percentiles,
		max:         max,
		sig:         int(sig),
		procedures:  make(map[string]*procedureMeasurement),
	}, nil
}

func (self *DefaultMeasurements) Measure(procedure string, latency int64) {
	self.get(procedure).measure(latency)
}

func (self *DefaultMeasurements) ReportStatus(procedure string, status StatusType) {
	self.get(procedure).report(status)
}

// StatusCount returns how many times the procedure reported the status.
func (self *DefaultMeasurements) StatusCount(procedure string, status StatusType) uint32 {
	self.lock.RLock()
	m, ok := self.procedures[procedure]
	self.lock.RUnlock()
	if !ok {
		return 0
	}
	return m.count(status)
}

func (self *DefaultMeasurements) GetSummary() string {
	parts := make([]string, 0)
	for _, m := range self.sorted() {
		if s := m.summary(); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

func (self *DefaultMeasurements) ExportMeasurements(exporter MeasurementExporter) error {
	for _, m := range self.sorted() {
		if err := m.export(exporter, self.percentiles); err != nil {
			return err
		}
	}
	return nil
}

func (self *DefaultMeasurements) sorted() []*procedureMeasurement {
	self.lock.RLock()
	defer self.lock.RUnlock()
	ret := make([]*procedureMeasurement, 0, len(self.procedures))
	for _, m := range self.procedures {
		ret = append(ret, m)
	}
	sort.Slice(ret, func(i, j int) bool {
		return ret[i].name < ret[j].name
	})
	return ret
}

func (self *DefaultMeasurements) get(procedure string) *procedureMeasurement {
	self.lock.RLock()
	m, ok := self.procedures[procedure]
	self.lock.RUnlock()
	if ok {
		return m
	}
	self.lock.Lock()
	defer self.lock.Unlock()
	if m, ok = self.procedures[procedure]; !ok {
		m = &procedureMeasurement{
			name:      procedure,
			histogram: hdrhistogram.New(0, self.max, self.sig),
		}
		self.procedures[procedure] = m
	}
	return m
}

func parsePercentiles(prop string) ([]int64, error) {
	parts := strings.Split(prop, ",")
	ret := make([]int64, 0, len(parts))
	for _, p := range parts {
		i, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil || i <= 0 || i >= 100 {
			return nil, g.NewErrorf("invalid percentile %q in %s", p, PropertyPercentiles)
		}
		ret = append(ret, i)
	}
	return ret, nil
}

func ordinal(p int64) string {
	switch p % 100 {
	case 11, 12, 13:
		return fmt.Sprintf("%dth", p)
	}
	switch p % 10 {
	case 1:
		return fmt.Sprintf("%dst", p)
	case 2:
		return fmt.Sprintf("%dnd", p)
	case 3:
		return fmt.Sprintf("%drd", p)
	default:
		return fmt.Sprintf("%dth", p)
	}
}

// bufferedExporter owns the destination of an exporter: it is flushed and
// closed together with the exporter.
type bufferedExporter struct {
	w   io.WriteCloser
	buf *bufio.Writer
}

func newBufferedExporter(w io.WriteCloser) bufferedExporter {
	return bufferedExporter{
		w:   w,
		buf: bufio.NewWriter(w),
	}
}

func (self *bufferedExporter) Close() error {
	err := self.buf.Flush()
	if closeErr := self.w.Close(); err == nil {
		err = closeErr
	}
	return err
}

// TextMeasurementExporter writes "[metric], measurement, value" lines.
type TextMeasurementExporter struct {
	bufferedExporter
}

func NewTextMeasurementExporter(w io.WriteCloser) *TextMeasurementExporter {
	return &TextMeasurementExporter{
		bufferedExporter: newBufferedExporter(w),
	}
}

func (self *TextMeasurementExporter) Write(metric string, measurement string, v interface{}) error {
	_, err := fmt.Fprintf(self.buf, "[%s], %s, %v\n", metric, measurement, v)
	return err
}

type innerJSONMeasurement struct {
	Metric      string      `json:"metric"`
	Measurement string      `json:"measurement"`
	Value       interface{} `json:"value"`
}

// JSONMeasurementExporter writes one JSON object per sample, either one per
// line or as the elements of a single array.
type JSONMeasurementExporter struct {
	bufferedExporter
	array   bool
	written int
}

func NewJSONMeasurementExporter(w io.WriteCloser) *JSONMeasurementExporter {
	return &JSONMeasurementExporter{
		bufferedExporter: newBufferedExporter(w),
	}
}

func NewJSONArrayMeasurementExporter(w io.WriteCloser) *JSONMeasurementExporter {
	e := NewJSONMeasurementExporter(w)
	e.array = true
	return e
}

func (self *JSONMeasurementExporter) Write(metric string, measurement string, v interface{}) error {
	b, err := json.Marshal(&innerJSONMeasurement{
		Metric:      metric,
		Measurement: measurement,
		Value:       v,
	})
	if err != nil {
		return err
	}
	switch {
	case !self.array:
		b = append(b, '\n')
	case self.written == 0:
		self.buf.WriteByte('[')
	default:
		self.buf.WriteByte(',')
	}
	self.written++
	_, err = self.buf.Write(b)
	return err
}

func (self *JSONMeasurementExporter) Close() error {
	if self.array {
		if self.written == 0 {
			self.buf.WriteByte('[')
		}
		self.buf.WriteByte(']')
	}
	return self.bufferedExporter.Close()
}

func try(err error) {
	if err != nil {
		panic(err)
	}
}

func catch(err *error) {
	if p := recover(); p != nil {
		e, ok := p.(error)
		if !ok {
			panic(p)
		}
		*err = e
	}
}
