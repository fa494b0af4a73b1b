package yahb

import (
	"context"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exposes the live state of a run to prometheus. Each run owns
// its registry.
type Metrics struct {
	registry        *prometheus.Registry
	activeTerminals *prometheus.GaugeVec
	transactions    *prometheus.CounterVec
	latency         *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	self := &Metrics{
		registry: prometheus.NewRegistry(),
		activeTerminals: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "yahb",
				Subsystem: "terminal",
				Name:      "active",
				Help:      "Number of running terminals by kind",
			}, []string{"kind"}),
		transactions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "yahb",
				Subsystem: "txn",
				Name:      "total",
				Help:      "Counter of executed procedures by outcome",
			}, []string{"procedure", "status"}),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "yahb",
				Subsystem: "txn",
				Name:      "duration_seconds",
				Help:      "Bucketed histogram of procedure execution time (s)",
				Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 20),
			}, []string{"procedure"}),
	}
	self.registry.MustRegister(self.activeTerminals)
	self.registry.MustRegister(self.transactions)
	self.registry.MustRegister(self.latency)
	return self
}

// RegisterClock exports the logical time and the new order stamp count.
func (self *Metrics) RegisterClock(clock *Clock) {
	self.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: "yahb",
			Subsystem: "clock",
			Name:      "current_ts",
			Help:      "Current logical time of the density clock (ms since epoch)",
		}, func() float64 {
			return float64(clock.CurrentTs())
		}))
	self.registry.MustRegister(prometheus.NewCounterFunc(
		prometheus.CounterOpts{
			Namespace: "yahb",
			Subsystem: "clock",
			Name:      "new_orders_total",
			Help:      "Counter of new order stamps",
		}, func() float64 {
			return float64(clock.NewOrders())
		}))
}

func (self *Metrics) Registry() *prometheus.Registry {
	return self.registry
}

func (self *Metrics) TerminalStarted(kind ProcedureKind) {
	self.activeTerminals.WithLabelValues(kind.String()).Inc()
}

func (self *Metrics) TerminalStopped(kind ProcedureKind) {
	self.activeTerminals.WithLabelValues(kind.String()).Dec()
}

func (self *Metrics) ObserveTransaction(procedure string, status StatusType, elapsed time.Duration) {
	self.transactions.WithLabelValues(procedure, status.String()).Inc()
	self.latency.WithLabelValues(procedure).Observe(elapsed.Seconds())
}

// Serve exposes /metrics on addr until ctx is done.
func (self *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(self.registry, promhttp.HandlerOpts{}))
	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		return errors.Wrapf(err, "serve metrics on %s", addr)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}
