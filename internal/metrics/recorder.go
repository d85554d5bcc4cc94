package metrics

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// Failure reasons used as the "reason" label.
const (
	ReasonStatus    = "status"
	ReasonTransport = "transport"
)

// Recorder counts dispatched, succeeded and failed requests.
type Recorder struct {
	reg        *prometheus.Registry
	dispatched prometheus.Counter
	succeeded  prometheus.Counter
	failed     *prometheus.CounterVec
	pending    prometheus.Gauge
	compressed prometheus.Counter
}

// NewRecorder returns a Recorder backed by a fresh registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		reg: prometheus.NewRegistry(),
		dispatched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "asyncsentry",
			Name:      "requests_dispatched_total",
			Help:      "Requests handed to the async HTTP client.",
		}),
		succeeded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "asyncsentry",
			Name:      "requests_succeeded_total",
			Help:      "Requests that completed with a 2xx response.",
		}),
		failed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "asyncsentry",
			Name:      "requests_failed_total",
			Help:      "Requests that settled with an error, by reason.",
		}, []string{"reason"}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "asyncsentry",
			Name:      "requests_pending",
			Help:      "Requests dispatched and not yet drained.",
		}),
		compressed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "asyncsentry",
			Name:      "requests_compressed_total",
			Help:      "Requests whose body was compressed before dispatch.",
		}),
	}
	r.reg.MustRegister(r.dispatched, r.succeeded, r.failed, r.pending, r.compressed)
	// Expose both reasons from the start so rate() has a zero baseline.
	r.failed.WithLabelValues(ReasonStatus)
	r.failed.WithLabelValues(ReasonTransport)
	return r
}

// Dispatched records one request handed to the client.
func (r *Recorder) Dispatched(compressed bool) {
	r.dispatched.Inc()
	r.pending.Inc()
	if compressed {
		r.compressed.Inc()
	}
}

// Succeeded records a request that settled with a 2xx response.
func (r *Recorder) Succeeded() {
	r.succeeded.Inc()
}

// Failed records a request that settled with an error.
func (r *Recorder) Failed(reason string) {
	r.failed.WithLabelValues(reason).Inc()
}

// Drained records n requests removed from the pending set.
func (r *Recorder) Drained(n int) {
	r.pending.Sub(float64(n))
}

// Registry exposes the underlying registry, e.g. for an HTTP handler.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.reg
}

// WriteText writes every metric family in text exposition format.
func (r *Recorder) WriteText(w io.Writer) error {
	mfs, err := r.reg.Gather()
	if err != nil {
		return fmt.Errorf("metrics: gather: %w", err)
	}
	for _, mf := range mfs {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("metrics: encode %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

// WriteFile writes the text exposition to path via a temp file and rename,
// so a collector never reads a partial file.
func (r *Recorder) WriteFile(path string) error {
	var buf bytes.Buffer
	if err := r.WriteText(&buf); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("metrics: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("metrics: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("metrics: close temp file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("metrics: chmod: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("metrics: rename: %w", err)
	}
	return nil
}
