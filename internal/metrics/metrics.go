// Package metrics exposes Prometheus collectors for dispatches and batch progress.
package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"ArticlesEvaluator/internal/domain"
	"ArticlesEvaluator/internal/infrastructure/llm"
	"ArticlesEvaluator/internal/ports"
)

const namespace = "article_evaluator"

// Dispatch outcome labels.
const (
	OutcomeOK             = "ok"
	OutcomeBackendError   = "backend_error"
	OutcomeTransportError = "transport_error"
	OutcomeParseError     = "parse_error"
	OutcomeOtherError     = "error"
)

// Collector groups the evaluator's collectors.
type Collector struct {
	dispatchTotal    *prometheus.CounterVec
	dispatchDuration prometheus.Histogram
	recordsTotal     *prometheus.CounterVec
	batchProgress    prometheus.Gauge
}

// MustNewCollector registers all collectors with reg and panics on conflicts.
func MustNewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	c := &Collector{
		dispatchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_total",
			Help:      "Backend requests by outcome.",
		}, []string{"outcome"}),
		dispatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dispatch_duration_seconds",
			Help:      "Latency of backend requests.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80, 160},
		}),
		recordsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_total",
			Help:      "Records written to the result sink by outcome.",
		}, []string{"outcome"}),
		batchProgress: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "batch_progress",
			Help:      "Fraction of the current batch range processed.",
		}),
	}
	reg.MustRegister(c.dispatchTotal, c.dispatchDuration, c.recordsTotal, c.batchProgress)
	return c
}

// RecordEvaluated counts a record as evaluated or failed ("NA").
func (c *Collector) RecordEvaluated(results domain.Results) {
	if c == nil {
		return
	}
	outcome := "evaluated"
	if results.Failed() {
		outcome = "failed"
	}
	c.recordsTotal.WithLabelValues(outcome).Inc()
}

// ProgressChanged publishes the batch progress fraction.
func (c *Collector) ProgressChanged(fraction float64) {
	if c == nil {
		return
	}
	c.batchProgress.Set(fraction)
}

// ObserveDispatch records one backend call.
func (c *Collector) ObserveDispatch(elapsed time.Duration, err error) {
	if c == nil {
		return
	}
	c.dispatchTotal.WithLabelValues(Classify(err)).Inc()
	c.dispatchDuration.Observe(elapsed.Seconds())
}

// Classify maps a dispatch error onto an outcome label.
func Classify(err error) string {
	if err == nil {
		return OutcomeOK
	}
	var dispatchErr *llm.DispatchError
	if errors.As(err, &dispatchErr) {
		if dispatchErr.Kind() == llm.KindTransport {
			return OutcomeTransportError
		}
		return OutcomeBackendError
	}
	if errors.Is(err, llm.ErrMalformedResponse) {
		return OutcomeParseError
	}
	return OutcomeOtherError
}

// InstrumentDispatcher wraps dispatcher so every call is observed by c.
func InstrumentDispatcher(dispatcher ports.Dispatcher, c *Collector) ports.Dispatcher {
	if c == nil {
		return dispatcher
	}
	return instrumented{delegate: dispatcher, collector: c, now: time.Now}
}

type instrumented struct {
	delegate  ports.Dispatcher
	collector *Collector
	now       func() time.Time
}

func (i instrumented) Dispatch(ctx context.Context, prompt, credential string) (string, error) {
	start := i.now()
	text, err := i.delegate.Dispatch(ctx, prompt, credential)
	i.collector.ObserveDispatch(i.now().Sub(start), err)
	return text, err
}
