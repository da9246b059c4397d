package otel

import (
	"context"
	"errors"
	"fmt"

	goCrud "github.com/MrEthical07/goCrud"
	"github.com/MrEthical07/goCrud/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

type metricsSource interface {
	MetricsSnapshot() goCrud.MetricsSnapshot
	AuditDropped() uint64
}

// counter pairs an engine counter with its instrument.
type counter struct {
	id  goCrud.MetricID
	ins metric.Int64ObservableCounter
}

// histogram exposes one engine histogram as a bucket gauge keyed by the
// "le" attribute plus a sample count gauge.
type histogram struct {
	id      goCrud.MetricID
	buckets metric.Int64ObservableGauge
	count   metric.Int64ObservableGauge
}

// OTelExporter publishes engine metrics through observable instruments. It
// reads a snapshot on every collection; nothing is pushed.
type OTelExporter struct {
	source       metricsSource
	registration metric.Registration
	counters     []counter
	histograms   []histogram
	auditDropped metric.Int64ObservableCounter
	bucketAttrs  []metric.ObserveOption
}

// NewOTelExporter registers instruments for engine on meter.
func NewOTelExporter(meter metric.Meter, engine *goCrud.Engine) (*OTelExporter, error) {
	return NewOTelExporterFromSource(meter, engine)
}

// NewOTelExporterFromSource registers instruments for any snapshot source.
func NewOTelExporterFromSource(meter metric.Meter, source metricsSource) (*OTelExporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	x := &OTelExporter{source: source}
	var observables []metric.Observable

	for _, def := range internaldefs.CounterDefs {
		ins, err := meter.Int64ObservableCounter(def.Name, metric.WithDescription(def.Help))
		if err != nil {
			return nil, fmt.Errorf("counter %s: %w", def.Name, err)
		}
		x.counters = append(x.counters, counter{id: def.ID, ins: ins})
		observables = append(observables, ins)
	}

	for _, le := range internaldefs.HistogramBounds {
		x.bucketAttrs = append(x.bucketAttrs, metric.WithAttributes(attribute.String("le", le)))
	}
	for _, def := range internaldefs.HistogramDefs {
		buckets, err := meter.Int64ObservableGauge(def.Name+"_bucket",
			metric.WithDescription(def.Help+" Cumulative count per upper bound."))
		if err != nil {
			return nil, fmt.Errorf("histogram %s: %w", def.Name, err)
		}
		count, err := meter.Int64ObservableGauge(def.Name+"_count",
			metric.WithDescription(def.Help+" Sample count."))
		if err != nil {
			return nil, fmt.Errorf("histogram %s: %w", def.Name, err)
		}
		x.histograms = append(x.histograms, histogram{id: def.ID, buckets: buckets, count: count})
		observables = append(observables, buckets, count)
	}

	dropped, err := meter.Int64ObservableCounter("gocrud_audit_dropped_total",
		metric.WithDescription("Audit events lost to dispatcher backpressure."))
	if err != nil {
		return nil, fmt.Errorf("audit dropped counter: %w", err)
	}
	x.auditDropped = dropped
	observables = append(observables, dropped)

	reg, err := meter.RegisterCallback(x.observe, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	x.registration = reg
	return x, nil
}

func (x *OTelExporter) observe(_ context.Context, o metric.Observer) error {
	snap := x.source.MetricsSnapshot()

	for _, c := range x.counters {
		o.ObserveInt64(c.ins, int64(snap.Counters[c.id]))
	}
	for _, h := range x.histograms {
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snap.Histograms[h.id]))
		for i, v := range cumulative {
			o.ObserveInt64(h.buckets, int64(v), x.bucketAttrs[i])
		}
		o.ObserveInt64(h.count, int64(cumulative[len(cumulative)-1]))
	}
	o.ObserveInt64(x.auditDropped, int64(x.source.AuditDropped()))
	return nil
}

// Close unregisters the collection callback.
func (x *OTelExporter) Close() error {
	if x == nil || x.registration == nil {
		return nil
	}
	return x.registration.Unregister()
}
