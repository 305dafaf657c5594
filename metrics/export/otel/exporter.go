package otel

import (
	"context"
	"errors"
	"fmt"

	goQuiz "github.com/MrEthical07/goQuiz"
	"github.com/MrEthical07/goQuiz/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

type metricsSource interface {
	MetricsSnapshot() goQuiz.MetricsSnapshot
	AuditDropped() uint64
}

type counterInstrument struct {
	id  goQuiz.MetricID
	ins metric.Int64ObservableCounter
}

type histogramInstrument struct {
	id      goQuiz.MetricID
	buckets [len(internaldefs.HistogramUpperBounds)]metric.Int64ObservableGauge
	count   metric.Int64ObservableGauge
}

// Exporter observes engine metrics through a single registered callback.
type Exporter struct {
	source       metricsSource
	registration metric.Registration
	counters     []counterInstrument
	histograms   []histogramInstrument
	auditDropped metric.Int64ObservableCounter
}

// New registers instruments for engine on meter.
func New(meter metric.Meter, engine *goQuiz.Engine) (*Exporter, error) {
	if engine == nil {
		return nil, ErrNilSource
	}
	return NewFromSource(meter, engine)
}

// NewFromSource is New for any snapshot provider.
func NewFromSource(meter metric.Meter, source metricsSource) (*Exporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	exp := &Exporter{
		source:     source,
		counters:   make([]counterInstrument, 0, len(internaldefs.CounterDefs)),
		histograms: make([]histogramInstrument, 0, len(internaldefs.HistogramDefs)),
	}
	perHistogram := len(internaldefs.HistogramUpperBounds) + 1
	observables := make([]metric.Observable, 0, len(internaldefs.CounterDefs)+len(internaldefs.HistogramDefs)*perHistogram+1)

	for _, def := range internaldefs.CounterDefs {
		ins, err := meter.Int64ObservableCounter(def.Name, metric.WithDescription(def.Help))
		if err != nil {
			return nil, fmt.Errorf("counter %s: %w", def.Name, err)
		}
		exp.counters = append(exp.counters, counterInstrument{id: def.ID, ins: ins})
		observables = append(observables, ins)
	}

	for _, def := range internaldefs.HistogramDefs {
		h := histogramInstrument{id: def.ID}
		for i, suffix := range internaldefs.HistogramBoundSuffix {
			name := def.Name + "_bucket_le_" + suffix
			ins, err := meter.Int64ObservableGauge(name, metric.WithDescription(def.Help+" Cumulative bucket count."))
			if err != nil {
				return nil, fmt.Errorf("bucket gauge %s: %w", name, err)
			}
			h.buckets[i] = ins
			observables = append(observables, ins)
		}
		countName := def.Name + "_count"
		ins, err := meter.Int64ObservableGauge(countName, metric.WithDescription(def.Help+" Sample count."))
		if err != nil {
			return nil, fmt.Errorf("count gauge %s: %w", countName, err)
		}
		h.count = ins
		observables = append(observables, ins)
		exp.histograms = append(exp.histograms, h)
	}

	dropped, err := meter.Int64ObservableCounter(
		"goquiz_audit_dropped_total",
		metric.WithDescription("Dropped audit events due to dispatcher backpressure."),
	)
	if err != nil {
		return nil, fmt.Errorf("audit dropped counter: %w", err)
	}
	exp.auditDropped = dropped
	observables = append(observables, dropped)

	reg, err := meter.RegisterCallback(exp.observe, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	exp.registration = reg
	return exp, nil
}

func (e *Exporter) observe(_ context.Context, o metric.Observer) error {
	snap := e.source.MetricsSnapshot()
	for _, c := range e.counters {
		o.ObserveInt64(c.ins, int64(snap.Counters[c.id]))
	}
	for _, h := range e.histograms {
		raw, ok := snap.Histograms[h.id]
		if !ok {
			continue
		}
		cum := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(raw))
		for i := range cum {
			o.ObserveInt64(h.buckets[i], int64(cum[i]))
		}
		o.ObserveInt64(h.count, int64(cum[len(cum)-1]))
	}
	o.ObserveInt64(e.auditDropped, int64(e.source.AuditDropped()))
	return nil
}

// Close unregisters the callback. Instruments stay registered on the meter.
func (e *Exporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
