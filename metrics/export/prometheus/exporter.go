package prometheus

import (
	goQuiz "github.com/MrEthical07/goQuiz"
	"github.com/MrEthical07/goQuiz/metrics/export/internaldefs"
	"github.com/prometheus/client_golang/prometheus"
)

type metricsSource interface {
	MetricsSnapshot() goQuiz.MetricsSnapshot
	AuditDropped() uint64
}

// Collector exposes engine counters and latency histograms as a
// prometheus.Collector. Every scrape reads one engine snapshot.
type Collector struct {
	source     metricsSource
	counters   []*prometheus.Desc
	histograms []*prometheus.Desc
	dropped    *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector reads from engine.
func NewCollector(engine *goQuiz.Engine) *Collector {
	return NewCollectorFromSource(engine)
}

// NewCollectorFromSource reads from any snapshot source.
func NewCollectorFromSource(source metricsSource) *Collector {
	c := &Collector{source: source}
	for _, def := range internaldefs.CounterDefs {
		c.counters = append(c.counters, prometheus.NewDesc(def.Name, def.Help, nil, nil))
	}
	for _, def := range internaldefs.HistogramDefs {
		c.histograms = append(c.histograms, prometheus.NewDesc(def.Name, def.Help, nil, nil))
	}
	c.dropped = prometheus.NewDesc("goquiz_audit_dropped_total", "Dropped audit events due to dispatcher backpressure.", nil, nil)
	return c
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range c.counters {
		ch <- d
	}
	for _, d := range c.histograms {
		ch <- d
	}
	ch <- c.dropped
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	if c.source == nil {
		return
	}
	snapshot := c.source.MetricsSnapshot()

	for i, def := range internaldefs.CounterDefs {
		ch <- prometheus.MustNewConstMetric(c.counters[i], prometheus.CounterValue, float64(snapshot.Counters[def.ID]))
	}

	for i, def := range internaldefs.HistogramDefs {
		raw, ok := snapshot.Histograms[def.ID]
		if !ok {
			continue
		}
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(raw))
		buckets := make(map[float64]uint64, len(cumulative)-1)
		for j := 0; j < len(cumulative)-1; j++ {
			buckets[internaldefs.HistogramUpperBounds[j]] = cumulative[j]
		}
		// The engine does not track sums.
		ch <- prometheus.MustNewConstHistogram(c.histograms[i], cumulative[len(cumulative)-1], 0, buckets)
	}

	ch <- prometheus.MustNewConstMetric(c.dropped, prometheus.CounterValue, float64(c.source.AuditDropped()))
}
