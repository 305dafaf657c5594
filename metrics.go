package goQuiz

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one engine counter. The set is fixed at compile time
// so exporters can enumerate it.
type MetricID uint16

const (
	// MetricRegisterSuccess counts accounts created.
	MetricRegisterSuccess MetricID = iota
	// MetricRegisterDuplicate counts registrations rejected for a taken email.
	MetricRegisterDuplicate
	// MetricLoginSuccess counts successful logins.
	MetricLoginSuccess
	// MetricLoginFailure counts rejected credentials.
	MetricLoginFailure
	// MetricLoginRateLimited counts logins refused by the throttle.
	MetricLoginRateLimited
	// MetricRefreshSuccess counts completed rotations.
	MetricRefreshSuccess
	// MetricRefreshFailure counts refreshes rejected for a missing or invalid token.
	MetricRefreshFailure
	// MetricRefreshReuseDetected counts presentations of an already rotated token.
	MetricRefreshReuseDetected
	// MetricLogout counts logouts.
	MetricLogout
	// MetricPasswordChangeSuccess counts password changes.
	MetricPasswordChangeSuccess
	// MetricPasswordChangeInvalidOld counts password changes with a wrong current password.
	MetricPasswordChangeInvalidOld
	// MetricQuizSessionStarted counts quiz sessions created.
	MetricQuizSessionStarted
	// MetricQuizSessionFinished counts sessions whose last question was answered.
	MetricQuizSessionFinished
	// MetricAnswerCorrect counts correct submissions.
	MetricAnswerCorrect
	// MetricAnswerIncorrect counts incorrect submissions.
	MetricAnswerIncorrect
	// MetricSubmitConflict counts submissions that lost a race for the cursor.
	MetricSubmitConflict
	// MetricValidateLatency records bearer validation latency.
	MetricValidateLatency
	// MetricSubmitLatency records answer submission latency.
	MetricSubmitLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics is a lock-free set of counters and latency histograms.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of every counter and, when
// latency histograms are enabled, every latency histogram.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics builds a Metrics from cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether counters are recorded.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// LatencyEnabled reports whether histograms are recorded.
func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc adds one to counter id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d into the histogram for id. Only latency metrics carry
// histograms; other ids are ignored.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id >= metricIDCount {
		return
	}
	if !isLatencyMetric(id) {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

// Value returns the current value of counter id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies every counter. Histograms are included only when latency
// recording is enabled.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 2),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		for _, id := range []MetricID{MetricValidateLatency, MetricSubmitLatency} {
			buckets := make([]uint64, histBucketCount)
			for i := 0; i < histBucketCount; i++ {
				buckets[i] = atomic.LoadUint64(&m.histograms[id].buckets[i])
			}
			s.Histograms[id] = buckets
		}
	}

	return s
}

func isLatencyMetric(id MetricID) bool {
	return id == MetricValidateLatency || id == MetricSubmitLatency
}

func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 5:
		return 0
	case ms <= 10:
		return 1
	case ms <= 25:
		return 2
	case ms <= 50:
		return 3
	case ms <= 100:
		return 4
	case ms <= 250:
		return 5
	case ms <= 500:
		return 6
	default:
		return 7
	}
}
