// Package prometheus adapts goQuiz engine metrics to client_golang.
//
// [NewCollector] returns a prometheus.Collector that callers register on
// their own registry. Counter names are prefixed goquiz_ and end in _total;
// latency histograms end in _seconds.
package prometheus
