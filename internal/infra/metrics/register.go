// Package metrics exposes the billing service's Prometheus collectors:
// transition counters, reconcile run timings and the per-status website
// gauges. Collectors are enqueued at init time and registered once from
// main via MustRegister.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once
	pending      []prometheus.Collector
)

// register enqueues collectors declared by the init() of each metrics file.
func register(cs ...prometheus.Collector) {
	pending = append(pending, cs...)
}

// MustRegister registers every enqueued collector exactly once.
func MustRegister() {
	registerOnce.Do(func() {
		if len(pending) > 0 {
			prometheus.MustRegister(pending...)
		}
	})
}
