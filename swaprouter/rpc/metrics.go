package rpc

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "swaprouter"

var (
	groupsCompiled = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "compiler",
		Name:      "groups_compiled_total",
		Help:      "Total number of swap groups compiled, by mode",
	}, []string{"mode"})

	compileErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "compiler",
		Name:      "errors_total",
		Help:      "Total number of rejected compile requests, by error kind",
	}, []string{"kind"})

	groupHops = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Subsystem: "compiler",
		Name:      "group_hops",
		Help:      "Hops per compiled swap group",
		Buckets:   []float64{1, 2, 3, 4, 5, 6, 7, 8},
	})

	executions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "ledger",
		Name:      "executions_total",
		Help:      "Total number of simulated or submitted groups, by outcome",
	}, []string{"action", "result"})

	streamSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Subsystem: "stream",
		Name:      "subscribers",
		Help:      "Open settlement stream connections",
	})
)

// resultLabel is "ok" or the error kind name.
func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	return kindLabel(err)
}
