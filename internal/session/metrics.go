package session

import "github.com/prometheus/client_golang/prometheus"

var (
	loadsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "chatgate",
		Subsystem: "session",
		Name:      "loads_total",
		Help:      "Total successful engine handle creations",
	})

	reloadsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chatgate",
		Subsystem: "session",
		Name:      "reloads_total",
		Help:      "Total successful model reloads",
	}, []string{"reason"})

	generationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chatgate",
		Subsystem: "session",
		Name:      "generations_total",
		Help:      "Total completed generation calls",
	}, []string{"mode"})

	retriesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "chatgate",
		Subsystem: "session",
		Name:      "generation_retries_total",
		Help:      "Total retried generation attempts",
	})

	failuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chatgate",
		Subsystem: "session",
		Name:      "failures_total",
		Help:      "Total failed operations by stage",
	}, []string{"stage"})
)

func init() {
	prometheus.MustRegister(loadsTotal, reloadsTotal, generationsTotal, retriesTotal, failuresTotal)
}
