package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "classifieds_ingestor"

var (
	RecordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_total",
			Help:      "Records read from the stream by result.",
		},
		[]string{"result"},
	)
	CommitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commits_total",
			Help:      "Transactions committed to the destination table.",
		},
	)
	CyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Drain cycles by outcome.",
		},
		[]string{"outcome"},
	)
	ResumePosition = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "resume_position",
			Help:      "Last offset known to be durably stored, -1 when the table is empty.",
		},
	)
	WriteLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "write_latency_seconds",
			Help:      "Latency of a single record write, commit included when one was triggered.",
			Buckets:   prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(
		RecordsTotal,
		CommitsTotal,
		CyclesTotal,
		ResumePosition,
		WriteLatency,
	)
}
