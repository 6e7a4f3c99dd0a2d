package scanning

import "github.com/prometheus/client_golang/prometheus"

var (
	engineLoads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "receipt_ocr",
			Subsystem: "scanning",
			Name:      "engine_loads_total",
			Help:      "The total number of recognition engines loaded.",
		},
		[]string{"language"},
	)
	passDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "receipt_ocr",
			Subsystem: "scanning",
			Name:      "pass_duration_seconds",
			Help:      "Duration of a single recognition pass.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		},
		[]string{"language", "variant"},
	)
	passErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "receipt_ocr",
			Subsystem: "scanning",
			Name:      "pass_errors_total",
			Help:      "The total number of recognition passes that failed.",
		},
		[]string{"language", "variant"},
	)
	selections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "receipt_ocr",
			Subsystem: "scanning",
			Name:      "selections_total",
			Help:      "The total number of selected passes by language and variant.",
		},
		[]string{"language", "variant"},
	)
)

func init() {
	prometheus.MustRegister(engineLoads, passDuration, passErrors, selections)
}
