package receipt

import "github.com/prometheus/client_golang/prometheus"

var (
	requests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "receipt_ocr",
			Name:      "requests_total",
			Help:      "The total number of receipt requests by response code.",
		},
		[]string{"code"},
	)
	requestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "receipt_ocr",
			Name:      "request_duration_seconds",
			Help:      "End to end duration of successful receipt requests.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		},
	)
	cacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "receipt_ocr",
			Name:      "result_cache_lookups_total",
			Help:      "The total number of result cache lookups by outcome.",
		},
		[]string{"outcome"},
	)
	itemsExtracted = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "receipt_ocr",
			Name:      "items_extracted",
			Help:      "Number of line items extracted per receipt.",
			Buckets:   prometheus.LinearBuckets(0, 5, 8),
		},
	)
)

func init() {
	prometheus.MustRegister(requests, requestDuration, cacheLookups, itemsExtracted)
}
