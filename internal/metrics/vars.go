package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	AdapterOperations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "adapter_operations_total",
		Help: "Adapter calls by pool family, operation and result",
	}, []string{"family", "operation", "result"})

	AdapterLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "adapter_operation_seconds",
		Help:    "Time spent in adapter calls",
		Buckets: prometheus.DefBuckets,
	}, []string{"family", "operation"})

	PoolInfoCacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "adapter_pool_info_cache_lookups_total",
		Help: "Pool information cache lookups by result (hit, miss)",
	}, []string{"result"})
)

func init() {
	prometheus.MustRegister(
		AdapterOperations,
		AdapterLatency,
		PoolInfoCacheLookups,
	)
}
