// Package metrics holds Prometheus instruments that are used across the
// service. All collectors are registered with the global registry, so
// importing this package in main.go is enough to expose them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// City-code cache (internal/citycache), mirrors the teacher's tenant
	// cache gauges.
	CityCacheEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "citycache_entries",
			Help: "Number of (source, city) entries currently cached.",
		})

	CityCacheLoadTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "citycache_load_total",
			Help: "Cumulative number of city-code probes resolved.",
		})

	CityCacheLoadErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "citycache_load_errors_total",
			Help: "Cumulative number of city-code probe errors.",
		})

	CityCacheEvictTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "citycache_evict_total",
			Help: "Cumulative number of city-code entries evicted.",
		})

	// Source adapters / aggregator.
	AdapterFetchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adapter_fetch_total",
			Help: "Adapter fetch attempts by source and outcome.",
		}, []string{"source", "outcome"})

	AdapterListingsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adapter_listings_total",
			Help: "Listings returned per adapter fetch, by source.",
		}, []string{"source"})

	AggregatorDedupTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aggregator_dedup_total",
			Help: "Listings removed by aggregator-level dedup, by layer.",
		}, []string{"layer"})

	// Listing cache.
	CacheReadTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_read_total",
			Help: "Cache read-through outcomes.",
		}, []string{"outcome"}) // hit, fallthrough, unavailable

	CacheWriteErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cache_write_errors_total",
			Help: "Cumulative write-through upsert failures (best-effort, non-fatal).",
		})

	// Dedup / dispatch.
	DedupSkipTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dedup_skip_total",
			Help: "Listings skipped per subscriber by dedup layer.",
		}, []string{"layer"}) // seen_id, content_hash

	DispatchRunTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_run_total",
			Help: "Per-subscriber dispatch outcomes.",
		}, []string{"outcome"}) // delivered, skipped_invalid, deactivated, error

	// Delivery / rate limiting.
	DeliverySendTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "delivery_send_total",
			Help: "Outbound send attempts by result.",
		}, []string{"result"}) // ok, chat_closed, transient_failure

	DeliveryRateWaitSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "delivery_rate_wait_seconds",
			Help:    "Time spent waiting on rate limiters before a send.",
			Buckets: prometheus.DefBuckets,
		})

	SchedulerTickSkippedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scheduler_tick_skipped_total",
			Help: "Ticks skipped because the previous tick was still running.",
		})

	// Inbound chat gateway.
	InboundThrottledTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inbound_throttled_total",
			Help: "Commands rejected by the inbound anti-abuse limiter, by verb.",
		}, []string{"verb"})
)

func init() {
	prometheus.MustRegister(
		CityCacheEntries,
		CityCacheLoadTotal,
		CityCacheLoadErrorsTotal,
		CityCacheEvictTotal,
		AdapterFetchTotal,
		AdapterListingsTotal,
		AggregatorDedupTotal,
		CacheReadTotal,
		CacheWriteErrorsTotal,
		DedupSkipTotal,
		DispatchRunTotal,
		DeliverySendTotal,
		DeliveryRateWaitSeconds,
		SchedulerTickSkippedTotal,
		InboundThrottledTotal,
	)
}
