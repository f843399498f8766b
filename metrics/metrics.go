package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	SearchesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bot",
		Name:      "requests_total",
		Help:      "Searches by the cascade stage that answered them (none when nothing was found).",
	}, []string{"source"})

	ProviderRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bot",
		Name:      "provider_requests_total",
		Help:      "Provider search calls by provider and result status.",
	}, []string{"provider", "status"})

	ProviderRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "bot",
		Name:      "provider_request_duration_seconds",
		Help:      "Provider search call duration in seconds.",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 20, 30},
	}, []string{"provider"})

	QueryCacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "bot",
		Name:      "query_cache_hits_total",
		Help:      "Query result cache hits.",
	})

	QueryCacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "bot",
		Name:      "query_cache_misses_total",
		Help:      "Query result cache misses.",
	})

	DeliveryCacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "bot",
		Name:      "delivery_cache_hits_total",
		Help:      "Deliveries served from a cached file handle.",
	})

	DeliveryCacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "bot",
		Name:      "delivery_cache_misses_total",
		Help:      "Deliveries that had to fetch audio.",
	})

	DownloadDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "bot",
		Name:      "download_duration_seconds",
		Help:      "Time to fetch audio from a provider.",
		Buckets:   []float64{1, 2, 5, 10, 20, 30, 60, 90},
	}, []string{"source"})

	DownloadFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bot",
		Name:      "download_failures_total",
		Help:      "Failed deliveries by classification.",
	}, []string{"kind"})

	RateLimitedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "bot",
		Name:      "rate_limited_total",
		Help:      "Requests denied by the rate limiter.",
	})

	ChannelTracksImportedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bot",
		Name:      "channel_tracks_imported_total",
		Help:      "Tracks imported from house channels.",
	}, []string{"channel"})

	ChartRefreshesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bot",
		Name:      "chart_refreshes_total",
		Help:      "Chart fetches by chart and result status.",
	}, []string{"chart", "status"})

	InlineQueriesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "bot",
		Name:      "inline_queries_total",
		Help:      "Inline queries answered.",
	})
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		SearchesTotal,
		ProviderRequestsTotal,
		ProviderRequestDuration,
		QueryCacheHitsTotal,
		QueryCacheMissesTotal,
		DeliveryCacheHitsTotal,
		DeliveryCacheMissesTotal,
		DownloadDuration,
		DownloadFailuresTotal,
		RateLimitedTotal,
		ChannelTracksImportedTotal,
		ChartRefreshesTotal,
		InlineQueriesTotal,
	)
}
