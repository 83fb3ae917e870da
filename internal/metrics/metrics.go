package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	rendersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "traceview",
			Name:      "renders_total",
			Help:      "Total page rasterizations by source and result",
		},
		[]string{"source", "result"},
	)

	renderLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "traceview",
			Name:      "render_duration_seconds",
			Help:      "Duration of page rasterizations by source",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"source"},
	)

	cacheEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "traceview",
			Name:      "render_cache_events_total",
			Help:      "Render cache events (hit, miss, eviction)",
		},
		[]string{"event"},
	)

	cacheBytes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "traceview",
			Name:      "render_cache_bytes",
			Help:      "Bytes of raster data currently cached",
		},
	)

	pagesServed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "traceview",
			Name:      "pages_served_total",
			Help:      "Page images served, labeled by outcome (rendered, placeholder)",
		},
		[]string{"outcome"},
	)

	uploadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "traceview",
			Name:      "uploads_total",
			Help:      "Uploads by kind (pdf, records) and result",
		},
		[]string{"kind", "result"},
	)
)

// Init registers collectors.
func Init() {
	prometheus.MustRegister(rendersTotal, renderLatency, cacheEvents, cacheBytes, pagesServed, uploadsTotal)
}

// Handler returns the http.Handler for /metrics
func Handler() http.Handler { return promhttp.Handler() }

func ObserveRender(source, result string, dur time.Duration) {
	rendersTotal.WithLabelValues(source, result).Inc()
	renderLatency.WithLabelValues(source).Observe(dur.Seconds())
}

func CacheHit()      { cacheEvents.WithLabelValues("hit").Inc() }
func CacheMiss()     { cacheEvents.WithLabelValues("miss").Inc() }
func CacheEviction() { cacheEvents.WithLabelValues("eviction").Inc() }

func SetCacheBytes(v int64) { cacheBytes.Set(float64(v)) }

func PageServed(outcome string) { pagesServed.WithLabelValues(outcome).Inc() }

func IncUpload(kind, result string) { uploadsTotal.WithLabelValues(kind, result).Inc() }
