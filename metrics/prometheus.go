package metrics

import (
	"math/big"
	"net/http"
	"sync"
	"time"

	"cosmossdk.io/math"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/openalpha/yield-vault/x/vault/types"
)

// Vault Metrics Collector
// Exposes pool gauges and service counters for the vault API

var (
	// Singleton collector
	collector     *Collector
	collectorOnce sync.Once
)

// Collector holds all vault metrics
type Collector struct {
	// Pool metrics
	PoolAmount    *prometheus.GaugeVec
	PricePerShare prometheus.Gauge
	PoolAtLoss    prometheus.Gauge

	// Event metrics
	EventsTotal *prometheus.CounterVec

	// Keeper bot metrics
	KeeperRunsTotal *prometheus.CounterVec

	// WebSocket metrics
	WSConnectionsActive prometheus.Gauge
	WSMessagesTotal     *prometheus.CounterVec

	// API metrics
	APIRequestsTotal  *prometheus.CounterVec
	APIRequestLatency *prometheus.HistogramVec
	RateLimitHits     *prometheus.CounterVec
}

// GetCollector returns the singleton metrics collector
func GetCollector() *Collector {
	collectorOnce.Do(func() {
		collector = newCollector()
	})
	return collector
}

// newCollector creates a new metrics collector
func newCollector() *Collector {
	c := &Collector{}

	c.PoolAmount = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "vault",
			Subsystem: "pool",
			Name:      "amount",
			Help:      "Pool amounts in underlying units (shares in share units)",
		},
		[]string{"component"},
	)

	c.PricePerShare = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "vault",
			Subsystem: "pool",
			Name:      "price_per_share",
			Help:      "Underlying value of one share unit",
		},
	)

	c.PoolAtLoss = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "vault",
			Subsystem: "pool",
			Name:      "at_loss",
			Help:      "1 while the held balance is below principal, sponsorships and fees",
		},
	)

	c.EventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vault",
			Subsystem: "events",
			Name:      "total",
			Help:      "Vault events emitted by type",
		},
		[]string{"type"},
	)

	c.KeeperRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vault",
			Subsystem: "keeper",
			Name:      "runs_total",
			Help:      "Keeper bot runs by action and result",
		},
		[]string{"action", "result"},
	)

	c.WSConnectionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "vault",
			Subsystem: "websocket",
			Name:      "connections_active",
			Help:      "Number of active WebSocket connections",
		},
	)

	c.WSMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vault",
			Subsystem: "websocket",
			Name:      "messages_total",
			Help:      "WebSocket messages sent by type",
		},
		[]string{"type"},
	)

	c.APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vault",
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Total API requests",
		},
		[]string{"method", "path", "status"},
	)

	c.APIRequestLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "vault",
			Subsystem: "api",
			Name:      "latency_ms",
			Help:      "API request latency in milliseconds",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 25, 50, 100, 250},
		},
		[]string{"method", "path"},
	)

	c.RateLimitHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vault",
			Subsystem: "api",
			Name:      "rate_limit_hits_total",
			Help:      "Requests rejected by the rate limiter",
		},
		[]string{"limit_type"},
	)

	c.registerAll()

	return c
}

// registerAll registers all metrics with Prometheus
func (c *Collector) registerAll() {
	prometheus.MustRegister(c.PoolAmount)
	prometheus.MustRegister(c.PricePerShare)
	prometheus.MustRegister(c.PoolAtLoss)

	prometheus.MustRegister(c.EventsTotal)
	prometheus.MustRegister(c.KeeperRunsTotal)

	prometheus.MustRegister(c.WSConnectionsActive)
	prometheus.MustRegister(c.WSMessagesTotal)

	prometheus.MustRegister(c.APIRequestsTotal)
	prometheus.MustRegister(c.APIRequestLatency)
	prometheus.MustRegister(c.RateLimitHits)
}

// ============ Recording Helpers ============

// UpdatePool sets the pool gauges from a pool query
func (c *Collector) UpdatePool(info *types.PoolInfo) {
	c.PoolAmount.WithLabelValues("held").Set(toFloat(info.Held))
	c.PoolAmount.WithLabelValues("local").Set(toFloat(info.Snapshot.Local))
	c.PoolAmount.WithLabelValues("invested").Set(toFloat(info.Snapshot.Invested))
	c.PoolAmount.WithLabelValues("total_principal").Set(toFloat(info.TotalPrincipal))
	c.PoolAmount.WithLabelValues("total_sponsored").Set(toFloat(info.TotalSponsored))
	c.PoolAmount.WithLabelValues("total_shares").Set(toFloat(info.TotalShares))
	c.PoolAmount.WithLabelValues("accumulated_perf_fee").Set(toFloat(info.AccumulatedPerfFee))
	c.PoolAmount.WithLabelValues("pending_settlement").Set(toFloat(info.PendingSettlement))

	if price, err := info.PricePerShare.Float64(); err == nil {
		c.PricePerShare.Set(price)
	}
	if info.IsAtLoss {
		c.PoolAtLoss.Set(1)
	} else {
		c.PoolAtLoss.Set(0)
	}
}

// RecordEvent counts an emitted vault event
func (c *Collector) RecordEvent(eventType string) {
	c.EventsTotal.WithLabelValues(eventType).Inc()
}

// RecordKeeperRun records one keeper bot action
func (c *Collector) RecordKeeperRun(action, result string) {
	c.KeeperRunsTotal.WithLabelValues(action, result).Inc()
}

// RecordAPIRequest records an API request
func (c *Collector) RecordAPIRequest(method, path, status string, latencyMs float64) {
	c.APIRequestsTotal.WithLabelValues(method, path, status).Inc()
	c.APIRequestLatency.WithLabelValues(method, path).Observe(latencyMs)
}

// RecordRateLimitHit records a rejected request
func (c *Collector) RecordRateLimitHit(limitType string) {
	c.RateLimitHits.WithLabelValues(limitType).Inc()
}

// RecordWSConnection records WebSocket connection changes
func (c *Collector) RecordWSConnection(delta int) {
	c.WSConnectionsActive.Add(float64(delta))
}

// RecordWSMessage records a WebSocket message
func (c *Collector) RecordWSMessage(msgType string) {
	c.WSMessagesTotal.WithLabelValues(msgType).Inc()
}

func toFloat(i math.Int) float64 {
	if i.IsNil() {
		return 0
	}
	f, _ := new(big.Float).SetInt(i.BigInt()).Float64()
	return f
}

// ============ HTTP Handler ============

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for measuring latency
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ElapsedMs returns the elapsed time in milliseconds
func (t *Timer) ElapsedMs() float64 {
	return float64(time.Since(t.start).Microseconds()) / 1000.0
}
