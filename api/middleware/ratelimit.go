package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/openalpha/yield-vault/metrics"
)

// Limit classes reported in responses and metrics
const (
	LimitIP = "ip"
	LimitTx = "tx"
)

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	// Every request from an IP draws from this bucket
	IPRequestsPerSecond int           `yaml:"ip_requests_per_second"`
	IPBurst             int           `yaml:"ip_burst"`
	BlockDuration       time.Duration `yaml:"block_duration"`

	// POSTs additionally draw from a stricter per IP bucket
	TxPerSecond int `yaml:"tx_per_second"`
	TxBurst     int `yaml:"tx_burst"`

	CleanupInterval time.Duration `yaml:"cleanup_interval"`
	BucketTTL       time.Duration `yaml:"bucket_ttl"`
}

// DefaultRateLimitConfig returns default configuration
func DefaultRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		IPRequestsPerSecond: 100,
		IPBurst:             200,
		BlockDuration:       time.Minute,
		TxPerSecond:         5,
		TxBurst:             20,
		CleanupInterval:     5 * time.Minute,
		BucketTTL:           time.Hour,
	}
}

// visitor is one limiter plus the penalty box it is sent to on overflow
type visitor struct {
	limiter      *rate.Limiter
	lastSeen     time.Time
	blockedUntil time.Time
}

// RateLimitInfo describes the outcome of one admission check
type RateLimitInfo struct {
	Allowed    bool   `json:"allowed"`
	Remaining  int    `json:"remaining"`
	Limit      int    `json:"limit"`
	RetryAfter int    `json:"retry_after,omitempty"`
	LimitType  string `json:"limit_type"`
}

// RateLimiter admits requests per client IP. An IP that overflows its
// bucket is refused for BlockDuration even after the bucket refills.
type RateLimiter struct {
	config  *RateLimitConfig
	metrics *metrics.Collector
	now     func() time.Time

	mu       sync.Mutex
	visitors map[string]*visitor

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewRateLimiter creates a limiter and starts its eviction loop.
// collector may be nil.
func NewRateLimiter(config *RateLimitConfig, collector *metrics.Collector) *RateLimiter {
	if config == nil {
		config = DefaultRateLimitConfig()
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = 5 * time.Minute
	}
	rl := &RateLimiter{
		config:   config,
		metrics:  collector,
		now:      time.Now,
		visitors: make(map[string]*visitor),
		stopCh:   make(chan struct{}),
	}
	go rl.evictLoop(config.CleanupInterval)
	return rl
}

// Stop ends the eviction loop
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

func (rl *RateLimiter) evictLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stopCh:
			return
		}
	}
}

// cleanup forgets visitors idle for longer than BucketTTL
func (rl *RateLimiter) cleanup() {
	cutoff := rl.now().Add(-rl.config.BucketTTL)
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, v := range rl.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(rl.visitors, key)
		}
	}
}

// AllowIP checks the general request budget of ip
func (rl *RateLimiter) AllowIP(ip string) (bool, *RateLimitInfo) {
	return rl.allow(LimitIP, ip, rl.config.IPRequestsPerSecond, rl.config.IPBurst)
}

// AllowTx checks the transaction budget of ip
func (rl *RateLimiter) AllowTx(ip string) (bool, *RateLimitInfo) {
	return rl.allow(LimitTx, ip, rl.config.TxPerSecond, rl.config.TxBurst)
}

func (rl *RateLimiter) allow(class, ip string, perSecond, burst int) (bool, *RateLimitInfo) {
	if burst <= 0 {
		burst = 1
	}
	now := rl.now()
	info := &RateLimitInfo{Limit: burst, LimitType: class}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	key := class + ":" + ip
	v, ok := rl.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
		rl.visitors[key] = v
	}
	v.lastSeen = now

	if now.Before(v.blockedUntil) {
		info.RetryAfter = int(v.blockedUntil.Sub(now).Seconds()) + 1
		return false, info
	}

	if v.limiter.AllowN(now, 1) {
		info.Allowed = true
		info.Remaining = int(v.limiter.TokensAt(now))
		return true, info
	}

	v.blockedUntil = now.Add(rl.config.BlockDuration)
	info.RetryAfter = int(rl.config.BlockDuration.Seconds())
	if info.RetryAfter < 1 {
		info.RetryAfter = 1
	}
	return false, info
}

// RateLimitMiddleware refuses requests over budget with 429 and a JSON body
func RateLimitMiddleware(rl *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := ClientIP(r)
			allowed, info := rl.AllowIP(ip)
			if allowed && r.Method == http.MethodPost {
				allowed, info = rl.AllowTx(ip)
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
			if allowed {
				next.ServeHTTP(w, r)
				return
			}

			if rl.metrics != nil {
				rl.metrics.RecordRateLimitHit(info.LimitType)
			}
			w.Header().Set("Retry-After", strconv.Itoa(info.RetryAfter))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"error":       "rate_limit_exceeded",
				"retry_after": info.RetryAfter,
				"limit_type":  info.LimitType,
			})
		})
	}
}

// ClientIP returns the caller address, preferring proxy headers over the
// socket address
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Stats holds rate limiter statistics
type Stats struct {
	TotalBuckets   int `json:"total_buckets"`
	BlockedBuckets int `json:"blocked_buckets"`
}

// GetStats returns current rate limiter statistics
func (rl *RateLimiter) GetStats() *Stats {
	now := rl.now()
	rl.mu.Lock()
	defer rl.mu.Unlock()

	stats := &Stats{TotalBuckets: len(rl.visitors)}
	for _, v := range rl.visitors {
		if now.Before(v.blockedUntil) {
			stats.BlockedBuckets++
		}
	}
	return stats
}
