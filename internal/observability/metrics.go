package observability

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/avatar-interview-backend/internal/platform/logger"
)

type Metrics struct {
	apiRequests  *CounterVec
	apiLatency   *HistogramVec
	apiInflight  *Gauge
	llmRequests  *CounterVec
	llmLatency   *HistogramVec
	llmTokens    *CounterVec
	upstreamReqs *CounterVec
	upstreamLat  *HistogramVec
	turns        *CounterVec
	turnLatency  *HistogramVec
	scores       *HistogramVec
	sessions     *Gauge
	completed    *CounterVec
	evicted      *Counter
	redisUp      *Gauge
	redisPing    *Gauge
	archiveStats *GaugeVec
}

var (
	mu       sync.RWMutex
	instance *Metrics
)

// Current returns the process-wide registry, or nil when metrics are disabled.
func Current() *Metrics {
	mu.RLock()
	defer mu.RUnlock()
	return instance
}

// Init builds the registry when enabled and installs it as Current.
func Init(log *logger.Logger, enabled bool) *Metrics {
	if !enabled {
		return nil
	}
	mu.Lock()
	defer mu.Unlock()
	if instance != nil {
		return instance
	}
	instance = New()
	if log != nil {
		log.Info("Observability metrics enabled")
	}
	return instance
}

// New builds a standalone registry. Tests use it directly.
func New() *Metrics {
	return &Metrics{
		apiRequests: NewCounterVec("interview_api_requests_total", "Total API requests by method/route/status.", []string{"method", "route", "status"}),
		apiLatency: NewHistogramVec(
			"interview_api_request_duration_seconds",
			"API request latency in seconds by method/route/status.",
			[]string{"method", "route", "status"},
			[]float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		),
		apiInflight: NewGauge("interview_api_inflight_requests", "In-flight API requests."),
		llmRequests: NewCounterVec("interview_llm_requests_total", "LLM requests by model/endpoint/status.", []string{"model", "endpoint", "status"}),
		llmLatency: NewHistogramVec(
			"interview_llm_request_duration_seconds",
			"LLM request latency in seconds by model/endpoint/status.",
			[]string{"model", "endpoint", "status"},
			[]float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
		),
		llmTokens:    NewCounterVec("interview_llm_tokens_total", "LLM tokens by model/direction.", []string{"model", "direction"}),
		upstreamReqs: NewCounterVec("interview_upstream_requests_total", "Upstream calls by dependency/provider/status.", []string{"dependency", "provider", "status"}),
		upstreamLat: NewHistogramVec(
			"interview_upstream_duration_seconds",
			"Upstream call latency by dependency/provider.",
			[]string{"dependency", "provider"},
			[]float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 40, 90},
		),
		turns: NewCounterVec("interview_turns_total", "Processed turns by outcome.", []string{"outcome"}),
		turnLatency: NewHistogramVec(
			"interview_turn_duration_seconds",
			"End-to-end turn latency by outcome.",
			[]string{"outcome"},
			[]float64{1, 2, 5, 10, 20, 30, 60, 120},
		),
		scores: NewHistogramVec(
			"interview_answer_score",
			"Recorded answer scores.",
			nil,
			[]float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
		),
		sessions:     NewGauge("interview_sessions_active", "Sessions currently held in memory."),
		completed:    NewCounterVec("interview_completed_total", "Completed interviews by archive outcome.", []string{"archived"}),
		evicted:      NewCounter("interview_sessions_evicted_total", "Sessions evicted by the TTL janitor."),
		redisUp:      NewGauge("interview_redis_up", "Redis connectivity (1=up, 0=down)."),
		redisPing:    NewGauge("interview_redis_ping_seconds", "Redis ping latency in seconds."),
		archiveStats: NewGaugeVec("interview_archive_db_stats", "Report archive connection stats.", []string{"metric"}),
	}
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, r *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

type promWriter interface {
	WritePrometheus(w io.Writer) error
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	all := []promWriter{
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.llmRequests, m.llmLatency, m.llmTokens,
		m.upstreamReqs, m.upstreamLat,
		m.turns, m.turnLatency, m.scores,
		m.sessions, m.completed, m.evicted,
		m.redisUp, m.redisPing, m.archiveStats,
	}
	for _, pw := range all {
		if err := pw.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	if status == "" {
		status = "0"
	}
	m.apiRequests.Inc(method, route, status)
	m.apiLatency.Observe(dur.Seconds(), method, route, status)
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

func (m *Metrics) ObserveLLMRequest(model, endpoint, status string, dur time.Duration, inputTokens, outputTokens int) {
	if m == nil {
		return
	}
	model = orUnknown(model)
	endpoint = orUnknown(endpoint)
	status = strings.TrimSpace(status)
	if status == "" {
		status = "0"
	}
	m.llmRequests.Inc(model, endpoint, status)
	if dur > 0 {
		m.llmLatency.Observe(dur.Seconds(), model, endpoint, status)
	}
	if inputTokens > 0 {
		m.llmTokens.Add(float64(inputTokens), model, "input")
	}
	if outputTokens > 0 {
		m.llmTokens.Add(float64(outputTokens), model, "output")
	}
}

// ObserveUpstream records one call to a speech, synthesis, generation or media dependency.
func (m *Metrics) ObserveUpstream(dependency, provider string, dur time.Duration, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
		if errors.Is(err, context.DeadlineExceeded) {
			status = "timeout"
		}
	}
	dependency = orUnknown(dependency)
	provider = orUnknown(provider)
	m.upstreamReqs.Inc(dependency, provider, status)
	m.upstreamLat.Observe(dur.Seconds(), dependency, provider)
}

func (m *Metrics) ObserveTurn(outcome string, dur time.Duration) {
	if m == nil {
		return
	}
	outcome = orUnknown(outcome)
	m.turns.Inc(outcome)
	m.turnLatency.Observe(dur.Seconds(), outcome)
}

func (m *Metrics) ObserveScore(score int) {
	if m == nil {
		return
	}
	m.scores.Observe(float64(score))
}

func (m *Metrics) IncCompleted(archived bool) {
	if m == nil {
		return
	}
	if archived {
		m.completed.Inc("true")
		return
	}
	m.completed.Inc("false")
}

func (m *Metrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.sessions.Set(float64(n))
}

func (m *Metrics) AddEvicted(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.evicted.Add(float64(n))
}

func (m *Metrics) TurnCount(outcome string) float64 {
	if m == nil {
		return 0
	}
	return m.turns.Value(outcome)
}

// StartArchiveCollector samples connection pool stats of the report archive.
func (m *Metrics) StartArchiveCollector(ctx context.Context, log *logger.Logger, db *gorm.DB, interval time.Duration) {
	if m == nil || db == nil {
		return
	}
	if interval <= 0 {
		interval = 10 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sqlDB, err := db.DB()
				if err != nil {
					if log != nil {
						log.Warn("metrics: archive stats unavailable", "error", err)
					}
					continue
				}
				stats := sqlDB.Stats()
				m.archiveStats.Set(float64(stats.OpenConnections), "open_connections")
				m.archiveStats.Set(float64(stats.InUse), "in_use")
				m.archiveStats.Set(float64(stats.Idle), "idle")
				m.archiveStats.Set(float64(stats.WaitCount), "wait_count")
				m.archiveStats.Set(stats.WaitDuration.Seconds(), "wait_duration_seconds")
			}
		}
	}()
}

// StartRedisCollector pings the event bus backend on an interval.
func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, rdb *redis.Client, interval time.Duration) {
	if m == nil || rdb == nil {
		return
	}
	if interval <= 0 {
		interval = 10 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				start := time.Now()
				if err := rdb.Ping(ctx).Err(); err != nil {
					m.redisUp.Set(0)
					if log != nil {
						log.Warn("metrics: redis ping failed", "error", err)
					}
					continue
				}
				m.redisUp.Set(1)
				m.redisPing.Set(time.Since(start).Seconds())
			}
		}
	}()
}

func orUnknown(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "unknown"
	}
	return s
}
