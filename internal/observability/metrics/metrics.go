package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes the governance counters scraped at /metrics.
type Metrics struct {
	verificationsRecorded *prometheus.CounterVec
	scoresComputed        *prometheus.CounterVec
	ruleAnomalies         prometheus.Counter
	vouchersIssued        prometheus.Counter
	voucherRedemptions    *prometheus.CounterVec
	vouchersExpired       prometheus.Counter
	quotaRejections       prometheus.Counter
	httpDuration          *prometheus.HistogramVec
}

func New() *Metrics {
	return &Metrics{
		verificationsRecorded: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vigie_cotisation_verifications_total",
			Help: "Cotisation verifications recorded, by derived status.",
		}, []string{"status"}),
		scoresComputed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vigie_scores_computed_total",
			Help: "Risk scores computed, by resulting tier.",
		}, []string{"tier"}),
		ruleAnomalies: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vigie_scoring_rule_anomalies_total",
			Help: "Scoring rules that failed and fell back to the neutral default.",
		}),
		vouchersIssued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vigie_vouchers_issued_total",
			Help: "Soin vouchers issued.",
		}),
		voucherRedemptions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vigie_voucher_redemptions_total",
			Help: "Voucher redemption attempts, by outcome.",
		}, []string{"outcome"}),
		vouchersExpired: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vigie_vouchers_expired_total",
			Help: "Vouchers flipped to expired by the sweeper.",
		}),
		quotaRejections: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vigie_voucher_quota_rejections_total",
			Help: "Voucher issuances rejected by the daily agent quota.",
		}),
		httpDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vigie_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
}

func (m *Metrics) RecordVerification(status string) {
	m.verificationsRecorded.WithLabelValues(status).Inc()
}

func (m *Metrics) RecordScore(tier string) {
	m.scoresComputed.WithLabelValues(tier).Inc()
}

func (m *Metrics) RecordRuleAnomaly() {
	m.ruleAnomalies.Inc()
}

func (m *Metrics) RecordVoucherIssued() {
	m.vouchersIssued.Inc()
}

func (m *Metrics) RecordRedemption(outcome string) {
	m.voucherRedemptions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordVouchersExpired(n int) {
	m.vouchersExpired.Add(float64(n))
}

func (m *Metrics) RecordQuotaRejection() {
	m.quotaRejections.Inc()
}

// GinMiddleware records request durations per route.
func GinMiddleware(m *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.httpDuration.WithLabelValues(
			c.Request.Method,
			route,
			strconv.Itoa(c.Writer.Status()),
		).Observe(time.Since(start).Seconds())
	}
}
