// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector はPrometheusメトリクスを収集する実装。
// ガード判定、ログイン試行、バックエンド呼び出しを観測する。
type Collector struct {
	guardDecisions *prometheus.CounterVec
	loginAttempts  *prometheus.CounterVec
	backendStatus  *prometheus.CounterVec
	verifyLatency  prometheus.Histogram
	bannerFetches  *prometheus.CounterVec
	sanitizedHTML  prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		guardDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "eventgate_guard_decisions_total",
			Help: "ルートガード判定の合計数（判定種別ラベル付き）",
		}, []string{"verdict"}),
		loginAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "eventgate_login_attempts_total",
			Help: "ログイン試行の合計数（結果ラベル付き）",
		}, []string{"outcome"}),
		backendStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "eventgate_backend_status_total",
			Help: "バックエンドAPIのHTTPステータスコード別レスポンス数",
		}, []string{"status_code"}),
		verifyLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "eventgate_verify_latency_seconds",
			Help:    "トークン検証呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		bannerFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "eventgate_banner_fetches_total",
			Help: "バナー画像プロキシのフェッチ数（結果ラベル付き）",
		}, []string{"outcome"}),
		sanitizedHTML: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "eventgate_sanitized_descriptions_total",
			Help: "サニタイズされたイベント説明文の合計数",
		}),
	}

	reg.MustRegister(
		c.guardDecisions,
		c.loginAttempts,
		c.backendStatus,
		c.verifyLatency,
		c.bannerFetches,
		c.sanitizedHTML,
	)

	return c
}

// RecordGuardDecision はガード判定を記録する。
func (c *Collector) RecordGuardDecision(verdict string) {
	c.guardDecisions.WithLabelValues(verdict).Inc()
}

// RecordLoginAttempt はログイン試行の結果を記録する。
// outcome: success, rejected, validation_failed, error
func (c *Collector) RecordLoginAttempt(outcome string) {
	c.loginAttempts.WithLabelValues(outcome).Inc()
}

// RecordBackendStatus はバックエンドAPIのHTTPステータスコードを記録する。
func (c *Collector) RecordBackendStatus(statusCode int) {
	c.backendStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordVerifyLatency はトークン検証のレイテンシを記録する。
func (c *Collector) RecordVerifyLatency(d time.Duration) {
	c.verifyLatency.Observe(d.Seconds())
}

// RecordBannerFetch はバナー画像プロキシのフェッチ結果を記録する。
// outcome: success, blocked, failed
func (c *Collector) RecordBannerFetch(outcome string) {
	c.bannerFetches.WithLabelValues(outcome).Inc()
}

// RecordSanitizedDescription は説明文のサニタイズ実行を記録する。
func (c *Collector) RecordSanitizedDescription() {
	c.sanitizedHTML.Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
