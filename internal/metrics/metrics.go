// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// 送信パイプラインから利用する。
type MetricsCollector interface {
	RecordSubmissionAccepted()
	RecordSubmissionRejected(reason string)
	RecordCampaignAPIStatus(statusCode int)
	RecordCampaignAPILatency(duration time.Duration)
	RecordAuditAppendFailure()
	RecordNotifyFailure()
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	submissionAccepted prometheus.Counter
	submissionRejected *prometheus.CounterVec
	campaignAPIStatus  *prometheus.CounterVec
	campaignAPILatency prometheus.Histogram
	auditAppendFail    prometheus.Counter
	notifyFail         prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		submissionAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pingman_submission_accepted_total",
			Help: "受理されたキャンペーン送信の合計数",
		}),
		submissionRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pingman_submission_rejected_total",
			Help: "入力検証で却下された送信の合計数（理由別）",
		}, []string{"reason"}),
		campaignAPIStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pingman_campaign_api_status_total",
			Help: "キャンペーンAPIのHTTPステータスコード別レスポンス数（0は送信失敗）",
		}, []string{"status_code"}),
		campaignAPILatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pingman_campaign_api_latency_seconds",
			Help:    "キャンペーンAPI呼び出しのレイテンシ（秒）",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		auditAppendFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pingman_audit_append_fail_total",
			Help: "監査ログ追記失敗の合計数",
		}),
		notifyFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pingman_notify_fail_total",
			Help: "Telegram通知失敗の合計数",
		}),
	}

	reg.MustRegister(
		c.submissionAccepted,
		c.submissionRejected,
		c.campaignAPIStatus,
		c.campaignAPILatency,
		c.auditAppendFail,
		c.notifyFail,
	)

	return c
}

// RecordSubmissionAccepted は受理された送信を記録する。
func (c *Collector) RecordSubmissionAccepted() {
	c.submissionAccepted.Inc()
}

// RecordSubmissionRejected は検証却下を理由付きで記録する。
func (c *Collector) RecordSubmissionRejected(reason string) {
	c.submissionRejected.WithLabelValues(reason).Inc()
}

// RecordCampaignAPIStatus はキャンペーンAPIのステータスコードを記録する。
func (c *Collector) RecordCampaignAPIStatus(statusCode int) {
	c.campaignAPIStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordCampaignAPILatency はキャンペーンAPI呼び出しのレイテンシを記録する。
func (c *Collector) RecordCampaignAPILatency(duration time.Duration) {
	c.campaignAPILatency.Observe(duration.Seconds())
}

// RecordAuditAppendFailure は監査ログ追記失敗を記録する。
func (c *Collector) RecordAuditAppendFailure() {
	c.auditAppendFail.Inc()
}

// RecordNotifyFailure はTelegram通知失敗を記録する。
func (c *Collector) RecordNotifyFailure() {
	c.notifyFail.Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// compile-time interface check
var _ MetricsCollector = (*Collector)(nil)
