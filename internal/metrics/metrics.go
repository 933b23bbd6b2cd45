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
// エクスポートクライアントとハンドラー層から利用する。
type MetricsCollector interface {
	RecordExportSuccess(resource string)
	RecordExportFailure(resource string, code string)
	RecordPollRetry(resource string)
	RecordHTTPStatus(statusCode int)
	RecordExportLatency(duration time.Duration)
	RecordExportedBytes(n int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	exportSuccess *prometheus.CounterVec
	exportFail    *prometheus.CounterVec
	pollRetries   *prometheus.CounterVec
	httpStatus    *prometheus.CounterVec
	exportLatency prometheus.Histogram
	exportedBytes prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		exportSuccess: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "metricalog_export_success_total",
			Help: "エクスポート成功の合計数",
		}, []string{"resource"}),
		exportFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "metricalog_export_fail_total",
			Help: "エクスポート失敗の合計数（エラーコード別）",
		}, []string{"resource", "code"}),
		pollRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "metricalog_poll_retries_total",
			Help: "エクスポート準備中によるポーリング再試行の合計数",
		}, []string{"resource"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "metricalog_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		exportLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: "metricalog_export_latency_seconds",
			Help: "エクスポート完了までのレイテンシ（秒）。ポーリング待機を含む",
			// ポーリング待機があるため長めのバケットを使用する
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300, 600},
		}),
		exportedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "metricalog_exported_bytes_total",
			Help: "エクスポートされたレスポンスボディの合計バイト数",
		}),
	}

	reg.MustRegister(
		c.exportSuccess,
		c.exportFail,
		c.pollRetries,
		c.httpStatus,
		c.exportLatency,
		c.exportedBytes,
	)

	return c
}

// RecordExportSuccess はエクスポート成功を記録する。
func (c *Collector) RecordExportSuccess(resource string) {
	c.exportSuccess.WithLabelValues(resource).Inc()
}

// RecordExportFailure はエクスポート失敗をエラーコード付きで記録する。
func (c *Collector) RecordExportFailure(resource string, code string) {
	c.exportFail.WithLabelValues(resource, code).Inc()
}

// RecordPollRetry はポーリング再試行を記録する。
func (c *Collector) RecordPollRetry(resource string) {
	c.pollRetries.WithLabelValues(resource).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordExportLatency はエクスポートのレイテンシを記録する。
func (c *Collector) RecordExportLatency(duration time.Duration) {
	c.exportLatency.Observe(duration.Seconds())
}

// RecordExportedBytes はエクスポートされたバイト数を記録する。
func (c *Collector) RecordExportedBytes(n int) {
	c.exportedBytes.Add(float64(n))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
