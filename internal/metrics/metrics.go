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
// borrow.MetricsRecorderを満たし、貸出サービスから利用される。
type Collector struct {
	borrowSuccess   prometheus.Counter
	borrowFail      *prometheus.CounterVec
	returnSuccess   prometheus.Counter
	httpStatus      *prometheus.CounterVec
	borrowTxLatency prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		borrowSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "libman_borrow_success_total",
			Help: "貸出成功の合計数",
		}),
		borrowFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "libman_borrow_fail_total",
			Help: "エラーコード別の貸出失敗数",
		}, []string{"code"}),
		returnSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "libman_return_success_total",
			Help: "返却成功の合計数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "libman_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		borrowTxLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "libman_borrow_tx_seconds",
			Help:    "貸出トランザクションのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.borrowSuccess,
		c.borrowFail,
		c.returnSuccess,
		c.httpStatus,
		c.borrowTxLatency,
	)

	return c
}

// RecordBorrowSuccess は貸出成功を記録する。
func (c *Collector) RecordBorrowSuccess() {
	c.borrowSuccess.Inc()
}

// RecordBorrowFailure は貸出失敗をエラーコード別に記録する。
func (c *Collector) RecordBorrowFailure(code string) {
	c.borrowFail.WithLabelValues(code).Inc()
}

// RecordReturnSuccess は返却成功を記録する。
func (c *Collector) RecordReturnSuccess() {
	c.returnSuccess.Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordBorrowTxLatency は貸出トランザクションのレイテンシを記録する。
func (c *Collector) RecordBorrowTxLatency(duration time.Duration) {
	c.borrowTxLatency.Observe(duration.Seconds())
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
