// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 検証結果のラベル値
const (
	ResultOK            = "ok"
	ResultMissing       = "missing"
	ResultInvalid       = "invalid"
	ResultMisconfigured = "misconfigured"
)

// ログイン結果のラベル値
const (
	LoginSuccess       = "success"
	LoginRejected      = "rejected"
	LoginMissingFields = "missing_fields"
	LoginError         = "error"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ハンドラーやミドルウェアから利用する。
type MetricsCollector interface {
	RecordLogin(result string)
	RecordVerification(tier, result string)
	RecordRoleDenial(action string)
	RecordEdgeRedirect(reason string)
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	logins         *prometheus.CounterVec
	verifications  *prometheus.CounterVec
	roleDenials    *prometheus.CounterVec
	edgeRedirects  *prometheus.CounterVec
	httpStatus     *prometheus.CounterVec
	requestLatency prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "assetdesk_login_total",
			Help: "ログイン試行の結果別合計数",
		}, []string{"result"}),
		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "assetdesk_token_verification_total",
			Help: "トークン検証の層・結果別合計数",
		}, []string{"tier", "result"}),
		roleDenials: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "assetdesk_role_denied_total",
			Help: "ロールレベル不足による拒否数",
		}, []string{"action"}),
		edgeRedirects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "assetdesk_edge_redirect_total",
			Help: "エッジゲートによるリダイレクト数",
		}, []string{"reason"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "assetdesk_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "assetdesk_request_latency_seconds",
			Help:    "リクエスト処理のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.logins,
		c.verifications,
		c.roleDenials,
		c.edgeRedirects,
		c.httpStatus,
		c.requestLatency,
	)

	return c
}

// RecordLogin はログイン試行の結果を記録する。
func (c *Collector) RecordLogin(result string) {
	c.logins.WithLabelValues(result).Inc()
}

// RecordVerification はトークン検証の結果を記録する。tierは "api" または "web"。
func (c *Collector) RecordVerification(tier, result string) {
	c.verifications.WithLabelValues(tier, result).Inc()
}

// RecordRoleDenial はロールゲートでの拒否を記録する。
func (c *Collector) RecordRoleDenial(action string) {
	c.roleDenials.WithLabelValues(action).Inc()
}

// RecordEdgeRedirect はエッジゲートのリダイレクトを記録する。
func (c *Collector) RecordEdgeRedirect(reason string) {
	c.edgeRedirects.WithLabelValues(reason).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はリクエスト処理時間を記録する。
func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
}

// Nop は何も記録しないMetricsCollector。
type Nop struct{}

func (Nop) RecordLogin(string)                 {}
func (Nop) RecordVerification(string, string)  {}
func (Nop) RecordRoleDenial(string)            {}
func (Nop) RecordEdgeRedirect(string)          {}
func (Nop) RecordHTTPStatus(int)               {}
func (Nop) RecordRequestLatency(time.Duration) {}

var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = Nop{}
)

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// NewStatusMiddleware はレスポンスのステータスコードとレイテンシを記録するミドルウェアを返す。
func NewStatusMiddleware(c MetricsCollector) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(rec, r)
			c.RecordHTTPStatus(rec.statusCode)
			c.RecordRequestLatency(time.Since(start))
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (sr *statusRecorder) WriteHeader(code int) {
	if !sr.written {
		sr.statusCode = code
		sr.written = true
	}
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	sr.written = true
	return sr.ResponseWriter.Write(b)
}

// Flush はストリーミングレスポンス（リバースプロキシ経由など）を中継する。
func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
