// Package metrics 管道的 Prometheus 指标
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MessagesTotal 按类别和结果统计处理的消息
	MessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deleton_messages_total",
			Help: "Total number of log messages handled by the extract driver",
		},
		[]string{"kind", "outcome"},
	)

	// IdlePollsTotal 空轮询次数
	IdlePollsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "deleton_idle_polls_total",
			Help: "Total number of polls that returned no message",
		},
	)

	// RecordsWrittenTotal 写入暂存库的记录数
	RecordsWrittenTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deleton_records_written_total",
			Help: "Total number of records written to the staging sink",
		},
		[]string{"table"},
	)

	// SinkWriteDuration 暂存库写入耗时
	SinkWriteDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "deleton_sink_write_duration_seconds",
			Help:    "Duration of staging sink operations in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"op"},
	)

	// SinkBreakerOpen 断路器是否打开（1 打开，0 其它）
	SinkBreakerOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "deleton_sink_breaker_open",
			Help: "Whether the staging sink circuit breaker is open",
		},
	)

	// HeartRateAlertsTotal 发送的心率告警
	HeartRateAlertsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "deleton_heart_rate_alerts_total",
			Help: "Total number of abnormal heart rate alerts sent",
		},
	)

	// TransformRunsTotal 转换任务执行次数
	TransformRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deleton_transform_runs_total",
			Help: "Total number of transform job runs",
		},
		[]string{"outcome"},
	)

	// ProductionRows 最近一次转换写入的行数
	ProductionRows = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "deleton_production_rows",
			Help: "Rows written to the production table by the last transform",
		},
	)

	// ReportsSentTotal 日报发送次数
	ReportsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deleton_reports_sent_total",
			Help: "Total number of daily report attempts",
		},
		[]string{"outcome"},
	)

	// HTTPRequestsTotal API 请求数
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deleton_http_requests_total",
			Help: "Total number of query API requests",
		},
		[]string{"method", "route", "status"},
	)
)

// RecordMessage 记录一条消息的处理结果
func RecordMessage(kind, outcome string) {
	MessagesTotal.WithLabelValues(kind, outcome).Inc()
}

// RecordWrite 记录写入行数
func RecordWrite(table string, n int) {
	RecordsWrittenTotal.WithLabelValues(table).Add(float64(n))
}
