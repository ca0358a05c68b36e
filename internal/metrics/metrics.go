package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus 监控指标
var (
	// ActionsTotal 计数器：处理的动作总数，按动作与结果 (ok/error) 分类
	ActionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jobcenter_actions_total",
		Help: "The total number of processed job actions",
	}, []string{"action", "outcome"})

	// TransitionDuration 直方图：状态迁移事务耗时分布
	TransitionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "jobcenter_transition_duration_seconds",
		Help:    "Time spent executing one job action transaction",
		Buckets: prometheus.DefBuckets,
	}, []string{"action"})

	// NotificationsPublished 计数器：提交后推送出去的通知数
	NotificationsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jobcenter_notifications_published_total",
		Help: "The total number of notifications published to sinks",
	}, []string{"sink"})
)

// ObserveAction 一次动作的计数与耗时
func ObserveAction(action, outcome string, elapsed time.Duration) {
	ActionsTotal.WithLabelValues(action, outcome).Inc()
	TransitionDuration.WithLabelValues(action).Observe(elapsed.Seconds())
}
