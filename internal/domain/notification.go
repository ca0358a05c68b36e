package domain

import "time"

// 通知目标受众码（notifications.target），0 为全员广播
const (
	TargetBroadcast   = 0
	TargetSupervisor  = 1
	TargetQC          = 2
	TargetMaintenance = 3
)

// 通知优先级（notifications.priority）
const (
	PriorityNormal   = 0
	PriorityCritical = 1
	PriorityHigh     = 2
)

// Notification 通知（notifications 表），只增不改，由外部告警 UI 消费
type Notification struct {
	ID         int64     `db:"id"`
	Text       string    `db:"text"`
	Target     int       `db:"target"`
	SourceType string    `db:"source_type"` // 本服务固定为 "operations"
	SourceID   int64     `db:"source_id"`
	Category   string    `db:"category"` // 动作类别
	Priority   int       `db:"priority"`
	CreatedAt  time.Time `db:"created_at"`
}

// SourceTypeOperations notifications.source_type 固定值
const SourceTypeOperations = "operations"

// AlertPriority 告警/联络的优先级映射（固定查表，不做策略抽象）
func AlertPriority(severity string) int {
	switch severity {
	case "critical":
		return PriorityCritical
	case "high", "technical":
		return PriorityHigh
	default:
		return PriorityNormal
	}
}
