package repository

import (
	"context"
	"errors"
	"time"

	"jobcenter/internal/domain"
)

// ErrOperationNotFound 工单不存在
var ErrOperationNotFound = errors.New("operation not found")

// OperationUpdate 工单行的部分更新，nil 字段不写
type OperationUpdate struct {
	Status   *domain.OpStatus
	HoldFlag *domain.OpStatus

	ActualQty *int
	RejectQty *int

	StartTime     *time.Time
	EndTime       *time.Time
	PauseTime     *time.Time
	ResumeTime    *time.Time
	QCRequestTime *time.Time
}

// TransitionWrites 单次状态迁移事务内要落库的全部内容
// 一次成功的迁移恰好更新一行工单、追加一条审计流水、至多一条通知；
// Breakdown 额外追加一条停机记录。任一写入失败整体回滚。
type TransitionWrites struct {
	Update       OperationUpdate
	Action       *domain.ActionRecord
	Notification *domain.Notification
	Downtime     *domain.DowntimeRecord
}

// TransitionFunc 在持有行锁的事务内根据当前行决定写入内容
// 返回错误则不产生任何写入（错误原样透传给调用方）
type TransitionFunc func(current *domain.Operation) (*TransitionWrites, error)

// SequenceEntry 班次排序条目
type SequenceEntry struct {
	OperationID int64
	Sequence    int
}

// OperationsRepository 工单仓库接口
type OperationsRepository interface {
	// GetOperation 读取单个工单（找不到返回 ErrOperationNotFound）
	GetOperation(ctx context.Context, id int64) (*domain.Operation, error)

	// GetStatus 只读当前状态码（供轮询）
	GetStatus(ctx context.Context, id int64) (domain.OpStatus, error)

	// ApplyTransition 在单个事务内执行 读取(行锁) → decide → 写入
	// decide 返回错误时回滚且错误原样返回；写入失败回滚并包装为存储错误。
	// 成功时返回实际写入的内容（供调用方做提交后的通知推送）。
	ApplyTransition(ctx context.Context, id int64, decide TransitionFunc) (*TransitionWrites, error)

	// ListActions 工单最近的审计流水，新的在前
	ListActions(ctx context.Context, operationID int64, limit int) ([]*domain.ActionRecord, error)

	// ListForMachine 机台的工单列表，按 sequence、id 排序（sequence=0 排在最后）
	ListForMachine(ctx context.Context, machineID string) ([]*domain.Operation, error)

	// UpdateSequences 批量更新机台排序（单事务）
	UpdateSequences(ctx context.Context, machineID string, entries []SequenceEntry) error

	// ListNotifications 通知列表，新的在前；target<0 表示不过滤
	ListNotifications(ctx context.Context, target int, limit int) ([]*domain.Notification, error)
}
