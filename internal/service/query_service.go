package service

import (
	"context"
	"encoding/json"
	"time"

	"jobcenter/internal/domain"
	"jobcenter/internal/repository"

	"go.uber.org/zap"
)

// OperationQueryService 只读查询面
// 无副作用；与进行中的迁移并发读到迁移前或迁移后的状态都可接受（行级一致）。
type OperationQueryService struct {
	repo   repository.OperationsRepository
	cache  StatusCache // 可选，只加速 GetCurrentStatus
	logger *zap.Logger
}

// NewOperationQueryService 创建查询服务（cache 允许为 nil）
func NewOperationQueryService(repo repository.OperationsRepository, cache StatusCache, logger *zap.Logger) *OperationQueryService {
	return &OperationQueryService{repo: repo, cache: cache, logger: logger}
}

// snapshotActionLimit 快照携带的审计条数
const snapshotActionLimit = 10

// ActionFeedItem 审计流水条目（details 原样透出）
type ActionFeedItem struct {
	ID        int64           `json:"id"`
	Action    domain.Action   `json:"action"`
	Operator  string          `json:"operator"`
	Details   json.RawMessage `json:"details"`
	CreatedAt time.Time       `json:"created_at"`
}

// OperationSnapshot 工单快照
type OperationSnapshot struct {
	OperationID     int64            `json:"operation_id"`
	MachineID       string           `json:"machine_id"`
	ItemID          string           `json:"item_id"`
	LotID           string           `json:"lot_id"`
	Status          domain.OpStatus  `json:"status"`
	StatusName      string           `json:"status_name"`
	HoldFlag        domain.OpStatus  `json:"hold_flag"`
	HoldFlagName    string           `json:"hold_flag_name,omitempty"`
	PlannedQty      int              `json:"planned_qty"`
	ActualQty       int              `json:"actual_qty"`
	RejectQty       int              `json:"reject_qty"`
	Sequence        int              `json:"sequence"`
	ProgressPercent float64          `json:"progress_percent"`
	StartTime       *time.Time       `json:"start_time,omitempty"`
	EndTime         *time.Time       `json:"end_time,omitempty"`
	PauseTime       *time.Time       `json:"pause_time,omitempty"`
	ResumeTime      *time.Time       `json:"resume_time,omitempty"`
	QCRequestTime   *time.Time       `json:"qc_request_time,omitempty"`
	RecentActions   []ActionFeedItem `json:"recent_actions"`
}

// GetOperationSnapshot 工单当前状态 + 最近 10 条审计流水（新的在前）
func (s *OperationQueryService) GetOperationSnapshot(ctx context.Context, operationID int64) (*OperationSnapshot, error) {
	if operationID <= 0 {
		return nil, errInvalidInput("operation id must be a positive integer")
	}

	op, err := s.repo.GetOperation(ctx, operationID)
	if err != nil {
		if err == repository.ErrOperationNotFound {
			return nil, errNotFound(operationID)
		}
		s.logger.Error("failed to read operation", zap.Int64("operation_id", operationID), zap.Error(err))
		return nil, errPersistence()
	}

	records, err := s.repo.ListActions(ctx, operationID, snapshotActionLimit)
	if err != nil {
		s.logger.Error("failed to read job actions", zap.Int64("operation_id", operationID), zap.Error(err))
		return nil, errPersistence()
	}

	snap := &OperationSnapshot{
		OperationID:     op.ID,
		MachineID:       op.MachineID,
		ItemID:          op.ItemID,
		LotID:           op.LotID,
		Status:          op.Status,
		StatusName:      op.Status.Name(),
		HoldFlag:        op.HoldFlag,
		PlannedQty:      op.PlannedQty,
		ActualQty:       op.ActualQty,
		RejectQty:       op.RejectQty,
		Sequence:        op.Sequence,
		ProgressPercent: op.ProgressPercent(),
		StartTime:       op.StartTime,
		EndTime:         op.EndTime,
		PauseTime:       op.PauseTime,
		ResumeTime:      op.ResumeTime,
		QCRequestTime:   op.QCRequestTime,
		RecentActions:   make([]ActionFeedItem, 0, len(records)),
	}
	if op.HoldFlag != 0 {
		snap.HoldFlagName = op.HoldFlag.Name()
	}
	for _, rec := range records {
		snap.RecentActions = append(snap.RecentActions, ActionFeedItem{
			ID:        rec.ID,
			Action:    rec.Action,
			Operator:  rec.Operator,
			Details:   rec.Details,
			CreatedAt: rec.CreatedAt,
		})
	}

	return snap, nil
}

// GetCurrentStatus 轻量轮询：只返回状态码，优先走缓存
func (s *OperationQueryService) GetCurrentStatus(ctx context.Context, operationID int64) (domain.OpStatus, error) {
	if operationID <= 0 {
		return 0, errInvalidInput("operation id must be a positive integer")
	}

	if s.cache != nil {
		if status, ok := s.cache.GetStatus(ctx, operationID); ok {
			return status, nil
		}
	}

	status, err := s.repo.GetStatus(ctx, operationID)
	if err != nil {
		if err == repository.ErrOperationNotFound {
			return 0, errNotFound(operationID)
		}
		s.logger.Error("failed to read operation status", zap.Int64("operation_id", operationID), zap.Error(err))
		return 0, errPersistence()
	}

	if s.cache != nil {
		s.cache.SetStatus(ctx, operationID, status)
	}
	return status, nil
}

// ListActions 工单审计流水（"最近动作"面板）
func (s *OperationQueryService) ListActions(ctx context.Context, operationID int64, limit int) ([]ActionFeedItem, error) {
	if operationID <= 0 {
		return nil, errInvalidInput("operation id must be a positive integer")
	}
	if limit <= 0 || limit > 100 {
		limit = snapshotActionLimit
	}

	records, err := s.repo.ListActions(ctx, operationID, limit)
	if err != nil {
		s.logger.Error("failed to read job actions", zap.Int64("operation_id", operationID), zap.Error(err))
		return nil, errPersistence()
	}

	items := make([]ActionFeedItem, 0, len(records))
	for _, rec := range records {
		items = append(items, ActionFeedItem{
			ID:        rec.ID,
			Action:    rec.Action,
			Operator:  rec.Operator,
			Details:   rec.Details,
			CreatedAt: rec.CreatedAt,
		})
	}
	return items, nil
}

// MachineOperation 机台工单列表条目（喂给平板时间轴，布局计算在前端）
type MachineOperation struct {
	OperationID     int64           `json:"operation_id"`
	ItemID          string          `json:"item_id"`
	LotID           string          `json:"lot_id"`
	Status          domain.OpStatus `json:"status"`
	StatusName      string          `json:"status_name"`
	Sequence        int             `json:"sequence"`
	PlannedQty      int             `json:"planned_qty"`
	ActualQty       int             `json:"actual_qty"`
	ProgressPercent float64         `json:"progress_percent"`
	StartTime       *time.Time      `json:"start_time,omitempty"`
	EndTime         *time.Time      `json:"end_time,omitempty"`
}

// ListMachineOperations 某机台的工单（sequence 升序，未排序在后）
func (s *OperationQueryService) ListMachineOperations(ctx context.Context, machineID string) ([]MachineOperation, error) {
	if machineID == "" {
		return nil, errInvalidInput("machine id is required")
	}

	ops, err := s.repo.ListForMachine(ctx, machineID)
	if err != nil {
		s.logger.Error("failed to list machine operations", zap.String("machine_id", machineID), zap.Error(err))
		return nil, errPersistence()
	}

	items := make([]MachineOperation, 0, len(ops))
	for _, op := range ops {
		items = append(items, MachineOperation{
			OperationID:     op.ID,
			ItemID:          op.ItemID,
			LotID:           op.LotID,
			Status:          op.Status,
			StatusName:      op.Status.Name(),
			Sequence:        op.Sequence,
			PlannedQty:      op.PlannedQty,
			ActualQty:       op.ActualQty,
			ProgressPercent: op.ProgressPercent(),
			StartTime:       op.StartTime,
			EndTime:         op.EndTime,
		})
	}
	return items, nil
}

// NotificationItem 通知条目
type NotificationItem struct {
	ID        int64     `json:"id"`
	Text      string    `json:"text"`
	Target    int       `json:"target"`
	SourceID  int64     `json:"source_id"`
	Category  string    `json:"category"`
	Priority  int       `json:"priority"`
	CreatedAt time.Time `json:"created_at"`
}

// ListNotifications 通知轮询（target<0 表示全部）
func (s *OperationQueryService) ListNotifications(ctx context.Context, target, limit int) ([]NotificationItem, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	rows, err := s.repo.ListNotifications(ctx, target, limit)
	if err != nil {
		s.logger.Error("failed to list notifications", zap.Error(err))
		return nil, errPersistence()
	}

	items := make([]NotificationItem, 0, len(rows))
	for _, n := range rows {
		items = append(items, NotificationItem{
			ID:        n.ID,
			Text:      n.Text,
			Target:    n.Target,
			SourceID:  n.SourceID,
			Category:  n.Category,
			Priority:  n.Priority,
			CreatedAt: n.CreatedAt,
		})
	}
	return items, nil
}
