package service

import (
	"context"
	"strings"
	"time"

	"jobcenter/internal/domain"
	"jobcenter/internal/metrics"
	"jobcenter/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// NotificationPublisher 提交后的尽力而为推送（Redis Stream / MQTT 广播）
// 失败只记日志，不影响已提交的事务。
type NotificationPublisher interface {
	Publish(ctx context.Context, n *domain.Notification) error
}

// MaintenanceReporter 向外部维修系统上报故障工单（提交后尽力而为）
type MaintenanceReporter interface {
	CreateTicket(ctx context.Context, d *domain.DowntimeRecord, reportedBy string) error
}

// StatusCache 状态轮询缓存（提交后刷新）
type StatusCache interface {
	GetStatus(ctx context.Context, id int64) (domain.OpStatus, bool)
	SetStatus(ctx context.Context, id int64, status domain.OpStatus)
}

// JobActionService 动作处理器
// 职责：
// 1. 前置条件与字段校验（任何写入之前，第一条违规即返回）
// 2. 状态迁移决策（transitionRules）
// 3. 事务内落库（工单更新 + 审计流水 + 通知），经 Repository 单事务完成
// 4. 提交后的旁路副作用（缓存刷新、通知推送、维修工单上报）
type JobActionService struct {
	repo      repository.OperationsRepository
	publisher NotificationPublisher // 可选
	maint     MaintenanceReporter   // 可选
	cache     StatusCache           // 可选
	logger    *zap.Logger

	// 时间与工单号生成可注入，测试用
	now          func() time.Time
	newTicketRef func() string
}

// NewJobActionService 创建动作处理器（publisher/maint/cache 允许为 nil）
func NewJobActionService(
	repo repository.OperationsRepository,
	publisher NotificationPublisher,
	maint MaintenanceReporter,
	cache StatusCache,
	logger *zap.Logger,
) *JobActionService {
	return &JobActionService{
		repo:         repo,
		publisher:    publisher,
		maint:        maint,
		cache:        cache,
		logger:       logger,
		now:          time.Now,
		newTicketRef: func() string { return "MT-" + uuid.NewString()[:8] },
	}
}

// ActionResult 动作成功结果
type ActionResult struct {
	OperationID int64           `json:"operation_id"`
	NewStatus   domain.OpStatus `json:"new_status"`
	StatusName  string          `json:"status_name"`
	HoldFlag    domain.OpStatus `json:"hold_flag,omitempty"`
}

// execute 所有状态迁移动作的公共骨架
// decide 在仓库事务内、持有行锁后执行；这里只做身份与 id 的先行校验。
func (s *JobActionService) execute(
	ctx context.Context,
	action domain.Action,
	operationID int64,
	operator string,
	decide func(op *domain.Operation, now time.Time) (*repository.TransitionWrites, error),
) (*ActionResult, error) {
	if strings.TrimSpace(operator) == "" {
		return nil, errUnauthorized()
	}
	if operationID <= 0 {
		return nil, errInvalidInput("operation id must be a positive integer")
	}

	start := time.Now()
	now := s.now()

	var currentStatus domain.OpStatus
	writes, err := s.repo.ApplyTransition(ctx, operationID, func(op *domain.Operation) (*repository.TransitionWrites, error) {
		if err := checkTransition(action, op.Status); err != nil {
			return nil, err
		}
		currentStatus = op.Status
		return decide(op, now)
	})
	if err != nil {
		metrics.ObserveAction(string(action), "error", time.Since(start))
		if err == repository.ErrOperationNotFound {
			return nil, errNotFound(operationID)
		}
		if _, ok := AsActionError(err); ok {
			return nil, err
		}
		s.logger.Error("transition failed",
			zap.String("action", string(action)),
			zap.Int64("operation_id", operationID),
			zap.Error(err),
		)
		return nil, errPersistence()
	}

	metrics.ObserveAction(string(action), "ok", time.Since(start))

	s.afterCommit(ctx, operationID, writes)

	result := &ActionResult{OperationID: operationID}
	if writes.Update.Status != nil {
		result.NewStatus = *writes.Update.Status
	} else {
		// 记录型动作状态不变
		result.NewStatus = currentStatus
	}
	result.StatusName = result.NewStatus.Name()
	if writes.Update.HoldFlag != nil {
		result.HoldFlag = *writes.Update.HoldFlag
	}
	return result, nil
}

// afterCommit 提交后的旁路副作用，全部尽力而为
func (s *JobActionService) afterCommit(ctx context.Context, operationID int64, writes *repository.TransitionWrites) {
	if s.cache != nil && writes.Update.Status != nil {
		s.cache.SetStatus(ctx, operationID, *writes.Update.Status)
	}
	if s.publisher != nil && writes.Notification != nil {
		if err := s.publisher.Publish(ctx, writes.Notification); err != nil {
			s.logger.Warn("notification publish failed",
				zap.Int64("operation_id", operationID),
				zap.Error(err),
			)
		}
	}
	if s.maint != nil && writes.Downtime != nil {
		if err := s.maint.CreateTicket(ctx, writes.Downtime, writes.Action.Operator); err != nil {
			s.logger.Warn("maintenance ticket report failed",
				zap.String("ticket_ref", writes.Downtime.TicketRef),
				zap.Error(err),
			)
		}
	}
}

func newActionRecord(opID int64, action domain.Action, operator string, details domain.ActionDetails, now time.Time) (*domain.ActionRecord, error) {
	payload, err := domain.MarshalDetails(details)
	if err != nil {
		return nil, err
	}
	return &domain.ActionRecord{
		OperationID: opID,
		Action:      action,
		Operator:    operator,
		Details:     payload,
		CreatedAt:   now,
	}, nil
}

// ============================================
// 状态迁移动作
// ============================================

// SetupRequest 开机准备
type SetupRequest struct {
	OperationID int64
	Operator    string
	Message     string
	Remarks     string
}

// Setup {New, Assigned} → Setup，记录开工时间
func (s *JobActionService) Setup(ctx context.Context, req SetupRequest) (*ActionResult, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, errMissingField("message")
	}
	if len(req.Message) > 20 {
		return nil, errValidationFailed("message", "must be 20 characters or less")
	}
	if len(req.Remarks) > 100 {
		return nil, errValidationFailed("remarks", "must be 100 characters or less")
	}

	return s.execute(ctx, domain.ActionSetup, req.OperationID, req.Operator,
		func(op *domain.Operation, now time.Time) (*repository.TransitionWrites, error) {
			status := domain.StatusSetup
			record, err := newActionRecord(op.ID, domain.ActionSetup, req.Operator,
				domain.SetupDetails{Message: req.Message, Remarks: req.Remarks}, now)
			if err != nil {
				return nil, err
			}
			return &repository.TransitionWrites{
				Update: repository.OperationUpdate{Status: &status, StartTime: &now},
				Action: record,
			}, nil
		})
}

// FPQCRequest 首件检提交
type FPQCRequest struct {
	OperationID int64
	Operator    string
	ActualQty   int
}

// SubmitFPQC {Setup} → FPQC，记录实际数量并通知质检
func (s *JobActionService) SubmitFPQC(ctx context.Context, req FPQCRequest) (*ActionResult, error) {
	if req.ActualQty < 0 {
		return nil, errValidationFailed("actual_qty", "must not be negative")
	}

	return s.execute(ctx, domain.ActionFPQC, req.OperationID, req.Operator,
		func(op *domain.Operation, now time.Time) (*repository.TransitionWrites, error) {
			status := domain.StatusFPQC
			qty := req.ActualQty
			record, err := newActionRecord(op.ID, domain.ActionFPQC, req.Operator,
				domain.FPQCDetails{ActualQty: req.ActualQty}, now)
			if err != nil {
				return nil, err
			}
			return &repository.TransitionWrites{
				Update:       repository.OperationUpdate{Status: &status, ActualQty: &qty},
				Action:       record,
				Notification: fpqcNotification(op.ID, now),
			}, nil
		})
}

// PauseRequest 暂停
type PauseRequest struct {
	OperationID int64
	Operator    string
	Reason      string
}

// Pause 非 {Paused, Complete} → Paused，当前状态存入 hold_flag
func (s *JobActionService) Pause(ctx context.Context, req PauseRequest) (*ActionResult, error) {
	if strings.TrimSpace(req.Reason) == "" {
		return nil, errMissingField("reason")
	}
	if len(req.Reason) > 100 {
		return nil, errValidationFailed("reason", "must be 100 characters or less")
	}

	return s.execute(ctx, domain.ActionPause, req.OperationID, req.Operator,
		func(op *domain.Operation, now time.Time) (*repository.TransitionWrites, error) {
			status := domain.StatusPaused
			hold := op.Status
			record, err := newActionRecord(op.ID, domain.ActionPause, req.Operator,
				domain.PauseDetails{Reason: req.Reason, PrevStatus: op.Status}, now)
			if err != nil {
				return nil, err
			}
			return &repository.TransitionWrites{
				Update: repository.OperationUpdate{Status: &status, HoldFlag: &hold, PauseTime: &now},
				Action: record,
			}, nil
		})
}

// ResumeRequest 恢复
type ResumeRequest struct {
	OperationID int64
	Operator    string
	Remarks     string
}

// Resume {Paused} → hold_flag 保存的状态；hold_flag 为空时回到 InProcess
func (s *JobActionService) Resume(ctx context.Context, req ResumeRequest) (*ActionResult, error) {
	if len(req.Remarks) > 100 {
		return nil, errValidationFailed("remarks", "must be 100 characters or less")
	}

	return s.execute(ctx, domain.ActionResume, req.OperationID, req.Operator,
		func(op *domain.Operation, now time.Time) (*repository.TransitionWrites, error) {
			restored := op.HoldFlag
			if restored == 0 {
				// 没有记录过先前状态时不允许状态悬空
				restored = domain.StatusInProcess
			}
			cleared := domain.OpStatus(0)
			record, err := newActionRecord(op.ID, domain.ActionResume, req.Operator,
				domain.ResumeDetails{Remarks: req.Remarks, RestoredStatus: restored}, now)
			if err != nil {
				return nil, err
			}
			return &repository.TransitionWrites{
				Update: repository.OperationUpdate{Status: &restored, HoldFlag: &cleared, ResumeTime: &now},
				Action: record,
			}, nil
		})
}

// BreakdownRequest 故障停机
type BreakdownRequest struct {
	OperationID int64
	Operator    string
	Remarks     string
}

// Breakdown 非 {Paused, Breakdown, Complete} → Breakdown
// 当前状态存入 hold_flag，开区间写停机记录并生成维修工单引用
func (s *JobActionService) Breakdown(ctx context.Context, req BreakdownRequest) (*ActionResult, error) {
	if strings.TrimSpace(req.Remarks) == "" {
		return nil, errMissingField("remarks")
	}
	if len(req.Remarks) > 200 {
		return nil, errValidationFailed("remarks", "must be 200 characters or less")
	}

	return s.execute(ctx, domain.ActionBreakdown, req.OperationID, req.Operator,
		func(op *domain.Operation, now time.Time) (*repository.TransitionWrites, error) {
			status := domain.StatusBreakdown
			hold := op.Status
			ticketRef := s.newTicketRef()
			record, err := newActionRecord(op.ID, domain.ActionBreakdown, req.Operator,
				domain.BreakdownDetails{Remarks: req.Remarks, TicketRef: ticketRef, PrevStatus: op.Status}, now)
			if err != nil {
				return nil, err
			}
			return &repository.TransitionWrites{
				Update:       repository.OperationUpdate{Status: &status, HoldFlag: &hold},
				Action:       record,
				Notification: breakdownNotification(op.ID, req.Remarks, now),
				Downtime: &domain.DowntimeRecord{
					OperationID: op.ID,
					MachineID:   op.MachineID,
					TicketRef:   ticketRef,
					Remarks:     req.Remarks,
					StartTime:   now,
					EndTime:     nil, // 维修侧闭合
				},
			}, nil
		})
}

// CompleteRequest 完工
type CompleteRequest struct {
	OperationID int64
	Operator    string
	FinalQty    int
	RejectQty   int
}

// Complete 非 {Complete} → Complete，记录完工/不良数量与结束时间
// 完工百分比不封顶（final 可超计划）；reject 可超 final（沿用旧系统的宽松口径）
func (s *JobActionService) Complete(ctx context.Context, req CompleteRequest) (*ActionResult, error) {
	if req.FinalQty <= 0 {
		return nil, errMissingField("final_qty")
	}
	if req.RejectQty < 0 {
		return nil, errValidationFailed("reject_qty", "must not be negative")
	}

	return s.execute(ctx, domain.ActionComplete, req.OperationID, req.Operator,
		func(op *domain.Operation, now time.Time) (*repository.TransitionWrites, error) {
			status := domain.StatusComplete
			finalQty := req.FinalQty
			rejectQty := req.RejectQty
			pct := domain.CompletionPercent(req.FinalQty, op.PlannedQty)
			record, err := newActionRecord(op.ID, domain.ActionComplete, req.Operator,
				domain.CompleteDetails{FinalQty: finalQty, RejectQty: rejectQty, CompletionPercent: pct}, now)
			if err != nil {
				return nil, err
			}
			return &repository.TransitionWrites{
				Update: repository.OperationUpdate{
					Status:    &status,
					ActualQty: &finalQty,
					RejectQty: &rejectQty,
					EndTime:   &now,
				},
				Action:       record,
				Notification: completeNotification(op.ID, finalQty, pct, now),
			}, nil
		})
}

// QCCheckRequest 质检请求
type QCCheckRequest struct {
	OperationID int64
	Operator    string
	Message     string
}

// RequestQCCheck 非 {Complete} → QCCheck，当前状态存入 hold_flag，记录请求时间
func (s *JobActionService) RequestQCCheck(ctx context.Context, req QCCheckRequest) (*ActionResult, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, errMissingField("message")
	}
	if len(req.Message) > 100 {
		return nil, errValidationFailed("message", "must be 100 characters or less")
	}

	return s.execute(ctx, domain.ActionQCCheck, req.OperationID, req.Operator,
		func(op *domain.Operation, now time.Time) (*repository.TransitionWrites, error) {
			status := domain.StatusQCCheck
			hold := op.Status
			record, err := newActionRecord(op.ID, domain.ActionQCCheck, req.Operator,
				domain.QCCheckDetails{Message: req.Message, PrevStatus: op.Status}, now)
			if err != nil {
				return nil, err
			}
			return &repository.TransitionWrites{
				Update:       repository.OperationUpdate{Status: &status, HoldFlag: &hold, QCRequestTime: &now},
				Action:       record,
				Notification: qcCheckNotification(op.ID, req.Message, now),
			}, nil
		})
}

// ============================================
// 记录型动作（不改变工单状态）
// ============================================

// TestRequest 测试结果记录
type TestRequest struct {
	OperationID int64
	Operator    string
	TestType    string
	Unit        string
	Result      string // "pass" / "fail"
	Remarks     string
}

// RecordTest 追加一条测试结果，状态不变
func (s *JobActionService) RecordTest(ctx context.Context, req TestRequest) (*ActionResult, error) {
	if strings.TrimSpace(req.TestType) == "" {
		return nil, errMissingField("test_type")
	}
	if strings.TrimSpace(req.Unit) == "" {
		return nil, errMissingField("unit")
	}
	result := strings.ToLower(strings.TrimSpace(req.Result))
	if result == "" {
		return nil, errMissingField("result")
	}
	if result != "pass" && result != "fail" {
		return nil, errValidationFailed("result", "must be one of: pass, fail")
	}

	return s.execute(ctx, domain.ActionTest, req.OperationID, req.Operator,
		func(op *domain.Operation, now time.Time) (*repository.TransitionWrites, error) {
			record, err := newActionRecord(op.ID, domain.ActionTest, req.Operator,
				domain.TestDetails{TestType: req.TestType, Unit: req.Unit, Result: result, Remarks: req.Remarks}, now)
			if err != nil {
				return nil, err
			}
			return &repository.TransitionWrites{Action: record}, nil
		})
}

// AlertRequest 告警
type AlertRequest struct {
	OperationID int64
	Operator    string
	AlertType   string
	Severity    string
	Description string
}

// RaiseAlert 追加告警记录 + 广播通知，状态不变
func (s *JobActionService) RaiseAlert(ctx context.Context, req AlertRequest) (*ActionResult, error) {
	if strings.TrimSpace(req.AlertType) == "" {
		return nil, errMissingField("alert_type")
	}
	if strings.TrimSpace(req.Description) == "" {
		return nil, errMissingField("description")
	}
	severity := strings.ToLower(strings.TrimSpace(req.Severity))
	if severity == "" {
		severity = "normal"
	}

	return s.execute(ctx, domain.ActionAlert, req.OperationID, req.Operator,
		func(op *domain.Operation, now time.Time) (*repository.TransitionWrites, error) {
			record, err := newActionRecord(op.ID, domain.ActionAlert, req.Operator,
				domain.AlertDetails{AlertType: req.AlertType, Severity: severity, Description: req.Description}, now)
			if err != nil {
				return nil, err
			}
			return &repository.TransitionWrites{
				Action:       record,
				Notification: alertNotification(op.ID, req.AlertType, severity, req.Description, now),
			}, nil
		})
}

// ContactRequest 呼叫联络
type ContactRequest struct {
	OperationID int64
	Operator    string
	TargetRole  string
	Message     string
	Urgency     string
}

// Contact 追加联络记录 + 定向通知，状态不变
func (s *JobActionService) Contact(ctx context.Context, req ContactRequest) (*ActionResult, error) {
	if strings.TrimSpace(req.TargetRole) == "" {
		return nil, errMissingField("target_role")
	}
	if strings.TrimSpace(req.Message) == "" {
		return nil, errMissingField("message")
	}

	return s.execute(ctx, domain.ActionContact, req.OperationID, req.Operator,
		func(op *domain.Operation, now time.Time) (*repository.TransitionWrites, error) {
			record, err := newActionRecord(op.ID, domain.ActionContact, req.Operator,
				domain.ContactDetails{TargetRole: req.TargetRole, Message: req.Message, Urgency: req.Urgency}, now)
			if err != nil {
				return nil, err
			}
			return &repository.TransitionWrites{
				Action:       record,
				Notification: contactNotification(op.ID, req.TargetRole, req.Message, req.Urgency, now),
			}, nil
		})
}
