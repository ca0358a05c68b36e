package repository

import (
	"context"
	"sort"
	"sync"

	"jobcenter/internal/domain"
)

// MemoryOperationsRepository 内存实现
// 用途：DB 未就绪时的本地开发降级，以及服务层单测（事务语义用互斥锁模拟：
// decide 在锁内执行，返回错误则不产生任何写入）。
type MemoryOperationsRepository struct {
	mu            sync.RWMutex
	operations    map[int64]*domain.Operation
	actions       []*domain.ActionRecord
	notifications []*domain.Notification
	downtime      []*domain.DowntimeRecord
	nextActionID  int64
	nextNotifID   int64
	nextDownID    int64
}

func NewMemoryOperationsRepository() *MemoryOperationsRepository {
	return &MemoryOperationsRepository{
		operations:   map[int64]*domain.Operation{},
		nextActionID: 1,
		nextNotifID:  1,
		nextDownID:   1,
	}
}

var _ OperationsRepository = (*MemoryOperationsRepository)(nil)

// Seed 预置一个工单（开发降级模式与测试用）
func (r *MemoryOperationsRepository) Seed(op *domain.Operation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *op
	r.operations[op.ID] = &cp
}

// CountRows 审计/通知/停机行数（测试断言"恰好一行"用）
func (r *MemoryOperationsRepository) CountRows() (actions, notifications, downtime int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.actions), len(r.notifications), len(r.downtime)
}

func (r *MemoryOperationsRepository) GetOperation(_ context.Context, id int64) (*domain.Operation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	op, ok := r.operations[id]
	if !ok {
		return nil, ErrOperationNotFound
	}
	cp := *op
	return &cp, nil
}

func (r *MemoryOperationsRepository) GetStatus(_ context.Context, id int64) (domain.OpStatus, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	op, ok := r.operations[id]
	if !ok {
		return 0, ErrOperationNotFound
	}
	return op.Status, nil
}

func (r *MemoryOperationsRepository) ApplyTransition(_ context.Context, id int64, decide TransitionFunc) (*TransitionWrites, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	op, ok := r.operations[id]
	if !ok {
		return nil, ErrOperationNotFound
	}

	cp := *op
	writes, err := decide(&cp)
	if err != nil {
		return nil, err
	}

	applyMemoryUpdate(op, writes.Update)

	if writes.Action != nil {
		writes.Action.ID = r.nextActionID
		r.nextActionID++
		rec := *writes.Action
		r.actions = append(r.actions, &rec)
	}
	if writes.Notification != nil {
		writes.Notification.ID = r.nextNotifID
		r.nextNotifID++
		n := *writes.Notification
		r.notifications = append(r.notifications, &n)
	}
	if writes.Downtime != nil {
		writes.Downtime.ID = r.nextDownID
		r.nextDownID++
		d := *writes.Downtime
		r.downtime = append(r.downtime, &d)
	}

	return writes, nil
}

func applyMemoryUpdate(op *domain.Operation, u OperationUpdate) {
	if u.Status != nil {
		op.Status = *u.Status
	}
	if u.HoldFlag != nil {
		op.HoldFlag = *u.HoldFlag
	}
	if u.ActualQty != nil {
		op.ActualQty = *u.ActualQty
	}
	if u.RejectQty != nil {
		op.RejectQty = *u.RejectQty
	}
	if u.StartTime != nil {
		t := *u.StartTime
		op.StartTime = &t
	}
	if u.EndTime != nil {
		t := *u.EndTime
		op.EndTime = &t
	}
	if u.PauseTime != nil {
		t := *u.PauseTime
		op.PauseTime = &t
	}
	if u.ResumeTime != nil {
		t := *u.ResumeTime
		op.ResumeTime = &t
	}
	if u.QCRequestTime != nil {
		t := *u.QCRequestTime
		op.QCRequestTime = &t
	}
}

func (r *MemoryOperationsRepository) ListActions(_ context.Context, operationID int64, limit int) ([]*domain.ActionRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if limit <= 0 {
		limit = 10
	}

	var out []*domain.ActionRecord
	for i := len(r.actions) - 1; i >= 0 && len(out) < limit; i-- {
		if r.actions[i].OperationID == operationID {
			rec := *r.actions[i]
			out = append(out, &rec)
		}
	}
	return out, nil
}

func (r *MemoryOperationsRepository) ListForMachine(_ context.Context, machineID string) ([]*domain.Operation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.Operation
	for _, op := range r.operations {
		if op.MachineID == machineID {
			cp := *op
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		// 未排序（sequence=0）排在已排序之后
		si, sj := out[i].Sequence, out[j].Sequence
		if (si == 0) != (sj == 0) {
			return sj == 0
		}
		if si != sj {
			return si < sj
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *MemoryOperationsRepository) UpdateSequences(_ context.Context, machineID string, entries []SequenceEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// 先校验再写，保持全有或全无
	for _, e := range entries {
		op, ok := r.operations[e.OperationID]
		if !ok || op.MachineID != machineID {
			return ErrOperationNotFound
		}
	}
	for _, e := range entries {
		r.operations[e.OperationID].Sequence = e.Sequence
	}
	return nil
}

func (r *MemoryOperationsRepository) ListNotifications(_ context.Context, target int, limit int) ([]*domain.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}

	var out []*domain.Notification
	for i := len(r.notifications) - 1; i >= 0 && len(out) < limit; i-- {
		n := r.notifications[i]
		if target >= 0 && n.Target != target && n.Target != domain.TargetBroadcast {
			continue
		}
		cp := *n
		out = append(out, &cp)
	}
	return out, nil
}
