package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"jobcenter/internal/domain"
)

// PostgresOperationsRepository 工单仓库 Postgres 实现
type PostgresOperationsRepository struct {
	db *sql.DB
}

// NewPostgresOperationsRepository 创建工单仓库
func NewPostgresOperationsRepository(db *sql.DB) *PostgresOperationsRepository {
	return &PostgresOperationsRepository{db: db}
}

// 确保实现了接口
var _ OperationsRepository = (*PostgresOperationsRepository)(nil)

const operationColumns = `
	id,
	machine_id,
	item_id,
	lot_id,
	status,
	hold_flag,
	planned_qty,
	actual_qty,
	reject_qty,
	sequence,
	start_time,
	end_time,
	pause_time,
	resume_time,
	qc_request_time,
	created_at,
	updated_at`

// scanOperation 扫描一行工单（可空时间戳用 sql.NullTime 过渡）
func scanOperation(row interface{ Scan(...any) error }) (*domain.Operation, error) {
	var op domain.Operation
	var startTime, endTime, pauseTime, resumeTime, qcRequestTime sql.NullTime

	err := row.Scan(
		&op.ID,
		&op.MachineID,
		&op.ItemID,
		&op.LotID,
		&op.Status,
		&op.HoldFlag,
		&op.PlannedQty,
		&op.ActualQty,
		&op.RejectQty,
		&op.Sequence,
		&startTime,
		&endTime,
		&pauseTime,
		&resumeTime,
		&qcRequestTime,
		&op.CreatedAt,
		&op.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if startTime.Valid {
		op.StartTime = &startTime.Time
	}
	if endTime.Valid {
		op.EndTime = &endTime.Time
	}
	if pauseTime.Valid {
		op.PauseTime = &pauseTime.Time
	}
	if resumeTime.Valid {
		op.ResumeTime = &resumeTime.Time
	}
	if qcRequestTime.Valid {
		op.QCRequestTime = &qcRequestTime.Time
	}

	return &op, nil
}

// GetOperation 读取单个工单
func (r *PostgresOperationsRepository) GetOperation(ctx context.Context, id int64) (*domain.Operation, error) {
	query := `SELECT ` + operationColumns + ` FROM operations WHERE id = $1`

	op, err := scanOperation(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrOperationNotFound
		}
		return nil, fmt.Errorf("failed to get operation: %w", err)
	}
	return op, nil
}

// GetStatus 只读当前状态码
func (r *PostgresOperationsRepository) GetStatus(ctx context.Context, id int64) (domain.OpStatus, error) {
	var status domain.OpStatus
	err := r.db.QueryRowContext(ctx, `SELECT status FROM operations WHERE id = $1`, id).Scan(&status)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, ErrOperationNotFound
		}
		return 0, fmt.Errorf("failed to get operation status: %w", err)
	}
	return status, nil
}

// ApplyTransition 单事务执行一次状态迁移
// 流程：BEGIN → SELECT ... FOR UPDATE → decide → UPDATE operations +
// INSERT job_actions (+ notifications / downtime_records) → COMMIT
// decide 返回的错误原样透传（不包装），保证服务层的类型化错误可被 errors.As 识别。
func (r *PostgresOperationsRepository) ApplyTransition(ctx context.Context, id int64, decide TransitionFunc) (*TransitionWrites, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// 行锁，避免并发迁移基于过期前置条件同时成功
	query := `SELECT ` + operationColumns + ` FROM operations WHERE id = $1 FOR UPDATE`
	current, err := scanOperation(tx.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrOperationNotFound
		}
		return nil, fmt.Errorf("failed to lock operation: %w", err)
	}

	writes, err := decide(current)
	if err != nil {
		return nil, err
	}

	if err := applyOperationUpdate(ctx, tx, id, writes.Update); err != nil {
		return nil, err
	}

	if writes.Action != nil {
		err = tx.QueryRowContext(ctx,
			`INSERT INTO job_actions (operation_id, action, operator, details, created_at)
			 VALUES ($1, $2, $3, $4, $5)
			 RETURNING id`,
			writes.Action.OperationID,
			string(writes.Action.Action),
			writes.Action.Operator,
			[]byte(writes.Action.Details),
			writes.Action.CreatedAt,
		).Scan(&writes.Action.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to insert job action: %w", err)
		}
	}

	if writes.Notification != nil {
		err = tx.QueryRowContext(ctx,
			`INSERT INTO notifications (text, target, source_type, source_id, category, priority, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 RETURNING id`,
			writes.Notification.Text,
			writes.Notification.Target,
			writes.Notification.SourceType,
			writes.Notification.SourceID,
			writes.Notification.Category,
			writes.Notification.Priority,
			writes.Notification.CreatedAt,
		).Scan(&writes.Notification.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to insert notification: %w", err)
		}
	}

	if writes.Downtime != nil {
		var endTimeArg any
		if writes.Downtime.EndTime != nil {
			endTimeArg = *writes.Downtime.EndTime
		}
		err = tx.QueryRowContext(ctx,
			`INSERT INTO downtime_records (operation_id, machine_id, ticket_ref, remarks, start_time, end_time)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 RETURNING id`,
			writes.Downtime.OperationID,
			writes.Downtime.MachineID,
			writes.Downtime.TicketRef,
			writes.Downtime.Remarks,
			writes.Downtime.StartTime,
			endTimeArg,
		).Scan(&writes.Downtime.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to insert downtime record: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transition: %w", err)
	}

	return writes, nil
}

// applyOperationUpdate 动态拼 UPDATE SET 子句（只写非 nil 字段）
func applyOperationUpdate(ctx context.Context, tx *sql.Tx, id int64, u OperationUpdate) error {
	updates := []string{"updated_at = NOW()"}
	args := []any{id}
	argIdx := 2

	add := func(column string, value any) {
		updates = append(updates, fmt.Sprintf("%s = $%d", column, argIdx))
		args = append(args, value)
		argIdx++
	}

	if u.Status != nil {
		add("status", int(*u.Status))
	}
	if u.HoldFlag != nil {
		add("hold_flag", int(*u.HoldFlag))
	}
	if u.ActualQty != nil {
		add("actual_qty", *u.ActualQty)
	}
	if u.RejectQty != nil {
		add("reject_qty", *u.RejectQty)
	}
	if u.StartTime != nil {
		add("start_time", *u.StartTime)
	}
	if u.EndTime != nil {
		add("end_time", *u.EndTime)
	}
	if u.PauseTime != nil {
		add("pause_time", *u.PauseTime)
	}
	if u.ResumeTime != nil {
		add("resume_time", *u.ResumeTime)
	}
	if u.QCRequestTime != nil {
		add("qc_request_time", *u.QCRequestTime)
	}

	query := fmt.Sprintf(`UPDATE operations SET %s WHERE id = $1`, strings.Join(updates, ", "))
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update operation: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrOperationNotFound
	}
	return nil
}

// ListActions 工单最近的审计流水（新的在前）
func (r *PostgresOperationsRepository) ListActions(ctx context.Context, operationID int64, limit int) ([]*domain.ActionRecord, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, operation_id, action, operator, details, created_at
		 FROM job_actions
		 WHERE operation_id = $1
		 ORDER BY created_at DESC, id DESC
		 LIMIT $2`,
		operationID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list job actions: %w", err)
	}
	defer rows.Close()

	var records []*domain.ActionRecord
	for rows.Next() {
		var rec domain.ActionRecord
		var details []byte
		if err := rows.Scan(&rec.ID, &rec.OperationID, &rec.Action, &rec.Operator, &details, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan job action: %w", err)
		}
		rec.Details = details
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate job actions: %w", err)
	}

	return records, nil
}

// ListForMachine 机台的工单列表（sequence=0 未排序，排在已排序之后）
func (r *PostgresOperationsRepository) ListForMachine(ctx context.Context, machineID string) ([]*domain.Operation, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+operationColumns+`
		 FROM operations
		 WHERE machine_id = $1
		 ORDER BY (sequence = 0), sequence, id`,
		machineID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list operations: %w", err)
	}
	defer rows.Close()

	var ops []*domain.Operation
	for rows.Next() {
		op, err := scanOperation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan operation: %w", err)
		}
		ops = append(ops, op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate operations: %w", err)
	}

	return ops, nil
}

// UpdateSequences 批量更新机台排序，单事务
func (r *PostgresOperationsRepository) UpdateSequences(ctx context.Context, machineID string, entries []SequenceEntry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, e := range entries {
		res, err := tx.ExecContext(ctx,
			`UPDATE operations SET sequence = $1, updated_at = NOW()
			 WHERE id = $2 AND machine_id = $3`,
			e.Sequence, e.OperationID, machineID,
		)
		if err != nil {
			return fmt.Errorf("failed to update sequence: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return ErrOperationNotFound
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit sequence update: %w", err)
	}
	return nil
}

// ListNotifications 通知列表（target<0 不过滤）
func (r *PostgresOperationsRepository) ListNotifications(ctx context.Context, target int, limit int) ([]*domain.Notification, error) {
	if limit <= 0 {
		limit = 20
	}

	where := ""
	args := []any{limit}
	if target >= 0 {
		// target=0 的广播通知对所有受众可见
		where = "WHERE (target = $2 OR target = 0)"
		args = append(args, target)
	}

	query := fmt.Sprintf(
		`SELECT id, text, target, source_type, source_id, category, priority, created_at
		 FROM notifications
		 %s
		 ORDER BY created_at DESC, id DESC
		 LIMIT $1`, where)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var items []*domain.Notification
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(&n.ID, &n.Text, &n.Target, &n.SourceType, &n.SourceID, &n.Category, &n.Priority, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		items = append(items, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate notifications: %w", err)
	}

	return items, nil
}
