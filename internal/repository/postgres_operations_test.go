package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"jobcenter/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMockOperationsDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *PostgresOperationsRepository) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	repo := NewPostgresOperationsRepository(db)

	return db, mock, repo
}

var operationTestColumns = []string{
	"id", "machine_id", "item_id", "lot_id", "status", "hold_flag",
	"planned_qty", "actual_qty", "reject_qty", "sequence",
	"start_time", "end_time", "pause_time", "resume_time", "qc_request_time",
	"created_at", "updated_at",
}

func operationRow(id int64, status domain.OpStatus) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(operationTestColumns).AddRow(
		id, "CNC-07", "ITEM-100", "LOT-2503", int(status), 0,
		200, 0, 0, 0,
		nil, nil, nil, nil, nil,
		now, now,
	)
}

// ============================================
// 基础读取测试
// ============================================

func TestGetOperation_Success(t *testing.T) {
	db, mock, repo := setupMockOperationsDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT`).
		WithArgs(int64(42)).
		WillReturnRows(operationRow(42, domain.StatusAssigned))

	op, err := repo.GetOperation(context.Background(), 42)

	require.NoError(t, err)
	assert.Equal(t, int64(42), op.ID)
	assert.Equal(t, "CNC-07", op.MachineID)
	assert.Equal(t, domain.StatusAssigned, op.Status)
	assert.Nil(t, op.StartTime)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOperation_NotFound(t *testing.T) {
	db, mock, repo := setupMockOperationsDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT`).
		WithArgs(int64(404)).
		WillReturnError(sql.ErrNoRows)

	op, err := repo.GetOperation(context.Background(), 404)

	assert.Nil(t, op)
	assert.Equal(t, ErrOperationNotFound, err)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetStatus_Success(t *testing.T) {
	db, mock, repo := setupMockOperationsDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT status`).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(int(domain.StatusPaused)))

	status, err := repo.GetStatus(context.Background(), 42)

	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaused, status)

	require.NoError(t, mock.ExpectationsWereMet())
}

// ============================================
// 事务迁移测试
// ============================================

func TestApplyTransition_CommitsAllWrites(t *testing.T) {
	db, mock, repo := setupMockOperationsDB(t)
	defer db.Close()

	now := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
	details, _ := json.Marshal(map[string]string{"remarks": "motor fault"})

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT(.|\n)*FOR UPDATE`).
		WithArgs(int64(42)).
		WillReturnRows(operationRow(42, domain.StatusFPQC))
	mock.ExpectExec(`UPDATE operations SET`).
		WithArgs(int64(42), int(domain.StatusBreakdown), int(domain.StatusFPQC)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO job_actions`).
		WithArgs(int64(42), "breakdown", "op-li", details, now).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(101)))
	mock.ExpectQuery(`INSERT INTO notifications`).
		WithArgs("Machine Breakdown - motor fault", domain.TargetMaintenance,
			domain.SourceTypeOperations, int64(42), "breakdown", domain.PriorityHigh, now).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(201)))
	mock.ExpectQuery(`INSERT INTO downtime_records`).
		WithArgs(int64(42), "CNC-07", "MT-abc12345", "motor fault", now, nil).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(301)))
	mock.ExpectCommit()

	writes, err := repo.ApplyTransition(context.Background(), 42, func(op *domain.Operation) (*TransitionWrites, error) {
		require.Equal(t, domain.StatusFPQC, op.Status)
		status := domain.StatusBreakdown
		hold := op.Status
		return &TransitionWrites{
			Update: OperationUpdate{Status: &status, HoldFlag: &hold},
			Action: &domain.ActionRecord{
				OperationID: op.ID,
				Action:      domain.ActionBreakdown,
				Operator:    "op-li",
				Details:     details,
				CreatedAt:   now,
			},
			Notification: &domain.Notification{
				Text:       "Machine Breakdown - motor fault",
				Target:     domain.TargetMaintenance,
				SourceType: domain.SourceTypeOperations,
				SourceID:   op.ID,
				Category:   "breakdown",
				Priority:   domain.PriorityHigh,
				CreatedAt:  now,
			},
			Downtime: &domain.DowntimeRecord{
				OperationID: op.ID,
				MachineID:   op.MachineID,
				TicketRef:   "MT-abc12345",
				Remarks:     "motor fault",
				StartTime:   now,
			},
		}, nil
	})

	require.NoError(t, err)
	assert.Equal(t, int64(101), writes.Action.ID)
	assert.Equal(t, int64(201), writes.Notification.ID)
	assert.Equal(t, int64(301), writes.Downtime.ID)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyTransition_DecideErrorRollsBack(t *testing.T) {
	db, mock, repo := setupMockOperationsDB(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT(.|\n)*FOR UPDATE`).
		WithArgs(int64(42)).
		WillReturnRows(operationRow(42, domain.StatusComplete))
	mock.ExpectRollback()

	// decide 的错误必须原样透传，服务层的类型化错误才能被识别
	decideErr := assert.AnError
	writes, err := repo.ApplyTransition(context.Background(), 42, func(*domain.Operation) (*TransitionWrites, error) {
		return nil, decideErr
	})

	assert.Nil(t, writes)
	assert.Equal(t, decideErr, err)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyTransition_NotFound(t *testing.T) {
	db, mock, repo := setupMockOperationsDB(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT(.|\n)*FOR UPDATE`).
		WithArgs(int64(404)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	writes, err := repo.ApplyTransition(context.Background(), 404, func(*domain.Operation) (*TransitionWrites, error) {
		t.Fatal("decide should not run when the row is missing")
		return nil, nil
	})

	assert.Nil(t, writes)
	assert.Equal(t, ErrOperationNotFound, err)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyTransition_ActionOnlyWrite(t *testing.T) {
	db, mock, repo := setupMockOperationsDB(t)
	defer db.Close()

	now := time.Now()
	details := json.RawMessage(`{"result":"pass"}`)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT(.|\n)*FOR UPDATE`).
		WithArgs(int64(42)).
		WillReturnRows(operationRow(42, domain.StatusInProcess))
	// 记录型动作：工单只刷新 updated_at
	mock.ExpectExec(`UPDATE operations SET updated_at`).
		WithArgs(int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO job_actions`).
		WithArgs(int64(42), "test", "op-li", []byte(details), now).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectCommit()

	writes, err := repo.ApplyTransition(context.Background(), 42, func(op *domain.Operation) (*TransitionWrites, error) {
		return &TransitionWrites{
			Action: &domain.ActionRecord{
				OperationID: op.ID,
				Action:      domain.ActionTest,
				Operator:    "op-li",
				Details:     details,
				CreatedAt:   now,
			},
		}, nil
	})

	require.NoError(t, err)
	assert.Nil(t, writes.Notification)

	require.NoError(t, mock.ExpectationsWereMet())
}

// ============================================
// 列表与排序测试
// ============================================

func TestListActions_Success(t *testing.T) {
	db, mock, repo := setupMockOperationsDB(t)
	defer db.Close()

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "operation_id", "action", "operator", "details", "created_at"}).
		AddRow(int64(2), int64(42), "fpqc", "op-li", []byte(`{"actual_qty":100}`), now).
		AddRow(int64(1), int64(42), "setup", "op-li", []byte(`{"message":"Tool change"}`), now.Add(-time.Minute))

	mock.ExpectQuery(`SELECT(.|\n)*FROM job_actions`).
		WithArgs(int64(42), 10).
		WillReturnRows(rows)

	records, err := repo.ListActions(context.Background(), 42, 0)

	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, domain.ActionFPQC, records[0].Action)
	assert.Equal(t, domain.ActionSetup, records[1].Action)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListForMachine_Success(t *testing.T) {
	db, mock, repo := setupMockOperationsDB(t)
	defer db.Close()

	now := time.Now()
	rows := sqlmock.NewRows(operationTestColumns).
		AddRow(int64(2), "CNC-07", "ITEM-2", "LOT-2", int(domain.StatusInProcess), 0,
			100, 40, 0, 1, nil, nil, nil, nil, nil, now, now).
		AddRow(int64(5), "CNC-07", "ITEM-5", "LOT-5", int(domain.StatusNew), 0,
			50, 0, 0, 0, nil, nil, nil, nil, nil, now, now)

	mock.ExpectQuery(`SELECT(.|\n)*FROM operations`).
		WithArgs("CNC-07").
		WillReturnRows(rows)

	ops, err := repo.ListForMachine(context.Background(), "CNC-07")

	require.NoError(t, err)
	require.Len(t, ops, 2)
	assert.Equal(t, int64(2), ops[0].ID)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateSequences_AllOrNothing(t *testing.T) {
	db, mock, repo := setupMockOperationsDB(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE operations SET sequence`).
		WithArgs(1, int64(2), "CNC-07").
		WillReturnResult(sqlmock.NewResult(0, 1))
	// 第二条不属于该机台，整批回滚
	mock.ExpectExec(`UPDATE operations SET sequence`).
		WithArgs(2, int64(9), "CNC-07").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.UpdateSequences(context.Background(), "CNC-07", []SequenceEntry{
		{OperationID: 2, Sequence: 1},
		{OperationID: 9, Sequence: 2},
	})

	assert.Equal(t, ErrOperationNotFound, err)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListNotifications_TargetIncludesBroadcast(t *testing.T) {
	db, mock, repo := setupMockOperationsDB(t)
	defer db.Close()

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "text", "target", "source_type", "source_id", "category", "priority", "created_at"}).
		AddRow(int64(2), "QC Check Requested - drift", domain.TargetQC, "operations", int64(42), "qc_check", 0, now).
		AddRow(int64(1), "CRITICAL Alert: safety - guard open", domain.TargetBroadcast, "operations", int64(42), "alert", 1, now.Add(-time.Minute))

	mock.ExpectQuery(`SELECT(.|\n)*FROM notifications`).
		WithArgs(20, domain.TargetQC).
		WillReturnRows(rows)

	items, err := repo.ListNotifications(context.Background(), domain.TargetQC, 0)

	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, domain.TargetQC, items[0].Target)
	assert.Equal(t, domain.TargetBroadcast, items[1].Target)

	require.NoError(t, mock.ExpectationsWereMet())
}
