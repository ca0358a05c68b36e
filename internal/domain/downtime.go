package domain

import "time"

// DowntimeRecord 停机记录（downtime_records 表）
// Breakdown 时开区间写入，EndTime 为空直到维修侧闭合（闭合流程不在本服务内）
type DowntimeRecord struct {
	ID          int64      `db:"id"`
	OperationID int64      `db:"operation_id"`
	MachineID   string     `db:"machine_id"`
	TicketRef   string     `db:"ticket_ref"` // 外部维修工单引用
	Remarks     string     `db:"remarks"`
	StartTime   time.Time  `db:"start_time"`
	EndTime     *time.Time `db:"end_time"`
}
