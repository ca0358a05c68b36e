package domain

import (
	"time"
)

// OpStatus 工单状态码（operations.status）
// 注意：11 在旧计划系统中被占用，保留不用
type OpStatus int

const (
	StatusNew       OpStatus = 1
	StatusAssigned  OpStatus = 2
	StatusSetup     OpStatus = 3
	StatusFPQC      OpStatus = 4
	StatusInProcess OpStatus = 5
	StatusPaused    OpStatus = 6
	StatusBreakdown OpStatus = 7
	StatusOnHold    OpStatus = 8
	StatusLPQC      OpStatus = 9
	StatusComplete  OpStatus = 10
	StatusQCHold    OpStatus = 12
	StatusQCCheck   OpStatus = 13
)

// statusNames 状态名称表（唯一的权威表，所有调用方统一引用，避免各处自建映射漂移）
var statusNames = map[OpStatus]string{
	StatusNew:       "New",
	StatusAssigned:  "Assigned",
	StatusSetup:     "Setup",
	StatusFPQC:      "FPQC",
	StatusInProcess: "InProcess",
	StatusPaused:    "Paused",
	StatusBreakdown: "Breakdown",
	StatusOnHold:    "OnHold",
	StatusLPQC:      "LPQC",
	StatusComplete:  "Complete",
	StatusQCHold:    "QCHold",
	StatusQCCheck:   "QCCheck",
}

// Name 返回状态显示名称，未知状态返回 "Unknown"
func (s OpStatus) Name() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "Unknown"
}

// Valid 是否为已定义的状态码
func (s OpStatus) Valid() bool {
	_, ok := statusNames[s]
	return ok
}

// Terminal 工单是否已终结（Complete 之后不允许任何状态迁移）
func (s OpStatus) Terminal() bool {
	return s == StatusComplete
}

// Held 该状态下 hold_flag 必须保存进入前的状态
func (s OpStatus) Held() bool {
	return s == StatusPaused || s == StatusBreakdown || s == StatusQCCheck
}

// Operation 工单（operations 表），机台上一个可排程的作业单元
type Operation struct {
	ID        int64  `db:"id"`
	MachineID string `db:"machine_id"` // 外部机台目录引用（只读）
	ItemID    string `db:"item_id"`    // 外部物料目录引用（只读）
	LotID     string `db:"lot_id"`     // 外部批次目录引用（只读）

	Status OpStatus `db:"status"`
	// HoldFlag 进入 Paused/Breakdown/QCCheck 前的状态，Resume 时恢复；0 表示未挂起
	HoldFlag OpStatus `db:"hold_flag"`

	// 数量
	PlannedQty int `db:"planned_qty"`
	ActualQty  int `db:"actual_qty"`
	RejectQty  int `db:"reject_qty"`

	// Sequence 班次内机台排序，0 表示未排序
	Sequence int `db:"sequence"`

	// 各时间戳只由对应的状态迁移写入
	StartTime     *time.Time `db:"start_time"`
	EndTime       *time.Time `db:"end_time"`
	PauseTime     *time.Time `db:"pause_time"`
	ResumeTime    *time.Time `db:"resume_time"`
	QCRequestTime *time.Time `db:"qc_request_time"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// ProgressPercent 进度百分比：min(100, actual/planned*100)，planned<=0 时为 0
func (o *Operation) ProgressPercent() float64 {
	if o.PlannedQty <= 0 {
		return 0
	}
	pct := float64(o.ActualQty) / float64(o.PlannedQty) * 100
	if pct > 100 {
		pct = 100
	}
	return pct
}

// CompletionPercent 完工百分比：final/planned*100，不封顶（显示侧自行裁剪）
// planned<=0 时返回 0
func CompletionPercent(finalQty, plannedQty int) float64 {
	if plannedQty <= 0 {
		return 0
	}
	return float64(finalQty) / float64(plannedQty) * 100
}
