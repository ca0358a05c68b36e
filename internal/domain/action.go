package domain

import (
	"encoding/json"
	"time"
)

// Action 操作员动作类型（job_actions.action）
type Action string

const (
	ActionSetup     Action = "setup"
	ActionFPQC      Action = "fpqc"
	ActionPause     Action = "pause"
	ActionResume    Action = "resume"
	ActionBreakdown Action = "breakdown"
	ActionComplete  Action = "complete"
	ActionQCCheck   Action = "qc_check"
	ActionTest      Action = "test"
	ActionAlert     Action = "alert"
	ActionContact   Action = "contact"
)

// ActionRecord 审计流水（job_actions 表），每次成功的动作追加一行，只增不改
type ActionRecord struct {
	ID          int64           `db:"id"`
	OperationID int64           `db:"operation_id"`
	Action      Action          `db:"action"`
	Operator    string          `db:"operator"`
	Details     json.RawMessage `db:"details"` // 序列化后的 ActionDetails（JSONB）
	CreatedAt   time.Time       `db:"created_at"`
}

// ActionDetails 动作载荷
// 每种动作一个封闭的具体类型，不用开放的 map（字段静态可知，漏处理编译期暴露）
type ActionDetails interface {
	ActionKind() Action
}

// MarshalDetails 统一序列化入口（写入 job_actions.details）
func MarshalDetails(d ActionDetails) (json.RawMessage, error) {
	if d == nil {
		return json.RawMessage(`{}`), nil
	}
	return json.Marshal(d)
}

// SetupDetails 开机准备
type SetupDetails struct {
	Message string `json:"message"`
	Remarks string `json:"remarks"`
}

func (SetupDetails) ActionKind() Action { return ActionSetup }

// FPQCDetails 首件检提交
type FPQCDetails struct {
	ActualQty int `json:"actual_qty"`
}

func (FPQCDetails) ActionKind() Action { return ActionFPQC }

// PauseDetails 暂停
type PauseDetails struct {
	Reason     string   `json:"reason"`
	PrevStatus OpStatus `json:"prev_status"`
}

func (PauseDetails) ActionKind() Action { return ActionPause }

// ResumeDetails 恢复
type ResumeDetails struct {
	Remarks        string   `json:"remarks"`
	RestoredStatus OpStatus `json:"restored_status"`
}

func (ResumeDetails) ActionKind() Action { return ActionResume }

// BreakdownDetails 故障停机
type BreakdownDetails struct {
	Remarks    string   `json:"remarks"`
	TicketRef  string   `json:"ticket_ref"` // 外部维修工单引用
	PrevStatus OpStatus `json:"prev_status"`
}

func (BreakdownDetails) ActionKind() Action { return ActionBreakdown }

// CompleteDetails 完工
type CompleteDetails struct {
	FinalQty          int     `json:"final_qty"`
	RejectQty         int     `json:"reject_qty"`
	CompletionPercent float64 `json:"completion_percent"` // 不封顶
}

func (CompleteDetails) ActionKind() Action { return ActionComplete }

// QCCheckDetails 质检请求
type QCCheckDetails struct {
	Message    string   `json:"message"`
	PrevStatus OpStatus `json:"prev_status"`
}

func (QCCheckDetails) ActionKind() Action { return ActionQCCheck }

// TestDetails 测试结果记录（不改变工单状态）
type TestDetails struct {
	TestType string `json:"test_type"`
	Unit     string `json:"unit"`
	Result   string `json:"result"` // "pass" / "fail"
	Remarks  string `json:"remarks,omitempty"`
}

func (TestDetails) ActionKind() Action { return ActionTest }

// AlertDetails 告警（不改变工单状态）
type AlertDetails struct {
	AlertType   string `json:"alert_type"`
	Severity    string `json:"severity"` // critical / high / technical / normal
	Description string `json:"description"`
}

func (AlertDetails) ActionKind() Action { return ActionAlert }

// ContactDetails 呼叫联络（不改变工单状态）
type ContactDetails struct {
	TargetRole string `json:"target_role"`
	Message    string `json:"message"`
	Urgency    string `json:"urgency,omitempty"` // critical / high / technical / normal
}

func (ContactDetails) ActionKind() Action { return ActionContact }
