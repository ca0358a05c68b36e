package service

import (
	"fmt"

	"jobcenter/internal/domain"
)

// transitionRule 动作的前置状态规则
// 表刻意宽松：平板上的人随时可能上报故障或请求质检，系统的职责是记录事件并
// 调整台账，不是套一个严格的生产状态机。排除项只为阻止终态/重复操作被重开。
type transitionRule struct {
	allowed  func(s domain.OpStatus) bool
	expected string // StatusConflict 提示用的期望状态描述
}

var transitionRules = map[domain.Action]transitionRule{
	domain.ActionSetup: {
		allowed: func(s domain.OpStatus) bool {
			return s == domain.StatusNew || s == domain.StatusAssigned
		},
		expected: "New or Assigned",
	},
	domain.ActionFPQC: {
		allowed:  func(s domain.OpStatus) bool { return s == domain.StatusSetup },
		expected: "Setup",
	},
	domain.ActionPause: {
		allowed: func(s domain.OpStatus) bool {
			return s != domain.StatusPaused && s != domain.StatusComplete
		},
		expected: "Active status",
	},
	// Resume 对所有挂起态有效：Paused/Breakdown/QCCheck 都经 Resume 回到 hold_flag
	domain.ActionResume: {
		allowed:  func(s domain.OpStatus) bool { return s.Held() },
		expected: "Paused, Breakdown or QCCheck",
	},
	// Breakdown 不允许从 Paused 发起：否则 hold_flag 会被 Paused 覆盖，
	// 丢失真正的工作前状态（旧系统此处行为未定义，这里显式收紧）
	domain.ActionBreakdown: {
		allowed: func(s domain.OpStatus) bool {
			return s != domain.StatusBreakdown && s != domain.StatusComplete && s != domain.StatusPaused
		},
		expected: "Active status (not Paused)",
	},
	domain.ActionComplete: {
		allowed:  func(s domain.OpStatus) bool { return s != domain.StatusComplete },
		expected: "Active status",
	},
	domain.ActionQCCheck: {
		allowed:  func(s domain.OpStatus) bool { return s != domain.StatusComplete },
		expected: "Active status",
	},
	// 记录型动作不改变工单状态，任何状态下可用
	domain.ActionTest:    {allowed: func(domain.OpStatus) bool { return true }},
	domain.ActionAlert:   {allowed: func(domain.OpStatus) bool { return true }},
	domain.ActionContact: {allowed: func(domain.OpStatus) bool { return true }},
}

// checkTransition 前置状态校验，违规返回 StatusConflict
func checkTransition(action domain.Action, current domain.OpStatus) error {
	rule, ok := transitionRules[action]
	if !ok {
		return errInvalidInput(fmt.Sprintf("unknown action %q", action))
	}
	if !rule.allowed(current) {
		return errStatusConflict(action, current, rule.expected)
	}
	return nil
}
