package service

import (
	"fmt"
	"strings"
	"time"

	"jobcenter/internal/domain"
)

// 通知文案按动作固定模板生成，保证可预期、可测试。
// 不产生通知的动作（setup/pause/resume/test）返回 nil。

func breakdownNotification(opID int64, remarks string, now time.Time) *domain.Notification {
	return &domain.Notification{
		Text:       fmt.Sprintf("Machine Breakdown - %s", remarks),
		Target:     domain.TargetMaintenance,
		SourceType: domain.SourceTypeOperations,
		SourceID:   opID,
		Category:   string(domain.ActionBreakdown),
		Priority:   domain.PriorityHigh,
		CreatedAt:  now,
	}
}

func fpqcNotification(opID int64, now time.Time) *domain.Notification {
	return &domain.Notification{
		Text:       fmt.Sprintf("First Piece Ready for QC - operation %d", opID),
		Target:     domain.TargetQC,
		SourceType: domain.SourceTypeOperations,
		SourceID:   opID,
		Category:   string(domain.ActionFPQC),
		Priority:   domain.PriorityNormal,
		CreatedAt:  now,
	}
}

func qcCheckNotification(opID int64, message string, now time.Time) *domain.Notification {
	return &domain.Notification{
		Text:       fmt.Sprintf("QC Check Requested - %s", message),
		Target:     domain.TargetQC,
		SourceType: domain.SourceTypeOperations,
		SourceID:   opID,
		Category:   string(domain.ActionQCCheck),
		Priority:   domain.PriorityNormal,
		CreatedAt:  now,
	}
}

func completeNotification(opID int64, finalQty int, pct float64, now time.Time) *domain.Notification {
	return &domain.Notification{
		Text:       fmt.Sprintf("Job Complete - operation %d, final qty %d (%.1f%%)", opID, finalQty, pct),
		Target:     domain.TargetSupervisor,
		SourceType: domain.SourceTypeOperations,
		SourceID:   opID,
		Category:   string(domain.ActionComplete),
		Priority:   domain.PriorityNormal,
		CreatedAt:  now,
	}
}

func alertNotification(opID int64, alertType, severity, description string, now time.Time) *domain.Notification {
	return &domain.Notification{
		Text:       fmt.Sprintf("%s Alert: %s - %s", strings.ToUpper(severity), alertType, description),
		Target:     domain.TargetBroadcast,
		SourceType: domain.SourceTypeOperations,
		SourceID:   opID,
		Category:   string(domain.ActionAlert),
		Priority:   domain.AlertPriority(severity),
		CreatedAt:  now,
	}
}

// contactTargets 联络目标角色 → 受众码
var contactTargets = map[string]int{
	"qc":          domain.TargetQC,
	"maintenance": domain.TargetMaintenance,
	"supervisor":  domain.TargetSupervisor,
}

func contactNotification(opID int64, targetRole, message, urgency string, now time.Time) *domain.Notification {
	target, ok := contactTargets[strings.ToLower(targetRole)]
	if !ok {
		target = domain.TargetBroadcast
	}
	return &domain.Notification{
		Text:       fmt.Sprintf("Contact Request (%s): %s", targetRole, message),
		Target:     target,
		SourceType: domain.SourceTypeOperations,
		SourceID:   opID,
		Category:   string(domain.ActionContact),
		Priority:   domain.AlertPriority(urgency),
		CreatedAt:  now,
	}
}
