package service

import (
	"context"
	"strings"

	"jobcenter/internal/repository"

	"go.uber.org/zap"
)

// SequenceService 班次排序（主管把工单排到机台的顺序上）
type SequenceService struct {
	repo   repository.OperationsRepository
	logger *zap.Logger
}

func NewSequenceService(repo repository.OperationsRepository, logger *zap.Logger) *SequenceService {
	return &SequenceService{repo: repo, logger: logger}
}

// RoleSupervisor 允许排序的角色
const RoleSupervisor = "supervisor"

// SequenceUpdateRequest 批量排序请求
type SequenceUpdateRequest struct {
	MachineID string
	Operator  string
	Role      string
	Entries   []repository.SequenceEntry
}

// UpdateSequences 批量更新机台排序，单事务，主管专用
// sequence=0 表示取消排序
func (s *SequenceService) UpdateSequences(ctx context.Context, req SequenceUpdateRequest) error {
	if strings.TrimSpace(req.Operator) == "" {
		return errUnauthorized()
	}
	if !strings.EqualFold(req.Role, RoleSupervisor) {
		return &ActionError{Code: CodeUnauthorized, Message: "sequencing requires supervisor role"}
	}
	if req.MachineID == "" {
		return errMissingField("machine_id")
	}
	if len(req.Entries) == 0 {
		return errMissingField("entries")
	}
	for _, e := range req.Entries {
		if e.OperationID <= 0 {
			return errInvalidInput("operation id must be a positive integer")
		}
		if e.Sequence < 0 {
			return errValidationFailed("sequence", "must not be negative")
		}
	}

	if err := s.repo.UpdateSequences(ctx, req.MachineID, req.Entries); err != nil {
		if err == repository.ErrOperationNotFound {
			return &ActionError{Code: CodeNotFound, Message: "one or more operations not found on this machine"}
		}
		s.logger.Error("failed to update sequences",
			zap.String("machine_id", req.MachineID),
			zap.Error(err),
		)
		return errPersistence()
	}

	s.logger.Info("machine sequence updated",
		zap.String("machine_id", req.MachineID),
		zap.String("operator", req.Operator),
		zap.Int("entries", len(req.Entries)),
	)
	return nil
}
