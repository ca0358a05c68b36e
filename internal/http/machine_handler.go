package httpapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"jobcenter/internal/repository"
	"jobcenter/internal/service"

	"go.uber.org/zap"
)

// MachineHandler 机台侧 Handler：班次工单列表、主管排序、班次报表导出
type MachineHandler struct {
	queries   *service.OperationQueryService
	sequences *service.SequenceService
	logger    *zap.Logger
}

func NewMachineHandler(queries *service.OperationQueryService, sequences *service.SequenceService, logger *zap.Logger) *MachineHandler {
	return &MachineHandler{
		queries:   queries,
		sequences: sequences,
		logger:    logger,
	}
}

const machinesPrefix = "/job/api/v1/machines/"

// ServeHTTP 实现 http.Handler 接口
func (h *MachineHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// 路由分发：{machineId}/{operations|sequence|report.xlsx}
	rest := strings.TrimPrefix(r.URL.Path, machinesPrefix)
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	machineID := parts[0]

	switch {
	case parts[1] == "operations" && r.Method == http.MethodGet:
		h.ListOperations(w, r, machineID)
	case parts[1] == "sequence" && r.Method == http.MethodPut:
		h.UpdateSequence(w, r, machineID)
	case parts[1] == "report.xlsx" && r.Method == http.MethodGet:
		h.ExportReport(w, r, machineID)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// ListOperations 机台工单列表（平板时间轴数据源，布局计算在前端）
func (h *MachineHandler) ListOperations(w http.ResponseWriter, r *http.Request, machineID string) {
	items, err := h.queries.ListMachineOperations(r.Context(), machineID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"machine_id": machineID,
		"items":      items,
	})
}

// UpdateSequence 主管批量排序（sequence=0 取消排序）
func (h *MachineHandler) UpdateSequence(w http.ResponseWriter, r *http.Request, machineID string) {
	op, ok := operatorFromReq(w, r)
	if !ok {
		return
	}

	var body struct {
		Entries []struct {
			OperationID int64 `json:"operation_id"`
			Sequence    int   `json:"sequence"`
		} `json:"entries"`
	}
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorBody{Code: string(service.CodeInvalidInput), Message: "invalid body"})
		return
	}

	entries := make([]repository.SequenceEntry, 0, len(body.Entries))
	for _, e := range body.Entries {
		entries = append(entries, repository.SequenceEntry{
			OperationID: e.OperationID,
			Sequence:    e.Sequence,
		})
	}

	err := h.sequences.UpdateSequences(r.Context(), service.SequenceUpdateRequest{
		MachineID: machineID,
		Operator:  op.ID,
		Role:      op.Role,
		Entries:   entries,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"machine_id": machineID,
		"updated":    len(entries),
	})
}

// ExportReport 班次报表 Excel 导出
func (h *MachineHandler) ExportReport(w http.ResponseWriter, r *http.Request, machineID string) {
	if _, ok := operatorFromReq(w, r); !ok {
		return
	}

	items, err := h.queries.ListMachineOperations(r.Context(), machineID)
	if err != nil {
		writeError(w, err)
		return
	}

	data, err := GenerateMachineReport(machineID, items)
	if err != nil {
		h.logger.Error("report generation failed", zap.String("machine_id", machineID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorBody{
			Code:    string(service.CodePersistence),
			Message: "internal server error",
		})
		return
	}

	filename := fmt.Sprintf("machine_%s_report_%s.xlsx", machineID, time.Now().Format("20060102"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
