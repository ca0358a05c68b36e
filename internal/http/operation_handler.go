package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"jobcenter/internal/service"

	"go.uber.org/zap"
)

// OperationHandler 工单动作与查询 Handler
// 路由形如 /job/api/v1/operations/{id}/{action}
type OperationHandler struct {
	actions *service.JobActionService
	queries *service.OperationQueryService
	logger  *zap.Logger
}

// NewOperationHandler 创建工单 Handler
func NewOperationHandler(actions *service.JobActionService, queries *service.OperationQueryService, logger *zap.Logger) *OperationHandler {
	return &OperationHandler{
		actions: actions,
		queries: queries,
		logger:  logger,
	}
}

const operationsPrefix = "/job/api/v1/operations/"

// ServeHTTP 实现 http.Handler 接口
func (h *OperationHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// 路由分发：{id}/{action}
	rest := strings.TrimPrefix(r.URL.Path, operationsPrefix)
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	// id 必须是正整数；解析失败按 400 报 invalid_input
	opID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || opID <= 0 {
		writeJSON(w, http.StatusBadRequest, ErrorBody{
			Code:    string(service.CodeInvalidInput),
			Message: "operation id must be a positive integer",
		})
		return
	}

	verb := parts[1]
	switch r.Method {
	case http.MethodGet:
		switch verb {
		case "snapshot":
			h.GetSnapshot(w, r, opID)
		case "status":
			h.GetStatus(w, r, opID)
		case "actions":
			h.ListActions(w, r, opID)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	case http.MethodPost:
		h.dispatchAction(w, r, opID, verb)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// ============================================
// 动作端点
// ============================================

func (h *OperationHandler) dispatchAction(w http.ResponseWriter, r *http.Request, opID int64, verb string) {
	op, ok := operatorFromReq(w, r)
	if !ok {
		return
	}

	switch verb {
	case "setup":
		h.Setup(w, r, opID, op)
	case "fpqc":
		h.SubmitFPQC(w, r, opID, op)
	case "pause":
		h.Pause(w, r, opID, op)
	case "resume":
		h.Resume(w, r, opID, op)
	case "breakdown":
		h.Breakdown(w, r, opID, op)
	case "complete":
		h.Complete(w, r, opID, op)
	case "qc-check":
		h.RequestQCCheck(w, r, opID, op)
	case "test":
		h.RecordTest(w, r, opID, op)
	case "alert":
		h.RaiseAlert(w, r, opID, op)
	case "contact":
		h.Contact(w, r, opID, op)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// writeActionResult 成功载荷：{operation_id, new_status, status_name, ...echo}
func writeActionResult(w http.ResponseWriter, result *service.ActionResult, echo map[string]any) {
	payload := map[string]any{
		"operation_id": result.OperationID,
		"new_status":   result.NewStatus,
		"status_name":  result.StatusName,
	}
	if result.HoldFlag != 0 {
		payload["hold_flag"] = result.HoldFlag
	}
	for k, v := range echo {
		payload[k] = v
	}
	writeJSON(w, http.StatusOK, payload)
}

func (h *OperationHandler) Setup(w http.ResponseWriter, r *http.Request, opID int64, op Operator) {
	var body struct {
		Message string `json:"message"`
		Remarks string `json:"remarks"`
	}
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorBody{Code: string(service.CodeInvalidInput), Message: "invalid body"})
		return
	}

	result, err := h.actions.Setup(r.Context(), service.SetupRequest{
		OperationID: opID,
		Operator:    op.ID,
		Message:     body.Message,
		Remarks:     body.Remarks,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeActionResult(w, result, map[string]any{"message": body.Message, "remarks": body.Remarks})
}

func (h *OperationHandler) SubmitFPQC(w http.ResponseWriter, r *http.Request, opID int64, op Operator) {
	var body struct {
		ActualQty int `json:"actual_qty"`
	}
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorBody{Code: string(service.CodeInvalidInput), Message: "invalid body"})
		return
	}

	result, err := h.actions.SubmitFPQC(r.Context(), service.FPQCRequest{
		OperationID: opID,
		Operator:    op.ID,
		ActualQty:   body.ActualQty,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeActionResult(w, result, map[string]any{"actual_qty": body.ActualQty})
}

func (h *OperationHandler) Pause(w http.ResponseWriter, r *http.Request, opID int64, op Operator) {
	var body struct {
		Reason string `json:"reason"`
	}
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorBody{Code: string(service.CodeInvalidInput), Message: "invalid body"})
		return
	}

	result, err := h.actions.Pause(r.Context(), service.PauseRequest{
		OperationID: opID,
		Operator:    op.ID,
		Reason:      body.Reason,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeActionResult(w, result, map[string]any{"reason": body.Reason})
}

func (h *OperationHandler) Resume(w http.ResponseWriter, r *http.Request, opID int64, op Operator) {
	var body struct {
		Remarks string `json:"remarks"`
	}
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorBody{Code: string(service.CodeInvalidInput), Message: "invalid body"})
		return
	}

	result, err := h.actions.Resume(r.Context(), service.ResumeRequest{
		OperationID: opID,
		Operator:    op.ID,
		Remarks:     body.Remarks,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeActionResult(w, result, map[string]any{"remarks": body.Remarks})
}

func (h *OperationHandler) Breakdown(w http.ResponseWriter, r *http.Request, opID int64, op Operator) {
	var body struct {
		Remarks string `json:"remarks"`
	}
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorBody{Code: string(service.CodeInvalidInput), Message: "invalid body"})
		return
	}

	result, err := h.actions.Breakdown(r.Context(), service.BreakdownRequest{
		OperationID: opID,
		Operator:    op.ID,
		Remarks:     body.Remarks,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeActionResult(w, result, map[string]any{"remarks": body.Remarks})
}

func (h *OperationHandler) Complete(w http.ResponseWriter, r *http.Request, opID int64, op Operator) {
	var body struct {
		FinalQty  int `json:"final_qty"`
		RejectQty int `json:"reject_qty"`
	}
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorBody{Code: string(service.CodeInvalidInput), Message: "invalid body"})
		return
	}

	result, err := h.actions.Complete(r.Context(), service.CompleteRequest{
		OperationID: opID,
		Operator:    op.ID,
		FinalQty:    body.FinalQty,
		RejectQty:   body.RejectQty,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeActionResult(w, result, map[string]any{"final_qty": body.FinalQty, "reject_qty": body.RejectQty})
}

func (h *OperationHandler) RequestQCCheck(w http.ResponseWriter, r *http.Request, opID int64, op Operator) {
	var body struct {
		Message string `json:"message"`
	}
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorBody{Code: string(service.CodeInvalidInput), Message: "invalid body"})
		return
	}

	result, err := h.actions.RequestQCCheck(r.Context(), service.QCCheckRequest{
		OperationID: opID,
		Operator:    op.ID,
		Message:     body.Message,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeActionResult(w, result, map[string]any{"message": body.Message})
}

func (h *OperationHandler) RecordTest(w http.ResponseWriter, r *http.Request, opID int64, op Operator) {
	var body struct {
		TestType string `json:"test_type"`
		Unit     string `json:"unit"`
		Result   string `json:"result"`
		Remarks  string `json:"remarks"`
	}
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorBody{Code: string(service.CodeInvalidInput), Message: "invalid body"})
		return
	}

	result, err := h.actions.RecordTest(r.Context(), service.TestRequest{
		OperationID: opID,
		Operator:    op.ID,
		TestType:    body.TestType,
		Unit:        body.Unit,
		Result:      body.Result,
		Remarks:     body.Remarks,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeActionResult(w, result, map[string]any{"test_type": body.TestType, "result": body.Result})
}

func (h *OperationHandler) RaiseAlert(w http.ResponseWriter, r *http.Request, opID int64, op Operator) {
	var body struct {
		AlertType   string `json:"alert_type"`
		Severity    string `json:"severity"`
		Description string `json:"description"`
	}
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorBody{Code: string(service.CodeInvalidInput), Message: "invalid body"})
		return
	}

	result, err := h.actions.RaiseAlert(r.Context(), service.AlertRequest{
		OperationID: opID,
		Operator:    op.ID,
		AlertType:   body.AlertType,
		Severity:    body.Severity,
		Description: body.Description,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeActionResult(w, result, map[string]any{"alert_type": body.AlertType})
}

func (h *OperationHandler) Contact(w http.ResponseWriter, r *http.Request, opID int64, op Operator) {
	var body struct {
		TargetRole string `json:"target_role"`
		Message    string `json:"message"`
		Urgency    string `json:"urgency"`
	}
	if err := readBodyJSON(r, 1<<20, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorBody{Code: string(service.CodeInvalidInput), Message: "invalid body"})
		return
	}

	result, err := h.actions.Contact(r.Context(), service.ContactRequest{
		OperationID: opID,
		Operator:    op.ID,
		TargetRole:  body.TargetRole,
		Message:     body.Message,
		Urgency:     body.Urgency,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeActionResult(w, result, map[string]any{"target_role": body.TargetRole})
}

// ============================================
// 查询端点
// ============================================

// GetSnapshot 工单快照（状态 + 数量 + 最近审计流水）
func (h *OperationHandler) GetSnapshot(w http.ResponseWriter, r *http.Request, opID int64) {
	snap, err := h.queries.GetOperationSnapshot(r.Context(), opID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// GetStatus 轻量状态轮询
func (h *OperationHandler) GetStatus(w http.ResponseWriter, r *http.Request, opID int64) {
	status, err := h.queries.GetCurrentStatus(r.Context(), opID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"operation_id": opID,
		"status":       status,
		"status_name":  status.Name(),
	})
}

// ListActions 审计流水（"最近动作"面板）
func (h *OperationHandler) ListActions(w http.ResponseWriter, r *http.Request, opID int64) {
	limit := parseInt(r.URL.Query().Get("limit"), 10)
	items, err := h.queries.ListActions(r.Context(), opID, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}
