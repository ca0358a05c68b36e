package httpapi

import (
	"net/http"

	"jobcenter/internal/service"

	"go.uber.org/zap"
)

// NotificationHandler 告警 UI 的通知轮询
type NotificationHandler struct {
	queries *service.OperationQueryService
	logger  *zap.Logger
}

func NewNotificationHandler(queries *service.OperationQueryService, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{queries: queries, logger: logger}
}

// List 通知列表；target 缺省为 -1（全部），0 只看广播
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	if _, ok := operatorFromReq(w, r); !ok {
		return
	}

	target := parseInt(r.URL.Query().Get("target"), -1)
	limit := parseInt(r.URL.Query().Get("limit"), 20)

	items, err := h.queries.ListNotifications(r.Context(), target, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}
