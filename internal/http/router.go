package httpapi

import (
	"net/http"

	"go.uber.org/zap"
)

// Router 使用标准库 http.ServeMux（避免引入第三方路由依赖）
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

// HandleHandler 支持 http.Handler 接口（用于 /metrics 等）
func (r *Router) HandleHandler(pattern string, h http.Handler) {
	r.mux.Handle(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterJobRoutes 注册工单动作/查询/机台路由
func (r *Router) RegisterJobRoutes(ops *OperationHandler, machines *MachineHandler, notifications *NotificationHandler) {
	// operations: /job/api/v1/operations/{id}/{action}
	r.HandleHandler(operationsPrefix, ops)

	// machines: /job/api/v1/machines/{id}/{operations|sequence|report.xlsx}
	r.HandleHandler(machinesPrefix, machines)

	// notifications poll
	r.Handle("/job/api/v1/notifications", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		notifications.List(w, req)
	})

	// liveness
	r.Handle("/job/api/v1/health", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	})
}
