package httpapi

import (
	"net/http"

	"jobcenter/internal/service"
)

// ErrorBody 错误响应体，details 逐字段给出原因，平板端据此渲染具体提示
type ErrorBody struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// statusForCode 业务错误类别 → HTTP 状态码
// 约定：200 成功 / 400 缺字段或格式错 / 401 未认证 / 404 不存在 /
// 409 状态冲突 / 422 业务校验失败 / 500 存储或服务错误
func statusForCode(code service.ErrorCode) int {
	switch code {
	case service.CodeInvalidInput, service.CodeMissingField:
		return http.StatusBadRequest
	case service.CodeUnauthorized:
		return http.StatusUnauthorized
	case service.CodeNotFound:
		return http.StatusNotFound
	case service.CodeStatusConflict:
		return http.StatusConflict
	case service.CodeValidationFailed:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// writeError 类型化业务错误统一出口；未知错误一律按存储错误呈现
func writeError(w http.ResponseWriter, err error) {
	ae, ok := service.AsActionError(err)
	if !ok {
		ae = &service.ActionError{Code: service.CodePersistence, Message: "internal server error"}
	}
	writeJSON(w, statusForCode(ae.Code), ErrorBody{
		Code:    string(ae.Code),
		Message: ae.Message,
		Details: ae.Details,
	})
}
