package service

import (
	"errors"
	"fmt"

	"jobcenter/internal/domain"
)

// ErrorCode 动作处理错误类别
type ErrorCode string

const (
	CodeInvalidInput     ErrorCode = "invalid_input"
	CodeUnauthorized     ErrorCode = "unauthorized"
	CodeNotFound         ErrorCode = "not_found"
	CodeStatusConflict   ErrorCode = "status_conflict"
	CodeMissingField     ErrorCode = "missing_required_field"
	CodeValidationFailed ErrorCode = "validation_failed"
	CodePersistence      ErrorCode = "persistence_failure"
)

// ActionError 类型化业务错误
// 校验在任何写入之前完成，第一条违规即返回（不聚合）。
// Details 里逐字段给出原因，便于平板端渲染具体提示。
type ActionError struct {
	Code    ErrorCode
	Message string
	Details map[string]string
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// AsActionError errors.As 便捷封装
func AsActionError(err error) (*ActionError, bool) {
	var ae *ActionError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

func errInvalidInput(message string) *ActionError {
	return &ActionError{Code: CodeInvalidInput, Message: message}
}

func errUnauthorized() *ActionError {
	return &ActionError{Code: CodeUnauthorized, Message: "operator identity is required"}
}

func errNotFound(id int64) *ActionError {
	return &ActionError{Code: CodeNotFound, Message: fmt.Sprintf("operation %d not found", id)}
}

// errStatusConflict 报告当前状态名与期望状态名
func errStatusConflict(action domain.Action, current domain.OpStatus, expected string) *ActionError {
	return &ActionError{
		Code:    CodeStatusConflict,
		Message: fmt.Sprintf("%s not allowed: current status is %s, expected %s", action, current.Name(), expected),
		Details: map[string]string{
			"current":  current.Name(),
			"expected": expected,
		},
	}
}

func errMissingField(field string) *ActionError {
	return &ActionError{
		Code:    CodeMissingField,
		Message: fmt.Sprintf("%s is required", field),
		Details: map[string]string{field: "required"},
	}
}

func errValidationFailed(field, rule string) *ActionError {
	return &ActionError{
		Code:    CodeValidationFailed,
		Message: fmt.Sprintf("%s %s", field, rule),
		Details: map[string]string{field: rule},
	}
}

// errPersistence 存储失败统一对外呈现，不泄漏底层细节（细节只进日志）
func errPersistence() *ActionError {
	return &ActionError{Code: CodePersistence, Message: "internal server error"}
}
