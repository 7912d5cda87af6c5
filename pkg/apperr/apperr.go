// Package apperr 定义跨层使用的业务错误类型，handler 层据此映射 HTTP 状态码.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// 错误码.
const (
	CodeNotFound            = "NOT_FOUND"
	CodeConflict            = "CONFLICT"
	CodeValidation          = "VALIDATION_ERROR"
	CodeForbidden           = "FORBIDDEN"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeUpstreamUnavailable = "UPSTREAM_UNAVAILABLE"
	CodeTooManyRequests     = "TOO_MANY_REQUESTS"
	CodeInternal            = "INTERNAL_ERROR"
)

// AppError 业务错误.
type AppError struct {
	Code    string
	Message string
	Status  int
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}

	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(code string, message string, status int, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     err,
	}
}

// NotFound 资源不存在或不属于调用方，两者对调用方不可区分.
func NotFound(resource string, err error) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound, err)
}

func Conflict(message string, err error) *AppError {
	return New(CodeConflict, message, http.StatusConflict, err)
}

func Validation(message string, err error) *AppError {
	return New(CodeValidation, message, http.StatusBadRequest, err)
}

func Forbidden(message string, err error) *AppError {
	return New(CodeForbidden, message, http.StatusForbidden, err)
}

func Unauthorized(message string, err error) *AppError {
	return New(CodeUnauthorized, message, http.StatusUnauthorized, err)
}

// UpstreamUnavailable 外部依赖（AI 识别、对象存储）超时或失败.
func UpstreamUnavailable(message string, err error) *AppError {
	return New(CodeUpstreamUnavailable, message, http.StatusServiceUnavailable, err)
}

func TooManyRequests(message string) *AppError {
	return New(CodeTooManyRequests, message, http.StatusTooManyRequests, nil)
}

func Internal(message string, err error) *AppError {
	return New(CodeInternal, message, http.StatusInternalServerError, err)
}

// Is 判断 err 链上是否存在指定错误码的 AppError.
func Is(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}

	return false
}

// From 把任意错误转换为 AppError，未知错误视为内部错误.
func From(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	return Internal("internal error", err)
}
