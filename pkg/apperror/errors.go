package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Code 错误类型
type Code string

const (
	CodeRateLimited  Code = "RATE_LIMITED"
	CodeNotFound     Code = "NOT_FOUND"
	CodeUnauthorized Code = "UNAUTHORIZED"
	CodeForbidden    Code = "FORBIDDEN"
	CodeBadRequest   Code = "BAD_REQUEST"
	CodeInternal     Code = "INTERNAL_ERROR"
)

var statusByCode = map[Code]int{
	CodeRateLimited:  http.StatusTooManyRequests,
	CodeNotFound:     http.StatusNotFound,
	CodeUnauthorized: http.StatusUnauthorized,
	CodeForbidden:    http.StatusForbidden,
	CodeBadRequest:   http.StatusBadRequest,
	CodeInternal:     http.StatusInternalServerError,
}

// Status 返回对应的 HTTP 状态码
func (c Code) Status() int {
	if s, ok := statusByCode[c]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// Error 业务错误，直接透传给调用方
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Status 返回 HTTP 状态码
func (e *Error) Status() int {
	return e.Code.Status()
}

func RateLimited() *Error {
	return &Error{Code: CodeRateLimited, Message: "too many requests"}
}

func NotFound(resource string) *Error {
	return &Error{Code: CodeNotFound, Message: resource + " not found"}
}

func Unauthorized(message string) *Error {
	if message == "" {
		message = "unauthorized"
	}
	return &Error{Code: CodeUnauthorized, Message: message}
}

func Forbidden(message string) *Error {
	if message == "" {
		message = "forbidden"
	}
	return &Error{Code: CodeForbidden, Message: message}
}

func BadRequest(message string) *Error {
	return &Error{Code: CodeBadRequest, Message: message}
}

func Internal(message string) *Error {
	return &Error{Code: CodeInternal, Message: message}
}

// As 从错误链中取出 *Error
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Is 判断错误链中是否包含指定类型的业务错误
func Is(err error, code Code) bool {
	e, ok := As(err)
	return ok && e.Code == code
}
