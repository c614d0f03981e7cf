package apperr

import (
	"errors"
	"fmt"
)

// Kind 错误类别，决定 HTTP 状态码
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindAuth
	KindForbidden
	KindNotFound
	KindConflict
	KindState
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuth:
		return "auth"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindState:
		return "state"
	default:
		return "internal"
	}
}

// 通用错误码
const (
	CodeParamError   = 400
	CodeUnauthorized = 401
	CodeForbidden    = 403
	CodeNotFound     = 404
	CodeConflict     = 409
	CodeRateLimited  = 429
	CodeServerError  = 500
)

// 业务错误码
const (
	CodeOverpayment         = 1001
	CodeInvalidAmount       = 1002
	CodeInvalidKind         = 1003
	CodeMissingPayer        = 1004
	CodeMissingFiscalYear   = 1005
	CodeInvalidRole         = 1006
	CodeLoginRequired       = 1007
	CodeDuplicateLogin      = 1008
	CodeInvalidCredentials  = 1009
	CodeMemberNotFound      = 1010
	CodeTransactionNotFound = 1011
	CodeDonorNotFound       = 1012
	CodeIdentityNotFound    = 1013
	CodeExpenseNotPayable   = 1014
	CodeWrongEntryKind      = 1015
	CodeInvalidPaymentMode  = 1016
	CodeMissingCategory     = 1017
)

// Error 带类别和错误码的业务错误
type Error struct {
	Kind    Kind
	Code    int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, code int, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

func Validation(code int, msg string) *Error { return newError(KindValidation, code, msg) }
func Auth(code int, msg string) *Error       { return newError(KindAuth, code, msg) }
func Forbidden(msg string) *Error            { return newError(KindForbidden, CodeForbidden, msg) }
func NotFound(code int, msg string) *Error   { return newError(KindNotFound, code, msg) }
func Conflict(code int, msg string) *Error   { return newError(KindConflict, code, msg) }
func State(code int, msg string) *Error      { return newError(KindState, code, msg) }

// Internal 包装存储层等非预期错误
func Internal(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Code: CodeServerError, Message: msg, Err: err}
}

// From 提取错误链中的 *Error，非业务错误视为内部错误
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal("internal server error", err)
}

// IsKind 判断错误链中是否为指定类别
func IsKind(err error, kind Kind) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Kind == kind
}

// HasCode 判断错误链中是否为指定错误码
func HasCode(err error, code int) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Code == code
}
