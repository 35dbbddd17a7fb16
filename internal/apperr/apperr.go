package apperr

import (
	"errors"
	"fmt"
)

// Kind はエラーの分類。handler側でHTTPステータスに変換する。
type Kind int

const (
	KindValidation Kind = iota + 1
	KindNotFound
	KindConflict
	KindGateway
	KindConfiguration
	KindReconciliation
	KindUnauthorized
	KindForbidden
	KindInternal
)

// Error は機械可読なcodeと人間向けmessageを持つ。
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, code string, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Wrap は原因エラーを保持したまま分類する。
func Wrap(err error, kind Kind, code string, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message, Err: err}
}

func As(err error) (*Error, bool) {
	var ae *Error
	ok := errors.As(err, &ae)
	return ae, ok
}

// IsKind は分類の照合
func IsKind(err error, kind Kind) bool {
	ae, ok := As(err)
	return ok && ae.Kind == kind
}

func Validation(code string, message string) *Error {
	return New(KindValidation, code, message)
}

func NotFound(code string, message string) *Error {
	return New(KindNotFound, code, message)
}

func Conflict(code string, message string) *Error {
	return New(KindConflict, code, message)
}

func Gateway(code string, message string) *Error {
	return New(KindGateway, code, message)
}

func Configuration(code string, message string) *Error {
	return New(KindConfiguration, code, message)
}

// Reconciliation は「決済成功・在庫確保失敗」のような人手対応が必要なケース。
func Reconciliation(code string, message string) *Error {
	return New(KindReconciliation, code, message)
}

func Unauthorized(code string, message string) *Error {
	return New(KindUnauthorized, code, message)
}

func Forbidden(code string, message string) *Error {
	return New(KindForbidden, code, message)
}

func Internal(code string, message string) *Error {
	return New(KindInternal, code, message)
}
