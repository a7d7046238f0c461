// Package errors は、goport アプリケーション用の構造化エラーハンドリングを提供します。
package errors

import (
	"errors"
	"fmt"

	"github.com/harakeishi/goport/pkg/types"
)

// AppError はアプリケーション固有のエラーを表します。
type AppError struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Cause   error                  `json:"cause,omitempty"`
	Fields  map[string]interface{} `json:"fields,omitempty"`
}

// Error は error インターフェースを実装します。
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap は原因エラーを返します。
func (e *AppError) Unwrap() error {
	return e.Cause
}

// GetSeverity はエラーの重要度を返します。
func (e *AppError) GetSeverity() types.Severity {
	switch e.Code {
	case ErrPortUnavailable:
		return types.SeverityWarning
	case ErrPortExhausted, ErrServerBindFailed:
		return types.SeverityCritical
	default:
		return types.SeverityError
	}
}

// WithField はエラーにフィールドを追加します。
func (e *AppError) WithField(key string, value interface{}) *AppError {
	if e.Fields == nil {
		e.Fields = make(map[string]interface{})
	}
	e.Fields[key] = value
	return e
}

// WithCause は原因エラーを設定します。
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// HasCode はエラーチェーン内に指定コードの AppError が含まれるかを返します。
func HasCode(err error, code ErrorCode) bool {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return false
	}
	return appErr.Code == code
}

// IsInvalidPort は InvalidPort エラーかどうかを返します。
func IsInvalidPort(err error) bool {
	return HasCode(err, ErrPortInvalid) || HasCode(err, ErrPortRangeInvalid)
}

// IsPortExhausted は PortExhausted エラーかどうかを返します。
func IsPortExhausted(err error) bool {
	return HasCode(err, ErrPortExhausted)
}
