package errors

import "strings"

// ErrorCode はエラーコードを表します。
type ErrorCode string

// ErrorCategory はエラーカテゴリを表します。
type ErrorCategory string

const (
	ErrorCategoryPort    ErrorCategory = "PORT"
	ErrorCategoryConfig  ErrorCategory = "CONFIG"
	ErrorCategoryServer  ErrorCategory = "SERVER"
	ErrorCategoryUnknown ErrorCategory = "UNKNOWN"
)

// ポート関連エラー
const (
	ErrPortInvalid      ErrorCode = "PORT_INVALID"
	ErrPortRangeInvalid ErrorCode = "PORT_RANGE_INVALID"
	ErrPortExhausted    ErrorCode = "PORT_EXHAUSTED"
	ErrPortUnavailable  ErrorCode = "PORT_UNAVAILABLE"
	ErrPortProbeFailed  ErrorCode = "PORT_PROBE_FAILED"
)

// 設定関連エラー
const (
	ErrConfigInvalid    ErrorCode = "CONFIG_INVALID"
	ErrConfigNotFound   ErrorCode = "CONFIG_NOT_FOUND"
	ErrConfigLoadFailed ErrorCode = "CONFIG_LOAD_FAILED"
	ErrConfigSaveFailed ErrorCode = "CONFIG_SAVE_FAILED"
)

// サーバ関連エラー
const (
	ErrServerBindFailed  ErrorCode = "SERVER_BIND_FAILED"
	ErrServerServeFailed ErrorCode = "SERVER_SERVE_FAILED"
)

// 汎用エラー
const (
	ErrUnknown          ErrorCode = "UNKNOWN"
	ErrInternalError    ErrorCode = "INTERNAL_ERROR"
	ErrValidationFailed ErrorCode = "VALIDATION_FAILED"
)

// Category はエラーコードのカテゴリを返します。
func (c ErrorCode) Category() ErrorCategory {
	prefix, _, _ := strings.Cut(string(c), "_")

	switch prefix {
	case "PORT":
		return ErrorCategoryPort
	case "CONFIG":
		return ErrorCategoryConfig
	case "SERVER":
		return ErrorCategoryServer
	default:
		return ErrorCategoryUnknown
	}
}

// String はエラーコードを文字列として返します。
func (c ErrorCode) String() string {
	return string(c)
}
