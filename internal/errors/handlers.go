package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
)

// ErrorHandler はエラーハンドリングのインターフェースです。
type ErrorHandler interface {
	Handle(ctx context.Context, err error) error
	ExitCode(err error) int
}

// 終了コード
const (
	ExitOK           = 0
	ExitFailure      = 1
	ExitInvalidInput = 2
	ExitExhausted    = 3
	ExitConfig       = 4
	ExitServer       = 5
)

// AppErrorHandler は具体的なエラーハンドラー実装です。
type AppErrorHandler struct{}

// NewAppErrorHandler は新しいエラーハンドラーを作成します。
func NewAppErrorHandler() *AppErrorHandler {
	return &AppErrorHandler{}
}

// Handle はエラーを処理します。
func (h *AppErrorHandler) Handle(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return err
	}

	return h.convertToAppError(err)
}

// ExitCode はエラーに対応するプロセス終了コードを返します。
func (h *AppErrorHandler) ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var appErr *AppError
	if !errors.As(err, &appErr) {
		return ExitFailure
	}

	switch appErr.Code {
	case ErrPortInvalid, ErrPortRangeInvalid, ErrValidationFailed:
		return ExitInvalidInput
	case ErrPortExhausted:
		return ExitExhausted
	}

	switch appErr.Code.Category() {
	case ErrorCategoryConfig:
		return ExitConfig
	case ErrorCategoryServer:
		return ExitServer
	default:
		return ExitFailure
	}
}

// convertToAppError は既知のエラーを AppError に変換します。
func (h *AppErrorHandler) convertToAppError(err error) *AppError {
	switch {
	case errors.Is(err, os.ErrNotExist):
		return &AppError{
			Code:    ErrConfigNotFound,
			Message: "ファイルが存在しません",
			Cause:   err,
		}
	case IsAddressInUse(err):
		return &AppError{
			Code:    ErrPortUnavailable,
			Message: "ポートが既に使用されています",
			Cause:   err,
		}
	case IsPermissionDenied(err):
		return &AppError{
			Code:    ErrServerBindFailed,
			Message: "ポートへのバインド権限がありません",
			Cause:   err,
		}
	default:
		return &AppError{
			Code:    ErrUnknown,
			Message: fmt.Sprintf("予期しないエラーが発生しました: %v", err),
			Cause:   err,
		}
	}
}

// IsAddressInUse はアドレス使用中エラーかどうかを判定します。
func IsAddressInUse(err error) bool {
	return errors.Is(err, syscall.EADDRINUSE)
}

// IsPermissionDenied は権限エラーかどうかを判定します。
func IsPermissionDenied(err error) bool {
	return errors.Is(err, syscall.EACCES) ||
		errors.Is(err, syscall.EPERM) ||
		errors.Is(err, os.ErrPermission)
}

// IsAddressFamilyUnsupported はアドレスファミリ自体が利用できないことを示すエラーかを判定します。
// IPv6 が無効化された環境で ::1 にバインドした場合などに返ります。
func IsAddressFamilyUnsupported(err error) bool {
	return errors.Is(err, syscall.EAFNOSUPPORT) ||
		errors.Is(err, syscall.EADDRNOTAVAIL) ||
		errors.Is(err, syscall.EPROTONOSUPPORT)
}

// IsTimeout はタイムアウトエラーかどうかを判定します。
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// 事前定義されたエラーのファクトリ関数

// NewInvalidPortError はポート番号不正エラーを作成します。
func NewInvalidPortError(port int, reason string) *AppError {
	return &AppError{
		Code:    ErrPortInvalid,
		Message: fmt.Sprintf("無効なポート番号です: %d (%s)", port, reason),
		Fields: map[string]interface{}{
			"port":   port,
			"reason": reason,
		},
	}
}

// NewInvalidPortRangeError はポート範囲不正エラーを作成します。
func NewInvalidPortRangeError(start, end int, reason string) *AppError {
	return &AppError{
		Code:    ErrPortRangeInvalid,
		Message: fmt.Sprintf("無効なポート範囲です: %d-%d (%s)", start, end, reason),
		Fields: map[string]interface{}{
			"start_port": start,
			"end_port":   end,
			"reason":     reason,
		},
	}
}

// NewPortExhaustedError は利用可能ポート枯渇エラーを作成します。
// 試行回数を含めることで、範囲の枯渇と試行回数不足を区別できます。
func NewPortExhaustedError(startPort, attempts int) *AppError {
	return &AppError{
		Code:    ErrPortExhausted,
		Message: fmt.Sprintf("ポート %d から %d 回試行しましたが利用可能なポートが見つかりません", startPort, attempts),
		Fields: map[string]interface{}{
			"start_port": startPort,
			"attempts":   attempts,
		},
	}
}

// NewConfigInvalidError は設定無効エラーを作成します。
func NewConfigInvalidError(field string, value interface{}) *AppError {
	return &AppError{
		Code:    ErrConfigInvalid,
		Message: fmt.Sprintf("設定が無効です: %s = %v", field, value),
		Fields: map[string]interface{}{
			"field": field,
			"value": value,
		},
	}
}

// NewServerBindError はリスナーのバインド失敗エラーを作成します。
func NewServerBindError(addr string, cause error) *AppError {
	return &AppError{
		Code:    ErrServerBindFailed,
		Message: fmt.Sprintf("%s へのバインドに失敗しました", addr),
		Cause:   cause,
		Fields:  map[string]interface{}{"addr": addr},
	}
}
