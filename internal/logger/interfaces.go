// Package logger は、goport の構造化ログを提供します。
//
// すべてのロガーは types.Field でフィールドを受け取ります。
// コマンドごとに発行したリクエストIDはコンテキスト経由でログに付与されます。
package logger

import (
	"context"

	"github.com/harakeishi/goport/pkg/types"
)

// Logger はアロケータやコマンドが使うログ出力のインターフェースです。
// Error と Fatal は原因となったエラーを別引数で受け取ります。
type Logger interface {
	Debug(ctx context.Context, message string, fields ...types.Field)
	Info(ctx context.Context, message string, fields ...types.Field)
	Warn(ctx context.Context, message string, fields ...types.Field)
	Error(ctx context.Context, message string, err error, fields ...types.Field)
	Fatal(ctx context.Context, message string, err error, fields ...types.Field)

	WithField(key string, value interface{}) Logger
	WithFields(fields ...types.Field) Logger
	WithError(err error) Logger
}

// LevelSetter は実行中にログレベルを変更できるロガーです。
// 設定ファイルの再読み込み時に使われます。
type LevelSetter interface {
	SetLevel(level string)
}

// LoggerFactory は LogConfig からロガーを作成します。
type LoggerFactory interface {
	Create(config types.LogConfig) (Logger, error)
	CreateWithName(name string, config types.LogConfig) (Logger, error)
}

var (
	_ LoggerFactory = (*StructuredLoggerFactory)(nil)
	_ Logger        = (*StructuredLogger)(nil)
	_ LevelSetter   = (*StructuredLogger)(nil)
	_ Logger        = (*NopLogger)(nil)
)

type contextKey string

const requestIDKey contextKey = "request_id"

// WithRequestID はコマンド実行ごとのリクエストIDをコンテキストに設定します。
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext はコンテキストのリクエストIDを返します。
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(requestIDKey).(string)
	return id, ok && id != ""
}

// NopLogger は何も出力しないロガーです。テストや出力不要の組み立てで使います。
type NopLogger struct{}

// NewNopLogger は NopLogger を返します。
func NewNopLogger() Logger { return &NopLogger{} }

func (n *NopLogger) Debug(ctx context.Context, message string, fields ...types.Field)            {}
func (n *NopLogger) Info(ctx context.Context, message string, fields ...types.Field)             {}
func (n *NopLogger) Warn(ctx context.Context, message string, fields ...types.Field)             {}
func (n *NopLogger) Error(ctx context.Context, message string, err error, fields ...types.Field) {}
func (n *NopLogger) Fatal(ctx context.Context, message string, err error, fields ...types.Field) {}
func (n *NopLogger) WithField(key string, value interface{}) Logger                              { return n }
func (n *NopLogger) WithFields(fields ...types.Field) Logger                                     { return n }
func (n *NopLogger) WithError(err error) Logger                                                  { return n }
