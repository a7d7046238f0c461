package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/harakeishi/goport/pkg/types"
)

// StructuredLogger は構造化ログの実装です。
type StructuredLogger struct {
	logger   *slog.Logger
	level    *slog.LevelVar
	out      io.Writer
	fields   []types.Field
	err      error
	detailed bool
}

// StructuredLoggerFactory は構造化ログのファクトリです。
type StructuredLoggerFactory struct {
	output io.Writer
}

// NewStructuredLoggerFactory は新しいファクトリを作成します。
// output が nil の場合は標準エラー出力に書き込みます。
func NewStructuredLoggerFactory(output io.Writer) *StructuredLoggerFactory {
	if output == nil {
		output = os.Stderr
	}
	return &StructuredLoggerFactory{output: output}
}

// Create は設定に基づいてロガーを作成します。
func (f *StructuredLoggerFactory) Create(config types.LogConfig) (Logger, error) {
	return f.CreateWithName("goport", config)
}

// CreateWithName は名前付きロガーを作成します。
// config.Detailed が false の場合、出力はメッセージのみとなります。
func (f *StructuredLoggerFactory) CreateWithName(name string, config types.LogConfig) (Logger, error) {
	output := f.output

	if config.File != "" {
		file, err := os.OpenFile(config.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("ログファイルのオープンに失敗しました: %w", err)
		}
		output = file
	}

	level := new(slog.LevelVar)
	level.Set(parseLogLevel(config.Level))

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if config.Format == "json" {
		handler = slog.NewJSONHandler(output, opts)
	} else {
		handler = slog.NewTextHandler(output, opts)
	}

	return &StructuredLogger{
		logger:   slog.New(handler).With("component", name),
		level:    level,
		out:      output,
		fields:   []types.Field{},
		detailed: config.Detailed,
	}, nil
}

// parseLogLevel は文字列からログレベルを解析します。
func parseLogLevel(levelStr string) slog.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetLevel は実行中にログレベルを変更します。派生ロガーにも反映されます。
func (l *StructuredLogger) SetLevel(level string) {
	l.level.Set(parseLogLevel(level))
}

// Debug はデバッグレベルのログを出力します。
func (l *StructuredLogger) Debug(ctx context.Context, message string, fields ...types.Field) {
	l.log(ctx, slog.LevelDebug, message, fields...)
}

// Info は情報レベルのログを出力します。
func (l *StructuredLogger) Info(ctx context.Context, message string, fields ...types.Field) {
	l.log(ctx, slog.LevelInfo, message, fields...)
}

// Warn は警告レベルのログを出力します。
func (l *StructuredLogger) Warn(ctx context.Context, message string, fields ...types.Field) {
	l.log(ctx, slog.LevelWarn, message, fields...)
}

// Error はエラーレベルのログを出力します。
func (l *StructuredLogger) Error(ctx context.Context, message string, err error, fields ...types.Field) {
	l.log(ctx, slog.LevelError, message, withErrorField(fields, err)...)
}

// Fatal は致命的エラーレベルのログを出力して終了します。
func (l *StructuredLogger) Fatal(ctx context.Context, message string, err error, fields ...types.Field) {
	l.log(ctx, slog.LevelError, message, withErrorField(fields, err)...)
	os.Exit(1)
}

func withErrorField(fields []types.Field, err error) []types.Field {
	if err == nil {
		return fields
	}
	all := make([]types.Field, 0, len(fields)+1)
	all = append(all, fields...)
	return append(all, types.Field{Key: "error", Value: err.Error()})
}

// WithField はフィールドを追加した新しいロガーを返します。
func (l *StructuredLogger) WithField(key string, value interface{}) Logger {
	return l.WithFields(types.Field{Key: key, Value: value})
}

// WithFields は複数のフィールドを追加した新しいロガーを返します。
func (l *StructuredLogger) WithFields(fields ...types.Field) Logger {
	newFields := make([]types.Field, len(l.fields)+len(fields))
	copy(newFields, l.fields)
	copy(newFields[len(l.fields):], fields)

	clone := *l
	clone.fields = newFields
	return &clone
}

// WithError はエラーを追加した新しいロガーを返します。
func (l *StructuredLogger) WithError(err error) Logger {
	clone := *l
	clone.err = err
	return &clone
}

// log は実際のログ出力を行います。
func (l *StructuredLogger) log(ctx context.Context, level slog.Level, message string, fields ...types.Field) {
	if !l.logger.Enabled(ctx, level) {
		return
	}

	if !l.detailed {
		fmt.Fprintln(l.out, message)
		return
	}

	attrs := make([]slog.Attr, 0, len(l.fields)+len(fields)+4)
	attrs = append(attrs, slog.Time("timestamp", time.Now()))

	if requestID, ok := RequestIDFromContext(ctx); ok {
		attrs = append(attrs, slog.String("request_id", requestID))
	}

	for _, field := range l.fields {
		attrs = append(attrs, slog.Any(field.Key, field.Value))
	}
	for _, field := range fields {
		attrs = append(attrs, slog.Any(field.Key, field.Value))
	}

	if l.err != nil {
		attrs = append(attrs, slog.String("error", l.err.Error()))
	}

	l.logger.LogAttrs(ctx, level, message, attrs...)
}
