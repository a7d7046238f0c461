package types

// Field はログフィールドのキー・値ペアを表します。
type Field struct {
	Key   string      `json:"key"`
	Value interface{} `json:"value"`
}

// LogLevel はログレベルを表します。
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// Severity はエラーの重要度を表します。
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)
