package logger

import (
	"bytes"
	"context"
	"errors"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harakeishi/goport/pkg/types"
)

func newTestLogger(t *testing.T, buf *bytes.Buffer, cfg types.LogConfig) Logger {
	t.Helper()
	l, err := NewStructuredLoggerFactory(buf).Create(cfg)
	require.NoError(t, err)
	return l
}

// TestDetailedJSONIncludesFieldsAndRequestID は詳細モードでフィールドとリクエストIDが出力されることを確認します。
func TestDetailedJSONIncludesFieldsAndRequestID(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(t, &buf, types.LogConfig{Level: "debug", Format: "json", Detailed: true})

	ctx := WithRequestID(context.Background(), "req-1")
	l.WithField("scope", "test").Info(ctx, "ポート割り当て完了", types.Field{Key: "frontend", Value: 8080})

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))

	assert.Equal(t, "ポート割り当て完了", entry["msg"])
	assert.Equal(t, "goport", entry["component"])
	assert.Equal(t, "req-1", entry["request_id"])
	assert.Equal(t, "test", entry["scope"])
	assert.EqualValues(t, 8080, entry["frontend"])
}

// TestPlainModePrintsMessageOnly は非詳細モードではメッセージのみ出力されることを確認します。
func TestPlainModePrintsMessageOnly(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(t, &buf, types.LogConfig{Level: "info"})

	l.Info(context.Background(), "hello", types.Field{Key: "ignored", Value: true})
	assert.Equal(t, "hello\n", buf.String())
}

// TestLevelFilteringAndSetLevel はレベルによる抑制と実行時変更を確認します。
func TestLevelFilteringAndSetLevel(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(t, &buf, types.LogConfig{Level: "warn"})

	l.Info(context.Background(), "hidden")
	assert.Empty(t, buf.String())

	setter, ok := l.(LevelSetter)
	require.True(t, ok)
	setter.SetLevel("debug")

	l.WithError(errors.New("x")).Debug(context.Background(), "shown")
	assert.Equal(t, "shown\n", buf.String())
}

// TestRequestIDFromContext はリクエストIDの設定と取得を確認します。
func TestRequestIDFromContext(t *testing.T) {
	_, ok := RequestIDFromContext(context.Background())
	assert.False(t, ok)

	_, ok = RequestIDFromContext(WithRequestID(context.Background(), ""))
	assert.False(t, ok, "empty id is treated as unset")

	id, ok := RequestIDFromContext(WithRequestID(context.Background(), "req-1"))
	assert.True(t, ok)
	assert.Equal(t, "req-1", id)
}
