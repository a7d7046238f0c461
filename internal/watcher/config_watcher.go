package watcher

import (
	"context"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/multierr"

	"github.com/harakeishi/goport/internal/config"
	"github.com/harakeishi/goport/internal/logger"
	"github.com/harakeishi/goport/pkg/types"
)

// ConfigWatcher は viper の設定ファイル監視を使い、変更をハンドラに通知します。
type ConfigWatcher struct {
	v         *viper.Viper
	validator ConfigValidator
	logger    logger.Logger

	mu       sync.Mutex
	handlers []ConfigChangeHandler
	applied  int
}

// NewConfigWatcher は新しい ConfigWatcher を作成します。
func NewConfigWatcher(v *viper.Viper, validator ConfigValidator, logger logger.Logger) *ConfigWatcher {
	return &ConfigWatcher{
		v:         v,
		validator: validator,
		logger:    logger,
	}
}

// OnChange は設定変更時に呼び出すハンドラを登録します。
func (w *ConfigWatcher) OnChange(handler ConfigChangeHandler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers = append(w.handlers, handler)
}

// Start は監視を開始します。設定ファイルが読み込まれていない場合は何もしません。
func (w *ConfigWatcher) Start(ctx context.Context) {
	if w.v.ConfigFileUsed() == "" {
		w.logger.Debug(ctx, "設定ファイルがないため監視を開始しません")
		return
	}

	w.v.OnConfigChange(func(event fsnotify.Event) {
		if err := w.Handle(ctx, event); err != nil {
			w.logger.Warn(ctx, "設定の再読み込みに失敗しました",
				types.Field{Key: "file", Value: event.Name},
				types.Field{Key: "error", Value: err.Error()})
		}
	})
	w.v.WatchConfig()

	w.logger.Info(ctx, "設定ファイルの監視を開始しました",
		types.Field{Key: "file", Value: w.v.ConfigFileUsed()})
}

// Handle は変更イベントを処理します。書き込みと作成以外のイベントは無視します。
// 検証に失敗した設定はハンドラに渡しません。
func (w *ConfigWatcher) Handle(ctx context.Context, event fsnotify.Event) error {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return nil
	}

	cfg, err := config.Decode(w.v)
	if err != nil {
		return err
	}
	if w.validator != nil {
		if err := w.validator.Validate(ctx, cfg); err != nil {
			return err
		}
	}

	w.mu.Lock()
	handlers := append([]ConfigChangeHandler(nil), w.handlers...)
	w.mu.Unlock()

	var errs error
	for _, h := range handlers {
		errs = multierr.Append(errs, h(ctx, cfg))
	}
	if errs != nil {
		return errs
	}

	w.mu.Lock()
	w.applied++
	w.mu.Unlock()

	w.logger.Info(ctx, "設定を再読み込みしました", types.Field{Key: "file", Value: event.Name})
	return nil
}

// Applied は反映に成功した回数を返します。
func (w *ConfigWatcher) Applied() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.applied
}

// DenylistHandler は拒否リストを差し替えるハンドラを返します。
func DenylistHandler(target DenylistSetter) ConfigChangeHandler {
	return func(ctx context.Context, config *types.AppConfig) error {
		target.SetDenylist(config.Allocator.Denylist)
		return nil
	}
}

// LogLevelHandler はログレベルを変更するハンドラを返します。
func LogLevelHandler(target LevelSetter) ConfigChangeHandler {
	return func(ctx context.Context, config *types.AppConfig) error {
		target.SetLevel(config.Log.Level)
		return nil
	}
}
