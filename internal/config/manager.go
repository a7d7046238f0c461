package config

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/afero"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/harakeishi/goport/internal/errors"
	"github.com/harakeishi/goport/internal/logger"
	"github.com/harakeishi/goport/pkg/types"
)

const (
	// FileName は設定ファイルの既定のファイル名です。
	FileName = ".goport.yaml"
	// EnvPrefix は設定を上書きする環境変数の接頭辞です。
	EnvPrefix = "GOPORT"
)

// Manager は afero のファイルシステム上で設定の読み書きを行います。
type Manager struct {
	fs     afero.Fs
	logger logger.Logger
}

// NewManager は新しい Manager を作成します。fs が nil の場合は OS のファイルシステムを使います。
func NewManager(fs afero.Fs, logger logger.Logger) *Manager {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Manager{
		fs:     fs,
		logger: logger,
	}
}

// NewViper は既定値と環境変数のバインドを設定した viper インスタンスを返します。
// 環境変数は GOPORT_ALLOCATOR_PROBE_TIMEOUT のようにキーの "." を "_" に置き換えた名前です。
func NewViper(fs afero.Fs) *viper.Viper {
	v := viper.New()
	if fs != nil {
		v.SetFs(fs)
	}
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, DefaultConfig())
	return v
}

// setDefaults は viper に既定値を登録します。
// 登録されたキーのみが環境変数による上書きの対象になります。
// random_range は "8000-9000" 形式でも書けるよう、子キーを登録しません。
func setDefaults(v *viper.Viper, cfg *types.AppConfig) {
	a := cfg.Allocator
	v.SetDefault("allocator.probe_timeout", a.ProbeTimeout)
	v.SetDefault("allocator.cache_ttl", a.CacheTTL)
	v.SetDefault("allocator.max_attempts", a.MaxAttempts)
	v.SetDefault("allocator.random_attempts", a.RandomAttempts)
	v.SetDefault("allocator.denylist", a.Denylist)
	v.SetDefault("allocator.batch_concurrency", a.BatchConcurrency)
	v.SetDefault("allocator.ipv6_policy", string(a.IPv6Policy))

	v.SetDefault("server.host", cfg.Server.Host)
	v.SetDefault("server.shutdown_timeout", cfg.Server.ShutdownTimeout)

	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
	v.SetDefault("log.file", cfg.Log.File)
	v.SetDefault("log.detailed", cfg.Log.Detailed)
}

// DecodeHook は設定値のデコードに使うフックです。
func DecodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		stringToIntSliceHook(","),
		mapstructure.StringToSliceHookFunc(","),
		stringToPortRangeHook(),
	)
}

// stringToIntSliceHook は "7000,7001" 形式の文字列を []int に変換します。
// 環境変数で拒否リストを指定する場合に使われます。
func stringToIntSliceHook(sep string) mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if from.Kind() != reflect.String || to != reflect.TypeOf([]int{}) {
			return data, nil
		}

		raw := strings.TrimSpace(data.(string))
		if raw == "" {
			return []int{}, nil
		}
		parts := strings.Split(raw, sep)
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return cast.ToIntSliceE(parts)
	}
}

// stringToPortRangeHook は "8000-9000" 形式の文字列を PortRange に変換します。
func stringToPortRangeHook() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if from.Kind() != reflect.String || to != reflect.TypeOf(types.PortRange{}) {
			return data, nil
		}
		return types.ParsePortRange(data.(string))
	}
}

// Decode は viper の内容を既定値の上にデコードします。
func Decode(v *viper.Viper) (*types.AppConfig, error) {
	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg, viper.DecodeHook(DecodeHook())); err != nil {
		return nil, &errors.AppError{
			Code:    errors.ErrConfigLoadFailed,
			Message: "設定のデコードに失敗しました",
			Cause:   err,
		}
	}
	return cfg, nil
}

// Load は設定ファイルを読み込み、検証済みの設定を返します。
func (m *Manager) Load(ctx context.Context, path string) (*types.AppConfig, error) {
	exists, err := afero.Exists(m.fs, path)
	if err != nil {
		return nil, &errors.AppError{Code: errors.ErrConfigLoadFailed, Message: "設定ファイルを確認できません", Cause: err}
	}
	if !exists {
		return nil, &errors.AppError{
			Code:    errors.ErrConfigNotFound,
			Message: fmt.Sprintf("設定ファイルが見つかりません: %s", path),
			Fields:  map[string]interface{}{"path": path},
		}
	}

	v := NewViper(m.fs)
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, &errors.AppError{
			Code:    errors.ErrConfigLoadFailed,
			Message: fmt.Sprintf("設定ファイルの読み込みに失敗しました: %s", path),
			Cause:   err,
			Fields:  map[string]interface{}{"path": path},
		}
	}

	cfg, err := m.decodeAndValidate(ctx, v)
	if err != nil {
		return nil, err
	}

	m.logger.Debug(ctx, "設定ファイルを読み込みました", types.Field{Key: "path", Value: path})
	return cfg, nil
}

// LoadFromBytes は YAML のバイト列から設定を読み込みます。
func (m *Manager) LoadFromBytes(ctx context.Context, data []byte) (*types.AppConfig, error) {
	v := NewViper(m.fs)
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, &errors.AppError{
			Code:    errors.ErrConfigLoadFailed,
			Message: "設定の解析に失敗しました",
			Cause:   err,
		}
	}
	return m.decodeAndValidate(ctx, v)
}

// LoadDefaults はデフォルト設定を返します。
func (m *Manager) LoadDefaults(ctx context.Context) *types.AppConfig {
	return DefaultConfig()
}

// LoadWithDefaults は設定ファイルが存在すれば読み込み、なければデフォルト設定を返します。
func (m *Manager) LoadWithDefaults(ctx context.Context, path string) (*types.AppConfig, error) {
	if path == "" {
		return m.LoadDefaults(ctx), nil
	}

	cfg, err := m.Load(ctx, path)
	if errors.HasCode(err, errors.ErrConfigNotFound) {
		m.logger.Debug(ctx, "設定ファイルがないためデフォルト設定を使用します", types.Field{Key: "path", Value: path})
		return m.LoadDefaults(ctx), nil
	}
	return cfg, err
}

func (m *Manager) decodeAndValidate(ctx context.Context, v *viper.Viper) (*types.AppConfig, error) {
	cfg, err := Decode(v)
	if err != nil {
		return nil, err
	}
	if err := m.Validate(ctx, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Exists は設定ファイルが存在するかを返します。
func (m *Manager) Exists(path string) bool {
	exists, err := afero.Exists(m.fs, path)
	return err == nil && exists
}

// Save は設定を YAML として書き出します。
func (m *Manager) Save(ctx context.Context, config *types.AppConfig, path string) error {
	if err := m.Validate(ctx, config); err != nil {
		return err
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return &errors.AppError{Code: errors.ErrConfigSaveFailed, Message: "設定のシリアライズに失敗しました", Cause: err}
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := m.fs.MkdirAll(dir, 0755); err != nil {
			return &errors.AppError{Code: errors.ErrConfigSaveFailed, Message: "ディレクトリを作成できません", Cause: err}
		}
	}
	if err := afero.WriteFile(m.fs, path, data, 0644); err != nil {
		return &errors.AppError{
			Code:    errors.ErrConfigSaveFailed,
			Message: fmt.Sprintf("設定ファイルを書き込めません: %s", path),
			Cause:   err,
			Fields:  map[string]interface{}{"path": path},
		}
	}

	m.logger.Info(ctx, "設定ファイルを保存しました", types.Field{Key: "path", Value: path})
	return nil
}

// Validate は設定全体を検証します。問題はすべてまとめて返します。
func (m *Manager) Validate(ctx context.Context, config *types.AppConfig) error {
	err := multierr.Combine(
		m.ValidateAllocator(ctx, config.Allocator),
		m.ValidateServer(ctx, config.Server),
		m.ValidateLog(ctx, config.Log),
	)
	if err == nil {
		return nil
	}
	return &errors.AppError{
		Code:    errors.ErrConfigInvalid,
		Message: "設定の検証に失敗しました",
		Cause:   err,
		Fields:  map[string]interface{}{"issues": len(multierr.Errors(err))},
	}
}

// ValidateAllocator はアロケータ設定を検証します。
func (m *Manager) ValidateAllocator(ctx context.Context, config types.AllocatorConfig) error {
	var err error
	if config.ProbeTimeout <= 0 {
		err = multierr.Append(err, errors.NewConfigInvalidError("allocator.probe_timeout", config.ProbeTimeout))
	}
	if config.CacheTTL <= 0 {
		err = multierr.Append(err, errors.NewConfigInvalidError("allocator.cache_ttl", config.CacheTTL))
	}
	if config.MaxAttempts <= 0 {
		err = multierr.Append(err, errors.NewConfigInvalidError("allocator.max_attempts", config.MaxAttempts))
	}
	if config.RandomAttempts <= 0 {
		err = multierr.Append(err, errors.NewConfigInvalidError("allocator.random_attempts", config.RandomAttempts))
	}

	r := config.RandomRange
	if !types.IsValidPort(r.Start) || !types.IsValidPort(r.End) || r.Start >= r.End || r.Start < types.PrivilegedPortCeiling {
		err = multierr.Append(err, errors.NewConfigInvalidError("allocator.random_range", r.String()))
	}
	for _, port := range config.Denylist {
		if !types.IsValidPort(port) {
			err = multierr.Append(err, errors.NewConfigInvalidError("allocator.denylist", port))
		}
	}
	if config.BatchConcurrency <= 0 {
		err = multierr.Append(err, errors.NewConfigInvalidError("allocator.batch_concurrency", config.BatchConcurrency))
	}
	switch config.IPv6Policy {
	case types.IPv6PolicyStrict, types.IPv6PolicyLenient:
	default:
		err = multierr.Append(err, errors.NewConfigInvalidError("allocator.ipv6_policy", config.IPv6Policy))
	}
	return err
}

// ValidateServer はサーバ設定を検証します。
func (m *Manager) ValidateServer(ctx context.Context, config types.ServerConfig) error {
	var err error
	if config.Host == "" {
		err = multierr.Append(err, errors.NewConfigInvalidError("server.host", config.Host))
	}
	if config.ShutdownTimeout < 0 {
		err = multierr.Append(err, errors.NewConfigInvalidError("server.shutdown_timeout", config.ShutdownTimeout))
	}
	return err
}

// ValidateLog はログ設定を検証します。
func (m *Manager) ValidateLog(ctx context.Context, config types.LogConfig) error {
	var err error
	switch strings.ToLower(config.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		err = multierr.Append(err, errors.NewConfigInvalidError("log.level", config.Level))
	}
	switch config.Format {
	case "text", "json":
	default:
		err = multierr.Append(err, errors.NewConfigInvalidError("log.format", config.Format))
	}
	return err
}
