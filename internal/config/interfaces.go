// Package config は、goport アプリケーションの設定管理機能を提供します。
package config

import (
	"context"

	"github.com/harakeishi/goport/pkg/types"
)

// ConfigLoader は設定ファイルの読み込みを行うインターフェースです。
type ConfigLoader interface {
	Load(ctx context.Context, path string) (*types.AppConfig, error)
	LoadFromBytes(ctx context.Context, data []byte) (*types.AppConfig, error)
	LoadDefaults(ctx context.Context) *types.AppConfig
}

// ConfigValidator は設定の妥当性を検証するインターフェースです。
type ConfigValidator interface {
	Validate(ctx context.Context, config *types.AppConfig) error
	ValidateAllocator(ctx context.Context, config types.AllocatorConfig) error
	ValidateServer(ctx context.Context, config types.ServerConfig) error
	ValidateLog(ctx context.Context, config types.LogConfig) error
}

// ConfigManager は設定管理の統合インターフェースです。
type ConfigManager interface {
	Load(ctx context.Context, path string) (*types.AppConfig, error)
	LoadWithDefaults(ctx context.Context, path string) (*types.AppConfig, error)
	Validate(ctx context.Context, config *types.AppConfig) error
	Save(ctx context.Context, config *types.AppConfig, path string) error
}

var (
	_ ConfigLoader    = (*Manager)(nil)
	_ ConfigValidator = (*Manager)(nil)
	_ ConfigManager   = (*Manager)(nil)
)
