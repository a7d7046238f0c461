package config

import (
	"time"

	"github.com/harakeishi/goport/pkg/types"
)

// DefaultConfig はデフォルト設定を返します。
func DefaultConfig() *types.AppConfig {
	return &types.AppConfig{
		Allocator: DefaultAllocatorConfig(),
		Server:    DefaultServerConfig(),
		Log:       DefaultLogConfig(),
	}
}

// DefaultAllocatorConfig はデフォルトのアロケータ設定を返します。
func DefaultAllocatorConfig() types.AllocatorConfig {
	return types.AllocatorConfig{
		ProbeTimeout:   500 * time.Millisecond,
		CacheTTL:       5 * time.Second,
		MaxAttempts:    100,
		RandomAttempts: 10,
		RandomRange: types.PortRange{
			Start: 8000,
			End:   65535,
		},
		Denylist:         types.DefaultDenylist(),
		BatchConcurrency: 10,
		IPv6Policy:       types.IPv6PolicyStrict,
	}
}

// DefaultServerConfig はデフォルトのサーバ設定を返します。
func DefaultServerConfig() types.ServerConfig {
	return types.ServerConfig{
		Host:            "localhost",
		ShutdownTimeout: 5 * time.Second,
	}
}

// DefaultLogConfig はデフォルトのログ設定を返します。
func DefaultLogConfig() types.LogConfig {
	return types.LogConfig{
		Level:  "info",
		Format: "text",
		File:   "",
	}
}
