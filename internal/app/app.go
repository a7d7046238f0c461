// Package app は、アプリケーション層の依存関係の組み立てを提供します。
package app

import (
	"github.com/google/wire"

	"github.com/harakeishi/goport/internal/cleanup"
	"github.com/harakeishi/goport/internal/errors"
	"github.com/harakeishi/goport/internal/logger"
	"github.com/harakeishi/goport/internal/resolver"
	"github.com/harakeishi/goport/internal/scanner"
	"github.com/harakeishi/goport/pkg/types"
)

// Application はコマンドが利用するサービスの集合です。
// プロセス内でアロケータは一つだけ作成されます。
type Application struct {
	Config       *types.AppConfig
	Logger       logger.Logger
	Validator    *scanner.PortValidatorImpl
	Allocator    *resolver.Allocator
	Cleanup      *cleanup.Releaser
	ErrorHandler *errors.AppErrorHandler
}

// ProviderSet はアプリケーションのプロバイダ一覧です。
var ProviderSet = wire.NewSet(
	ProvideAllocatorConfig,
	ProvideProber,
	wire.Bind(new(scanner.Prober), new(*scanner.NetProber)),
	ProvideProbeCache,
	scanner.NewPortValidatorImpl,
	ProvideAllocator,
	wire.Bind(new(cleanup.PortReleaser), new(*resolver.Allocator)),
	cleanup.NewReleaser,
	errors.NewAppErrorHandler,
	wire.Struct(new(Application), "*"),
)

// ProvideAllocatorConfig はアロケータ設定を取り出します。
func ProvideAllocatorConfig(cfg *types.AppConfig) types.AllocatorConfig {
	return cfg.Allocator
}

// ProvideProber は設定のタイムアウトでプローブを作成します。
func ProvideProber(cfg types.AllocatorConfig, log logger.Logger) *scanner.NetProber {
	return scanner.NewNetProber(cfg.ProbeTimeout, log)
}

// ProvideProbeCache は設定の有効期間でキャッシュを作成します。
func ProvideProbeCache(cfg types.AllocatorConfig) *scanner.ProbeCache {
	return scanner.NewProbeCache(cfg.CacheTTL)
}

// ProvideAllocator はアロケータを作成します。
func ProvideAllocator(prober scanner.Prober, cache *scanner.ProbeCache, log logger.Logger, cfg types.AllocatorConfig) *resolver.Allocator {
	return resolver.NewAllocator(prober, cache, log, cfg)
}
