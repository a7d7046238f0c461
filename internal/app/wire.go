//go:build wireinject
// +build wireinject

package app

import (
	"github.com/google/wire"

	"github.com/harakeishi/goport/internal/logger"
	"github.com/harakeishi/goport/pkg/types"
)

// InitializeApplication は設定とロガーから Application を組み立てます。
func InitializeApplication(cfg *types.AppConfig, log logger.Logger) (*Application, error) {
	wire.Build(ProviderSet)
	return nil, nil
}
