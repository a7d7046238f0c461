package scanner

import (
	"context"

	"github.com/harakeishi/goport/internal/errors"
	"github.com/harakeishi/goport/internal/logger"
	"github.com/harakeishi/goport/pkg/types"
)

// largeRangeThreshold を超える範囲の統計取得は警告を出します。
const largeRangeThreshold = 10000

// PortValidatorImpl はポート検証の実装です。
type PortValidatorImpl struct {
	logger logger.Logger
}

// NewPortValidatorImpl は新しいPortValidatorImplを作成します。
func NewPortValidatorImpl(logger logger.Logger) *PortValidatorImpl {
	return &PortValidatorImpl{
		logger: logger,
	}
}

// ValidatePort は単一ポートの妥当性を検証します。
func (v *PortValidatorImpl) ValidatePort(ctx context.Context, port int) error {
	if !types.IsValidPort(port) {
		return errors.NewInvalidPortError(port, "1-65535 の範囲で指定してください")
	}

	v.logger.Debug(ctx, "ポート検証成功", types.Field{Key: "port", Value: port})
	return nil
}

// ValidatePortRange はポート範囲の妥当性を検証します。
func (v *PortValidatorImpl) ValidatePortRange(ctx context.Context, portRange types.PortRange) error {
	if !types.IsValidPort(portRange.Start) {
		return errors.NewInvalidPortRangeError(portRange.Start, portRange.End, "開始ポートが無効です")
	}
	if !types.IsValidPort(portRange.End) {
		return errors.NewInvalidPortRangeError(portRange.Start, portRange.End, "終了ポートが無効です")
	}
	if portRange.Start > portRange.End {
		return errors.NewInvalidPortRangeError(portRange.Start, portRange.End, "開始ポートが終了ポートより大きいです")
	}

	if size := portRange.Size(); size > largeRangeThreshold {
		v.logger.Warn(ctx, "非常に大きなポート範囲が指定されています",
			types.Field{Key: "range_size", Value: size},
			types.Field{Key: "start_port", Value: portRange.Start},
			types.Field{Key: "end_port", Value: portRange.End})
	}

	return nil
}

// ValidateOptions は CLI から渡されたポート指定を検証します。
func (v *PortValidatorImpl) ValidateOptions(ctx context.Context, opts types.CLIOptions) error {
	if opts.Port != nil {
		if err := v.ValidatePort(ctx, *opts.Port); err != nil {
			return err
		}
		// バックエンドは port+1 になるため上限の一つ手前までしか指定できない
		if *opts.Port+1 > types.MaxPort {
			return errors.NewInvalidPortError(*opts.Port, "バックエンド用に次のポートが必要です")
		}
	}

	if opts.BackendPort != nil && opts.FrontendPort == nil {
		return errors.NewInvalidPortError(*opts.BackendPort, "--backend-port は --frontend-port と同時に指定してください")
	}

	if opts.FrontendPort != nil {
		if err := v.ValidatePort(ctx, *opts.FrontendPort); err != nil {
			return err
		}
		if opts.BackendPort == nil && *opts.FrontendPort+1 > types.MaxPort {
			return errors.NewInvalidPortError(*opts.FrontendPort, "バックエンド用に次のポートが必要です")
		}
	}

	if opts.BackendPort != nil {
		if err := v.ValidatePort(ctx, *opts.BackendPort); err != nil {
			return err
		}
		if *opts.BackendPort == *opts.FrontendPort {
			return errors.NewInvalidPortError(*opts.BackendPort, "フロントエンドとバックエンドに同じポートは指定できません")
		}
	}

	return nil
}
