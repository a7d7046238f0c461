// Package watcher は、設定ファイルの変更を監視して実行中のプロセスに反映する機能を提供します。
package watcher

import (
	"context"

	"github.com/harakeishi/goport/pkg/types"
)

// ConfigChangeHandler は新しい設定を受け取って反映する関数です。
type ConfigChangeHandler func(ctx context.Context, config *types.AppConfig) error

// DenylistSetter は拒否リストを差し替えられる対象です。
type DenylistSetter interface {
	SetDenylist(ports []int)
}

// LevelSetter はログレベルを変更できる対象です。
type LevelSetter interface {
	SetLevel(level string)
}

// ConfigValidator は再読み込みした設定を検証するインターフェースです。
type ConfigValidator interface {
	Validate(ctx context.Context, config *types.AppConfig) error
}
