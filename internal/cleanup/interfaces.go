// Package cleanup は、終了時に確保済みポートを解放する機能を提供します。
package cleanup

import (
	"context"
	"time"
)

// CleanupManager は解放対象の登録と実行を管理するインターフェースです。
type CleanupManager interface {
	RegisterTarget(ctx context.Context, target CleanupTarget) error
	UnregisterTarget(ctx context.Context, targetID string) error
	ExecuteCleanup(ctx context.Context, targetID string) error
	ExecuteAllCleanup(ctx context.Context) error
	ScheduleCleanup(ctx context.Context, targetID string, delay time.Duration) error
	ListTargets(ctx context.Context) []CleanupTarget
}

// PortReleaser は確保済みポートを解放できる対象です。
type PortReleaser interface {
	ReleasePort(port int)
}

// CleanupTarget は解放対象のポート群を表します。
type CleanupTarget struct {
	ID        string    `json:"id"`
	Ports     []int     `json:"ports"`
	CreatedAt time.Time `json:"created_at"`
}

var _ CleanupManager = (*Releaser)(nil)
