// Package resolver は、フロントエンド/バックエンドのポートペアを割り当てるアロケータを提供します。
package resolver

import (
	"context"

	"github.com/harakeishi/goport/pkg/types"
)

// AvailabilityChecker はポートの空き状況を確認するインターフェースです。
type AvailabilityChecker interface {
	IsPortAvailable(ctx context.Context, port int, host ...string) bool
	CheckPortInUse(ctx context.Context, port int, host string) bool
}

// PortFinder は空きポートの探索を行うインターフェースです。
type PortFinder interface {
	FindAvailablePort(ctx context.Context, startPort int) (int, error)
	GetRandomAvailablePort(ctx context.Context, lo, hi int) (int, error)
	FindMultipleAvailablePorts(ctx context.Context, count, startPort int) ([]int, error)
}

// PortRegistry はプロセス内で確保済みのポートを管理するインターフェースです。
type PortRegistry interface {
	MarkPortAsUsed(port int)
	ReleasePort(port int)
	IsClaimed(port int) bool
	ClaimedPorts() []int
}

// Diagnostics は診断用の統計とヘルスチェックを提供するインターフェースです。
type Diagnostics interface {
	CheckMultiplePortsAvailability(ctx context.Context, ports []int, concurrency int) []types.PortAvailability
	GetPortUsageStats(ctx context.Context, portRange types.PortRange, concurrency int) (types.PortUsageStats, error)
	UsageStats() types.UsageStats
	HealthCheck(ctx context.Context) types.HealthStatus
}

// PortAllocator はポート割り当ての統合インターフェースです。
type PortAllocator interface {
	AvailabilityChecker
	PortFinder
	PortRegistry
	Diagnostics
	DetectPorts(ctx context.Context, opts types.CLIOptions) (types.PortConfiguration, error)
	SetDenylist(ports []int)
	Denylist() []int
	ClearCache()
}

var _ PortAllocator = (*Allocator)(nil)
