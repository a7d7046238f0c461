package resolver

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/multierr"

	"github.com/harakeishi/goport/internal/errors"
	"github.com/harakeishi/goport/internal/scanner"
	"github.com/harakeishi/goport/pkg/types"
)

type indexedAvailability struct {
	index        int
	availability types.PortAvailability
}

// CheckMultiplePortsAvailability は複数ポートを並行して確認します。
// 同時に実行されるプローブは concurrency 個までで、結果は入力順に並びます。
func (a *Allocator) CheckMultiplePortsAvailability(ctx context.Context, ports []int, concurrency int) []types.PortAvailability {
	if len(ports) == 0 {
		return []types.PortAvailability{}
	}
	if concurrency <= 0 {
		concurrency = a.cfg.BatchConcurrency
	}

	p := pool.NewWithResults[indexedAvailability]().WithMaxGoroutines(concurrency)
	for i, port := range ports {
		p.Go(func() indexedAvailability {
			return indexedAvailability{
				index: i,
				availability: types.PortAvailability{
					Port:      port,
					Available: a.IsPortAvailable(ctx, port),
					Claimed:   a.IsClaimed(port),
				},
			}
		})
	}

	results := make([]types.PortAvailability, len(ports))
	for _, r := range p.Wait() {
		results[r.index] = r.availability
	}
	return results
}

// FindMultipleAvailablePorts は startPort から重複しない空きポートを count 個探します。
// 見つけたポートは確保しません。
func (a *Allocator) FindMultipleAvailablePorts(ctx context.Context, count, startPort int) ([]int, error) {
	ports := make([]int, 0, max(count, 0))
	next := startPort
	for len(ports) < count {
		if next > types.MaxPort {
			return ports, errors.NewPortExhaustedError(startPort, len(ports))
		}
		port, err := a.FindAvailablePort(ctx, next)
		if err != nil {
			return ports, err
		}
		ports = append(ports, port)
		next = port + 1
	}

	a.logger.Debug(ctx, "複数ポート探索完了",
		types.Field{Key: "count", Value: count},
		types.Field{Key: "ports", Value: ports})
	return ports, nil
}

// GetPortUsageStats は範囲内のポートの使用状況を集計します。
func (a *Allocator) GetPortUsageStats(ctx context.Context, portRange types.PortRange, concurrency int) (types.PortUsageStats, error) {
	if err := a.validator.ValidatePortRange(ctx, portRange); err != nil {
		return types.PortUsageStats{}, err
	}

	started := time.Now()
	ports := make([]int, 0, portRange.Size())
	for port := portRange.Start; port <= portRange.End; port++ {
		ports = append(ports, port)
	}

	stats := types.PortUsageStats{
		Range:      portRange,
		Total:      len(ports),
		InUsePorts: []int{},
	}
	for _, result := range a.CheckMultiplePortsAvailability(ctx, ports, concurrency) {
		switch {
		case result.Available:
			stats.Available++
		case result.Port < types.PrivilegedPortCeiling:
			stats.Privileged++
		case result.Claimed:
			stats.Claimed++
		default:
			stats.InUsePorts = append(stats.InUsePorts, result.Port)
		}
	}
	stats.Unavailable = stats.Total - stats.Available
	stats.ScanMillis = time.Since(started).Milliseconds()

	a.logger.Info(ctx, "ポート使用状況の集計完了",
		types.Field{Key: "start_port", Value: portRange.Start},
		types.Field{Key: "end_port", Value: portRange.End},
		types.Field{Key: "available", Value: stats.Available},
		types.Field{Key: "in_use", Value: len(stats.InUsePorts)})
	return stats, nil
}

// UsageStats はアロケータの内部状態の統計を返します。
func (a *Allocator) UsageStats() types.UsageStats {
	claimed := a.ClaimedPorts()
	return types.UsageStats{
		ClaimedPorts: claimed,
		ClaimedCount: len(claimed),
		CacheEntries: a.cache.Len(),
		Probes:       a.probes.Load(),
		CacheHits:    a.cacheHits.Load(),
		CacheMisses:  a.cacheMisses.Load(),
		Allocations:  a.allocations.Load(),
		Fallbacks:    a.fallbacks.Load(),
	}
}

// HealthCheck はプローブとレジストリが正しく動作しているかを確認します。
// 空きポートが空きと判定されること、使用中のポートが使用中と判定されること、
// レジストリに特権ポートが含まれないことを確認します。
func (a *Allocator) HealthCheck(ctx context.Context) types.HealthStatus {
	var issues error
	status := types.HealthStatus{}

	record := func(name string, err error, detail string) {
		check := types.HealthCheck{Name: name, Passed: err == nil, Detail: detail}
		if err != nil {
			check.Detail = err.Error()
			issues = multierr.Append(issues, fmt.Errorf("%s: %w", name, err))
		}
		status.Checks = append(status.Checks, check)
	}

	port, err := a.checkFreeProbe(ctx)
	record("probe_free", err, fmt.Sprintf("port %d", port))

	port, err = a.checkBusyProbe(ctx)
	record("probe_busy", err, fmt.Sprintf("port %d", port))

	claimed := a.ClaimedPorts()
	record("registry", checkRegistry(claimed), fmt.Sprintf("%d claimed", len(claimed)))

	status.IPv6Supported = ipv6Supported()
	status.Stats = a.UsageStats()
	status.Healthy = issues == nil
	for _, e := range multierr.Errors(issues) {
		status.Issues = append(status.Issues, e.Error())
	}

	if status.Healthy {
		a.logger.Debug(ctx, "ヘルスチェック成功")
	} else {
		a.logger.Warn(ctx, "ヘルスチェックで問題が見つかりました",
			types.Field{Key: "issues", Value: status.Issues})
	}
	return status
}

// checkFreeProbe は OS が割り当てた直後に解放したポートが空きと判定されるかを確認します。
func (a *Allocator) checkFreeProbe(ctx context.Context) (int, error) {
	ln, err := net.Listen("tcp", net.JoinHostPort(scanner.IPv4Loopback, "0"))
	if err != nil {
		return 0, fmt.Errorf("一時リスナーを作成できません: %w", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	if err := ln.Close(); err != nil {
		return port, err
	}

	if outcome := a.probe(ctx, scanner.IPv4Loopback, port); !outcome.Available() {
		return port, fmt.Errorf("空きポート %d が %s と判定されました", port, outcome.Result)
	}
	return port, nil
}

// checkBusyProbe は使用中のポートが使用中と判定されるかを確認します。
func (a *Allocator) checkBusyProbe(ctx context.Context) (int, error) {
	ln, err := net.Listen("tcp", net.JoinHostPort(scanner.IPv4Loopback, "0"))
	if err != nil {
		return 0, fmt.Errorf("一時リスナーを作成できません: %w", err)
	}
	defer ln.Close()
	port := ln.Addr().(*net.TCPAddr).Port

	if outcome := a.probe(ctx, scanner.IPv4Loopback, port); outcome.Result != scanner.ProbeBusy {
		return port, fmt.Errorf("使用中のポート %d が %s と判定されました", port, outcome.Result)
	}
	return port, nil
}

func checkRegistry(claimed []int) error {
	var err error
	for _, port := range claimed {
		if !types.IsValidPort(port) || port < types.PrivilegedPortCeiling {
			err = multierr.Append(err, fmt.Errorf("不正なポート %d が確保されています", port))
		}
	}
	return err
}

func ipv6Supported() bool {
	ln, err := net.Listen("tcp", net.JoinHostPort(scanner.IPv6Loopback, "0"))
	if err != nil {
		return false
	}
	_ = ln.Close()
	return true
}
