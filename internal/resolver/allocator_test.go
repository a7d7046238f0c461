package resolver

import (
	"context"
	"net"
	"os"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harakeishi/goport/internal/config"
	"github.com/harakeishi/goport/internal/errors"
	"github.com/harakeishi/goport/internal/logger"
	"github.com/harakeishi/goport/internal/scanner"
	"github.com/harakeishi/goport/pkg/types"
)

// TestIsPortAvailable_PrivilegedAndInvalid は特権ポートと範囲外のポートが
// プローブせずに拒否されることを確認します。
func TestIsPortAvailable_PrivilegedAndInvalid(t *testing.T) {
	prober := newFakeProber()
	a := newTestAllocator(prober)
	ctx := context.Background()

	for _, port := range []int{80, 443, 1023, -1, 0, 65536} {
		assert.False(t, a.IsPortAvailable(ctx, port), "port %d", port)
		assert.Zero(t, prober.callCount(port), "port %d must not be probed", port)
	}
	assert.True(t, a.IsPortAvailable(ctx, 1024))
}

// TestMarkAndReleasePort は確保と解除が空き判定に反映されることを確認します。
func TestMarkAndReleasePort(t *testing.T) {
	a := newTestAllocator(newFakeProber())
	ctx := context.Background()

	a.MarkPortAsUsed(40000)
	assert.False(t, a.IsPortAvailable(ctx, 40000))
	assert.True(t, a.IsClaimed(40000))
	assert.Equal(t, []int{40000}, a.ClaimedPorts())

	a.ReleasePort(40000)
	assert.True(t, a.IsPortAvailable(ctx, 40000))
	assert.False(t, a.IsClaimed(40000))
	assert.Empty(t, a.ClaimedPorts())
}

// TestIsPortAvailable_Cache はキャッシュが有効期間内の再プローブを省くことを確認します。
func TestIsPortAvailable_Cache(t *testing.T) {
	prober := newFakeProber()
	a := newTestAllocator(prober)
	ctx := context.Background()

	assert.True(t, a.IsPortAvailable(ctx, 40000))
	assert.Equal(t, 2, prober.callCount(40000), "both loopbacks are probed")

	prober.setBusy(40000, true)
	assert.True(t, a.IsPortAvailable(ctx, 40000), "cached result is honored")
	assert.Equal(t, 2, prober.callCount(40000))

	a.ClearCache()
	assert.False(t, a.IsPortAvailable(ctx, 40000))

	stats := a.UsageStats()
	assert.EqualValues(t, 1, stats.CacheHits)
	assert.EqualValues(t, 2, stats.CacheMisses)
}

// TestIsPortAvailable_ExplicitHostBypassesCache は host 指定時に単一ホストのみをプローブし、
// キャッシュを使わないことを確認します。
func TestIsPortAvailable_ExplicitHostBypassesCache(t *testing.T) {
	prober := newFakeProber()
	a := newTestAllocator(prober)
	ctx := context.Background()

	assert.True(t, a.IsPortAvailable(ctx, 40000, scanner.IPv4Loopback))
	assert.True(t, a.IsPortAvailable(ctx, 40000, scanner.IPv4Loopback))
	assert.Equal(t, 2, prober.callCount(40000))
	assert.Zero(t, a.UsageStats().CacheEntries)
}

// TestIsPortAvailable_IPv6Policy は IPv6 プローブ結果の扱いを確認します。
func TestIsPortAvailable_IPv6Policy(t *testing.T) {
	unsupported := &net.OpError{Op: "listen", Net: "tcp", Err: os.NewSyscallError("bind", syscall.EADDRNOTAVAIL)}

	tests := []struct {
		name   string
		policy types.IPv6Policy
		v6     scanner.ProbeOutcome
		want   bool
	}{
		{name: "strict ignores absent ipv6", policy: types.IPv6PolicyStrict, v6: scanner.ProbeOutcome{Result: scanner.ProbeIndeterminate, Err: unsupported}, want: true},
		{name: "strict fails closed on timeout", policy: types.IPv6PolicyStrict, v6: scanner.ProbeOutcome{Result: scanner.ProbeIndeterminate, Err: context.DeadlineExceeded}, want: false},
		{name: "lenient ignores timeout", policy: types.IPv6PolicyLenient, v6: scanner.ProbeOutcome{Result: scanner.ProbeIndeterminate, Err: context.DeadlineExceeded}, want: true},
		{name: "strict busy", policy: types.IPv6PolicyStrict, v6: scanner.ProbeOutcome{Result: scanner.ProbeBusy}, want: false},
		{name: "lenient busy", policy: types.IPv6PolicyLenient, v6: scanner.ProbeOutcome{Result: scanner.ProbeBusy}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prober := newFakeProber()
			prober.setV6(40000, tt.v6)

			cfg := config.DefaultConfig().Allocator
			cfg.IPv6Policy = tt.policy
			a := NewAllocator(prober, nil, logger.NewNopLogger(), cfg)

			assert.Equal(t, tt.want, a.IsPortAvailable(context.Background(), 40000))
		})
	}
}

// TestIsPortAvailable_HangingBindFailsClosed は応答しないバインドが使用中として扱われ、
// タイムアウト程度の時間で戻ることを確認します。
func TestIsPortAvailable_HangingBindFailsClosed(t *testing.T) {
	const timeout = 50 * time.Millisecond

	for _, host := range []string{scanner.IPv4Loopback, scanner.IPv6Loopback} {
		t.Run(host, func(t *testing.T) {
			a := newTestAllocator(hangingProber{host: host, timeout: timeout})
			require.Equal(t, types.IPv6PolicyStrict, a.Config().IPv6Policy)
			ctx := context.Background()

			for i := 0; i < 2; i++ {
				started := time.Now()
				assert.False(t, a.IsPortAvailable(ctx, 40000))
				assert.Less(t, time.Since(started), 10*timeout)
			}
			assert.Zero(t, a.UsageStats().CacheEntries)
		})
	}
}

// TestIsPortAvailable_IndeterminateNotCached は判定不能の結果がキャッシュされないことを確認します。
func TestIsPortAvailable_IndeterminateNotCached(t *testing.T) {
	prober := newFakeProber()
	prober.setV6(40000, scanner.ProbeOutcome{Result: scanner.ProbeIndeterminate, Err: context.DeadlineExceeded})
	a := newTestAllocator(prober)
	ctx := context.Background()

	assert.False(t, a.IsPortAvailable(ctx, 40000))
	assert.Zero(t, a.UsageStats().CacheEntries)

	prober.setV6(40000, scanner.ProbeOutcome{Result: scanner.ProbeFree})
	assert.True(t, a.IsPortAvailable(ctx, 40000), "next call probes again")
}

// TestFindAvailablePort は順次探索の挙動を確認します。
func TestFindAvailablePort(t *testing.T) {
	ctx := context.Background()

	t.Run("skips denylist", func(t *testing.T) {
		a := newTestAllocator(newFakeProber())
		port, err := a.FindAvailablePort(ctx, 3000)
		require.NoError(t, err)
		assert.Equal(t, 3004, port)
	})

	t.Run("skips claimed and busy", func(t *testing.T) {
		a := newTestAllocator(newFakeProber(40001))
		a.MarkPortAsUsed(40000)
		port, err := a.FindAvailablePort(ctx, 40000)
		require.NoError(t, err)
		assert.Equal(t, 40002, port)
	})

	t.Run("clamps to privileged floor", func(t *testing.T) {
		a := newTestAllocator(newFakeProber())
		port, err := a.FindAvailablePort(ctx, 80)
		require.NoError(t, err)
		assert.Equal(t, types.PrivilegedPortCeiling, port)
	})

	t.Run("rejects invalid start", func(t *testing.T) {
		a := newTestAllocator(newFakeProber())
		_, err := a.FindAvailablePort(ctx, 0)
		assert.True(t, errors.IsInvalidPort(err))
	})
}

// TestFindAvailablePort_Exhausted は枯渇エラーに試行回数が含まれることを確認します。
func TestFindAvailablePort_Exhausted(t *testing.T) {
	a := newTestAllocator(allBusyProber{})
	ctx := context.Background()

	tests := []struct {
		start    int
		attempts int
	}{
		{start: 20000, attempts: DefaultMaxAttempts},
		{start: 65500, attempts: 36},
	}
	for _, tt := range tests {
		_, err := a.FindAvailablePort(ctx, tt.start)
		require.Error(t, err)
		assert.True(t, errors.IsPortExhausted(err))

		var appErr *errors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, tt.attempts, appErr.Fields["attempts"])
	}
}

// TestGetRandomAvailablePort はランダム探索と順次探索へのフォールバックを確認します。
func TestGetRandomAvailablePort(t *testing.T) {
	ctx := context.Background()

	t.Run("random hit", func(t *testing.T) {
		a := newTestAllocator(newFakeProber(), WithRandom(fixedRandom(247)))
		port, err := a.GetRandomAvailablePort(ctx, 8000, 9000)
		require.NoError(t, err)
		assert.Equal(t, 8247, port)
		assert.Zero(t, a.UsageStats().Fallbacks)
	})

	t.Run("falls back to scan", func(t *testing.T) {
		// 8000 は拒否リストに含まれるため、ランダム候補はすべて飛ばされる
		a := newTestAllocator(newFakeProber(), WithRandom(fixedRandom(0)))
		port, err := a.GetRandomAvailablePort(ctx, 8000, 9000)
		require.NoError(t, err)
		assert.Equal(t, 8002, port)
		assert.EqualValues(t, 1, a.UsageStats().Fallbacks)
	})

	t.Run("invalid range", func(t *testing.T) {
		a := newTestAllocator(newFakeProber())
		_, err := a.GetRandomAvailablePort(ctx, 9000, 8000)
		assert.True(t, errors.IsInvalidPort(err))
	})
}

// TestDetectPorts_ExplicitPortTwice は同じポート指定を続けて行った場合に
// 2 回目が別のペアに置き換えられることを確認します。
func TestDetectPorts_ExplicitPortTwice(t *testing.T) {
	a := newTestAllocator(newFakeProber())
	ctx := context.Background()
	opts := types.CLIOptions{Port: types.IntPtr(3000)}

	first, err := a.DetectPorts(ctx, opts)
	require.NoError(t, err)
	assert.Equal(t, types.PortConfiguration{Frontend: 3000, Backend: 3001}, first)

	second, err := a.DetectPorts(ctx, opts)
	require.NoError(t, err)
	assert.Equal(t, 3004, second.Frontend)
	assert.Equal(t, 3005, second.Backend)
	assert.True(t, second.AutoDetected)
	require.NotNil(t, second.RequestedPorts)
	assert.Equal(t, 3000, *second.RequestedPorts.Frontend)
	assert.Nil(t, second.RequestedPorts.Backend)

	assert.Equal(t, []int{3000, 3001, 3004, 3005}, a.ClaimedPorts())
}

// TestDetectPorts_ExplicitPair はフロントエンドとバックエンドの同時指定を確認します。
func TestDetectPorts_ExplicitPair(t *testing.T) {
	ctx := context.Background()
	opts := types.CLIOptions{FrontendPort: types.IntPtr(5000), BackendPort: types.IntPtr(6000)}

	t.Run("both free", func(t *testing.T) {
		a := newTestAllocator(newFakeProber())
		got, err := a.DetectPorts(ctx, opts)
		require.NoError(t, err)
		assert.Equal(t, types.PortConfiguration{Frontend: 5000, Backend: 6000}, got)
	})

	t.Run("frontend busy", func(t *testing.T) {
		a := newTestAllocator(newFakeProber(5000))
		got, err := a.DetectPorts(ctx, opts)
		require.NoError(t, err)
		assert.Equal(t, 5002, got.Frontend, "5001 is denylisted")
		assert.Equal(t, 5003, got.Backend)
		assert.True(t, got.AutoDetected)
		assert.Equal(t, &types.RequestedPorts{Frontend: types.IntPtr(5000), Backend: types.IntPtr(6000)}, got.RequestedPorts)
	})

	t.Run("same port rejected", func(t *testing.T) {
		a := newTestAllocator(newFakeProber())
		_, err := a.DetectPorts(ctx, types.CLIOptions{FrontendPort: types.IntPtr(5000), BackendPort: types.IntPtr(5000)})
		assert.True(t, errors.IsInvalidPort(err))
		assert.Empty(t, a.ClaimedPorts())
	})
}

// TestDetectPorts_Adjacency は衝突時のバックエンドがフロントエンドの次から選ばれることを確認します。
func TestDetectPorts_Adjacency(t *testing.T) {
	a := newTestAllocator(newFakeProber(41000, 41002))

	got, err := a.DetectPorts(context.Background(), types.CLIOptions{Port: types.IntPtr(41000)})
	require.NoError(t, err)
	assert.Equal(t, 41001, got.Frontend)
	assert.Equal(t, 41003, got.Backend, "successor 41002 is busy")
	assert.Greater(t, got.Backend, got.Frontend)
}

// TestDetectPorts_PrivilegedRequestFallsBack は特権ポートの指定が置き換えられることを確認します。
func TestDetectPorts_PrivilegedRequestFallsBack(t *testing.T) {
	a := newTestAllocator(newFakeProber())

	got, err := a.DetectPorts(context.Background(), types.CLIOptions{Port: types.IntPtr(80)})
	require.NoError(t, err)
	assert.Equal(t, 1024, got.Frontend)
	assert.Equal(t, 1025, got.Backend)
	assert.True(t, got.AutoDetected)
}

// TestDetectPorts_Auto は指定なしの場合にランダムなペアが割り当てられることを確認します。
func TestDetectPorts_Auto(t *testing.T) {
	a := newTestAllocator(newFakeProber(), WithRandom(fixedRandom(247)))
	ctx := context.Background()

	first, err := a.DetectPorts(ctx, types.CLIOptions{})
	require.NoError(t, err)
	assert.Equal(t, types.PortConfiguration{Frontend: 8247, Backend: 8248, AutoDetected: true}, first)

	// 同じ乱数が出ても確保済みのため順次探索に切り替わる
	second, err := a.DetectPorts(ctx, types.CLIOptions{})
	require.NoError(t, err)
	assert.Equal(t, types.PortConfiguration{Frontend: 8002, Backend: 8003, AutoDetected: true}, second)
	assert.Nil(t, second.RequestedPorts)
}

// TestDetectPorts_Exhausted は枯渇エラーが呼び出し元に返ることを確認します。
func TestDetectPorts_Exhausted(t *testing.T) {
	a := newTestAllocator(allBusyProber{})

	_, err := a.DetectPorts(context.Background(), types.CLIOptions{Port: types.IntPtr(20000)})
	assert.True(t, errors.IsPortExhausted(err))
	assert.Empty(t, a.ClaimedPorts())
}

// TestDetectPorts_NoDoubleAllocation は並行した割り当てで同じポートが返らないことを確認します。
func TestDetectPorts_NoDoubleAllocation(t *testing.T) {
	a := newTestAllocator(newFakeProber())
	ctx := context.Background()

	const n = 20
	results := make([]types.PortConfiguration, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			opts := types.CLIOptions{}
			if i%2 == 0 {
				opts.Port = types.IntPtr(30000)
			}
			cfg, err := a.DetectPorts(ctx, opts)
			assert.NoError(t, err)
			results[i] = cfg
		}()
	}
	wg.Wait()

	assert.True(t, assertDistinct(results), "ports must be pairwise distinct: %v", results)
	assert.Len(t, a.ClaimedPorts(), 2*n)
}

// TestNewAllocator_DefaultDenylist はゼロ値の設定でも既定の拒否リストが使われることを確認します。
func TestNewAllocator_DefaultDenylist(t *testing.T) {
	ctx := context.Background()

	a := NewAllocator(newFakeProber(), nil, logger.NewNopLogger(), types.AllocatorConfig{})
	assert.ElementsMatch(t, types.DefaultDenylist(), a.Denylist())

	port, err := a.FindAvailablePort(ctx, 3000)
	require.NoError(t, err)
	assert.Equal(t, 3004, port)

	port, err = a.FindAvailablePort(ctx, 8080)
	require.NoError(t, err)
	assert.Equal(t, 8082, port)

	empty := NewAllocator(newFakeProber(), nil, logger.NewNopLogger(), types.AllocatorConfig{Denylist: []int{}})
	assert.Empty(t, empty.Denylist())
	port, err = empty.FindAvailablePort(ctx, 3000)
	require.NoError(t, err)
	assert.Equal(t, 3000, port)
}

// TestDetectPorts_BackendOnlyRejected はバックエンドのみの指定が拒否され、
// 何も確保されないことを確認します。
func TestDetectPorts_BackendOnlyRejected(t *testing.T) {
	a := newTestAllocator(newFakeProber())

	got, err := a.DetectPorts(context.Background(), types.CLIOptions{BackendPort: types.IntPtr(40000)})
	require.Error(t, err)
	assert.True(t, errors.IsInvalidPort(err))
	assert.Equal(t, types.PortConfiguration{}, got)
	assert.Empty(t, a.ClaimedPorts())
}

// TestSetDenylist は拒否リストの差し替えを確認します。
func TestSetDenylist(t *testing.T) {
	a := newTestAllocator(newFakeProber())
	ctx := context.Background()

	a.SetDenylist([]int{40001, 40000})
	assert.Equal(t, []int{40000, 40001}, a.Denylist())

	port, err := a.FindAvailablePort(ctx, 40000)
	require.NoError(t, err)
	assert.Equal(t, 40002, port)

	a.SetDenylist(nil)
	port, err = a.FindAvailablePort(ctx, 3000)
	require.NoError(t, err)
	assert.Equal(t, 3000, port)
}
