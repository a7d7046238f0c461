package resolver

import (
	"context"
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/harakeishi/goport/internal/config"
	"github.com/harakeishi/goport/internal/logger"
	"github.com/harakeishi/goport/internal/scanner"
	"github.com/harakeishi/goport/pkg/types"
)

// fakeProber はホストとポートごとに結果を返すテスト用のプローブです。
// 未登録のポートは空きとして扱います。
type fakeProber struct {
	mu      sync.Mutex
	busy    map[int]bool
	v6      map[int]scanner.ProbeOutcome
	calls   map[int]int
	delay   time.Duration
	active  atomic.Int64
	maxSeen atomic.Int64
}

func newFakeProber(busy ...int) *fakeProber {
	f := &fakeProber{
		busy:  make(map[int]bool),
		v6:    make(map[int]scanner.ProbeOutcome),
		calls: make(map[int]int),
	}
	for _, port := range busy {
		f.busy[port] = true
	}
	return f
}

func (f *fakeProber) Probe(ctx context.Context, host string, port int) scanner.ProbeOutcome {
	n := f.active.Inc()
	defer f.active.Dec()
	for {
		seen := f.maxSeen.Load()
		if n <= seen || f.maxSeen.CAS(seen, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[port]++

	if host == scanner.IPv6Loopback {
		if outcome, ok := f.v6[port]; ok {
			return outcome
		}
	}
	if f.busy[port] {
		return scanner.ProbeOutcome{Result: scanner.ProbeBusy}
	}
	return scanner.ProbeOutcome{Result: scanner.ProbeFree}
}

func (f *fakeProber) setBusy(port int, busy bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.busy[port] = busy
}

func (f *fakeProber) setV6(port int, outcome scanner.ProbeOutcome) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.v6[port] = outcome
}

func (f *fakeProber) callCount(port int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[port]
}

// allBusyProber はすべてのポートを使用中と判定します。
type allBusyProber struct{}

func (allBusyProber) Probe(ctx context.Context, host string, port int) scanner.ProbeOutcome {
	return scanner.ProbeOutcome{Result: scanner.ProbeBusy}
}

// newTestAllocator は既定の設定でアロケータを作成します。
func newTestAllocator(prober scanner.Prober, opts ...Option) *Allocator {
	cfg := config.DefaultConfig().Allocator
	return NewAllocator(prober, scanner.NewProbeCache(cfg.CacheTTL), logger.NewNopLogger(), cfg, opts...)
}

// fixedRandom は常に同じ値を返す乱数関数です。
func fixedRandom(v int) func(int) int {
	return func(n int) int { return v % n }
}

func assertDistinct(configs []types.PortConfiguration) bool {
	seen := make(map[int]bool)
	for _, c := range configs {
		for _, p := range c.Ports() {
			if seen[p] {
				return false
			}
			seen[p] = true
		}
	}
	return true
}

// hangingProber は指定したホストで応答しないバインドを模したプローブです。
// timeout を過ぎると判定不能を返します。
type hangingProber struct {
	host    string
	timeout time.Duration
}

func (h hangingProber) Probe(ctx context.Context, host string, port int) scanner.ProbeOutcome {
	if host != h.host {
		return scanner.ProbeOutcome{Result: scanner.ProbeFree}
	}

	timer := time.NewTimer(h.timeout)
	defer timer.Stop()
	select {
	case <-timer.C:
		return scanner.ProbeOutcome{Result: scanner.ProbeIndeterminate, Err: context.DeadlineExceeded}
	case <-ctx.Done():
		return scanner.ProbeOutcome{Result: scanner.ProbeIndeterminate, Err: ctx.Err()}
	}
}
