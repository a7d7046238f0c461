package resolver

import (
	"context"
	"math/rand/v2"
	"slices"
	"sync"

	"go.uber.org/atomic"

	"github.com/harakeishi/goport/internal/errors"
	"github.com/harakeishi/goport/internal/logger"
	"github.com/harakeishi/goport/internal/metrics"
	"github.com/harakeishi/goport/internal/scanner"
	"github.com/harakeishi/goport/pkg/types"
)

const (
	// DefaultMaxAttempts は順次探索で確認する候補数の上限です。
	DefaultMaxAttempts = 100
	// DefaultRandomAttempts はランダム探索で引く候補数です。
	DefaultRandomAttempts = 10
	// DefaultRandomMin はランダム探索の下限です。
	DefaultRandomMin = 8000
	// DefaultRandomMax はランダム探索の上限です。
	DefaultRandomMax = types.MaxPort
	// DefaultBatchConcurrency は一括確認の同時プローブ数の既定値です。
	DefaultBatchConcurrency = 10
)

// Option は Allocator のオプションです。
type Option func(*Allocator)

// WithRandom はランダム探索に使う乱数関数を差し替えます。
// intN は [0, n) の値を返す必要があります。
func WithRandom(intN func(n int) int) Option {
	return func(a *Allocator) {
		a.intN = intN
	}
}

// Allocator はポートペアの割り当てを行います。
// 確保済みポートのレジストリはインスタンスごとに保持されます。
type Allocator struct {
	prober    scanner.Prober
	cache     *scanner.ProbeCache
	validator scanner.PortValidator
	logger    logger.Logger
	cfg       types.AllocatorConfig
	intN      func(n int) int

	// allocMu は DetectPorts の確認から確保までを直列化します。
	allocMu sync.Mutex

	mu       sync.RWMutex
	claimed  map[int]struct{}
	denylist map[int]struct{}

	probes      atomic.Int64
	cacheHits   atomic.Int64
	cacheMisses atomic.Int64
	allocations atomic.Int64
	fallbacks   atomic.Int64
}

// NewAllocator は新しい Allocator を作成します。
// cfg のゼロ値の項目には既定値が使われます。
func NewAllocator(prober scanner.Prober, cache *scanner.ProbeCache, logger logger.Logger, cfg types.AllocatorConfig, opts ...Option) *Allocator {
	if cache == nil {
		cache = scanner.NewProbeCache(cfg.CacheTTL)
	}

	a := &Allocator{
		prober:    prober,
		cache:     cache,
		validator: scanner.NewPortValidatorImpl(logger),
		logger:    logger,
		cfg:       withDefaults(cfg),
		intN:      rand.IntN,
		claimed:   make(map[int]struct{}),
	}
	a.SetDenylist(a.cfg.Denylist)

	for _, opt := range opts {
		opt(a)
	}
	return a
}

func withDefaults(cfg types.AllocatorConfig) types.AllocatorConfig {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.RandomAttempts <= 0 {
		cfg.RandomAttempts = DefaultRandomAttempts
	}
	if cfg.RandomRange.Start == 0 && cfg.RandomRange.End == 0 {
		cfg.RandomRange = types.PortRange{Start: DefaultRandomMin, End: DefaultRandomMax}
	}
	if cfg.BatchConcurrency <= 0 {
		cfg.BatchConcurrency = DefaultBatchConcurrency
	}
	if cfg.IPv6Policy == "" {
		cfg.IPv6Policy = types.IPv6PolicyStrict
	}
	// 空のスライスは拒否リストなしとして扱い、nil のみ既定値にする
	if cfg.Denylist == nil {
		cfg.Denylist = types.DefaultDenylist()
	}
	return cfg
}

// Config は既定値を補完した設定を返します。
func (a *Allocator) Config() types.AllocatorConfig {
	cfg := a.cfg
	cfg.Denylist = a.Denylist()
	return cfg
}

// IsPortAvailable はポートが割り当て可能かどうかを返します。
//
// 構文検証、特権ポート、確保済みレジストリ、キャッシュの順に確認し、
// それでも決まらない場合のみプローブします。host を省略した場合は
// 127.0.0.1 と ::1 の両方が空いている必要があります。
func (a *Allocator) IsPortAvailable(ctx context.Context, port int, host ...string) bool {
	if !types.IsValidPort(port) {
		return false
	}
	if port < types.PrivilegedPortCeiling {
		return false
	}
	if a.IsClaimed(port) {
		return false
	}

	if h := firstHost(host); h != scanner.DefaultHost {
		return a.probe(ctx, h, port).Available()
	}

	if available, ok := a.cache.Get(port); ok {
		a.cacheHits.Inc()
		metrics.CacheHits.Inc()
		return available
	}
	a.cacheMisses.Inc()
	metrics.CacheMisses.Inc()

	outcome := a.probeDualStack(ctx, port)
	if outcome.Result != scanner.ProbeIndeterminate {
		a.cache.Set(port, outcome.Available())
	}
	return outcome.Available()
}

func firstHost(host []string) string {
	if len(host) == 0 || host[0] == "" {
		return scanner.DefaultHost
	}
	return host[0]
}

// CheckPortInUse は host:port をプローブして使用中かどうかを返します。
// レジストリとキャッシュは参照しません。
func (a *Allocator) CheckPortInUse(ctx context.Context, port int, host string) bool {
	if host == "" {
		host = scanner.DefaultHost
	}
	return !a.probe(ctx, host, port).Available()
}

func (a *Allocator) probe(ctx context.Context, host string, port int) scanner.ProbeOutcome {
	a.probes.Inc()
	return a.prober.Probe(ctx, host, port)
}

// probeDualStack は IPv4 と IPv6 のループバックをプローブします。
func (a *Allocator) probeDualStack(ctx context.Context, port int) scanner.ProbeOutcome {
	v4 := a.probe(ctx, scanner.IPv4Loopback, port)
	if !v4.Available() {
		return v4
	}

	v6 := a.probe(ctx, scanner.IPv6Loopback, port)
	if v6.Result != scanner.ProbeIndeterminate {
		return v6
	}

	if a.ignoreIPv6Failure(v6.Err) {
		a.logger.Debug(ctx, "IPv6 のプローブ結果を無視します",
			types.Field{Key: "port", Value: port},
			types.Field{Key: "policy", Value: string(a.cfg.IPv6Policy)},
			types.Field{Key: "error", Value: errorString(v6.Err)})
		return v4
	}
	return v6
}

func (a *Allocator) ignoreIPv6Failure(err error) bool {
	if a.cfg.IPv6Policy == types.IPv6PolicyLenient {
		return true
	}
	return errors.IsAddressFamilyUnsupported(err)
}

// FindAvailablePort は startPort から順に空きポートを探します。
// 1024 未満からは開始せず、拒否リストと確保済みのポートは飛ばします。
// 飛ばした候補も試行回数に含めます。
func (a *Allocator) FindAvailablePort(ctx context.Context, startPort int) (int, error) {
	if !types.IsValidPort(startPort) {
		return 0, errors.NewInvalidPortError(startPort, "探索開始ポートが範囲外です")
	}

	port := max(startPort, types.PrivilegedPortCeiling)
	attempts := 0
	for ; attempts < a.cfg.MaxAttempts && port <= types.MaxPort; port++ {
		attempts++
		if a.isDenied(port) || a.IsClaimed(port) {
			continue
		}
		if a.IsPortAvailable(ctx, port) {
			a.logger.Debug(ctx, "空きポートを見つけました",
				types.Field{Key: "start_port", Value: startPort},
				types.Field{Key: "port", Value: port},
				types.Field{Key: "attempts", Value: attempts})
			return port, nil
		}
	}

	err := errors.NewPortExhaustedError(startPort, attempts)
	a.recordFailure(err)
	a.logger.Warn(ctx, "空きポートが見つかりませんでした",
		types.Field{Key: "start_port", Value: startPort},
		types.Field{Key: "attempts", Value: attempts})
	return 0, err
}

// GetRandomAvailablePort は [lo, hi] からランダムに空きポートを選びます。
// ランダムな候補がすべて使えない場合は lo からの順次探索に切り替えます。
func (a *Allocator) GetRandomAvailablePort(ctx context.Context, lo, hi int) (int, error) {
	if !types.IsValidPort(lo) || !types.IsValidPort(hi) || lo > hi {
		return 0, errors.NewInvalidPortRangeError(lo, hi, "ランダム探索の範囲が不正です")
	}

	if port, ok := a.tryRandom(ctx, lo, hi, a.cfg.RandomAttempts); ok {
		return port, nil
	}

	a.fallbacks.Inc()
	a.logger.Debug(ctx, "ランダム探索に失敗したため順次探索に切り替えます",
		types.Field{Key: "min", Value: lo},
		types.Field{Key: "max", Value: hi})
	return a.tryScan(ctx, lo)
}

// tryRandom は範囲内から attempts 回ランダムに候補を引きます。
func (a *Allocator) tryRandom(ctx context.Context, lo, hi, attempts int) (int, bool) {
	span := hi - lo + 1
	for i := 0; i < attempts; i++ {
		port := lo + a.intN(span)
		if a.isDenied(port) {
			continue
		}
		if a.IsPortAvailable(ctx, port) {
			return port, true
		}
	}
	return 0, false
}

// tryScan は from からの順次探索です。
func (a *Allocator) tryScan(ctx context.Context, from int) (int, error) {
	return a.FindAvailablePort(ctx, from)
}

// DetectPorts は CLI の指定からポートペアを決定し、両方を確保して返します。
//
// 要求されたペアが使用できない場合は要求フロントエンドの次から探索し、
// バックエンドは決定したフロントエンドの次から探索します。
// 返却前に必ず両ポートをレジストリに確保します。
func (a *Allocator) DetectPorts(ctx context.Context, opts types.CLIOptions) (types.PortConfiguration, error) {
	a.allocMu.Lock()
	defer a.allocMu.Unlock()

	if !opts.HasExplicitPorts() {
		return a.allocateAuto(ctx)
	}
	if opts.BackendPort != nil && opts.FrontendPort == nil {
		err := errors.NewInvalidPortError(*opts.BackendPort, "バックエンドのみの指定はできません。フロントエンドと同時に指定してください")
		a.recordFailure(err)
		return types.PortConfiguration{}, err
	}

	candidate := BuildConfiguration(opts)

	if err := validateCandidate(candidate); err != nil {
		a.recordFailure(err)
		return types.PortConfiguration{}, err
	}

	if a.IsPortAvailable(ctx, candidate.Frontend) && a.IsPortAvailable(ctx, candidate.Backend) {
		a.claim(candidate.Frontend, candidate.Backend)
		a.recordAllocation(metrics.KindRequested)
		a.logger.Info(ctx, "要求されたポートを割り当てました",
			types.Field{Key: "frontend", Value: candidate.Frontend},
			types.Field{Key: "backend", Value: candidate.Backend})
		return candidate, nil
	}

	frontend, backend, err := a.findPair(ctx, candidate.Frontend+1)
	if err != nil {
		return types.PortConfiguration{}, err
	}

	a.claim(frontend, backend)
	a.recordAllocation(metrics.KindFallback)

	resolved := types.PortConfiguration{
		Frontend:       frontend,
		Backend:        backend,
		AutoDetected:   true,
		RequestedPorts: requestedPorts(opts),
	}
	for _, r := range resolved.Resolutions() {
		a.logger.Warn(ctx, r.String(),
			types.Field{Key: "role", Value: string(r.Role)},
			types.Field{Key: "requested", Value: r.RequestedPort},
			types.Field{Key: "resolved", Value: r.ResolvedPort})
	}
	return resolved, nil
}

// allocateAuto は指定なしの場合の割り当てです。
// フロントエンドはランダムに、バックエンドはその次から順次探索します。
func (a *Allocator) allocateAuto(ctx context.Context) (types.PortConfiguration, error) {
	r := a.cfg.RandomRange
	frontend, err := a.GetRandomAvailablePort(ctx, r.Start, r.End-1)
	if err != nil {
		return types.PortConfiguration{}, err
	}
	backend, err := a.findBackend(ctx, frontend)
	if err != nil {
		return types.PortConfiguration{}, err
	}

	a.claim(frontend, backend)
	a.recordAllocation(metrics.KindAuto)
	a.logger.Info(ctx, "ポートを自動割り当てしました",
		types.Field{Key: "frontend", Value: frontend},
		types.Field{Key: "backend", Value: backend})

	return types.PortConfiguration{
		Frontend:     frontend,
		Backend:      backend,
		AutoDetected: true,
	}, nil
}

// findPair は start 以降のフロントエンドと、その次以降のバックエンドを探します。
func (a *Allocator) findPair(ctx context.Context, start int) (int, int, error) {
	if start > types.MaxPort {
		err := errors.NewPortExhaustedError(start, 0)
		a.recordFailure(err)
		return 0, 0, err
	}
	frontend, err := a.FindAvailablePort(ctx, start)
	if err != nil {
		return 0, 0, err
	}
	backend, err := a.findBackend(ctx, frontend)
	if err != nil {
		return 0, 0, err
	}
	return frontend, backend, nil
}

func (a *Allocator) findBackend(ctx context.Context, frontend int) (int, error) {
	if frontend >= types.MaxPort {
		err := errors.NewPortExhaustedError(frontend+1, 0)
		a.recordFailure(err)
		return 0, err
	}
	return a.FindAvailablePort(ctx, frontend+1)
}

func validateCandidate(c types.PortConfiguration) error {
	if !types.IsValidPort(c.Frontend) {
		return errors.NewInvalidPortError(c.Frontend, "フロントエンドポートが範囲外です")
	}
	if !types.IsValidPort(c.Backend) {
		return errors.NewInvalidPortError(c.Backend, "バックエンドポートが範囲外です")
	}
	if c.Frontend == c.Backend {
		return errors.NewInvalidPortError(c.Backend, "フロントエンドとバックエンドに同じポートは指定できません")
	}
	return nil
}

func (a *Allocator) recordAllocation(kind string) {
	a.allocations.Inc()
	metrics.AllocationsTotal.WithLabelValues(kind).Inc()
}

func (a *Allocator) recordFailure(err error) {
	reason := "invalid"
	if errors.IsPortExhausted(err) {
		reason = "exhausted"
	}
	metrics.AllocationFailures.WithLabelValues(reason).Inc()
}

// MarkPortAsUsed はポートを確保済みとして登録し、使用中としてキャッシュします。
func (a *Allocator) MarkPortAsUsed(port int) {
	a.claim(port)
}

func (a *Allocator) claim(ports ...int) {
	a.mu.Lock()
	for _, port := range ports {
		a.claimed[port] = struct{}{}
	}
	count := len(a.claimed)
	a.mu.Unlock()

	for _, port := range ports {
		a.cache.Set(port, false)
	}
	metrics.ClaimedPorts.Set(float64(count))
}

// ReleasePort は確保を解除し、キャッシュも無効化します。
func (a *Allocator) ReleasePort(port int) {
	a.mu.Lock()
	delete(a.claimed, port)
	count := len(a.claimed)
	a.mu.Unlock()

	a.cache.Clear(port)
	metrics.ClaimedPorts.Set(float64(count))
}

// IsClaimed はポートが確保済みかどうかを返します。
func (a *Allocator) IsClaimed(port int) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()

	_, ok := a.claimed[port]
	return ok
}

// ClaimedPorts は確保済みポートを昇順で返します。
func (a *Allocator) ClaimedPorts() []int {
	a.mu.RLock()
	ports := make([]int, 0, len(a.claimed))
	for port := range a.claimed {
		ports = append(ports, port)
	}
	a.mu.RUnlock()

	slices.Sort(ports)
	return ports
}

// SetDenylist は順次探索で飛ばすポートの一覧を置き換えます。
func (a *Allocator) SetDenylist(ports []int) {
	denylist := make(map[int]struct{}, len(ports))
	for _, port := range ports {
		denylist[port] = struct{}{}
	}

	a.mu.Lock()
	a.denylist = denylist
	a.mu.Unlock()
}

// Denylist は拒否リストを昇順で返します。
func (a *Allocator) Denylist() []int {
	a.mu.RLock()
	ports := make([]int, 0, len(a.denylist))
	for port := range a.denylist {
		ports = append(ports, port)
	}
	a.mu.RUnlock()

	slices.Sort(ports)
	return ports
}

func (a *Allocator) isDenied(port int) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()

	_, ok := a.denylist[port]
	return ok
}

// ClearCache はプローブ結果のキャッシュをすべて破棄します。
func (a *Allocator) ClearCache() {
	a.cache.Clear()
}

func errorString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
