package scanner

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/harakeishi/goport/internal/errors"
	"github.com/harakeishi/goport/internal/logger"
	"github.com/harakeishi/goport/internal/metrics"
	"github.com/harakeishi/goport/pkg/types"
)

// DefaultProbeTimeout はバインドプローブの既定タイムアウトです。
const DefaultProbeTimeout = 500 * time.Millisecond

type listenFunc func(ctx context.Context, network, address string) (net.Listener, error)

// NetProber は使い捨てのリスナーをバインドしてポートの空きを確認するプローブです。
// バインドに成功したリスナーは即座にクローズされます。
type NetProber struct {
	timeout time.Duration
	listen  listenFunc
	logger  logger.Logger
}

// NewNetProber は新しい NetProber を作成します。
func NewNetProber(timeout time.Duration, logger logger.Logger) *NetProber {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}

	var lc net.ListenConfig
	return &NetProber{
		timeout: timeout,
		listen:  lc.Listen,
		logger:  logger,
	}
}

// Timeout はプローブのタイムアウトを返します。
func (p *NetProber) Timeout() time.Duration {
	return p.timeout
}

// Probe は host:port へのバインドを試みて三値の結果を返します。
// タイムアウト内に完了しない場合は ProbeIndeterminate になります。
func (p *NetProber) Probe(ctx context.Context, host string, port int) ProbeOutcome {
	if host == "" {
		host = DefaultHost
	}
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	started := time.Now()
	outcome := p.probe(ctx, addr)
	metrics.ProbeDuration.Observe(time.Since(started).Seconds())
	metrics.ProbesTotal.WithLabelValues(outcome.Result.String()).Inc()

	if outcome.Result == ProbeIndeterminate {
		p.logger.Debug(ctx, "ポートの判定ができませんでした",
			types.Field{Key: "addr", Value: addr},
			types.Field{Key: "error", Value: errString(outcome.Err)})
	}

	return outcome
}

func (p *NetProber) probe(ctx context.Context, addr string) ProbeOutcome {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	type listenResult struct {
		ln  net.Listener
		err error
	}
	done := make(chan listenResult, 1)

	go func() {
		ln, err := p.listen(ctx, "tcp", addr)
		done <- listenResult{ln: ln, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return classifyListenError(r.err)
		}
		_ = r.ln.Close()
		return ProbeOutcome{Result: ProbeFree}
	case <-ctx.Done():
		// 遅れて成功したリスナーは残さない
		go func() {
			if r := <-done; r.ln != nil {
				_ = r.ln.Close()
			}
		}()
		return ProbeOutcome{Result: ProbeIndeterminate, Err: ctx.Err()}
	}
}

// CheckPortInUse は host:port が使用中かどうかを返します。
// 判定できない場合は使用中として扱います。
func (p *NetProber) CheckPortInUse(ctx context.Context, port int, host string) bool {
	return !p.Probe(ctx, host, port).Available()
}

// classifyListenError はバインドエラーを三値の結果に分類します。
func classifyListenError(err error) ProbeOutcome {
	switch {
	case errors.IsAddressInUse(err), errors.IsPermissionDenied(err):
		return ProbeOutcome{Result: ProbeBusy, Err: err}
	default:
		return ProbeOutcome{Result: ProbeIndeterminate, Err: err}
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
