// Package scanner は、ポートの空き状況を確認するプローブとその結果キャッシュを提供します。
package scanner

import (
	"context"

	"github.com/harakeishi/goport/pkg/types"
)

const (
	// DefaultHost は host 未指定時のプローブ先です。
	DefaultHost = "localhost"
	// IPv4Loopback は既定ホストのプローブで使用する IPv4 アドレスです。
	IPv4Loopback = "127.0.0.1"
	// IPv6Loopback は既定ホストのプローブで使用する IPv6 アドレスです。
	IPv6Loopback = "::1"
)

// Prober は単一ポートへのバインドを試みて空き状況を判定するインターフェースです。
type Prober interface {
	Probe(ctx context.Context, host string, port int) ProbeOutcome
}

// PortValidator はポート設定の妥当性検証を行うインターフェースです。
type PortValidator interface {
	ValidatePort(ctx context.Context, port int) error
	ValidatePortRange(ctx context.Context, portRange types.PortRange) error
	ValidateOptions(ctx context.Context, opts types.CLIOptions) error
}

// ProbeResult はプローブの三値の判定結果です。
type ProbeResult int

const (
	// ProbeFree はバインドに成功したことを表します。
	ProbeFree ProbeResult = iota
	// ProbeBusy は使用中または権限不足でバインドできなかったことを表します。
	ProbeBusy
	// ProbeIndeterminate はタイムアウトやその他のエラーで判定できなかったことを表します。
	ProbeIndeterminate
)

// String はメトリクスラベル用の文字列を返します。
func (r ProbeResult) String() string {
	switch r {
	case ProbeFree:
		return "free"
	case ProbeBusy:
		return "busy"
	default:
		return "indeterminate"
	}
}

// ProbeOutcome はプローブ結果と、判定に至った原因エラーです。
type ProbeOutcome struct {
	Result ProbeResult
	Err    error
}

// Available は判定を真偽値に縮約します。判定不能は使用中として扱います。
func (o ProbeOutcome) Available() bool {
	return o.Result == ProbeFree
}
