// Package types は、goport で使用される基本的な型定義を提供します。
package types

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

const (
	// MinPort は有効なポート番号の下限です。
	MinPort = 1
	// MaxPort は有効なポート番号の上限です。
	MaxPort = 65535
	// PrivilegedPortCeiling 未満のポートは割り当て対象になりません。
	PrivilegedPortCeiling = 1024
)

// IsValidPort はポート番号が構文上有効かどうかを判定します。
// 特権ポートの除外はここでは行いません。
func IsValidPort(port int) bool {
	return port >= MinPort && port <= MaxPort
}

// IsValidPortValue は型の定まらない入力値（フラグや設定ファイル由来）を検証します。
// 整数でない数値（1.5 など）は false になります。
func IsValidPortValue(v interface{}) bool {
	switch n := v.(type) {
	case nil, bool:
		return false
	case float32:
		return isIntegralFloat(float64(n))
	case float64:
		return isIntegralFloat(n)
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return false
		}
		port, err := strconv.Atoi(s)
		if err != nil {
			return false
		}
		return IsValidPort(port)
	}

	port, err := cast.ToIntE(v)
	if err != nil {
		return false
	}
	return IsValidPort(port)
}

func isIntegralFloat(f float64) bool {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return false
	}
	return f >= MinPort && f <= MaxPort
}

// DefaultDenylist は順次探索で飛ばす開発用の定番ポートを返します。
// 呼び出しごとに新しいスライスを返します。
func DefaultDenylist() []int {
	return []int{
		3000, 3001, 3002, 3003, // Node.js 系の開発サーバ
		8000, 8001,
		8080, 8081,
		9000, 9001,
		9090, 9091,
		5000, 5001,
		5432, // PostgreSQL
		5984, // CouchDB
	}
}

// PortRange はポート範囲を表す構造体です。
type PortRange struct {
	Start int `yaml:"start" json:"start" mapstructure:"start"`
	End   int `yaml:"end" json:"end" mapstructure:"end"`
}

// Contains は範囲内のポートかどうかを返します。
func (r PortRange) Contains(port int) bool {
	return port >= r.Start && port <= r.End
}

// Size は範囲に含まれるポート数を返します。
func (r PortRange) Size() int {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start + 1
}

// String は "start-end" 形式の文字列を返します。
func (r PortRange) String() string {
	return fmt.Sprintf("%d-%d", r.Start, r.End)
}

// ParsePortRange は "8000-9000" 形式の文字列を解析します。
// 単一のポート番号は長さ 1 の範囲として扱います。
func ParsePortRange(s string) (PortRange, error) {
	s = strings.TrimSpace(s)
	startStr, endStr, found := strings.Cut(s, "-")
	if !found {
		endStr = startStr
	}

	start, err := strconv.Atoi(strings.TrimSpace(startStr))
	if err != nil {
		return PortRange{}, fmt.Errorf("開始ポートが数値ではありません: %q", s)
	}
	end, err := strconv.Atoi(strings.TrimSpace(endStr))
	if err != nil {
		return PortRange{}, fmt.Errorf("終了ポートが数値ではありません: %q", s)
	}
	if !IsValidPort(start) || !IsValidPort(end) || start > end {
		return PortRange{}, fmt.Errorf("ポート範囲が不正です: %q", s)
	}
	return PortRange{Start: start, End: end}, nil
}

// CLIOptions はコマンドラインから渡されるポート指定です。
// nil は未指定を表します。
type CLIOptions struct {
	Port         *int `json:"port,omitempty" yaml:"port,omitempty"`
	FrontendPort *int `json:"frontend_port,omitempty" yaml:"frontend_port,omitempty"`
	BackendPort  *int `json:"backend_port,omitempty" yaml:"backend_port,omitempty"`
}

// HasExplicitPorts はポートが明示的に指定されているかを返します。
func (o CLIOptions) HasExplicitPorts() bool {
	return o.Port != nil || o.FrontendPort != nil || o.BackendPort != nil
}

// IntPtr は int のポインタを返します。
func IntPtr(v int) *int {
	return &v
}

// RequestedPorts は呼び出し元が要求したポートの記録です。
type RequestedPorts struct {
	Frontend *int `json:"frontend,omitempty" yaml:"frontend,omitempty"`
	Backend  *int `json:"backend,omitempty" yaml:"backend,omitempty"`
}

// PortConfiguration はアロケータが返すフロントエンド/バックエンドのポートペアです。
type PortConfiguration struct {
	Frontend       int             `json:"frontend" yaml:"frontend"`
	Backend        int             `json:"backend" yaml:"backend"`
	AutoDetected   bool            `json:"auto_detected" yaml:"auto_detected"`
	RequestedPorts *RequestedPorts `json:"requested_ports,omitempty" yaml:"requested_ports,omitempty"`
}

// Ports はペアをスライスとして返します。
func (c PortConfiguration) Ports() []int {
	return []int{c.Frontend, c.Backend}
}

// PortAvailability は単一ポートの確認結果です。
type PortAvailability struct {
	Port      int  `json:"port" yaml:"port"`
	Available bool `json:"available" yaml:"available"`
	Claimed   bool `json:"claimed" yaml:"claimed"`
}

// PortUsageStats はポート範囲の使用状況を表します。
type PortUsageStats struct {
	Range       PortRange `json:"range" yaml:"range"`
	Total       int       `json:"total" yaml:"total"`
	Available   int       `json:"available" yaml:"available"`
	Unavailable int       `json:"unavailable" yaml:"unavailable"`
	Claimed     int       `json:"claimed" yaml:"claimed"`
	Privileged  int       `json:"privileged" yaml:"privileged"`
	InUsePorts  []int     `json:"in_use_ports" yaml:"in_use_ports"`
	ScanMillis  int64     `json:"scan_duration_ms" yaml:"scan_duration_ms"`
}

// UsageStats はプロセス内のアロケータ状態の統計です。
type UsageStats struct {
	ClaimedPorts []int `json:"claimed_ports" yaml:"claimed_ports"`
	ClaimedCount int   `json:"claimed_count" yaml:"claimed_count"`
	CacheEntries int   `json:"cache_entries" yaml:"cache_entries"`
	Probes       int64 `json:"probes" yaml:"probes"`
	CacheHits    int64 `json:"cache_hits" yaml:"cache_hits"`
	CacheMisses  int64 `json:"cache_misses" yaml:"cache_misses"`
	Allocations  int64 `json:"allocations" yaml:"allocations"`
	Fallbacks    int64 `json:"fallbacks" yaml:"fallbacks"`
}

// HealthStatus はヘルスチェックの結果です。
type HealthStatus struct {
	Healthy       bool          `json:"healthy" yaml:"healthy"`
	Checks        []HealthCheck `json:"checks" yaml:"checks"`
	Issues        []string      `json:"issues,omitempty" yaml:"issues,omitempty"`
	IPv6Supported bool          `json:"ipv6_supported" yaml:"ipv6_supported"`
	Stats         UsageStats    `json:"stats" yaml:"stats"`
}

// HealthCheck は個別のチェック結果です。
type HealthCheck struct {
	Name   string `json:"name" yaml:"name"`
	Passed bool   `json:"passed" yaml:"passed"`
	Detail string `json:"detail,omitempty" yaml:"detail,omitempty"`
}
