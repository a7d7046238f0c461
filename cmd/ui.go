package cmd

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/harakeishi/goport/pkg/types"
)

var (
	accentColor  = lipgloss.Color("#0070F3")
	successColor = lipgloss.Color("#50E3C2")
	warningColor = lipgloss.Color("#F5A623")
	errorColor   = lipgloss.Color("#E00")
	mutedColor   = lipgloss.Color("#888")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accentColor)

	successStyle = lipgloss.NewStyle().
			Foreground(successColor).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(warningColor)

	errorStyle = lipgloss.NewStyle().
			Foreground(errorColor).
			Bold(true)

	mutedStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	labelStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Width(12)

	valueStyle = lipgloss.NewStyle().
			Bold(true)
)

// renderKeyValue はラベル付きの一行を出力します。
func renderKeyValue(w io.Writer, label string, value interface{}) {
	fmt.Fprintln(w, labelStyle.Render(label)+valueStyle.Render(fmt.Sprint(value)))
}

// renderPortConfiguration は割り当て結果を出力します。
// 要求ポートからの置き換えがあった場合は警告として表示します。
func renderPortConfiguration(w io.Writer, cfg types.PortConfiguration) error {
	for _, r := range cfg.Resolutions() {
		fmt.Fprintln(w, warningStyle.Render("! "+r.String()))
	}

	fmt.Fprintln(w, titleStyle.Render("ポート割り当て"))
	renderKeyValue(w, "frontend", cfg.Frontend)
	renderKeyValue(w, "backend", cfg.Backend)
	renderKeyValue(w, "auto", cfg.AutoDetected)
	return nil
}

// renderAvailability はポートの空き状況を出力します。
func renderAvailability(w io.Writer, results []types.PortAvailability) error {
	for _, r := range results {
		status := errorStyle.Render("in use")
		switch {
		case r.Available:
			status = successStyle.Render("available")
		case r.Claimed:
			status = warningStyle.Render("claimed")
		}
		fmt.Fprintln(w, labelStyle.Render(fmt.Sprintf("%d", r.Port))+status)
	}
	return nil
}

// renderPortUsageStats は範囲の使用状況と内部状態を出力します。
func renderPortUsageStats(w io.Writer, stats types.PortUsageStats, usage types.UsageStats) error {
	fmt.Fprintln(w, titleStyle.Render("ポート使用状況 "+stats.Range.String()))
	renderKeyValue(w, "total", stats.Total)
	renderKeyValue(w, "available", stats.Available)
	renderKeyValue(w, "in use", len(stats.InUsePorts))
	renderKeyValue(w, "claimed", stats.Claimed)
	renderKeyValue(w, "privileged", stats.Privileged)
	renderKeyValue(w, "scan", fmt.Sprintf("%dms", stats.ScanMillis))
	if len(stats.InUsePorts) > 0 {
		fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("使用中: %v", stats.InUsePorts)))
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, titleStyle.Render("アロケータ"))
	renderKeyValue(w, "probes", usage.Probes)
	renderKeyValue(w, "cache hit", usage.CacheHits)
	renderKeyValue(w, "cache miss", usage.CacheMisses)
	renderKeyValue(w, "allocated", usage.Allocations)
	renderKeyValue(w, "fallbacks", usage.Fallbacks)
	return nil
}

// renderHealth はヘルスチェックの結果を出力します。
func renderHealth(w io.Writer, status types.HealthStatus) error {
	if status.Healthy {
		fmt.Fprintln(w, successStyle.Render("healthy"))
	} else {
		fmt.Fprintln(w, errorStyle.Render("unhealthy"))
	}

	for _, check := range status.Checks {
		mark := successStyle.Render("ok  ")
		if !check.Passed {
			mark = errorStyle.Render("fail")
		}
		fmt.Fprintln(w, mark+" "+labelStyle.Render(check.Name)+mutedStyle.Render(check.Detail))
	}
	renderKeyValue(w, "ipv6", status.IPv6Supported)
	return nil
}
