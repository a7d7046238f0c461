package cmd

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/harakeishi/goport/pkg/types"
)

// portRangeValue は "8000-8100" 形式のフラグ値です。
type portRangeValue types.PortRange

func (v *portRangeValue) String() string {
	return types.PortRange(*v).String()
}

func (v *portRangeValue) Set(s string) error {
	r, err := types.ParsePortRange(s)
	if err != nil {
		return err
	}
	*v = portRangeValue(r)
	return nil
}

func (v *portRangeValue) Type() string {
	return "range"
}

var (
	statsRange       = portRangeValue{Start: 8000, End: 8100}
	statsConcurrency int
	statsOutput      string
)

// statsReport は stats コマンドの出力です。
type statsReport struct {
	Range     types.PortUsageStats `json:"range" yaml:"range"`
	Allocator types.UsageStats     `json:"allocator" yaml:"allocator"`
}

// statsCmd はstatsコマンドを表します。
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "ポート範囲の使用状況を表示",
	Long: `指定した範囲のポートを並行して確認し、使用状況を集計します。

使用中のポートの一覧と、プローブ回数やキャッシュのヒット数なども表示します。`,
	Example: `  # 既定の範囲 (8000-8100)
  goport stats

  # 範囲を指定
  goport stats --range 3000-3100

  # JSON形式で出力
  goport stats -o json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := validateFormat(statsOutput); err != nil {
			return err
		}

		a, err := newApplication()
		if err != nil {
			return err
		}

		usage, err := a.Allocator.GetPortUsageStats(ctx, types.PortRange(statsRange), statsConcurrency)
		if err != nil {
			return err
		}

		report := statsReport{Range: usage, Allocator: a.Allocator.UsageStats()}
		w := cmd.OutOrStdout()
		return writeOutput(w, statsOutput, report, func(w io.Writer) error {
			return renderPortUsageStats(w, report.Range, report.Allocator)
		})
	},
}

func init() {
	statsCmd.Flags().Var(&statsRange, "range", "集計するポート範囲 (例: 8000-8100)")
	statsCmd.Flags().IntVar(&statsConcurrency, "concurrency", 0, "同時に実行するプローブ数 (0 は設定値)")
	statsCmd.Flags().StringVarP(&statsOutput, "output", "o", formatText, "出力形式 (text, json, yaml)")
}
