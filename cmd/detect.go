package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/harakeishi/goport/pkg/types"
)

var (
	detectPort         int
	detectFrontendPort int
	detectBackendPort  int
	detectOutput       string
)

// detectCmd はdetectコマンドを表します。
var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "ポートペアを割り当てて表示",
	Long: `フロントエンドとバックエンドのポートペアを決定して表示します。

要求したポートが使用中の場合は次の空きポートから探索し、
置き換えが発生したことを表示します。`,
	Example: `  # 既定のポートペア
  goport detect

  # フロントエンドを 4000、バックエンドを 4001 にする
  goport detect --port 4000

  # 両方を明示
  goport detect --frontend-port 5173 --backend-port 8080

  # JSON形式で出力
  goport detect -o json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := validateFormat(detectOutput); err != nil {
			return err
		}

		a, err := newApplication()
		if err != nil {
			return err
		}

		opts := portOptions(cmd.Flags())
		if err := a.Validator.ValidateOptions(ctx, opts); err != nil {
			return err
		}

		a.Logger.Debug(ctx, "ポートペアの割り当てを開始します",
			types.Field{Key: "options", Value: fmt.Sprintf("%+v", opts)})

		resolved, err := a.Allocator.DetectPorts(ctx, opts)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		return writeOutput(w, detectOutput, resolved, func(w io.Writer) error {
			return renderPortConfiguration(w, resolved)
		})
	},
}

// addPortFlags はポート指定のフラグを登録します。
func addPortFlags(flags *pflag.FlagSet, port, frontend, backend *int) {
	flags.IntVarP(port, "port", "p", 0, "フロントエンドのポート (バックエンドは次のポート)")
	flags.IntVar(frontend, "frontend-port", 0, "フロントエンドのポート")
	flags.IntVar(backend, "backend-port", 0, "バックエンドのポート (--frontend-port と同時に指定)")
}

// portOptions は明示されたフラグだけを CLIOptions に変換します。
func portOptions(flags *pflag.FlagSet) types.CLIOptions {
	var opts types.CLIOptions
	if flags.Changed("port") {
		if v, err := flags.GetInt("port"); err == nil {
			opts.Port = types.IntPtr(v)
		}
	}
	if flags.Changed("frontend-port") {
		if v, err := flags.GetInt("frontend-port"); err == nil {
			opts.FrontendPort = types.IntPtr(v)
		}
	}
	if flags.Changed("backend-port") {
		if v, err := flags.GetInt("backend-port"); err == nil {
			opts.BackendPort = types.IntPtr(v)
		}
	}
	return opts
}

func init() {
	addPortFlags(detectCmd.Flags(), &detectPort, &detectFrontendPort, &detectBackendPort)
	detectCmd.Flags().StringVarP(&detectOutput, "output", "o", formatText, "出力形式 (text, json, yaml)")
}
