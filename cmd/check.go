package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/harakeishi/goport/internal/errors"
	"github.com/harakeishi/goport/pkg/types"
)

var (
	checkHost        string
	checkConcurrency int
	checkOutput      string
)

// checkCmd はcheckコマンドを表します。
var checkCmd = &cobra.Command{
	Use:   "check PORT...",
	Short: "ポートの空き状況を確認",
	Long: `指定したポートが割り当て可能かどうかを確認します。

--host を省略した場合は 127.0.0.1 と ::1 の両方で確認します。
1024 未満のポートは常に使用不可として扱います。`,
	Example: `  # 複数ポートを確認
  goport check 3000 3001 8080

  # IPv4 のみで確認
  goport check 3000 --host 127.0.0.1

  # YAML形式で出力
  goport check 3000 -o yaml`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := validateFormat(checkOutput); err != nil {
			return err
		}

		ports, err := parsePortArgs(args)
		if err != nil {
			return err
		}

		a, err := newApplication()
		if err != nil {
			return err
		}

		var results []types.PortAvailability
		if checkHost == "" {
			results = a.Allocator.CheckMultiplePortsAvailability(ctx, ports, checkConcurrency)
		} else {
			for _, port := range ports {
				results = append(results, types.PortAvailability{
					Port:      port,
					Available: a.Allocator.IsPortAvailable(ctx, port, checkHost),
					Claimed:   a.Allocator.IsClaimed(port),
				})
			}
		}

		w := cmd.OutOrStdout()
		return writeOutput(w, checkOutput, results, func(w io.Writer) error {
			return renderAvailability(w, results)
		})
	},
}

// parsePortArgs は引数をポート番号に変換します。
func parsePortArgs(args []string) ([]int, error) {
	ports := make([]int, 0, len(args))
	for _, arg := range args {
		if !types.IsValidPortValue(arg) {
			return nil, &errors.AppError{
				Code:    errors.ErrPortInvalid,
				Message: fmt.Sprintf("無効なポート番号です: %q", arg),
				Fields:  map[string]interface{}{"value": arg},
			}
		}
		port, _ := strconv.Atoi(strings.TrimSpace(arg))
		ports = append(ports, port)
	}
	return ports, nil
}

func init() {
	checkCmd.Flags().StringVar(&checkHost, "host", "", "確認するホスト (省略時は 127.0.0.1 と ::1)")
	checkCmd.Flags().IntVar(&checkConcurrency, "concurrency", 0, "同時に実行するプローブ数 (0 は設定値)")
	checkCmd.Flags().StringVarP(&checkOutput, "output", "o", formatText, "出力形式 (text, json, yaml)")
}
