package cmd

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/harakeishi/goport/internal/errors"
)

var healthOutput string

// healthCmd はhealthコマンドを表します。
var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "ポート検出の動作確認",
	Long: `一時的なリスナーを使ってプローブが正しく判定できるかを確認します。

問題が見つかった場合は 0 以外の終了コードで終了します。`,
	Example: `  goport health
  goport health -o json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := validateFormat(healthOutput); err != nil {
			return err
		}

		a, err := newApplication()
		if err != nil {
			return err
		}

		status := a.Allocator.HealthCheck(ctx)
		w := cmd.OutOrStdout()
		if err := writeOutput(w, healthOutput, status, func(w io.Writer) error {
			return renderHealth(w, status)
		}); err != nil {
			return err
		}

		if !status.Healthy {
			return &errors.AppError{
				Code:    errors.ErrInternalError,
				Message: "ヘルスチェックに失敗しました",
				Fields:  map[string]interface{}{"issues": status.Issues},
			}
		}
		return nil
	},
}

func init() {
	healthCmd.Flags().StringVarP(&healthOutput, "output", "o", formatText, "出力形式 (text, json, yaml)")
}
