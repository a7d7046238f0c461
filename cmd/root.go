// Package cmd は、goport のコマンドライン機能を提供します。
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/harakeishi/goport/internal/app"
	"github.com/harakeishi/goport/internal/config"
	"github.com/harakeishi/goport/internal/logger"
	"github.com/harakeishi/goport/pkg/types"
)

var (
	cfgFile string
	verbose bool

	// settings はプロセス全体で共有する viper インスタンスです。
	settings = config.NewViper(afero.NewOsFs())
)

// rootCmd はルートコマンドを表します。
var rootCmd = &cobra.Command{
	Use:   "goport",
	Short: "フロントエンド/バックエンド用ポートペアの自動割り当てツール",
	Long: `goport はローカル開発用にフロントエンドとバックエンドのポートペアを割り当てます。

要求したポートが使用中の場合は近くの空きポートに置き換え、
置き換えが発生したことを利用者に通知します。`,
	Example: `  # 既定のポートペア (3000/3001) を確認
  goport detect

  # フロントエンドのポートを指定 (バックエンドは次のポート)
  goport detect --port 4000

  # ポートの空き状況を確認
  goport check 3000 3001 8080

  # ポートペアを割り当ててサーバを起動
  goport serve`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cmd.SetContext(logger.WithRequestID(cmd.Context(), uuid.NewString()))
		return nil
	},
}

// Execute はコマンドを実行します。
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "設定ファイルのパス (デフォルト: $HOME/.goport.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "詳細ログ出力")

	rootCmd.AddCommand(detectCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)
}

// initConfig は設定を初期化します。
func initConfig() {
	if cfgFile != "" {
		settings.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		settings.AddConfigPath(home)
		settings.AddConfigPath(".")
		settings.SetConfigName(".goport")
	}

	if err := settings.ReadInConfig(); err == nil && verbose {
		fmt.Fprintln(os.Stderr, "設定ファイルを使用中:", settings.ConfigFileUsed())
	}
}

// getConfig は設定を取得します。デコードに失敗した場合はデフォルト設定を返します。
func getConfig() *types.AppConfig {
	cfg, err := config.Decode(settings)
	if err != nil {
		fmt.Fprintf(os.Stderr, "設定の読み込みに失敗しました: %v\n", err)
		cfg = config.DefaultConfig()
	}

	if verbose {
		cfg.Log.Level = "debug"
		cfg.Log.Detailed = true
	}
	return cfg
}

// getLogger はロガーを取得します。
func getLogger(cfg *types.AppConfig) (logger.Logger, error) {
	factory := logger.NewStructuredLoggerFactory(nil)
	return factory.Create(cfg.GetLog())
}

// newApplication は設定とロガーを読み込み、コマンドが使うサービスを組み立てます。
func newApplication() (*app.Application, error) {
	cfg := getConfig()

	log, err := getLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("ロガーの初期化に失敗しました: %w", err)
	}

	return app.InitializeApplication(cfg, log)
}
