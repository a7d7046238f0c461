package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/harakeishi/goport/internal/config"
	"github.com/harakeishi/goport/internal/errors"
)

var (
	configForce  bool
	configPath   string
	configOutput string
)

// configCmd はconfigコマンドを表します。
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "設定ファイルの操作",
}

// configInitCmd はconfig initコマンドを表します。
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "デフォルト設定ファイルを作成",
	Long: `デフォルト設定を YAML として書き出します。

既にファイルが存在する場合は --force を指定しない限り上書きしません。`,
	Example: `  # $HOME/.goport.yaml を作成
  goport config init

  # カレントディレクトリに作成
  goport config init --path ./.goport.yaml --force`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg := getConfig()

		log, err := getLogger(cfg)
		if err != nil {
			return fmt.Errorf("ロガーの初期化に失敗しました: %w", err)
		}

		path := configPath
		if path == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return fmt.Errorf("ホームディレクトリを取得できません: %w", err)
			}
			path = filepath.Join(home, config.FileName)
		}

		manager := config.NewManager(afero.NewOsFs(), log)
		if manager.Exists(path) && !configForce {
			return &errors.AppError{
				Code:    errors.ErrConfigSaveFailed,
				Message: fmt.Sprintf("設定ファイルが既に存在します: %s (--force で上書き)", path),
				Fields:  map[string]interface{}{"path": path},
			}
		}

		if err := manager.Save(ctx, config.DefaultConfig(), path); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("作成しました: ")+path)
		return nil
	},
}

// configShowCmd はconfig showコマンドを表します。
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "現在の設定を表示",
	Long:  `設定ファイル、環境変数、デフォルト値を統合した設定を表示します。`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := validateFormat(configOutput); err != nil {
			return err
		}
		cfg := getConfig()

		format := configOutput
		if format == formatText {
			format = formatYAML
		}
		w := cmd.OutOrStdout()
		if used := settings.ConfigFileUsed(); used != "" {
			fmt.Fprintln(cmd.ErrOrStderr(), mutedStyle.Render("# "+used))
		}
		return writeOutput(w, format, cfg, func(io.Writer) error { return nil })
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "既存のファイルを上書き")
	configInitCmd.Flags().StringVar(&configPath, "path", "", "書き出し先 (デフォルト: $HOME/.goport.yaml)")
	configShowCmd.Flags().StringVarP(&configOutput, "output", "o", formatYAML, "出力形式 (json, yaml)")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
}
