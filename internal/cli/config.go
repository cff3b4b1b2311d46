package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/nao1215/tradesense/internal/config"
)

// maskedSecret はconfigコマンドの出力でシークレットを置き換える文字列。
const maskedSecret = "********"

// newConfigCommand は解決済みの設定をYAMLで出力するconfigコマンドを生成する。
func newConfigCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "デフォルト値・設定ファイル・環境変数を解決した設定を出力する",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			if cfg.Auth.JWTSecret != "" {
				cfg.Auth.JWTSecret = maskedSecret
			}

			out, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("設定の出力に失敗: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}
