// Package cli はtradesenseコマンドのサブコマンドを提供する。
//
// serve でゲートウェイを起動し、healthcheck・token・config は運用補助に使用する。
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// ビルド時に -ldflags で埋め込まれるバージョン情報。
var (
	// Version はバイナリのバージョン。
	Version = "dev"
	// Commit はビルド元のコミットハッシュ。
	Commit = "none"
	// Date はビルド日時。
	Date = "unknown"
)

// rootOptions は全サブコマンドで共有するフラグ値。
type rootOptions struct {
	// configPath はYAML設定ファイルのパス。
	configPath string
}

// NewRootCommand はルートコマンドを生成する。
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "tradesense",
		Short: "TradeSense AI Trading API ゲートウェイ",
		Long: `tradesense はTradeSense AI Trading APIのHTTPゲートウェイを起動する。

フロントエンドのオリジンからのクロスオリジンアクセスを許可し、
OpenAPIドキュメントとヘルスチェックを公開する。`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date),
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", os.Getenv("TRADESENSE_CONFIG"), "YAML設定ファイルのパス")

	rootCmd.AddCommand(newServeCommand(opts))
	rootCmd.AddCommand(newHealthcheckCommand())
	rootCmd.AddCommand(newTokenCommand(opts))
	rootCmd.AddCommand(newConfigCommand(opts))

	return rootCmd
}

// Execute はルートコマンドを実行し、エラー時は終了コード1で終了する。
func Execute(rootCmd *cobra.Command) {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
