package cli

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/nao1215/tradesense/internal/config"
	"github.com/nao1215/tradesense/internal/gateway"
)

// newServeCommand はゲートウェイを起動するserveコマンドを生成する。
func newServeCommand(opts *rootOptions) *cobra.Command {
	var (
		host string
		port int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "HTTPゲートウェイを起動する",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("host") {
				cfg.HTTP.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.HTTP.Port = port
			}

			logger := newLogger(cmd.OutOrStdout(), cfg.Log)
			if cfg.Log.Level != "debug" {
				gin.SetMode(gin.ReleaseMode)
			}

			srv, err := gateway.NewServer(cfg, logger)
			if err != nil {
				return err
			}
			if err := srv.Run(cmd.Context()); err != nil {
				return fmt.Errorf("ゲートウェイの実行に失敗: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "待受ホスト（設定ファイルより優先）")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "待受ポート（設定ファイルより優先）")

	return cmd
}
