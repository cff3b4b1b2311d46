package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/tradesense/internal/config"
	"github.com/nao1215/tradesense/pkg/middleware"
)

// newTokenCommand は /api/v1 用のJWTを発行するtokenコマンドを生成する。
func newTokenCommand(opts *rootOptions) *cobra.Command {
	var (
		userID string
		email  string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "設定されたシークレットでJWTを発行する",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			if cfg.Auth.JWTSecret == "" {
				return errors.New("auth.jwt_secret が設定されていません")
			}

			token, err := middleware.GenerateJWT(cfg.Auth.JWTSecret, userID, email, ttl)
			if err != nil {
				return fmt.Errorf("トークンの発行に失敗: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "トークンに含めるユーザーID")
	cmd.Flags().StringVar(&email, "email", "", "トークンに含めるメールアドレス")
	cmd.Flags().DurationVar(&ttl, "ttl", middleware.DefaultTokenTTL, "トークンの有効期間")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}
