package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/nao1215/tradesense/pkg/httpclient"
)

// healthResponse は /health のレスポンス。
type healthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// newHealthcheckCommand は稼働中のゲートウェイを確認するhealthcheckコマンドを生成する。
func newHealthcheckCommand() *cobra.Command {
	var (
		baseURL string
		origin  string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "healthcheck",
		Short: "稼働中のゲートウェイの /health を確認する",
		Long: `healthcheck は /health にGETリクエストを送信し、status が ok でなければ失敗する。

--origin を指定した場合は、そのオリジンがCORSで許可されていることも確認する。`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHealthcheck(cmd, baseURL, origin, timeout)
		},
	}

	cmd.Flags().StringVar(&baseURL, "url", "http://localhost:8000", "ゲートウェイのベースURL")
	cmd.Flags().StringVar(&origin, "origin", "", "CORSで許可されていることを確認するオリジン")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "リクエストのタイムアウト")

	return cmd
}

func runHealthcheck(cmd *cobra.Command, baseURL, origin string, timeout time.Duration) error {
	opts := []httpclient.Option{httpclient.WithTimeout(timeout)}
	if origin != "" {
		opts = append(opts, httpclient.WithHeader("Origin", origin))
	}
	client := httpclient.New(baseURL, opts...)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = httpclient.WithRequestID(ctx, "healthcheck-"+uuid.NewString())

	var resp healthResponse
	header, err := client.GetJSON(ctx, "/health", &resp)
	if err != nil {
		return fmt.Errorf("ヘルスチェックに失敗: %w", err)
	}
	if resp.Status != "ok" {
		return fmt.Errorf("ヘルスチェックに失敗: status=%q", resp.Status)
	}
	if origin != "" {
		if got := header.Get("Access-Control-Allow-Origin"); got != origin && got != "*" {
			return fmt.Errorf("オリジンがCORSで許可されていません: origin=%s", origin)
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", resp.Service, resp.Status)
	return nil
}
