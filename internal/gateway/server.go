package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/tradesense/internal/config"
	"github.com/nao1215/tradesense/pkg/middleware"
)

// serviceName はヘルスチェックで返すサービス名。
const serviceName = "tradesense"

// apiBasePath は拡張ルートを登録するグループのパス。
const apiBasePath = "/api/v1"

// Server はTradeSense APIゲートウェイのHTTPサーバー。
// プロセス起動時にNewServerで構築し、Runで待ち受けを開始する。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// api は拡張ルートを登録する /api/v1 グループ。
	api *gin.RouterGroup
	// cfg は解決済みの設定。
	cfg config.Config
	// logger は構造化ロガー。
	logger *slog.Logger
	// docs はOpenAPIドキュメントの生成元。
	docs *apiDocs
}

// NewServer は新しいゲートウェイサーバーを生成する。
// loggerがnilの場合はslog.Default()を使用する。
func NewServer(cfg config.Config, logger *slog.Logger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("ゲートウェイの初期化に失敗: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("service", serviceName)

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.Logger(logger))
	router.Use(middleware.CORS(corsPolicy(cfg.CORS)))

	docs, err := newAPIDocs(cfg.App, cfg.Auth.JWTSecret != "")
	if err != nil {
		return nil, fmt.Errorf("APIドキュメントの生成に失敗: %w", err)
	}

	s := &Server{
		router: router,
		cfg:    cfg,
		logger: logger,
		docs:   docs,
	}
	s.setupRoutes()

	return s, nil
}

// corsPolicy は設定値をCORSミドルウェアのポリシーに変換する。
func corsPolicy(c config.CORSConfig) middleware.CORSPolicy {
	return middleware.CORSPolicy{
		AllowOrigins:     c.AllowOrigins,
		AllowCredentials: c.AllowCredentials,
		AllowMethods:     c.AllowMethods,
		AllowHeaders:     c.AllowHeaders,
		ExposeHeaders:    c.ExposeHeaders,
		MaxAge:           c.MaxAge,
	}
}

// setupRoutes は組み込みのルーティングを設定する。
// 組み込みルートはOpenAPIドキュメントのpathsには含めない。
func (s *Server) setupRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": serviceName})
	})
	s.router.GET(openAPIPath, s.handleOpenAPI())
	s.router.GET("/docs", s.handleSwaggerUI())
	s.router.GET("/redoc", s.handleReDoc())

	s.api = s.router.Group(apiBasePath)
	if s.cfg.Auth.JWTSecret != "" {
		s.api.Use(middleware.JWTAuth(s.cfg.Auth.JWTSecret))
	}
}

// Handle は /api/v1 配下にルートを登録し、OpenAPIドキュメントに記録する。
// pathは /api/v1 からの相対パスで、Ginのパラメータ記法（:id）を使用できる。
// Run を呼び出す前に登録すること。
func (s *Server) Handle(method, path, summary string, handlers ...gin.HandlerFunc) {
	s.api.Handle(method, path, handlers...)
	s.docs.addOperation(method, joinPath(apiBasePath, path), summary)
}

// API は /api/v1 のルーターグループを返す。
// ここに直接登録したルートはOpenAPIドキュメントに記録されない。
func (s *Server) API() *gin.RouterGroup {
	return s.api
}

// Handler はゲートウェイのhttp.Handlerを返す。
func (s *Server) Handler() http.Handler {
	return s.router
}

// Config はサーバーの設定を返す。
func (s *Server) Config() config.Config {
	return s.cfg
}

// Run は設定されたアドレスで待ち受けを開始し、ctxのキャンセルまたは
// SIGINT/SIGTERM を受け取るとグレースフルシャットダウンする。
func (s *Server) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return fmt.Errorf("リッスンに失敗: addr=%s: %w", s.cfg.Addr(), err)
	}
	return s.Serve(ctx, ln)
}

// Serve は指定されたリスナーでHTTPサーバーを実行する。
// ctxがキャンセルされるとShutdownTimeout以内に処理中のリクエストを完了させて終了する。
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	httpServer := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: s.cfg.HTTP.ReadHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server started",
			"addr", ln.Addr().String(),
			"title", s.cfg.App.Title,
			"allow_origins", s.cfg.CORS.AllowOrigins,
		)
		errCh <- httpServer.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("HTTPサーバーの実行に失敗: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTPサーバーの停止に失敗: %w", err)
	}
	s.logger.Info("http server stopped")
	return nil
}
