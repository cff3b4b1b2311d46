// Package config はTradeSense APIゲートウェイの実行時設定を提供する。
//
// 設定は デフォルト値 → YAMLファイル → 環境変数 の順に解決する。
// 設定値はプロセス起動時に一度だけ構築し、明示的に各コンポーネントへ渡す。
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultTitle はAPIドキュメントに表示するアプリケーションのタイトル。
const DefaultTitle = "TradeSense AI Trading API"

// DefaultAllowOrigins はクロスオリジンアクセスを許可するフロントエンドのオリジン。
var DefaultAllowOrigins = []string{
	"http://localhost:3000",
	"http://127.0.0.1:5500",
	"http://localhost:5500",
}

// Config はゲートウェイの解決済み設定。
type Config struct {
	// App はOpenAPIドキュメントに公開するメタデータ。
	App AppConfig `yaml:"app"`
	// HTTP はHTTPサーバーの待受設定。
	HTTP HTTPConfig `yaml:"http"`
	// CORS はクロスオリジンポリシー。
	CORS CORSConfig `yaml:"cors"`
	// Auth は拡張ルートグループの認証設定。
	Auth AuthConfig `yaml:"auth"`
	// Log は構造化ログの出力設定。
	Log LogConfig `yaml:"log"`
}

// AppConfig はアプリケーションのメタデータ。
type AppConfig struct {
	Title       string `yaml:"title"`
	Version     string `yaml:"version"`
	Description string `yaml:"description"`
}

// HTTPConfig はHTTPサーバーの設定。
type HTTPConfig struct {
	// Host が空の場合は全インターフェースで待ち受ける。
	Host              string        `yaml:"host"`
	Port              int           `yaml:"port"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
}

// CORSConfig はクロスオリジンリソース共有のポリシー。
// AllowMethods と AllowHeaders の "*" は全て許可を意味する。
type CORSConfig struct {
	AllowOrigins     []string      `yaml:"allow_origins"`
	AllowCredentials bool          `yaml:"allow_credentials"`
	AllowMethods     []string      `yaml:"allow_methods"`
	AllowHeaders     []string      `yaml:"allow_headers"`
	ExposeHeaders    []string      `yaml:"expose_headers"`
	MaxAge           time.Duration `yaml:"max_age"`
}

// AuthConfig は認証設定。
type AuthConfig struct {
	// JWTSecret が空の場合、/api/v1 グループは認証なしで公開される。
	JWTSecret string `yaml:"jwt_secret"`
}

// LogConfig はログ出力の設定。
type LogConfig struct {
	// Level は debug, info, warn, error のいずれか。
	Level string `yaml:"level"`
	// Format は json または text。
	Format string `yaml:"format"`
}

// Default はデフォルト値で埋めた設定を返す。
// 呼び出しごとに新しいスライスを確保するため、戻り値を変更しても他に影響しない。
func Default() Config {
	return Config{
		App: AppConfig{
			Title:   DefaultTitle,
			Version: "0.1.0",
		},
		HTTP: HTTPConfig{
			Port:              8000,
			ReadHeaderTimeout: 5 * time.Second,
			ShutdownTimeout:   10 * time.Second,
		},
		CORS: CORSConfig{
			AllowOrigins:     append([]string(nil), DefaultAllowOrigins...),
			AllowCredentials: true,
			AllowMethods:     []string{"*"},
			AllowHeaders:     []string{"*"},
			MaxAge:           600 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load は設定を デフォルト値 → YAMLファイル → 環境変数 の順に解決する。
// pathが空、またはファイルが存在しない場合はデフォルト値と環境変数のみを使用する。
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(raw, &cfg); err != nil {
				return Config{}, fmt.Errorf("設定ファイルのパースに失敗: %w", err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return Config{}, fmt.Errorf("設定ファイルの読み込みに失敗: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnv は環境変数による上書きを適用する。
func (c *Config) applyEnv() {
	c.HTTP.Host = envOrDefault("HOST", c.HTTP.Host)
	c.HTTP.Port = envInt("PORT", c.HTTP.Port)
	c.App.Title = envOrDefault("APP_TITLE", c.App.Title)
	c.App.Version = envOrDefault("APP_VERSION", c.App.Version)
	c.CORS.AllowOrigins = envCSV("CORS_ALLOW_ORIGINS", c.CORS.AllowOrigins)
	c.CORS.AllowCredentials = envBool("CORS_ALLOW_CREDENTIALS", c.CORS.AllowCredentials)
	c.CORS.AllowMethods = envCSV("CORS_ALLOW_METHODS", c.CORS.AllowMethods)
	c.CORS.AllowHeaders = envCSV("CORS_ALLOW_HEADERS", c.CORS.AllowHeaders)
	if seconds := envInt("CORS_MAX_AGE_SECONDS", -1); seconds >= 0 {
		c.CORS.MaxAge = time.Duration(seconds) * time.Second
	}
	c.Auth.JWTSecret = envOrDefault("JWT_SECRET", c.Auth.JWTSecret)
	c.Log.Level = strings.ToLower(envOrDefault("LOG_LEVEL", c.Log.Level))
	c.Log.Format = strings.ToLower(envOrDefault("LOG_FORMAT", c.Log.Format))
}

// Validate は設定値の整合性を検証する。
func (c Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.App.Title) == "" {
		errs = append(errs, errors.New("app.title が空です"))
	}
	if c.HTTP.Port < 1 || c.HTTP.Port > 65535 {
		errs = append(errs, fmt.Errorf("http.port が範囲外です: %d", c.HTTP.Port))
	}
	if c.HTTP.ReadHeaderTimeout < 0 {
		errs = append(errs, fmt.Errorf("http.read_header_timeout が負の値です: %s", c.HTTP.ReadHeaderTimeout))
	}
	if c.HTTP.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("http.shutdown_timeout は正の値が必要です: %s", c.HTTP.ShutdownTimeout))
	}
	for _, origin := range c.CORS.AllowOrigins {
		if err := validateOrigin(origin); err != nil {
			errs = append(errs, err)
		}
	}
	if c.CORS.MaxAge < 0 {
		errs = append(errs, fmt.Errorf("cors.max_age が負の値です: %s", c.CORS.MaxAge))
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level が不正です: %q", c.Log.Level))
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("log.format が不正です: %q", c.Log.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("設定が不正です: %w", errors.Join(errs...))
	}
	return nil
}

// Addr はHTTPサーバーのリッスンアドレスを返す。
func (c Config) Addr() string {
	return net.JoinHostPort(c.HTTP.Host, strconv.Itoa(c.HTTP.Port))
}

// validateOrigin はオリジンが scheme://host[:port] 形式であることを検証する。
// "*" は全オリジン許可として受け付ける。
func validateOrigin(origin string) error {
	if origin == "*" {
		return nil
	}
	u, err := url.Parse(origin)
	if err != nil {
		return fmt.Errorf("オリジンの形式が不正です: %q: %w", origin, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("オリジンにスキームまたはホストがありません: %q", origin)
	}
	if (u.Path != "" && u.Path != "/") || u.RawQuery != "" || u.Fragment != "" || u.User != nil {
		return fmt.Errorf("オリジンにパス等を含めることはできません: %q", origin)
	}
	if strings.HasSuffix(origin, "/") {
		return fmt.Errorf("オリジン末尾のスラッシュは一致しません: %q", origin)
	}
	return nil
}

// envOrDefault は環境変数を取得し、設定されていない場合はデフォルト値を返す。
func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// envInt は整数の環境変数をパースする。空または不正な値の場合はfallbackを返す。
func envInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func envBool(key string, fallback bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return v
}

// envCSV はカンマ区切りの環境変数をパースし、空要素を除去する。
func envCSV(key string, fallback []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	parts := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		parts = append(parts, trimmed)
	}
	if len(parts) == 0 {
		return fallback
	}
	return parts
}
