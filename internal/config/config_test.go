package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeConfigFile はテスト用のYAML設定ファイルを一時ディレクトリに作成する。
func writeConfigFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// clearEnv は設定に影響する環境変数をテスト中だけ空にする。
func clearEnv(t *testing.T) {
	t.Helper()

	for _, key := range []string{
		"HOST", "PORT", "APP_TITLE", "APP_VERSION",
		"CORS_ALLOW_ORIGINS", "CORS_ALLOW_CREDENTIALS", "CORS_ALLOW_METHODS",
		"CORS_ALLOW_HEADERS", "CORS_MAX_AGE_SECONDS", "JWT_SECRET",
		"LOG_LEVEL", "LOG_FORMAT",
	} {
		t.Setenv(key, "")
	}
}

func TestDefault(t *testing.T) {
	t.Parallel()

	cfg := Default()

	assert.Equal(t, "TradeSense AI Trading API", cfg.App.Title)
	assert.Equal(t, []string{
		"http://localhost:3000",
		"http://127.0.0.1:5500",
		"http://localhost:5500",
	}, cfg.CORS.AllowOrigins)
	assert.True(t, cfg.CORS.AllowCredentials)
	assert.Equal(t, []string{"*"}, cfg.CORS.AllowMethods)
	assert.Equal(t, []string{"*"}, cfg.CORS.AllowHeaders)
	assert.Equal(t, 600*time.Second, cfg.CORS.MaxAge)
	assert.NoError(t, cfg.Validate())
}

func TestDefaultReturnsIndependentSlices(t *testing.T) {
	t.Parallel()

	a := Default()
	a.CORS.AllowOrigins[0] = "http://mutated.example.com"

	b := Default()
	assert.Equal(t, "http://localhost:3000", b.CORS.AllowOrigins[0])
	assert.Equal(t, "http://localhost:3000", DefaultAllowOrigins[0])
}

func TestLoad(t *testing.T) {
	clearEnv(t)

	t.Run("ファイルが存在しない場合はデフォルト値が使われること", func(t *testing.T) {
		cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		require.NoError(t, err)
		assert.Equal(t, Default(), cfg)
	})

	t.Run("パスが空の場合はデフォルト値が使われること", func(t *testing.T) {
		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, Default(), cfg)
	})

	t.Run("YAMLファイルの値でデフォルト値が上書きされること", func(t *testing.T) {
		path := writeConfigFile(t, `
app:
  title: Staging Trading API
http:
  port: 9000
  shutdown_timeout: 3s
cors:
  allow_origins:
    - https://staging.tradesense.example
  max_age: 1m
log:
  format: text
`)

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "Staging Trading API", cfg.App.Title)
		assert.Equal(t, "0.1.0", cfg.App.Version)
		assert.Equal(t, 9000, cfg.HTTP.Port)
		assert.Equal(t, 3*time.Second, cfg.HTTP.ShutdownTimeout)
		assert.Equal(t, []string{"https://staging.tradesense.example"}, cfg.CORS.AllowOrigins)
		assert.True(t, cfg.CORS.AllowCredentials)
		assert.Equal(t, time.Minute, cfg.CORS.MaxAge)
		assert.Equal(t, "text", cfg.Log.Format)
	})

	t.Run("環境変数がYAMLファイルより優先されること", func(t *testing.T) {
		path := writeConfigFile(t, `
http:
  port: 9000
cors:
  allow_origins:
    - https://staging.tradesense.example
`)
		t.Setenv("PORT", "9100")
		t.Setenv("CORS_ALLOW_ORIGINS", "http://localhost:4000, ,http://localhost:4001")
		t.Setenv("CORS_ALLOW_CREDENTIALS", "false")
		t.Setenv("CORS_MAX_AGE_SECONDS", "30")
		t.Setenv("JWT_SECRET", "env-secret")
		t.Setenv("LOG_LEVEL", "DEBUG")

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, 9100, cfg.HTTP.Port)
		assert.Equal(t, []string{"http://localhost:4000", "http://localhost:4001"}, cfg.CORS.AllowOrigins)
		assert.False(t, cfg.CORS.AllowCredentials)
		assert.Equal(t, 30*time.Second, cfg.CORS.MaxAge)
		assert.Equal(t, "env-secret", cfg.Auth.JWTSecret)
		assert.Equal(t, "debug", cfg.Log.Level)
	})

	t.Run("不正な数値の環境変数は無視されること", func(t *testing.T) {
		t.Setenv("PORT", "not-a-number")

		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, 8000, cfg.HTTP.Port)
	})

	t.Run("不正なYAMLはエラーになること", func(t *testing.T) {
		path := writeConfigFile(t, "http: [unterminated")

		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("検証に失敗する設定はエラーになること", func(t *testing.T) {
		path := writeConfigFile(t, `
cors:
  allow_origins:
    - localhost:3000
`)

		_, err := Load(path)
		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "デフォルト設定は有効",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name:    "ワイルドカードオリジンは有効",
			mutate:  func(c *Config) { c.CORS.AllowOrigins = []string{"*"} },
			wantErr: false,
		},
		{
			name:    "空のオリジンリストは有効",
			mutate:  func(c *Config) { c.CORS.AllowOrigins = nil },
			wantErr: false,
		},
		{
			name:    "空のタイトルは無効",
			mutate:  func(c *Config) { c.App.Title = "  " },
			wantErr: true,
		},
		{
			name:    "ポート0は無効",
			mutate:  func(c *Config) { c.HTTP.Port = 0 },
			wantErr: true,
		},
		{
			name:    "ポート65536は無効",
			mutate:  func(c *Config) { c.HTTP.Port = 65536 },
			wantErr: true,
		},
		{
			name:    "シャットダウンタイムアウト0は無効",
			mutate:  func(c *Config) { c.HTTP.ShutdownTimeout = 0 },
			wantErr: true,
		},
		{
			name:    "パスを含むオリジンは無効",
			mutate:  func(c *Config) { c.CORS.AllowOrigins = []string{"http://localhost:3000/app"} },
			wantErr: true,
		},
		{
			name:    "末尾スラッシュ付きのオリジンは無効",
			mutate:  func(c *Config) { c.CORS.AllowOrigins = []string{"http://localhost:3000/"} },
			wantErr: true,
		},
		{
			name:    "スキームの無いオリジンは無効",
			mutate:  func(c *Config) { c.CORS.AllowOrigins = []string{"localhost:3000"} },
			wantErr: true,
		},
		{
			name:    "負のMaxAgeは無効",
			mutate:  func(c *Config) { c.CORS.MaxAge = -time.Second },
			wantErr: true,
		},
		{
			name:    "不明なログレベルは無効",
			mutate:  func(c *Config) { c.Log.Level = "verbose" },
			wantErr: true,
		},
		{
			name:    "不明なログ形式は無効",
			mutate:  func(c *Config) { c.Log.Format = "xml" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := Default()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestAddr(t *testing.T) {
	t.Parallel()

	cfg := Default()
	assert.Equal(t, ":8000", cfg.Addr())

	cfg.HTTP.Host = "127.0.0.1"
	cfg.HTTP.Port = 9000
	assert.Equal(t, "127.0.0.1:9000", cfg.Addr())
}
