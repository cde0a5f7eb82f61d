// Package config はアプリケーション設定の読み込みを提供する。
package config

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// CookiePolicy は認証Cookie書き込み時の属性ポリシー。
// すべての書き込み・削除パスがこの1つの値を参照する。
// 呼び出し箇所ごとに属性を選ばせないための集約。
type CookiePolicy struct {
	TTL      time.Duration // Cookieの絶対有効期間。トークン自体の有効期限とは独立。
	SameSite http.SameSite
	Secure   bool
	Domain   string
}

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Backend
	BackendURL     string
	BackendTimeout time.Duration

	// Server
	ServerPort string
	BaseURL    string

	// Cookie
	Cookie CookiePolicy

	// Rate Limit（req/min単位）
	RateLimitGeneral int
	RateLimitLogin   int

	// Banner proxy
	BannerFetchTimeout time.Duration
	BannerMaxSize      int64

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// カレントディレクトリに.envがあれば先に読み込む（既存の環境変数は上書きしない）。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	// .envはローカル開発用。存在しなくてもエラーにしない。
	_ = godotenv.Load()

	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.BackendURL = os.Getenv("BACKEND_URL")
	if cfg.BackendURL == "" {
		missing = append(missing, "BACKEND_URL")
	}

	cfg.BaseURL = os.Getenv("BASE_URL")
	if cfg.BaseURL == "" {
		missing = append(missing, "BASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.BackendTimeout = getEnvDuration("BACKEND_TIMEOUT", 10*time.Second)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitLogin = getEnvInt("RATE_LIMIT_LOGIN", 10)
	cfg.BannerFetchTimeout = getEnvDuration("BANNER_FETCH_TIMEOUT", 10*time.Second)
	cfg.BannerMaxSize = getEnvInt64("BANNER_MAX_SIZE", 5242880)
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	cfg.Cookie = CookiePolicy{
		TTL:      getEnvDuration("AUTH_COOKIE_TTL", 7*24*time.Hour),
		SameSite: parseSameSite(getEnvString("AUTH_COOKIE_SAMESITE", "strict")),
		Secure:   strings.HasPrefix(cfg.BaseURL, "https://"),
		Domain:   getEnvString("COOKIE_DOMAIN", ""),
	}

	return cfg, nil
}

// parseSameSite はSameSite属性の設定値を解釈する。
// 未知の値はStrictに倒す。
func parseSameSite(v string) http.SameSite {
	switch strings.ToLower(v) {
	case "lax":
		return http.SameSiteLaxMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteStrictMode
	}
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
