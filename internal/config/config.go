package config

import (
	"fmt"
	"net/netip"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Tier は起動するサーバーの種別。種別ごとに必須の環境変数が異なる。
type Tier string

const (
	TierAPI     Tier = "api"
	TierWeb     Tier = "web"
	TierMigrate Tier = "migrate"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL    string
	DatabaseDriver string

	// Token
	// JWTSecret は未設定でも起動できる。その場合、発行・検証は全て失敗する。
	JWTSecret string
	TokenTTL  time.Duration

	// Server
	APIPort        string
	WebPort        string
	MaxConnections int

	// Web tier
	APIBaseURL      string
	EntryPath       string
	ProtectedPrefix string
	HomePath        string
	WebUpstreamURL  string
	WebStaticDir    string

	// History
	HistoryFile  string
	HistoryLimit int

	// Cookie
	CookieName   string
	CookieSecure bool
	CookieDomain string

	// CORSAllowedOrigins はAPI層を直接呼び出せるブラウザのOrigin。
	CORSAllowedOrigins []string

	// TrustedProxies は転送ヘッダー（X-Forwarded-For, X-Real-IP）を信用する接続元。
	// 空の場合は転送ヘッダーを使わず、接続元アドレスをクライアントIPとする。
	TrustedProxies []netip.Prefix

	// Rate Limit（1分あたりのリクエスト数）
	RateLimitLogin   int
	RateLimitGeneral int

	// Authorization
	PolicyFile string

	// Logging
	LogLevel string

	// Tracing
	// TracingEndpoint はOTLP gRPCの送信先。空の場合はスパンを出力しない。
	TracingEndpoint string
	TracingInsecure bool
}

// Load は環境変数からConfigを読み込む。
// tierに必要な環境変数が未設定の場合は、未設定のもの全てを列挙したエラーを返す。
func Load(tier Tier) (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" && (tier == TierAPI || tier == TierMigrate) {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.APIBaseURL = os.Getenv("API_BASE_URL")
	if cfg.APIBaseURL == "" && tier == TierWeb {
		missing = append(missing, "API_BASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.DatabaseDriver = getEnvString("DATABASE_DRIVER", "mysql")
	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	cfg.TokenTTL = getEnvDuration("TOKEN_TTL", 3*time.Hour)
	cfg.APIPort = getEnvString("API_PORT", "3001")
	cfg.WebPort = getEnvString("WEB_PORT", "3000")
	cfg.MaxConnections = getEnvInt("MAX_CONNECTIONS", 512)
	cfg.EntryPath = getEnvString("ENTRY_PATH", "/")
	cfg.ProtectedPrefix = getEnvString("PROTECTED_PREFIX", "/system")
	cfg.HomePath = getEnvString("HOME_PATH", "/system/home")
	cfg.WebUpstreamURL = getEnvString("WEB_UPSTREAM_URL", "")
	cfg.WebStaticDir = getEnvString("WEB_STATIC_DIR", "public")
	cfg.HistoryFile = getEnvString("HISTORY_FILE", "historico.json")
	cfg.HistoryLimit = getEnvInt("HISTORY_LIMIT", 500)
	cfg.CookieName = getEnvString("COOKIE_NAME", "authToken")
	cfg.CookieSecure = getEnvBool("COOKIE_SECURE", false)
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigins = getEnvList("CORS_ALLOWED_ORIGINS")
	trustedProxies, trustedErr := parseTrustedProxies(os.Getenv("TRUSTED_PROXIES"))
	cfg.TrustedProxies = trustedProxies
	cfg.RateLimitLogin = getEnvInt("RATE_LIMIT_LOGIN", 10)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.PolicyFile = getEnvString("POLICY_FILE", "")
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")
	cfg.TracingEndpoint = getEnvString("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	cfg.TracingInsecure = getEnvBool("OTEL_EXPORTER_OTLP_INSECURE", false)

	if trustedErr != nil {
		return nil, trustedErr
	}
	if err := cfg.validate(tier); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate は値の形式を検証する。
func (c *Config) validate(tier Tier) error {
	var invalid []string

	if c.TokenTTL <= 0 {
		invalid = append(invalid, "TOKEN_TTL")
	}
	if tier == TierWeb {
		if u, err := url.Parse(c.APIBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			invalid = append(invalid, "API_BASE_URL")
		}
		if c.WebUpstreamURL != "" {
			if u, err := url.Parse(c.WebUpstreamURL); err != nil || u.Scheme == "" || u.Host == "" {
				invalid = append(invalid, "WEB_UPSTREAM_URL")
			}
		}
		// "/" だけではエントリーパスやログインまで保護対象になる
		if !strings.HasPrefix(c.ProtectedPrefix, "/") || strings.Trim(c.ProtectedPrefix, "/") == "" {
			invalid = append(invalid, "PROTECTED_PREFIX")
		}
	}

	if len(invalid) > 0 {
		return fmt.Errorf("environment variables have invalid values: %v", invalid)
	}
	return nil
}

// parseTrustedProxies はカンマ区切りのCIDRまたはIPアドレスを解釈する。
func parseTrustedProxies(v string) ([]netip.Prefix, error) {
	var prefixes []netip.Prefix
	for _, item := range strings.Split(v, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if strings.Contains(item, "/") {
			p, err := netip.ParsePrefix(item)
			if err != nil {
				return nil, fmt.Errorf("environment variables have invalid values: [TRUSTED_PROXIES] %q", item)
			}
			prefixes = append(prefixes, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(item)
		if err != nil {
			return nil, fmt.Errorf("environment variables have invalid values: [TRUSTED_PROXIES] %q", item)
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}

// getEnvList はカンマ区切りの値を空要素を除いて返す。
func getEnvList(key string) []string {
	var list []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			list = append(list, item)
		}
	}
	return list
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

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
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
