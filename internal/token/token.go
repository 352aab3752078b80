// Package token はアクセストークン（HS256署名のJWT）の発行と検証を提供する。
// APIサーバーとWebサーバーは別プロセスで動作するが、どちらもこのパッケージを使って
// 独立に検証を行う。検証ロジックは共有秘密鍵とアルゴリズムのみでパラメータ化される。
package token

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTTL はトークンの既定の有効期間。
const DefaultTTL = 3 * time.Hour

var (
	// ErrMissingToken はトークンが提示されていないことを示す（未認証）。
	ErrMissingToken = errors.New("token: no token presented")
	// ErrInvalidToken は署名不正・期限切れ・改ざん・想定外アルゴリズムのいずれかを示す。
	ErrInvalidToken = errors.New("token: invalid or expired token")
	// ErrSecretNotConfigured は署名用の秘密鍵が設定されていないことを示す。
	// 発行・検証ともにこのエラーでフェイルクローズする。
	ErrSecretNotConfigured = errors.New("token: signing secret is not configured")
)

// Claims はトークンに埋め込まれる識別情報。
// JSONのキー名は既存クライアントとの互換のため id / user_name / level_user を使う。
type Claims struct {
	UserID   int64  `json:"id"`
	UserName string `json:"user_name,omitempty"`
	Level    int    `json:"level_user"`
	jwt.RegisteredClaims
}

// IssuedAtTime は発行時刻を返す。未設定の場合はゼロ値。
func (c *Claims) IssuedAtTime() time.Time {
	if c.IssuedAt == nil {
		return time.Time{}
	}
	return c.IssuedAt.Time
}

// ExpiresAtTime は有効期限を返す。未設定の場合はゼロ値。
func (c *Claims) ExpiresAtTime() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// Config は発行者・検証者の共通設定。
// Secretは起動時に1回だけ注入され、リクエスト処理中は読み取り専用として扱う。
type Config struct {
	Secret []byte
	TTL    time.Duration
	// Now は現在時刻を返す関数。nilの場合はtime.Nowを使う。テストで固定時刻を注入する。
	Now func() time.Time
}

func (c Config) clock() func() time.Time {
	if c.Now != nil {
		return c.Now
	}
	return time.Now
}

func (c Config) ttl() time.Duration {
	if c.TTL <= 0 {
		return DefaultTTL
	}
	return c.TTL
}

// signingMethod は発行・検証で共有するアルゴリズム。
var signingMethod = jwt.SigningMethodHS256

// FromAuthorizationHeader は "Bearer <token>" 形式のAuthorizationヘッダーからトークンを取り出す。
// 形式が異なる場合は空文字列を返す。
func FromAuthorizationHeader(header string) string {
	scheme, raw, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(raw)
}
