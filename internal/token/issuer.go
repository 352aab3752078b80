package token

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Issuer は検証済みの識別情報から署名付きトークンを発行する。
// 資格情報の再検証は行わない。呼び出し側が事前に検証していることを前提とする。
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer はIssuerを生成する。
func NewIssuer(cfg Config) *Issuer {
	return &Issuer{
		secret: cfg.Secret,
		ttl:    cfg.ttl(),
		now:    cfg.clock(),
	}
}

// TTL はトークンの有効期間を返す。Cookieの有効期間を揃えるために使う。
func (i *Issuer) TTL() time.Duration {
	return i.ttl
}

// Issue はトークンを発行する。
// 有効期限は発行時刻（秒単位に切り捨て）+ TTL。
// 秘密鍵が未設定の場合はトークンを生成せずErrSecretNotConfiguredを返す。
func (i *Issuer) Issue(userID int64, userName string, level int) (string, *Claims, error) {
	if len(i.secret) == 0 {
		return "", nil, ErrSecretNotConfigured
	}

	issuedAt := i.now().Truncate(time.Second)
	claims := &Claims{
		UserID:   userID,
		UserName: userName,
		Level:    level,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(i.ttl)),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(signingMethod, claims).SignedString(i.secret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, claims, nil
}
