package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Verifier はトークンの署名と有効期限を検証する。
// 副作用を持たない純粋な検証で、同じ入力（トークン、秘密鍵、現在時刻）には常に同じ結果を返す。
type Verifier struct {
	secret []byte
	now    func() time.Time
}

// NewVerifier はVerifierを生成する。
func NewVerifier(cfg Config) *Verifier {
	return &Verifier{
		secret: cfg.Secret,
		now:    cfg.clock(),
	}
}

// Verify はトークンを検証し、埋め込まれた識別情報を返す。
//
//   - 空文字列: ErrMissingToken
//   - 秘密鍵未設定: ErrSecretNotConfigured
//   - 署名不正、期限切れ、exp欠落、HS256以外のアルゴリズム: ErrInvalidToken
func (v *Verifier) Verify(raw string) (*Claims, error) {
	if raw == "" {
		return nil, ErrMissingToken
	}
	if len(v.secret) == 0 {
		return nil, ErrSecretNotConfigured
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(raw, claims,
		func(t *jwt.Token) (any, error) {
			return v.secret, nil
		},
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
