package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost は新規ハッシュ生成時のコスト。
const DefaultBcryptCost = 10

// ErrPasswordMismatch はパスワードがハッシュと一致しないことを示す。
var ErrPasswordMismatch = errors.New("auth: password mismatch")

// PasswordVerifier はパスワードとハッシュを照合する。
type PasswordVerifier interface {
	Verify(hash, plain string) error
}

// BcryptVerifier はbcryptでパスワードを照合する。
type BcryptVerifier struct{}

// Verify はplainがhashと一致すればnilを返す。
// 不一致の場合はErrPasswordMismatch、ハッシュ自体が不正な場合はそれ以外のエラーを返す。
func (BcryptVerifier) Verify(hash, plain string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
	if err == nil {
		return nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrPasswordMismatch
	}
	return fmt.Errorf("failed to compare password hash: %w", err)
}

// HashPassword はbcrypt（コスト10）でハッシュを生成する。
func HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), DefaultBcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}
