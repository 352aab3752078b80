// Package auth はパスワード照合とログイン処理を提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hitoshi/assetdesk/internal/repository"
	"github.com/hitoshi/assetdesk/internal/token"
)

// ErrInvalidCredentials はユーザー不在またはパスワード不一致を示す。
// 両者を区別しないことでユーザー名の列挙を防ぐ。
var ErrInvalidCredentials = errors.New("auth: invalid credentials")

// ErrMissingFields はユーザー名またはパスワードが空であることを示す。
var ErrMissingFields = errors.New("auth: missing fields")

// TokenIssuer はトークン発行のインターフェース。
type TokenIssuer interface {
	Issue(userID int64, userName string, level int) (string, *token.Claims, error)
}

// LoginResult はログイン成功時の結果。
type LoginResult struct {
	Token  string
	Claims *token.Claims
	// Reset は次回操作前にパスワード変更が必要かを示す。
	Reset bool
}

// Service はログイン処理を提供する。
type Service struct {
	credentials repository.CredentialStore
	passwords   PasswordVerifier
	issuer      TokenIssuer
}

// NewService はServiceを生成する。passwordsがnilの場合はBcryptVerifierを使う。
func NewService(credentials repository.CredentialStore, passwords PasswordVerifier, issuer TokenIssuer) *Service {
	if passwords == nil {
		passwords = BcryptVerifier{}
	}
	return &Service{
		credentials: credentials,
		passwords:   passwords,
		issuer:      issuer,
	}
}

// Login は資格情報を照合しトークンを発行する。
// 失敗時は ErrMissingFields / ErrInvalidCredentials / token.ErrSecretNotConfigured のいずれか、
// またはストア障害のエラーを返す。失敗時にトークンは生成されない。
func (s *Service) Login(ctx context.Context, userName, password string) (*LoginResult, error) {
	if userName == "" || password == "" {
		return nil, ErrMissingFields
	}

	cred, err := s.credentials.FindByUsername(ctx, userName)
	if err != nil {
		return nil, fmt.Errorf("failed to find credential: %w", err)
	}
	if cred == nil {
		slog.Warn("login rejected", slog.String("reason", "unknown_user"))
		return nil, ErrInvalidCredentials
	}

	if err := s.passwords.Verify(cred.PasswordHash, password); err != nil {
		if !errors.Is(err, ErrPasswordMismatch) {
			slog.Error("password verification failed",
				slog.Int64("user_id", cred.UserID),
				slog.String("error", err.Error()),
			)
		} else {
			slog.Warn("login rejected",
				slog.Int64("user_id", cred.UserID),
				slog.String("reason", "password_mismatch"),
			)
		}
		return nil, ErrInvalidCredentials
	}

	signed, claims, err := s.issuer.Issue(cred.UserID, cred.UserName, cred.Level)
	if err != nil {
		return nil, err
	}

	slog.Info("user logged in",
		slog.Int64("user_id", cred.UserID),
		slog.Int("level_user", cred.Level),
	)

	return &LoginResult{
		Token:  signed,
		Claims: claims,
		Reset:  cred.ResetPassword != 0,
	}, nil
}
