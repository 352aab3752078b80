// Package user はユーザー管理のドメインロジックを提供する。
package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hitoshi/assetdesk/internal/auth"
	"github.com/hitoshi/assetdesk/internal/model"
	"github.com/hitoshi/assetdesk/internal/repository"
)

// Input はユーザー作成・更新の入力値。Passwordは平文で、保存前にハッシュ化される。
type Input struct {
	ID            int64
	UserName      string
	Position      string
	Level         int
	Password      string
	ResetPassword int
}

// Service はユーザー管理のサービス層。
type Service struct {
	userRepo repository.UserRepository
	hash     func(plain string) (string, error)
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(userRepo repository.UserRepository) *Service {
	return &Service{
		userRepo: userRepo,
		hash:     auth.HashPassword,
	}
}

// List は全ユーザーを返す。
func (s *Service) List(ctx context.Context) ([]*model.User, error) {
	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("ユーザー一覧の取得に失敗しました: %w", err)
	}
	return users, nil
}

// Get は指定IDのユーザーを返す。存在しない場合はUSER_NOT_FOUNDのAPIErrorを返す。
func (s *Service) Get(ctx context.Context, id int64) (*model.User, error) {
	u, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if u == nil {
		return nil, model.NewUserNotFoundError()
	}
	return u, nil
}

// Create はパスワードをハッシュ化してユーザーを登録する。
func (s *Service) Create(ctx context.Context, in Input) (int64, error) {
	hash, err := s.hash(in.Password)
	if err != nil {
		return 0, err
	}

	id, err := s.userRepo.Create(ctx, &model.User{
		UserName:      in.UserName,
		Position:      in.Position,
		Level:         in.Level,
		PasswordHash:  hash,
		ResetPassword: in.ResetPassword,
	})
	if err != nil {
		return 0, mapRepoError(err, "ユーザーの登録に失敗しました")
	}

	slog.Info("user created",
		slog.Int64("user_id", id),
		slog.Int("level_user", in.Level),
	)
	return id, nil
}

// Update はユーザー情報を更新する。パスワードは常に再ハッシュ化して上書きする。
func (s *Service) Update(ctx context.Context, in Input) error {
	hash, err := s.hash(in.Password)
	if err != nil {
		return err
	}

	err = s.userRepo.Update(ctx, &model.User{
		ID:            in.ID,
		UserName:      in.UserName,
		Position:      in.Position,
		Level:         in.Level,
		PasswordHash:  hash,
		ResetPassword: in.ResetPassword,
	})
	if err != nil {
		return mapRepoError(err, "ユーザーの更新に失敗しました")
	}

	slog.Info("user updated", slog.Int64("user_id", in.ID))
	return nil
}

// Delete は指定IDのユーザーを削除する。
// 発行済みトークンは失効しないため、削除されたユーザーのトークンも有効期限までは検証に通る。
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.userRepo.Delete(ctx, id); err != nil {
		return mapRepoError(err, "ユーザーの削除に失敗しました")
	}

	slog.Info("user deleted", slog.Int64("user_id", id))
	return nil
}

// mapRepoError はリポジトリのセンチネルエラーをAPIErrorに変換する。
func mapRepoError(err error, msg string) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return model.NewUserNotFoundError()
	case errors.Is(err, repository.ErrDuplicate):
		return model.NewDuplicateError("Usuário")
	default:
		return fmt.Errorf("%s: %w", msg, err)
	}
}
