// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/assetdesk/internal/model"
)

// CredentialStore はログイン時に資格情報を参照するインターフェース。
// 書き込みは行わない。
type CredentialStore interface {
	// FindByUsername はユーザー名で資格情報を取得する。見つからない場合はnilを返す。
	FindByUsername(ctx context.Context, userName string) (*model.Credential, error)
}

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	CredentialStore

	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.User, error)

	// List は全ユーザーを取得する。パスワードハッシュは含まない。
	List(ctx context.Context) ([]*model.User, error)

	// Create はユーザーを作成し、採番されたIDを返す。
	// ユーザー名が重複する場合はErrDuplicateを返す。
	Create(ctx context.Context, user *model.User) (int64, error)

	// Update はユーザー情報を更新する。存在しない場合はErrNotFoundを返す。
	Update(ctx context.Context, user *model.User) error

	// Delete は指定IDのユーザーを削除する。存在しない場合はErrNotFoundを返す。
	Delete(ctx context.Context, id int64) error
}

// ComputerRepository はコンピューター資産の永続化インターフェース。
type ComputerRepository interface {
	List(ctx context.Context) ([]*model.Computer, error)
	Create(ctx context.Context, c *model.Computer) (int64, error)
	Update(ctx context.Context, c *model.Computer) error
	Delete(ctx context.Context, id int64) error
}

// PrinterRepository はプリンター資産の永続化インターフェース。
type PrinterRepository interface {
	List(ctx context.Context) ([]*model.Printer, error)
	Create(ctx context.Context, p *model.Printer) (int64, error)
	Update(ctx context.Context, p *model.Printer) error
	Delete(ctx context.Context, id int64) error
}
