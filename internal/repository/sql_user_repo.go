package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/assetdesk/internal/database"
	"github.com/hitoshi/assetdesk/internal/model"
)

// SQLUserRepo はMySQL/PostgreSQLを使用したユーザーリポジトリ。
type SQLUserRepo struct {
	db     *sql.DB
	driver database.Driver
}

// NewSQLUserRepo はSQLUserRepoを生成する。
func NewSQLUserRepo(db *sql.DB, driver database.Driver) *SQLUserRepo {
	return &SQLUserRepo{db: db, driver: driver}
}

func (r *SQLUserRepo) q(query string) string {
	return database.Rebind(r.driver, query)
}

// FindByUsername はユーザー名で資格情報を取得する。見つからない場合はnilを返す。
func (r *SQLUserRepo) FindByUsername(ctx context.Context, userName string) (*model.Credential, error) {
	c := &model.Credential{UserName: userName}
	err := r.db.QueryRowContext(ctx,
		r.q(`SELECT id, password_user, level_user, reset_password FROM users WHERE user_name = ?`),
		userName,
	).Scan(&c.UserID, &c.PasswordHash, &c.Level, &c.ResetPassword)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find credential by user name: %w", err)
	}

	return c, nil
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *SQLUserRepo) FindByID(ctx context.Context, id int64) (*model.User, error) {
	u := &model.User{}
	err := r.db.QueryRowContext(ctx,
		r.q(`SELECT id, user_name, position, level_user, reset_password, registration_date, updated_at
		 FROM users WHERE id = ?`),
		id,
	).Scan(&u.ID, &u.UserName, &u.Position, &u.Level, &u.ResetPassword, &u.RegistrationDate, &u.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}

	return u, nil
}

// List は全ユーザーをID順で取得する。
func (r *SQLUserRepo) List(ctx context.Context) ([]*model.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_name, position, level_user, reset_password, registration_date, updated_at
		 FROM users ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		u := &model.User{}
		if err := rows.Scan(&u.ID, &u.UserName, &u.Position, &u.Level, &u.ResetPassword, &u.RegistrationDate, &u.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}

	return users, nil
}

// Create はユーザーを作成する。PasswordHashはハッシュ済みであること。
func (r *SQLUserRepo) Create(ctx context.Context, u *model.User) (int64, error) {
	id, err := insertReturningID(ctx, r.db, r.driver,
		`INSERT INTO users (user_name, position, level_user, password_user, reset_password) VALUES (?, ?, ?, ?, ?)`,
		"id",
		u.UserName, u.Position, u.Level, u.PasswordHash, u.ResetPassword,
	)
	if err != nil {
		if errors.Is(err, ErrDuplicate) {
			return 0, err
		}
		return 0, fmt.Errorf("failed to insert user: %w", err)
	}
	return id, nil
}

// Update はユーザー情報とパスワードハッシュを更新する。
func (r *SQLUserRepo) Update(ctx context.Context, u *model.User) error {
	result, err := r.db.ExecContext(ctx,
		r.q(`UPDATE users SET user_name = ?, position = ?, level_user = ?, password_user = ?, reset_password = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`),
		u.UserName, u.Position, u.Level, u.PasswordHash, u.ResetPassword, u.ID,
	)
	if err != nil {
		if mapped := mapDriverError(err); errors.Is(mapped, ErrDuplicate) {
			return mapped
		}
		return fmt.Errorf("failed to update user: %w", err)
	}
	return requireAffected(result)
}

// Delete は指定IDのユーザーを削除する。
func (r *SQLUserRepo) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, r.q(`DELETE FROM users WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return requireAffected(result)
}

// compile-time interface check
var _ UserRepository = (*SQLUserRepo)(nil)
