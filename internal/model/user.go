// Package model はドメインモデルを定義する。
package model

import "time"

// User はシステムの操作者を表す。
// PasswordHashはbcryptハッシュで、レスポンスに含めてはならない。
type User struct {
	ID               int64
	UserName         string
	Position         string
	Level            int
	PasswordHash     string
	ResetPassword    int
	RegistrationDate time.Time
	UpdatedAt        time.Time
}

// MustResetPassword は次回ログイン時にパスワード変更が必要かを返す。
func (u *User) MustResetPassword() bool {
	return u.ResetPassword != 0
}

// Credential はログイン時に参照する資格情報レコード。
// ログイン処理は読み取りのみ行う。
type Credential struct {
	UserID        int64
	UserName      string
	PasswordHash  string
	Level         int
	ResetPassword int
}
