// Package authz はロールレベルによる認可判定を提供する。
// ロールレベルは順序付きの整数スケールで、アクションごとのしきい値と >= で比較する。
package authz

import (
	"errors"

	"github.com/hitoshi/assetdesk/internal/token"
)

var (
	// ErrUnauthenticated は検証済みの識別情報が存在しないことを示す。
	ErrUnauthenticated = errors.New("authz: no verified identity")
	// ErrInsufficientPrivilege はロールレベルがしきい値に満たないことを示す。
	ErrInsufficientPrivilege = errors.New("authz: insufficient privilege")
)

// Allow はclaims.Level >= threshold の場合にtrueを返す。claimsがnilの場合はfalse。
func Allow(claims *token.Claims, threshold int) bool {
	return Authorize(claims, threshold) == nil
}

// Authorize はロールレベルを判定する。
// claimsはトークン検証済みのものを渡すこと。クライアントが送ったロール値を直接渡してはならない。
func Authorize(claims *token.Claims, threshold int) error {
	if claims == nil {
		return ErrUnauthenticated
	}
	if claims.Level < threshold {
		return ErrInsufficientPrivilege
	}
	return nil
}
