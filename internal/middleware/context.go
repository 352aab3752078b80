// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"

	"github.com/hitoshi/assetdesk/internal/token"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

var (
	// claimsContextKey は検証済みクレームを格納するためのキー。
	claimsContextKey = contextKey("claims")
	// annotationsContextKey は外側のミドルウェアへ認証結果を伝えるためのキー。
	annotationsContextKey = contextKey("annotations")
)

// requestAnnotations は内側のミドルウェアが設定した値を、
// 外側のロギングミドルウェアが参照するための可変領域。
type requestAnnotations struct {
	claims *token.Claims
}

// withAnnotations は既存の領域があればそれを返し、なければ新しく作成する。
func withAnnotations(ctx context.Context) (context.Context, *requestAnnotations) {
	if a, ok := ctx.Value(annotationsContextKey).(*requestAnnotations); ok {
		return ctx, a
	}
	a := &requestAnnotations{}
	return context.WithValue(ctx, annotationsContextKey, a), a
}

// ContextWithClaims はコンテキストに検証済みクレームを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithClaims(ctx context.Context, claims *token.Claims) context.Context {
	if a, ok := ctx.Value(annotationsContextKey).(*requestAnnotations); ok {
		a.claims = claims
	}
	return context.WithValue(ctx, claimsContextKey, claims)
}

// ClaimsFromContext はリクエストコンテキストから検証済みクレームを取得する。
// 認証ミドルウェアを通過していない場合はnilを返す。
func ClaimsFromContext(ctx context.Context) *token.Claims {
	claims, _ := ctx.Value(claimsContextKey).(*token.Claims)
	return claims
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
func UserIDFromContext(ctx context.Context) (int64, error) {
	claims := ClaimsFromContext(ctx)
	if claims == nil || claims.UserID == 0 {
		return 0, fmt.Errorf("user ID not found in context")
	}
	return claims.UserID, nil
}
