package middleware

import (
	"net/http"
	"slices"
)

// NewCORSMiddleware はAPI層をブラウザから直接呼び出すフロントエンド向けのCORSミドルウェアを返す。
// リクエストのOriginが許可リストにある場合だけ、そのOriginを返す（ワイルドカードは使用しない）。
// API層はBearerトークンで認証するため、Cookieを送るcredentialsは許可しない。
// 許可されたOriginからのOPTIONSプリフライトには204で応答する。
// allowedOriginsが空の場合はCORSヘッダーを付与しない。
func NewCORSMiddleware(allowedOrigins []string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if len(allowedOrigins) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Add("Vary", "Origin")

			origin := r.Header.Get("Origin")
			if origin == "" || !slices.Contains(allowedOrigins, origin) {
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, traceparent, tracestate")
			w.Header().Set("Access-Control-Max-Age", "600")

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
