package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/assetdesk/internal/metrics"
	"github.com/hitoshi/assetdesk/internal/model"
	"github.com/hitoshi/assetdesk/internal/token"
)

// EdgeGateConfig はWeb層のエッジゲートの設定。
type EdgeGateConfig struct {
	Verifier TokenVerifier
	Cookie   SessionCookieConfig
	// EntryPath は未認証時のリダイレクト先（ログイン画面）。
	EntryPath string
	// ProtectedPrefix 配下（prefix自身と prefix/...）のみを保護する。
	ProtectedPrefix string
	Metrics         metrics.MetricsCollector
}

// IsProtectedPath はpathが保護対象プレフィックスに該当するかを判定する。
// "/system" と "/system/..." は該当し、"/systemx" は該当しない。
func IsProtectedPath(path, prefix string) bool {
	prefix = strings.TrimRight(prefix, "/")
	if prefix == "" {
		return true
	}
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

// NewEdgeGateMiddleware はセッションCookieを検証し、保護対象パスへの未認証アクセスを
// エントリーパスへリダイレクトするミドルウェアを返す。
//
//	保護対象外・EntryPath → そのまま通す
//	Cookieなし          → 307 EntryPath
//	有効なトークン       → そのまま通す（リクエストは書き換えない）
//	不正・期限切れ・秘密鍵未設定 → Cookieを削除して 307 EntryPath
func NewEdgeGateMiddleware(cfg EdgeGateConfig) func(next http.Handler) http.Handler {
	entry := cfg.EntryPath
	if entry == "" {
		entry = "/"
	}
	m := cfg.Metrics
	if m == nil {
		m = metrics.Nop{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// EntryPathはリダイレクト先のため、保護対象に含まれても通す
			if r.URL.Path == entry || !IsProtectedPath(r.URL.Path, cfg.ProtectedPrefix) {
				next.ServeHTTP(w, r)
				return
			}

			raw := SessionToken(r, cfg.Cookie)
			if raw == "" {
				m.RecordVerification("web", metrics.ResultMissing)
				m.RecordEdgeRedirect(metrics.ResultMissing)
				http.Redirect(w, r, entry, http.StatusTemporaryRedirect)
				return
			}

			if _, err := cfg.Verifier.Verify(raw); err != nil {
				reason := metrics.ResultInvalid
				if errors.Is(err, token.ErrSecretNotConfigured) {
					reason = metrics.ResultMisconfigured
					slog.Error("token secret is not configured", slog.String("path", r.URL.Path))
				} else {
					slog.Warn("session cookie rejected",
						slog.String("path", r.URL.Path),
						slog.String("error", err.Error()),
					)
				}
				m.RecordVerification("web", reason)
				m.RecordEdgeRedirect(reason)
				ClearSessionCookie(w, cfg.Cookie)
				http.Redirect(w, r, entry, http.StatusTemporaryRedirect)
				return
			}

			m.RecordVerification("web", metrics.ResultOK)
			next.ServeHTTP(w, r)
		})
	}
}

// CookieAuthConfig はWeb層のJSON APIで使うCookie認証の設定。
type CookieAuthConfig struct {
	Verifier TokenVerifier
	Cookie   SessionCookieConfig
	Metrics  metrics.MetricsCollector
}

// NewCookieAuthMiddleware はセッションCookieを検証し、クレームをコンテキストに注入するミドルウェアを返す。
// リダイレクトの代わりにAPI層と同じJSONエラーを返す。不正なCookieは削除する。
func NewCookieAuthMiddleware(cfg CookieAuthConfig) func(next http.Handler) http.Handler {
	m := cfg.Metrics
	if m == nil {
		m = metrics.Nop{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := SessionToken(r, cfg.Cookie)
			if raw == "" {
				m.RecordVerification("web", metrics.ResultMissing)
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
				return
			}

			claims, err := cfg.Verifier.Verify(raw)
			if err != nil {
				if !errors.Is(err, token.ErrSecretNotConfigured) {
					ClearSessionCookie(w, cfg.Cookie)
				}
				m.RecordVerification("web", writeVerifyError(w, r, err))
				return
			}

			m.RecordVerification("web", metrics.ResultOK)
			next.ServeHTTP(w, r.WithContext(ContextWithClaims(r.Context(), claims)))
		})
	}
}
