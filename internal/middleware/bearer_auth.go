package middleware

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/assetdesk/internal/metrics"
	"github.com/hitoshi/assetdesk/internal/model"
	"github.com/hitoshi/assetdesk/internal/token"
)

// TokenVerifier はトークン検証のインターフェース。
type TokenVerifier interface {
	Verify(raw string) (*token.Claims, error)
}

// BearerAuthConfig はAPI層の認証ミドルウェアの設定。
type BearerAuthConfig struct {
	Verifier TokenVerifier
	Metrics  metrics.MetricsCollector
}

// NewBearerAuthMiddleware はAuthorization: Bearer ヘッダーのトークンを検証するミドルウェアを返す。
// 検証に成功した場合のみクレームをコンテキストに注入して次に進む。
//
//	トークンなし         → 401 Acesso negado, nenhum token fornecido
//	不正・期限切れ・改ざん → 403 Token inválido ou expirado
//	秘密鍵未設定         → 500 Erro no servidor
func NewBearerAuthMiddleware(cfg BearerAuthConfig) func(next http.Handler) http.Handler {
	m := cfg.Metrics
	if m == nil {
		m = metrics.Nop{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := token.FromAuthorizationHeader(r.Header.Get("Authorization"))

			claims, err := cfg.Verifier.Verify(raw)
			if err != nil {
				result := writeVerifyError(w, r, err)
				m.RecordVerification("api", result)
				return
			}

			m.RecordVerification("api", metrics.ResultOK)
			next.ServeHTTP(w, r.WithContext(ContextWithClaims(r.Context(), claims)))
		})
	}
}

// writeVerifyError は検証エラーの種別に応じたJSONレスポンスを書き込み、メトリクス用の結果ラベルを返す。
func writeVerifyError(w http.ResponseWriter, r *http.Request, err error) string {
	switch {
	case errors.Is(err, token.ErrMissingToken):
		WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return metrics.ResultMissing
	case errors.Is(err, token.ErrSecretNotConfigured):
		slog.Error("token secret is not configured",
			slog.String("path", r.URL.Path),
		)
		WriteErrorResponse(w, http.StatusInternalServerError, model.NewServerError())
		return metrics.ResultMisconfigured
	default:
		slog.Warn("token rejected",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		WriteErrorResponse(w, http.StatusForbidden, model.NewInvalidTokenError())
		return metrics.ResultInvalid
	}
}
