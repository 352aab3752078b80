package middleware

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/assetdesk/internal/authz"
	"github.com/hitoshi/assetdesk/internal/metrics"
	"github.com/hitoshi/assetdesk/internal/model"
)

// RoleGate はアクション単位のロールレベル判定を行う。
type RoleGate struct {
	policy  *authz.Policy
	metrics metrics.MetricsCollector
}

// NewRoleGate はRoleGateを生成する。policyがnilの場合は既定のポリシーを使う。
func NewRoleGate(policy *authz.Policy, m metrics.MetricsCollector) *RoleGate {
	if policy == nil {
		policy = authz.DefaultPolicy()
	}
	if m == nil {
		m = metrics.Nop{}
	}
	return &RoleGate{policy: policy, metrics: m}
}

// Require は指定アクションのしきい値を満たすリクエストのみ通すミドルウェアを返す。
// 認証ミドルウェアの後に配置すること。クレームがない場合は401、しきい値未満は403を返す。
func (g *RoleGate) Require(action authz.Action) func(next http.Handler) http.Handler {
	threshold := g.policy.Threshold(action)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := ClaimsFromContext(r.Context())

			err := authz.Authorize(claims, threshold)
			switch {
			case err == nil:
				next.ServeHTTP(w, r)
			case errors.Is(err, authz.ErrUnauthenticated):
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
			default:
				g.metrics.RecordRoleDenial(string(action))
				slog.Warn("insufficient privilege",
					slog.Int64("user_id", claims.UserID),
					slog.Int("level_user", claims.Level),
					slog.String("action", string(action)),
					slog.Int("threshold", threshold),
				)
				WriteErrorResponse(w, http.StatusForbidden, model.NewForbiddenError())
			}
		})
	}
}
