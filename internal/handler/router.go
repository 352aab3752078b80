package handler

import (
	"log/slog"
	"net/http"
	"net/netip"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/hitoshi/assetdesk/internal/authz"
	"github.com/hitoshi/assetdesk/internal/metrics"
	"github.com/hitoshi/assetdesk/internal/middleware"
	"github.com/hitoshi/assetdesk/internal/model"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger             *slog.Logger
	Verifier           middleware.TokenVerifier
	Policy             *authz.Policy
	CORSAllowedOrigins []string
	HSTS               bool
	RateLimiter        *middleware.RateLimiter

	// TrustedProxies からの接続に限り転送ヘッダーのクライアントIPを使う（Web層など）。
	TrustedProxies []netip.Prefix

	// 運用
	HealthChecker  HealthChecker
	Metrics        metrics.MetricsCollector
	MetricsHandler http.Handler

	// 認証
	AuthService LoginServiceInterface
	AuthConfig  AuthHandlerConfig

	// リソース
	UserService     UserServiceInterface
	ComputerService ComputerServiceInterface
	PrinterService  PrinterServiceInterface
}

// NewRouter はAPI層の全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → TrustedProxy → Logging → Tracing → Status → Recovery → SecurityHeaders → CORS
//	  保護ルート: → BearerAuth → RateLimit(General) → RoleGate（更新系のみ）
//
// ログイン（POST /users/validate）、/health、/metrics は認証の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	m := deps.Metrics
	if m == nil {
		m = metrics.Nop{}
	}
	if deps.AuthConfig.Metrics == nil {
		deps.AuthConfig.Metrics = m
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(middleware.NewTrustedProxyMiddleware(deps.TrustedProxies))
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewTracingMiddleware("api"))
	r.Use(metrics.NewStatusMiddleware(m))
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware(deps.HSTS))
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigins))

	notFound := func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteErrorResponse(w, http.StatusNotFound, model.NewRouteNotFoundError(r.URL.Path))
	}
	r.NotFound(notFound)
	r.MethodNotAllowed(notFound)

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	userHandler := NewUserHandler(deps.UserService)
	computerHandler := NewComputerHandler(deps.ComputerService)
	printerHandler := NewPrinterHandler(deps.PrinterService)
	gate := middleware.NewRoleGate(deps.Policy, m)

	// --- 認証不要のルート ---

	r.Get("/health", NewHealthHandler(deps.HealthChecker))
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	r.Group(func(r chi.Router) {
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.LoginMiddleware())
		}
		r.Post("/users/validate", authHandler.Validate)
	})

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: BearerAuth → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewBearerAuthMiddleware(middleware.BearerAuthConfig{
			Verifier: deps.Verifier,
			Metrics:  m,
		}))
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.GeneralMiddleware())
		}

		// ユーザー管理
		r.Get("/users", userHandler.List)
		r.Get("/users/me", authHandler.Me)
		r.Get("/users/{id}", userHandler.Get)
		r.With(gate.Require(authz.ActionUsersCreate)).Post("/users", userHandler.Create)
		r.With(gate.Require(authz.ActionUsersUpdate)).Put("/users/update", userHandler.Update)
		r.With(gate.Require(authz.ActionUsersDelete)).Delete("/users/delete", userHandler.Delete)

		// コンピューター
		r.Get("/computers", computerHandler.List)
		r.With(gate.Require(authz.ActionComputersCreate)).Post("/computers", computerHandler.Create)
		r.With(gate.Require(authz.ActionComputersUpdate)).Put("/computers", computerHandler.Update)
		r.With(gate.Require(authz.ActionComputersDelete)).Delete("/computers/{id_computer}", computerHandler.Delete)

		// プリンター
		r.Get("/printers", printerHandler.List)
		r.With(gate.Require(authz.ActionPrintersCreate)).Post("/printers", printerHandler.Create)
		r.With(gate.Require(authz.ActionPrintersUpdate)).Put("/printers", printerHandler.Update)
		r.With(gate.Require(authz.ActionPrintersDelete)).Delete("/printers/{id_printer}", printerHandler.Delete)
	})

	return r
}
