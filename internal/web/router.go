package web

import (
	"log/slog"
	"net/http"
	"net/netip"
	"net/url"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/hitoshi/assetdesk/internal/metrics"
	"github.com/hitoshi/assetdesk/internal/middleware"
)

// RouterDeps はWeb層のNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	Logger      *slog.Logger
	Verifier    middleware.TokenVerifier
	Session     SessionConfig
	CSRF        middleware.CSRFConfig
	HSTS        bool
	RateLimiter *middleware.RateLimiter

	// TrustedProxies は前段のロードバランサーなど、転送ヘッダーを信用する接続元。
	TrustedProxies []netip.Prefix

	// ProtectedPrefix 配下はエッジゲートで保護する。
	ProtectedPrefix string

	LoginClient  LoginClient
	HistoryStore HistoryStoreInterface
	// APIBaseURL はAPI層のベースURL。/api/{users,computers,printers} の転送先。
	APIBaseURL *url.URL
	// Fallback は上記以外のリクエスト（画面・静的ファイル）を処理する。
	Fallback http.Handler

	Metrics        metrics.MetricsCollector
	MetricsHandler http.Handler
}

// NewRouter はWeb層のルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → TrustedProxy → Logging → Tracing → Status → Recovery → SecurityHeaders → EdgeGate → CSRF
//
// エッジゲートはProtectedPrefix配下のみに作用し、それ以外は素通しする。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	m := deps.Metrics
	if m == nil {
		m = metrics.Nop{}
	}
	if deps.Session.Metrics == nil {
		deps.Session.Metrics = m
	}
	cookie := deps.Session.Cookie

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(middleware.NewTrustedProxyMiddleware(deps.TrustedProxies))
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewTracingMiddleware("web"))
	r.Use(metrics.NewStatusMiddleware(m))
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware(deps.HSTS))
	r.Use(middleware.NewEdgeGateMiddleware(middleware.EdgeGateConfig{
		Verifier:        deps.Verifier,
		Cookie:          cookie,
		EntryPath:       deps.Session.EntryPath,
		ProtectedPrefix: deps.ProtectedPrefix,
		Metrics:         m,
	}))
	r.Use(middleware.NewCSRFMiddleware(deps.CSRF))

	fallback := deps.Fallback
	if fallback == nil {
		fallback = http.NotFoundHandler()
	}
	r.NotFound(fallback.ServeHTTP)
	r.MethodNotAllowed(fallback.ServeHTTP)

	loginHandler := NewLoginHandler(deps.LoginClient, deps.Session)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	r.Group(func(r chi.Router) {
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.LoginMiddleware())
		}
		r.Post("/login", loginHandler.Login)
	})
	r.Post("/logout", loginHandler.Logout)

	r.Route("/api", func(r chi.Router) {
		r.Method(http.MethodGet, "/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRF))

		if deps.HistoryStore != nil {
			historyHandler := NewHistoryHandler(deps.HistoryStore)
			r.Group(func(r chi.Router) {
				r.Use(middleware.NewCookieAuthMiddleware(middleware.CookieAuthConfig{
					Verifier: deps.Verifier,
					Cookie:   cookie,
					Metrics:  m,
				}))
				r.Get("/history", historyHandler.List)
				r.Post("/history", historyHandler.Append)
			})
		}

		if deps.APIBaseURL != nil {
			proxy := NewAPIProxy(deps.APIBaseURL, cookie)
			for _, resource := range []string{"/users", "/computers", "/printers"} {
				r.Handle(resource, proxy)
				r.Handle(resource+"/*", proxy)
			}
		}
	})

	return r
}
