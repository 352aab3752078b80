package web

import (
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/hitoshi/assetdesk/internal/middleware"
	"github.com/hitoshi/assetdesk/internal/model"
)

// apiPathPrefix はAPI層へ転送する際に取り除くパスの接頭辞。
const apiPathPrefix = "/api"

// NewAPIProxy はセッションCookieのトークンをBearerヘッダーに載せ替えてAPI層へ転送するハンドラーを返す。
// /api/computers/3 は {target}/computers/3 に転送する。
// Cookieが無い場合はAPI層を呼ばずに 401 {success:false, message:"No token"} を返す。
// トークン自体の検証はAPI層で行う。
func NewAPIProxy(target *url.URL, cookie middleware.SessionCookieConfig) http.Handler {
	proxy := &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.Out.URL.Path = singleJoin(target.Path, strings.TrimPrefix(pr.In.URL.Path, apiPathPrefix))
			pr.Out.URL.RawPath = ""
			pr.SetXForwarded()

			// ブラウザのCookieはAPI層へ送らない
			pr.Out.Header.Del("Cookie")
			pr.Out.Header.Set("Authorization", "Bearer "+middleware.SessionToken(pr.In, cookie))
			otel.GetTextMapPropagator().Inject(pr.In.Context(), propagation.HeaderCarrier(pr.Out.Header))
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			slog.Error("api proxy failed",
				slog.String("path", r.URL.Path),
				slog.String("error", err.Error()),
			)
			middleware.WriteErrorResponse(w, http.StatusBadGateway, model.NewUpstreamFailedError())
		},
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if middleware.SessionToken(r, cookie) == "" {
			middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewNoTokenError())
			return
		}
		proxy.ServeHTTP(w, r)
	})
}

// NewFallbackHandler はAPI以外のリクエストを処理するハンドラーを返す。
// upstreamが指定されていればそこへ転送し、なければstaticDirのファイルを配信する。
func NewFallbackHandler(upstream *url.URL, staticDir string) http.Handler {
	if upstream != nil {
		proxy := &httputil.ReverseProxy{
			Rewrite: func(pr *httputil.ProxyRequest) {
				pr.SetURL(upstream)
				pr.SetXForwarded()
				otel.GetTextMapPropagator().Inject(pr.In.Context(), propagation.HeaderCarrier(pr.Out.Header))
			},
			ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
				slog.Error("web upstream failed",
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()),
				)
				w.WriteHeader(http.StatusBadGateway)
			},
		}
		return proxy
	}
	return http.FileServer(http.Dir(staticDir))
}

func singleJoin(base, path string) string {
	base = strings.TrimRight(base, "/")
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path
}
