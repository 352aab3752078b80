package middleware

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"mime"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/hitoshi/assetdesk/internal/model"
)

const (
	// csrfCookieName はCSRFトークンを保持するCookieの名前。
	// 画面のJavaScriptがX-CSRF-Tokenヘッダーに載せるため、HttpOnlyにしない。
	csrfCookieName = "csrf_token"

	// csrfHeaderName は/api/historyなどfetchから呼ぶエンドポイントで使うヘッダー名。
	csrfHeaderName = "X-CSRF-Token"

	// csrfFormField はログイン画面などHTMLフォームの隠しフィールド名。
	csrfFormField = "csrf_token"

	// csrfCookieMaxAge はCSRFトークンCookieの有効期間（秒）。
	csrfCookieMaxAge = 24 * 60 * 60
)

// CSRFConfig はWeb層のCSRFミドルウェアの設定。
type CSRFConfig struct {
	CookieSecure bool
	CookieDomain string
}

// NewCSRFMiddleware はWeb層のダブルサブミットCookie方式のCSRF対策ミドルウェアを返す。
//
// GET・HEAD・OPTIONSでは検証せず、トークンCookieがなければ発行する。
// それ以外（/login、/logout、/api/historyへの送信など）は、CookieのトークンとX-CSRF-Tokenヘッダー、
// またはフォームのcsrf_tokenフィールドが一致しない限り403（CSRF_TOKEN_INVALID）を返す。
// JSONボディ内のcsrf_tokenは読まない。
func NewCSRFMiddleware(config CSRFConfig) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isSafeMethod(r.Method) {
				ensureCSRFCookie(w, r, config)
				next.ServeHTTP(w, r)
				return
			}

			cookie, err := r.Cookie(csrfCookieName)
			if err != nil || cookie.Value == "" {
				rejectCSRF(w, r, "missing cookie token")
				return
			}
			requestToken := csrfTokenFromRequest(r)
			if requestToken == "" {
				rejectCSRF(w, r, "missing request token")
				return
			}
			if subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(requestToken)) != 1 {
				rejectCSRF(w, r, "token mismatch")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// NewCSRFTokenHandler はGET /api/csrf-tokenのハンドラーを返す。
// 画面がfetch前にトークンを取得するために使う。Cookieのトークンがあればそれを返す。
func NewCSRFTokenHandler(config CSRFConfig) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := ensureCSRFCookie(w, r, config)
		if token == "" {
			WriteInternalServerError(w)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"token": token})
	})
}

// rejectCSRF は検証失敗を記録して403を返す。トークンの値はログに出さない。
func rejectCSRF(w http.ResponseWriter, r *http.Request, reason string) {
	slog.Warn("CSRF validation failed",
		slog.String("reason", reason),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("request_id", chimw.GetReqID(r.Context())),
		slog.String("client_ip", ClientIP(r)),
	)
	WriteErrorResponse(w, http.StatusForbidden, model.NewCSRFInvalidError())
}

// csrfTokenFromRequest はヘッダー、フォームの順にCSRFトークンを取り出す。
// フォームの読み取りはリクエストボディを消費するため、フォーム送信の場合に限る。
func csrfTokenFromRequest(r *http.Request) string {
	if v := r.Header.Get(csrfHeaderName); v != "" {
		return v
	}

	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return ""
	}
	switch mediaType {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		return r.FormValue(csrfFormField)
	default:
		return ""
	}
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	default:
		return false
	}
}

// ensureCSRFCookie は現在のトークンを返す。Cookieがなければ発行し、
// 同じリクエスト内の後続ハンドラーからも参照できるようにする。生成に失敗した場合は空文字。
func ensureCSRFCookie(w http.ResponseWriter, r *http.Request, config CSRFConfig) string {
	if c, err := r.Cookie(csrfCookieName); err == nil && c.Value != "" {
		return c.Value
	}

	token, err := generateCSRFToken()
	if err != nil {
		slog.Error("failed to generate CSRF token", slog.String("error", err.Error()))
		return ""
	}

	http.SetCookie(w, &http.Cookie{
		Name:     csrfCookieName,
		Value:    token,
		Path:     "/",
		Domain:   config.CookieDomain,
		MaxAge:   csrfCookieMaxAge,
		HttpOnly: false,
		Secure:   config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	r.AddCookie(&http.Cookie{Name: csrfCookieName, Value: token})
	return token
}

func generateCSRFToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
