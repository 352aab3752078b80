package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hitoshi/assetdesk/internal/metrics"
	"github.com/hitoshi/assetdesk/internal/middleware"
	"github.com/hitoshi/assetdesk/internal/model"
)

// LoginClient はAPI層へのログイン中継のインターフェース。
type LoginClient interface {
	Validate(ctx context.Context, clientIP, userName, password string) (*LoginReply, error)
}

// SessionConfig はログイン・ログアウトの設定。
type SessionConfig struct {
	Cookie middleware.SessionCookieConfig
	// TTL はセッションCookieの有効期間。トークンの有効期間と揃える。
	TTL time.Duration
	// EntryPath はログアウト後の遷移先。
	EntryPath string
	// HomePath はフォームログイン成功後の遷移先。
	HomePath string
	Metrics  metrics.MetricsCollector
}

// LoginHandler はWeb層のログイン・ログアウトを処理する。
type LoginHandler struct {
	client LoginClient
	config SessionConfig
}

// NewLoginHandler はLoginHandlerの新しいインスタンスを生成する。
func NewLoginHandler(client LoginClient, config SessionConfig) *LoginHandler {
	if config.EntryPath == "" {
		config.EntryPath = "/"
	}
	if config.HomePath == "" {
		config.HomePath = "/system/home"
	}
	if config.TTL <= 0 {
		config.TTL = 3 * time.Hour
	}
	if config.Metrics == nil {
		config.Metrics = metrics.Nop{}
	}
	return &LoginHandler{client: client, config: config}
}

// loginForm はログインフォームの入力。画面の旧フィールド名nameも受け付ける。
type loginForm struct {
	Name     string `json:"name"`
	UserName string `json:"user_name"`
	Password string `json:"password"`
}

func (f loginForm) userName() string {
	if f.UserName != "" {
		return strings.TrimSpace(f.UserName)
	}
	return strings.TrimSpace(f.Name)
}

// Login は資格情報をAPI層へ中継し、成功時にセッションCookieを設定する。
// POST /login
//
//	フォーム送信成功 → 303 HomePath
//	JSON送信成功     → 200 {success:true, reset}
//	失敗             → API層のステータスとメッセージ {success:false, message}
func (h *LoginHandler) Login(w http.ResponseWriter, r *http.Request) {
	form := isFormRequest(r)

	var in loginForm
	if form {
		if err := r.ParseForm(); err != nil {
			middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidDataError(""))
			return
		}
		in = loginForm{
			Name:     r.PostFormValue("name"),
			UserName: r.PostFormValue("user_name"),
			Password: r.PostFormValue("password"),
		}
	} else if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidDataError(""))
		return
	}

	if in.userName() == "" || in.Password == "" {
		h.config.Metrics.RecordLogin(metrics.LoginMissingFields)
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewMissingFieldsError())
		return
	}

	reply, err := h.client.Validate(r.Context(), middleware.ClientIP(r), in.userName(), in.Password)
	if err != nil {
		h.config.Metrics.RecordLogin(metrics.LoginError)
		if !errors.Is(err, ErrUpstream) {
			slog.Error("login relay failed", slog.String("error", err.Error()))
		}
		middleware.WriteErrorResponse(w, http.StatusBadGateway, model.NewUpstreamFailedError())
		return
	}

	if !reply.Success || reply.Token == "" {
		h.config.Metrics.RecordLogin(metrics.LoginRejected)
		status := reply.StatusCode
		if status < http.StatusBadRequest {
			status = http.StatusUnauthorized
		}
		writeJSON(w, status, resultResponse{Success: false, Message: reply.Message})
		return
	}

	middleware.SetSessionCookie(w, h.config.Cookie, reply.Token, h.config.TTL)
	h.config.Metrics.RecordLogin(metrics.LoginSuccess)

	if form {
		http.Redirect(w, r, h.config.HomePath, http.StatusSeeOther)
		return
	}
	reset := reply.Reset
	writeJSON(w, http.StatusOK, resultResponse{Success: true, Message: reply.Message, Reset: &reset})
}

// Logout はセッションCookieを削除しエントリーパスへ遷移させる。
// POST /logout
func (h *LoginHandler) Logout(w http.ResponseWriter, r *http.Request) {
	middleware.ClearSessionCookie(w, h.config.Cookie)
	http.Redirect(w, r, h.config.EntryPath, http.StatusSeeOther)
}
