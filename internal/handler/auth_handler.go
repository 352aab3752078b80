// Package handler はAPI層のHTTPハンドラーを提供する。
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/assetdesk/internal/auth"
	"github.com/hitoshi/assetdesk/internal/metrics"
	"github.com/hitoshi/assetdesk/internal/middleware"
	"github.com/hitoshi/assetdesk/internal/model"
	"github.com/hitoshi/assetdesk/internal/token"
)

// LoginServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type LoginServiceInterface interface {
	Login(ctx context.Context, userName, password string) (*auth.LoginResult, error)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	Cookie  middleware.SessionCookieConfig
	Metrics metrics.MetricsCollector
}

// AuthHandler はログイン関連のHTTPハンドラー。
type AuthHandler struct {
	service LoginServiceInterface
	config  AuthHandlerConfig
	metrics metrics.MetricsCollector
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service LoginServiceInterface, config AuthHandlerConfig) *AuthHandler {
	m := config.Metrics
	if m == nil {
		m = metrics.Nop{}
	}
	return &AuthHandler{
		service: service,
		config:  config,
		metrics: m,
	}
}

// loginRequest はログインリクエストのボディ。
type loginRequest struct {
	UserName string `json:"user_name"`
	Password string `json:"password"`
}

// loginResponse はログイン成功時のレスポンス。
type loginResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Token   string `json:"token"`
	Reset   bool   `json:"reset"`
}

// Validate は資格情報を照合し、トークンを発行する。
// POST /users/validate
//
// 成功時はトークンをボディとセッションCookieの両方で返す。
// 失敗時はトークンもCookieも発行しない。
func (h *AuthHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if isFormRequest(r) {
		req.UserName = r.FormValue("user_name")
		req.Password = r.FormValue("password")
	} else if !decodeJSON(w, r, &req) {
		h.metrics.RecordLogin(metrics.LoginMissingFields)
		return
	}

	result, err := h.service.Login(r.Context(), req.UserName, req.Password)
	if err != nil {
		h.writeLoginError(w, r, err)
		return
	}

	ttl := result.Claims.ExpiresAtTime().Sub(result.Claims.IssuedAtTime())
	middleware.SetSessionCookie(w, h.config.Cookie, result.Token, ttl)
	h.metrics.RecordLogin(metrics.LoginSuccess)

	msg := "Login bem-sucedido"
	if result.Reset {
		msg = "Resete de senha necessário"
	}
	writeJSON(w, http.StatusOK, loginResponse{
		Success: true,
		Message: msg,
		Token:   result.Token,
		Reset:   result.Reset,
	})
}

// writeLoginError はログイン失敗の種別に応じたレスポンスを書き込む。
func (h *AuthHandler) writeLoginError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrMissingFields):
		h.metrics.RecordLogin(metrics.LoginMissingFields)
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewMissingFieldsError())
	case errors.Is(err, auth.ErrInvalidCredentials):
		h.metrics.RecordLogin(metrics.LoginRejected)
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewInvalidCredentialsError())
	case errors.Is(err, token.ErrSecretNotConfigured):
		h.metrics.RecordLogin(metrics.LoginError)
		slog.Error("token secret is not configured", slog.String("path", r.URL.Path))
		middleware.WriteErrorResponse(w, http.StatusInternalServerError, model.NewServerError())
	default:
		h.metrics.RecordLogin(metrics.LoginError)
		slog.Error("login failed", slog.String("error", err.Error()))
		middleware.WriteErrorResponse(w, http.StatusInternalServerError, model.NewInternalError())
	}
}

// meResponse は検証済みクレームの内容。
type meResponse struct {
	ID        int64  `json:"id"`
	UserName  string `json:"user_name"`
	Level     int    `json:"level_user"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}

// Me は検証済みトークンのクレームを返す。
// GET /users/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	writeJSON(w, http.StatusOK, listResponse{
		Success: true,
		Data: meResponse{
			ID:        claims.UserID,
			UserName:  claims.UserName,
			Level:     claims.Level,
			IssuedAt:  claims.IssuedAtTime().Unix(),
			ExpiresAt: claims.ExpiresAtTime().Unix(),
		},
	})
}
