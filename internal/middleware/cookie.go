package middleware

import (
	"net/http"
	"time"
)

// DefaultSessionCookieName はセッショントークンを保持するCookieの既定名。
const DefaultSessionCookieName = "authToken"

// SessionCookieConfig はセッションCookieの属性。
type SessionCookieConfig struct {
	Name   string
	Secure bool
	Domain string
}

func (c SessionCookieConfig) name() string {
	if c.Name == "" {
		return DefaultSessionCookieName
	}
	return c.Name
}

// SetSessionCookie はトークンをHttpOnly Cookieとして設定する。
// 有効期間はトークンと同じttlに揃える。
func SetSessionCookie(w http.ResponseWriter, cfg SessionCookieConfig, value string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     cfg.name(),
		Value:    value,
		Path:     "/",
		Domain:   cfg.Domain,
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie はセッションCookieを削除する。
func ClearSessionCookie(w http.ResponseWriter, cfg SessionCookieConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     cfg.name(),
		Value:    "",
		Path:     "/",
		Domain:   cfg.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// SessionToken はリクエストのセッションCookieからトークンを取り出す。未設定の場合は空文字列。
func SessionToken(r *http.Request, cfg SessionCookieConfig) string {
	cookie, err := r.Cookie(cfg.name())
	if err != nil {
		return ""
	}
	return cookie.Value
}
