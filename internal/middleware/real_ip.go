package middleware

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// NewTrustedProxyMiddleware は信頼済みプロキシからのリクエストに限り、
// X-Forwarded-For（なければX-Real-IP）から元のクライアントIPを復元してRemoteAddrに設定する。
// 信頼済みでない接続元のヘッダーは無視する。trustedが空の場合は何もしない。
//
// X-Forwarded-Forは右から順に辿り、信頼済みプロキシでない最初のアドレスをクライアントとみなす。
func NewTrustedProxyMiddleware(trusted []netip.Prefix) func(next http.Handler) http.Handler {
	isTrusted := func(addr netip.Addr) bool {
		addr = addr.Unmap()
		for _, p := range trusted {
			if p.Contains(addr) {
				return true
			}
		}
		return false
	}

	return func(next http.Handler) http.Handler {
		if len(trusted) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			host, port, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			peer, err := netip.ParseAddr(host)
			if err != nil || !isTrusted(peer) {
				next.ServeHTTP(w, r)
				return
			}

			if client, ok := forwardedClient(r.Header, isTrusted); ok {
				r2 := r.Clone(r.Context())
				r2.RemoteAddr = net.JoinHostPort(client.String(), port)
				r = r2
			}
			next.ServeHTTP(w, r)
		})
	}
}

// forwardedClient は転送ヘッダーからクライアントIPを取り出す。
func forwardedClient(h http.Header, isTrusted func(netip.Addr) bool) (netip.Addr, bool) {
	var hops []string
	for _, v := range h.Values("X-Forwarded-For") {
		hops = append(hops, strings.Split(v, ",")...)
	}

	var last netip.Addr
	for i := len(hops) - 1; i >= 0; i-- {
		addr, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
		if err != nil {
			// 不正な値より左は信用できない
			break
		}
		addr = addr.Unmap()
		last = addr
		if !isTrusted(addr) {
			return addr, true
		}
	}
	if last.IsValid() {
		// 全てのホップが信頼済みの場合は最も左を採用する
		return last, true
	}

	if v := strings.TrimSpace(h.Get("X-Real-IP")); v != "" {
		if addr, err := netip.ParseAddr(v); err == nil {
			return addr.Unmap(), true
		}
	}
	return netip.Addr{}, false
}
