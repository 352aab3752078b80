package middleware

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	chimw "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// NewRecoveryMiddleware はハンドラーのpanicを500の統一エラーレスポンスに変換するミドルウェアを返す。
// panicの内容はリクエストID・クライアントIP・ユーザーIDと共にログへ記録し、
// 実行中のスパンにも例外として残す。http.ErrAbortHandlerはnet/httpの中断処理に任せる。
func NewRecoveryMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(rec)
				}

				attrs := []any{
					slog.Any("panic", rec),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("request_id", chimw.GetReqID(r.Context())),
					slog.String("client_ip", ClientIP(r)),
				}
				if a, ok := r.Context().Value(annotationsContextKey).(*requestAnnotations); ok && a.claims != nil {
					attrs = append(attrs, slog.Int64("user_id", a.claims.UserID))
				}
				attrs = append(attrs, slog.String("stack", string(debug.Stack())))
				slog.Error("panic recovered", attrs...)

				span := trace.SpanFromContext(r.Context())
				span.RecordError(fmt.Errorf("panic: %v", rec), trace.WithStackTrace(true))
				span.SetStatus(codes.Error, "panic")

				WriteInternalServerError(w)
			}()
			next.ServeHTTP(w, r)
		})
	}
}
