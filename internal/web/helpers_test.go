package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/hitoshi/assetdesk/internal/middleware"
	"github.com/hitoshi/assetdesk/internal/telemetry"
	"github.com/hitoshi/assetdesk/internal/token"
)

var testSecret = []byte("web-test-secret")

// testClock はテストで時刻を進めるための可変クロック。
type testClock struct{ t time.Time }

func (c *testClock) Now() time.Time          { return c.t }
func (c *testClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestClock() *testClock {
	return &testClock{t: time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)}
}

// tracedContext はW3C Trace Contextのプロパゲーターを設定し、記録中のスパンを持つコンテキストを返す。
func tracedContext(t *testing.T) (context.Context, string) {
	t.Helper()
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(telemetry.Propagator())

	tp := telemetry.NewTracerProvider("assetdesk-web-test")
	ctx, span := tp.Tracer("test").Start(context.Background(), "request")
	t.Cleanup(func() {
		span.End()
		_ = tp.Shutdown(context.Background())
		otel.SetTextMapPropagator(prev)
	})
	return ctx, span.SpanContext().TraceID().String()
}

func testTokenConfig(clock *testClock) token.Config {
	return token.Config{Secret: testSecret, Now: clock.Now}
}

func issueTestToken(t *testing.T, clock *testClock, userID int64, level int) string {
	t.Helper()
	signed, _, err := token.NewIssuer(testTokenConfig(clock)).Issue(userID, "tester", level)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return signed
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) middleware.ErrorResponseBody {
	t.Helper()
	var body middleware.ErrorResponseBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error body: %v\nraw: %s", err, w.Body.String())
	}
	return body
}

func findCookie(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// mockLoginClient はLoginClientのモック。
type mockLoginClient struct {
	validateFn func(ctx context.Context, clientIP, userName, password string) (*LoginReply, error)
}

func (m *mockLoginClient) Validate(ctx context.Context, clientIP, userName, password string) (*LoginReply, error) {
	if m.validateFn != nil {
		return m.validateFn(ctx, clientIP, userName, password)
	}
	return &LoginReply{Success: false, Message: "Usuário ou senha incorretos", StatusCode: http.StatusUnauthorized}, nil
}

// --- compile-time interface checks ---

var (
	_ LoginClient              = (*mockLoginClient)(nil)
	_ LoginClient              = (*APIClient)(nil)
	_ middleware.TokenVerifier = (*token.Verifier)(nil)
)
