package middleware

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/assetdesk/internal/token"
)

var testSecret = []byte("middleware-test-secret")

// testClock はテストで時刻を進めるための可変クロック。
type testClock struct{ t time.Time }

func (c *testClock) Now() time.Time          { return c.t }
func (c *testClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestClock() *testClock {
	return &testClock{t: time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)}
}

// issueTestToken は指定レベルのトークンを発行する。
func issueTestToken(t *testing.T, clock *testClock, userID int64, level int) string {
	t.Helper()
	signed, _, err := token.NewIssuer(token.Config{Secret: testSecret, Now: clock.Now}).Issue(userID, "tester", level)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return signed
}

func newTestVerifier(clock *testClock) *token.Verifier {
	return token.NewVerifier(token.Config{Secret: testSecret, Now: clock.Now})
}

// decodeError はレスポンスボディを統一エラーフォーマットとして読み取る。
func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponseBody {
	t.Helper()
	var body ErrorResponseBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error body: %v\nraw: %s", err, w.Body.String())
	}
	return body
}

// recordingMetrics は記録されたラベルを保持するMetricsCollector。
type recordingMetrics struct {
	verifications []string
	denials       []string
	redirects     []string
}

func (m *recordingMetrics) RecordVerification(tier, result string) {
	m.verifications = append(m.verifications, tier+"/"+result)
}

func (m *recordingMetrics) RecordLogin(string)                 {}
func (m *recordingMetrics) RecordRoleDenial(action string)     { m.denials = append(m.denials, action) }
func (m *recordingMetrics) RecordEdgeRedirect(reason string)   { m.redirects = append(m.redirects, reason) }
func (m *recordingMetrics) RecordHTTPStatus(int)               {}
func (m *recordingMetrics) RecordRequestLatency(time.Duration) {}
