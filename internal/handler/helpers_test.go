package handler

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/assetdesk/internal/auth"
	"github.com/hitoshi/assetdesk/internal/middleware"
	"github.com/hitoshi/assetdesk/internal/model"
	"github.com/hitoshi/assetdesk/internal/token"
	"github.com/hitoshi/assetdesk/internal/user"
)

var testSecret = []byte("handler-test-secret")

// testClock はテストで時刻を進めるための可変クロック。
type testClock struct{ t time.Time }

func (c *testClock) Now() time.Time          { return c.t }
func (c *testClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestClock() *testClock {
	return &testClock{t: time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)}
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

// --- モック定義 ---

type mockLoginService struct {
	loginFn func(ctx context.Context, userName, password string) (*auth.LoginResult, error)
}

func (m *mockLoginService) Login(ctx context.Context, userName, password string) (*auth.LoginResult, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, userName, password)
	}
	return nil, auth.ErrInvalidCredentials
}

type mockUserService struct {
	listFn   func(ctx context.Context) ([]*model.User, error)
	getFn    func(ctx context.Context, id int64) (*model.User, error)
	createFn func(ctx context.Context, in user.Input) (int64, error)
	updateFn func(ctx context.Context, in user.Input) error
	deleteFn func(ctx context.Context, id int64) error
}

func (m *mockUserService) List(ctx context.Context) ([]*model.User, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

func (m *mockUserService) Get(ctx context.Context, id int64) (*model.User, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, model.NewUserNotFoundError()
}

func (m *mockUserService) Create(ctx context.Context, in user.Input) (int64, error) {
	if m.createFn != nil {
		return m.createFn(ctx, in)
	}
	return 1, nil
}

func (m *mockUserService) Update(ctx context.Context, in user.Input) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, in)
	}
	return nil
}

func (m *mockUserService) Delete(ctx context.Context, id int64) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

type mockComputerService struct {
	listFn   func(ctx context.Context) ([]*model.Computer, error)
	createFn func(ctx context.Context, c *model.Computer) (int64, error)
	updateFn func(ctx context.Context, c *model.Computer) error
	deleteFn func(ctx context.Context, id int64) error
}

func (m *mockComputerService) List(ctx context.Context) ([]*model.Computer, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

func (m *mockComputerService) Create(ctx context.Context, c *model.Computer) (int64, error) {
	if m.createFn != nil {
		return m.createFn(ctx, c)
	}
	return 1, nil
}

func (m *mockComputerService) Update(ctx context.Context, c *model.Computer) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, c)
	}
	return nil
}

func (m *mockComputerService) Delete(ctx context.Context, id int64) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

type mockPrinterService struct {
	listFn   func(ctx context.Context) ([]*model.Printer, error)
	createFn func(ctx context.Context, p *model.Printer) (int64, error)
	updateFn func(ctx context.Context, p *model.Printer) error
	deleteFn func(ctx context.Context, id int64) error
}

func (m *mockPrinterService) List(ctx context.Context) ([]*model.Printer, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

func (m *mockPrinterService) Create(ctx context.Context, p *model.Printer) (int64, error) {
	if m.createFn != nil {
		return m.createFn(ctx, p)
	}
	return 1, nil
}

func (m *mockPrinterService) Update(ctx context.Context, p *model.Printer) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, p)
	}
	return nil
}

func (m *mockPrinterService) Delete(ctx context.Context, id int64) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

type mockCredentialStore struct {
	creds map[string]*model.Credential
}

func (m *mockCredentialStore) FindByUsername(_ context.Context, userName string) (*model.Credential, error) {
	return m.creds[userName], nil
}

type mockHealthChecker struct {
	err error
}

func (m *mockHealthChecker) PingContext(context.Context) error { return m.err }

// --- compile-time interface checks ---

var (
	_ LoginServiceInterface    = (*mockLoginService)(nil)
	_ UserServiceInterface     = (*mockUserService)(nil)
	_ ComputerServiceInterface = (*mockComputerService)(nil)
	_ PrinterServiceInterface  = (*mockPrinterService)(nil)
	_ HealthChecker            = (*mockHealthChecker)(nil)
)
