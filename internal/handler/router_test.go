package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/assetdesk/internal/auth"
	"github.com/hitoshi/assetdesk/internal/authz"
	"github.com/hitoshi/assetdesk/internal/model"
	"github.com/hitoshi/assetdesk/internal/token"
	"github.com/hitoshi/assetdesk/internal/user"
)

// apiFixture は実際のauth.Serviceとトークン検証器で組み立てたルーターを保持する。
type apiFixture struct {
	clock   *testClock
	router  http.Handler
	created bool
}

func newAPIFixture(t *testing.T, cfg token.Config) *apiFixture {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	store := &mockCredentialStore{creds: map[string]*model.Credential{
		"alice": {UserID: 1, UserName: "alice", PasswordHash: string(hash), Level: 2},
		"bob":   {UserID: 2, UserName: "bob", PasswordHash: string(hash), Level: 1, ResetPassword: 1},
	}}

	f := &apiFixture{}
	f.router = NewRouter(&RouterDeps{
		Verifier:    token.NewVerifier(cfg),
		Policy:      authz.DefaultPolicy(),
		AuthService: auth.NewService(store, nil, token.NewIssuer(cfg)),
		UserService: &mockUserService{
			createFn: func(context.Context, user.Input) (int64, error) {
				f.created = true
				return 10, nil
			},
		},
		ComputerService: &mockComputerService{},
		PrinterService:  &mockPrinterService{},
		HealthChecker:   &mockHealthChecker{},
	})
	return f
}

func (f *apiFixture) do(method, path, bearer, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func newDefaultFixture(t *testing.T) *apiFixture {
	t.Helper()
	clock := newTestClock()
	f := newAPIFixture(t, testTokenConfig(clock))
	f.clock = clock
	return f
}

const newUserBody = `{"user_name":"dave","position":"Suporte","level_user":1,"password":"abcd","reset_password":1}`

func TestRouter_Login_WrongPassword(t *testing.T) {
	f := newDefaultFixture(t)

	w := f.do(http.MethodPost, "/users/validate", "", `{"user_name":"alice","password":"wrong"}`)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
	if c := sessionCookie(w); c != nil {
		t.Error("failed login must not set a session cookie")
	}
	if body := decodeError(t, w); body.Message != "Usuário ou senha incorretos" {
		t.Errorf("message = %q", body.Message)
	}
}

func TestRouter_Login_UnknownUserLooksLikeWrongPassword(t *testing.T) {
	f := newDefaultFixture(t)

	unknown := f.do(http.MethodPost, "/users/validate", "", `{"user_name":"mallory","password":"s3cret"}`)
	wrong := f.do(http.MethodPost, "/users/validate", "", `{"user_name":"alice","password":"nope"}`)

	if unknown.Code != wrong.Code || unknown.Body.String() != wrong.Body.String() {
		t.Errorf("responses differ: %d %s / %d %s", unknown.Code, unknown.Body, wrong.Code, wrong.Body)
	}
}

func TestRouter_LoginThenAdminCreatesUser(t *testing.T) {
	f := newDefaultFixture(t)

	w := f.do(http.MethodPost, "/users/validate", "", `{"user_name":"alice","password":"s3cret"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d: %s", w.Code, w.Body.String())
	}
	c := sessionCookie(w)
	if c == nil || c.Value == "" {
		t.Fatal("expected session cookie after login")
	}

	w = f.do(http.MethodPost, "/users", c.Value, newUserBody)
	if w.Code != http.StatusCreated {
		t.Errorf("create status = %d, want 201: %s", w.Code, w.Body.String())
	}
	if !f.created {
		t.Error("user service was not called")
	}
}

func TestRouter_StandardUser_CannotCreateUser(t *testing.T) {
	f := newDefaultFixture(t)
	tok := issueTestToken(t, f.clock, 2, 1)

	w := f.do(http.MethodPost, "/users", tok, newUserBody)

	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}
	if body := decodeError(t, w); body.Message != "Você não tem permissão para isso" {
		t.Errorf("message = %q", body.Message)
	}
	if f.created {
		t.Error("handler must not run for a denied request")
	}
}

func TestRouter_StandardUser_CanManageComputers(t *testing.T) {
	f := newDefaultFixture(t)
	tok := issueTestToken(t, f.clock, 2, 1)

	if w := f.do(http.MethodGet, "/computers", tok, ""); w.Code != http.StatusOK {
		t.Errorf("list status = %d, want 200", w.Code)
	}
	if w := f.do(http.MethodDelete, "/printers/4", tok, ""); w.Code != http.StatusOK {
		t.Errorf("delete status = %d, want 200", w.Code)
	}
}

func TestRouter_ExpiredToken(t *testing.T) {
	f := newDefaultFixture(t)
	tok := issueTestToken(t, f.clock, 1, 2)
	f.clock.Advance(3*time.Hour + time.Second)

	w := f.do(http.MethodGet, "/users", tok, "")

	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}
	if body := decodeError(t, w); body.Message != "Token inválido ou expirado" {
		t.Errorf("message = %q", body.Message)
	}
}

func TestRouter_NoToken(t *testing.T) {
	f := newDefaultFixture(t)

	w := f.do(http.MethodGet, "/printers", "", "")

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestRouter_UnknownRoute(t *testing.T) {
	f := newDefaultFixture(t)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/nope"},
		{http.MethodPatch, "/users/validate"},
	} {
		w := f.do(tc.method, tc.path, "", "")
		if w.Code != http.StatusNotFound {
			t.Errorf("%s %s: status = %d, want 404", tc.method, tc.path, w.Code)
			continue
		}
		if body := decodeError(t, w); body.Message != "A rota "+tc.path+" não existe" {
			t.Errorf("%s %s: message = %q", tc.method, tc.path, body.Message)
		}
	}
}

func TestRouter_Health(t *testing.T) {
	f := newDefaultFixture(t)

	w := f.do(http.MethodGet, "/health", "", "")

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("security headers should apply to every route")
	}
}

func TestRouter_MissingSecret(t *testing.T) {
	f := newAPIFixture(t, token.Config{})

	w := f.do(http.MethodPost, "/users/validate", "", `{"user_name":"alice","password":"s3cret"}`)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("login status = %d, want 500", w.Code)
	}
	if c := sessionCookie(w); c != nil {
		t.Error("no cookie may be set without a secret")
	}

	w = f.do(http.MethodGet, "/users", "any.token.value", "")
	if w.Code != http.StatusInternalServerError {
		t.Errorf("verify status = %d, want 500", w.Code)
	}
}

func TestRouter_Me(t *testing.T) {
	f := newDefaultFixture(t)
	tok := issueTestToken(t, f.clock, 7, 2)

	w := f.do(http.MethodGet, "/users/me", tok, "")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"id":7`) {
		t.Errorf("body = %s", w.Body.String())
	}
}
