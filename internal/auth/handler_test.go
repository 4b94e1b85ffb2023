package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/haulstack/haulstack/internal/auth"
	"github.com/haulstack/haulstack/internal/rbac"
	"github.com/haulstack/haulstack/internal/shared"
	"github.com/haulstack/haulstack/internal/users"
	_ "github.com/haulstack/haulstack/testing"
)

type stubSource struct {
	user *users.User
}

func (s *stubSource) FindByEmail(ctx context.Context, email string) (users.User, error) {
	if s.user == nil || s.user.Email != email {
		return users.User{}, shared.ErrNotFound
	}
	return *s.user, nil
}

func (s *stubSource) GetUser(ctx context.Context, id int64) (users.User, error) {
	if s.user == nil || s.user.ID != id {
		return users.User{}, shared.ErrNotFound
	}
	return *s.user, nil
}

func newAuthHandler(t *testing.T, source auth.UserSource) (*auth.Handler, *shared.SessionManager) {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessionManager := shared.NewSessionManager(redisClient, "test_session", time.Hour, false)
	service := auth.NewService(source)
	mw := auth.Middleware{Service: service}
	handler := auth.NewHandler(nil, service, sessionManager, mw)
	return handler, sessionManager
}

func testUser(t *testing.T, password string) *users.User {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return &users.User{
		ID:           7,
		Email:        "dispatch@test.local",
		Name:         "Dina",
		PasswordHash: string(hashed),
		BusinessID:   42,
		Role:         rbac.RoleDispatcher,
		IsActive:     true,
	}
}

func doLogin(t *testing.T, handler *auth.Handler, sm *shared.SessionManager, body string) (*httptest.ResponseRecorder, *shared.Session) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	sess, err := sm.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	ctx := shared.ContextWithSession(req.Context(), sess)
	req = req.WithContext(ctx)

	res := httptest.NewRecorder()
	handler.HandleLoginForTest(res, req)
	if err := sm.Commit(ctx, res, sess); err != nil {
		t.Fatalf("commit session: %v", err)
	}
	return res, sess
}

func TestLoginSuccess(t *testing.T) {
	user := testUser(t, "correctpass")
	handler, sm := newAuthHandler(t, &stubSource{user: user})

	res, sess := doLogin(t, handler, sm, `{"email":"dispatch@test.local","password":"correctpass"}`)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if got := sess.User(); got != "7" {
		t.Fatalf("expected session user 7, got %q", got)
	}

	var payload struct {
		ID   int64  `json:"id"`
		Role string `json:"role"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.ID != 7 || payload.Role != "dispatcher" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
	if res.Body.String() == "" || strings.Contains(res.Body.String(), "password") {
		t.Fatalf("response must not echo credentials: %s", res.Body.String())
	}
}

func TestLoginRotatesSessionID(t *testing.T) {
	user := testUser(t, "correctpass")
	handler, sm := newAuthHandler(t, &stubSource{user: user})

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"dispatch@test.local","password":"correctpass"}`))
	req.Header.Set("Content-Type", "application/json")
	sess, err := sm.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	before := sess.ID
	ctx := shared.ContextWithSession(req.Context(), sess)
	res := httptest.NewRecorder()
	handler.HandleLoginForTest(res, req.WithContext(ctx))

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if sess.ID == before {
		t.Fatalf("session id must rotate on login")
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	user := testUser(t, "correctpass")
	handler, sm := newAuthHandler(t, &stubSource{user: user})

	res, sess := doLogin(t, handler, sm, `{"email":"dispatch@test.local","password":"wrongpass"}`)

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}
	if sess.User() != "" {
		t.Fatalf("session must stay anonymous after a failed login")
	}
}

func TestLoginInactiveAccount(t *testing.T) {
	user := testUser(t, "correctpass")
	user.IsActive = false
	handler, sm := newAuthHandler(t, &stubSource{user: user})

	res, _ := doLogin(t, handler, sm, `{"email":"dispatch@test.local","password":"correctpass"}`)

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for inactive account, got %d", res.Code)
	}
}

func TestLoginValidation(t *testing.T) {
	handler, sm := newAuthHandler(t, &stubSource{})

	res, _ := doLogin(t, handler, sm, `{"email":"not-an-email","password":"short"}`)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestLogoutDestroysSession(t *testing.T) {
	user := testUser(t, "correctpass")
	handler, sm := newAuthHandler(t, &stubSource{user: user})

	_, sess := doLogin(t, handler, sm, `{"email":"dispatch@test.local","password":"correctpass"}`)

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: sm.CookieName(), Value: sess.ID})
	loaded, err := sm.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	if loaded.User() != "7" {
		t.Fatalf("expected persisted login, got %q", loaded.User())
	}

	ctx := shared.ContextWithSession(req.Context(), loaded)
	res := httptest.NewRecorder()
	handler.HandleLogoutForTest(res, req.WithContext(ctx))
	if err := sm.Commit(ctx, res, loaded); err != nil {
		t.Fatalf("commit session: %v", err)
	}

	if res.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", res.Code)
	}

	again := httptest.NewRequest(http.MethodGet, "/", nil)
	again.AddCookie(&http.Cookie{Name: sm.CookieName(), Value: loaded.ID})
	fresh, err := sm.Load(context.Background(), again)
	if err != nil {
		t.Fatalf("reload session: %v", err)
	}
	if fresh.User() != "" {
		t.Fatalf("session survived logout")
	}
}
