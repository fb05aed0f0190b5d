package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/codr1/marketplace/internal/api/authz"
	"github.com/codr1/marketplace/internal/config"
	"github.com/codr1/marketplace/internal/db/dbq"
	"github.com/codr1/marketplace/internal/ratelimit"
	"github.com/codr1/marketplace/internal/testutil"
)

func setupAuthTest(t *testing.T) {
	t.Helper()

	database := testutil.NewTestDB(t)

	prevConfig := appConfig
	prevQueries := queries
	prevLimiter := loginLimiter
	t.Cleanup(func() {
		appConfig = prevConfig
		queries = prevQueries
		loginLimiter = prevLimiter
	})

	appConfig = &config.Config{}
	appConfig.App.Environment = "development"
	appConfig.App.SecretKey = "test-secret-key"
	queries = dbq.New(database.DB)
	loginLimiter = ratelimit.New(&ratelimit.Config{MaxAttempts: 2, Lockout: time.Minute, MaxIPPerHour: 100})
	t.Cleanup(loginLimiter.Close)
}

func postJSON(handler http.HandlerFunc, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	handler(recorder, req)
	return recorder
}

func TestRegisterAndLogin(t *testing.T) {
	setupAuthTest(t)

	recorder := postJSON(HandleRegister, "/api/v1/auth/register",
		`{"email":"Vera@Example.com","password":"correct horse","full_name":"Vera Vendor","role":"vendor"}`)
	if recorder.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", recorder.Code, recorder.Body.String())
	}

	var registered tokenResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &registered); err != nil {
		t.Fatalf("decode register response: %v", err)
	}
	if registered.User.Email != "vera@example.com" || registered.User.Role != authz.RoleVendor {
		t.Fatalf("unexpected user: %+v", registered.User)
	}

	user, err := ParseToken(registered.Token)
	if err != nil {
		t.Fatalf("parse issued token: %v", err)
	}
	if user.ID != registered.User.ID || user.Role != authz.RoleVendor {
		t.Fatalf("unexpected token user: %+v", user)
	}

	recorder = postJSON(HandleLogin, "/api/v1/auth/login", `{"email":"vera@example.com","password":"correct horse"}`)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", recorder.Code, recorder.Body.String())
	}
}

func TestRegisterValidation(t *testing.T) {
	setupAuthTest(t)

	recorder := postJSON(HandleRegister, "/api/v1/auth/register",
		`{"email":"not-an-email","password":"short","full_name":"","role":"admin"}`)
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", recorder.Code)
	}

	var body struct {
		Fields   map[string]string `json:"fields"`
		Messages []string          `json:"messages"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	for _, field := range []string{"email", "password", "full_name", "role"} {
		if _, ok := body.Fields[field]; !ok {
			t.Fatalf("expected %s field error, got %v", field, body.Fields)
		}
	}
	if len(body.Messages) != 4 {
		t.Fatalf("expected 4 messages, got %v", body.Messages)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	setupAuthTest(t)

	payload := `{"email":"dup@example.com","password":"long enough","full_name":"Dup"}`
	if recorder := postJSON(HandleRegister, "/api/v1/auth/register", payload); recorder.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", recorder.Code)
	}
	if recorder := postJSON(HandleRegister, "/api/v1/auth/register", payload); recorder.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", recorder.Code)
	}
}

func TestLoginLockout(t *testing.T) {
	setupAuthTest(t)

	postJSON(HandleRegister, "/api/v1/auth/register",
		`{"email":"lock@example.com","password":"long enough","full_name":"Lock"}`)

	for i := 0; i < 2; i++ {
		recorder := postJSON(HandleLogin, "/api/v1/auth/login", `{"email":"lock@example.com","password":"wrong password"}`)
		if recorder.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: expected status 401, got %d", i+1, recorder.Code)
		}
	}

	recorder := postJSON(HandleLogin, "/api/v1/auth/login", `{"email":"lock@example.com","password":"long enough"}`)
	if recorder.Code != http.StatusTooManyRequests {
		t.Fatalf("expected status 429, got %d", recorder.Code)
	}
	if recorder.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header")
	}
}

func TestHandleMe(t *testing.T) {
	setupAuthTest(t)

	user, err := queries.CreateUser(context.Background(), dbq.CreateUserParams{
		Email: "me@example.com", PasswordHash: "x", FullName: "Me", Role: authz.RoleCustomer,
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	recorder := httptest.NewRecorder()
	HandleMe(recorder, req)
	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401 without user, got %d", recorder.Code)
	}

	ctx := authz.ContextWithUser(req.Context(), &authz.AuthUser{ID: user.ID, Role: user.Role})
	recorder = httptest.NewRecorder()
	HandleMe(recorder, req.WithContext(ctx))
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", recorder.Code)
	}
	if !strings.Contains(recorder.Body.String(), `"email":"me@example.com"`) {
		t.Fatalf("unexpected body: %s", recorder.Body.String())
	}
}
