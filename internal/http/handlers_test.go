package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"linkhub/internal/domain"
	"linkhub/internal/provider"
	"linkhub/internal/repository"
	"linkhub/internal/service"
)

type mockUserRepo struct {
	usersByID    map[string]domain.User
	usersByEmail map[string]string
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{
		usersByID:    make(map[string]domain.User),
		usersByEmail: make(map[string]string),
	}
}

func (m *mockUserRepo) Create(_ context.Context, user domain.User) error {
	if _, ok := m.usersByEmail[user.Email]; ok {
		return repository.ErrDuplicate
	}
	m.usersByID[user.ID] = user
	m.usersByEmail[user.Email] = user.ID
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (domain.User, error) {
	user, ok := m.usersByID[id]
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return user, nil
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (domain.User, error) {
	id, ok := m.usersByEmail[email]
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return m.GetByID(context.Background(), id)
}

func (m *mockUserRepo) Delete(_ context.Context, id string) error {
	user, ok := m.usersByID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	delete(m.usersByID, id)
	delete(m.usersByEmail, user.Email)
	return nil
}

type mockAccountRepo struct {
	mu   sync.Mutex
	rows map[string]domain.LinkedAccount
}

func newMockAccountRepo() *mockAccountRepo {
	return &mockAccountRepo{rows: make(map[string]domain.LinkedAccount)}
}

func (m *mockAccountRepo) Upsert(_ context.Context, account domain.LinkedAccount) (domain.LinkedAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.rows {
		if existing.UserID == account.UserID &&
			existing.Provider == account.Provider &&
			existing.ProviderAccountID == account.ProviderAccountID {
			return existing, nil
		}
	}
	m.rows[account.ID] = account
	return account, nil
}

func (m *mockAccountRepo) ListByUser(_ context.Context, userID string) ([]domain.LinkedAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	accounts := make([]domain.LinkedAccount, 0)
	for _, a := range m.rows {
		if a.UserID == userID {
			accounts = append(accounts, a)
		}
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].CreatedAt.Before(accounts[j].CreatedAt) })
	return accounts, nil
}

func (m *mockAccountRepo) Delete(_ context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.rows[id]
	if !ok || a.UserID != userID {
		return pgx.ErrNoRows
	}
	delete(m.rows, id)
	return nil
}

func newTestRouter(t *testing.T, gateway provider.Gateway) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()
	sessions := service.NewSessionService("secret", time.Hour, service.NewMemorySessionStore())
	authSvc := service.NewAuthService(logger, newMockUserRepo(), sessions, nil)
	linkSvc := service.NewLinkService(logger, gateway, newMockAccountRepo())

	return NewRouter(
		logger,
		"",
		sessions,
		NewAuthHandler(logger, authSvc, sessions),
		NewLinkHandler(logger, linkSvc),
		NewAccountsHandler(logger, linkSvc),
	)
}

func doJSON(t *testing.T, r *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return body
}

func registerAndLogin(t *testing.T, r *gin.Engine) string {
	t.Helper()
	rec := doJSON(t, r, http.MethodPost, "/api/auth/register", "", gin.H{"email": "a@x.com", "password": "Secret123!"})
	if rec.Code != http.StatusOK {
		t.Fatalf("register: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, r, http.MethodPost, "/api/auth/login", "", gin.H{"email": "a@x.com", "password": "Secret123!"})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	token, _ := decodeBody(t, rec)["token"].(string)
	if token == "" {
		t.Fatal("login response missing token")
	}
	return token
}

func TestCookieLinkLifecycle(t *testing.T) {
	gateway := &provider.MockGateway{Ref: provider.AccountRef{AccountID: "acc-1", DisplayName: "Jane"}}
	r := newTestRouter(t, gateway)
	token := registerAndLogin(t, r)

	// Vincular con cookie.
	rec := doJSON(t, r, http.MethodPost, "/api/linkedin/connect/cookie", token, gin.H{"cookie": "AQEvalid"})
	if rec.Code != http.StatusOK {
		t.Fatalf("connect: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	account, _ := decodeBody(t, rec)["account"].(map[string]any)
	accountID, _ := account["id"].(string)
	if accountID == "" {
		t.Fatalf("connect response missing account id: %s", rec.Body.String())
	}

	// Listar: una cuenta.
	rec = doJSON(t, r, http.MethodGet, "/api/accounts", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if count, _ := body["count"].(float64); count != 1 {
		t.Fatalf("expected 1 account, got %v", body["count"])
	}

	// Borrar y listar vacío.
	rec = doJSON(t, r, http.MethodDelete, "/api/accounts/"+accountID, token, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d: %s", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, r, http.MethodGet, "/api/accounts", token, nil)
	body = decodeBody(t, rec)
	if count, _ := body["count"].(float64); count != 0 {
		t.Fatalf("expected empty list after delete, got %v", body["count"])
	}
}

func TestCredentialsChallengeLeavesListUnchanged(t *testing.T) {
	gateway := &provider.MockGateway{Err: &provider.ChallengeRequiredError{ChallengeToken: "chk-9"}}
	r := newTestRouter(t, gateway)
	token := registerAndLogin(t, r)

	rec := doJSON(t, r, http.MethodPost, "/api/linkedin/connect/credentials", token, gin.H{"username": "jane", "password": "pw1"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["kind"] != "challenge_required" {
		t.Fatalf("expected challenge_required kind, got %v", body["kind"])
	}
	if body["challenge_token"] != "chk-9" {
		t.Fatalf("expected challenge token, got %v", body["challenge_token"])
	}
	if body["retryable"] != true {
		t.Fatalf("challenge must be flagged retryable: %v", body)
	}

	rec = doJSON(t, r, http.MethodGet, "/api/accounts", token, nil)
	if count, _ := decodeBody(t, rec)["count"].(float64); count != 0 {
		t.Fatalf("challenge must not create accounts, got %v", count)
	}
}

func TestProviderUnavailableMapsToBadGateway(t *testing.T) {
	gateway := &provider.MockGateway{Err: &provider.UnavailableError{}}
	r := newTestRouter(t, gateway)
	token := registerAndLogin(t, r)

	rec := doJSON(t, r, http.MethodPost, "/api/linkedin/connect/cookie", token, gin.H{"cookie": "AQE"})
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["kind"] != "provider_unavailable" || body["retryable"] != true {
		t.Fatalf("unexpected error body: %v", body)
	}
}

func TestInvalidCookieMapsToBadRequest(t *testing.T) {
	gateway := &provider.MockGateway{Err: provider.ErrInvalidCookie}
	r := newTestRouter(t, gateway)
	token := registerAndLogin(t, r)

	rec := doJSON(t, r, http.MethodPost, "/api/linkedin/connect/cookie", token, gin.H{"cookie": "stale"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if kind := decodeBody(t, rec)["kind"]; kind != "invalid_cookie" {
		t.Fatalf("expected invalid_cookie kind, got %v", kind)
	}
}

func TestRegisterConflictAndValidation(t *testing.T) {
	r := newTestRouter(t, &provider.MockGateway{})

	rec := doJSON(t, r, http.MethodPost, "/api/auth/register", "", gin.H{"email": "a@x.com", "password": "Secret123!"})
	if rec.Code != http.StatusOK {
		t.Fatalf("register: expected 200, got %d", rec.Code)
	}
	rec = doJSON(t, r, http.MethodPost, "/api/auth/register", "", gin.H{"email": "a@x.com", "password": "Secret123!"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate email, got %d", rec.Code)
	}
	rec = doJSON(t, r, http.MethodPost, "/api/auth/register", "", gin.H{"email": "bad-email", "password": "Secret123!"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed email, got %d", rec.Code)
	}
	rec = doJSON(t, r, http.MethodPost, "/api/auth/register", "", gin.H{"email": "b@x.com", "password": "weak"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for weak password, got %d", rec.Code)
	}
	if kind := decodeBody(t, rec)["kind"]; kind != "weak_credential" {
		t.Fatalf("expected weak_credential kind, got %v", kind)
	}
}

func TestLoginFailureIsUniform(t *testing.T) {
	r := newTestRouter(t, &provider.MockGateway{})
	registerAndLogin(t, r)

	wrongPass := doJSON(t, r, http.MethodPost, "/api/auth/login", "", gin.H{"email": "a@x.com", "password": "Nope12345"})
	unknown := doJSON(t, r, http.MethodPost, "/api/auth/login", "", gin.H{"email": "ghost@x.com", "password": "Secret123!"})

	if wrongPass.Code != http.StatusUnauthorized || unknown.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401/401, got %d/%d", wrongPass.Code, unknown.Code)
	}
	if wrongPass.Body.String() != unknown.Body.String() {
		t.Fatalf("login errors must be indistinguishable: %s vs %s", wrongPass.Body.String(), unknown.Body.String())
	}
}

func TestLoginRateLimitSetsRetryAfter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()
	sessions := service.NewSessionService("secret", time.Hour, service.NewMemorySessionStore())
	limiter := service.NewLoginRateLimiter(time.Minute, 2)
	authSvc := service.NewAuthService(logger, newMockUserRepo(), sessions, limiter)
	linkSvc := service.NewLinkService(logger, &provider.MockGateway{}, newMockAccountRepo())
	r := NewRouter(logger, "", sessions,
		NewAuthHandler(logger, authSvc, sessions),
		NewLinkHandler(logger, linkSvc),
		NewAccountsHandler(logger, linkSvc),
	)

	rec := doJSON(t, r, http.MethodPost, "/api/auth/register", "", gin.H{"email": "a@x.com", "password": "Secret123!"})
	if rec.Code != http.StatusOK {
		t.Fatalf("register: expected 200, got %d", rec.Code)
	}

	doJSON(t, r, http.MethodPost, "/api/auth/login", "", gin.H{"email": "a@x.com", "password": "Nope12345"})
	doJSON(t, r, http.MethodPost, "/api/auth/login", "", gin.H{"email": "a@x.com", "password": "Nope12345"})
	rec = doJSON(t, r, http.MethodPost, "/api/auth/login", "", gin.H{"email": "a@x.com", "password": "Secret123!"})
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d: %s", rec.Code, rec.Body.String())
	}
	if kind := decodeBody(t, rec)["kind"]; kind != "rate_limited" {
		t.Fatalf("expected rate_limited kind, got %v", kind)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header on 429")
	}
}

func TestLogoutIsIdempotent(t *testing.T) {
	r := newTestRouter(t, &provider.MockGateway{})
	token := registerAndLogin(t, r)

	rec := doJSON(t, r, http.MethodPost, "/api/auth/logout", token, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("first logout: expected 204, got %d", rec.Code)
	}
	rec = doJSON(t, r, http.MethodPost, "/api/auth/logout", token, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("second logout: expected 204, got %d", rec.Code)
	}

	// El token revocado ya no sirve para rutas protegidas.
	rec = doJSON(t, r, http.MethodGet, "/api/accounts", token, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 after logout, got %d", rec.Code)
	}
}

func TestDeleteForeignAccountIsNotFound(t *testing.T) {
	gateway := &provider.MockGateway{Ref: provider.AccountRef{AccountID: "acc-1"}}
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()
	sessions := service.NewSessionService("secret", time.Hour, service.NewMemorySessionStore())
	accounts := newMockAccountRepo()
	authSvc := service.NewAuthService(logger, newMockUserRepo(), sessions, nil)
	linkSvc := service.NewLinkService(logger, gateway, accounts)
	r := NewRouter(logger, "", sessions,
		NewAuthHandler(logger, authSvc, sessions),
		NewLinkHandler(logger, linkSvc),
		NewAccountsHandler(logger, linkSvc),
	)

	ownerToken := registerAndLogin(t, r)
	rec := doJSON(t, r, http.MethodPost, "/api/linkedin/connect/cookie", ownerToken, gin.H{"cookie": "AQE"})
	account, _ := decodeBody(t, rec)["account"].(map[string]any)
	accountID, _ := account["id"].(string)

	rec = doJSON(t, r, http.MethodPost, "/api/auth/register", "", gin.H{"email": "other@x.com", "password": "Secret123!"})
	otherToken, _ := decodeBody(t, rec)["token"].(string)

	rec = doJSON(t, r, http.MethodDelete, "/api/accounts/"+accountID, otherToken, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for foreign account, got %d", rec.Code)
	}

	// La cuenta sigue existiendo para su dueño.
	rec = doJSON(t, r, http.MethodGet, "/api/accounts", ownerToken, nil)
	if count, _ := decodeBody(t, rec)["count"].(float64); count != 1 {
		t.Fatalf("expected account to survive foreign delete, got %v", count)
	}
}

func TestUnauthenticatedRequestsRejected(t *testing.T) {
	r := newTestRouter(t, &provider.MockGateway{})

	for _, tc := range []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/accounts"},
		{http.MethodPost, "/api/linkedin/connect/cookie"},
		{http.MethodPost, "/api/linkedin/connect/credentials"},
		{http.MethodDelete, "/api/accounts/some-id"},
	} {
		rec := doJSON(t, r, tc.method, tc.path, "", nil)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s: expected 401, got %d", tc.method, tc.path, rec.Code)
		}
	}
}

func TestHealthEndpoint(t *testing.T) {
	r := newTestRouter(t, &provider.MockGateway{})
	rec := doJSON(t, r, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
