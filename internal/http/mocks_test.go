package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"auth-admin/internal/domain"
	"auth-admin/internal/repository"
	"auth-admin/internal/security"
	"auth-admin/internal/service"
)

const testAppKey = "base64:0123456789abcdef0123456789abcdef"

type mockUserRepo struct {
	mu     sync.Mutex
	byID   map[int64]domain.User
	nextID int64
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{byID: make(map[int64]domain.User), nextID: 1}
}

func (m *mockUserRepo) put(user domain.User) domain.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if user.ID == 0 {
		user.ID = m.nextID
	}
	if user.ID >= m.nextID {
		m.nextID = user.ID + 1
	}
	m.byID[user.ID] = user
	return user
}

func (m *mockUserRepo) byEmail(email string) (domain.User, bool) {
	for _, u := range m.byID {
		if u.Email == email {
			return u, true
		}
	}
	return domain.User{}, false
}

func (m *mockUserRepo) Create(_ context.Context, user domain.User) (domain.User, error) {
	m.mu.Lock()
	_, dup := m.byEmail(user.Email)
	m.mu.Unlock()
	if dup {
		return domain.User{}, repository.ErrDuplicate
	}
	return m.put(user), nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id int64) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return domain.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byEmail(email)
	if !ok {
		return domain.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (m *mockUserRepo) ExistsByEmail(_ context.Context, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.byEmail(email)
	return ok, nil
}

func (m *mockUserRepo) MarkVerified(_ context.Context, id int64, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok || u.EmailVerifiedAt != nil {
		return false, nil
	}
	u.EmailVerifiedAt = &at
	m.byID[id] = u
	return true, nil
}

func (m *mockUserRepo) SetPassword(_ context.Context, email, digest, remember string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byEmail(email)
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordHash = digest
	u.RememberToken = remember
	m.byID[u.ID] = u
	return nil
}

func (m *mockUserRepo) List(_ context.Context, filter repository.UserFilter) ([]domain.User, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.User
	for id := int64(1); id < m.nextID; id++ {
		u, ok := m.byID[id]
		if !ok {
			continue
		}
		if filter.Search != "" && !strings.Contains(u.Email, filter.Search) && !strings.Contains(u.Username, filter.Search) {
			continue
		}
		out = append(out, u)
	}
	total := len(out)
	start := (filter.Page - 1) * filter.PerPage
	if start > total {
		start = total
	}
	end := start + filter.PerPage
	if end > total {
		end = total
	}
	return out[start:end], total, nil
}

func (m *mockUserRepo) UpdateAccess(_ context.Context, id int64, role domain.Role, perms []domain.Permission) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return domain.User{}, repository.ErrNotFound
	}
	u.Role = role
	u.Permissions = perms
	m.byID[id] = u
	return u, nil
}

func (m *mockUserRepo) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

func (m *mockUserRepo) UpsertAdmin(_ context.Context, user domain.User) (domain.User, error) {
	return m.put(user), nil
}

type mockEmailSender struct {
	mu     sync.Mutex
	links  []string
	resets []string
	err    error
}

func (m *mockEmailSender) SendVerificationLink(_ context.Context, _, link string, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.links = append(m.links, link)
	return m.err
}

func (m *mockEmailSender) SendPasswordReset(_ context.Context, _, link string, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resets = append(m.resets, link)
	return m.err
}

type allowAll struct{}

func (allowAll) Allow(string) bool { return true }

type denyAll struct{}

func (denyAll) Allow(string) bool { return false }

// testApp arma servicios reales sobre repositorios en memoria.
type testApp struct {
	repo   *mockUserRepo
	sender *mockEmailSender
	jwt    *service.JWTService
	users  *service.UserService
	admin  *service.AdminService
	hasher *security.BcryptHasher
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	signer, err := security.NewHMACSigner(testAppKey)
	if err != nil {
		t.Fatalf("signer: %v", err)
	}
	links := service.NewLinkBuilder(signer, security.SHA1Hasher{}, "https://app.example.com", time.Hour, time.Hour)
	repo := newMockUserRepo()
	sender := &mockEmailSender{}
	hasher := security.NewBcryptHasher(bcrypt.MinCost)
	jwtSvc := service.NewJWTServiceWithStore("secret", 15*time.Minute, time.Hour, service.NewMemoryRefreshTokenStore())
	return &testApp{
		repo:   repo,
		sender: sender,
		jwt:    jwtSvc,
		users:  service.NewUserService(zap.NewNop(), repo, hasher, links, sender, nil, allowAll{}, nil),
		admin:  service.NewAdminService(zap.NewNop(), repo),
		hasher: hasher,
	}
}

func (a *testApp) router(limiter service.RateLimiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return NewRouter(zap.NewNop(), RouterConfig{Limiter: limiter, JWT: a.jwt}, Handlers{
		User:  NewUserHandler(zap.NewNop(), a.users, a.jwt),
		Admin: NewAdminHandler(zap.NewNop(), a.admin),
	})
}

func (a *testApp) tokenFor(t *testing.T, user domain.User) string {
	t.Helper()
	pair, err := a.jwt.GeneratePair(context.Background(), user)
	if err != nil {
		t.Fatalf("generate pair: %v", err)
	}
	return pair.AccessToken
}

func (a *testApp) seed(t *testing.T, username, emailAddr, password string, role domain.Role) domain.User {
	t.Helper()
	digest, err := a.hasher.Hash(password)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return a.repo.put(domain.User{Username: username, Email: emailAddr, PasswordHash: digest, Role: role})
}

func performRequest(r http.Handler, method, path string, body any, token string) *httptest.ResponseRecorder {
	var payload []byte
	if body != nil {
		payload, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func performForm(r http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
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
