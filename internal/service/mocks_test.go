package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"auth-admin/internal/domain"
	"auth-admin/internal/repository"
	"auth-admin/internal/security"
)

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

const testAppKey = "base64:0123456789abcdef0123456789abcdef"

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

type mockUserRepo struct {
	mu     sync.Mutex
	byID   map[int64]domain.User
	nextID int64

	getErr      error
	markErr     error
	setErr      error
	panicOnGet  bool
	markChanged *bool
	markCalls   int
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

func (m *mockUserRepo) findByEmail(email string) (domain.User, bool) {
	for _, u := range m.byID {
		if u.Email == email {
			return u, true
		}
	}
	return domain.User{}, false
}

func (m *mockUserRepo) Create(_ context.Context, user domain.User) (domain.User, error) {
	m.mu.Lock()
	if _, dup := m.findByEmail(user.Email); dup {
		m.mu.Unlock()
		return domain.User{}, repository.ErrDuplicate
	}
	m.mu.Unlock()
	user.CreatedAt = testNow
	user.UpdatedAt = testNow
	return m.put(user), nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id int64) (domain.User, error) {
	if m.panicOnGet {
		panic("boom")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return domain.User{}, m.getErr
	}
	u, ok := m.byID[id]
	if !ok {
		return domain.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return domain.User{}, m.getErr
	}
	u, ok := m.findByEmail(email)
	if !ok {
		return domain.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (m *mockUserRepo) ExistsByEmail(_ context.Context, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.findByEmail(email)
	return ok, nil
}

func (m *mockUserRepo) MarkVerified(_ context.Context, id int64, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.markCalls++
	if m.markErr != nil {
		return false, m.markErr
	}
	if m.markChanged != nil {
		return *m.markChanged, nil
	}
	u, ok := m.byID[id]
	if !ok || u.EmailVerifiedAt != nil {
		return false, nil
	}
	u.EmailVerifiedAt = &at
	m.byID[id] = u
	return true, nil
}

func (m *mockUserRepo) SetPassword(_ context.Context, email, digest, rememberToken string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	u, ok := m.findByEmail(email)
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordHash = digest
	u.RememberToken = rememberToken
	m.byID[u.ID] = u
	return nil
}

func (m *mockUserRepo) List(_ context.Context, filter repository.UserFilter) ([]domain.User, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.User{}
	for id := int64(1); id < m.nextID; id++ {
		u, ok := m.byID[id]
		if !ok {
			continue
		}
		if filter.Search != "" && !strings.Contains(u.Username, filter.Search) && !strings.Contains(u.Email, filter.Search) {
			continue
		}
		out = append(out, u)
	}
	total := len(out)
	start := (filter.Page - 1) * filter.PerPage
	if start > len(out) {
		start = len(out)
	}
	end := start + filter.PerPage
	if end > len(out) {
		end = len(out)
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

func (m *mockUserRepo) UpsertAdmin(ctx context.Context, user domain.User) (domain.User, error) {
	m.mu.Lock()
	existing, ok := m.findByEmail(user.Email)
	m.mu.Unlock()
	if ok {
		user.ID = existing.ID
	}
	return m.put(user), nil
}

type sentMail struct {
	to      string
	link    string
	expires time.Time
}

type mockEmailSender struct {
	mu           sync.Mutex
	verification []sentMail
	resets       []sentMail
	err          error
}

func (m *mockEmailSender) SendVerificationLink(_ context.Context, toEmail, link string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.verification = append(m.verification, sentMail{to: toEmail, link: link, expires: expiresAt})
	return nil
}

func (m *mockEmailSender) SendPasswordReset(_ context.Context, toEmail, link string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.resets = append(m.resets, sentMail{to: toEmail, link: link, expires: expiresAt})
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event domain.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) count(t domain.EventType) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e.Type == t {
			n++
		}
	}
	return n
}

// fakeTx serializa las transacciones con un mutex, como lo haria el lock de fila.
type fakeTx struct {
	mu        sync.Mutex
	commits   int
	rollbacks int
	beginErr  error
}

func (f *fakeTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.beginErr != nil {
		return f.beginErr
	}
	if err := fn(ctx); err != nil {
		f.rollbacks++
		return err
	}
	f.commits++
	return nil
}

type resetEntry struct {
	hash      string
	createdAt time.Time
}

type fakeResetStore struct {
	mu         sync.Mutex
	users      repository.EmailLookup
	tokens     map[string]resetEntry
	ttl        time.Duration
	throttle   time.Duration
	consumeErr error
}

func newFakeResetStore(users repository.EmailLookup) *fakeResetStore {
	return &fakeResetStore{
		users:  users,
		tokens: make(map[string]resetEntry),
		ttl:    time.Hour,
	}
}

func (s *fakeResetStore) Create(_ context.Context, email, token string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.tokens[email]; ok && s.throttle > 0 && prev.createdAt.Add(s.throttle).After(now) {
		return repository.ErrThrottled
	}
	s.tokens[email] = resetEntry{hash: security.HashToken(token), createdAt: now}
	return nil
}

func (s *fakeResetStore) ValidateAndConsume(ctx context.Context, email, token string, now time.Time) (domain.TokenVerdict, error) {
	if s.consumeErr != nil {
		return domain.TokenInvalid, s.consumeErr
	}
	exists, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return domain.TokenInvalid, err
	}
	if !exists {
		return domain.TokenUserNotFound, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.tokens[email]
	if !ok || !security.ConstantTimeEqual(entry.hash, security.HashToken(token)) {
		return domain.TokenInvalid, nil
	}
	delete(s.tokens, email)
	if entry.createdAt.Add(s.ttl).Before(now) {
		return domain.TokenInvalid, nil
	}
	return domain.TokenValid, nil
}

var errStoreDown = errors.New("store unreachable")

func newTestSigner() security.Signer {
	signer, err := security.NewHMACSigner(testAppKey)
	if err != nil {
		panic(err)
	}
	return signer
}

func newTestLinks() *LinkBuilder {
	return NewLinkBuilder(newTestSigner(), security.SHA1Hasher{}, "https://app.example.com/", time.Hour, time.Hour)
}
