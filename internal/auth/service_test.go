package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/arbaazshaikh08/job-app/internal/model"
	"github.com/arbaazshaikh08/job-app/internal/repository"
)

// --- モック定義 ---

// mockUserRepo はリフレッシュトークンのハッシュをメモリに保持するユーザーリポジトリ。
type mockUserRepo struct {
	mu    sync.Mutex
	users map[string]*model.User

	findByEmailOrUsernameFn func(ctx context.Context, email, username string) (*model.User, error)
	setRefreshTokenFn       func(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error
}

func newMockUserRepo(users ...*model.User) *mockUserRepo {
	m := &mockUserRepo{users: make(map[string]*model.User)}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *mockUserRepo) FindByID(_ context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	copied := *u
	return &copied, nil
}

func (m *mockUserRepo) FindByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *mockUserRepo) FindByEmailOrUsername(ctx context.Context, email, username string) (*model.User, error) {
	if m.findByEmailOrUsernameFn != nil {
		return m.findByEmailOrUsernameFn(ctx, email, username)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if (email != "" && u.Email == email) || (username != "" && u.Username == username) {
			copied := *u
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.ID] = user
	return nil
}

func (m *mockUserRepo) UpdateProfile(_ context.Context, _ string, _ model.ProfilePatch) (*model.User, error) {
	return nil, nil
}

func (m *mockUserRepo) SetRefreshToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error {
	if m.setRefreshTokenFn != nil {
		return m.setRefreshTokenFn(ctx, userID, tokenHash, expiresAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return errors.New("user not found")
	}
	u.RefreshTokenHash = tokenHash
	u.RefreshTokenExpiresAt = &expiresAt
	return nil
}

func (m *mockUserRepo) SwapRefreshToken(_ context.Context, userID, oldHash, newHash string, expiresAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok || u.RefreshTokenHash != oldHash {
		return false, nil
	}
	u.RefreshTokenHash = newHash
	u.RefreshTokenExpiresAt = &expiresAt
	return true, nil
}

func (m *mockUserRepo) ClearRefreshToken(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[userID]; ok {
		u.RefreshTokenHash = ""
		u.RefreshTokenExpiresAt = nil
	}
	return nil
}

func (m *mockUserRepo) storedHash(userID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[userID].RefreshTokenHash
}

type mockVerifier struct {
	password string
	err      error
}

func (m *mockVerifier) VerifyPassword(_ *model.User, plaintext string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	return plaintext == m.password, nil
}

type mockMetrics struct {
	mu     sync.Mutex
	events []string
}

func (m *mockMetrics) RecordHTTPRequest(string, string, int, time.Duration) {}
func (m *mockMetrics) RecordJobCreated()                                    {}
func (m *mockMetrics) RecordJobDeleted()                                    {}

func (m *mockMetrics) RecordAuthEvent(event string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
}

func (m *mockMetrics) count(event string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.events {
		if e == event {
			n++
		}
	}
	return n
}

// --- compile-time interface checks ---
var _ repository.UserRepository = (*mockUserRepo)(nil)
var _ CredentialVerifier = (*mockVerifier)(nil)

// --- ヘルパー ---

func newTestService(repo *mockUserRepo) (*Service, *mockMetrics) {
	m := &mockMetrics{}
	return NewService(repo, &mockVerifier{password: "secret123"}, newTestIssuer(), m), m
}

func assertUnauthorized(t *testing.T, err error) {
	t.Helper()
	if !model.HasCode(err, model.ErrCodeUnauthorized) {
		t.Fatalf("expected UNAUTHORIZED error, got %v", err)
	}
}

// --- テスト ---

func TestLogin_ByEmail_IssuesTokensAndStoresHash(t *testing.T) {
	repo := newMockUserRepo(testUser())
	svc, m := newTestService(repo)

	result, err := svc.Login(context.Background(), LoginInput{
		Email:    "  JDoe@Example.com ",
		Password: "secret123",
	})
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}

	if result.User.ID != "user-1" {
		t.Errorf("User.ID = %q, want %q", result.User.ID, "user-1")
	}
	if result.Tokens.AccessToken == "" || result.Tokens.RefreshToken == "" {
		t.Fatal("expected both tokens to be issued")
	}
	if got := repo.storedHash("user-1"); got != HashToken(result.Tokens.RefreshToken) {
		t.Errorf("stored hash = %q, want hash of issued refresh token", got)
	}
	if m.count("login_success") != 1 {
		t.Errorf("login_success events = %d, want 1", m.count("login_success"))
	}
}

func TestLogin_ByUsername(t *testing.T) {
	svc, _ := newTestService(newMockUserRepo(testUser()))

	result, err := svc.Login(context.Background(), LoginInput{
		Username: "jdoe",
		Password: "secret123",
	})
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if result.User.Username != "jdoe" {
		t.Errorf("Username = %q, want %q", result.User.Username, "jdoe")
	}
}

func TestLogin_MissingIdentifier_ReturnsValidationError(t *testing.T) {
	svc, _ := newTestService(newMockUserRepo(testUser()))

	_, err := svc.Login(context.Background(), LoginInput{Password: "secret123"})
	if !model.HasCode(err, model.ErrCodeValidation) {
		t.Fatalf("expected VALIDATION_ERROR, got %v", err)
	}
}

func TestLogin_MissingPassword_ReturnsValidationError(t *testing.T) {
	svc, _ := newTestService(newMockUserRepo(testUser()))

	_, err := svc.Login(context.Background(), LoginInput{Email: "jdoe@example.com"})
	if !model.HasCode(err, model.ErrCodeValidation) {
		t.Fatalf("expected VALIDATION_ERROR, got %v", err)
	}
}

func TestLogin_UnknownUser_ReturnsUnauthorized(t *testing.T) {
	svc, m := newTestService(newMockUserRepo())

	_, err := svc.Login(context.Background(), LoginInput{
		Email:    "nobody@example.com",
		Password: "secret123",
	})
	assertUnauthorized(t, err)
	if m.count("login_failure") != 1 {
		t.Errorf("login_failure events = %d, want 1", m.count("login_failure"))
	}
}

func TestLogin_WrongPassword_ReturnsUnauthorizedAndKeepsToken(t *testing.T) {
	user := testUser()
	user.RefreshTokenHash = "existing-hash"
	repo := newMockUserRepo(user)
	svc, _ := newTestService(repo)

	_, err := svc.Login(context.Background(), LoginInput{
		Email:    "jdoe@example.com",
		Password: "wrong",
	})
	assertUnauthorized(t, err)
	if got := repo.storedHash("user-1"); got != "existing-hash" {
		t.Errorf("stored hash changed to %q after failed login", got)
	}
}

func TestLogin_RepositoryError(t *testing.T) {
	repo := newMockUserRepo()
	repo.findByEmailOrUsernameFn = func(context.Context, string, string) (*model.User, error) {
		return nil, errors.New("db down")
	}
	svc, _ := newTestService(repo)

	_, err := svc.Login(context.Background(), LoginInput{Email: "a@example.com", Password: "x"})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if model.HasCode(err, model.ErrCodeUnauthorized) {
		t.Error("repository failure should not be reported as UNAUTHORIZED")
	}
}

func TestLogin_SecondLoginInvalidatesFirstRefreshToken(t *testing.T) {
	repo := newMockUserRepo(testUser())
	svc, _ := newTestService(repo)
	ctx := context.Background()
	in := LoginInput{Email: "jdoe@example.com", Password: "secret123"}

	first, err := svc.Login(ctx, in)
	if err != nil {
		t.Fatalf("first Login returned error: %v", err)
	}
	if _, err := svc.Login(ctx, in); err != nil {
		t.Fatalf("second Login returned error: %v", err)
	}

	_, err = svc.Refresh(ctx, first.Tokens.RefreshToken)
	assertUnauthorized(t, err)
}

func TestRotate_StoreFailure_ReturnsError(t *testing.T) {
	repo := newMockUserRepo(testUser())
	repo.setRefreshTokenFn = func(context.Context, string, string, time.Time) error {
		return errors.New("write failed")
	}
	svc, _ := newTestService(repo)

	if _, err := svc.Rotate(context.Background(), testUser()); err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestRefresh_ValidToken_RotatesPair(t *testing.T) {
	repo := newMockUserRepo(testUser())
	svc, m := newTestService(repo)
	ctx := context.Background()

	pair, err := svc.Rotate(ctx, testUser())
	if err != nil {
		t.Fatalf("Rotate returned error: %v", err)
	}

	next, err := svc.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh returned error: %v", err)
	}
	if next.RefreshToken == pair.RefreshToken {
		t.Error("refresh token should change on rotation")
	}
	if got := repo.storedHash("user-1"); got != HashToken(next.RefreshToken) {
		t.Error("stored hash should match the new refresh token")
	}
	if m.count("refresh_success") != 1 {
		t.Errorf("refresh_success events = %d, want 1", m.count("refresh_success"))
	}
}

func TestRefresh_ReusedToken_ReturnsUnauthorized(t *testing.T) {
	repo := newMockUserRepo(testUser())
	svc, _ := newTestService(repo)
	ctx := context.Background()

	pair, err := svc.Rotate(ctx, testUser())
	if err != nil {
		t.Fatalf("Rotate returned error: %v", err)
	}
	if _, err := svc.Refresh(ctx, pair.RefreshToken); err != nil {
		t.Fatalf("first Refresh returned error: %v", err)
	}

	_, err = svc.Refresh(ctx, pair.RefreshToken)
	assertUnauthorized(t, err)
}

func TestRefresh_ConcurrentUse_OnlyOneSucceeds(t *testing.T) {
	repo := newMockUserRepo(testUser())
	svc, _ := newTestService(repo)
	ctx := context.Background()

	pair, err := svc.Rotate(ctx, testUser())
	if err != nil {
		t.Fatalf("Rotate returned error: %v", err)
	}

	const n = 8
	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Refresh(ctx, pair.RefreshToken); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if successes != 1 {
		t.Errorf("successful refreshes = %d, want 1", successes)
	}
}

func TestRefresh_AfterLogout_ReturnsUnauthorized(t *testing.T) {
	repo := newMockUserRepo(testUser())
	svc, m := newTestService(repo)
	ctx := context.Background()

	pair, err := svc.Rotate(ctx, testUser())
	if err != nil {
		t.Fatalf("Rotate returned error: %v", err)
	}
	if err := svc.Logout(ctx, "user-1"); err != nil {
		t.Fatalf("Logout returned error: %v", err)
	}
	if m.count("logout") != 1 {
		t.Errorf("logout events = %d, want 1", m.count("logout"))
	}

	_, err = svc.Refresh(ctx, pair.RefreshToken)
	assertUnauthorized(t, err)
}

func TestRefresh_AccessTokenPresented_ReturnsUnauthorized(t *testing.T) {
	repo := newMockUserRepo(testUser())
	svc, m := newTestService(repo)
	ctx := context.Background()

	pair, err := svc.Rotate(ctx, testUser())
	if err != nil {
		t.Fatalf("Rotate returned error: %v", err)
	}

	_, err = svc.Refresh(ctx, pair.AccessToken)
	assertUnauthorized(t, err)
	if m.count("refresh_reject") != 1 {
		t.Errorf("refresh_reject events = %d, want 1", m.count("refresh_reject"))
	}
}

func TestRefresh_DeletedUser_ReturnsUnauthorized(t *testing.T) {
	issuer := newTestIssuer()
	raw, _, err := issuer.IssueRefreshToken(&model.User{ID: "ghost"})
	if err != nil {
		t.Fatalf("IssueRefreshToken returned error: %v", err)
	}
	svc, _ := newTestService(newMockUserRepo())

	_, err = svc.Refresh(context.Background(), raw)
	assertUnauthorized(t, err)
}

func TestRefresh_EmptyToken_ReturnsUnauthorized(t *testing.T) {
	svc, _ := newTestService(newMockUserRepo())

	_, err := svc.Refresh(context.Background(), "")
	assertUnauthorized(t, err)
}

func TestVerifyAccess_ValidToken_ReturnsIdentity(t *testing.T) {
	svc, _ := newTestService(newMockUserRepo(testUser()))

	pair, err := svc.Rotate(context.Background(), testUser())
	if err != nil {
		t.Fatalf("Rotate returned error: %v", err)
	}

	identity, err := svc.VerifyAccess(pair.AccessToken)
	if err != nil {
		t.Fatalf("VerifyAccess returned error: %v", err)
	}
	if identity.UserID != "user-1" || identity.Email != "jdoe@example.com" || identity.Username != "jdoe" {
		t.Errorf("unexpected identity: %+v", identity)
	}
}

func TestVerifyAccess_InvalidToken_ReturnsUnauthorized(t *testing.T) {
	svc, _ := newTestService(newMockUserRepo())

	_, err := svc.VerifyAccess("not-a-jwt")
	assertUnauthorized(t, err)

	_, err = svc.VerifyAccess("")
	assertUnauthorized(t, err)
}

func TestLogout_EmptyUserID_ReturnsUnauthorized(t *testing.T) {
	svc, _ := newTestService(newMockUserRepo())

	err := svc.Logout(context.Background(), "")
	assertUnauthorized(t, err)
}

func TestLogout_WithoutStoredToken_Succeeds(t *testing.T) {
	svc, _ := newTestService(newMockUserRepo(testUser()))

	if err := svc.Logout(context.Background(), "user-1"); err != nil {
		t.Fatalf("Logout returned error: %v", err)
	}
}
