package service

import (
	"context"
	"errors"
	"testing"
	"time"

	autherrors "labslot/internal/auth/errors"
	"labslot/pkg/config"
	apperrors "labslot/pkg/errors"
	"labslot/pkg/logger"
	"labslot/pkg/model"

	"golang.org/x/crypto/bcrypt"
)

type mockUserRepository struct {
	createFunc      func(ctx context.Context, user *model.User) error
	findByEmailFunc func(ctx context.Context, email string) (*model.User, error)
	findByIDFunc    func(ctx context.Context, id string) (*model.User, error)
}

func (m *mockUserRepository) Create(ctx context.Context, user *model.User) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, user)
	}
	user.ID = "507f1f77bcf86cd799439011"
	return nil
}

func (m *mockUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	if m.findByEmailFunc != nil {
		return m.findByEmailFunc(ctx, email)
	}
	return nil, autherrors.ErrUserNotFound
}

func (m *mockUserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, autherrors.ErrUserNotFound
}

type mockSessionRepository struct {
	sessions map[string]*model.Session

	createFunc func(ctx context.Context, session *model.Session) error
	deleteFunc func(ctx context.Context, id string) error
}

func newMockSessionRepository() *mockSessionRepository {
	return &mockSessionRepository{sessions: make(map[string]*model.Session)}
}

func (m *mockSessionRepository) Create(ctx context.Context, session *model.Session) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, session)
	}
	m.sessions[session.ID] = session
	return nil
}

func (m *mockSessionRepository) FindByID(ctx context.Context, id string) (*model.Session, error) {
	session, ok := m.sessions[id]
	if !ok {
		return nil, autherrors.ErrSessionNotFound
	}
	return session, nil
}

func (m *mockSessionRepository) Delete(ctx context.Context, id string) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	if _, ok := m.sessions[id]; !ok {
		return autherrors.ErrSessionNotFound
	}
	delete(m.sessions, id)
	return nil
}

func (m *mockSessionRepository) DeleteByUser(ctx context.Context, userID string) error {
	for id, session := range m.sessions {
		if session.UserID == userID {
			delete(m.sessions, id)
		}
	}
	return nil
}

func testAuthService(users *mockUserRepository, sessions *mockSessionRepository) AuthService {
	log := logger.New(logger.Config{
		Level:     "error",
		Format:    logger.JSON,
		AddSource: false,
		Service:   "test",
	})

	cfg := &config.Config{
		Log:           log,
		SessionSecret: "test-secret",
		SessionTTL:    time.Hour,
	}

	return NewAuthService(users, sessions, cfg)
}

func hashOf(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	return string(hash)
}

func registeredUser(t *testing.T, password string) *model.User {
	return &model.User{
		ID:           "507f1f77bcf86cd799439011",
		Email:        "alice@example.com",
		PasswordHash: hashOf(t, password),
	}
}

func TestRegister_HashesPassword(t *testing.T) {
	var created *model.User
	users := &mockUserRepository{
		createFunc: func(ctx context.Context, user *model.User) error {
			created = user
			user.ID = "507f1f77bcf86cd799439011"
			return nil
		},
	}
	service := testAuthService(users, newMockSessionRepository())

	user, err := service.Register(context.Background(), &model.Credentials{
		Email:    "  Alice@Example.COM ",
		Password: "correct horse",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if created == nil {
		t.Fatal("expected user to be persisted")
	}
	if created.Email != "alice@example.com" {
		t.Errorf("email must be normalized, got %q", created.Email)
	}
	if created.PasswordHash == "correct horse" || created.PasswordHash == "" {
		t.Error("password must be stored hashed")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(created.PasswordHash), []byte("correct horse")); err != nil {
		t.Errorf("stored hash must verify against the original password: %v", err)
	}
	if user.ID == "" {
		t.Error("expected the assigned id on the returned user")
	}
}

func TestRegister_DuplicateEmailConflicts(t *testing.T) {
	users := &mockUserRepository{
		createFunc: func(ctx context.Context, user *model.User) error {
			return autherrors.ErrEmailTaken
		},
	}
	service := testAuthService(users, newMockSessionRepository())

	_, err := service.Register(context.Background(), &model.Credentials{
		Email:    "alice@example.com",
		Password: "correct horse",
	})
	if err == nil {
		t.Fatal("expected conflict error")
	}
	if appErr := apperrors.AsAppError(err); appErr.Code != apperrors.CodeConflict {
		t.Errorf("expected %s, got %s", apperrors.CodeConflict, appErr.Code)
	}
}

func TestRegister_RejectsShortPassword(t *testing.T) {
	service := testAuthService(&mockUserRepository{}, newMockSessionRepository())

	_, err := service.Register(context.Background(), &model.Credentials{
		Email:    "alice@example.com",
		Password: "short",
	})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if appErr := apperrors.AsAppError(err); appErr.Code != apperrors.CodeValidation {
		t.Errorf("expected %s, got %s", apperrors.CodeValidation, appErr.Code)
	}
}

func TestLogin_IssuesVerifiableToken(t *testing.T) {
	user := registeredUser(t, "correct horse")
	users := &mockUserRepository{
		findByEmailFunc: func(ctx context.Context, email string) (*model.User, error) {
			if email != user.Email {
				return nil, autherrors.ErrUserNotFound
			}
			return user, nil
		},
	}
	sessions := newMockSessionRepository()
	service := testAuthService(users, sessions)

	token, got, err := service.Login(context.Background(), &model.Credentials{
		Email:    "alice@example.com",
		Password: "correct horse",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token == "" {
		t.Fatal("expected a signed token")
	}
	if got.ID != user.ID {
		t.Errorf("expected user %s, got %s", user.ID, got.ID)
	}
	if len(sessions.sessions) != 1 {
		t.Fatalf("expected one session, got %d", len(sessions.sessions))
	}

	userID, err := service.VerifyToken(context.Background(), token)
	if err != nil {
		t.Fatalf("freshly issued token must verify: %v", err)
	}
	if userID != user.ID {
		t.Errorf("expected user id %s from token, got %s", user.ID, userID)
	}
}

func TestLogin_WrongPasswordUnauthorized(t *testing.T) {
	user := registeredUser(t, "correct horse")
	users := &mockUserRepository{
		findByEmailFunc: func(ctx context.Context, email string) (*model.User, error) {
			return user, nil
		},
	}
	service := testAuthService(users, newMockSessionRepository())

	_, _, err := service.Login(context.Background(), &model.Credentials{
		Email:    "alice@example.com",
		Password: "wrong password",
	})
	if err == nil {
		t.Fatal("expected unauthorized error")
	}
	if appErr := apperrors.AsAppError(err); appErr.Code != apperrors.CodeUnauthorized {
		t.Errorf("expected %s, got %s", apperrors.CodeUnauthorized, appErr.Code)
	}
}

func TestLogin_UnknownEmailMatchesWrongPassword(t *testing.T) {
	service := testAuthService(&mockUserRepository{}, newMockSessionRepository())

	_, _, err := service.Login(context.Background(), &model.Credentials{
		Email:    "nobody@example.com",
		Password: "correct horse",
	})
	if err == nil {
		t.Fatal("expected unauthorized error")
	}
	appErr := apperrors.AsAppError(err)
	if appErr.Code != apperrors.CodeUnauthorized {
		t.Errorf("expected %s, got %s", apperrors.CodeUnauthorized, appErr.Code)
	}
	if appErr.Message != "Invalid email or password" {
		t.Errorf("unknown email must not be distinguishable, got %q", appErr.Message)
	}
}

func TestLogout_RevokesSession(t *testing.T) {
	user := registeredUser(t, "correct horse")
	users := &mockUserRepository{
		findByEmailFunc: func(ctx context.Context, email string) (*model.User, error) {
			return user, nil
		},
	}
	sessions := newMockSessionRepository()
	service := testAuthService(users, sessions)

	token, _, err := service.Login(context.Background(), &model.Credentials{
		Email:    "alice@example.com",
		Password: "correct horse",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := service.Logout(context.Background(), token); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sessions.sessions) != 0 {
		t.Fatalf("expected session to be deleted, %d remain", len(sessions.sessions))
	}

	// The signature is still valid but the session row is gone.
	if _, err := service.VerifyToken(context.Background(), token); !errors.Is(err, autherrors.ErrInvalidToken) {
		t.Errorf("revoked token must not verify, got %v", err)
	}

	// A second logout with the same token is a no-op.
	if err := service.Logout(context.Background(), token); err != nil {
		t.Errorf("logout must be idempotent, got %v", err)
	}
}

func TestVerifyToken_RejectsGarbage(t *testing.T) {
	service := testAuthService(&mockUserRepository{}, newMockSessionRepository())

	for _, token := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, err := service.VerifyToken(context.Background(), token); !errors.Is(err, autherrors.ErrInvalidToken) {
			t.Errorf("token %q: expected ErrInvalidToken, got %v", token, err)
		}
	}
}

func TestVerifyToken_ExpiredSession(t *testing.T) {
	sessions := newMockSessionRepository()
	service := testAuthService(&mockUserRepository{}, sessions)

	impl := service.(*authService)
	session := &model.Session{
		ID:        "expired-session",
		UserID:    "507f1f77bcf86cd799439011",
		CreatedAt: time.Now().Add(-2 * time.Hour),
		ExpiresAt: time.Now().Add(-time.Hour),
	}
	sessions.sessions[session.ID] = session

	// Sign with a still-valid exp claim so only the server-side expiry can
	// reject the token.
	signed := *session
	signed.ExpiresAt = time.Now().Add(time.Hour)
	token, err := impl.signToken(&signed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := service.VerifyToken(context.Background(), token); !errors.Is(err, autherrors.ErrInvalidToken) {
		t.Errorf("expired session must not verify, got %v", err)
	}
	if _, ok := sessions.sessions[session.ID]; ok {
		t.Error("expired session should be deleted on verification")
	}
}
