package service

import (
	"context"
	"errors"
	"strings"
	"time"

	autherrors "labslot/internal/auth/errors"
	"labslot/internal/auth/repository"
	"labslot/pkg/config"
	apperrors "labslot/pkg/errors"
	"labslot/pkg/model"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type AuthService interface {
	Register(ctx context.Context, creds *model.Credentials) (*model.User, error)
	Login(ctx context.Context, creds *model.Credentials) (string, *model.User, error)
	Logout(ctx context.Context, token string) error
	VerifyToken(ctx context.Context, token string) (string, error)
	Me(ctx context.Context, userID string) (*model.User, error)
}

type authService struct {
	users    repository.UserRepository
	sessions repository.SessionRepository
	validate *validator.Validate
	cfg      *config.Config
}

func NewAuthService(
	users repository.UserRepository,
	sessions repository.SessionRepository,
	cfg *config.Config,
) AuthService {
	return &authService{
		users:    users,
		sessions: sessions,
		validate: validator.New(),
		cfg:      cfg,
	}
}

func (s *authService) Register(ctx context.Context, creds *model.Credentials) (*model.User, error) {
	s.sanitize(creds)
	if err := s.validate.Struct(creds); err != nil {
		s.cfg.Log.Warn("Registration validation failed", "error", err)
		return nil, apperrors.Validation("Invalid credentials", map[string]any{"error": err.Error()})
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(creds.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperrors.Internal("Failed to hash password", err)
	}

	user := &model.User{
		Email:        creds.Email,
		PasswordHash: string(hash),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, autherrors.ErrEmailTaken) {
			return nil, apperrors.Conflict("Email is already registered")
		}
		return nil, apperrors.Internal("Failed to create user", err)
	}

	s.cfg.Log.Info("User registered", "user_id", user.ID, "email", user.Email)
	return user, nil
}

func (s *authService) Login(ctx context.Context, creds *model.Credentials) (string, *model.User, error) {
	s.sanitize(creds)
	if err := s.validate.Struct(creds); err != nil {
		return "", nil, apperrors.Validation("Invalid credentials", map[string]any{"error": err.Error()})
	}

	user, err := s.users.FindByEmail(ctx, creds.Email)
	if err != nil {
		if errors.Is(err, autherrors.ErrUserNotFound) {
			// Same failure as a bad password, so probes cannot enumerate
			// registered emails.
			return "", nil, apperrors.Unauthorized("Invalid email or password")
		}
		return "", nil, apperrors.Internal("Failed to look up user", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(creds.Password)); err != nil {
		return "", nil, apperrors.Unauthorized("Invalid email or password")
	}

	now := time.Now().UTC()
	session := &model.Session{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.SessionTTL),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return "", nil, apperrors.Internal("Failed to create session", err)
	}

	token, err := s.signToken(session)
	if err != nil {
		return "", nil, apperrors.Internal("Failed to sign session token", err)
	}

	s.cfg.Log.Info("User logged in", "user_id", user.ID, "session_id", session.ID)
	return token, user, nil
}

func (s *authService) Logout(ctx context.Context, token string) error {
	claims, err := s.parseToken(token)
	if err != nil {
		return apperrors.Unauthorized("Invalid session token")
	}

	if err := s.sessions.Delete(ctx, claims.SessionID); err != nil {
		if errors.Is(err, autherrors.ErrSessionNotFound) {
			// Already revoked; logout is idempotent.
			return nil
		}
		return apperrors.Internal("Failed to revoke session", err)
	}

	s.cfg.Log.Info("User logged out", "session_id", claims.SessionID)
	return nil
}

// VerifyToken validates the JWT signature and then checks the named session
// still exists and has not expired. Deleting the session row invalidates the
// token immediately regardless of its exp claim.
func (s *authService) VerifyToken(ctx context.Context, token string) (string, error) {
	claims, err := s.parseToken(token)
	if err != nil {
		return "", autherrors.ErrInvalidToken
	}

	session, err := s.sessions.FindByID(ctx, claims.SessionID)
	if err != nil {
		return "", autherrors.ErrInvalidToken
	}

	if time.Now().After(session.ExpiresAt) {
		// Expired but not yet reaped by the TTL index.
		_ = s.sessions.Delete(ctx, session.ID)
		return "", autherrors.ErrInvalidToken
	}

	return session.UserID, nil
}

// Me resolves the authenticated user's profile by the id the middleware
// extracted from the token.
func (s *authService) Me(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, autherrors.ErrUserNotFound) {
			return nil, apperrors.NotFound("User")
		}
		return nil, apperrors.Internal("Failed to look up user", err)
	}
	return user, nil
}

// --- Helpers ---

type sessionClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

func (s *authService) signToken(session *model.Session) (string, error) {
	claims := sessionClaims{
		SessionID: session.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   session.UserID,
			IssuedAt:  jwt.NewNumericDate(session.CreatedAt),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.SessionSecret))
}

func (s *authService) parseToken(token string) (*sessionClaims, error) {
	claims := &sessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, autherrors.ErrInvalidToken
		}
		return []byte(s.cfg.SessionSecret), nil
	})
	if err != nil || !parsed.Valid || claims.SessionID == "" {
		return nil, autherrors.ErrInvalidToken
	}
	return claims, nil
}

func (s *authService) sanitize(creds *model.Credentials) {
	creds.Email = strings.ToLower(strings.TrimSpace(creds.Email))
}
