package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dom/faceoff/internal/config"
	"github.com/dom/faceoff/internal/domain"
	"github.com/dom/faceoff/internal/repository"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const maxUsernameLength = 64

var errInvalidCredentials = domain.Unauthenticated("Invalid username or password")

type AuthService struct {
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	cfg         *config.Config
	logger      *zap.Logger
	now         func() time.Time
}

func NewAuthService(userRepo repository.UserRepository, sessionRepo repository.SessionRepository, cfg *config.Config, logger *zap.Logger) *AuthService {
	return &AuthService{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		cfg:         cfg,
		logger:      logger,
		now:         time.Now,
	}
}

type Credentials struct {
	Username string
	Password string
}

type AuthResult struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

// SessionUser is what an authenticated request carries in its context.
type SessionUser struct {
	User      *domain.User
	SessionID uuid.UUID
}

func (s *AuthService) Register(ctx context.Context, input Credentials) (*AuthResult, error) {
	username := strings.TrimSpace(input.Username)
	if username == "" || input.Password == "" {
		return nil, domain.InvalidRequest("Username and password are required")
	}
	if len(username) > maxUsernameLength {
		return nil, domain.InvalidRequest(fmt.Sprintf("Username must be at most %d characters", maxUsernameLength))
	}

	_, err := s.userRepo.GetByUsername(ctx, username)
	if err == nil {
		return nil, domain.InvalidRequest("Username already exists")
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, domain.Unexpected(err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, domain.Unexpected(err)
	}

	now := s.now()
	user := &domain.User{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: string(hashedPassword),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, domain.InvalidRequest("Username already exists")
		}
		return nil, domain.Unexpected(err)
	}

	s.logger.Info("user registered", zap.String("user_id", user.ID.String()))
	return s.startSession(ctx, user)
}

func (s *AuthService) Login(ctx context.Context, input Credentials) (*AuthResult, error) {
	username := strings.TrimSpace(input.Username)
	if username == "" || input.Password == "" {
		return nil, domain.InvalidRequest("Username and password are required")
	}

	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errInvalidCredentials
		}
		return nil, domain.Unexpected(err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, errInvalidCredentials
	}

	return s.startSession(ctx, user)
}

func (s *AuthService) startSession(ctx context.Context, user *domain.User) (*AuthResult, error) {
	now := s.now()
	session := &domain.UserSession{
		ID:        uuid.New(),
		UserID:    user.ID,
		ExpiresAt: now.Add(s.cfg.SessionTTL),
		CreatedAt: now,
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, domain.Unexpected(err)
	}

	claims := jwt.MapClaims{
		"sub": user.ID.String(),
		"sid": session.ID.String(),
		"exp": session.ExpiresAt.Unix(),
		"iat": now.Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.SessionSecret))
	if err != nil {
		return nil, domain.Unexpected(err)
	}

	return &AuthResult{User: user, Token: token, ExpiresAt: session.ExpiresAt}, nil
}

// Authenticate resolves a session token. The signature alone is not enough:
// the session row must still exist and belong to the token's subject.
func (s *AuthService) Authenticate(ctx context.Context, tokenString string) (*SessionUser, error) {
	if tokenString == "" {
		return nil, domain.ErrUnauthenticated
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(s.cfg.SessionSecret), nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid {
		return nil, domain.ErrUnauthenticated
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, domain.ErrUnauthenticated
	}
	userID, err := uuidClaim(claims, "sub")
	if err != nil {
		return nil, domain.ErrUnauthenticated
	}
	sessionID, err := uuidClaim(claims, "sid")
	if err != nil {
		return nil, domain.ErrUnauthenticated
	}

	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrUnauthenticated
		}
		return nil, domain.Unexpected(err)
	}
	if session.UserID != userID || session.Expired(s.now()) {
		return nil, domain.ErrUnauthenticated
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrUnauthenticated
		}
		return nil, domain.Unexpected(err)
	}

	return &SessionUser{User: user, SessionID: sessionID}, nil
}

func uuidClaim(claims jwt.MapClaims, key string) (uuid.UUID, error) {
	raw, ok := claims[key].(string)
	if !ok {
		return uuid.Nil, fmt.Errorf("missing %q claim", key)
	}
	return uuid.Parse(raw)
}

func (s *AuthService) Logout(ctx context.Context, sessionID uuid.UUID) error {
	if err := s.sessionRepo.Delete(ctx, sessionID); err != nil {
		return domain.Unexpected(err)
	}
	return nil
}

// DeleteAccount removes every match the user took part in, their sessions,
// and the user, all or nothing.
func (s *AuthService) DeleteAccount(ctx context.Context, userID uuid.UUID) error {
	removed, err := s.userRepo.DeleteAccount(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.NotFound("User not found")
		}
		return domain.Unexpected(fmt.Errorf("delete account: %w", err))
	}

	s.logger.Info("account deleted",
		zap.String("user_id", userID.String()),
		zap.Int64("matches_removed", removed),
	)
	return nil
}

// SweepExpiredSessions deletes sessions past their expiry.
func (s *AuthService) SweepExpiredSessions(ctx context.Context) (int64, error) {
	return s.sessionRepo.DeleteExpired(ctx, s.now())
}
