package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/fintutto/vermietify-docs/internal/authz"
	"github.com/fintutto/vermietify-docs/internal/config"
	"github.com/fintutto/vermietify-docs/internal/domain"
	authutil "github.com/fintutto/vermietify-docs/pkg/auth"
)

const tokenIssuer = "vermietify-docs"

// Service implements authentication.
type Service struct {
	repos *domain.Repositories
	cfg   config.AuthConfig
	nowFn func() time.Time
}

// Tokens carries an access/refresh token pair.
type Tokens struct {
	AccessToken           string    `json:"access_token"`
	AccessTokenExpiresAt  time.Time `json:"access_token_expires_at"`
	RefreshToken          string    `json:"refresh_token"`
	RefreshTokenExpiresAt time.Time `json:"refresh_token_expires_at"`
}

// NewService creates the authentication service.
func NewService(repos *domain.Repositories, cfg config.AuthConfig) *Service {
	return &Service{
		repos: repos,
		cfg:   cfg,
		nowFn: time.Now,
	}
}

// WithClock injects a custom time source for tests.
func (s *Service) WithClock(now func() time.Time) {
	if now != nil {
		s.nowFn = now
	}
}

// Register creates a new user. Unknown roles fall back to read-only.
func (s *Service) Register(ctx context.Context, email, password, role string) (*domain.User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrInvalidInput
	}

	if _, err := s.repos.Users.GetByEmail(ctx, email); err == nil {
		return nil, ErrUserExists
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	hash, err := authutil.HashPassword(password)
	if err != nil {
		return nil, err
	}

	normalized := authz.NormalizeRole(role)
	if !authz.ValidRole(normalized) {
		normalized = authz.RoleNurLesen
	}

	user := &domain.User{
		ID:             uuid.NewString(),
		Email:          email,
		HashedPassword: hash,
		Role:           normalized,
		Status:         "active",
	}

	if err := s.repos.Users.Create(ctx, user); err != nil {
		return nil, err
	}

	return s.repos.Users.GetByEmail(ctx, email)
}

// Login verifies credentials and returns fresh tokens.
func (s *Service) Login(ctx context.Context, email, password string) (*Tokens, *domain.User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, nil, ErrInvalidCredentials
	}

	user, err := s.repos.Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, err
	}

	if user.Status != "active" {
		return nil, nil, ErrUserDisabled
	}

	if !authutil.VerifyPassword(user.HashedPassword, password) {
		return nil, nil, ErrInvalidCredentials
	}

	if err := s.repos.Users.UpdateLastLogin(ctx, user.ID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, nil, err
	}

	tokens, err := s.issueTokens(user)
	if err != nil {
		return nil, nil, err
	}

	return tokens, user, nil
}

// Refresh rotates the token pair from a valid refresh token.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*Tokens, *domain.User, error) {
	claims, err := authutil.ParseToken(refreshToken, s.cfg.RefreshTokenSecret)
	if err != nil {
		return nil, nil, ErrTokenInvalid
	}

	if claims.TokenType != "refresh" {
		return nil, nil, ErrTokenInvalid
	}

	user, err := s.repos.Users.GetByEmail(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil, ErrTokenInvalid
		}
		return nil, nil, err
	}

	tokens, err := s.issueTokens(user)
	if err != nil {
		return nil, nil, err
	}

	return tokens, user, nil
}

func (s *Service) issueTokens(user *domain.User) (*Tokens, error) {
	now := s.nowFn()
	accessTTL := s.cfg.AccessTokenTTL
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	refreshTTL := s.cfg.RefreshTokenTTL
	if refreshTTL <= 0 {
		refreshTTL = 30 * 24 * time.Hour
	}

	accessClaims := authutil.Claims{
		UserID:    user.ID,
		Role:      user.Role,
		TokenType: "access",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  user.Email,
			Issuer:   tokenIssuer,
			Audience: []string{tokenIssuer},
		},
	}

	accessToken, err := authutil.GenerateToken(s.cfg.AccessTokenSecret, accessTTL, accessClaims)
	if err != nil {
		return nil, err
	}

	refreshClaims := authutil.Claims{
		UserID:    user.ID,
		Role:      user.Role,
		TokenType: "refresh",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  user.Email,
			Issuer:   tokenIssuer,
			Audience: []string{tokenIssuer},
		},
	}

	refreshToken, err := authutil.GenerateToken(s.cfg.RefreshTokenSecret, refreshTTL, refreshClaims)
	if err != nil {
		return nil, err
	}

	return &Tokens{
		AccessToken:           accessToken,
		AccessTokenExpiresAt:  now.Add(accessTTL),
		RefreshToken:          refreshToken,
		RefreshTokenExpiresAt: now.Add(refreshTTL),
	}, nil
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}
