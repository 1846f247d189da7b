package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/aldidev/snipurl/internal/auth"
	"github.com/aldidev/snipurl/internal/models"
	"github.com/aldidev/snipurl/pkg/crypto"
	apperrors "github.com/aldidev/snipurl/pkg/errors"
	"github.com/aldidev/snipurl/pkg/metrics"
)

var (
	// ErrPasswordIncorrect is returned when a supplied password does not match.
	ErrPasswordIncorrect = apperrors.New("AUTH_PASSWORD_INCORRECT", "Password is incorrect", http.StatusBadRequest)
	// ErrNotVerified blocks accounts that have not redeemed a verification code.
	ErrNotVerified = apperrors.New("AUTH_NOT_VERIFIED", "Please verify your email before logging in", http.StatusForbidden)
)

// TokenPair bundles the access and refresh tokens returned on login.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// LoginInput identifies an account by username or email, never both.
type LoginInput struct {
	Username string
	Email    string
	Password string
}

// AuthService implements signup, login and password changes on top of the
// user directory and the token service.
type AuthService struct {
	users    *UserService
	tokens   *auth.TokenService
	hashCost int
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(users *UserService, tokens *auth.TokenService, hashCost int) (*AuthService, error) {
	if users == nil {
		return nil, errors.New("auth service: user service is required")
	}
	if tokens == nil {
		return nil, errors.New("auth service: token service is required")
	}
	return &AuthService{users: users, tokens: tokens, hashCost: hashCost}, nil
}

// Signup registers a new, unverified account.
func (s *AuthService) Signup(ctx context.Context, input CreateUserInput) (*models.User, error) {
	user, err := s.users.Create(ctx, input)
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("signup_failure").Inc()
		return nil, err
	}

	metrics.AuthAttempts.WithLabelValues("signup_success").Inc()
	return user, nil
}

// Login verifies credentials and mints a token pair.
//
// The verification check runs before the password comparison, so an
// unverified account is told to verify even when the password is wrong.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*models.User, TokenPair, error) {
	user, err := s.users.GetByIdentifier(ctx, input.Username, input.Email)
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("login_failure").Inc()
		return nil, TokenPair{}, err
	}

	if !user.IsVerified {
		metrics.AuthAttempts.WithLabelValues("login_unverified").Inc()
		return nil, TokenPair{}, ErrNotVerified
	}

	hash, err := s.users.GetPasswordHash(ctx, user.ID)
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("login_failure").Inc()
		return nil, TokenPair{}, err
	}

	if !crypto.VerifyPassword(hash, input.Password) {
		metrics.AuthAttempts.WithLabelValues("login_failure").Inc()
		return nil, TokenPair{}, ErrPasswordIncorrect
	}

	pair, err := s.issueTokens(user.ID)
	if err != nil {
		return nil, TokenPair{}, err
	}

	metrics.AuthAttempts.WithLabelValues("login_success").Inc()
	return user, pair, nil
}

// Refresh mints a fresh access token for a user whose refresh token was
// already validated, confirming the account still exists.
func (s *AuthService) Refresh(ctx context.Context, userID string) (string, error) {
	exists, err := s.users.Exists(ctx, userID)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", ErrUserNotFound
	}

	access, err := s.tokens.GenerateAccessToken(userID)
	if err != nil {
		return "", fmt.Errorf("auth service: generate access token: %w", err)
	}
	return access, nil
}

// ChangePassword swaps the stored hash after checking the current password.
func (s *AuthService) ChangePassword(ctx context.Context, userID, current, next string) error {
	hash, err := s.users.GetPasswordHash(ctx, userID)
	if err != nil {
		return err
	}

	if !crypto.VerifyPassword(hash, current) {
		return ErrPasswordIncorrect
	}

	hashed, err := crypto.HashPassword(next, s.hashCost)
	if err != nil {
		return fmt.Errorf("auth service: hash password: %w", err)
	}

	return s.users.SetPasswordHash(ctx, userID, hashed)
}

func (s *AuthService) issueTokens(userID string) (TokenPair, error) {
	access, err := s.tokens.GenerateAccessToken(userID)
	if err != nil {
		return TokenPair{}, fmt.Errorf("auth service: generate access token: %w", err)
	}

	refresh, err := s.tokens.GenerateRefreshToken(userID)
	if err != nil {
		return TokenPair{}, fmt.Errorf("auth service: generate refresh token: %w", err)
	}

	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
