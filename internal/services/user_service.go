package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"gorm.io/gorm"

	"github.com/aldidev/snipurl/internal/models"
	"github.com/aldidev/snipurl/pkg/crypto"
	apperrors "github.com/aldidev/snipurl/pkg/errors"
)

var (
	// ErrUserNotFound indicates the requested user does not exist.
	ErrUserNotFound = apperrors.New("USER_NOT_FOUND", "User not found", http.StatusNotFound)
	// ErrEmailTaken indicates the email already belongs to an account.
	ErrEmailTaken = apperrors.New("USER_EMAIL_TAKEN", "this email is already in use", http.StatusConflict)
	// ErrUsernameTaken indicates the username already belongs to an account.
	ErrUsernameTaken = apperrors.New("USER_USERNAME_TAKEN", "this username is already in use", http.StatusConflict)
)

// CreateUserInput describes the fields accepted when registering a user.
type CreateUserInput struct {
	Username string
	Email    string
	Password string
}

// UserService manages the user lifecycle: registration, lookups,
// verification state and credential updates.
type UserService struct {
	db       *gorm.DB
	hashCost int
}

// NewUserService constructs a UserService instance.
func NewUserService(db *gorm.DB, hashCost int) (*UserService, error) {
	if db == nil {
		return nil, errors.New("user service: db is required")
	}
	return &UserService{db: db, hashCost: hashCost}, nil
}

// Create provisions a new user with a hashed password. The account starts
// unverified and cannot log in until a verification code is redeemed.
func (s *UserService) Create(ctx context.Context, input CreateUserInput) (*models.User, error) {
	ctx = ensureContext(ctx)

	username := strings.TrimSpace(input.Username)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if username == "" {
		return nil, apperrors.NewBadRequest("username is required")
	}
	if email == "" {
		return nil, apperrors.NewBadRequest("email is required")
	}
	if strings.TrimSpace(input.Password) == "" {
		return nil, apperrors.NewBadRequest("password is required")
	}

	hashed, err := crypto.HashPassword(input.Password, s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("user service: hash password: %w", err)
	}

	user := &models.User{
		Username: username,
		Email:    email,
		Password: hashed,
	}

	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, s.duplicateError(ctx, username, email, err)
		}
		return nil, fmt.Errorf("user service: create user: %w", err)
	}

	user.Password = ""
	return user, nil
}

// duplicateError reports which unique field clashed. The driver message is
// consulted first, with a lookup fallback for vendors that omit the column.
func (s *UserService) duplicateError(ctx context.Context, username, email string, cause error) error {
	switch violatedField(cause, "email", "username") {
	case "email":
		return ErrEmailTaken.WithInternal(cause)
	case "username":
		return ErrUsernameTaken.WithInternal(cause)
	}

	var existing models.User
	err := s.db.WithContext(ctx).
		Select("id").
		Take(&existing, "email = ?", email).Error
	if err == nil {
		return ErrEmailTaken.WithInternal(cause)
	}
	_ = username
	return ErrUsernameTaken.WithInternal(cause)
}

// GetByID fetches a user by primary key. The password hash is never part
// of the result; callers needing it go through GetPasswordHash.
func (s *UserService) GetByID(ctx context.Context, id string) (*models.User, error) {
	ctx = ensureContext(ctx)

	if strings.TrimSpace(id) == "" {
		return nil, apperrors.NewBadRequest("user id is required")
	}

	var user models.User
	err := s.db.WithContext(ctx).Omit("password").Take(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("user service: get user: %w", err)
	}

	return &user, nil
}

// GetByIdentifier fetches a user by username or email, without the password
// hash. Exactly one of the two identifiers must be supplied.
func (s *UserService) GetByIdentifier(ctx context.Context, username, email string) (*models.User, error) {
	ctx = ensureContext(ctx)

	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))

	if (username == "") == (email == "") {
		return nil, apperrors.NewBadRequest("provide either a username or an email")
	}

	query := s.db.WithContext(ctx).Omit("password")
	if username != "" {
		query = query.Where("username = ?", username)
	} else {
		query = query.Where("email = ?", email)
	}

	var user models.User
	err := query.Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("user service: get user: %w", err)
	}

	return &user, nil
}

// SetUsername renames a user, enforcing username uniqueness.
func (s *UserService) SetUsername(ctx context.Context, id, username string) (*models.User, error) {
	ctx = ensureContext(ctx)

	username = strings.TrimSpace(username)
	if username == "" {
		return nil, apperrors.NewBadRequest("username is required")
	}

	user, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if user.Username == username {
		return user, nil
	}

	user.Username = username
	if err := s.db.WithContext(ctx).Model(user).Update("username", username).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrUsernameTaken.WithInternal(err)
		}
		return nil, fmt.Errorf("user service: set username: %w", err)
	}

	return user, nil
}

// GetPasswordHash fetches only the stored hash for a user.
func (s *UserService) GetPasswordHash(ctx context.Context, id string) (string, error) {
	ctx = ensureContext(ctx)

	var user models.User
	err := s.db.WithContext(ctx).Select("password").Take(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrUserNotFound
	}
	if err != nil {
		return "", fmt.Errorf("user service: get password hash: %w", err)
	}

	return user.Password, nil
}

// Exists reports whether a user with the given id is present.
func (s *UserService) Exists(ctx context.Context, id string) (bool, error) {
	ctx = ensureContext(ctx)

	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("user service: exists: %w", err)
	}
	return count > 0, nil
}

// SetPasswordHash replaces the stored password hash for a user.
func (s *UserService) SetPasswordHash(ctx context.Context, id, hash string) error {
	ctx = ensureContext(ctx)

	result := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Update("password", hash)
	if result.Error != nil {
		return fmt.Errorf("user service: set password: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// SetVerified marks an account as email-verified.
func (s *UserService) SetVerified(ctx context.Context, id string) error {
	ctx = ensureContext(ctx)

	result := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Update("is_verified", true)
	if result.Error != nil {
		return fmt.Errorf("user service: set verified: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// Delete removes a user together with their shortened URLs.
func (s *UserService) Delete(ctx context.Context, id string) error {
	ctx = ensureContext(ctx)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&models.URL{}).Error; err != nil {
			return fmt.Errorf("user service: delete urls: %w", err)
		}

		result := tx.Delete(&models.User{}, "id = ?", id)
		if result.Error != nil {
			return fmt.Errorf("user service: delete user: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrUserNotFound
		}
		return nil
	})
}
