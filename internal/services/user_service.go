package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/charlesng35/tripmate/internal/models"
	"github.com/charlesng35/tripmate/pkg/crypto"
	apperrors "github.com/charlesng35/tripmate/pkg/errors"
)

// ErrInvalidCredentials is returned for unknown emails and wrong passwords alike.
var ErrInvalidCredentials = apperrors.ErrInvalidCredentials.WithMessage("Invalid credentials")

// RegisterInput describes a new account.
type RegisterInput struct {
	Email    string
	Password string
	Name     string
}

// UserService manages accounts.
type UserService struct {
	db *gorm.DB
}

// NewUserService constructs a UserService.
func NewUserService(db *gorm.DB) (*UserService, error) {
	if db == nil {
		return nil, errors.New("user service: db is required")
	}
	return &UserService{db: db}, nil
}

// Register creates an account with a bcrypt password hash.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	ctx = ensureContext(ctx)
	email := models.NormalizeEmail(input.Email)
	if email == "" || input.Password == "" {
		return nil, apperrors.NewBadRequest("email and password are required")
	}

	hash, err := crypto.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("user service: hash password: %w", err)
	}

	user := models.User{Email: email, Password: hash, Name: strings.TrimSpace(input.Name)}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("user service: create user: %w", err)
	}
	return &user, nil
}

// Authenticate verifies the email and password pair.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ensureContext(ctx)).Where("email = ?", models.NormalizeEmail(email)).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("user service: load user: %w", err)
	}
	if !crypto.VerifyPassword(user.Password, password) {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

// Get loads a user by id.
func (s *UserService) Get(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ensureContext(ctx)).First(&user, id).Error; err != nil {
		return nil, notFoundOr(err, ErrUserNotFound)
	}
	return &user, nil
}

// FindByEmail loads a user by address, used when inviting members by email.
func (s *UserService) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ensureContext(ctx)).Where("email = ?", models.NormalizeEmail(email)).First(&user).Error; err != nil {
		return nil, notFoundOr(err, ErrUserNotFound)
	}
	return &user, nil
}
