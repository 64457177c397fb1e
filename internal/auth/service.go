package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/abduss/mediavault/internal/access"
	"github.com/abduss/mediavault/internal/apperr"
	"github.com/abduss/mediavault/internal/config"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const maxPasswordLength = 72 // bcrypt limit

// userStore abstracts the persistence layer.
type userStore interface {
	CreateUser(ctx context.Context, email, passwordHash, role string) (User, error)
	FindUserByEmail(ctx context.Context, email string) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
}

// Service encapsulates authentication and user-management use cases.
type Service struct {
	store    userStore
	cfg      config.AuthConfig
	nowFunc  func() time.Time
	idIssuer string
}

// NewService creates a Service with dependencies.
func NewService(store userStore, cfg config.AuthConfig) *Service {
	return &Service{
		store:    store,
		cfg:      cfg,
		nowFunc:  time.Now,
		idIssuer: "mediavault",
	}
}

// LoginInput carries login credentials.
type LoginInput struct {
	Email    string
	Password string
}

// AuthResult contains user and token information.
type AuthResult struct {
	User  User
	Token Token
}

// Login authenticates credentials and issues a fresh access token.
func (s *Service) Login(ctx context.Context, input LoginInput) (AuthResult, error) {
	if err := validateCredentials(input.Email, input.Password); err != nil {
		return AuthResult{}, apperr.New(apperr.KindUnauthorized, "invalid credentials")
	}

	user, err := s.store.FindUserByEmail(ctx, strings.ToLower(input.Email))
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return AuthResult{}, apperr.New(apperr.KindUnauthorized, "invalid credentials")
		}
		return AuthResult{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return AuthResult{}, apperr.New(apperr.KindUnauthorized, "invalid credentials")
	}

	token, err := s.generateAccessToken(user)
	if err != nil {
		return AuthResult{}, apperr.Wrap(apperr.KindRepository, "generate access token", err)
	}

	return AuthResult{User: user.SafeUser(), Token: token}, nil
}

// CreateUserInput carries data for admin-driven user creation.
type CreateUserInput struct {
	Email    string
	Password string
	Role     string
}

// CreateUser registers a new user with a hashed password. Admin-only at the
// routing layer.
func (s *Service) CreateUser(ctx context.Context, input CreateUserInput) (User, error) {
	if err := validateCredentials(input.Email, input.Password); err != nil {
		return User{}, err
	}

	role := input.Role
	if role == "" {
		role = access.RoleUser
	}
	if role != access.RoleUser && role != access.RoleAdmin {
		return User{}, apperr.New(apperr.KindOperationNotValid, "unknown role").
			With("role", role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.cfg.BcryptCost)
	if err != nil {
		return User{}, apperr.Wrap(apperr.KindRepository, "hash password", err)
	}

	user, err := s.store.CreateUser(ctx, strings.ToLower(input.Email), string(hash), role)
	if err != nil {
		return User{}, err
	}
	return user.SafeUser(), nil
}

// ListUsers returns all registered users without password hashes.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		users[i] = users[i].SafeUser()
	}
	return users, nil
}

func (s *Service) generateAccessToken(user User) (Token, error) {
	now := s.nowFunc()
	expiresAt := now.Add(s.cfg.AccessTokenTTL)

	claims := jwt.MapClaims{
		"sub":  user.ID.String(),
		"iss":  s.idIssuer,
		"aud":  "mediavault-api",
		"iat":  now.Unix(),
		"exp":  expiresAt.Unix(),
		"role": user.Role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.AccessTokenSecret))
	if err != nil {
		return Token{}, err
	}

	return Token{AccessToken: signed, ExpiresAt: expiresAt}, nil
}

func validateCredentials(email, password string) error {
	email = strings.TrimSpace(email)
	if email == "" || !strings.Contains(email, "@") {
		return apperr.New(apperr.KindOperationNotValid, "invalid email")
	}
	if len(password) < 8 || len(password) > maxPasswordLength {
		return apperr.New(apperr.KindOperationNotValid,
			fmt.Sprintf("password must be 8-%d characters", maxPasswordLength))
	}
	return nil
}
