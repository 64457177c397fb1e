package auth

import (
	"context"
	"testing"
	"time"

	"github.com/abduss/mediavault/internal/access"
	"github.com/abduss/mediavault/internal/apperr"
	"github.com/abduss/mediavault/internal/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type memoryUserStore struct {
	byEmail map[string]User
}

func newMemoryUserStore() *memoryUserStore {
	return &memoryUserStore{byEmail: make(map[string]User)}
}

func (m *memoryUserStore) CreateUser(_ context.Context, email, passwordHash, role string) (User, error) {
	if _, ok := m.byEmail[email]; ok {
		return User{}, apperr.New(apperr.KindOperationNotValid, "email already registered").
			With("email", email)
	}
	user := User{
		ID:           uuid.New(),
		Email:        email,
		Role:         role,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	m.byEmail[email] = user
	return user, nil
}

func (m *memoryUserStore) FindUserByEmail(_ context.Context, email string) (User, error) {
	user, ok := m.byEmail[email]
	if !ok {
		return User{}, apperr.New(apperr.KindNotFound, "user not found").With("email", email)
	}
	return user, nil
}

func (m *memoryUserStore) ListUsers(_ context.Context) ([]User, error) {
	users := make([]User, 0, len(m.byEmail))
	for _, u := range m.byEmail {
		users = append(users, u)
	}
	return users, nil
}

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		AccessTokenSecret: "auth-test-secret",
		AccessTokenTTL:    time.Hour,
		BcryptCost:        bcrypt.MinCost,
	}
}

func seedUser(t *testing.T, store *memoryUserStore, email, password, role string) User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user, err := store.CreateUser(context.Background(), email, string(hash), role)
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func TestLoginIssuesVerifiableToken(t *testing.T) {
	store := newMemoryUserStore()
	seeded := seedUser(t, store, "owner@example.com", "correct-horse", access.RoleAdmin)
	svc := NewService(store, testAuthConfig())

	result, err := svc.Login(context.Background(), LoginInput{
		Email:    "Owner@Example.com",
		Password: "correct-horse",
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if result.User.PasswordHash != "" {
		t.Errorf("login result must not expose the password hash")
	}
	if result.User.ID != seeded.ID {
		t.Errorf("user id = %s, want %s", result.User.ID, seeded.ID)
	}
	if !result.Token.ExpiresAt.After(time.Now()) {
		t.Errorf("token expiry %v must be in the future", result.Token.ExpiresAt)
	}

	parsed, err := jwt.Parse(result.Token.AccessToken, func(*jwt.Token) (interface{}, error) {
		return []byte("auth-test-secret"), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		t.Fatalf("issued token must verify: %v", err)
	}
	claims := parsed.Claims.(jwt.MapClaims)
	if claims["sub"] != seeded.ID.String() {
		t.Errorf("sub = %v, want %s", claims["sub"], seeded.ID)
	}
	if claims["role"] != access.RoleAdmin {
		t.Errorf("role = %v, want %s", claims["role"], access.RoleAdmin)
	}
}

func TestLoginWrongPasswordUnauthorized(t *testing.T) {
	store := newMemoryUserStore()
	seedUser(t, store, "owner@example.com", "correct-horse", access.RoleUser)
	svc := NewService(store, testAuthConfig())

	_, err := svc.Login(context.Background(), LoginInput{
		Email:    "owner@example.com",
		Password: "wrong-password",
	})
	if !apperr.IsKind(err, apperr.KindUnauthorized) {
		t.Fatalf("expected Unauthorized, got %v", err)
	}
}

func TestLoginUnknownEmailUnauthorized(t *testing.T) {
	svc := NewService(newMemoryUserStore(), testAuthConfig())

	_, err := svc.Login(context.Background(), LoginInput{
		Email:    "ghost@example.com",
		Password: "irrelevant1",
	})
	if !apperr.IsKind(err, apperr.KindUnauthorized) {
		t.Fatalf("expected Unauthorized, got %v", err)
	}
}

func TestLoginMalformedCredentialsUnauthorized(t *testing.T) {
	svc := NewService(newMemoryUserStore(), testAuthConfig())

	cases := []LoginInput{
		{Email: "", Password: "long-enough"},
		{Email: "not-an-email", Password: "long-enough"},
		{Email: "a@b.com", Password: "short"},
	}
	for _, input := range cases {
		if _, err := svc.Login(context.Background(), input); !apperr.IsKind(err, apperr.KindUnauthorized) {
			t.Errorf("input %+v: expected Unauthorized, got %v", input, err)
		}
	}
}

func TestCreateUserDefaultsToUserRole(t *testing.T) {
	store := newMemoryUserStore()
	svc := NewService(store, testAuthConfig())

	user, err := svc.CreateUser(context.Background(), CreateUserInput{
		Email:    "New@Example.com",
		Password: "long-enough",
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if user.Role != access.RoleUser {
		t.Errorf("role = %s, want %s", user.Role, access.RoleUser)
	}
	if user.Email != "new@example.com" {
		t.Errorf("email must be lowercased, got %s", user.Email)
	}
	if user.PasswordHash != "" {
		t.Errorf("created user must not expose the password hash")
	}

	stored := store.byEmail["new@example.com"]
	if stored.PasswordHash == "long-enough" || stored.PasswordHash == "" {
		t.Errorf("stored password must be hashed")
	}
}

func TestCreateUserRejectsUnknownRole(t *testing.T) {
	svc := NewService(newMemoryUserStore(), testAuthConfig())

	_, err := svc.CreateUser(context.Background(), CreateUserInput{
		Email:    "a@b.com",
		Password: "long-enough",
		Role:     "superuser",
	})
	if !apperr.IsKind(err, apperr.KindOperationNotValid) {
		t.Fatalf("expected OperationNotValid, got %v", err)
	}
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	store := newMemoryUserStore()
	svc := NewService(store, testAuthConfig())

	input := CreateUserInput{Email: "a@b.com", Password: "long-enough"}
	if _, err := svc.CreateUser(context.Background(), input); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := svc.CreateUser(context.Background(), input); !apperr.IsKind(err, apperr.KindOperationNotValid) {
		t.Fatalf("expected OperationNotValid for duplicate email, got %v", err)
	}
}

func TestListUsersStripsHashes(t *testing.T) {
	store := newMemoryUserStore()
	seedUser(t, store, "a@b.com", "long-enough", access.RoleUser)
	seedUser(t, store, "c@d.com", "long-enough", access.RoleAdmin)
	svc := NewService(store, testAuthConfig())

	users, err := svc.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("list users: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("expected 2 users, got %d", len(users))
	}
	for _, u := range users {
		if u.PasswordHash != "" {
			t.Errorf("user %s exposes password hash", u.Email)
		}
	}
}
