package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"elib/internal/util"
	"elib/pkg/auth"
	"elib/pkg/domain"
	"elib/pkg/store"
)

// Profile is the public view of an account.
type Profile struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Email string          `json:"email"`
	Role  domain.UserRole `json:"role"`
}

// RegisterInput is the sign-up request.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     string
}

func profileOf(u domain.User) Profile {
	return Profile{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

// Register creates an account and returns an access token.
func (a *App) Register(ctx context.Context, in RegisterInput) (string, Profile, error) {
	name := strings.TrimSpace(in.Name)
	email := strings.TrimSpace(in.Email)
	role := strings.TrimSpace(in.Role)
	if name == "" || email == "" || in.Password == "" || role == "" {
		return "", Profile{}, validation("All fields are required")
	}
	if role != string(domain.RoleUser) && role != string(domain.RoleAuthor) {
		return "", Profile{}, validation("Role must be either user or author")
	}
	exists, err := a.store.HasUserEmail(ctx, email)
	if err != nil {
		return "", Profile{}, persistence("Database error", err)
	}
	if exists {
		return "", Profile{}, validation("User already exists")
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return "", Profile{}, persistence("Database error", err)
	}
	now := time.Now().UTC()
	user := domain.User{
		ID:           util.NewID(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         domain.UserRole(role),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := a.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			return "", Profile{}, validation("User already exists")
		}
		return "", Profile{}, persistence("Database error", err)
	}
	token, err := a.sessions.NewSession(user)
	if err != nil {
		return "", Profile{}, persistence("Database error", err)
	}
	return token, profileOf(user), nil
}

// Login verifies credentials and returns an access token.
func (a *App) Login(ctx context.Context, email, password string) (string, Profile, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return "", Profile{}, validation("All fields are required")
	}
	user, ok, err := a.store.GetUserByEmail(ctx, email)
	if err != nil {
		return "", Profile{}, persistence("Database error", err)
	}
	if !ok {
		return "", Profile{}, notFound("User not found")
	}
	if !auth.CheckPassword(password, user.PasswordHash) {
		return "", Profile{}, unauthorized("Invalid credentials", nil)
	}
	token, err := a.sessions.NewSession(user)
	if err != nil {
		return "", Profile{}, persistence("Token generation failed", err)
	}
	return token, profileOf(user), nil
}

// Logout revokes the token until it expires.
func (a *App) Logout(_ context.Context, token string) error {
	if err := a.sessions.DeleteSession(token); err != nil {
		return persistence("Logout failed", err)
	}
	return nil
}

// Authenticate verifies a bearer token and returns the caller.
// Expired and revoked tokens are Unauthorized, other bad tokens Forbidden.
func (a *App) Authenticate(_ context.Context, token string) (store.Session, error) {
	sess, err := a.sessions.Verify(token)
	switch {
	case err == nil:
		return sess, nil
	case errors.Is(err, store.ErrTokenExpired):
		return store.Session{}, unauthorized("Token expired", err)
	case errors.Is(err, store.ErrTokenRevoked):
		return store.Session{}, unauthorized("Token revoked", err)
	case errors.Is(err, store.ErrTokenInvalid):
		return store.Session{}, &Error{Kind: ErrForbidden, Message: "Invalid token", Err: err}
	default:
		return store.Session{}, &Error{Kind: ErrPersistence, Message: "Token verification failed", Err: err}
	}
}
