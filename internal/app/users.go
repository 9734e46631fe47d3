package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"nexture/pkg/auth"
	"nexture/pkg/domain"
)

// SignUp registers a new user.
func (a *App) SignUp(loginID, password, name string) (domain.User, error) {
	loginID = strings.TrimSpace(loginID)
	if loginID == "" || password == "" {
		return domain.User{}, ErrLoginAndPasswordRequired
	}
	if err := auth.ValidatePassword(password); err != nil {
		return domain.User{}, err
	}
	taken, err := a.store.HasUserLoginID(loginID)
	if err != nil {
		return domain.User{}, fmt.Errorf("check login id: %w", err)
	}
	if taken {
		return domain.User{}, ErrLoginIDTaken
	}
	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}
	user := domain.User{
		ID:           uuid.NewString(),
		LoginID:      loginID,
		Name:         strings.TrimSpace(name),
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := a.store.SaveUser(user); err != nil {
		return domain.User{}, fmt.Errorf("save user: %w", err)
	}
	return user, nil
}

// Login validates credentials and issues a session token.
func (a *App) Login(loginID, password string) (domain.User, string, error) {
	loginID = strings.TrimSpace(loginID)
	user, ok, err := a.store.GetUserByLoginID(loginID)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("fetch user: %w", err)
	}
	if !ok {
		return domain.User{}, "", ErrInvalidCredentials
	}
	if !auth.CheckPassword(password, user.PasswordHash) {
		return domain.User{}, "", ErrInvalidCredentials
	}
	token, err := a.sessions.NewSession(user.ID)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("create session: %w", err)
	}
	return user, token, nil
}

// Logout invalidates a session token.
func (a *App) Logout(token string) error {
	return a.sessions.DeleteSession(token)
}

// UserFromToken resolves a user from a session token.
func (a *App) UserFromToken(token string) (domain.User, bool) {
	uid, ok, err := a.sessions.GetUserIDByToken(token)
	if err != nil || !ok {
		return domain.User{}, false
	}
	user, found, err := a.store.GetUserByID(uid)
	if err != nil || !found {
		return domain.User{}, false
	}
	return user, true
}

const searchLimitDefault = 5

// SearchLoginIDs returns registered login IDs starting with prefix.
// A limit of zero or less falls back to the default of 5.
func (a *App) SearchLoginIDs(prefix string, limit int) ([]string, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return nil, ErrSearchPrefixRequired
	}
	if limit <= 0 {
		limit = searchLimitDefault
	}
	ids, err := a.store.SearchLoginIDs(prefix, limit)
	if err != nil {
		return nil, fmt.Errorf("search login ids: %w", err)
	}
	return ids, nil
}

// LoginIDExists reports whether a login ID is already registered,
// for signup-form availability checks.
func (a *App) LoginIDExists(loginID string) (bool, error) {
	taken, err := a.store.HasUserLoginID(strings.TrimSpace(loginID))
	if err != nil {
		return false, fmt.Errorf("check login id: %w", err)
	}
	return taken, nil
}
