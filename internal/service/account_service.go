package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"todo_api/internal/domain"
	"todo_api/internal/repository"
)

var (
	ErrEmailTaken    = errors.New("email already taken")
	ErrUserNotFound  = errors.New("user not found")
	ErrWrongPassword = errors.New("wrong password")
	ErrInvalidInput  = errors.New("invalid input")
)

// bcrypt ignores everything past 72 bytes.
const maxPasswordBytes = 72

// UserStore is the part of the user repository the account flow needs.
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
}

type AccountService struct {
	users  UserStore
	hasher *PasswordHasher
	tokens *SessionTokens
}

func NewAccountService(users UserStore, hasher *PasswordHasher, tokens *SessionTokens) *AccountService {
	return &AccountService{users: users, hasher: hasher, tokens: tokens}
}

// Register creates the account. The returned user never carries the hash.
func (s *AccountService) Register(ctx context.Context, username, email, password string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" || email == "" || password == "" {
		return nil, fmt.Errorf("%w: username, email and password are required", ErrInvalidInput)
	}
	if len(password) > maxPasswordBytes {
		return nil, fmt.Errorf("%w: password is too long", ErrInvalidInput)
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("lookup email: %w", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &domain.User{Username: username, Email: email, PasswordHash: hash}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	u.PasswordHash = ""
	return u, nil
}

// Login checks the credentials and returns a freshly signed session token.
func (s *AccountService) Login(ctx context.Context, email, password string) (string, error) {
	u, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, repository.ErrNotFound) {
		return "", ErrUserNotFound
	}
	if err != nil {
		return "", fmt.Errorf("lookup email: %w", err)
	}

	if err := s.hasher.Compare(u.PasswordHash, password); err != nil {
		if errors.Is(err, ErrPasswordMismatch) {
			return "", ErrWrongPassword
		}
		return "", fmt.Errorf("compare password: %w", err)
	}

	return s.tokens.Issue(u.ID)
}
