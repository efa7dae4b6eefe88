// Package apitest wires the full HTTP stack over in-memory stores for tests.
package apitest

import (
	"context"
	"errors"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"todo_api/internal/domain"
	apihttp "todo_api/internal/http"
	"todo_api/internal/http/handlers"
	"todo_api/internal/logger"
	"todo_api/internal/repository"
	"todo_api/internal/service"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

const Secret = "test-secret"

// ErrStoreDown is returned by stores after Fail is called.
var ErrStoreDown = errors.New("store unavailable")

type Users struct {
	mu     sync.Mutex
	nextID int64
	rows   map[string]domain.User
}

func NewUsers() *Users {
	return &Users{rows: make(map[string]domain.User)}
}

func (u *Users) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	row, ok := u.rows[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &row, nil
}

func (u *Users) Create(_ context.Context, user *domain.User) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if _, ok := u.rows[user.Email]; ok {
		return repository.ErrEmailTaken
	}
	u.nextID++
	user.ID = u.nextID
	user.CreatedAt = time.Now()
	u.rows[user.Email] = *user
	return nil
}

func (u *Users) Count() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.rows)
}

type Tasks struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]domain.Task
	failed bool
}

func NewTasks() *Tasks {
	return &Tasks{rows: make(map[int64]domain.Task)}
}

// Fail makes every later call return ErrStoreDown.
func (s *Tasks) Fail() {
	s.mu.Lock()
	s.failed = true
	s.mu.Unlock()
}

func (s *Tasks) ListByUser(_ context.Context, userID int64) ([]domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failed {
		return nil, ErrStoreDown
	}
	res := make([]domain.Task, 0)
	for _, t := range s.rows {
		if t.UserID == userID {
			res = append(res, t)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (s *Tasks) Create(_ context.Context, t *domain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failed {
		return ErrStoreDown
	}
	s.nextID++
	t.ID = s.nextID
	s.rows[t.ID] = *t
	return nil
}

func (s *Tasks) Delete(_ context.Context, userID, id int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failed {
		return 0, ErrStoreDown
	}
	t, ok := s.rows[id]
	if !ok || t.UserID != userID {
		return 0, nil
	}
	delete(s.rows, id)
	return 1, nil
}

func (s *Tasks) Update(_ context.Context, userID, id int64, u domain.TaskUpdate) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failed {
		return 0, ErrStoreDown
	}
	t, ok := s.rows[id]
	if !ok || t.UserID != userID {
		return 0, nil
	}
	switch u.Kind {
	case domain.UpdateChecked:
		t.IsChecked = u.Checked
	case domain.UpdateText:
		t.Text = u.Text
	default:
		return 0, errors.New("unsupported update")
	}
	s.rows[id] = t
	return 1, nil
}

// Get returns a task regardless of owner.
func (s *Tasks) Get(id int64) (domain.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.rows[id]
	return t, ok
}

type Env struct {
	Server *httptest.Server
	Router *gin.Engine
	Users  *Users
	Tasks  *Tasks
	Tokens *service.SessionTokens
}

// NewServer starts the API on an httptest server; it is closed on cleanup.
func NewServer(t *testing.T) *Env {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tokens, err := service.NewSessionTokens(Secret)
	if err != nil {
		t.Fatalf("tokens: %v", err)
	}
	users := NewUsers()
	tasks := NewTasks()
	accounts := service.NewAccountService(users, service.NewPasswordHasher(bcrypt.MinCost), tokens)

	router := apihttp.NewRouter(apihttp.RouterConfig{
		Handler:       handlers.NewHandler(tasks, accounts, tokens, handlers.CookiePolicy(false)),
		Health:        handlers.NewHealthHandler(pingOK{}, "test"),
		Tokens:        tokens,
		Logger:        logger.Discard(),
		AllowedOrigin: "http://localhost:5173",
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &Env{Server: srv, Router: router, Users: users, Tasks: tasks, Tokens: tokens}
}

type pingOK struct{}

func (pingOK) Ping(context.Context) error { return nil }
