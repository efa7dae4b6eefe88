package integration

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"todo_api/internal/db"
	"todo_api/internal/domain"
	"todo_api/internal/repository"

	"github.com/jackc/pgx/v5/pgxpool"
)

func openDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}

	pool, err := db.Open(context.Background(), dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(pool.Close)

	applyMigrations(t, pool)
	return pool
}

func applyMigrations(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	migDir := filepath.Join("..", "migrations")
	files, err := os.ReadDir(migDir)
	if err != nil {
		t.Fatalf("read migrations: %v", err)
	}
	for _, f := range files {
		b, err := os.ReadFile(filepath.Join(migDir, f.Name()))
		if err != nil {
			t.Fatalf("read file: %v", err)
		}
		if _, err := pool.Exec(context.Background(), string(b)); err != nil {
			t.Fatalf("apply migration %s: %v", f.Name(), err)
		}
	}
}

func createUser(t *testing.T, users *repository.UserRepository, name string) *domain.User {
	t.Helper()
	u := &domain.User{
		Username:     name,
		Email:        fmt.Sprintf("%s-%d@example.com", name, time.Now().UnixNano()),
		PasswordHash: "$2a$04$notarealhashbutlongenoughforthecolumn",
	}
	if err := users.Create(context.Background(), u); err != nil {
		t.Fatalf("create user %s: %v", name, err)
	}
	return u
}

func TestUserRepository_UniqueEmail(t *testing.T) {
	pool := openDB(t)
	users := repository.NewUserRepository(pool)
	ctx := context.Background()

	u := createUser(t, users, "alice")

	got, err := users.GetByEmail(ctx, u.Email)
	if err != nil || got.ID != u.ID {
		t.Fatalf("get by email = %+v, %v", got, err)
	}

	dup := &domain.User{Username: "other", Email: u.Email, PasswordHash: "x"}
	if err := users.Create(ctx, dup); !errors.Is(err, repository.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}

	if _, err := users.GetByEmail(ctx, "missing-"+u.Email); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTaskRepository_ScopedToOwner(t *testing.T) {
	pool := openDB(t)
	users := repository.NewUserRepository(pool)
	tasks := repository.NewTaskRepository(pool)
	ctx := context.Background()

	alice := createUser(t, users, "alice")
	bob := createUser(t, users, "bob")

	task := &domain.Task{Text: "buy milk", UserID: alice.ID}
	if err := tasks.Create(ctx, task); err != nil {
		t.Fatalf("create task: %v", err)
	}

	bobs, err := tasks.ListByUser(ctx, bob.ID)
	if err != nil || len(bobs) != 0 {
		t.Fatalf("bob's tasks = %v, %v", bobs, err)
	}

	n, err := tasks.Update(ctx, bob.ID, task.ID, domain.CheckUpdate(true))
	if err != nil || n != 0 {
		t.Fatalf("foreign update affected %d rows, err %v", n, err)
	}
	n, err = tasks.Update(ctx, alice.ID, task.ID, domain.TextUpdate("buy oat milk"))
	if err != nil || n != 1 {
		t.Fatalf("own update affected %d rows, err %v", n, err)
	}

	alices, err := tasks.ListByUser(ctx, alice.ID)
	if err != nil || len(alices) != 1 {
		t.Fatalf("alice's tasks = %v, %v", alices, err)
	}
	if alices[0].Text != "buy oat milk" || alices[0].IsChecked {
		t.Fatalf("task = %+v", alices[0])
	}

	if n, _ := tasks.Delete(ctx, bob.ID, task.ID); n != 0 {
		t.Fatalf("bob deleted alice's task")
	}
	if n, _ := tasks.Delete(ctx, alice.ID, task.ID); n != 1 {
		t.Fatalf("alice could not delete her task")
	}
}
