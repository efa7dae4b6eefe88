package main

import (
	"context"
	"errors"
	"flag"
	"log"

	"todo_api/internal/config"
	"todo_api/internal/db"
	"todo_api/internal/repository"
	"todo_api/internal/service"
)

func main() {
	username := flag.String("username", "testuser", "username")
	email := flag.String("email", "test@example.com", "email")
	password := flag.String("password", "password", "password")
	flag.Parse()

	cfg := config.Load()

	pool := db.Connect(cfg.DatabaseURL)
	defer pool.Close()

	tokens, err := service.NewSessionTokens(cfg.JWTSecret)
	if err != nil {
		log.Fatalf("session tokens: %v", err)
	}
	users := repository.NewUserRepository(pool)
	accounts := service.NewAccountService(users, service.NewPasswordHasher(cfg.BcryptCost), tokens)
	ctx := context.Background()

	u, err := accounts.Register(ctx, *username, *email, *password)
	switch {
	case errors.Is(err, service.ErrEmailTaken):
		log.Printf("user %s already exists\n", *email)
	case err != nil:
		log.Fatalf("create user failed: %v", err)
	default:
		log.Printf("user created id=%d\n", u.ID)
	}

	token, err := accounts.Login(ctx, *email, *password)
	if err != nil {
		log.Fatalf("login failed: %v", err)
	}
	log.Printf("authToken=%s\n", token)
}
