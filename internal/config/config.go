package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"todo_api/internal/logger"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

const (
	EnvProduction  = "production"
	EnvDevelopment = "development"
)

type Config struct {
	AppPort     string
	DatabaseURL string
	JWTSecret   string
	FrontendURL string
	Env         string

	LogLevel string
	LogJSON  bool

	BcryptCost int

	// Redis is optional, rate limiting falls back to memory without it
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// 0 disables the limiter
	APIRateLimit    int
	APIRateWindow   time.Duration
	TaskWriteLimit  int
	TaskWriteWindow time.Duration
}

func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// Load reads .env (if any) and the process environment. Exits on missing
// required settings.
func Load() *Config {
	_ = godotenv.Load()

	cfg, err := Parse(os.Getenv)
	if err != nil {
		logger.Fatal("invalid configuration", "error", err)
	}
	return cfg
}

// Parse builds a Config from a getenv-style lookup.
func Parse(getenv func(string) string) (*Config, error) {
	dbURL := getenv("DATABASE_URL")
	if dbURL == "" {
		// the original deployment exported this name
		dbURL = getenv("POSTGRES_URL")
	}
	if dbURL == "" {
		return nil, errors.New("DATABASE_URL is not set")
	}

	jwtSecret := getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, errors.New("JWT_SECRET is not set")
	}

	port := getenv("APP_PORT")
	if port == "" {
		port = "3000"
	}

	frontendURL := strings.TrimRight(getenv("FRONTEND_URL"), "/")
	if frontendURL == "" {
		frontendURL = "http://localhost:5173"
	}

	env := strings.ToLower(strings.TrimSpace(getenv("APP_ENV")))
	if env == "" {
		env = strings.ToLower(strings.TrimSpace(getenv("NODE_ENV")))
	}
	if env == "" {
		env = EnvDevelopment
	}

	cost := bcrypt.DefaultCost
	if v := getenv("BCRYPT_COST"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < bcrypt.MinCost || n > bcrypt.MaxCost {
			return nil, errors.New("BCRYPT_COST must be between 4 and 31")
		}
		cost = n
	}

	redisDB := 0
	if v := getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			redisDB = n
		}
	}

	return &Config{
		AppPort:         port,
		DatabaseURL:     dbURL,
		JWTSecret:       jwtSecret,
		FrontendURL:     frontendURL,
		Env:             env,
		LogLevel:        getenv("LOG_LEVEL"),
		LogJSON:         strings.EqualFold(getenv("LOG_FORMAT"), "json"),
		BcryptCost:      cost,
		RedisAddr:       getenv("REDIS_ADDR"),
		RedisPassword:   getenv("REDIS_PASSWORD"),
		RedisDB:         redisDB,
		APIRateLimit:    intOr(getenv("API_RATE_LIMIT"), 0),
		APIRateWindow:   secondsOr(getenv("API_RATE_WINDOW_SECONDS"), time.Minute),
		TaskWriteLimit:  intOr(getenv("TASK_WRITE_LIMIT"), 0),
		TaskWriteWindow: secondsOr(getenv("TASK_WRITE_WINDOW_SECONDS"), time.Minute),
	}, nil
}

func intOr(v string, def int) int {
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func secondsOr(v string, def time.Duration) time.Duration {
	n := intOr(v, 0)
	if n == 0 {
		return def
	}
	return time.Duration(n) * time.Second
}
