package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Addr      string
	Mode      string // "dev" or "prod", controls logger + gin mode
	DBDSN     string
	JWTSecret string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// External auth provider admin API (identity deletion).
	AuthAdminURL   string
	AuthServiceKey string

	// Replicate
	ReplicateBaseURL  string
	ReplicateAPIToken string
	PollInterval      time.Duration
	MaxPollAttempts   int
}

func Load() Config {
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		dsn = "host=127.0.0.1 port=5432 user=postgres password=postgres dbname=kapsa sslmode=disable"
	}

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "dev-secret-change-me"
	}

	addr := os.Getenv("ADDR")
	if addr == "" {
		addr = ":8080"
	}

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "127.0.0.1:6379"
	}
	redisDB := 0
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			redisDB = n
		}
	}

	replicateURL := os.Getenv("REPLICATE_BASE_URL")
	if replicateURL == "" {
		replicateURL = "https://api.replicate.com"
	}

	pollInterval := time.Second
	if v := os.Getenv("POLL_INTERVAL_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			pollInterval = time.Duration(n) * time.Millisecond
		}
	}

	maxPolls := 120
	if v := os.Getenv("MAX_POLL_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			maxPolls = n
		}
	}

	return Config{
		Addr:      addr,
		Mode:      os.Getenv("APP_MODE"),
		DBDSN:     dsn,
		JWTSecret: secret,

		RedisAddr:     redisAddr,
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       redisDB,

		AuthAdminURL:   os.Getenv("AUTH_ADMIN_URL"),
		AuthServiceKey: os.Getenv("AUTH_SERVICE_KEY"),

		ReplicateBaseURL:  replicateURL,
		ReplicateAPIToken: os.Getenv("REPLICATE_API_TOKEN"),
		PollInterval:      pollInterval,
		MaxPollAttempts:   maxPolls,
	}
}
