package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

var (
	ErrMissingDBURL     = errors.New("DATABASE_URL must be set")
	ErrMissingJWTSecret = errors.New("JWT_SECRET must be set")
)

type Config struct {
	Env         string
	Port        int
	ServiceName string

	DBURL         string
	DBMaxConns    int32
	StoreDriver   string
	RunMigrations bool

	JWTSecret string
	JWTTTL    time.Duration

	BcryptCost     int
	MaxBodyBytes   int64
	RequestTimeout time.Duration

	OTelEndpoint string
	CORSOrigins  []string
}

// Load reads .env (when present) and the process environment.
func Load() (Config, error) {
	// a missing .env is fine, real deployments use the environment
	_ = godotenv.Load()

	var errs []error

	port, err := getEnvInt("PORT", 3000)
	errs = append(errs, err)

	maxConns, err := getEnvInt32("DB_MAX_CONNS", 5)
	errs = append(errs, err)

	ttlHours, err := getEnvInt("JWT_TTL_HOURS", 24)
	errs = append(errs, err)

	cost, err := getEnvInt("BCRYPT_COST", bcrypt.DefaultCost)
	errs = append(errs, err)

	maxBody, err := getEnvInt("MAX_BODY_BYTES", 1<<20)
	errs = append(errs, err)

	timeoutMs, err := getEnvInt("REQUEST_TIMEOUT_MS", 3000)
	errs = append(errs, err)

	runMigrations, err := getEnvBool("RUN_MIGRATIONS", false)
	errs = append(errs, err)

	cfg := Config{
		Env:            getEnv("APP_ENV", "dev"),
		Port:           port,
		ServiceName:    getEnv("SERVICE_NAME", "authhub"),
		DBURL:          os.Getenv("DATABASE_URL"),
		DBMaxConns:     maxConns,
		StoreDriver:    strings.ToLower(getEnv("STORE_DRIVER", StorePostgres)),
		RunMigrations:  runMigrations,
		JWTSecret:      os.Getenv("JWT_SECRET"),
		JWTTTL:         time.Duration(ttlHours) * time.Hour,
		BcryptCost:     cost,
		MaxBodyBytes:   int64(maxBody),
		RequestTimeout: time.Duration(timeoutMs) * time.Millisecond,
		OTelEndpoint:   os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		CORSOrigins:    splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
	}

	errs = append(errs, cfg.Validate())

	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error

	switch c.StoreDriver {
	case StorePostgres:
		if c.DBURL == "" {
			errs = append(errs, ErrMissingDBURL)
		}
	case StoreMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver))
	}

	if c.JWTSecret == "" {
		errs = append(errs, ErrMissingJWTSecret)
	}

	if c.JWTTTL <= 0 {
		errs = append(errs, errors.New("JWT_TTL_HOURS must be positive"))
	}

	if c.DBMaxConns <= 0 {
		errs = append(errs, errors.New("DB_MAX_CONNS must be positive"))
	}

	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		errs = append(errs, fmt.Errorf("BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost))
	}

	return errors.Join(errs...)
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

// getEnvInt32 rejects values outside the int32 range instead of truncating them.
func getEnvInt32(key string, fallback int32) (int32, error) {
	v := os.Getenv(key)

	if v == "" {
		return fallback, nil
	}

	num, err := strconv.ParseInt(v, 10, 32)

	if err != nil {
		return fallback, fmt.Errorf("%s: %w", key, err)
	}

	return int32(num), nil
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)

	if v == "" {
		return fallback, nil
	}

	num, err := strconv.Atoi(v)

	if err != nil {
		return fallback, fmt.Errorf("%s: %w", key, err)
	}

	return num, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)

	if v == "" {
		return fallback, nil
	}

	b, err := strconv.ParseBool(v)

	if err != nil {
		return fallback, fmt.Errorf("%s: %w", key, err)
	}

	return b, nil
}

func splitList(v string) []string {
	var out []string

	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}

	return out
}
