package config

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreFile     = "file"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"

	RotationPerToken   = "per_token"
	RotationReplaceAll = "replace_all"
)

type Config struct {
	ServiceName string
	ServerPort  int
	LogLevel    string

	DataDir   string
	UsersFile string
	MoviesDir string

	StoreDriver string
	StoreStrict bool
	DatabaseURL string
	SQLitePath  string

	JWTAccessSecret  []byte
	JWTRefreshSecret []byte
	AccessTTL        time.Duration
	RefreshTTL       time.Duration
	RotationPolicy   string

	CookieSecure bool
	CORSOrigins  []string

	KafkaBrokers []string

	ESURL      string
	ESUser     string
	ESPassword string
	ESIndex    string
}

func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Notice: .env file not found: %v. Using system environment variables", err)
	}

	dataDir := EnvDefault("DATA_DIR", "data")

	cfg := &Config{
		ServiceName: EnvDefault("SERVICE_NAME", "movie_reviews"),
		ServerPort:  EnvIntDefault("SERVER_PORT", 8080),
		LogLevel:    EnvDefault("LOG_LEVEL", "info"),

		DataDir:   dataDir,
		UsersFile: EnvDefault("USERS_FILE", filepath.Join(dataDir, "users.json")),
		MoviesDir: EnvDefault("MOVIES_DIR", filepath.Join(dataDir, "imdb_reviews")),

		StoreDriver: strings.ToLower(EnvDefault("STORE_DRIVER", StoreFile)),
		StoreStrict: EnvBoolDefault("STORE_STRICT", false),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		SQLitePath:  EnvDefault("SQLITE_PATH", filepath.Join(dataDir, "users.db")),

		JWTAccessSecret:  []byte(os.Getenv("JWT_SECRET")),
		JWTRefreshSecret: []byte(os.Getenv("JWT_REFRESH_SECRET")),
		AccessTTL:        EnvDurationDefault("ACCESS_TTL", 30*time.Minute),
		RefreshTTL:       EnvDurationDefault("REFRESH_TTL", 7*24*time.Hour),
		RotationPolicy:   strings.ToLower(EnvDefault("ROTATION_POLICY", RotationPerToken)),

		CookieSecure: EnvBoolDefault("COOKIE_SECURE", true),
		CORSOrigins:  CSV(EnvDefault("CORS_ORIGINS", "*")),

		KafkaBrokers: CSV(os.Getenv("KAFKA_BROKERS")),

		ESURL:      os.Getenv("ES_URL"),
		ESUser:     os.Getenv("ES_USER"),
		ESPassword: os.Getenv("ES_PASSWORD"),
		ESIndex:    EnvDefault("ES_INDEX", "movies"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if len(c.JWTAccessSecret) == 0 {
		return errors.New("missing required env JWT_SECRET")
	}
	if len(c.JWTRefreshSecret) == 0 {
		return errors.New("missing required env JWT_REFRESH_SECRET")
	}
	if bytes.Equal(c.JWTAccessSecret, c.JWTRefreshSecret) {
		return errors.New("JWT_SECRET and JWT_REFRESH_SECRET must differ")
	}
	if c.AccessTTL <= 0 || c.RefreshTTL <= 0 {
		return errors.New("token ttl must be positive")
	}

	switch c.StoreDriver {
	case StoreFile, StoreSQLite:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return errors.New("missing required env DATABASE_URL for postgres store")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}

	switch c.RotationPolicy {
	case RotationPerToken, RotationReplaceAll:
	default:
		return fmt.Errorf("unknown ROTATION_POLICY %q", c.RotationPolicy)
	}

	return nil
}

func (c *Config) Addr() string {
	return ":" + strconv.Itoa(c.ServerPort)
}

func CSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func EnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func EnvIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func EnvBoolDefault(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func EnvDurationDefault(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
