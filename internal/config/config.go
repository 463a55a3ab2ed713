package config // package config loads application configuration from environment variables

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Directory settings select either a MySQL
// server (production) or a local SQLite file; tenant stores are always
// SQLite files under TenantDataDir.
type Config struct {
	Env          string // application environment (e.g. "development", "production")
	Port         string // HTTP port to listen on
	JWTSecret    string // secret used to sign JWTs
	AccessTTLMin int    // access token time-to-live in minutes
	BcryptCost   int    // bcrypt cost for password hashing
	LogLevel     string // zap level name

	DirectoryDriver string // "sqlite" or "mysql"
	DirectoryPath   string // sqlite file for the directory when DirectoryDriver is sqlite
	DBUser          string // MySQL user
	DBPass          string // MySQL password (optional)
	DBHost          string // MySQL host
	DBPort          string // MySQL port
	DBName          string // MySQL schema

	TenantDataDir    string        // directory holding one <code>.db file per tenant
	TenantIdleTTL    time.Duration // how long an unused tenant handle stays open
	TenantSweepEvery time.Duration // how often idle handles are evicted
	BusinessTimezone string        // IANA zone used for "calendar day" reporting

	SuperAdminUsername string // seeded on startup when no super admin exists
	SuperAdminPassword string
	RabbitURL          string // empty disables event publishing
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
	cfg := Config{
		Env:          getenv("APP_ENV", "development"),
		Port:         getenv("APP_PORT", "8080"),
		JWTSecret:    must("JWT_SECRET"),
		AccessTTLMin: mustInt("ACCESS_TOKEN_TTL_MIN"),
		BcryptCost:   envInt("BCRYPT_COST", 10),
		LogLevel:     getenv("LOG_LEVEL", "info"),

		DirectoryDriver: strings.ToLower(getenv("DIRECTORY_DRIVER", "sqlite")),
		DirectoryPath:   getenv("DIRECTORY_PATH", filepath.Join("data", "directory.db")),
		DBUser:          os.Getenv("DB_USER"),
		DBPass:          os.Getenv("DB_PASS"),
		DBHost:          getenv("DB_HOST", "localhost"),
		DBPort:          getenv("DB_PORT", "3306"),
		DBName:          getenv("DB_NAME", "pos_directory"),

		TenantDataDir:    getenv("TENANT_DATA_DIR", filepath.Join("data", "tenants")),
		TenantIdleTTL:    envDur("TENANT_POOL_IDLE_TTL", 10*time.Minute),
		TenantSweepEvery: envDur("TENANT_POOL_SWEEP", time.Minute),
		BusinessTimezone: getenv("BUSINESS_TIMEZONE", "UTC"),

		SuperAdminUsername: getenv("SUPERADMIN_USERNAME", "superadmin"),
		SuperAdminPassword: os.Getenv("SUPERADMIN_PASSWORD"),
		RabbitURL:          os.Getenv("RABBITMQ_URL"),
	}
	if cfg.DirectoryDriver != "sqlite" && cfg.DirectoryDriver != "mysql" {
		log.Fatalf("invalid DIRECTORY_DRIVER: %q", cfg.DirectoryDriver)
	}
	if cfg.DirectoryDriver == "mysql" && cfg.DBUser == "" {
		log.Fatalf("missing required env var: DB_USER")
	}
	return cfg
}

// Location resolves BusinessTimezone, falling back to UTC.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.BusinessTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the retrieved string into an integer.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}
