package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Security SecurityConfig
}

type DatabaseConfig struct {
	Host              string
	Port              int
	User              string
	Password          string
	Name              string
	SSLMode           string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

type ServerConfig struct {
	Port         string
	Env          string
	LogLevel     string
	StoreBackend string // "postgres" or "memory"
}

type SecurityConfig struct {
	// Login attempt tracking
	MaxLoginAttempts int
	LockoutDuration  time.Duration

	// Violation ledger / auto-blacklist
	ViolationWindow    time.Duration
	BlacklistThreshold int
	BlacklistDuration  time.Duration

	// Attack monitor / defensive mode
	AttackThreshold       int
	AttackWindow          time.Duration
	DefensiveModeDuration time.Duration

	// Challenges
	ChallengeTTL time.Duration

	// Submission guard
	SubmissionLimit   int
	SubmissionWindow  time.Duration
	MinFillDuration   time.Duration
	HoneypotField     string
	RequestsPerMinute int // transport-level per-IP limit on auth endpoints
	SweepInterval     time.Duration
	DemoUsers         map[string]string // username -> bcrypt hash, reference login verifier
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	env := getEnv("ENV", "development")
	backend := getEnv("STORE_BACKEND", "postgres")
	if backend != "postgres" && backend != "memory" {
		return nil, fmt.Errorf("STORE_BACKEND must be \"postgres\" or \"memory\", got %q", backend)
	}

	cfg := &Config{
		Database: DatabaseConfig{
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              getEnvAsInt("DB_PORT", 5432),
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", ""),
			Name:              getEnv("DB_NAME", "gatehouse"),
			SSLMode:           getEnv("DB_SSLMODE", "disable"),
			MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 5)),
			MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
			MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
			HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
		},
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			Env:          env,
			LogLevel:     getEnv("LOG_LEVEL", "info"),
			StoreBackend: backend,
		},
		Security: SecurityConfig{
			MaxLoginAttempts:      getEnvAsInt("MAX_LOGIN_ATTEMPTS", 5),
			LockoutDuration:       getEnvAsDuration("LOCKOUT_DURATION", 15*time.Minute),
			ViolationWindow:       getEnvAsDuration("VIOLATION_WINDOW", 10*time.Minute),
			BlacklistThreshold:    getEnvAsInt("BLACKLIST_THRESHOLD", 5),
			BlacklistDuration:     getEnvAsDuration("BLACKLIST_DURATION", 1*time.Hour),
			AttackThreshold:       getEnvAsInt("ATTACK_THRESHOLD", 20),
			AttackWindow:          getEnvAsDuration("ATTACK_WINDOW", 5*time.Minute),
			DefensiveModeDuration: getEnvAsDuration("DEFENSIVE_MODE_DURATION", 30*time.Minute),
			ChallengeTTL:          getEnvAsDuration("CHALLENGE_TTL", 10*time.Minute),
			SubmissionLimit:       getEnvAsInt("SUBMISSION_LIMIT", 10),
			SubmissionWindow:      getEnvAsDuration("SUBMISSION_WINDOW", 1*time.Minute),
			MinFillDuration:       getEnvAsDuration("MIN_FILL_DURATION", 2*time.Second),
			HoneypotField:         getEnv("HONEYPOT_FIELD", "website"),
			RequestsPerMinute:     getEnvAsInt("AUTH_REQUESTS_PER_MINUTE", 30),
			SweepInterval:         getEnvAsDuration("SWEEP_INTERVAL", 10*time.Minute),
			DemoUsers:             parseDemoUsers(getEnv("DEMO_USERS", "")),
		},
	}

	if backend == "postgres" && cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required when STORE_BACKEND=postgres")
	}

	if cfg.Security.MaxLoginAttempts < 1 {
		return nil, fmt.Errorf("MAX_LOGIN_ATTEMPTS must be at least 1")
	}
	if cfg.Security.BlacklistThreshold < 1 {
		return nil, fmt.Errorf("BLACKLIST_THRESHOLD must be at least 1")
	}
	if cfg.Security.AttackThreshold < 1 {
		return nil, fmt.Errorf("ATTACK_THRESHOLD must be at least 1")
	}

	return cfg, nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// parseDemoUsers parses "user:bcrypthash,user2:hash2". Bcrypt hashes contain
// no commas or colons beyond the scheme prefix, so splitting on the first
// colon is safe.
func parseDemoUsers(raw string) map[string]string {
	users := make(map[string]string)
	if raw == "" {
		return users
	}
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		name, hash, ok := strings.Cut(pair, ":")
		if !ok || name == "" || hash == "" {
			continue
		}
		users[name] = hash
	}
	return users
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}
