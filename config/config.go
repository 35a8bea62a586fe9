package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerAddr  string
	CORSOrigins []string

	DBDriver   string
	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string
	DBPath     string

	RedisAddr     string
	RedisPort     string
	RedisPassword string

	JWTSecret string
	JWTTTL    time.Duration

	// Credential cipher material, base64 encoded
	CredentialKey string
	CredentialIV  string

	// Seed configuration
	DefaultUsername    string
	DefaultPassword    string
	DefaultDisplayName string
	SeedTimeout        time.Duration
	SeedMaxAttempts    int

	ShutdownTimeout time.Duration
	LoginRateLimit  float64
	LoginRateBurst  int

	// Log configuration
	LogLevel      string
	LogFilename   string
	LogMaxSize    int
	LogMaxBackups int
	LogMaxAge     int
	LogCompress   bool
}

func (c *Config) DSN() string {
	if c.DBDriver == "sqlite" {
		return c.DBPath
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort)
}

func (c *Config) RedisFullAddr() string {
	return fmt.Sprintf("%s:%s", c.RedisAddr, c.RedisPort)
}

// RedisEnabled reports whether a Redis host was configured.
func (c *Config) RedisEnabled() bool {
	return c.RedisAddr != ""
}

// CredentialMaterial decodes the configured cipher key and IV.
func (c *Config) CredentialMaterial() (key, iv []byte, err error) {
	key, err = base64.StdEncoding.DecodeString(c.CredentialKey)
	if err != nil {
		return nil, nil, fmt.Errorf("CREDENTIAL_KEY is not valid base64: %w", err)
	}
	iv, err = base64.StdEncoding.DecodeString(c.CredentialIV)
	if err != nil {
		return nil, nil, fmt.Errorf("CREDENTIAL_IV is not valid base64: %w", err)
	}
	return key, iv, nil
}

// Validate checks the settings the server cannot start without.
func (c *Config) Validate() error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.CredentialKey == "" || c.CredentialIV == "" {
		errs = append(errs, errors.New("CREDENTIAL_KEY and CREDENTIAL_IV are required"))
	}
	switch c.DBDriver {
	case "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver))
	}
	return errors.Join(errs...)
}

func LoadConfig() (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		// Ignore error if .env file is not found
		if !os.IsNotExist(err) {
			return nil, err
		}
	}

	return &Config{
		ServerAddr:  getEnv("SERVER_ADDR", ":8080"),
		CORSOrigins: getEnvAsList("CORS_ORIGINS", []string{"http://localhost:5173", "http://localhost:8080"}),

		DBDriver:   getEnv("DB_DRIVER", "postgres"),
		DBHost:     os.Getenv("DB_HOST"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBPath:     getEnv("DB_PATH", "data/prompts.db"),

		RedisAddr:     os.Getenv("REDIS_HOST"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		JWTSecret: os.Getenv("JWT_SECRET"),
		JWTTTL:    getEnvAsDuration("JWT_TTL", 72*time.Hour),

		CredentialKey: os.Getenv("CREDENTIAL_KEY"),
		CredentialIV:  os.Getenv("CREDENTIAL_IV"),

		DefaultUsername:    getEnv("DEFAULT_USERNAME", "admin"),
		DefaultPassword:    getEnv("DEFAULT_PASSWORD", "admin123"),
		DefaultDisplayName: getEnv("DEFAULT_DISPLAY_NAME", "Administrator"),
		SeedTimeout:        getEnvAsDuration("SEED_TIMEOUT", 30*time.Second),
		SeedMaxAttempts:    getEnvAsInt("SEED_MAX_ATTEMPTS", 3),

		ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		LoginRateLimit:  getEnvAsFloat("LOGIN_RATE_LIMIT", 1),
		LoginRateBurst:  getEnvAsInt("LOGIN_RATE_BURST", 5),

		LogLevel:      getEnv("LOG_LEVEL", "INFO"),
		LogFilename:   getEnv("LOG_FILENAME", "logs/app.log"),
		LogMaxSize:    getEnvAsInt("LOG_MAX_SIZE", 100),
		LogMaxBackups: getEnvAsInt("LOG_MAX_BACKUPS", 3),
		LogMaxAge:     getEnvAsInt("LOG_MAX_AGE", 28),
		LogCompress:   getEnvAsBool("LOG_COMPRESS", true),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if valueStr, exists := os.LookupEnv(key); exists {
		if value, err := strconv.Atoi(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if valueStr, exists := os.LookupEnv(key); exists {
		if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
			return value
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if valueStr, exists := os.LookupEnv(key); exists {
		if value, err := strconv.ParseBool(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if valueStr, exists := os.LookupEnv(key); exists {
		if value, err := time.ParseDuration(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(valueStr) == "" {
		return defaultValue
	}
	var values []string
	for _, v := range strings.Split(valueStr, ",") {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	return values
}
