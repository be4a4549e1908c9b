package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration values
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Treasury TreasuryConfig
	Scanner  ScannerConfig
	Games    GamesConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port string
	Env  string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// URL returns the database connection URL
func (c DatabaseConfig) URL() string {
	return "postgres://" + c.User + ":" + c.Password + "@" + c.Host + ":" + strconv.Itoa(c.Port) + "/" + c.DBName + "?sslmode=" + c.SSLMode + "&prepare_threshold=0"
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	URL      string
	PASSWORD string
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret        string
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
}

// TreasuryConfig holds the custodial wallet signing material. The private
// key is stored AES-GCM encrypted and decrypted at boot with the passphrase.
type TreasuryConfig struct {
	EncryptedPrivateKey string
	Passphrase          string
	// Receipt polling for submitted withdrawals.
	ReceiptPollInterval time.Duration
	ReceiptPollTimeout  time.Duration
}

// ScannerConfig holds deposit scanner configuration
type ScannerConfig struct {
	Interval time.Duration
}

// GamesConfig holds game engine tuning
type GamesConfig struct {
	// PlinkoSearchTimeout bounds the per-drop trajectory search.
	PlinkoSearchTimeout time.Duration
}

// Load loads configuration from environment variables
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Env:  getEnv("SERVER_ENV", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "winmore"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			URL:      getEnv("REDIS_URL", "redis://localhost:6379"),
			PASSWORD: getEnv("REDIS_PASSWORD", ""),
		},
		JWT: JWTConfig{
			Secret:        getEnv("JWT_SECRET", "change-this-in-production"),
			AccessExpiry:  getEnvAsDuration("JWT_ACCESS_EXPIRY", 15*time.Minute),
			RefreshExpiry: getEnvAsDuration("JWT_REFRESH_EXPIRY", 7*24*time.Hour),
		},
		Treasury: TreasuryConfig{
			EncryptedPrivateKey: getEnv("TREASURY_ENCRYPTED_PRIVATE_KEY", ""),
			Passphrase:          getEnv("TREASURY_KEY_PASSPHRASE", ""),
			ReceiptPollInterval: getEnvAsDuration("WITHDRAWAL_POLL_INTERVAL", 5*time.Second),
			ReceiptPollTimeout:  getEnvAsDuration("WITHDRAWAL_POLL_TIMEOUT", 5*time.Minute),
		},
		Scanner: ScannerConfig{
			Interval: getEnvAsDuration("SCANNER_INTERVAL", 15*time.Second),
		},
		Games: GamesConfig{
			PlinkoSearchTimeout: getEnvAsDuration("PLINKO_SEARCH_TIMEOUT", 3*time.Second),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
