package config

import (
	"crypto/sha256"
	"encoding/json"
	"os"
	"path/filepath"
)

// Config holds the application configuration
type Config struct {
	DatabasePath  string `json:"database_path"`
	APIPort       string `json:"api_port"`
	LogLevel      string `json:"log_level"`
	DataDir       string `json:"data_dir"`
	JWTSecret     string `json:"jwt_secret"`
	EncryptionKey string `json:"encryption_key"` // key used to encrypt linked mail account credentials
	CORSOrigins   string `json:"cors_origins"`   // comma separated origins, * allows all
	PublicBaseURL string `json:"public_base_url"`
}

// Default configuration values
const (
	DefaultDatabasePath  = "data/hora_mail.db"
	DefaultAPIPort       = "8080"
	DefaultLogLevel      = "INFO"
	DefaultDataDir       = "data"
	DefaultJWTSecret     = "hora-mail-default-secret-change-in-production"
	DefaultEncryptionKey = "" // empty derives from JWTSecret
	DefaultCORSOrigins   = "*"
	DefaultPublicBaseURL = ""
)

// Load loads configuration from environment variables and config file.
// Priority: environment variables > config file > default values.
func Load() (*Config, error) {
	cfg := &Config{
		DatabasePath:  DefaultDatabasePath,
		APIPort:       DefaultAPIPort,
		LogLevel:      DefaultLogLevel,
		DataDir:       DefaultDataDir,
		JWTSecret:     DefaultJWTSecret,
		EncryptionKey: DefaultEncryptionKey,
		CORSOrigins:   DefaultCORSOrigins,
		PublicBaseURL: DefaultPublicBaseURL,
	}

	// Config file is optional
	if err := cfg.loadFromFile(); err != nil {
		return nil, err
	}

	cfg.loadFromEnv()

	return cfg, nil
}

// loadFromFile loads configuration from config.json if present
func (c *Config) loadFromFile() error {
	configPaths := []string{
		"config.json",
		filepath.Join(c.DataDir, "config.json"),
	}

	for _, path := range configPaths {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if err := json.Unmarshal(data, c); err != nil {
			return err
		}
		return nil
	}

	return nil
}

// loadFromEnv loads configuration from environment variables
func (c *Config) loadFromEnv() {
	if val := os.Getenv("HORA_DATABASE_PATH"); val != "" {
		c.DatabasePath = val
	}
	if val := os.Getenv("HORA_API_PORT"); val != "" {
		c.APIPort = val
	}
	if val := os.Getenv("HORA_LOG_LEVEL"); val != "" {
		c.LogLevel = val
	}
	if val := os.Getenv("HORA_DATA_DIR"); val != "" {
		c.DataDir = val
	}
	if val := os.Getenv("HORA_JWT_SECRET"); val != "" {
		c.JWTSecret = val
	}
	if val := os.Getenv("HORA_ENCRYPTION_KEY"); val != "" {
		c.EncryptionKey = val
	}
	if val := os.Getenv("HORA_CORS_ORIGINS"); val != "" {
		c.CORSOrigins = val
	}
	if val := os.Getenv("HORA_PUBLIC_BASE_URL"); val != "" {
		c.PublicBaseURL = val
	}
}

// GetEncryptionKey returns the 32-byte key used for credential encryption.
// If EncryptionKey is set, it is used; otherwise the key is derived from
// JWTSecret for backward compatibility with single-secret deployments.
func (c *Config) GetEncryptionKey() []byte {
	if c.EncryptionKey != "" {
		hash := sha256.Sum256([]byte(c.EncryptionKey))
		return hash[:]
	}
	hash := sha256.Sum256([]byte(c.JWTSecret + "-encryption"))
	return hash[:]
}

// Save saves the current configuration to a file
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
