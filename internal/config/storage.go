package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/pocketmoney/chatledger/internal/common"
)

// Storage holds the persistence settings resolved from configuration.
type Storage struct {
	DatabasePath  string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// LoadStorageConfig resolves storage settings. It follows this precedence:
// 1. Viper configuration (from config file or CHATLEDGER_ env vars)
// 2. Direct environment variables (REDIS_*)
// 3. Defaults (SQLite under the user data dir, no Redis)
func LoadStorageConfig() (*Storage, error) {
	cfg := &Storage{
		DatabasePath: DefaultDatabasePath(),
	}

	if v := viper.GetString("database.path"); v != "" {
		cfg.DatabasePath = ExpandPath(v)
	}
	if v := viper.GetString("redis.addr"); v != "" {
		cfg.RedisAddr = v
	}
	if v := viper.GetString("redis.password"); v != "" {
		cfg.RedisPassword = v
	}
	cfg.RedisDB = viper.GetInt("redis.db")

	// Override with direct environment variables if not set
	if cfg.RedisAddr == "" {
		cfg.RedisAddr = os.Getenv("REDIS_ADDR")
	}
	if cfg.RedisPassword == "" {
		cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Storage) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("database path: %w", common.ErrMissingConfig)
	}
	return nil
}

// RedisEnabled reports whether a Redis usage store is configured.
func (c *Storage) RedisEnabled() bool {
	return c.RedisAddr != ""
}

// DefaultDatabasePath is the SQLite location used when nothing is
// configured.
func DefaultDatabasePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "chatledger.db"
	}
	return filepath.Join(home, ".local", "share", "chatledger", "chatledger.db")
}
