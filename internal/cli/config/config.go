package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// FileName is the base name of the configuration file
const FileName = "modelkit"

// Config represents the modelkit configuration
type Config struct {
	Log      LogConfig      `mapstructure:"log"`
	Database DatabaseConfig `mapstructure:"database"`
	Schema   SchemaConfig   `mapstructure:"schema"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Codegen  CodegenConfig  `mapstructure:"codegen"`
}

// LogConfig configures the zap logger
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	URL    string `mapstructure:"url"`
}

// SchemaConfig locates the model manifest and names the id properties
type SchemaConfig struct {
	Manifest  string `mapstructure:"manifest"`
	IDKey     string `mapstructure:"id_key"`
	TempIDKey string `mapstructure:"temp_id_key"`
}

// CacheConfig configures the schema snapshot cache. An empty RedisAddr
// selects the in-memory cache.
type CacheConfig struct {
	RedisAddr string `mapstructure:"redis_addr"`
	Prefix    string `mapstructure:"prefix"`
}

// CodegenConfig configures accessor generation
type CodegenConfig struct {
	Package string `mapstructure:"package"`
	Output  string `mapstructure:"output"`
}

// Load loads the configuration from path, or from modelkit.yml in the
// current directory when path is empty. Environment variables prefixed with
// MODELKIT_ override file values, e.g. MODELKIT_DATABASE_URL.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
	v.SetDefault("database.driver", "sqlite3")
	v.SetDefault("database.url", "modelkit.db")
	v.SetDefault("schema.manifest", "models.yml")
	v.SetDefault("schema.id_key", "id")
	v.SetDefault("schema.temp_id_key", "dummyId")
	v.SetDefault("cache.redis_addr", "")
	v.SetDefault("cache.prefix", "modelkit:")
	v.SetDefault("codegen.package", "models")
	v.SetDefault("codegen.output", "models_gen.go")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("MODELKIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found - use defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if url := os.Getenv("DATABASE_URL"); url != "" && os.Getenv("MODELKIT_DATABASE_URL") == "" {
		config.Database.URL = url
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// FindConfig walks up from the working directory to the nearest modelkit.yml
// or modelkit.yaml
func FindConfig() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		for _, ext := range []string{".yml", ".yaml"} {
			candidate := filepath.Join(dir, FileName+ext)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no %s.yml found", FileName)
		}
		dir = parent
	}
}

func validateConfig(cfg *Config) error {
	switch strings.ToLower(cfg.Database.Driver) {
	case "pgx", "postgres", "sqlite3":
	default:
		return fmt.Errorf("database.driver must be one of pgx, postgres, sqlite3, got: %s", cfg.Database.Driver)
	}

	if cfg.Schema.IDKey == "" {
		return fmt.Errorf("schema.id_key must not be empty")
	}
	if cfg.Schema.TempIDKey == "" || cfg.Schema.TempIDKey == cfg.Schema.IDKey {
		return fmt.Errorf("schema.temp_id_key must be set and differ from schema.id_key, got: %q", cfg.Schema.TempIDKey)
	}
	return nil
}
