package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Detector DetectorConfig
	Storage  StorageConfig
	Database DatabaseConfig
	History  HistoryConfig
	Log      LogConfig
}

type ServerConfig struct {
	Port        string
	Mode        string
	CORSOrigins []string
}

type DetectorConfig struct {
	URL     string
	Timeout time.Duration
}

type StorageConfig struct {
	// Driver is one of memory, file, postgres, sqlite.
	Driver     string
	Dir        string
	Key        string
	QuotaBytes int
}

type DatabaseConfig struct {
	DSN  string
	Path string
}

type HistoryConfig struct {
	Capacity int
}

type LogConfig struct {
	Level  string
	Pretty bool
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("detector.url", "http://localhost:8000")
	v.SetDefault("detector.timeout", "60s")
	v.SetDefault("storage.driver", "file")
	v.SetDefault("storage.dir", "data")
	v.SetDefault("storage.key", "anpr_analyses")
	v.SetDefault("storage.quota_bytes", 5*1024*1024)
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.path", "data/anpr-client.db")
	v.SetDefault("history.capacity", 5)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", true)
}

// Load reads .env (if present), then config.yaml from the working directory
// or configFile when given, then ANPR_* environment variables.
func Load(configFile string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("ANPR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:        v.GetString("server.port"),
			Mode:        v.GetString("server.mode"),
			CORSOrigins: v.GetStringSlice("server.cors_origins"),
		},
		Detector: DetectorConfig{
			URL:     strings.TrimRight(v.GetString("detector.url"), "/"),
			Timeout: v.GetDuration("detector.timeout"),
		},
		Storage: StorageConfig{
			Driver:     strings.ToLower(v.GetString("storage.driver")),
			Dir:        v.GetString("storage.dir"),
			Key:        v.GetString("storage.key"),
			QuotaBytes: v.GetInt("storage.quota_bytes"),
		},
		Database: DatabaseConfig{
			DSN:  v.GetString("database.dsn"),
			Path: v.GetString("database.path"),
		},
		History: HistoryConfig{
			Capacity: v.GetInt("history.capacity"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Pretty: v.GetBool("log.pretty"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case "memory", "file", "sqlite":
	case "postgres":
		if c.Database.DSN == "" {
			return errors.New("database.dsn is required for the postgres storage driver")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Storage.Key == "" {
		return errors.New("storage.key cannot be empty")
	}
	if c.History.Capacity <= 0 {
		return fmt.Errorf("history.capacity must be positive, got %d", c.History.Capacity)
	}
	if c.Detector.Timeout <= 0 {
		return fmt.Errorf("detector.timeout must be positive, got %s", c.Detector.Timeout)
	}
	return nil
}
