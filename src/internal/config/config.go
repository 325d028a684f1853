package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

const (
	ModeGrouped = "grouped"
	ModeFlat    = "flat"
)

type Config struct {
	Server     ServerConfig    `mapstructure:"server" json:"server"`
	StorageDir string          `mapstructure:"storage_dir" json:"storage_dir"`
	Retrieval  RetrievalConfig `mapstructure:"retrieval" json:"retrieval"`
	Seed       SeedConfig      `mapstructure:"seed" json:"seed"`
	Logging    LoggingConfig   `mapstructure:"logging" json:"logging"`
}

type ServerConfig struct {
	Addr          string `mapstructure:"addr" json:"addr"`
	CORSOrigin    string `mapstructure:"cors_origin" json:"cors_origin"`
	EffectiveHost string `mapstructure:"-" json:"effectiveHost"`
	Port          int    `mapstructure:"-" json:"port"`
}

type RetrievalConfig struct {
	// Mode selects the retrieve_for_task response shape: grouped or flat.
	Mode               string `mapstructure:"mode" json:"mode"`
	Taxonomy           string `mapstructure:"taxonomy" json:"taxonomy"`
	DefaultSearchLimit int    `mapstructure:"default_search_limit" json:"default_search_limit"`
	DefaultTaskLimit   int    `mapstructure:"default_task_limit" json:"default_task_limit"`
	MaxLimit           int    `mapstructure:"max_limit" json:"max_limit"`
}

type SeedConfig struct {
	Path string `mapstructure:"path" json:"path"`
	// ReloadSchedule is a six-field cron spec (seconds first). Empty disables scheduled reloads.
	ReloadSchedule string `mapstructure:"reload_schedule" json:"reload_schedule"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" json:"level"`
	Format string `mapstructure:"format" json:"format"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.cors_origin", "*")
	v.SetDefault("storage_dir", "")
	v.SetDefault("retrieval.mode", ModeGrouped)
	v.SetDefault("retrieval.taxonomy", "standard")
	v.SetDefault("retrieval.default_search_limit", 5)
	v.SetDefault("retrieval.default_task_limit", 3)
	v.SetDefault("retrieval.max_limit", 20)
	v.SetDefault("seed.path", "")
	v.SetDefault("seed.reload_schedule", "")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// Default returns the configuration used when no file or environment overrides
// are present. It panics if the built-in defaults do not decode or validate.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("config: decode defaults: %v", err))
	}
	if err := cfg.resolve(""); err != nil {
		panic(fmt.Sprintf("config: resolve defaults: %v", err))
	}
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("config: invalid defaults: %v", err))
	}
	return &cfg
}

func Load(override string) (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	appDir := filepath.Join(home, ".memory-gateway")

	// Environment overrides
	if envDir := os.Getenv("MEMGW_STORAGE_DIR"); envDir != "" {
		appDir = envDir
	}
	if err := os.MkdirAll(appDir, 0755); err != nil {
		return nil, fmt.Errorf("create app dir %s: %w", appDir, err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("MEMGW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if override != "" {
		v.SetConfigFile(override)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(appDir)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if cfg.StorageDir == "" {
		cfg.StorageDir = appDir
	}

	if err := cfg.resolve(home); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// resolve computes the derived server fields and expands home-relative paths.
func (cfg *Config) resolve(home string) error {
	host, portStr, err := net.SplitHostPort(cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("invalid server.addr %q: %w", cfg.Server.Addr, err)
	}
	cfg.Server.EffectiveHost = host
	if cfg.Server.EffectiveHost == "" {
		cfg.Server.EffectiveHost = "0.0.0.0"
	}
	p, err := strconv.Atoi(portStr)
	if err != nil {
		return fmt.Errorf("invalid port %q in server.addr %q: %w", portStr, cfg.Server.Addr, err)
	}
	cfg.Server.Port = p

	if home != "" {
		cfg.StorageDir = expandHome(cfg.StorageDir, home)
		cfg.Seed.Path = expandHome(cfg.Seed.Path, home)
	}
	cfg.Retrieval.Mode = strings.ToLower(strings.TrimSpace(cfg.Retrieval.Mode))
	return nil
}

func expandHome(path, home string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}

// Validate checks the retrieval settings that the transport and gateway rely on.
func (cfg *Config) Validate() error {
	r := cfg.Retrieval
	switch r.Mode {
	case ModeGrouped, ModeFlat:
	default:
		return fmt.Errorf("invalid retrieval.mode %q: must be %q or %q", r.Mode, ModeGrouped, ModeFlat)
	}
	switch strings.ToLower(r.Taxonomy) {
	case "", "standard", "identity":
	default:
		return fmt.Errorf("invalid retrieval.taxonomy %q", r.Taxonomy)
	}
	if r.MaxLimit < 1 {
		return fmt.Errorf("retrieval.max_limit must be positive, got %d", r.MaxLimit)
	}
	if r.DefaultSearchLimit < 1 || r.DefaultSearchLimit > r.MaxLimit {
		return fmt.Errorf("retrieval.default_search_limit %d outside 1..%d", r.DefaultSearchLimit, r.MaxLimit)
	}
	if r.DefaultTaskLimit < 1 || r.DefaultTaskLimit > r.MaxLimit {
		return fmt.Errorf("retrieval.default_task_limit %d outside 1..%d", r.DefaultTaskLimit, r.MaxLimit)
	}
	return nil
}
