package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Registry RegistryConfig `yaml:"registry" mapstructure:"registry"`
	Sources  SourcesConfig  `yaml:"sources" mapstructure:"sources"`
	Search   SearchConfig   `yaml:"search" mapstructure:"search"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// RegistryConfig holds the AED asset registry credentials and endpoints.
// Empty credentials are valid: the registry is then queried anonymously.
type RegistryConfig struct {
	BaseURL        string  `yaml:"base_url" mapstructure:"base_url"`
	TokenURL       string  `yaml:"token_url" mapstructure:"token_url"`
	ClientID       string  `yaml:"client_id" mapstructure:"client_id"`
	ClientSecret   string  `yaml:"client_secret" mapstructure:"client_secret"`
	RequestsPerSec float64 `yaml:"requests_per_sec" mapstructure:"requests_per_sec"`
}

// SourcesConfig locates the layer source definitions.
type SourcesConfig struct {
	File string `yaml:"file" mapstructure:"file"`
}

// SearchConfig configures proximity queries.
type SearchConfig struct {
	DefaultRadiusKm float64 `yaml:"default_radius_km" mapstructure:"default_radius_km"`
	MaxResults      int     `yaml:"max_results" mapstructure:"max_results"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("ATLAS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "atlas.db")
	v.SetDefault("registry.base_url", "https://hjertestarterregister.113.no/ords/api/v1")
	v.SetDefault("registry.token_url", "https://hjertestarterregister.113.no/ords/api/oauth/token")
	v.SetDefault("registry.requests_per_sec", 2)
	v.SetDefault("search.default_radius_km", 2)
	v.SetDefault("search.max_results", 5000)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
