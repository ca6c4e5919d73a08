package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultJWTSecret is only acceptable for local development.
const DefaultJWTSecret = "default-very-insecure-secret-key"

type Config struct {
	ServiceName string          `mapstructure:"service_name"`
	HTTP        HTTPConfig      `mapstructure:"http"`
	GRPC        GRPCConfig      `mapstructure:"grpc"`
	Log         LogConfig       `mapstructure:"log"`
	Database    DatabaseConfig  `mapstructure:"database"`
	JWT         JWTConfig       `mapstructure:"jwt"`
	Bootstrap   BootstrapConfig `mapstructure:"bootstrap"`
	Consul      ConsulConfig    `mapstructure:"consul"`
}

type HTTPConfig struct {
	Port     int    `mapstructure:"port"`
	BasePath string `mapstructure:"base_path"`
}

type GRPCConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"` // mysql, postgres or sqlite
	DSN      string `mapstructure:"dsn"`
	LogLevel string `mapstructure:"log_level"`
}

type JWTConfig struct {
	Secret   string        `mapstructure:"secret"`
	Issuer   string        `mapstructure:"issuer"`
	Audience string        `mapstructure:"audience"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// BootstrapConfig describes the roles and the first administrator seeded on migrate.
type BootstrapConfig struct {
	Roles          []string `mapstructure:"roles"`
	AdminEmail     string   `mapstructure:"admin_email"`
	AdminPassword  string   `mapstructure:"admin_password"`
	AdminFullName  string   `mapstructure:"admin_full_name"`
	AdminRoleNames []string `mapstructure:"admin_roles"`
}

type ConsulConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Address     string `mapstructure:"address"`
	ServiceHost string `mapstructure:"service_host"`
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("service_name", "role-center")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.base_path", "/api")
	v.SetDefault("grpc.enabled", true)
	v.SetDefault("grpc.port", 50051)
	v.SetDefault("log.level", "info")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "file:rolecenter.db?cache=shared")
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("jwt.secret", DefaultJWTSecret) // CHANGE THIS IN PRODUCTION
	v.SetDefault("jwt.issuer", "role-center")
	v.SetDefault("jwt.audience", "role-center-clients")
	v.SetDefault("jwt.ttl", 24*time.Hour)
	v.SetDefault("bootstrap.roles", []string{"Admin", "User"})
	v.SetDefault("bootstrap.admin_email", "admin@example.com")
	v.SetDefault("bootstrap.admin_password", "Admin@123")
	v.SetDefault("bootstrap.admin_full_name", "Administrator")
	v.SetDefault("bootstrap.admin_roles", []string{"Admin"})
	v.SetDefault("consul.enabled", false)
	v.SetDefault("consul.address", "127.0.0.1:8500")
	v.SetDefault("consul.service_host", "127.0.0.1")
}

// NewViper returns a viper instance wired for config files and ROLECENTER_* env overrides.
// An empty configFile searches ./config.yaml and ./config/config.yaml.
func NewViper(configFile string) *viper.Viper {
	v := viper.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("ROLECENTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)
	return v
}

// Load reads the config file (if any) and decodes v into a validated Config.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return cfg, fmt.Errorf("reading config file: %w", err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the fields the service cannot start without.
func (c Config) Validate() error {
	switch c.Database.Driver {
	case "mysql", "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q (supported: mysql, postgres, sqlite)", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return errors.New("database.dsn is required")
	}
	if c.HTTP.Port <= 0 {
		return fmt.Errorf("invalid http.port %d", c.HTTP.Port)
	}
	if c.GRPC.Enabled && c.GRPC.Port <= 0 {
		return fmt.Errorf("invalid grpc.port %d", c.GRPC.Port)
	}
	if c.JWT.Secret == "" {
		return errors.New("jwt.secret is required")
	}
	if c.JWT.Secret == DefaultJWTSecret && c.Log.Level != "debug" {
		return errors.New("jwt.secret must be changed from the default unless log.level is debug")
	}
	if c.JWT.TTL <= 0 {
		return fmt.Errorf("invalid jwt.ttl %s", c.JWT.TTL)
	}
	if c.HTTP.BasePath != "" && !strings.HasPrefix(c.HTTP.BasePath, "/") {
		return fmt.Errorf("http.base_path must start with '/': %q", c.HTTP.BasePath)
	}
	return nil
}
