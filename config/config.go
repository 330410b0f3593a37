package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
)

// MinBcryptCost is the lowest work factor a deployment may configure.
const MinBcryptCost = 10

type Config struct {
	App struct {
		Timezone string `mapstructure:"timezone"`
	} `mapstructure:"app"`
	Database DatabaseConfig `mapstructure:"database"`
	Server   struct {
		Port         string        `mapstructure:"port"`
		ReadTimeout  time.Duration `mapstructure:"read_timeout"`
		WriteTimeout time.Duration `mapstructure:"write_timeout"`
	} `mapstructure:"server"`
	JWT struct {
		SecretKey     string `mapstructure:"secret_key"`
		Algorithm     string `mapstructure:"algorithm"`
		ExpireMinutes int    `mapstructure:"expire_minutes"`
	} `mapstructure:"jwt"`
	Auth struct {
		RefreshTokenCapacity int `mapstructure:"refresh_token_capacity"`
		BcryptCost           int `mapstructure:"bcrypt_cost"`
	} `mapstructure:"auth"`
	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`
}

type DatabaseConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Name         string `mapstructure:"name"`
	SSLMode      string `mapstructure:"sslmode"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

// URL renders the connection settings as a postgres:// URL, the form
// golang-migrate expects.
func (c DatabaseConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

// AccessTokenTTL is the lifetime of a freshly minted access token.
func (c *Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.JWT.ExpireMinutes) * time.Minute
}

// Location resolves the configured timezone used for timestamps.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.App.Timezone)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.timezone", "UTC")

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.name", "buddy")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)

	v.SetDefault("jwt.secret_key", "")
	v.SetDefault("jwt.algorithm", jwt.SigningMethodHS256.Alg())
	v.SetDefault("jwt.expire_minutes", 30)

	v.SetDefault("auth.refresh_token_capacity", 2)
	v.SetDefault("auth.bcrypt_cost", 12)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads config.yml from path when present, applies BUDDY_* environment
// overrides (BUDDY_JWT_SECRET_KEY, BUDDY_DATABASE_HOST, ...) on top of the
// defaults, and validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yml")

	v.SetEnvPrefix("buddy")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the auth subsystem cannot run with.
func (c *Config) Validate() error {
	if c.JWT.SecretKey == "" {
		return errors.New("config: jwt.secret_key is required")
	}
	if _, ok := jwt.GetSigningMethod(c.JWT.Algorithm).(*jwt.SigningMethodHMAC); !ok {
		return fmt.Errorf("config: jwt.algorithm %q is not a supported HMAC algorithm", c.JWT.Algorithm)
	}
	if c.JWT.ExpireMinutes <= 0 {
		return errors.New("config: jwt.expire_minutes must be positive")
	}
	if c.Auth.RefreshTokenCapacity < 1 {
		return errors.New("config: auth.refresh_token_capacity must be at least 1")
	}
	if c.Auth.BcryptCost < MinBcryptCost || c.Auth.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("config: auth.bcrypt_cost must be within [%d, %d]", MinBcryptCost, bcrypt.MaxCost)
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("config: app.timezone: %w", err)
	}
	return nil
}
