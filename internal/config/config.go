package config

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// MinJWTSecretLength is the shortest accepted signing secret, in bytes
const MinJWTSecretLength = 32

type ServerConfig struct {
	Address         string        `mapstructure:"address"`
	Mode            string        `mapstructure:"mode"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	// TrustedProxies lists the IPs or CIDRs allowed to set X-Forwarded-For.
	// Empty means the socket peer is always the client address.
	TrustedProxies []string `mapstructure:"trusted_proxies"`
}

type AuthConfig struct {
	JWTSecret  string        `mapstructure:"jwt_secret"`
	Issuer     string        `mapstructure:"issuer"`
	SessionTTL time.Duration `mapstructure:"session_ttl"`
	NonceTTL   time.Duration `mapstructure:"nonce_ttl"`
}

type StorageConfig struct {
	NonceBackend string `mapstructure:"nonce_backend"`
	UserBackend  string `mapstructure:"user_backend"`
	DSN          string `mapstructure:"dsn"`
}

type RedisConfig struct {
	URL string `mapstructure:"url"`
}

type EventsConfig struct {
	Backend string `mapstructure:"backend"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Events    EventsConfig    `mapstructure:"events"`
	Log       LogConfig       `mapstructure:"log"`
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":9000")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.trusted_proxies", []string{})

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.issuer", "walletauth")
	v.SetDefault("auth.session_ttl", 24*time.Hour)
	v.SetDefault("auth.nonce_ttl", 5*time.Minute)

	v.SetDefault("storage.nonce_backend", "memory")
	v.SetDefault("storage.user_backend", "memory")
	v.SetDefault("storage.dsn", "")

	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("events.backend", "none")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("cors.allowed_origins", []string{})
	v.SetDefault("ratelimit.rps", 5.0)
	v.SetDefault("ratelimit.burst", 10)
}

// Load reads configuration from the optional YAML file at path, then applies
// WALLETAUTH_ prefixed environment overrides (e.g. WALLETAUTH_AUTH_JWT_SECRET).
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("WALLETAUTH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate rejects configurations the service cannot start with
func (c *Config) Validate() error {
	var errs []error

	switch {
	case c.Auth.JWTSecret == "":
		errs = append(errs, errors.New("auth.jwt_secret is required"))
	case len(c.Auth.JWTSecret) < MinJWTSecretLength:
		errs = append(errs, fmt.Errorf("auth.jwt_secret must be at least %d bytes", MinJWTSecretLength))
	}
	if c.Auth.SessionTTL <= 0 {
		errs = append(errs, errors.New("auth.session_ttl must be positive"))
	}
	if c.Auth.NonceTTL <= 0 {
		errs = append(errs, errors.New("auth.nonce_ttl must be positive"))
	}

	for _, proxy := range c.Server.TrustedProxies {
		if !validProxy(proxy) {
			errs = append(errs, fmt.Errorf("server.trusted_proxies: %q is not an IP or CIDR", proxy))
		}
	}

	switch {
	case c.RateLimit.RPS < 0:
		errs = append(errs, errors.New("ratelimit.rps must not be negative"))
	case c.RateLimit.RPS > 0 && c.RateLimit.Burst <= 0:
		errs = append(errs, errors.New("ratelimit.burst must be positive when ratelimit.rps is set"))
	}

	switch c.Storage.NonceBackend {
	case "memory", "redis":
	default:
		errs = append(errs, fmt.Errorf("unknown storage.nonce_backend %q", c.Storage.NonceBackend))
	}

	switch c.Storage.UserBackend {
	case "memory":
	case "mysql", "sqlite", "postgres":
		if c.Storage.DSN == "" {
			errs = append(errs, fmt.Errorf("storage.dsn is required for %s", c.Storage.UserBackend))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage.user_backend %q", c.Storage.UserBackend))
	}

	switch c.Events.Backend {
	case "none", "memory", "redis":
	default:
		errs = append(errs, fmt.Errorf("unknown events.backend %q", c.Events.Backend))
	}

	return errors.Join(errs...)
}

func validProxy(s string) bool {
	if strings.Contains(s, "/") {
		_, err := netip.ParsePrefix(s)
		return err == nil
	}
	_, err := netip.ParseAddr(s)
	return err == nil
}

// UsesRedis reports whether any component needs the redis client
func (c *Config) UsesRedis() bool {
	return c.Storage.NonceBackend == "redis" || c.Events.Backend == "redis"
}
