// Package config loads server configuration for cmd/quizd and cmd/quizctl.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	goQuiz "github.com/MrEthical07/goQuiz"
)

// EnvPrefix namespaces every environment override, e.g. QUIZ_REDIS_ADDR.
const EnvPrefix = "QUIZ"

// Config holds all configuration for the server.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Quiz     QuizConfig     `mapstructure:"quiz"`
	Janitor  JanitorConfig  `mapstructure:"janitor"`
	Log      LogConfig      `mapstructure:"log"`
	Audit    AuditConfig    `mapstructure:"audit"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
	TrustProxy      bool          `mapstructure:"trust_proxy"`
}

// Addr returns the listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseConfig selects the SQL backend. Driver is "sqlite3" or "pgx".
type DatabaseConfig struct {
	Driver         string `mapstructure:"driver"`
	DSN            string `mapstructure:"dsn"`
	MigrateOnStart bool   `mapstructure:"migrate_on_start"`
}

// RedisConfig holds the ledger and throttle backend.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// AuthConfig holds token, cookie and throttle settings.
type AuthConfig struct {
	JWTSecret        string        `mapstructure:"jwt_secret"`
	AccessTTL        time.Duration `mapstructure:"access_ttl"`
	RefreshTTL       time.Duration `mapstructure:"refresh_ttl"`
	Issuer           string        `mapstructure:"issuer"`
	Audience         string        `mapstructure:"audience"`
	CookieSecure     bool          `mapstructure:"cookie_secure"`
	CookieDomain     string        `mapstructure:"cookie_domain"`
	RevokeAllOnReuse bool          `mapstructure:"revoke_all_on_reuse"`
	MaxLoginAttempts int           `mapstructure:"max_login_attempts"`
	LoginCooldown    time.Duration `mapstructure:"login_cooldown"`
}

// QuizConfig mirrors goQuiz.QuizConfig.
type QuizConfig struct {
	SessionSize       int  `mapstructure:"session_size"`
	AllowShortSession bool `mapstructure:"allow_short_session"`
	MaxTimeTaken      int  `mapstructure:"max_time_taken"`
}

// JanitorConfig schedules the stale session purge.
type JanitorConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	Interval   time.Duration `mapstructure:"interval"`
	StaleAfter time.Duration `mapstructure:"stale_after"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// AuditConfig toggles the audit trail, written through the server logger.
type AuditConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Load reads an optional .env file, an optional YAML file and QUIZ_*
// environment variables, in increasing precedence. path may be empty to
// search ./config.yaml and ./config/config.yaml.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if debug, _ := strconv.ParseBool(os.Getenv("DEBUG")); debug {
		cfg.Log.Level = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.cors_origins", []string{})
	v.SetDefault("server.trust_proxy", false)

	v.SetDefault("database.driver", "sqlite3")
	v.SetDefault("database.dsn", "file:quiz.db?_busy_timeout=5000")
	v.SetDefault("database.migrate_on_start", true)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "gq")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.access_ttl", "15m")
	v.SetDefault("auth.refresh_ttl", "168h")
	v.SetDefault("auth.issuer", "")
	v.SetDefault("auth.audience", "")
	v.SetDefault("auth.cookie_secure", true)
	v.SetDefault("auth.cookie_domain", "")
	v.SetDefault("auth.revoke_all_on_reuse", false)
	v.SetDefault("auth.max_login_attempts", 5)
	v.SetDefault("auth.login_cooldown", "15m")

	v.SetDefault("quiz.session_size", 10)
	v.SetDefault("quiz.allow_short_session", false)
	v.SetDefault("quiz.max_time_taken", 3600)

	v.SetDefault("janitor.enabled", true)
	v.SetDefault("janitor.interval", "1h")
	v.SetDefault("janitor.stale_after", "72h")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("audit.enabled", true)
}

// Validate checks the settings the engine config does not cover.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite3", "pgx":
	default:
		return fmt.Errorf("database.driver must be sqlite3 or pgx, got %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return errors.New("database.dsn is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Janitor.Enabled && (c.Janitor.Interval <= 0 || c.Janitor.StaleAfter <= 0) {
		return errors.New("janitor.interval and janitor.stale_after must be > 0")
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// SlogLevel parses Level.
func (c LogConfig) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.Level)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return lvl, nil
}

// Engine converts the server settings into a goQuiz.Config. The JWT secret
// is not checked here; goQuiz.Config.Validate rejects short keys at Build.
func (c *Config) Engine() goQuiz.Config {
	cfg := goQuiz.DefaultConfig()
	cfg.JWT.PrivateKey = []byte(c.Auth.JWTSecret)
	cfg.JWT.AccessTTL = c.Auth.AccessTTL
	cfg.JWT.RefreshTTL = c.Auth.RefreshTTL
	cfg.JWT.Issuer = c.Auth.Issuer
	cfg.JWT.Audience = c.Auth.Audience
	cfg.Refresh.RevokeAllOnReuse = c.Auth.RevokeAllOnReuse
	cfg.Ledger.RedisPrefix = c.Redis.Prefix

	cfg.Security.EnableLoginThrottle = c.Auth.MaxLoginAttempts > 0
	cfg.Security.MaxLoginAttempts = c.Auth.MaxLoginAttempts
	cfg.Security.LoginCooldownDuration = c.Auth.LoginCooldown

	cfg.Quiz.SessionSize = c.Quiz.SessionSize
	cfg.Quiz.AllowShortSession = c.Quiz.AllowShortSession
	cfg.Quiz.MaxTimeTaken = c.Quiz.MaxTimeTaken

	cfg.Audit.Enabled = c.Audit.Enabled
	cfg.Metrics.EnableLatencyHistograms = true
	return cfg
}
