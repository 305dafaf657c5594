package goQuiz

import (
	"errors"
	"time"
)

// Config holds every engine tunable. Start from DefaultConfig and override.
type Config struct {
	JWT      JWTConfig
	Refresh  RefreshConfig
	Password PasswordConfig
	Quiz     QuizConfig
	Security SecurityConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
	Ledger   LedgerConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig configures the token codec.
type JWTConfig struct {
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	SigningMethod string // "hs256" (default) or "ed25519"
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	Leeway        time.Duration
}

/*
====================================
REFRESH / LEDGER CONFIG
====================================
*/

// RefreshConfig controls rotation policy.
type RefreshConfig struct {
	// RevokeAllOnReuse revokes every live refresh token of a user when one
	// of their already revoked tokens is presented again.
	RevokeAllOnReuse bool
}

// LedgerConfig controls the Redis layout of the refresh token ledger.
type LedgerConfig struct {
	RedisPrefix string
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig holds argon2id parameters and password length policy.
type PasswordConfig struct {
	Memory         uint32 // in KB
	Time           uint32
	Parallelism    uint8
	SaltLength     uint32
	KeyLength      uint32
	MinLength      int
	MaxLength      int
	UpgradeOnLogin bool
}

/*
====================================
QUIZ CONFIG
====================================
*/

// QuizConfig controls quiz sessions.
type QuizConfig struct {
	SessionSize int
	// AllowShortSession starts a session with every available question when
	// a category has fewer than SessionSize. When false such categories
	// fail with ErrEmptyCategory.
	AllowShortSession bool
	// MaxTimeTaken caps the per-answer time (seconds) accepted from clients.
	MaxTimeTaken int
}

/*
====================================
SECURITY CONFIG
====================================
*/

// SecurityConfig controls the login throttle.
type SecurityConfig struct {
	EnableLoginThrottle   bool
	EnableIPThrottle      bool
	MaxLoginAttempts      int
	LoginCooldownDuration time.Duration
}

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process counters and latency histograms.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the baseline configuration. JWT.PrivateKey must
// still be supplied.
func DefaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:     15 * time.Minute,
			RefreshTTL:    7 * 24 * time.Hour,
			SigningMethod: "hs256",
		},
		Refresh: RefreshConfig{
			RevokeAllOnReuse: false,
		},
		Ledger: LedgerConfig{
			RedisPrefix: "gq",
		},
		Password: PasswordConfig{
			Memory:         65536,
			Time:           3,
			Parallelism:    2,
			SaltLength:     16,
			KeyLength:      32,
			MinLength:      8,
			MaxLength:      1024,
			UpgradeOnLogin: true,
		},
		Quiz: QuizConfig{
			SessionSize:       10,
			AllowShortSession: false,
			MaxTimeTaken:      3600,
		},
		Security: SecurityConfig{
			EnableLoginThrottle:   true,
			EnableIPThrottle:      false,
			MaxLoginAttempts:      5,
			LoginCooldownDuration: 15 * time.Minute,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.PrivateKey = cloneBytes(cfg.JWT.PrivateKey)
	out.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate rejects inconsistent or unsafe settings.
func (c *Config) Validate() error {
	// JWT
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= c.JWT.AccessTTL {
		return errors.New("JWT RefreshTTL must be > AccessTTL")
	}
	switch c.JWT.SigningMethod {
	case "hs256":
		if len(c.JWT.PrivateKey) < 32 {
			return errors.New("hs256 requires a PrivateKey of at least 32 bytes")
		}
	case "ed25519":
		if len(c.JWT.PrivateKey) == 0 || len(c.JWT.PublicKey) == 0 {
			return errors.New("ed25519 requires PrivateKey and PublicKey")
		}
	default:
		return errors.New("unsupported JWT signing method")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT Leeway must be between 0 and 2m")
	}

	// Password
	if c.Password.Memory < 8*1024 {
		return errors.New("Password Memory must be >= 8192 KB")
	}
	if c.Password.Time < 1 {
		return errors.New("Password Time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return errors.New("Password Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 {
		return errors.New("Password SaltLength must be >= 16")
	}
	if c.Password.KeyLength < 16 {
		return errors.New("Password KeyLength must be >= 16")
	}
	if c.Password.MinLength < 1 || c.Password.MaxLength < c.Password.MinLength {
		return errors.New("Password length bounds are invalid")
	}

	// Quiz
	if c.Quiz.SessionSize <= 0 {
		return errors.New("Quiz SessionSize must be > 0")
	}
	if c.Quiz.MaxTimeTaken <= 0 {
		return errors.New("Quiz MaxTimeTaken must be > 0")
	}

	// Security
	if c.Security.EnableLoginThrottle {
		if c.Security.MaxLoginAttempts <= 0 {
			return errors.New("Security MaxLoginAttempts must be > 0")
		}
		if c.Security.LoginCooldownDuration <= 0 {
			return errors.New("Security LoginCooldownDuration must be > 0")
		}
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0")
	}

	if c.Ledger.RedisPrefix == "" {
		return errors.New("Ledger RedisPrefix must be set")
	}

	return nil
}
