package goQuiz

import (
	"errors"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/MrEthical07/goQuiz/internal"
	"github.com/MrEthical07/goQuiz/internal/audit"
	"github.com/MrEthical07/goQuiz/internal/rate"
	"github.com/MrEthical07/goQuiz/jwt"
	"github.com/MrEthical07/goQuiz/ledger"
	"github.com/MrEthical07/goQuiz/password"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an Engine. A Builder may be used for one Build only.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	users   UserStore
	quizzes QuizStore

	auditSink AuditSink
	logger    *slog.Logger

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the client backing the refresh token ledger and the
// login throttle.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithUserStore sets account persistence.
func (b *Builder) WithUserStore(s UserStore) *Builder {
	b.users = s
	return b
}

// WithQuizStore sets catalog and session persistence.
func (b *Builder) WithQuizStore(s QuizStore) *Builder {
	b.quizzes = s
	return b
}

// WithAuditSink sets the audit destination. Audit must also be enabled in
// the config for events to flow.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the engine logger. Defaults to slog.Default.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithMetricsEnabled toggles in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles latency histograms.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires every component.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if b.users == nil {
		return nil, errors.New("user store required")
	}
	if b.quizzes == nil {
		return nil, errors.New("quiz store required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	engine := &Engine{
		config:  cloneConfig(cfg),
		ledger:  ledger.NewStore(b.redis, cfg.Ledger.RedisPrefix),
		users:   b.users,
		quizzes: b.quizzes,
		logger:  logger.With("component", "engine"),
		now:     time.Now,
		intn:    rand.IntN,
		newID:   internal.NewUUID,
		newULID: internal.NewULID,
	}

	if cfg.Security.EnableLoginThrottle {
		engine.rateLimiter = rate.New(b.redis, rate.Config{
			Prefix:                cfg.Ledger.RedisPrefix,
			EnableIPThrottle:      cfg.Security.EnableIPThrottle,
			MaxLoginAttempts:      cfg.Security.MaxLoginAttempts,
			LoginCooldownDuration: cfg.Security.LoginCooldownDuration,
		})
	}
	engine.audit = audit.NewDispatcher(audit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink)
	engine.metrics = NewMetrics(cfg.Metrics)

	ph, err := password.NewArgon2(password.Config{
		Memory:           cfg.Password.Memory,
		Time:             cfg.Password.Time,
		Parallelism:      cfg.Password.Parallelism,
		SaltLength:       cfg.Password.SaltLength,
		KeyLength:        cfg.Password.KeyLength,
		MinPasswordBytes: cfg.Password.MinLength,
		MaxPasswordBytes: cfg.Password.MaxLength,
	})
	if err != nil {
		return nil, err
	}
	engine.passwordHash = ph

	seed := strings.Repeat(internal.NewUUID(), cfg.Password.MinLength/36+1)[:cfg.Password.MinLength]
	dummy, err := ph.Hash(seed)
	if err != nil {
		return nil, err
	}
	engine.dummyHash = dummy

	jm, err := jwt.NewManager(jwt.Config{
		AccessTTL:     cfg.JWT.AccessTTL,
		RefreshTTL:    cfg.JWT.RefreshTTL,
		SigningMethod: jwt.SigningMethod(cfg.JWT.SigningMethod),
		PrivateKey:    cloneBytes(cfg.JWT.PrivateKey),
		PublicKey:     cloneBytes(cfg.JWT.PublicKey),
		Issuer:        cfg.JWT.Issuer,
		Audience:      cfg.JWT.Audience,
		Leeway:        cfg.JWT.Leeway,
	})
	if err != nil {
		return nil, err
	}
	engine.jwtManager = jm

	b.built = true

	return engine, nil
}
