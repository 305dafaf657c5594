package jwt

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SigningMethod selects the algorithm used to sign and verify tokens.
type SigningMethod string

const (
	// MethodHS256 signs with a shared secret.
	MethodHS256 SigningMethod = "hs256"
	// MethodEd25519 signs with an Ed25519 key pair.
	MethodEd25519 SigningMethod = "ed25519"
)

// Kind discriminates access tokens from refresh tokens. It is carried in
// the "typ" claim and checked on every parse so that one kind can never be
// accepted in place of the other.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

var (
	// ErrExpired is returned when a token is past its expiry (after leeway).
	ErrExpired = errors.New("token expired")
	// ErrInvalidSignature is returned for malformed tokens, foreign keys or
	// algorithms, failed issuer/audience checks and wrong token kinds.
	ErrInvalidSignature = errors.New("token invalid")
)

// Config holds codec parameters. AccessTTL and RefreshTTL must be positive.
type Config struct {
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	SigningMethod SigningMethod
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	Leeway        time.Duration
	KeyID         string
	VerifyKeys    map[string][]byte
}

// Identity is the user projection embedded in both token kinds.
type Identity struct {
	Subject string
	Email   string
	Name    string
	Role    string
}

// AccessClaims is the payload of a short-lived access token.
type AccessClaims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role,omitempty"`
	Kind  Kind   `json:"typ"`
	jwt.RegisteredClaims
}

// RefreshClaims is the payload of a refresh token. The rotation id is the
// registered "jti" claim.
type RefreshClaims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role,omitempty"`
	Kind  Kind   `json:"typ"`
	jwt.RegisteredClaims
}

// TokenID returns the rotation id carried by the token.
func (c *RefreshClaims) TokenID() string { return c.ID }

// Identity returns the identity fields of the claims.
func (c *AccessClaims) Identity() Identity {
	return Identity{Subject: c.Subject, Email: c.Email, Name: c.Name, Role: c.Role}
}

// Identity returns the identity fields of the claims.
func (c *RefreshClaims) Identity() Identity {
	return Identity{Subject: c.Subject, Email: c.Email, Name: c.Name, Role: c.Role}
}

func (c *AccessClaims) kind() Kind  { return c.Kind }
func (c *RefreshClaims) kind() Kind { return c.Kind }

type kindedClaims interface {
	jwt.Claims
	kind() Kind
}

// Manager signs and verifies access and refresh tokens. It never touches
// storage and is safe for concurrent use.
type Manager struct {
	config Config
	now    func() time.Time
}

// NewManager validates cfg and returns a ready codec.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	cfg.KeyID = strings.TrimSpace(cfg.KeyID)
	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.PrivateKey) < 32 {
			return nil, errors.New("hs256 requires a secret of at least 32 bytes")
		}
	case MethodEd25519:
		if len(cfg.PrivateKey) > 0 {
			if _, err := parseEdPrivateKey(cfg.PrivateKey); err != nil {
				return nil, err
			}
		}
		if len(cfg.PublicKey) > 0 {
			if _, err := parseEdPublicKey(cfg.PublicKey); err != nil {
				return nil, err
			}
		}
		if len(cfg.VerifyKeys) == 0 && len(cfg.PublicKey) == 0 {
			return nil, errors.New("ed25519 requires public key or verify key set")
		}
		for kid, key := range cfg.VerifyKeys {
			if strings.TrimSpace(kid) == "" {
				return nil, errors.New("verify key map contains empty kid")
			}
			if _, err := parseEdPublicKey(key); err != nil {
				return nil, fmt.Errorf("invalid ed25519 verify key for kid %q: %w", kid, err)
			}
		}
	default:
		return nil, errors.New("unsupported signing method")
	}
	if cfg.KeyID != "" && len(cfg.VerifyKeys) > 0 {
		if _, ok := cfg.VerifyKeys[cfg.KeyID]; !ok {
			return nil, errors.New("KeyID is not present in VerifyKeys")
		}
	}

	return &Manager{config: cfg, now: time.Now}, nil
}

// AccessTTL reports the configured access token lifetime.
func (j *Manager) AccessTTL() time.Duration { return j.config.AccessTTL }

// RefreshTTL reports the configured refresh token lifetime.
func (j *Manager) RefreshTTL() time.Duration { return j.config.RefreshTTL }

// CreateAccess signs an access token for id.
func (j *Manager) CreateAccess(id Identity) (string, error) {
	if id.Subject == "" {
		return "", errors.New("access token requires subject")
	}
	now := j.now()
	claims := AccessClaims{
		Email:            id.Email,
		Name:             id.Name,
		Role:             id.Role,
		Kind:             KindAccess,
		RegisteredClaims: j.registered(id.Subject, "", now, j.config.AccessTTL),
	}
	return j.sign(&claims)
}

// CreateRefresh signs a refresh token for id carrying tokenID as its jti.
// The returned time is the token expiry, which callers persist alongside
// the ledger record.
func (j *Manager) CreateRefresh(id Identity, tokenID string) (string, time.Time, error) {
	if id.Subject == "" || tokenID == "" {
		return "", time.Time{}, errors.New("refresh token requires subject and token id")
	}
	now := j.now()
	claims := RefreshClaims{
		Email:            id.Email,
		Name:             id.Name,
		Role:             id.Role,
		Kind:             KindRefresh,
		RegisteredClaims: j.registered(id.Subject, tokenID, now, j.config.RefreshTTL),
	}
	token, err := j.sign(&claims)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, claims.ExpiresAt.Time, nil
}

// ParseAccess verifies an access token and returns its claims.
func (j *Manager) ParseAccess(tokenStr string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := j.parse(tokenStr, claims, KindAccess); err != nil {
		return nil, err
	}
	return claims, nil
}

// ParseRefresh verifies a refresh token and returns its claims.
func (j *Manager) ParseRefresh(tokenStr string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := j.parse(tokenStr, claims, KindRefresh); err != nil {
		return nil, err
	}
	if claims.ID == "" {
		return nil, fmt.Errorf("%w: missing jti", ErrInvalidSignature)
	}
	return claims, nil
}

func (j *Manager) registered(subject, tokenID string, now time.Time, ttl time.Duration) jwt.RegisteredClaims {
	rc := jwt.RegisteredClaims{
		Subject:   subject,
		ID:        tokenID,
		Issuer:    j.config.Issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	if j.config.Audience != "" {
		rc.Audience = jwt.ClaimStrings{j.config.Audience}
	}
	return rc
}

func (j *Manager) sign(claims jwt.Claims) (string, error) {
	token := jwt.NewWithClaims(j.getMethod(), claims)
	if j.config.KeyID != "" {
		token.Header["kid"] = j.config.KeyID
	}

	signKey, err := j.getSignKey()
	if err != nil {
		return "", err
	}

	return token.SignedString(signKey)
}

func (j *Manager) parse(tokenStr string, claims kindedClaims, want Kind) error {
	if tokenStr == "" {
		return fmt.Errorf("%w: empty token", ErrInvalidSignature)
	}
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{j.getMethod().Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.now),
	}
	if j.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(j.config.Leeway))
	}
	if j.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(j.config.Issuer))
	}
	if j.config.Audience != "" {
		options = append(options, jwt.WithAudience(j.config.Audience))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, claims, j.keyFunc)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrExpired
		}
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if !token.Valid {
		return ErrInvalidSignature
	}
	if claims.kind() != want {
		return fmt.Errorf("%w: unexpected token kind %q", ErrInvalidSignature, claims.kind())
	}
	if sub, _ := claims.GetSubject(); sub == "" {
		return fmt.Errorf("%w: missing subject", ErrInvalidSignature)
	}
	return nil
}

func (j *Manager) keyFunc(t *jwt.Token) (interface{}, error) {
	if t.Method.Alg() != j.getMethod().Alg() {
		return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
	}

	if len(j.config.VerifyKeys) > 0 {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("missing kid")
		}
		key, ok := j.config.VerifyKeys[kid]
		if !ok {
			return nil, errors.New("unknown kid")
		}
		return j.keyBytesToVerifyKey(key)
	}

	if j.config.KeyID != "" {
		kid, _ := t.Header["kid"].(string)
		if kid != j.config.KeyID {
			return nil, errors.New("unknown kid")
		}
	}

	return j.getVerifyKey()
}

func (j *Manager) getMethod() jwt.SigningMethod {
	switch j.config.SigningMethod {
	case MethodHS256:
		return jwt.SigningMethodHS256
	default:
		return jwt.SigningMethodEdDSA
	}
}

func (j *Manager) getSignKey() (interface{}, error) {
	switch j.config.SigningMethod {
	case MethodHS256:
		return j.config.PrivateKey, nil
	default:
		return parseEdPrivateKey(j.config.PrivateKey)
	}
}

func (j *Manager) getVerifyKey() (interface{}, error) {
	switch j.config.SigningMethod {
	case MethodHS256:
		return j.config.PrivateKey, nil
	default:
		return parseEdPublicKey(j.config.PublicKey)
	}
}

func (j *Manager) keyBytesToVerifyKey(key []byte) (interface{}, error) {
	switch j.config.SigningMethod {
	case MethodHS256:
		return key, nil
	default:
		return parseEdPublicKey(key)
	}
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
