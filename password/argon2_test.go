package password

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/argon2"
)

func testConfig() Config {
	return Config{
		Memory:      19456,
		Time:        2,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func newHasher(t *testing.T, cfg Config) *Argon2 {
	t.Helper()
	h, err := NewArgon2(cfg)
	if err != nil {
		t.Fatalf("NewArgon2 error: %v", err)
	}
	return h
}

func TestHashAndVerify(t *testing.T) {
	hasher := newHasher(t, testConfig())

	hash, err := hasher.Hash("P@ssw0rd-Ascii")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$m=19456,t=2,p=1$") {
		t.Fatalf("unexpected PHC prefix: %s", hash)
	}

	ok, err := hasher.Verify("P@ssw0rd-Ascii", hash)
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if !ok {
		t.Fatal("expected password verification to succeed")
	}

	ok, err = hasher.Verify("p@ssw0rd-ascii", hash)
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if ok {
		t.Fatal("expected case-changed password to fail")
	}
}

func TestHashIsSalted(t *testing.T) {
	hasher := newHasher(t, testConfig())
	a, _ := hasher.Hash("same-password")
	b, _ := hasher.Hash("same-password")
	if a == b {
		t.Fatal("expected distinct hashes for the same password")
	}
}

func TestVerifyPaddedForeignHash(t *testing.T) {
	hasher := newHasher(t, testConfig())

	salt := []byte("0123456789abcdef")
	key := argon2.IDKey([]byte("legacy-password"), salt, 2, 19456, 1, 32)
	foreign := "$argon2id$v=19$m=19456,t=2,p=1$" +
		base64.StdEncoding.EncodeToString(salt) + "$" +
		base64.StdEncoding.EncodeToString(key)

	ok, err := hasher.Verify("legacy-password", foreign)
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if !ok {
		t.Fatal("expected padded hash to verify")
	}
}

func TestNeedsUpgrade(t *testing.T) {
	oldCfg := testConfig()
	oldCfg.Memory = 8192
	hash, err := newHasher(t, oldCfg).Hash("test-password")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	current := newHasher(t, testConfig())
	needs, err := current.NeedsUpgrade(hash)
	if err != nil {
		t.Fatalf("NeedsUpgrade error: %v", err)
	}
	if !needs {
		t.Fatal("expected NeedsUpgrade for weaker parameters")
	}

	fresh, _ := current.Hash("test-password")
	if needs, _ := current.NeedsUpgrade(fresh); needs {
		t.Fatal("expected no upgrade for current parameters")
	}
}

func TestVerifyMalformedHash(t *testing.T) {
	hasher := newHasher(t, testConfig())

	for _, h := range []string{
		"not-a-phc-hash",
		"$bcrypt$v=19$m=19456,t=2,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=18$m=19456,t=2,p=1$MDEyMzQ1Njc4OWFiY2RlZg$aGFzaA",
		"$argon2id$v=19$m=19456,t=2$MDEyMzQ1Njc4OWFiY2RlZg$aGFzaA",
		"$argon2id$v=19$m=19456,t=2,p=1$c2hvcnQ$aGFzaA",
	} {
		if _, err := hasher.Verify("password-1", h); !errors.Is(err, ErrMalformedHash) {
			t.Fatalf("expected ErrMalformedHash for %q, got %v", h, err)
		}
	}
}

func TestPasswordLengthBounds(t *testing.T) {
	cfg := testConfig()
	cfg.MaxPasswordBytes = 64
	hasher := newHasher(t, cfg)

	if _, err := hasher.Hash(""); !errors.Is(err, ErrTooShort) {
		t.Fatalf("expected ErrTooShort for empty password, got %v", err)
	}
	if _, err := hasher.Hash("1234567"); !errors.Is(err, ErrTooShort) {
		t.Fatalf("expected ErrTooShort, got %v", err)
	}
	if _, err := hasher.Hash(strings.Repeat("a", 65)); !errors.Is(err, ErrTooLong) {
		t.Fatalf("expected ErrTooLong, got %v", err)
	}

	exact := strings.Repeat("b", 64)
	hash, err := hasher.Hash(exact)
	if err != nil {
		t.Fatalf("expected max-length password to be accepted: %v", err)
	}
	if _, err := hasher.Verify(strings.Repeat("c", 65), hash); !errors.Is(err, ErrTooLong) {
		t.Fatalf("expected Verify to reject long password, got %v", err)
	}
}

func TestNewArgon2RejectsWeakConfig(t *testing.T) {
	weak := []Config{
		{Memory: 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32},
		{Memory: 8192, Time: 0, Parallelism: 1, SaltLength: 16, KeyLength: 32},
		{Memory: 8192, Time: 1, Parallelism: 0, SaltLength: 16, KeyLength: 32},
		{Memory: 8192, Time: 1, Parallelism: 1, SaltLength: 8, KeyLength: 32},
		{Memory: 8192, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 8},
		{Memory: 8192, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32, MinPasswordBytes: 100, MaxPasswordBytes: 10},
	}
	for i, cfg := range weak {
		if _, err := NewArgon2(cfg); err == nil {
			t.Fatalf("case %d: expected config error", i)
		}
	}
}
