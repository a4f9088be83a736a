package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
)

// Key format: ug_{env}_{prefix}_{secret}
// Example: ug_live_7a9x3k_4f8d2e1b9c7a5f3d2e1b9c7a5f3d2e1b
const (
	KeyPrefixLen = 6  // hex of 3 bytes
	KeySecretLen = 32 // hex of 16 bytes
)

// Key environments, the second segment of ug_<env>_<prefix>_<secret>.
const (
	EnvLive = "live"
	EnvTest = "test"
)

var (
	ErrInvalidKeyFormat = errors.New("invalid API key format")

	keyFormatRegex = regexp.MustCompile(`^ug_(live|test)_([a-f0-9]{6})_([a-f0-9]{32})$`)
)

// GeneratedKey is a new key; Plaintext is shown once and never stored.
type GeneratedKey struct {
	Plaintext string // shown once
	Hash      string // Argon2id, stored
	Prefix    string // stored, used for lookup
}

// GenerateAPIKey creates a new API key. Unknown envs fall back to live.
func GenerateAPIKey(env string) (*GeneratedKey, error) {
	if env != EnvLive && env != EnvTest {
		env = EnvLive
	}

	prefix, err := randomHex(KeyPrefixLen / 2)
	if err != nil {
		return nil, fmt.Errorf("generate prefix: %w", err)
	}
	secret, err := randomHex(KeySecretLen / 2)
	if err != nil {
		return nil, fmt.Errorf("generate secret: %w", err)
	}

	plaintext := fmt.Sprintf("ug_%s_%s_%s", env, prefix, secret)

	hash, err := HashKey(plaintext)
	if err != nil {
		return nil, fmt.Errorf("hash key: %w", err)
	}

	return &GeneratedKey{
		Plaintext: plaintext,
		Hash:      hash,
		Prefix:    prefix,
	}, nil
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

type ParsedKey struct {
	Env    string
	Prefix string
	Secret string
}

// ParseAPIKey splits a ug_ key into its environment, lookup prefix and secret.
func ParseAPIKey(key string) (*ParsedKey, error) {
	matches := keyFormatRegex.FindStringSubmatch(key)
	if matches == nil {
		return nil, ErrInvalidKeyFormat
	}

	return &ParsedKey{
		Env:    matches[1],
		Prefix: matches[2],
		Secret: matches[3],
	}, nil
}
