package domain

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	EnvTest = "test"
	EnvLive = "live"
)

const (
	apiKeyScheme    = "vid"
	apiKeyLength    = 32
	apiKeyPrefixLen = 15
	base62Chars     = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
)

// APIKey representa a chave de um terminal de seção eleitoral.
// Só o hash é persistido; a chave em claro é mostrada uma única vez.
type APIKey struct {
	ID          uuid.UUID  `json:"id"`
	StationID   uuid.UUID  `json:"station_id"`
	Name        string     `json:"name"`
	KeyHash     string     `json:"-"`
	KeyPrefix   string     `json:"key_prefix"`
	Environment string     `json:"environment"`
	IsActive    bool       `json:"is_active"`
	LastUsedAt  *time.Time `json:"last_used_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func validEnvironment(env string) bool {
	return env == EnvTest || env == EnvLive
}

// GenerateAPIKey returns (plainKey, hash, prefix) for a key vid_<env>_<32 base62>.
// The prefix (vid_live_A1b2C3) identifies the key to operators.
func GenerateAPIKey(env string) (string, string, string, error) {
	if !validEnvironment(env) {
		return "", "", "", fmt.Errorf("invalid environment %q: must be %q or %q", env, EnvTest, EnvLive)
	}

	secret, err := randomBase62(apiKeyLength)
	if err != nil {
		return "", "", "", fmt.Errorf("generate api key: %w", err)
	}

	plainKey := apiKeyScheme + "_" + env + "_" + secret
	return plainKey, HashAPIKey(plainKey), plainKey[:apiKeyPrefixLen], nil
}

// HashAPIKey is the hex SHA-256 stored in api_keys.key_hash
func HashAPIKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// KeyEnvironment returns the environment encoded in a well formed key
func KeyEnvironment(key string) (string, bool) {
	scheme, rest, ok := strings.Cut(key, "_")
	if !ok || scheme != apiKeyScheme {
		return "", false
	}
	env, secret, ok := strings.Cut(rest, "_")
	if !ok || !validEnvironment(env) || !isBase62(secret, apiKeyLength) {
		return "", false
	}
	return env, true
}

func isBase62(s string, n int) bool {
	if len(s) != n {
		return false
	}
	for i := 0; i < len(s); i++ {
		if strings.IndexByte(base62Chars, s[i]) < 0 {
			return false
		}
	}
	return true
}

func IsValidFormat(key string) bool {
	_, ok := KeyEnvironment(key)
	return ok
}

func (a *APIKey) Validate() error {
	switch {
	case a.StationID == uuid.Nil:
		return errors.New("station_id cannot be empty")
	case a.Name == "":
		return errors.New("name cannot be empty")
	case a.KeyHash == "":
		return errors.New("key_hash cannot be empty")
	case a.KeyPrefix == "":
		return errors.New("key_prefix cannot be empty")
	case !validEnvironment(a.Environment):
		return fmt.Errorf("invalid environment %q", a.Environment)
	}
	return nil
}

// randomBase62 draws from crypto/rand, rejecting bytes >= 248 so every
// character is equally likely
func randomBase62(n int) (string, error) {
	const limit = 256 - 256%len(base62Chars)

	out := make([]byte, 0, n)
	buf := make([]byte, n+n/4)
	for len(out) < n {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			out = append(out, base62Chars[int(b)%len(base62Chars)])
			if len(out) == n {
				break
			}
		}
	}
	return string(out), nil
}
