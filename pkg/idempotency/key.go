package idempotency

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"regexp"
)

const (
	MinKeyLength = 16
	MaxKeyLength = 128

	cacheKeyPrefix = "idempotency:"
)

var (
	ErrKeyTooShort = errors.New("idempotency key must be at least 16 characters")
	ErrKeyTooLong  = errors.New("idempotency key must not exceed 128 characters")
	ErrKeyInvalid  = errors.New("idempotency key may only contain letters, digits, '-' and '_'")

	keyPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
)

// Validate checks the client supplied key.
func Validate(key string) error {
	switch {
	case len(key) < MinKeyLength:
		return ErrKeyTooShort
	case len(key) > MaxKeyLength:
		return ErrKeyTooLong
	case !keyPattern.MatchString(key):
		return ErrKeyInvalid
	}

	return nil
}

// CacheKey scopes key to the method and path it was sent with.
func CacheKey(method, path, key string) string {
	return cacheKeyPrefix + digest(method, "\x00", path, "\x00", key)
}

// Fingerprint identifies a request body so a reused key with a different
// payload can be told apart from a retry.
func Fingerprint(body []byte) string {
	sum := sha256.Sum256(body)

	return hex.EncodeToString(sum[:])
}

func digest(parts ...string) string {
	h := sha256.New()

	for _, part := range parts {
		h.Write([]byte(part))
	}

	return hex.EncodeToString(h.Sum(nil))
}
