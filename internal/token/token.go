// Package token produces opaque random tokens for magic links and api key salts.
package token

import (
	"crypto/rand"
	"errors"
)

const (
	// MinLength is the floor for any generated secret.
	MinLength = 16
	// SecretLength is the default for general-purpose secrets.
	SecretLength = 32

	alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

var ErrTooShort = errors.New("token length below minimum")

// Generate returns an unguessable token of n characters drawn from a
// URL-safe alphabet. n below MinLength is refused.
func Generate(n int) (string, error) {
	if n < MinLength {
		return "", ErrTooShort
	}

	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = alphabet[int(b)%len(alphabet)]
	}
	return string(buf), nil
}

// GenerateSecret returns a token of the default secret length.
func GenerateSecret() (string, error) {
	return Generate(SecretLength)
}
