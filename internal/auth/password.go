package auth

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// bcryptMaxBytes is the longest secret bcrypt will hash.
const bcryptMaxBytes = 72

// ErrPasswordMismatch is returned by Verify when the secret does not match the hash.
var ErrPasswordMismatch = errors.New("password mismatch")

// PasswordHasher turns plaintext secrets into stored credentials and checks them later.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(hashed, plain string) error
}

// BcryptHasher hashes with bcrypt at a fixed cost.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher returns a hasher; out-of-range costs fall back to bcrypt.DefaultCost.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

// Hash hashes a plaintext password with the configured cost.
func (h *BcryptHasher) Hash(password string) (string, error) {
	return HashPassword(password, h.cost)
}

// Verify reports ErrPasswordMismatch for a wrong secret.
func (h *BcryptHasher) Verify(hashed, plain string) error {
	err := ComparePassword(hashed, plain)
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrPasswordMismatch
	}
	return err
}

// HashPassword hashes a plaintext password with the given cost.
func HashPassword(password string, cost int) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword(secret(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ComparePassword verifies a password against its hashed value.
func ComparePassword(hashed, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), secret(plain))
}

// secret returns the bytes fed to bcrypt. Passwords longer than bcryptMaxBytes
// are replaced by their base64 SHA-256 digest so every byte still counts.
func secret(password string) []byte {
	if len(password) <= bcryptMaxBytes {
		return []byte(password)
	}
	sum := sha256.Sum256([]byte(password))
	return []byte(base64.StdEncoding.EncodeToString(sum[:]))
}
