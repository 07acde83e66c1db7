// Package password hashes and verifies user passwords with bcrypt.
package password

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost matches the work factor the portal has always used.
const DefaultCost = 10

// MaxLength is the number of password bytes bcrypt takes into account. Longer
// passwords are truncated, so they hash and verify instead of failing.
const MaxLength = 72

// ErrMismatch is returned by Verify when the password does not match the hash.
var ErrMismatch = errors.New("password does not match")

// Hasher is a salted one-way hash with a configurable cost.
type Hasher struct {
	cost int
}

// New returns a Hasher. Costs outside bcrypt's range fall back to DefaultCost.
func New(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}

	return &Hasher{cost: cost}
}

func truncate(plain string) []byte {
	b := []byte(plain)
	if len(b) > MaxLength {
		return b[:MaxLength]
	}

	return b
}

// Hash returns the bcrypt hash of plain.
func (h *Hasher) Hash(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword(truncate(plain), h.cost)
	if err != nil {
		return "", err
	}

	return string(hash), nil
}

// Verify compares plain to hash. A mismatch is ErrMismatch, anything else is a broken hash.
func (h *Hasher) Verify(hash, plain string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), truncate(plain))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrMismatch
	}

	return err
}
