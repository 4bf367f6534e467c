// Package auth provides the credential primitives of the platform:
// password hashing and JWT issuance/verification. Both are constructed
// once at startup and injected into the services that need them.
package auth

import "golang.org/x/crypto/bcrypt"

// Hasher produces and verifies salted one-way password digests using
// bcrypt. The zero value is not usable; construct with NewHasher.
type Hasher struct {
	cost int
}

// NewHasher returns a Hasher with the given bcrypt cost. A cost outside
// bcrypt's supported range falls back to the bcrypt default.
func NewHasher(cost int) Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return Hasher{cost: cost}
}

// Hash returns the bcrypt digest of plaintext.
func (h Hasher) Hash(plaintext string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// Verify reports whether plaintext matches the stored digest. The
// underlying comparison is constant-time. Malformed digests fail
// closed: the result is false, never a panic.
func (h Hasher) Verify(plaintext, hashed string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plaintext)) == nil
}
