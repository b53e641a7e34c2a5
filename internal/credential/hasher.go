// Package credential turns account PINs into stored digests and checks them at login.
package credential

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	KindBcrypt = "bcrypt"
	KindSHA256 = "sha256"
)

// Hasher produces and verifies one-way PIN digests. Verify accepts any digest
// format this package produces, so stored digests keep working when the
// configured kind changes.
type Hasher interface {
	Hash(secret string) (string, error)
	Verify(secret, digest string) bool
}

// BcryptHasher salts every digest, so Hash is not deterministic. Opt-in only.
type BcryptHasher struct {
	cost int
}

func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

func (h *BcryptHasher) Hash(secret string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(secret), h.cost)
	if err != nil {
		return "", fmt.Errorf("bcrypt: %w", err)
	}
	return string(digest), nil
}

func (h *BcryptHasher) Verify(secret, digest string) bool {
	return verify(secret, digest)
}

// SHA256Hasher is the default hasher. Same PIN, same 64 character hex digest,
// the format used by accounts migrated from the legacy ATM database.
type SHA256Hasher struct{}

func NewSHA256Hasher() *SHA256Hasher {
	return &SHA256Hasher{}
}

func (h *SHA256Hasher) Hash(secret string) (string, error) {
	return sha256Hex(secret), nil
}

func (h *SHA256Hasher) Verify(secret, digest string) bool {
	return verify(secret, digest)
}

func sha256Hex(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

// verify picks the algorithm from the digest's shape: bcrypt digests start
// with "$2", anything else is compared byte-for-byte as a SHA-256 hex digest.
func verify(secret, digest string) bool {
	if strings.HasPrefix(digest, "$2") {
		return bcrypt.CompareHashAndPassword([]byte(digest), []byte(secret)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(sha256Hex(secret)), []byte(digest)) == 1
}

// New returns the hasher registered under kind.
func New(kind string, bcryptCost int) (Hasher, error) {
	switch kind {
	case "", KindSHA256:
		return NewSHA256Hasher(), nil
	case KindBcrypt:
		return NewBcryptHasher(bcryptCost), nil
	default:
		return nil, fmt.Errorf("unknown pin hasher %q", kind)
	}
}
