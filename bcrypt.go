package auth

import (
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// BcryptHasher implements PasswordHasher with bcrypt
type BcryptHasher struct {
	Cost int
}

var _ PasswordHasher = BcryptHasher{}

// NewBcryptHasher returns a hasher using cost, or bcrypt.DefaultCost when
// cost is out of range.
func NewBcryptHasher(cost int) BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = passwordHashCost()
	}
	return BcryptHasher{Cost: cost}
}

// Hash will generate a password hash
func (h BcryptHasher) Hash(plain string) (string, error) {
	if plain == "" {
		return "", ErrNoEmptyString
	}

	cost := h.Cost
	if cost == 0 {
		cost = passwordHashCost()
	}

	out, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	return string(out), err
}

// Verify will validate the given cleartext password matches the hash
func (h BcryptHasher) Verify(plain, hash string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// randomPasswordHash hashes a throwaway password. Used to burn the same
// amount of time on unknown users as on real ones.
func randomPasswordHash(h PasswordHasher) string {
	out, err := h.Hash(uuid.NewString())
	if err != nil {
		return ""
	}
	return out
}
