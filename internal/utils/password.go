package utils

import "golang.org/x/crypto/bcrypt"

// maxPasswordBytes is the most input bcrypt reads.  Longer passwords are cut
// to this length on both Hash and Verify, so hashes written by bcrypt
// libraries that truncate silently keep verifying.
const maxPasswordBytes = 72

// BcryptHasher derives and checks salted password hashes.  Cost 10 matches
// the cost used for every existing account.
type BcryptHasher struct{ Cost int }

// Hash returns a bcrypt hash of plain.
func (h BcryptHasher) Hash(plain string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword(truncate(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Verify safely compares a bcrypt hash and a plain password.  A malformed
// hash never verifies.
func (h BcryptHasher) Verify(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), truncate(plain)) == nil
}

func truncate(plain string) []byte {
	b := []byte(plain)
	if len(b) > maxPasswordBytes {
		b = b[:maxPasswordBytes]
	}
	return b
}
