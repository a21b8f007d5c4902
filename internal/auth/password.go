package auth

import "golang.org/x/crypto/bcrypt"

// BcryptCost matches spec §3's "salted adaptive KDF (bcrypt-family, cost ≥12)".
const BcryptCost = 12

func HashPassword(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), BcryptCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ComparePassword reports whether plain matches hash. Per spec §3's guest
// invariant, callers must short-circuit to false for guest users without
// ever calling this (guests carry no hash to compare against).
func ComparePassword(hash, plain string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
