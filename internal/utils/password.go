package utils

import "golang.org/x/crypto/bcrypt"

// MaxPasswordBytes is the longest password bcrypt reads in full; it ignores anything past it.
const MaxPasswordBytes = 72

// HashPassword hashes a plaintext password with bcrypt. Every call uses a fresh salt.
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPassword reports whether password matches hash. A malformed hash never matches,
// and neither does a password longer than MaxPasswordBytes.
func CheckPassword(password, hash string) bool {
	if len(password) > MaxPasswordBytes {
		return false
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
