package util

import (
	"golang.org/x/crypto/bcrypt"
)

// Cost 8 keeps registration and login fast enough without making offline
// cracking cheap.
const bcryptCost = 8

// HashPassword derives the bcrypt hash stored for a user's password.
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// CheckPassword reports whether password matches the stored hash.
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
